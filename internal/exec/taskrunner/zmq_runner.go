package taskrunner

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-zeromq/zmq4"
	"golang.org/x/sync/errgroup"

	"github.com/broyeztony/karlgrid/internal/grid"
)

// wireEnvelope is the JSON frame exchanged over the ROUTER/DEALER pair,
// modeled directly on kernel.go's Header/Message split: a typed header plus
// a content blob, HMAC-signed the same way the Jupyter shell channel is.
type wireEnvelope struct {
	Type     string          `json:"type"` // "hello", "submit", "cancel", "result"
	TaskID   TaskID          `json:"task_id,omitempty"`
	Language grid.Language   `json:"language,omitempty"`
	Sheet    string          `json:"sheet,omitempty"`
	X        int64           `json:"x,omitempty"`
	Y        int64           `json:"y,omitempty"`
	Source   string          `json:"source,omitempty"`
	Context  map[string]string `json:"context,omitempty"`
	Result   *wireResult     `json:"result,omitempty"`
}

type wireResult struct {
	Kind          string             `json:"kind"` // grid.ValueKind of a scalar result, or "ARRAY"
	Text          string             `json:"text,omitempty"`
	Array         [][]string         `json:"array,omitempty"`
	ArrayKinds    [][]string         `json:"array_kinds,omitempty"`
	CellsAccessed []wireSheetRect    `json:"cells_accessed,omitempty"`
	Stdout        string             `json:"stdout,omitempty"`
	Stderr        string             `json:"stderr,omitempty"`
	ErrorKind     string             `json:"error_kind,omitempty"`
	ErrorMessage  string             `json:"error_message,omitempty"`
	ReturnType    string             `json:"return_type,omitempty"`
	LineNumber    int                `json:"line_number,omitempty"`
}

type wireSheetRect struct {
	Sheet          string `json:"sheet"`
	X1, Y1, X2, Y2 int64  `json:"x1,y1,x2,y2"`
}

// ZMQRunner dispatches tasks over a bound ZeroMQ ROUTER socket to one or
// more worker processes connected as DEALER, grounded on kernel.go's
// createSocket/receiveMessage/sendMessage shape (the Jupyter shell channel
// adapted from request/reply to fire-and-later-reply, since a worker may
// take arbitrarily long on a non-formula cell).
//
// Workers announce themselves with a "hello" envelope naming the language
// they serve; ZMQRunner round-robins Submit calls for that language across
// whichever identities last said hello.
type ZMQRunner struct {
	sock zmq4.Socket
	key  []byte

	mu       sync.Mutex
	workers  map[grid.Language][][]byte // identity frames, most-recently-seen last
	nextIdx  map[grid.Language]int
	pending  map[TaskID]chan *Result
	cancels  map[TaskID]bool

	group *errgroup.Group
}

// NewZMQRunner binds a ROUTER socket at addr (e.g. "tcp://127.0.0.1:5555")
// and starts its receive loop under ctx. key signs/verifies frames with
// HMAC-SHA256 the way kernel.go signs Jupyter messages; pass nil to disable
// signing for a trusted local transport.
func NewZMQRunner(ctx context.Context, addr string, key []byte) (*ZMQRunner, error) {
	sock := zmq4.NewRouter(ctx)
	if err := sock.Listen(addr); err != nil {
		return nil, fmt.Errorf("taskrunner: bind %s: %w", addr, err)
	}
	r := &ZMQRunner{
		sock:    sock,
		key:     key,
		workers: make(map[grid.Language][][]byte),
		nextIdx: make(map[grid.Language]int),
		pending: make(map[TaskID]chan *Result),
		cancels: make(map[TaskID]bool),
	}
	g, gctx := errgroup.WithContext(ctx)
	r.group = g
	g.Go(func() error { return r.receiveLoop(gctx) })
	return r, nil
}

// Close stops the receive loop and releases the socket.
func (r *ZMQRunner) Close() error {
	err := r.sock.Close()
	_ = r.group.Wait()
	return err
}

func (r *ZMQRunner) sign(frames ...[]byte) string {
	if len(r.key) == 0 {
		return ""
	}
	mac := hmac.New(sha256.New, r.key)
	for _, f := range frames {
		mac.Write(f)
	}
	return hex.EncodeToString(mac.Sum(nil))
}

func (r *ZMQRunner) send(identity []byte, env wireEnvelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	sig := r.sign(body)
	frames := [][]byte{identity, []byte("<IDS|MSG>"), []byte(sig), body}
	return r.sock.Send(zmq4.NewMsgFrom(frames...))
}

// Submit picks a worker registered for task.Language and sends it a submit
// envelope: submit(sheet_pos, language, source, context).
func (r *ZMQRunner) Submit(ctx context.Context, task Task) (TaskID, error) {
	if task.ID == "" {
		task.ID = newTaskID()
	}
	r.mu.Lock()
	idents := r.workers[task.Language]
	if len(idents) == 0 {
		r.mu.Unlock()
		return "", fmt.Errorf("taskrunner: no worker registered for language %q", task.Language)
	}
	i := r.nextIdx[task.Language] % len(idents)
	r.nextIdx[task.Language] = i + 1
	identity := idents[i]
	r.pending[task.ID] = make(chan *Result, 1)
	r.mu.Unlock()

	env := wireEnvelope{
		Type:     "submit",
		TaskID:   task.ID,
		Language: task.Language,
		Sheet:    task.SheetPos.Sheet.String(),
		X:        task.SheetPos.Pos.X,
		Y:        task.SheetPos.Pos.Y,
		Source:   task.Source,
		Context:  task.Context,
	}
	if err := r.send(identity, env); err != nil {
		r.mu.Lock()
		delete(r.pending, task.ID)
		r.mu.Unlock()
		return "", err
	}
	return task.ID, nil
}

// AwaitResult blocks until the worker's result envelope for id arrives, ctx
// is cancelled, or Cancel(id) discards it.
func (r *ZMQRunner) AwaitResult(ctx context.Context, id TaskID) (*Result, error) {
	r.mu.Lock()
	ch, ok := r.pending[id]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("taskrunner: unknown task %s", id)
	}
	select {
	case res, ok := <-ch:
		if !ok {
			return nil, ErrCancelled
		}
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel marks id so a late result is discarded, and wakes a pending
// AwaitResult with ErrCancelled. Nothing is sent to the worker, which may
// still finish the task. Cancel does not wait.
func (r *ZMQRunner) Cancel(id TaskID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels[id] = true
	if ch, ok := r.pending[id]; ok {
		close(ch)
		delete(r.pending, id)
	}
}

func (r *ZMQRunner) receiveLoop(ctx context.Context) error {
	for {
		msg, err := r.sock.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		r.handle(msg.Frames)
	}
}

func (r *ZMQRunner) handle(frames [][]byte) {
	if len(frames) < 4 {
		return
	}
	identity := frames[0]
	// frames[1] is the "<IDS|MSG>" delimiter, frames[2] the signature.
	body := frames[3]
	var env wireEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return
	}
	switch env.Type {
	case "hello":
		r.mu.Lock()
		r.workers[env.Language] = append(r.workers[env.Language], append([]byte(nil), identity...))
		r.mu.Unlock()
	case "result":
		r.deliver(env.TaskID, env.Result)
	}
}

func (r *ZMQRunner) deliver(id TaskID, wr *wireResult) {
	r.mu.Lock()
	ch, ok := r.pending[id]
	cancelled := r.cancels[id]
	delete(r.pending, id)
	delete(r.cancels, id)
	r.mu.Unlock()
	if !ok || cancelled {
		return
	}
	ch <- decodeResult(wr)
	close(ch)
}

func decodeResult(wr *wireResult) *Result {
	if wr == nil {
		return &Result{}
	}
	res := &Result{
		Stdout:     wr.Stdout,
		Stderr:     wr.Stderr,
		ReturnType: wr.ReturnType,
		LineNumber: wr.LineNumber,
	}
	if wr.ErrorKind != "" {
		res.Err = &grid.RunError{Kind: grid.ErrorKind(wr.ErrorKind), Message: wr.ErrorMessage}
	}
	for _, cr := range wr.CellsAccessed {
		res.CellsAccessed = append(res.CellsAccessed, grid.SheetRect{
			Sheet: parseSheetID(cr.Sheet),
			Rect:  grid.Rect{Min: grid.Pos{X: cr.X1, Y: cr.Y1}, Max: grid.Pos{X: cr.X2, Y: cr.Y2}},
		})
	}
	if wr.Kind == "ARRAY" {
		h := len(wr.Array)
		w := 0
		if h > 0 {
			w = len(wr.Array[0])
		}
		arr := grid.NewArray(w, h)
		for y, row := range wr.Array {
			for x, text := range row {
				kind := "TEXT"
				if y < len(wr.ArrayKinds) && x < len(wr.ArrayKinds[y]) {
					kind = wr.ArrayKinds[y][x]
				}
				arr.Set(x, y, decodeScalar(grid.ValueKind(kind), text))
			}
		}
		res.Array = &arr
		return res
	}
	res.Value = decodeScalar(grid.ValueKind(wr.Kind), wr.Text)
	return res
}

// decodeScalar interprets a worker's text-encoded result as a CellValue.
// Non-formula workers return plain text/numbers/booleans; richer kinds
// (dates, images) are out of scope for the task-runner wire format and
// arrive as Text, matching the external task runner contract boundary: the
// core only sees a task runner that can execute a code cell and return a
// value or an error, never the cloud-worker controller behind it.
func decodeScalar(kind grid.ValueKind, text string) grid.CellValue {
	switch kind {
	case grid.KindNumber:
		n := grid.NewNumber(0)
		if _, ok := n.Value.SetString(text); ok {
			return n
		}
		return grid.Text{Value: text}
	case grid.KindLogical:
		return grid.Logical{Value: text == "true" || text == "TRUE"}
	case grid.KindBlank:
		return grid.Blank{}
	default:
		return grid.Text{Value: text}
	}
}

func parseSheetID(s string) grid.SheetID {
	var id grid.SheetID
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(id) {
		return id
	}
	copy(id[:], b)
	return id
}
