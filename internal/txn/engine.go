package txn

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/broyeztony/karlgrid/internal/depgraph"
	"github.com/broyeztony/karlgrid/internal/exec"
	"github.com/broyeztony/karlgrid/internal/exec/taskrunner"
	"github.com/broyeztony/karlgrid/internal/grid"
)

// Engine owns a grid.Grid plus every sheet's dependency-association index
// and the undo/redo history, serializing every mutation behind mu -
// generalizing spreadsheet/sheet.go and spreadsheet/engine.go's
// Sheet.mu-protected SetCell to the whole grid.
type Engine struct {
	mu sync.Mutex

	g          *grid.Grid
	regionMaps map[grid.SheetID]*depgraph.SheetRegionMap
	// depSources tracks, for each code cell, which reader sheets' region
	// maps currently hold an association for it - so re-running the code
	// cell can clear stale entries in sheets it no longer reads.
	depSources map[grid.SheetPos][]grid.SheetID

	undoStack [][]Operation
	redoStack [][]Operation

	unsaved []*UnsavedTransaction
	nextSeq uint64

	// lastAccessed is set by evalFormula for the duration of the current
	// RunCodeCell executor; it is not meaningful outside apply().
	lastAccessed []grid.SheetRect

	// runner dispatches non-formula code cells. Nil until SetTaskRunner is
	// called; a code cell in another language left unresolved by a nil
	// runner evaluates to a RunError{Kind: CodeRunError}.
	runner Runner
}

// Runner is the subset of taskrunner.Runner the engine needs, so tests can
// supply a fake without pulling in the ZeroMQ transport.
type Runner interface {
	Submit(ctx context.Context, task taskrunner.Task) (taskrunner.TaskID, error)
	AwaitResult(ctx context.Context, id taskrunner.TaskID) (*taskrunner.Result, error)
	Cancel(id taskrunner.TaskID)
}

func NewEngine(g *grid.Grid) *Engine {
	return &Engine{
		g:          g,
		regionMaps: make(map[grid.SheetID]*depgraph.SheetRegionMap),
		depSources: make(map[grid.SheetPos][]grid.SheetID),
	}
}

// SetTaskRunner installs the external task runner used for non-formula code
// cells. Not safe to call concurrently with RunTransaction.
func (e *Engine) SetTaskRunner(r Runner) { e.runner = r }

// clearDepSources removes every association codeCell currently has, across
// whichever reader sheets it was last recorded against - not just its own
// sheet, since a formula may read cells on other sheets.
func (e *Engine) clearDepSources(codeCell grid.SheetPos) {
	for _, sheetID := range e.depSources[codeCell] {
		e.regionMapFor(sheetID).RemovePos(codeCell)
	}
	delete(e.depSources, codeCell)
}

// setDepSources replaces codeCell's associations with bySheet (one entry per
// reader sheet it currently reads from), clearing stale entries in sheets it
// no longer reads.
func (e *Engine) setDepSources(codeCell grid.SheetPos, bySheet map[grid.SheetID][]grid.Rect) {
	e.clearDepSources(codeCell)
	sheets := make([]grid.SheetID, 0, len(bySheet))
	for sheetID, rects := range bySheet {
		e.regionMapFor(sheetID).SetRegionsForPos(codeCell, rects)
		sheets = append(sheets, sheetID)
	}
	if len(sheets) > 0 {
		e.depSources[codeCell] = sheets
	}
}

func (e *Engine) Grid() *grid.Grid { return e.g }

func (e *Engine) regionMapFor(id grid.SheetID) *depgraph.SheetRegionMap {
	rm, ok := e.regionMaps[id]
	if !ok {
		rm = depgraph.NewSheetRegionMap()
		e.regionMaps[id] = rm
	}
	return rm
}

// evalFormula runs source against the grid as seen from sheet, recording
// the accessed cells on e.lastAccessed for the calling executor to thread
// into the dependency graph.
func (e *Engine) evalFormula(sheet grid.SheetID, source string) (grid.CellValue, *grid.Array) {
	ev := exec.NewEvaluator(e.g, sheet)
	value, arr := ev.Run(source)
	e.lastAccessed = ev.Accessed()
	return value, arr
}

// RunTransaction executes the apply/compute/spill/bounds/commit pipeline
// over ops. On structural failure, every reverse operation accumulated so
// far is replayed to roll back and the error is returned.
func (e *Engine) RunTransaction(ops []Operation, txType TransactionType, cursor *Cursor) (*PendingTransaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runLocked(ops, txType, cursor)
}

func (e *Engine) runLocked(ops []Operation, txType TransactionType, cursor *Cursor) (*PendingTransaction, error) {
	pt, err := e.runPipeline(ops, txType, cursor)
	if err != nil {
		return nil, err
	}

	// 6. Commit.
	pt.Complete = true
	if txType == TransactionUser || txType == TransactionUnsaved {
		e.undoStack = append(e.undoStack, append([]Operation(nil), pt.ReverseOperations...))
		e.redoStack = nil
	}
	if txType == TransactionUnsaved {
		e.unsaved = append(e.unsaved, &UnsavedTransaction{
			ID:      pt.ID,
			Forward: append([]Operation(nil), pt.ForwardOperations...),
			Reverse: append([]Operation(nil), pt.ReverseOperations...),
		})
	}
	return pt, nil
}

// runPipeline executes the apply, compute, spill, and bounds steps of the
// pipeline without the type-dependent commit bookkeeping step, so the
// multiplayer rebase algorithm (ApplyPeerTransaction) can drive the same
// pipeline for
// undo-replay and reapply without touching the undo/redo/unsaved state.
func (e *Engine) runPipeline(ops []Operation, txType TransactionType, cursor *Cursor) (*PendingTransaction, error) {
	pt := newPendingTransaction(ops, txType, cursor)

	// 2. Apply loop.
	for {
		op, ok := pt.popFront()
		if !ok {
			break
		}
		reverse, followUps, err := e.apply(pt, op)
		if err != nil {
			e.rollback(pt)
			return nil, fmt.Errorf("txn: %w (rolled back)", err)
		}
		pt.ReverseOperations = append(pt.ReverseOperations, reverse)
		pt.ForwardOperations = append(pt.ForwardOperations, op)
		pt.enqueue(followUps...)

		// 3. Compute loop, folded into the apply loop: every write enqueues
		// RunCodeCell for dependents as soon as its accessed rect is known,
		// matching spreadsheet/engine.go's propagateUpdates-after-evaluateCell
		// order.
		if isWriteKind(op.Kind) {
			e.enqueueDependents(pt, op)
		}
	}

	// 4. Spill sweep: recompute spill for every table whose output rect
	// intersects a rect this transaction touched (writes and reads both;
	// computeSpill is idempotent so sweeping a superset is harmless).
	for _, rect := range pt.CellsAccessed {
		s := e.g.Sheet(rect.Sheet)
		if s == nil {
			continue
		}
		s.RecomputeSpill(rect.Rect)
	}

	// 5. Bounds.
	for sheetID := range pt.SheetsWithDirtyBounds {
		if s := e.g.Sheet(sheetID); s != nil {
			s.RecomputeBounds()
		}
	}

	return pt, nil
}

func isWriteKind(k OpKind) bool {
	switch k {
	case OpSetCellValues, OpSetCodeCell, OpRunCodeCell, OpCodeCellResult, OpSetDataTable,
		OpFlattenDataTable, OpCodeDataTableToDataTable, OpRestoreCodeDataTable, OpInsertColumn,
		OpDeleteColumn, OpInsertRow, OpDeleteRow, OpMoveColumns, OpMoveRows:
		return true
	default:
		return false
	}
}

// enqueueDependents asks the dependency graph for every code cell that read
// a rect touched by op, and enqueues a RunCodeCell for each, deduping
// against cells already queued or just run.
func (e *Engine) enqueueDependents(pt *PendingTransaction, op Operation) {
	sheetID := op.SheetID
	if sheetID == (grid.SheetID{}) {
		sheetID = op.SheetPos.Sheet
	}
	var touched grid.Rect
	switch {
	case op.Kind == OpSetCellValues:
		w, h := op.Values.Width, op.Values.Height
		if w == 0 {
			w = 1
		}
		if h == 0 {
			h = 1
		}
		touched = grid.Rect{Min: op.SheetPos.Pos, Max: grid.Pos{X: op.SheetPos.Pos.X + int64(w) - 1, Y: op.SheetPos.Pos.Y + int64(h) - 1}}
	case op.Kind == OpRunCodeCell || op.Kind == OpCodeCellResult || op.Kind == OpSetDataTable:
		if s := e.g.Sheet(op.SheetPos.Sheet); s != nil {
			if dt, ok := s.DataTableAt(op.SheetPos.Pos); ok {
				touched = dt.OutputRect()
			} else {
				touched = grid.SingleCell(op.SheetPos.Pos)
			}
		}
	default:
		// structural edits (insert/delete/move) invalidate every dependent
		// in the sheet conservatively.
		touched = grid.Rect{Min: grid.Pos{X: 1, Y: 1}, Max: grid.Pos{X: grid.Unbounded, Y: grid.Unbounded}}
	}

	rm := e.regionMapFor(sheetID)
	dependents := rm.GetPositionsAssociatedWithRegion(touched)
	seen := make(map[grid.SheetPos]bool)
	for _, existing := range pt.operations {
		if existing.Kind == OpRunCodeCell {
			seen[existing.SheetPos] = true
		}
	}
	for _, dep := range dependents {
		if dep == op.SheetPos || seen[dep] {
			continue
		}
		s := e.g.Sheet(dep.Sheet)
		if s == nil {
			continue
		}
		cv, ok := s.CellValue(dep.Pos)
		code, isCode := cv.(grid.Code)
		if !ok || !isCode {
			continue
		}
		seen[dep] = true
		pt.enqueue(Operation{Kind: OpRunCodeCell, SheetPos: dep, Code: &code})
	}
}

// rollback replays pt.ReverseOperations in reverse order, discarding their
// own reverses. A reverse operation is built from a consistent prior grid
// state, so it failing to apply means the grid is already corrupt - there
// is no further fallback to roll back to, so this is fatal rather than a
// returned error.
func (e *Engine) rollback(pt *PendingTransaction) {
	for i := len(pt.ReverseOperations) - 1; i >= 0; i-- {
		if _, _, err := e.apply(pt, pt.ReverseOperations[i]); err != nil {
			log.Printf("txn: fatal: reverse operation failed during rollback: %v", err)
			os.Exit(1)
		}
	}
}

// Undo pops the most recent user transaction's reverse operations and
// applies them as a new TransactionUndo transaction, pushing its own
// reverse (the original forward effect) onto the redo stack.
func (e *Engine) Undo() (*PendingTransaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.undoStack) == 0 {
		return nil, fmt.Errorf("txn: nothing to undo")
	}
	ops := e.undoStack[len(e.undoStack)-1]
	e.undoStack = e.undoStack[:len(e.undoStack)-1]
	pt, err := e.runLocked(ops, TransactionUndo, nil)
	if err != nil {
		return nil, err
	}
	e.redoStack = append(e.redoStack, append([]Operation(nil), pt.ReverseOperations...))
	return pt, nil
}

// Redo re-applies the most recently undone transaction.
func (e *Engine) Redo() (*PendingTransaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.redoStack) == 0 {
		return nil, fmt.Errorf("txn: nothing to redo")
	}
	ops := e.redoStack[len(e.redoStack)-1]
	e.redoStack = e.redoStack[:len(e.redoStack)-1]
	pt, err := e.runLocked(ops, TransactionRedo, nil)
	if err != nil {
		return nil, err
	}
	e.undoStack = append(e.undoStack, append([]Operation(nil), pt.ReverseOperations...))
	return pt, nil
}
