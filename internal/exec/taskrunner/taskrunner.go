// Package taskrunner is the external task-runner transport for non-formula
// code cells: submit/await_result dispatch to an out-of-process worker so
// that untrusted Python/JavaScript/connection code never runs inside the
// core, and so it may block on I/O without blocking the formula evaluator.
package taskrunner

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/broyeztony/karlgrid/internal/grid"
)

// TaskID identifies one submitted task, opaque to the caller.
type TaskID string

func newTaskID() TaskID {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return TaskID(hex.EncodeToString(b))
}

// Task is everything a worker needs to execute one non-formula code cell.
type Task struct {
	ID       TaskID
	SheetPos grid.SheetPos
	Language grid.Language
	Source   string
	// Context carries cell values the caller has already resolved (e.g. the
	// code cell's declared parameters), so the worker need not read the grid
	// directly - it sees only a snapshot taken at submit time.
	Context map[string]string
}

// Result is what await_result returns on success.
type Result struct {
	Value         grid.CellValue
	Array         *grid.Array
	CellsAccessed []grid.SheetRect
	Stdout        string
	Stderr        string
	Err           *grid.RunError
	ReturnType    string
	LineNumber    int
}

// ErrCancelled is returned by AwaitResult when Cancel was called on the
// task's ID before the worker produced a result.
var ErrCancelled = errors.New("taskrunner: task cancelled")

// Runner submits non-formula code cells to an external process and awaits
// their result. The transaction pipeline's single suspension point sits
// between Submit and AwaitResult: the engine calls Submit, then blocks the
// pipeline goroutine in AwaitResult until the worker replies or the
// transaction is cancelled.
type Runner interface {
	Submit(ctx context.Context, task Task) (TaskID, error)
	AwaitResult(ctx context.Context, id TaskID) (*Result, error)
	// Cancel tells the runner a pending task's transaction was rolled back.
	// The pipeline issues cancel(task_id) but does not wait; a late result
	// is discarded if the transaction is no longer current.
	Cancel(id TaskID)
}
