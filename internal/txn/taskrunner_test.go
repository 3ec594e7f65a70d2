package txn

import (
	"context"
	"errors"
	"testing"

	"github.com/broyeztony/karlgrid/internal/exec/taskrunner"
	"github.com/broyeztony/karlgrid/internal/grid"
)

// fakeRunner is an in-process stand-in for taskrunner.ZMQRunner, letting
// these tests exercise the engine's suspend/resume wiring without a real
// socket.
type fakeRunner struct {
	result    *taskrunner.Result
	err       error
	cancelled []taskrunner.TaskID
}

func (f *fakeRunner) Submit(ctx context.Context, task taskrunner.Task) (taskrunner.TaskID, error) {
	return "task-1", nil
}

func (f *fakeRunner) AwaitResult(ctx context.Context, id taskrunner.TaskID) (*taskrunner.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeRunner) Cancel(id taskrunner.TaskID) { f.cancelled = append(f.cancelled, id) }

func TestRunCodeCellDispatchesNonFormulaToTaskRunner(t *testing.T) {
	g := grid.NewGrid()
	s := firstSheet(g)
	e := NewEngine(g)

	arr := grid.NewArray(1, 1)
	arr.Set(0, 0, grid.NewNumber(42))
	fr := &fakeRunner{result: &taskrunner.Result{Array: &arr, Stdout: "hello\n", ReturnType: "int"}}
	e.SetTaskRunner(fr)

	pos := grid.SheetPos{Sheet: s.ID, Pos: grid.Pos{X: 1, Y: 1}}
	code := &grid.Code{Language: grid.LangPython, Source: "42"}
	if _, err := e.RunTransaction([]Operation{{Kind: OpSetCodeCell, SheetPos: pos, Code: code}}, TransactionUser, nil); err != nil {
		t.Fatalf("set code cell: %v", err)
	}

	dt, ok := s.DataTableAt(pos.Pos)
	if !ok {
		t.Fatalf("expected a data table at %v", pos.Pos)
	}
	n, ok := dt.Value.At(0, 0).(grid.Number)
	if !ok || n.Value.Sign() == 0 {
		t.Fatalf("expected result 42, got %v", dt.Value.At(0, 0))
	}
	if dt.CodeRun.Stdout != "hello\n" {
		t.Fatalf("expected stdout captured, got %q", dt.CodeRun.Stdout)
	}
	if dt.CodeRun.ReturnType != "int" {
		t.Fatalf("expected return type captured, got %q", dt.CodeRun.ReturnType)
	}
}

func TestRunCodeCellWithoutTaskRunnerProducesError(t *testing.T) {
	g := grid.NewGrid()
	s := firstSheet(g)
	e := NewEngine(g)

	pos := grid.SheetPos{Sheet: s.ID, Pos: grid.Pos{X: 1, Y: 1}}
	code := &grid.Code{Language: grid.LangPython, Source: "1"}
	if _, err := e.RunTransaction([]Operation{{Kind: OpSetCodeCell, SheetPos: pos, Code: code}}, TransactionUser, nil); err != nil {
		t.Fatalf("set code cell should not fail the transaction: %v", err)
	}

	dt, ok := s.DataTableAt(pos.Pos)
	if !ok {
		t.Fatalf("expected a data table at %v", pos.Pos)
	}
	errVal, ok := dt.Value.At(0, 0).(grid.ErrorValue)
	if !ok || errVal.Err.Kind != grid.ErrCodeRunError {
		t.Fatalf("expected CodeRunError value, got %v", dt.Value.At(0, 0))
	}
}

func TestRunCodeCellCancelsOnAwaitFailure(t *testing.T) {
	g := grid.NewGrid()
	s := firstSheet(g)
	e := NewEngine(g)

	fr := &fakeRunner{err: errors.New("worker crashed")}
	e.SetTaskRunner(fr)

	pos := grid.SheetPos{Sheet: s.ID, Pos: grid.Pos{X: 1, Y: 1}}
	code := &grid.Code{Language: grid.LangJavascript, Source: "1"}
	if _, err := e.RunTransaction([]Operation{{Kind: OpSetCodeCell, SheetPos: pos, Code: code}}, TransactionUser, nil); err != nil {
		t.Fatalf("set code cell: %v", err)
	}
	if len(fr.cancelled) != 1 || fr.cancelled[0] != "task-1" {
		t.Fatalf("expected task-1 cancelled, got %v", fr.cancelled)
	}
}
