package exec

import (
	"math/big"
	"testing"

	"github.com/broyeztony/karlgrid/internal/grid"
)

func bigRat(i int64) *big.Rat { return big.NewRat(i, 1) }

func firstSheetID(g *grid.Grid) grid.SheetID {
	return g.Sheets()[0].ID
}

func TestEvalArithmeticAgainstCellReference(t *testing.T) {
	g := grid.NewGrid()
	s := g.Sheets()[0]
	s.SetCellValue(grid.Pos{X: 1, Y: 1}, grid.NewNumber(2))

	ev := NewEvaluator(g, s.ID)
	v, arr := ev.Run("A1*3")
	if arr != nil {
		t.Fatalf("expected scalar result, got array")
	}
	n, ok := v.(grid.Number)
	if !ok {
		t.Fatalf("expected Number, got %T", v)
	}
	if n.Value.Cmp(bigRat(6)) != 0 {
		t.Errorf("got %v, want 6", n.Value)
	}
}

func TestEvalArrayLiteral(t *testing.T) {
	g := grid.NewGrid()
	s := g.Sheets()[0]
	ev := NewEvaluator(g, s.ID)
	_, arr := ev.Run("{1;2;3}")
	if arr == nil {
		t.Fatalf("expected array result")
	}
	if arr.Width != 1 || arr.Height != 3 {
		t.Fatalf("got shape %dx%d, want 1x3", arr.Width, arr.Height)
	}
	v2 := arr.At(0, 1).(grid.Number)
	if v2.Value.Cmp(bigRat(2)) != 0 {
		t.Errorf("row 1 = %v, want 2", v2.Value)
	}
}

func TestEvalSheetQualifiedReference(t *testing.T) {
	g := grid.NewGrid()
	s1 := g.Sheets()[0]
	s2, err := g.AddSheet("S2", -1)
	if err != nil {
		t.Fatal(err)
	}
	s1.SetCellValue(grid.Pos{X: 1, Y: 1}, grid.NewNumber(2))
	ev := NewEvaluator(g, s2.ID)
	v, _ := ev.Run("Sheet1!A1+1")
	n, ok := v.(grid.Number)
	if !ok {
		t.Fatalf("expected Number, got %T (%v)", v, v)
	}
	if n.Value.Cmp(bigRat(3)) != 0 {
		t.Errorf("got %v, want 3", n.Value)
	}
	accessed := ev.Accessed()
	if len(accessed) != 1 || accessed[0].Sheet != s1.ID {
		t.Errorf("expected one accessed cell on s1, got %+v", accessed)
	}
}

func TestEvalDivideByZero(t *testing.T) {
	g := grid.NewGrid()
	ev := NewEvaluator(g, firstSheetID(g))
	v, _ := ev.Run("1/0")
	ev2, ok := v.(grid.ErrorValue)
	if !ok {
		t.Fatalf("expected ErrorValue, got %T", v)
	}
	if ev2.Err.Kind != grid.ErrDivideByZero {
		t.Errorf("got kind %v, want DivideByZero", ev2.Err.Kind)
	}
}

func TestEvalSumBuiltinOverRange(t *testing.T) {
	g := grid.NewGrid()
	s := g.Sheets()[0]
	s.SetCellValue(grid.Pos{X: 1, Y: 1}, grid.NewNumber(1))
	s.SetCellValue(grid.Pos{X: 1, Y: 2}, grid.NewNumber(2))
	s.SetCellValue(grid.Pos{X: 1, Y: 3}, grid.NewNumber(3))
	ev := NewEvaluator(g, s.ID)
	v, _ := ev.Run("SUM(A1:A3)")
	n := v.(grid.Number)
	if n.Value.Cmp(bigRat(6)) != 0 {
		t.Errorf("got %v, want 6", n.Value)
	}
}
