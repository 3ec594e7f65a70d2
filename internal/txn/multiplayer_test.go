package txn

import (
	"testing"

	"github.com/broyeztony/karlgrid/internal/grid"
)

func numArr(n int64) grid.Array {
	a := grid.NewArray(1, 1)
	a.Set(0, 0, grid.NewNumber(n))
	return a
}

func TestApplyPeerTransactionRebasesLocalUnsaved(t *testing.T) {
	g := grid.NewGrid()
	s := firstSheet(g)
	e := NewEngine(g)

	a1 := grid.SheetPos{Sheet: s.ID, Pos: grid.Pos{X: 1, Y: 1}}
	b1 := grid.SheetPos{Sheet: s.ID, Pos: grid.Pos{X: 2, Y: 1}}

	// Local (unsent) edit: B1 = 7.
	if _, err := e.RunTransaction([]Operation{{Kind: OpSetCellValues, SheetPos: b1, Values: numArr(7)}}, TransactionUnsaved, nil); err != nil {
		t.Fatalf("local edit: %v", err)
	}
	if len(e.unsaved) != 1 {
		t.Fatalf("expected one unsaved transaction, got %d", len(e.unsaved))
	}

	// A peer committed a transaction to A1 = 3 before ours was acknowledged.
	if _, err := e.ApplyPeerTransaction([]Operation{{Kind: OpSetCellValues, SheetPos: a1, Values: numArr(3)}}, nil); err != nil {
		t.Fatalf("apply peer transaction: %v", err)
	}

	va, _ := s.CellValue(a1.Pos)
	na, ok := va.(grid.Number)
	if !ok || na.Value.Cmp(bigRat(3)) != 0 {
		t.Fatalf("A1 got %v, want 3", va)
	}
	vb, _ := s.CellValue(b1.Pos)
	nb, ok := vb.(grid.Number)
	if !ok || nb.Value.Cmp(bigRat(7)) != 0 {
		t.Fatalf("B1 got %v, want 7 (local edit should survive rebase)", vb)
	}
}

func TestApplyPeerTransactionRebasesDependentFormula(t *testing.T) {
	g := grid.NewGrid()
	s := firstSheet(g)
	e := NewEngine(g)

	a1 := grid.SheetPos{Sheet: s.ID, Pos: grid.Pos{X: 1, Y: 1}}
	b1 := grid.SheetPos{Sheet: s.ID, Pos: grid.Pos{X: 2, Y: 1}}

	// Local (unsent) edit: B1 = A1*10, with A1 currently blank (treated as 0).
	code := &grid.Code{Language: grid.LangFormula, Source: "A1*10"}
	if _, err := e.RunTransaction([]Operation{{Kind: OpSetCodeCell, SheetPos: b1, Code: code}}, TransactionUnsaved, nil); err != nil {
		t.Fatalf("local edit: %v", err)
	}

	// Peer sets A1 = 4 concurrently.
	if _, err := e.ApplyPeerTransaction([]Operation{{Kind: OpSetCellValues, SheetPos: a1, Values: numArr(4)}}, nil); err != nil {
		t.Fatalf("apply peer transaction: %v", err)
	}

	dt, ok := s.DataTableAt(b1.Pos)
	if !ok {
		t.Fatalf("expected B1's data table to survive rebase")
	}
	n, ok := dt.Value.At(0, 0).(grid.Number)
	if !ok || n.Value.Cmp(bigRat(40)) != 0 {
		t.Fatalf("B1 got %v, want 40 (A1*10 recomputed against rebased A1=4)", dt.Value.At(0, 0))
	}
}

func TestConfirmTransactionRemovesFromUnsaved(t *testing.T) {
	g := grid.NewGrid()
	s := firstSheet(g)
	e := NewEngine(g)
	a1 := grid.SheetPos{Sheet: s.ID, Pos: grid.Pos{X: 1, Y: 1}}
	pt, err := e.RunTransaction([]Operation{{Kind: OpSetCellValues, SheetPos: a1, Values: numArr(1)}}, TransactionUnsaved, nil)
	if err != nil {
		t.Fatal(err)
	}
	e.MarkTransactionSent(pt.ID)
	if !e.unsaved[0].SentToServer {
		t.Fatalf("expected transaction marked sent")
	}
	if !e.ConfirmTransaction(pt.ID) {
		t.Fatalf("expected confirm to find the transaction")
	}
	if len(e.Unsaved()) != 0 {
		t.Fatalf("expected no unsaved transactions after confirm")
	}
}
