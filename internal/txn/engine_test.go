package txn

import (
	"math/big"
	"testing"

	"github.com/broyeztony/karlgrid/internal/grid"
)

func firstSheet(g *grid.Grid) *grid.Sheet { return g.Sheets()[0] }

func bigRat(i int64) *big.Rat { return big.NewRat(i, 1) }

func TestSetCellValuesAndUndo(t *testing.T) {
	g := grid.NewGrid()
	s := firstSheet(g)
	e := NewEngine(g)

	pos := grid.SheetPos{Sheet: s.ID, Pos: grid.Pos{X: 1, Y: 1}}
	arr := grid.NewArray(1, 1)
	arr.Set(0, 0, grid.NewNumber(5))
	pt, err := e.RunTransaction([]Operation{{Kind: OpSetCellValues, SheetPos: pos, Values: arr}}, TransactionUser, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !pt.Complete {
		t.Fatalf("expected transaction to complete")
	}
	v, _ := s.CellValue(pos.Pos)
	n, ok := v.(grid.Number)
	if !ok || n.Value.Cmp(bigRat(5)) != 0 {
		t.Fatalf("got %v, want Number(5)", v)
	}

	if _, err := e.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if _, ok := s.CellValue(pos.Pos); ok {
		t.Fatalf("after undo expected A1 cleared")
	}

	if _, err := e.Redo(); err != nil {
		t.Fatalf("redo: %v", err)
	}
	v, _ = s.CellValue(pos.Pos)
	n, ok = v.(grid.Number)
	if !ok || n.Value.Cmp(bigRat(5)) != 0 {
		t.Fatalf("after redo got %v, want Number(5)", v)
	}
}

func TestSetCodeCellRunsAndRecordsDependency(t *testing.T) {
	g := grid.NewGrid()
	s := firstSheet(g)
	e := NewEngine(g)

	a1 := grid.SheetPos{Sheet: s.ID, Pos: grid.Pos{X: 1, Y: 1}}
	vals := grid.NewArray(1, 1)
	vals.Set(0, 0, grid.NewNumber(2))
	if _, err := e.RunTransaction([]Operation{{Kind: OpSetCellValues, SheetPos: a1, Values: vals}}, TransactionUser, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	b1 := grid.SheetPos{Sheet: s.ID, Pos: grid.Pos{X: 2, Y: 1}}
	code := &grid.Code{Language: grid.LangFormula, Source: "A1*3"}
	if _, err := e.RunTransaction([]Operation{{Kind: OpSetCodeCell, SheetPos: b1, Code: code}}, TransactionUser, nil); err != nil {
		t.Fatalf("set code cell: %v", err)
	}

	dt, ok := s.DataTableAt(b1.Pos)
	if !ok {
		t.Fatalf("expected data table at B1")
	}
	result, ok := dt.Value.At(0, 0).(grid.Number)
	if !ok || result.Value.Cmp(bigRat(6)) != 0 {
		t.Fatalf("got %v, want 6", dt.Value.At(0, 0))
	}

	rm := e.regionMapFor(s.ID)
	regions := rm.RegionsForPos(b1)
	if len(regions) != 1 {
		t.Fatalf("expected one dependency region for B1, got %d", len(regions))
	}

	// Changing A1 must re-run B1's formula.
	vals2 := grid.NewArray(1, 1)
	vals2.Set(0, 0, grid.NewNumber(10))
	if _, err := e.RunTransaction([]Operation{{Kind: OpSetCellValues, SheetPos: a1, Values: vals2}}, TransactionUser, nil); err != nil {
		t.Fatalf("update A1: %v", err)
	}
	dt, _ = s.DataTableAt(b1.Pos)
	result, ok = dt.Value.At(0, 0).(grid.Number)
	if !ok || result.Value.Cmp(bigRat(30)) != 0 {
		t.Fatalf("got %v, want 30 after A1 update", dt.Value.At(0, 0))
	}
}

func TestSetCodeCellDependencyMovesAcrossSheets(t *testing.T) {
	g := grid.NewGrid()
	s1 := firstSheet(g)
	s2, err := g.AddSheet("S2", -1)
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine(g)

	a1s1 := grid.SheetPos{Sheet: s1.ID, Pos: grid.Pos{X: 1, Y: 1}}
	a1s2 := grid.SheetPos{Sheet: s2.ID, Pos: grid.Pos{X: 1, Y: 1}}
	vals := grid.NewArray(1, 1)
	vals.Set(0, 0, grid.NewNumber(1))
	if _, err := e.RunTransaction([]Operation{{Kind: OpSetCellValues, SheetPos: a1s1, Values: vals}}, TransactionUser, nil); err != nil {
		t.Fatal(err)
	}
	vals2 := grid.NewArray(1, 1)
	vals2.Set(0, 0, grid.NewNumber(100))
	if _, err := e.RunTransaction([]Operation{{Kind: OpSetCellValues, SheetPos: a1s2, Values: vals2}}, TransactionUser, nil); err != nil {
		t.Fatal(err)
	}

	codePos := grid.SheetPos{Sheet: s1.ID, Pos: grid.Pos{X: 2, Y: 1}}
	code := &grid.Code{Language: grid.LangFormula, Source: "A1"}
	if _, err := e.RunTransaction([]Operation{{Kind: OpSetCodeCell, SheetPos: codePos, Code: code}}, TransactionUser, nil); err != nil {
		t.Fatal(err)
	}
	if regions := e.regionMapFor(s1.ID).RegionsForPos(codePos); len(regions) != 1 {
		t.Fatalf("expected one s1 region for codePos, got %d", len(regions))
	}
	if regions := e.regionMapFor(s2.ID).RegionsForPos(codePos); len(regions) != 0 {
		t.Fatalf("expected no s2 region before re-pointing formula, got %d", len(regions))
	}

	code2 := &grid.Code{Language: grid.LangFormula, Source: "S2!A1"}
	if _, err := e.RunTransaction([]Operation{{Kind: OpSetCodeCell, SheetPos: codePos, Code: code2}}, TransactionUser, nil); err != nil {
		t.Fatal(err)
	}
	if regions := e.regionMapFor(s1.ID).RegionsForPos(codePos); len(regions) != 0 {
		t.Fatalf("expected stale s1 region cleared after re-point, got %d", len(regions))
	}
	if regions := e.regionMapFor(s2.ID).RegionsForPos(codePos); len(regions) != 1 {
		t.Fatalf("expected new s2 region recorded, got %d", len(regions))
	}

	dt, ok := s1.DataTableAt(codePos.Pos)
	if !ok {
		t.Fatalf("expected data table at codePos")
	}
	n, ok := dt.Value.At(0, 0).(grid.Number)
	if !ok || n.Value.Cmp(bigRat(100)) != 0 {
		t.Fatalf("got %v, want 100 (S2!A1)", dt.Value.At(0, 0))
	}
}

func TestDeleteCodeCellClearsDependency(t *testing.T) {
	g := grid.NewGrid()
	s := firstSheet(g)
	e := NewEngine(g)

	codePos := grid.SheetPos{Sheet: s.ID, Pos: grid.Pos{X: 2, Y: 1}}
	code := &grid.Code{Language: grid.LangFormula, Source: "A1+1"}
	if _, err := e.RunTransaction([]Operation{{Kind: OpSetCodeCell, SheetPos: codePos, Code: code}}, TransactionUser, nil); err != nil {
		t.Fatal(err)
	}
	if regions := e.regionMapFor(s.ID).RegionsForPos(codePos); len(regions) != 1 {
		t.Fatalf("expected one region before delete, got %d", len(regions))
	}

	if _, err := e.RunTransaction([]Operation{{Kind: OpSetCodeCell, SheetPos: codePos, Code: nil}}, TransactionUser, nil); err != nil {
		t.Fatal(err)
	}
	if regions := e.regionMapFor(s.ID).RegionsForPos(codePos); len(regions) != 0 {
		t.Fatalf("expected no regions after deleting code cell, got %d", len(regions))
	}
	if _, ok := e.depSources[codePos]; ok {
		t.Fatalf("expected depSources entry removed after delete")
	}
}

func TestRunTransactionRollsBackOnFailure(t *testing.T) {
	g := grid.NewGrid()
	s := firstSheet(g)
	e := NewEngine(g)

	a1 := grid.SheetPos{Sheet: s.ID, Pos: grid.Pos{X: 1, Y: 1}}
	vals := grid.NewArray(1, 1)
	vals.Set(0, 0, grid.NewNumber(1))
	missingSheet := grid.SheetPos{Sheet: grid.SheetID{0xFF}, Pos: grid.Pos{X: 1, Y: 1}}
	ops := []Operation{
		{Kind: OpSetCellValues, SheetPos: a1, Values: vals},
		{Kind: OpSetCellValues, SheetPos: missingSheet, Values: vals},
	}
	if _, err := e.RunTransaction(ops, TransactionUser, nil); err == nil {
		t.Fatalf("expected error from missing sheet")
	}
	if _, ok := s.CellValue(a1.Pos); ok {
		t.Fatalf("expected A1 rolled back to empty")
	}
	if len(e.undoStack) != 0 {
		t.Fatalf("expected no undo entry for a failed transaction")
	}
}

func TestDeleteSheetClearsRegionMapAndDepSources(t *testing.T) {
	g := grid.NewGrid()
	e := NewEngine(g)
	s2, err := e.g.AddSheet("S2", -1)
	if err != nil {
		t.Fatal(err)
	}
	codePos := grid.SheetPos{Sheet: s2.ID, Pos: grid.Pos{X: 1, Y: 1}}
	code := &grid.Code{Language: grid.LangFormula, Source: "1+1"}
	if _, err := e.RunTransaction([]Operation{{Kind: OpSetCodeCell, SheetPos: codePos, Code: code}}, TransactionUser, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := e.RunTransaction([]Operation{{Kind: OpDeleteSheet, SheetID: s2.ID}}, TransactionUser, nil); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.regionMaps[s2.ID]; ok {
		t.Fatalf("expected region map for deleted sheet to be removed")
	}
	if _, ok := e.depSources[codePos]; ok {
		t.Fatalf("expected depSources entry for deleted sheet's code cell to be removed")
	}
}

func TestInsertColumnAdjustsFormulaReferencesAndPosition(t *testing.T) {
	g := grid.NewGrid()
	s := firstSheet(g)
	e := NewEngine(g)

	b1 := grid.SheetPos{Sheet: s.ID, Pos: grid.Pos{X: 2, Y: 1}}
	code := &grid.Code{Language: grid.LangFormula, Source: "A1+10"}
	if _, err := e.RunTransaction([]Operation{{Kind: OpSetCodeCell, SheetPos: b1, Code: code}}, TransactionUser, nil); err != nil {
		t.Fatal(err)
	}

	// Insert a column before A: the formula cell itself shifts from B1 to
	// C1 (grid.Sheet's column shift), and its "A1" reference shifts to
	// "B1" (internal/a1's adjuster), matching both at once.
	if _, err := e.RunTransaction([]Operation{{Kind: OpInsertColumn, SheetID: s.ID, At: 1}}, TransactionUser, nil); err != nil {
		t.Fatal(err)
	}

	c1 := grid.Pos{X: 3, Y: 1}
	v, ok := s.CellValue(c1)
	if !ok {
		t.Fatalf("expected the formula cell to have shifted to C1")
	}
	got, ok := v.(grid.Code)
	if !ok {
		t.Fatalf("expected a Code cell at C1, got %T", v)
	}
	if got.Source != "B1+10" {
		t.Errorf("got source %q, want %q", got.Source, "B1+10")
	}
}

func TestDeleteSheetInvalidatesCrossSheetFormula(t *testing.T) {
	g := grid.NewGrid()
	s1 := firstSheet(g)
	s2, err := g.AddSheet("S2", -1)
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine(g)

	a1s2 := grid.SheetPos{Sheet: s2.ID, Pos: grid.Pos{X: 1, Y: 1}}
	vals := grid.NewArray(1, 1)
	vals.Set(0, 0, grid.NewNumber(42))
	if _, err := e.RunTransaction([]Operation{{Kind: OpSetCellValues, SheetPos: a1s2, Values: vals}}, TransactionUser, nil); err != nil {
		t.Fatal(err)
	}

	codePos := grid.SheetPos{Sheet: s1.ID, Pos: grid.Pos{X: 1, Y: 1}}
	code := &grid.Code{Language: grid.LangFormula, Source: "S2!A1"}
	if _, err := e.RunTransaction([]Operation{{Kind: OpSetCodeCell, SheetPos: codePos, Code: code}}, TransactionUser, nil); err != nil {
		t.Fatal(err)
	}
	dt, ok := s1.DataTableAt(codePos.Pos)
	if !ok {
		t.Fatalf("expected data table at codePos")
	}
	if n, ok := dt.Value.At(0, 0).(grid.Number); !ok || n.Value.Cmp(bigRat(42)) != 0 {
		t.Fatalf("got %v, want 42 before delete", dt.Value.At(0, 0))
	}

	if _, err := e.RunTransaction([]Operation{{Kind: OpDeleteSheet, SheetID: s2.ID}}, TransactionUser, nil); err != nil {
		t.Fatal(err)
	}

	// S2!A1 must become an error within this same transaction, not stay
	// stale at 42.
	dt, ok = s1.DataTableAt(codePos.Pos)
	if !ok {
		t.Fatalf("expected data table still present at codePos after delete")
	}
	if dt.Value.At(0, 0).Kind() != grid.KindError {
		t.Errorf("expected S2!A1 to become an error after deleting S2, got %v", dt.Value.At(0, 0))
	}

	// Undo must restore S2 with its cells and recover the formula's value,
	// not leave it stuck at the error the delete produced.
	if _, err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	restored := g.Sheet(s2.ID)
	if restored == nil {
		t.Fatalf("expected S2 to be restored by undo")
	}
	v, ok := restored.CellValue(grid.Pos{X: 1, Y: 1})
	if !ok {
		t.Fatalf("expected S2!A1 to still hold its value after undo")
	}
	if n, ok := v.(grid.Number); !ok || n.Value.Cmp(bigRat(42)) != 0 {
		t.Fatalf("got %v, want restored S2!A1 = 42", v)
	}
	dt, ok = s1.DataTableAt(codePos.Pos)
	if !ok {
		t.Fatalf("expected data table at codePos after undo")
	}
	if n, ok := dt.Value.At(0, 0).(grid.Number); !ok || n.Value.Cmp(bigRat(42)) != 0 {
		t.Errorf("got %v, want formula recomputed back to 42 after undo restores S2", dt.Value.At(0, 0))
	}
}
