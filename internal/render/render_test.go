package render

import (
	"bytes"
	"testing"

	"github.com/broyeztony/karlgrid/internal/grid"
)

func TestTileRectMatchesQuadrantOf(t *testing.T) {
	for _, p := range []grid.Pos{{X: 1, Y: 1}, {X: 14, Y: 29}, {X: 15, Y: 30}, {X: 100, Y: 200}} {
		q := grid.QuadrantOf(p)
		r := TileRect(q)
		if !r.Contains(p) {
			t.Fatalf("TileRect(%v) = %v does not contain %v (its own quadrant)", q, r, p)
		}
	}
}

func TestBuildHashCellsSkipsBlanks(t *testing.T) {
	s := grid.NewSheet("Sheet1")
	s.SetCellValue(grid.Pos{X: 2, Y: 2}, grid.Text{Value: "hi"})
	s.Formats.Bold.SetRect(2, 2, int64Ptr(2), int64Ptr(2), grid.Set(true))

	hc := BuildHashCells(s, grid.Pos{X: 0, Y: 0})
	if len(hc.Cells) != 1 {
		t.Fatalf("expected exactly one non-blank cell, got %d", len(hc.Cells))
	}
	if hc.Cells[0].Pos != (grid.Pos{X: 2, Y: 2}) {
		t.Fatalf("got %v, want (2,2)", hc.Cells[0].Pos)
	}
	if !hc.Cells[0].Style.Bold {
		t.Fatalf("expected bold style carried through")
	}
}

func TestDirtyHashesFrom(t *testing.T) {
	sheet := grid.NewSheetID()
	dirty := map[grid.SheetID]map[grid.Pos]bool{
		sheet: {{X: 0, Y: 0}: true, {X: 1, Y: 0}: true},
	}
	out := DirtyHashesFrom(dirty)
	if len(out) != 1 || out[0].SheetID != sheet || len(out[0].Hashes) != 2 {
		t.Fatalf("got %+v", out)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	sheet := grid.NewSheetID()
	var buf bytes.Buffer

	msgs := []interface{}{
		Ready{},
		DirtyHashes{SheetID: sheet, Hashes: []grid.Pos{{X: 0, Y: 0}, {X: 1, Y: 2}}},
		CellClick{SheetID: sheet, Pos: grid.Pos{X: 3, Y: 4}, Modifiers: Modifiers{Shift: true}},
		InitSheet{SheetID: sheet, HashCells: []HashCells{{
			SheetID: sheet,
			HashPos: grid.Pos{X: 0, Y: 0},
			Cells: []RenderCell{
				{Pos: grid.Pos{X: 1, Y: 1}, Value: grid.NewNumber(7), Style: grid.DefaultCellFormat()},
				{Pos: grid.Pos{X: 1, Y: 2}, Value: grid.Text{Value: "x"}, Style: grid.DefaultCellFormat()},
			},
		}}},
	}
	for _, m := range msgs {
		if err := WriteMessage(&buf, m); err != nil {
			t.Fatalf("write %T: %v", m, err)
		}
	}

	got, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("read Ready: %v", err)
	}
	if _, ok := got.(Ready); !ok {
		t.Fatalf("got %T, want Ready", got)
	}

	got, err = ReadMessage(&buf)
	if err != nil {
		t.Fatalf("read DirtyHashes: %v", err)
	}
	dh, ok := got.(DirtyHashes)
	if !ok || dh.SheetID != sheet || len(dh.Hashes) != 2 {
		t.Fatalf("got %+v", got)
	}

	got, err = ReadMessage(&buf)
	if err != nil {
		t.Fatalf("read CellClick: %v", err)
	}
	cc, ok := got.(CellClick)
	if !ok || cc.Pos != (grid.Pos{X: 3, Y: 4}) || !cc.Modifiers.Shift {
		t.Fatalf("got %+v", got)
	}

	got, err = ReadMessage(&buf)
	if err != nil {
		t.Fatalf("read InitSheet: %v", err)
	}
	is, ok := got.(InitSheet)
	if !ok || len(is.HashCells) != 1 || len(is.HashCells[0].Cells) != 2 {
		t.Fatalf("got %+v", got)
	}
	n, ok := is.HashCells[0].Cells[0].Value.(grid.Number)
	if !ok || n.Value.Sign() == 0 {
		t.Fatalf("expected number 7 round-tripped, got %v", is.HashCells[0].Cells[0].Value)
	}
}

func int64Ptr(v int64) *int64 { return &v }
