package main

import (
	"testing"

	"github.com/broyeztony/karlgrid/internal/grid"
)

func TestResolveAnchor(t *testing.T) {
	g := grid.NewGrid()
	sheet := g.Sheets()[0]

	pos, err := resolveAnchor(g, sheet.ID, "C5")
	if err != nil {
		t.Fatalf("resolveAnchor: %v", err)
	}
	if pos.X != 3 || pos.Y != 5 {
		t.Fatalf("expected (3, 5), got %+v", pos)
	}
}

func TestResolveAnchorRejectsTableRef(t *testing.T) {
	g := grid.NewGrid()
	sheet := g.Sheets()[0]

	arr := grid.NewArray(1, 1)
	arr.Set(0, 0, grid.Text{Value: "x"})
	sheet.SetDataTable(&grid.DataTable{
		Anchor:  grid.Pos{X: 1, Y: 1},
		Name:    "T1",
		Kind:    grid.DataTableImport,
		Value:   arr,
		Formats: grid.NewSheetFormatting(),
		Borders: grid.NewBorders(),
	})

	if _, err := resolveAnchor(g, sheet.ID, "T1[#ALL]"); err == nil {
		t.Fatalf("expected table reference to be rejected as an anchor")
	}
}
