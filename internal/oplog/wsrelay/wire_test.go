package wsrelay

import (
	"testing"

	"github.com/broyeztony/karlgrid/internal/grid"
	"github.com/broyeztony/karlgrid/internal/oplog"
	"github.com/broyeztony/karlgrid/internal/txn"
)

func TestEncodeEntrySetCellValues(t *testing.T) {
	sheet := grid.NewSheetID()
	arr := grid.NewArray(1, 1)
	arr.Set(0, 0, grid.Text{Value: "hi"})

	e := oplog.Entry{
		ID:          txn.NewID(),
		SequenceNum: 7,
		Operations: []txn.Operation{
			{Kind: txn.OpSetCellValues, SheetPos: grid.SheetPos{Sheet: sheet, Pos: grid.Pos{X: 2, Y: 3}}, Values: arr},
		},
		Cursor: &txn.Cursor{Sheet: sheet, Pos: grid.Pos{X: 2, Y: 3}},
	}

	wire := encodeEntry(e)
	if wire.SequenceNum != 7 {
		t.Fatalf("expected sequence 7, got %d", wire.SequenceNum)
	}
	if len(wire.Operations) != 1 {
		t.Fatalf("expected 1 operation, got %d", len(wire.Operations))
	}
	op := wire.Operations[0]
	if op.Kind != "set_cell_values" || op.X != 2 || op.Y != 3 || op.Text != "hi" {
		t.Fatalf("unexpected wire operation: %+v", op)
	}
	if wire.Cursor == nil || wire.Cursor.Sheet != sheet.String() {
		t.Fatalf("expected cursor sheet to match, got %+v", wire.Cursor)
	}
}

func TestEncodeEntrySetCodeCell(t *testing.T) {
	sheet := grid.NewSheetID()
	e := oplog.Entry{
		ID: txn.NewID(),
		Operations: []txn.Operation{
			{
				Kind:     txn.OpSetCodeCell,
				SheetPos: grid.SheetPos{Sheet: sheet, Pos: grid.Pos{X: 1, Y: 1}},
				Code:     &grid.Code{Language: grid.LangFormula, Source: "1+1"},
			},
		},
	}
	wire := encodeEntry(e)
	op := wire.Operations[0]
	if op.Kind != "set_code_cell" || op.Language != "Formula" || op.Text != "1+1" {
		t.Fatalf("unexpected wire operation: %+v", op)
	}
}

func TestEncodeEntrySetBorders(t *testing.T) {
	sheet := grid.NewSheetID()
	rect := grid.Rect{Min: grid.Pos{X: 1, Y: 1}, Max: grid.Pos{X: 3, Y: 3}}
	e := oplog.Entry{
		Operations: []txn.Operation{
			{Kind: txn.OpSetBorders, SheetID: sheet, Borders: grid.BordersUpdate{Rect: rect}},
		},
	}
	wire := encodeEntry(e)
	op := wire.Operations[0]
	if op.Kind != "set_borders" || op.Sheet != sheet.String() {
		t.Fatalf("unexpected wire operation: %+v", op)
	}
	if op.X != 1 || op.Y != 1 || op.X2 != 3 || op.Y2 != 3 {
		t.Fatalf("expected border rect preserved, got %+v", op)
	}
}
