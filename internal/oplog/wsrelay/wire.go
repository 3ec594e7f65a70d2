package wsrelay

import (
	"encoding/hex"
	"fmt"

	"github.com/broyeztony/karlgrid/internal/grid"
	"github.com/broyeztony/karlgrid/internal/oplog"
	"github.com/broyeztony/karlgrid/internal/txn"
)

// WireEntry is the JSON shape of an oplog.Entry sent over the websocket.
// Narrower than txn.Operation, which carries *grid.Sheet/*grid.DataTable
// pointers unsuited to wire transport: only the operation kinds a peer
// actually rebases against locally (cell edits, code cells, cursor moves)
// are carried in full; everything else still round-trips enough (sheet,
// position, rect) for a remote client to know something happened and ask
// the server for the up-to-date tiles, same scoping internal/persist uses
// to collapse ten migration schemas into two representative steps.
type WireEntry struct {
	ID          string          `json:"id"`
	SequenceNum uint64          `json:"sequence_num"`
	Operations  []WireOperation `json:"operations"`
	Cursor      *WireCursor     `json:"cursor,omitempty"`
}

type WireCursor struct {
	Sheet string `json:"sheet"`
	X     int64  `json:"x"`
	Y     int64  `json:"y"`
}

type WireOperation struct {
	Kind     string `json:"kind"`
	Sheet    string `json:"sheet"`
	X        int64  `json:"x,omitempty"`
	Y        int64  `json:"y,omitempty"`
	X2       int64  `json:"x2,omitempty"`
	Y2       int64  `json:"y2,omitempty"`
	Text     string `json:"text,omitempty"`
	Language string `json:"language,omitempty"`
}

func encodeEntry(e oplog.Entry) WireEntry {
	out := WireEntry{ID: e.ID.String(), SequenceNum: e.SequenceNum}
	if e.Cursor != nil {
		out.Cursor = &WireCursor{Sheet: e.Cursor.Sheet.String(), X: e.Cursor.Pos.X, Y: e.Cursor.Pos.Y}
	}
	for _, op := range e.Operations {
		out.Operations = append(out.Operations, encodeOperation(op))
	}
	return out
}

func opSheet(op txn.Operation) grid.SheetID {
	if !op.SheetPos.Sheet.IsZero() {
		return op.SheetPos.Sheet
	}
	return op.SheetID
}

func encodeOperation(op txn.Operation) WireOperation {
	w := WireOperation{Sheet: opSheet(op).String(), X: op.SheetPos.Pos.X, Y: op.SheetPos.Pos.Y}
	switch op.Kind {
	case txn.OpSetCellValues:
		w.Kind = "set_cell_values"
		if op.Values.Width > 0 && op.Values.Height > 0 && len(op.Values.Values) > 0 {
			w.Text = op.Values.Values[0].Display()
		}
	case txn.OpSetCodeCell:
		w.Kind = "set_code_cell"
		if op.Code != nil {
			w.Language = string(op.Code.Language)
			w.Text = op.Code.Source
		}
	case txn.OpSetCellFormatsA1:
		w.Kind = "set_cell_formats"
		w.X, w.Y = op.FormatsRect.Min.X, op.FormatsRect.Min.Y
		w.X2, w.Y2 = op.FormatsRect.Max.X, op.FormatsRect.Max.Y
	case txn.OpSetBorders:
		w.Kind = "set_borders"
		w.X, w.Y = op.Borders.Rect.Min.X, op.Borders.Rect.Min.Y
		w.X2, w.Y2 = op.Borders.Rect.Max.X, op.Borders.Rect.Max.Y
	case txn.OpInsertColumn:
		w.Kind = "insert_column"
		w.X = op.At
	case txn.OpDeleteColumn:
		w.Kind = "delete_column"
		w.X = op.At
	case txn.OpInsertRow:
		w.Kind = "insert_row"
		w.Y = op.At
	case txn.OpDeleteRow:
		w.Kind = "delete_row"
		w.Y = op.At
	case txn.OpSetCursorA1:
		w.Kind = "set_cursor"
	default:
		w.Kind = "op"
	}
	return w
}

// DecodeID parses a WireEntry.ID string back into a txn.ID.
func DecodeID(s string) (txn.ID, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 16 {
		return txn.ID{}, fmt.Errorf("wsrelay: invalid transaction id %q", s)
	}
	var id txn.ID
	copy(id[:], b)
	return id, nil
}

func parseSheetID(s string) (grid.SheetID, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 16 {
		return grid.SheetID{}, fmt.Errorf("wsrelay: invalid sheet id %q", s)
	}
	var id grid.SheetID
	copy(id[:], b)
	return id, nil
}

// DecodeOperations turns the subset of WireOperation kinds a server can act
// on back into txn.Operation, the inverse of encodeOperation. Kinds with no
// forward-apply meaning on their own (formats/borders rects, the generic
// "op" fallback) are dropped rather than guessed at - a peer that needs
// those already has them locally and only needed the DirtyHashes nudge.
func DecodeOperations(ops []WireOperation) ([]txn.Operation, error) {
	out := make([]txn.Operation, 0, len(ops))
	for _, w := range ops {
		sheet, err := parseSheetID(w.Sheet)
		if err != nil {
			return nil, err
		}
		pos := grid.Pos{X: w.X, Y: w.Y}
		switch w.Kind {
		case "set_cell_values":
			arr := grid.NewArray(1, 1)
			arr.Set(0, 0, grid.Text{Value: w.Text})
			out = append(out, txn.Operation{Kind: txn.OpSetCellValues, SheetPos: grid.SheetPos{Sheet: sheet, Pos: pos}, Values: arr})
		case "set_code_cell":
			out = append(out, txn.Operation{
				Kind:     txn.OpSetCodeCell,
				SheetPos: grid.SheetPos{Sheet: sheet, Pos: pos},
				Code:     &grid.Code{Language: grid.Language(w.Language), Source: w.Text},
			})
		case "insert_column":
			out = append(out, txn.Operation{Kind: txn.OpInsertColumn, SheetID: sheet, At: w.X})
		case "delete_column":
			out = append(out, txn.Operation{Kind: txn.OpDeleteColumn, SheetID: sheet, At: w.X})
		case "insert_row":
			out = append(out, txn.Operation{Kind: txn.OpInsertRow, SheetID: sheet, At: w.Y})
		case "delete_row":
			out = append(out, txn.Operation{Kind: txn.OpDeleteRow, SheetID: sheet, At: w.Y})
		case "set_cursor":
			out = append(out, txn.Operation{Kind: txn.OpSetCursorA1, SheetPos: grid.SheetPos{Sheet: sheet, Pos: pos}})
		}
	}
	return out, nil
}

// DecodeCursor turns a WireCursor back into a txn.Cursor, or nil if w is nil.
func DecodeCursor(w *WireCursor) (*txn.Cursor, error) {
	if w == nil {
		return nil, nil
	}
	sheet, err := parseSheetID(w.Sheet)
	if err != nil {
		return nil, err
	}
	return &txn.Cursor{Sheet: sheet, Pos: grid.Pos{X: w.X, Y: w.Y}}, nil
}
