package a1

import "github.com/broyeztony/karlgrid/internal/grid"

// AdjustKind enumerates the structural edits RefAdjust can encode.
type AdjustKind int

const (
	AdjustTranslate AdjustKind = iota
	AdjustInsertColumn
	AdjustDeleteColumn
	AdjustInsertRow
	AdjustDeleteRow
)

// RefAdjust encodes one structural edit, scoped to a sheet: the edit is a
// no-op for ranges belonging to a different sheet.
type RefAdjust struct {
	SheetID grid.SheetID
	Kind    AdjustKind
	DX, DY  int64 // for AdjustTranslate
	At      int64 // column/row index, for the insert/delete kinds
}

func NewTranslateAdjust(sheet grid.SheetID, dx, dy int64) RefAdjust {
	return RefAdjust{SheetID: sheet, Kind: AdjustTranslate, DX: dx, DY: dy}
}

func NewInsertColumnAdjust(sheet grid.SheetID, at int64) RefAdjust {
	return RefAdjust{SheetID: sheet, Kind: AdjustInsertColumn, At: at}
}

func NewDeleteColumnAdjust(sheet grid.SheetID, at int64) RefAdjust {
	return RefAdjust{SheetID: sheet, Kind: AdjustDeleteColumn, At: at}
}

func NewInsertRowAdjust(sheet grid.SheetID, at int64) RefAdjust {
	return RefAdjust{SheetID: sheet, Kind: AdjustInsertRow, At: at}
}

func NewDeleteRowAdjust(sheet grid.SheetID, at int64) RefAdjust {
	return RefAdjust{SheetID: sheet, Kind: AdjustDeleteRow, At: at}
}

// Inverse returns the adjustment that undoes a, used by the adjust/
// inverse round-trip invariant.
func (a RefAdjust) Inverse() RefAdjust {
	switch a.Kind {
	case AdjustTranslate:
		return RefAdjust{SheetID: a.SheetID, Kind: AdjustTranslate, DX: -a.DX, DY: -a.DY}
	case AdjustInsertColumn:
		return RefAdjust{SheetID: a.SheetID, Kind: AdjustDeleteColumn, At: a.At}
	case AdjustDeleteColumn:
		return RefAdjust{SheetID: a.SheetID, Kind: AdjustInsertColumn, At: a.At}
	case AdjustInsertRow:
		return RefAdjust{SheetID: a.SheetID, Kind: AdjustDeleteRow, At: a.At}
	default: // AdjustDeleteRow
		return RefAdjust{SheetID: a.SheetID, Kind: AdjustInsertRow, At: a.At}
	}
}

// adjustCoord shifts one coordinate under adjust, for the given axis
// ('c'olumn or 'r'ow). unbounded coordinates pass through unchanged.
// Absoluteness ($-prefix) affects only printing, never adjustment.
func adjustCoord(v int64, axis byte, a RefAdjust) (int64, bool) {
	if v == grid.Unbounded {
		return v, true
	}
	switch a.Kind {
	case AdjustTranslate:
		d := a.DX
		if axis == 'r' {
			d = a.DY
		}
		nv := v + d
		return nv, nv >= 1
	case AdjustInsertColumn:
		if axis != 'c' {
			return v, true
		}
		if v >= a.At {
			return v + 1, true
		}
		return v, true
	case AdjustDeleteColumn:
		if axis != 'c' {
			return v, true
		}
		if v == a.At {
			return v, false // the referenced column itself was removed
		}
		if v > a.At {
			return v - 1, v-1 >= 1
		}
		return v, true
	case AdjustInsertRow:
		if axis != 'r' {
			return v, true
		}
		if v >= a.At {
			return v + 1, true
		}
		return v, true
	default: // AdjustDeleteRow
		if axis != 'r' {
			return v, true
		}
		if v == a.At {
			return v, false
		}
		if v > a.At {
			return v - 1, v-1 >= 1
		}
		return v, true
	}
}

func adjustCellRef(c CellRef, a RefAdjust) (CellRef, bool) {
	col, colOK := adjustCoord(c.Col, 'c', a)
	row, rowOK := adjustCoord(c.Row, 'r', a)
	if !colOK || !rowOK {
		return CellRef{}, false
	}
	c.Col, c.Row = col, row
	return c, true
}

// Adjust applies a structural edit to r strictly: returns a RefError if
// any coordinate would land below 1, preserving unbounded components
// unchanged.
func Adjust(r RefRangeBounds, a RefAdjust) (RefRangeBounds, error) {
	if r.isAnyUnbounded() {
		return r, nil
	}
	start, ok := adjustCellRef(r.Start, a)
	if !ok {
		return RefRangeBounds{}, RefError{Reason: "adjusted range falls out of bounds"}
	}
	end, ok := adjustCellRef(r.End, a)
	if !ok {
		return RefRangeBounds{}, RefError{Reason: "adjusted range falls out of bounds"}
	}
	return RefRangeBounds{Start: start, End: end}, nil
}

// SaturatingAdjust clamps r to sheet bounds (coordinates floored at 1
// rather than rejected), returning ok=false when the range collapses
// entirely on one axis.
func SaturatingAdjust(r RefRangeBounds, a RefAdjust) (RefRangeBounds, bool) {
	x1, x1ok := adjustCoord(r.Start.Col, 'c', a)
	x2, x2ok := adjustCoord(r.End.Col, 'c', a)
	y1, y1ok := adjustCoord(r.Start.Row, 'r', a)
	y2, y2ok := adjustCoord(r.End.Row, 'r', a)
	if !x1ok && !x2ok {
		return RefRangeBounds{}, false
	}
	if !y1ok && !y2ok {
		return RefRangeBounds{}, false
	}

	if r.isAnyUnbounded() {
		return r, true
	}

	start, end := r.Start, r.End
	start.Col, end.Col = clampPair(x1, x1ok, x2, x2ok)
	start.Row, end.Row = clampPair(y1, y1ok, y2, y2ok)
	return RefRangeBounds{Start: start, End: end}, true
}

// clampPair handles the case where one endpoint goes out of range but the
// other doesn't, rather than the whole range collapsing: a start that fell
// below 1 is floored at 1 (a deleted start column/row leaves the start on
// the next one in), and a deleted end column/row pulls the end back by one.
func clampPair(a int64, aOK bool, b int64, bOK bool) (int64, int64) {
	switch {
	case aOK && bOK:
		return a, b
	case aOK && !bOK:
		return a, b - 1
	case !aOK && bOK:
		if a < 1 {
			a = 1
		}
		return a, b
	default:
		return 1, 1
	}
}

// AdjustSelection applies a to every range in sel, dropping ranges that
// become empty under SaturatingAdjust and rewriting ranges on a deleted
// sheet to #REF! is the caller's responsibility (the dependency graph and
// txn packages handle that at the Sheet-deletion level, not here).
func AdjustSelection(sel A1Selection, a RefAdjust) A1Selection {
	if sel.SheetID != a.SheetID {
		return sel
	}
	out := sel
	out.Ranges = out.Ranges[:0]
	for _, r := range sel.Ranges {
		if r.Kind != RangeKindSheet {
			out.Ranges = append(out.Ranges, r)
			continue
		}
		if adjusted, ok := SaturatingAdjust(r.Sheet, a); ok {
			out.Ranges = append(out.Ranges, SheetRange(adjusted))
		}
	}
	return out
}
