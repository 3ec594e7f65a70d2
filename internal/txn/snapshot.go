package txn

import (
	"github.com/broyeztony/karlgrid/internal/contiguous2d"
	"github.com/broyeztony/karlgrid/internal/grid"
)

func toContiguousRect(r grid.Rect) contiguous2d.Rect {
	return contiguous2d.Rect{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

func rectCorners(r grid.Rect) (x2, y2 *int64) {
	if r.Max.X != grid.Unbounded {
		v := r.Max.X
		x2 = &v
	}
	if r.Max.Y != grid.Unbounded {
		v := r.Max.Y
		y2 = &v
	}
	return
}

// snapshotPlaneAsUpdate captures the current state of plane within r as a
// Change-update that, applied later, restores exactly that state: a
// whole-rect clear followed by every currently-nondefault block. Used to
// build the reverse operation for format/border updates before they mutate
// state: the reverse operation is always computed before mutating.
func snapshotPlaneAsUpdate[T comparable](plane *contiguous2d.Grid[grid.Opt[T]], r grid.Rect) *contiguous2d.Grid[grid.Change[T]] {
	out := contiguous2d.New(grid.Change[T]{})
	x2, y2 := rectCorners(r)
	out.SetRect(r.Min.X, r.Min.Y, x2, y2, grid.Change[T]{Present: true, Clear: true})
	for _, b := range plane.NondefaultRectsInRect(toContiguousRect(r)) {
		bx2, by2 := rectCorners(grid.Rect{Min: grid.Pos{X: b.Rect.X1, Y: b.Rect.Y1}, Max: grid.Pos{X: b.Rect.X2, Y: b.Rect.Y2}})
		out.SetRect(b.Rect.X1, b.Rect.Y1, bx2, by2, grid.Change[T]{Present: true, Clear: false, Value: b.Value.Value})
	}
	return out
}

// snapshotFormats captures every attribute plane of f within r, for building
// SetCellFormatsA1's reverse operation.
func snapshotFormats(f *grid.SheetFormatting, r grid.Rect) *grid.SheetFormatUpdate {
	return &grid.SheetFormatUpdate{
		Align:          snapshotPlaneAsUpdate(f.Align, r),
		VerticalAlign:  snapshotPlaneAsUpdate(f.VerticalAlign, r),
		Wrap:           snapshotPlaneAsUpdate(f.Wrap, r),
		NumericFormat:  snapshotPlaneAsUpdate(f.NumericFormat, r),
		NumericDecimal: snapshotPlaneAsUpdate(f.NumericDecimal, r),
		NumericCommas:  snapshotPlaneAsUpdate(f.NumericCommas, r),
		Bold:           snapshotPlaneAsUpdate(f.Bold, r),
		Italic:         snapshotPlaneAsUpdate(f.Italic, r),
		TextColor:      snapshotPlaneAsUpdate(f.TextColor, r),
		FillColor:      snapshotPlaneAsUpdate(f.FillColor, r),
		DateTimeFormat: snapshotPlaneAsUpdate(f.DateTimeFormat, r),
		Underline:      snapshotPlaneAsUpdate(f.Underline, r),
		StrikeThrough:  snapshotPlaneAsUpdate(f.StrikeThrough, r),
		FontSize:       snapshotPlaneAsUpdate(f.FontSize, r),
	}
}

// snapshotBorderUpdates captures the current border line for side across r
// as a sequence of BordersUpdate values which, applied in order, restore the
// prior state exactly (a whole-rect clear, then one Set per nondefault
// block).
func snapshotBorderUpdates(b *grid.Borders, r grid.Rect, side grid.BorderSide) []grid.BordersUpdate {
	var plane *contiguous2d.Grid[grid.Opt[grid.BorderLine]]
	switch side {
	case grid.BorderTop:
		plane = b.Top
	case grid.BorderBottomSide:
		plane = b.Bottom
	case grid.BorderLeft:
		plane = b.Left
	default:
		plane = b.Right
	}
	out := []grid.BordersUpdate{{Rect: r, Side: side, Clear: true}}
	for _, blk := range plane.NondefaultRectsInRect(toContiguousRect(r)) {
		blockRect := grid.Rect{Min: grid.Pos{X: blk.Rect.X1, Y: blk.Rect.Y1}, Max: grid.Pos{X: blk.Rect.X2, Y: blk.Rect.Y2}}
		out = append(out, grid.BordersUpdate{Rect: blockRect, Side: side, Line: blk.Value.Value})
	}
	return out
}
