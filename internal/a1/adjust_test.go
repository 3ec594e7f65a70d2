package a1

import (
	"testing"

	"github.com/broyeztony/karlgrid/internal/grid"
)

func cell(col, row int64) RefRangeBounds {
	c := CellRef{Col: col, Row: row}
	return RefRangeBounds{Start: c, End: c}
}

// TestSaturatingAdjustInverseRoundTrip checks invariant 5: applying an
// adjustment and then its Inverse() returns a range to its original bounds,
// for every adjustment kind, as long as the range survives both directions
// without collapsing.
func TestSaturatingAdjustInverseRoundTrip(t *testing.T) {
	sheet := grid.NewSheetID()
	cases := []struct {
		name string
		r    RefRangeBounds
		adj  RefAdjust
	}{
		{"translate", RefRangeBounds{Start: CellRef{Col: 3, Row: 3}, End: CellRef{Col: 5, Row: 7}}, NewTranslateAdjust(sheet, 2, -1)},
		{"insert column before", cell(5, 5), NewInsertColumnAdjust(sheet, 2)},
		{"insert column after", cell(5, 5), NewInsertColumnAdjust(sheet, 8)},
		{"insert row before", cell(5, 5), NewInsertRowAdjust(sheet, 2)},
		{"delete column after", cell(5, 5), NewDeleteColumnAdjust(sheet, 8)},
		{"delete row after", cell(5, 5), NewDeleteRowAdjust(sheet, 8)},
		{"range insert column", RefRangeBounds{Start: CellRef{Col: 2, Row: 2}, End: CellRef{Col: 6, Row: 9}}, NewInsertColumnAdjust(sheet, 4)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			adjusted, ok := SaturatingAdjust(c.r, c.adj)
			if !ok {
				t.Fatalf("forward adjust unexpectedly collapsed the range")
			}
			back, ok := SaturatingAdjust(adjusted, c.adj.Inverse())
			if !ok {
				t.Fatalf("inverse adjust unexpectedly collapsed the range")
			}
			if back != c.r {
				t.Errorf("round trip got %+v, want %+v", back, c.r)
			}
		})
	}
}

// TestSaturatingAdjustDeleteCollapses checks that deleting the exact
// column/row a single-cell range addresses reports collapse rather than
// silently returning a wrong position.
func TestSaturatingAdjustDeleteCollapses(t *testing.T) {
	sheet := grid.NewSheetID()
	r := cell(5, 5)
	if _, ok := SaturatingAdjust(r, NewDeleteColumnAdjust(sheet, 5)); ok {
		t.Fatalf("expected deleting the referenced column to collapse the range")
	}
	if _, ok := SaturatingAdjust(r, NewDeleteRowAdjust(sheet, 5)); ok {
		t.Fatalf("expected deleting the referenced row to collapse the range")
	}
}

// TestSaturatingAdjustClampsToBounds checks that when one endpoint of a
// range would translate past the sheet edge but the other survives, the
// out-of-range endpoint clamps to the sheet edge (1) rather than the whole
// range being rejected outright (unlike the single-cell collapse case).
func TestSaturatingAdjustClampsToBounds(t *testing.T) {
	sheet := grid.NewSheetID()
	r := RefRangeBounds{Start: CellRef{Col: 1, Row: 1}, End: CellRef{Col: 3, Row: 3}}
	adjusted, ok := SaturatingAdjust(r, NewTranslateAdjust(sheet, -2, -2))
	if !ok {
		t.Fatalf("expected clamping, not collapse")
	}
	want := cell(1, 1)
	if adjusted != want {
		t.Errorf("got %+v, want %+v", adjusted, want)
	}
}

// TestAdjustStrictRejectsOutOfBounds checks the strict Adjust variant
// (used where a #REF! error should propagate rather than be clamped).
func TestAdjustStrictRejectsOutOfBounds(t *testing.T) {
	sheet := grid.NewSheetID()
	r := cell(1, 1)
	if _, err := Adjust(r, NewTranslateAdjust(sheet, -1, 0)); err == nil {
		t.Fatalf("expected an error adjusting below column 1")
	}
}

// TestAdjustLeavesUnboundedRangesAlone checks that Adjust passes "*" and
// column/row-only ranges through unchanged, matching isAnyUnbounded's
// carve-out for translate-only callers.
func TestAdjustLeavesUnboundedRangesAlone(t *testing.T) {
	sheet := grid.NewSheetID()
	r := AllRange()
	got, err := Adjust(r, NewTranslateAdjust(sheet, 3, 4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != r {
		t.Errorf("expected the all-range to pass through unchanged, got %+v", got)
	}
}

// TestAdjustSelectionScopedToSheet checks that AdjustSelection is a no-op
// for a selection on a different sheet than the adjustment targets.
func TestAdjustSelectionScopedToSheet(t *testing.T) {
	sheetA := grid.NewSheetID()
	sheetB := grid.NewSheetID()
	sel := A1Selection{SheetID: sheetB, Ranges: []CellRefRange{SheetRange(cell(5, 5))}}
	got := AdjustSelection(sel, NewInsertColumnAdjust(sheetA, 2))
	if got.Ranges[0].Sheet != sel.Ranges[0].Sheet {
		t.Errorf("expected selection on a different sheet to be left untouched")
	}
}
