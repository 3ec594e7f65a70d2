package depgraph

import (
	"sort"
	"testing"

	"github.com/broyeztony/karlgrid/internal/grid"
)

var testSheet = grid.NewSheetID()

func pos(x, y int64) grid.SheetPos { return grid.SheetPos{Sheet: testSheet, Pos: grid.Pos{X: x, Y: y}} }

func rect(x1, y1, x2, y2 int64) grid.Rect {
	return grid.Rect{Min: grid.Pos{X: x1, Y: y1}, Max: grid.Pos{X: x2, Y: y2}}
}

func sortedPos(got []grid.SheetPos) []grid.SheetPos {
	out := append([]grid.SheetPos(nil), got...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pos.X != out[j].Pos.X {
			return out[i].Pos.X < out[j].Pos.X
		}
		return out[i].Pos.Y < out[j].Pos.Y
	})
	return out
}

func assertPositions(t *testing.T, got []grid.SheetPos, want ...grid.SheetPos) {
	t.Helper()
	g, w := sortedPos(got), sortedPos(want)
	if len(g) != len(w) {
		t.Fatalf("got %v, want %v", g, w)
	}
	for i := range g {
		if g[i] != w[i] {
			t.Fatalf("got %v, want %v", g, w)
		}
	}
}

// TestRegionMap ports quadratic-core's sheet_region_map.rs test_region_map.
func TestRegionMap(t *testing.T) {
	a1, a2, q3, c3 := pos(1, 1), pos(1, 2), pos(17, 3), pos(3, 3)

	m := NewSheetRegionMap()
	m.insert(a1, rect(2, 2, 2, 3))  // B2:B3
	m.insert(a1, rect(3, 1, 5, 4))  // C1:E4
	m.insert(a2, rect(3, 1, 5, 4))  // C1:E4
	m.insert(q3, rect(1, 1, 1, 10)) // A1:A10
	m.insert(c3, rect(3, 4, 5, 4))  // C4:E4

	assertPositions(t, m.GetPositionsAssociatedWithRegion(rect(4, 4, 6, 10)), a1, a2, c3) // D4:F10
	assertPositions(t, m.GetPositionsAssociatedWithRegion(rect(2, 4, 2, 4)))               // B4:B4
	assertPositions(t, m.GetPositionsAssociatedWithRegion(rect(2, 2, 2, 2)), a1)           // B2:B2
	assertPositions(t, m.GetPositionsAssociatedWithRegion(rect(1, 2, 2, 2)), a1, q3)       // A2:B2

	m.SetRegionsForPos(a2, []grid.Rect{rect(6, 6, 6, 10), rect(8, 6, 8, 10)}) // F6:F10, H6:H10
	assertPositions(t, m.GetPositionsAssociatedWithRegion(rect(8, 7, 8, 7)), a2)           // H7:H7

	m.RemovePos(a2)
	assertPositions(t, m.GetPositionsAssociatedWithRegion(rect(4, 4, 6, 10)), a1, c3) // D4:F10
}

// TestRegionMapUnbounded ports test_region_map_unbounded.
func TestRegionMapUnbounded(t *testing.T) {
	a1, a2, a3, a4 := pos(1, 1), pos(1, 2), pos(1, 3), pos(1, 4)

	m := NewSheetRegionMap()
	columns := grid.Rect{Min: grid.Pos{X: 3, Y: 1}, Max: grid.Pos{X: 5, Y: grid.Unbounded}}             // C:E
	rows := grid.Rect{Min: grid.Pos{X: 1, Y: 10}, Max: grid.Pos{X: grid.Unbounded, Y: 50}}               // 10:50
	all := grid.Rect{Min: grid.Pos{X: 1, Y: 1}, Max: grid.Pos{X: grid.Unbounded, Y: grid.Unbounded}}     // :
	finite := rect(2, 2, 4, 17)                                                                          // B2:D17

	m.insert(a1, columns)
	m.insert(a2, rows)
	m.insert(a3, all)
	m.insert(a4, finite)

	assertPositions(t, m.GetPositionsAssociatedWithRegion(rect(4, 4, 6, 10)), a1, a2, a3, a4) // D4:F10

	fUnbounded := grid.Rect{Min: grid.Pos{X: 6, Y: 1}, Max: grid.Pos{X: grid.Unbounded, Y: grid.Unbounded}} // F:
	assertPositions(t, m.GetPositionsAssociatedWithRegion(fUnbounded), a2, a3)
}

func TestRegionMapCrossSheetIdentity(t *testing.T) {
	sheetA, sheetB := grid.NewSheetID(), grid.NewSheetID()
	samePos := grid.Pos{X: 1, Y: 1}
	readerA := grid.SheetPos{Sheet: sheetA, Pos: samePos}
	readerB := grid.SheetPos{Sheet: sheetB, Pos: samePos}

	m := NewSheetRegionMap()
	m.insert(readerA, rect(1, 1, 1, 1))
	m.insert(readerB, rect(1, 1, 2, 2))

	assertPositions(t, m.GetPositionsAssociatedWithRegion(rect(1, 1, 1, 1)), readerA, readerB)

	m.RemovePos(readerA)
	assertPositions(t, m.GetPositionsAssociatedWithRegion(rect(1, 1, 1, 1)), readerB)
	if regions := m.RegionsForPos(readerB); len(regions) != 1 {
		t.Fatalf("expected readerB's region untouched, got %d", len(regions))
	}
}
