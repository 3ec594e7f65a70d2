package contiguous2d

import "testing"

func i64p(v int64) *int64 { return &v }

func TestGetDefault(t *testing.T) {
	g := New(0)
	if got := g.Get(5, 5); got != 0 {
		t.Errorf("expected default 0, got %d", got)
	}
}

func TestSetRectFinite(t *testing.T) {
	g := New(0)
	g.SetRect(2, 2, i64p(4), i64p(4), 9)

	if got := g.Get(3, 3); got != 9 {
		t.Errorf("expected 9 inside rect, got %d", got)
	}
	if got := g.Get(1, 1); got != 0 {
		t.Errorf("expected 0 outside rect, got %d", got)
	}
	if got := g.Get(5, 5); got != 0 {
		t.Errorf("expected 0 outside rect, got %d", got)
	}
}

func TestSetRectOverwriteCoalesces(t *testing.T) {
	g := New(0)
	g.SetRect(1, 1, i64p(1), i64p(10), 1)
	g.SetRect(1, 4, i64p(1), i64p(6), 1) // same value, should coalesce

	col := g.columns[1]
	if len(col.blocks) != 1 {
		t.Fatalf("expected blocks to coalesce into 1, got %d: %+v", len(col.blocks), col.blocks)
	}
}

func TestSetRectSplitsDifferentValue(t *testing.T) {
	g := New(0)
	g.SetRect(1, 1, i64p(1), i64p(10), 1)
	g.SetRect(1, 4, i64p(1), i64p(6), 2)

	if got := g.Get(1, 3); got != 1 {
		t.Errorf("expected 1 before split, got %d", got)
	}
	if got := g.Get(1, 5); got != 2 {
		t.Errorf("expected 2 inside split, got %d", got)
	}
	if got := g.Get(1, 8); got != 1 {
		t.Errorf("expected 1 after split, got %d", got)
	}
}

func TestUnboundedColumnRange(t *testing.T) {
	g := New(0)
	// set rows 5..10 for every column from 3 onward ("C:∞" style)
	g.SetRect(3, 5, nil, i64p(10), 7)

	if got := g.Get(3, 7); got != 7 {
		t.Errorf("expected 7 at (3,7), got %d", got)
	}
	if got := g.Get(1000, 7); got != 7 {
		t.Errorf("expected 7 at far column, got %d", got)
	}
	if got := g.Get(1000, 1); got != 0 {
		t.Errorf("expected 0 outside row range at far column, got %d", got)
	}
	if got := g.Get(2, 7); got != 0 {
		t.Errorf("expected 0 before unbounded range start, got %d", got)
	}
}

func TestUnboundedRowRange(t *testing.T) {
	g := New(0)
	g.SetRect(2, 1, i64p(2), nil, 3) // whole column 2 from row 1 down
	if got := g.Get(2, 1_000_000); got != 3 {
		t.Errorf("expected 3 far down column, got %d", got)
	}
	if got := g.Get(1, 1_000_000); got != 0 {
		t.Errorf("expected 0 in other column, got %d", got)
	}
}

func TestTranslateInPlaceClipsBelowOne(t *testing.T) {
	g := New(0)
	g.SetRect(1, 1, i64p(3), i64p(3), 5)
	g.TranslateInPlace(-5, -5)

	if got := g.Get(1, 1); got != 0 {
		t.Errorf("expected block shifted wholly below 1 to be clipped away, got %d at (1,1)", got)
	}
}

func TestInsertRemoveColumn(t *testing.T) {
	g := New(0)
	g.SetRect(1, 1, i64p(1), i64p(1), 1)
	g.SetRect(2, 1, i64p(2), i64p(1), 2)

	g.InsertColumn(2)
	if got := g.Get(1, 1); got != 1 {
		t.Errorf("column 1 unaffected by insert at 2, got %d", got)
	}
	if got := g.Get(2, 1); got != 0 {
		t.Errorf("expected inserted column to be empty, got %d", got)
	}
	if got := g.Get(3, 1); got != 2 {
		t.Errorf("expected shifted value at column 3, got %d", got)
	}

	g.RemoveColumn(2)
	if got := g.Get(2, 1); got != 2 {
		t.Errorf("expected value shifted back to column 2, got %d", got)
	}
}

func TestInsertRemoveRow(t *testing.T) {
	g := New(0)
	g.SetRect(1, 1, i64p(1), i64p(1), 1)
	g.SetRect(1, 2, i64p(1), i64p(2), 2)

	g.InsertRow(2)
	if got := g.Get(1, 1); got != 1 {
		t.Errorf("row 1 unaffected, got %d", got)
	}
	if got := g.Get(1, 2); got != 0 {
		t.Errorf("expected inserted row empty, got %d", got)
	}
	if got := g.Get(1, 3); got != 2 {
		t.Errorf("expected shifted value at row 3, got %d", got)
	}

	g.RemoveRow(2)
	if got := g.Get(1, 2); got != 2 {
		t.Errorf("expected value shifted back to row 2, got %d", got)
	}
}

func TestFiniteBounds(t *testing.T) {
	g := New(0)
	if _, ok := g.FiniteBounds(); ok {
		t.Fatalf("expected no bounds on empty grid")
	}
	g.SetRect(3, 4, i64p(5), i64p(6), 9)
	r, ok := g.FiniteBounds()
	if !ok {
		t.Fatalf("expected bounds")
	}
	if r != (Rect{X1: 3, Y1: 4, X2: 5, Y2: 6}) {
		t.Errorf("unexpected bounds: %+v", r)
	}
}

func TestUniqueValuesInRectIncludesDefault(t *testing.T) {
	g := New(0)
	g.SetRect(1, 1, i64p(1), i64p(1), 9)
	vals := g.UniqueValuesInRect(Rect{X1: 1, Y1: 1, X2: 2, Y2: 2})

	seen := map[int]bool{}
	for _, v := range vals {
		seen[v] = true
	}
	if !seen[9] || !seen[0] {
		t.Errorf("expected both 9 and default 0 in %v", vals)
	}
}

func TestIsAllDefault(t *testing.T) {
	g := New(0)
	if !g.IsAllDefault() {
		t.Errorf("expected empty grid to be all default")
	}
	g.SetRect(1, 1, i64p(1), i64p(1), 1)
	if g.IsAllDefault() {
		t.Errorf("expected grid with a write to not be all default")
	}
}
