package grid

import "testing"

func TestSetCellValueAndBounds(t *testing.T) {
	s := NewSheet("Sheet1")
	if b := s.Bounds(); !b.Empty {
		t.Fatalf("expected empty sheet, got %+v", b)
	}
	s.SetCellValue(Pos{X: 2, Y: 3}, NewNumber(1))
	s.SetCellValue(Pos{X: 5, Y: 1}, Text{Value: "hi"})
	b := s.Bounds()
	if b.Empty {
		t.Fatalf("expected non-empty bounds")
	}
	want := Rect{Min: Pos{X: 2, Y: 1}, Max: Pos{X: 5, Y: 3}}
	if b.Rect != want {
		t.Fatalf("got %+v, want %+v", b.Rect, want)
	}
}

func TestSetCellValueReturnsOld(t *testing.T) {
	s := NewSheet("Sheet1")
	old := s.SetCellValue(Pos{X: 1, Y: 1}, NewNumber(1))
	if old != nil {
		t.Fatalf("expected nil old value, got %v", old)
	}
	old = s.SetCellValue(Pos{X: 1, Y: 1}, NewNumber(2))
	n, ok := old.(Number)
	if !ok || n.Value.Sign() == 0 {
		t.Fatalf("expected old Number(1), got %v", old)
	}
}

func TestDataTableLifecycleAndSpill(t *testing.T) {
	s := NewSheet("Sheet1")
	anchor := Pos{X: 1, Y: 1}
	arr := NewArray(1, 2)
	arr.Set(0, 0, NewNumber(1))
	arr.Set(0, 1, NewNumber(2))
	dt := NewCodeDataTable(anchor, "", LangFormula, "{1;2}", arr)
	s.SetDataTable(dt)

	if got := s.DisplayValue(Pos{X: 1, Y: 2}); got.Display() != "2" {
		t.Fatalf("spilled cell display got %v", got)
	}

	// Writing into the spill range should mark the table as spilling.
	s.SetCellValue(Pos{X: 1, Y: 2}, NewNumber(99))
	s.RecomputeSpill(dt.OutputRect())
	if !dt.SpillValue {
		t.Fatalf("expected SpillValue after colliding write")
	}
	if v := s.DisplayValue(anchor); v.Kind() != KindError {
		t.Fatalf("expected anchor to show a spill error, got %v", v)
	}

	removed := s.RemoveDataTable(anchor)
	if removed == nil {
		t.Fatalf("expected RemoveDataTable to return the table")
	}
	if _, ok := s.DataTableAt(anchor); ok {
		t.Fatalf("expected table removed")
	}
}

func TestInsertDeleteColumnShiftsEverything(t *testing.T) {
	s := NewSheet("Sheet1")
	s.SetCellValue(Pos{X: 3, Y: 1}, NewNumber(42))
	s.Formats.Bold.SetRect(3, 1, int64Ptr(3), int64Ptr(1), Opt[bool]{Valid: true, Value: true})
	dt := NewCodeDataTable(Pos{X: 3, Y: 5}, "", LangFormula, "1", NewArray(1, 1))
	s.SetDataTable(dt)
	s.Validations.Set(&Validation{ID: "v1", Rect: Rect{Min: Pos{X: 3, Y: 1}, Max: Pos{X: 3, Y: 10}}})

	s.InsertColumn(2)

	v, _ := s.CellValue(Pos{X: 4, Y: 1})
	if n, ok := v.(Number); !ok || n.Value.Sign() == 0 {
		t.Fatalf("expected value shifted to column 4, got %v", v)
	}
	if !s.Formats.At(Pos{X: 4, Y: 1}).Bold {
		t.Fatalf("expected bold format shifted to column 4")
	}
	if _, ok := s.DataTableAt(Pos{X: 4, Y: 5}); !ok {
		t.Fatalf("expected data table anchor shifted to column 4")
	}
	val, ok := s.Validations.Get("v1")
	if !ok || val.Rect.Min.X != 4 {
		t.Fatalf("expected validation shifted to column 4, got %+v", val)
	}

	s.DeleteColumn(2)
	v, _ = s.CellValue(Pos{X: 3, Y: 1})
	if n, ok := v.(Number); !ok || n.Value.Sign() == 0 {
		t.Fatalf("expected value shifted back to column 3, got %v", v)
	}
	val, ok = s.Validations.Get("v1")
	if !ok || val.Rect.Min.X != 3 {
		t.Fatalf("expected validation shifted back to column 3, got %+v", val)
	}
}

func TestInsertDeleteRow(t *testing.T) {
	s := NewSheet("Sheet1")
	s.SetCellValue(Pos{X: 1, Y: 3}, Text{Value: "row3"})
	s.InsertRow(2)
	v, _ := s.CellValue(Pos{X: 1, Y: 4})
	if v == nil || v.Display() != "row3" {
		t.Fatalf("expected value shifted to row 4, got %v", v)
	}
	s.DeleteRow(2)
	v, _ = s.CellValue(Pos{X: 1, Y: 3})
	if v == nil || v.Display() != "row3" {
		t.Fatalf("expected value shifted back to row 3, got %v", v)
	}
}

func int64Ptr(v int64) *int64 { return &v }
