package grid

import (
	"regexp"
	"sort"
	"strings"
)

// Sheet holds one sheet's cell values, formatting planes, offsets, data
// tables, borders, merges, validations, and spatial caches. Grounded on
// spreadsheet/sheet.go's Sheet struct, generalized from a flat
// map[CellID]*Cell to the full grid model.
type Sheet struct {
	ID    SheetID
	Name  string
	Color *Rgba
	Order string

	Offsets     *SheetOffsets
	cells       *cellStore
	Formats     *SheetFormatting
	Borders     *Borders
	Merges      *MergedCells
	Validations *Validations

	// dataTables is the ordered map of data tables keyed by anchor position.
	dataTables      map[Pos]*DataTable
	dataTableOrder  []Pos // insertion order, for deterministic iteration

	// tableCellCache maps every non-anchor cell covered by some table's
	// output rect to that table's anchor, so display-value dispatch is
	// O(1) instead of scanning every table.
	tableCellCache map[Pos]Pos

	bounds      Rect
	boundsValid bool
}

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// NewSheet creates an empty sheet with a fresh SheetID.
func NewSheet(name string) *Sheet {
	return &Sheet{
		ID:             NewSheetID(),
		Name:           sanitizeSheetName(name),
		Offsets:        NewSheetOffsets(),
		cells:          newCellStore(),
		Formats:        NewSheetFormatting(),
		Borders:        NewBorders(),
		Merges:         NewMergedCells(),
		Validations:    NewValidations(),
		dataTables:     make(map[Pos]*DataTable),
		tableCellCache: make(map[Pos]Pos),
	}
}

func sanitizeSheetName(name string) string {
	return controlChars.ReplaceAllString(strings.TrimSpace(name), "")
}

// CellValue returns the raw stored value at pos (nil if blank), without any
// data-table display-value dispatch. Use DisplayValue for the resolved
// value a user sees.
func (s *Sheet) CellValue(pos Pos) (CellValue, bool) { return s.cells.Get(pos) }

// SetCellValue stores v at pos, returning the previous value, and marks
// bounds dirty. Overwriting a data table's anchor destroys the table.
func (s *Sheet) SetCellValue(pos Pos, v CellValue) CellValue {
	if _, isTable := s.dataTables[pos]; isTable && v.Kind() != KindCode && v.Kind() != KindImport {
		s.RemoveDataTable(pos)
	}
	old := s.cells.Set(pos, v)
	s.boundsValid = false
	return old
}

// MergeCellValues sets a rectangle of values anchored at anchor in one
// call, returning the old values as a same-shape array for the reverse op.
func (s *Sheet) MergeCellValues(anchor Pos, values Array) Array {
	old := NewArray(values.Width, values.Height)
	for y := 0; y < values.Height; y++ {
		for x := 0; x < values.Width; x++ {
			pos := Pos{X: anchor.X + int64(x), Y: anchor.Y + int64(y)}
			ov, _ := s.cells.Get(pos)
			if ov == nil {
				ov = Blank{}
			}
			old.Set(x, y, ov)
			s.SetCellValue(pos, values.At(x, y))
		}
	}
	return old
}

// DisplayValue resolves the value a user sees at pos: table dispatch first,
// then the raw cell value.
func (s *Sheet) DisplayValue(pos Pos) CellValue {
	if anchor, ok := s.tableCellCache[pos]; ok {
		t := s.dataTables[anchor]
		if t.SpillValue || t.SpillDataTable {
			if pos == anchor {
				return ErrorValue{Err: RunError{Kind: ErrCodeRunError, Message: "spill"}}
			}
			v, _ := s.cells.Get(pos)
			if v == nil {
				return Blank{}
			}
			return v
		}
		t.EnsureSorted()
		dx, dy := int(pos.X-anchor.X), int(pos.Y-anchor.Y)
		return t.ValueAt(dx, dy)
	}
	if t, ok := s.dataTables[pos]; ok {
		if t.SpillValue || t.SpillDataTable {
			return ErrorValue{Err: RunError{Kind: ErrCodeRunError, Message: "spill"}}
		}
		t.EnsureSorted()
		return t.ValueAt(0, 0)
	}
	v, ok := s.cells.Get(pos)
	if !ok || v == nil {
		return Blank{}
	}
	return v
}

// SetDataTable installs table at its anchor (replacing any existing table
// there), rebuilds the table-cell cache for its output rect, and recomputes
// spill for every table whose output rect now intersects it.
func (s *Sheet) SetDataTable(table *DataTable) {
	if _, exists := s.dataTables[table.Anchor]; !exists {
		s.dataTableOrder = append(s.dataTableOrder, table.Anchor)
	}
	s.dataTables[table.Anchor] = table
	s.rebuildTableCellCache()
	s.RecomputeSpill(table.OutputRect())
	s.boundsValid = false
}

// RemoveDataTable deletes the table anchored at anchor, if any.
func (s *Sheet) RemoveDataTable(anchor Pos) *DataTable {
	t, ok := s.dataTables[anchor]
	if !ok {
		return nil
	}
	delete(s.dataTables, anchor)
	for i, p := range s.dataTableOrder {
		if p == anchor {
			s.dataTableOrder = append(s.dataTableOrder[:i], s.dataTableOrder[i+1:]...)
			break
		}
	}
	rect := t.OutputRect()
	s.rebuildTableCellCache()
	s.RecomputeSpill(rect)
	s.boundsValid = false
	return t
}

func (s *Sheet) rebuildTableCellCache() {
	cache := make(map[Pos]Pos)
	for _, anchor := range s.dataTableOrder {
		t := s.dataTables[anchor]
		r := t.OutputRect()
		for x := r.Min.X; x <= r.Max.X; x++ {
			for y := r.Min.Y; y <= r.Max.Y; y++ {
				p := Pos{X: x, Y: y}
				if p == anchor {
					continue
				}
				cache[p] = anchor
			}
		}
	}
	s.tableCellCache = cache
}

// DataTablesWithin returns the anchors of every table whose output rect
// intersects pos.
func (s *Sheet) DataTablesWithin(pos Pos) []Pos {
	var out []Pos
	for _, anchor := range s.dataTableOrder {
		if s.dataTables[anchor].OutputRect().Contains(pos) {
			out = append(out, anchor)
		}
	}
	return out
}

// FirstDataTableWithin returns the first table (in insertion order) whose
// output rect contains pos.
func (s *Sheet) FirstDataTableWithin(pos Pos) (*DataTable, bool) {
	for _, anchor := range s.dataTableOrder {
		t := s.dataTables[anchor]
		if t.OutputRect().Contains(pos) {
			return t, true
		}
	}
	return nil, false
}

// TableIntersects reports whether any table's output rect intersects
// (x,y), optionally excluding the table anchored at (excludeX, excludeY)
// when both are non-nil (used while recomputing the table itself).
func (s *Sheet) TableIntersects(x, y int64, excludeX, excludeY *int64) bool {
	pos := Pos{X: x, Y: y}
	for _, anchor := range s.dataTableOrder {
		if excludeX != nil && excludeY != nil && anchor.X == *excludeX && anchor.Y == *excludeY {
			continue
		}
		if s.dataTables[anchor].OutputRect().Contains(pos) {
			return true
		}
	}
	return false
}

// RecomputeSpill recomputes SpillValue/SpillDataTable for every table whose
// output rect intersects dirty.
func (s *Sheet) RecomputeSpill(dirty Rect) {
	for _, anchor := range s.dataTableOrder {
		t := s.dataTables[anchor]
		if !t.OutputRect().Intersects(dirty) {
			continue
		}
		t.SpillValue, t.SpillDataTable = s.computeSpill(t)
	}
}

func (s *Sheet) computeSpill(t *DataTable) (spillValue, spillDataTable bool) {
	r := t.OutputRect()
	for x := r.Min.X; x <= r.Max.X; x++ {
		for y := r.Min.Y; y <= r.Max.Y; y++ {
			p := Pos{X: x, Y: y}
			if p == t.Anchor {
				continue
			}
			if v, ok := s.cells.Get(p); ok && !IsBlank(v) {
				spillValue = true
			}
			for _, other := range s.dataTableOrder {
				if other == t.Anchor {
					continue
				}
				if s.dataTables[other].OutputRect().Contains(p) {
					spillDataTable = true
				}
			}
		}
	}
	return
}

// GridBounds is the smallest rect enclosing every non-blank cell and every
// data-table output rect. Formatting planes are not consulted: a cell that
// carries only formatting does not extend the bounds.
type GridBounds struct {
	Rect  Rect
	Empty bool
}

// RecomputeBounds recomputes and caches the sheet's bounds. Callers should
// invoke this only for sheets listed in PendingTransaction.sheets_with_
// dirty_bounds, not after every single mutation.
func (s *Sheet) RecomputeBounds() GridBounds {
	found := false
	var r Rect
	consider := func(cr Rect) {
		if !found {
			r = cr
			found = true
			return
		}
		if cr.Min.X < r.Min.X {
			r.Min.X = cr.Min.X
		}
		if cr.Min.Y < r.Min.Y {
			r.Min.Y = cr.Min.Y
		}
		if r.Max.X != Unbounded && (cr.Max.X == Unbounded || cr.Max.X > r.Max.X) {
			r.Max.X = cr.Max.X
		}
		if r.Max.Y != Unbounded && (cr.Max.Y == Unbounded || cr.Max.Y > r.Max.Y) {
			r.Max.Y = cr.Max.Y
		}
	}
	if cellRect, ok := s.cells.Bounds(); ok {
		consider(cellRect)
	}
	for _, anchor := range s.dataTableOrder {
		consider(s.dataTables[anchor].OutputRect())
	}
	bounds := GridBounds{Empty: !found}
	if found {
		bounds.Rect = r
	}
	s.bounds = r
	s.boundsValid = true
	return bounds
}

// Bounds returns the cached bounds, recomputing if stale.
func (s *Sheet) Bounds() GridBounds {
	if !s.boundsValid {
		return s.RecomputeBounds()
	}
	return GridBounds{Rect: s.bounds, Empty: s.bounds == Rect{}}
}

// InsertColumn shifts cell values, formats, validations, offsets, and table
// anchors to make room for a new empty column at x. Borders and merged cells
// are not shifted.
func (s *Sheet) InsertColumn(x int64) {
	s.cells.InsertColumn(x)
	s.shiftFormatColumnsInsert(x)
	s.Offsets.InsertColumn(x)
	for _, v := range s.Validations.byID {
		if v.Rect.Min.X >= x {
			v.Rect = v.Rect.Translate(1, 0)
		} else if v.Rect.Max.X != Unbounded && v.Rect.Max.X >= x {
			v.Rect.Max.X++
		}
	}
	s.shiftDataTableAnchorsColumn(x, 1)
	s.rebuildTableCellCache()
	s.boundsValid = false
}

// DeleteColumn removes column x, shifting later columns left. The values in
// column x are discarded and not returned.
func (s *Sheet) DeleteColumn(x int64) {
	s.cells.RemoveColumn(x)
	s.shiftFormatColumnsRemove(x)
	s.Offsets.RemoveColumn(x)
	for _, v := range s.Validations.byID {
		if v.Rect.Min.X > x {
			v.Rect = v.Rect.Translate(-1, 0)
		} else if v.Rect.Max.X != Unbounded && v.Rect.Max.X >= x {
			v.Rect.Max.X--
		}
	}
	s.shiftDataTableAnchorsColumn(x, -1)
	s.rebuildTableCellCache()
	s.boundsValid = false
}

func (s *Sheet) InsertRow(y int64) {
	s.cells.InsertRow(y)
	s.shiftFormatRowsInsert(y)
	s.Offsets.InsertRow(y)
	for _, v := range s.Validations.byID {
		if v.Rect.Min.Y >= y {
			v.Rect = v.Rect.Translate(0, 1)
		} else if v.Rect.Max.Y != Unbounded && v.Rect.Max.Y >= y {
			v.Rect.Max.Y++
		}
	}
	s.shiftDataTableAnchorsRow(y, 1)
	s.rebuildTableCellCache()
	s.boundsValid = false
}

func (s *Sheet) DeleteRow(y int64) {
	s.cells.RemoveRow(y)
	s.shiftFormatRowsRemove(y)
	s.Offsets.RemoveRow(y)
	for _, v := range s.Validations.byID {
		if v.Rect.Min.Y > y {
			v.Rect = v.Rect.Translate(0, -1)
		} else if v.Rect.Max.Y != Unbounded && v.Rect.Max.Y >= y {
			v.Rect.Max.Y--
		}
	}
	s.shiftDataTableAnchorsRow(y, -1)
	s.rebuildTableCellCache()
	s.boundsValid = false
}

func (s *Sheet) shiftDataTableAnchorsColumn(x int64, delta int64) {
	shifted := make(map[Pos]*DataTable, len(s.dataTables))
	order := make([]Pos, len(s.dataTableOrder))
	for i, anchor := range s.dataTableOrder {
		t := s.dataTables[anchor]
		na := anchor
		if (delta > 0 && anchor.X >= x) || (delta < 0 && anchor.X > x) {
			na.X += delta
		}
		t.Anchor = na
		shifted[na] = t
		order[i] = na
	}
	s.dataTables = shifted
	s.dataTableOrder = order
}

func (s *Sheet) shiftDataTableAnchorsRow(y int64, delta int64) {
	shifted := make(map[Pos]*DataTable, len(s.dataTables))
	order := make([]Pos, len(s.dataTableOrder))
	for i, anchor := range s.dataTableOrder {
		t := s.dataTables[anchor]
		na := anchor
		if (delta > 0 && anchor.Y >= y) || (delta < 0 && anchor.Y > y) {
			na.Y += delta
		}
		t.Anchor = na
		shifted[na] = t
		order[i] = na
	}
	s.dataTables = shifted
	s.dataTableOrder = order
}

func (s *Sheet) shiftFormatColumnsInsert(x int64) {
	f := s.Formats
	f.Align.InsertColumn(x)
	f.VerticalAlign.InsertColumn(x)
	f.Wrap.InsertColumn(x)
	f.NumericFormat.InsertColumn(x)
	f.NumericDecimal.InsertColumn(x)
	f.NumericCommas.InsertColumn(x)
	f.Bold.InsertColumn(x)
	f.Italic.InsertColumn(x)
	f.TextColor.InsertColumn(x)
	f.FillColor.InsertColumn(x)
	f.DateTimeFormat.InsertColumn(x)
	f.Underline.InsertColumn(x)
	f.StrikeThrough.InsertColumn(x)
	f.FontSize.InsertColumn(x)
}

func (s *Sheet) shiftFormatColumnsRemove(x int64) {
	f := s.Formats
	f.Align.RemoveColumn(x)
	f.VerticalAlign.RemoveColumn(x)
	f.Wrap.RemoveColumn(x)
	f.NumericFormat.RemoveColumn(x)
	f.NumericDecimal.RemoveColumn(x)
	f.NumericCommas.RemoveColumn(x)
	f.Bold.RemoveColumn(x)
	f.Italic.RemoveColumn(x)
	f.TextColor.RemoveColumn(x)
	f.FillColor.RemoveColumn(x)
	f.DateTimeFormat.RemoveColumn(x)
	f.Underline.RemoveColumn(x)
	f.StrikeThrough.RemoveColumn(x)
	f.FontSize.RemoveColumn(x)
}

func (s *Sheet) shiftFormatRowsInsert(y int64) {
	f := s.Formats
	f.Align.InsertRow(y)
	f.VerticalAlign.InsertRow(y)
	f.Wrap.InsertRow(y)
	f.NumericFormat.InsertRow(y)
	f.NumericDecimal.InsertRow(y)
	f.NumericCommas.InsertRow(y)
	f.Bold.InsertRow(y)
	f.Italic.InsertRow(y)
	f.TextColor.InsertRow(y)
	f.FillColor.InsertRow(y)
	f.DateTimeFormat.InsertRow(y)
	f.Underline.InsertRow(y)
	f.StrikeThrough.InsertRow(y)
	f.FontSize.InsertRow(y)
}

func (s *Sheet) shiftFormatRowsRemove(y int64) {
	f := s.Formats
	f.Align.RemoveRow(y)
	f.VerticalAlign.RemoveRow(y)
	f.Wrap.RemoveRow(y)
	f.NumericFormat.RemoveRow(y)
	f.NumericDecimal.RemoveRow(y)
	f.NumericCommas.RemoveRow(y)
	f.Bold.RemoveRow(y)
	f.Italic.RemoveRow(y)
	f.TextColor.RemoveRow(y)
	f.FillColor.RemoveRow(y)
	f.DateTimeFormat.RemoveRow(y)
	f.Underline.RemoveRow(y)
	f.StrikeThrough.RemoveRow(y)
	f.FontSize.RemoveRow(y)
}

// SortedDataTableAnchors returns data table anchors in a deterministic
// (column-major) order, useful for tests and serialization.
func (s *Sheet) SortedDataTableAnchors() []Pos {
	out := append([]Pos(nil), s.dataTableOrder...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

// DataTableAt returns the table anchored exactly at pos.
func (s *Sheet) DataTableAt(pos Pos) (*DataTable, bool) {
	t, ok := s.dataTables[pos]
	return t, ok
}

// AllCells returns every non-blank raw cell value on the sheet, for
// serialization (internal/persist). Table-covered cells that hold no raw
// value of their own are not included; the table itself carries its values.
func (s *Sheet) AllCells() []CellEntry { return s.cells.All() }

// SetCellEntries restores raw cell values during deserialization, bypassing
// the data-table-destroying check in SetCellValue (a freshly loaded sheet
// has no tables yet when cells are restored).
func (s *Sheet) SetCellEntries(entries []CellEntry) {
	for _, e := range entries {
		s.cells.Set(e.Pos, e.Value)
	}
	s.boundsValid = false
}
