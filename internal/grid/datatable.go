package grid

import "time"

// SortDirection orders a DataTable column.
type SortDirection string

const (
	SortNone       SortDirection = "None"
	SortAscending  SortDirection = "Ascending"
	SortDescending SortDirection = "Descending"
)

// ColumnHeader describes one column of a DataTable's value array.
type ColumnHeader struct {
	Name       CellValue
	Display    bool
	ValueIndex uint32
}

// SortRule is one entry of DataTable.sort.
type SortRule struct {
	ColumnIndex int
	Direction   SortDirection
}

// DataTableKind tags whether a table came from code execution or an
// import.
type DataTableKind int

const (
	DataTableCodeRun DataTableKind = iota
	DataTableImport
)

// CodeRunInfo holds the CodeRun variant's fields.
type CodeRunInfo struct {
	Language      Language
	Code          string
	Error         *RunError
	AccessedCells []SheetRect
	Stdout        string
	Stderr        string
	ReturnType    string
	LineNumber    int
}

// ImportInfo holds the Import variant's fields.
type ImportInfo struct {
	SourceName string // e.g. the connector/file that produced this table
}

// DataTable is a rectangular multi-cell output anchored at one position.
type DataTable struct {
	Anchor Pos
	Name   string

	Kind     DataTableKind
	CodeRun  CodeRunInfo
	Import   ImportInfo

	Value           Array
	HeaderIsFirstRow bool
	ShowName        bool
	ShowColumns     bool

	Columns []ColumnHeader
	Sort    []SortRule
	SortDirty bool
	// DisplayBuffer maps display row -> underlying row after sort. Empty
	// means identity (no sort applied).
	DisplayBuffer []uint64

	SpillValue     bool
	SpillDataTable bool
	AlternatingColors bool

	Formats *SheetFormatting
	Borders *Borders

	ChartOutput *[2]int // (w, h) when this table is a chart

	LastModified time.Time
}

// NewCodeDataTable builds a DataTable anchored at anchor from a code
// result.
func NewCodeDataTable(anchor Pos, name string, lang Language, code string, value Array) *DataTable {
	return &DataTable{
		Anchor:       anchor,
		Name:         name,
		Kind:         DataTableCodeRun,
		CodeRun:      CodeRunInfo{Language: lang, Code: code},
		Value:        value,
		ShowName:     true,
		ShowColumns:  true,
		Formats:      NewSheetFormatting(),
		Borders:      NewBorders(),
		LastModified: time.Now(),
	}
}

// OutputRect returns the rectangle the table occupies in sheet coordinates,
// from its value dimensions alone (at least 1x1); ShowName, ShowColumns and
// HeaderIsFirstRow do not change it.
func (t *DataTable) OutputRect() Rect {
	w, h := int64(t.Value.Width), int64(t.Value.Height)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return Rect{
		Min: t.Anchor,
		Max: Pos{X: t.Anchor.X + w - 1, Y: t.Anchor.Y + h - 1},
	}
}

// dataRowCount is the number of rows available for display (excluding the
// header row when HeaderIsFirstRow is set).
func (t *DataTable) dataRowCount() int {
	n := t.Value.Height
	if t.HeaderIsFirstRow && n > 0 {
		n--
	}
	return n
}

// underlyingRow maps a display row index (0-based, post-header) to the
// underlying row index in Value, applying DisplayBuffer if present.
func (t *DataTable) underlyingRow(displayRow int) int {
	offset := 0
	if t.HeaderIsFirstRow {
		offset = 1
	}
	if len(t.DisplayBuffer) > displayRow {
		return int(t.DisplayBuffer[displayRow]) + offset
	}
	return displayRow + offset
}

// ValueAt returns the value at a (dx, dy) offset from the anchor, applying
// header skip and sort's DisplayBuffer. The anchor offset (0, 0) is the
// exception: it returns Value's first cell as stored (the header cell when
// HeaderIsFirstRow is set).
func (t *DataTable) ValueAt(dx, dy int) CellValue {
	if dx < 0 || dy < 0 || dx >= t.Value.Width {
		return Blank{}
	}
	if dx == 0 && dy == 0 {
		return t.Value.At(0, 0)
	}
	row := t.underlyingRow(dy)
	return t.Value.At(dx, row)
}

// RecomputeSort rebuilds DisplayBuffer by stable lexicographic sort on
// t.Sort, skipping the header row. A value edit inside the table should set
// SortDirty=true; RecomputeSort is then called lazily on next read.
func (t *DataTable) RecomputeSort() {
	n := t.dataRowCount()
	if len(t.Sort) == 0 || n <= 0 {
		t.DisplayBuffer = nil
		t.SortDirty = false
		return
	}
	offset := 0
	if t.HeaderIsFirstRow {
		offset = 1
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	less := func(a, b int) bool {
		for _, rule := range t.Sort {
			if rule.Direction == SortNone {
				continue
			}
			va := t.Value.At(rule.ColumnIndex, a+offset)
			vb := t.Value.At(rule.ColumnIndex, b+offset)
			c := Compare(va, vb)
			if rule.Direction == SortDescending {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	}
	stableSort(idx, less)
	buf := make([]uint64, n)
	for i, v := range idx {
		buf[i] = uint64(v)
	}
	t.DisplayBuffer = buf
	t.SortDirty = false
}

// stableSort is a small insertion-sort based stable sort, adequate for the
// row counts a spreadsheet table realistically holds and avoiding a
// dependency on sort.SliceStable's reflection-based swap/less indirection
// for an already-int slice.
func stableSort(idx []int, less func(a, b int) bool) {
	for i := 1; i < len(idx); i++ {
		j := i
		for j > 0 && less(idx[j], idx[j-1]) {
			idx[j], idx[j-1] = idx[j-1], idx[j]
			j--
		}
	}
}

// MarkSortDirty should be called after any value edit inside the table.
func (t *DataTable) MarkSortDirty() {
	if len(t.Sort) > 0 {
		t.SortDirty = true
	}
}

// EnsureSorted recomputes the sort if dirty, matching the "sort is re-run
// lazily on next read" rule.
func (t *DataTable) EnsureSorted() {
	if t.SortDirty {
		t.RecomputeSort()
	}
}
