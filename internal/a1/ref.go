// Package a1 parses and prints the user-facing A1 reference language
// (Sheet1!A$2:C5, C:C, 2:5, *, table references) and adjusts references
// under structural edits (insert/delete column or row, translate).
package a1

import "github.com/broyeztony/karlgrid/internal/grid"

// CellRef is one endpoint of a range: a column and row, each independently
// absolute ($-prefixed) or relative, and each possibly unbounded.
type CellRef struct {
	Col         int64 // 1-indexed; grid.Unbounded for an open end
	Row         int64
	ColAbsolute bool
	RowAbsolute bool
}

func (c CellRef) colUnbounded() bool { return c.Col == grid.Unbounded }
func (c CellRef) rowUnbounded() bool { return c.Row == grid.Unbounded }

// RefRangeBounds is a rectangular range with independently-absolute column
// and row components on each endpoint.
type RefRangeBounds struct {
	Start CellRef
	End   CellRef
}

// IsAll reports whether r is the "*" (every cell) range.
func (r RefRangeBounds) IsAll() bool {
	return r.Start.Col == 1 && r.Start.Row == 1 && r.End.colUnbounded() && r.End.rowUnbounded()
}

// IsSingleCell reports whether r addresses exactly one cell.
func (r RefRangeBounds) IsSingleCell() bool {
	return r.Start.Col == r.End.Col && r.Start.Row == r.End.Row && !r.Start.colUnbounded() && !r.Start.rowUnbounded()
}

// isAnyUnbounded mirrors the original's is_any_unbounded: a range with an
// unbounded end is left untouched by translate (column-only / row-only /
// "*" ranges stay infinite across a translation on the other axis).
func (r RefRangeBounds) isAnyUnbounded() bool {
	return r.End.colUnbounded() || r.End.rowUnbounded()
}

// ToRect converts r to a grid.Rect, representing unbounded ends with
// grid.Unbounded (the original's "as_rect_unbounded").
func (r RefRangeBounds) ToRect() grid.Rect {
	return grid.Rect{
		Min: grid.Pos{X: r.Start.Col, Y: r.Start.Row},
		Max: grid.Pos{X: r.End.Col, Y: r.End.Row},
	}
}

// AllRange returns the "*" range.
func AllRange() RefRangeBounds {
	return RefRangeBounds{
		Start: CellRef{Col: 1, Row: 1},
		End:   CellRef{Col: grid.Unbounded, Row: grid.Unbounded},
	}
}

// SingleCellRange returns the range addressing exactly pos.
func SingleCellRange(pos grid.Pos) RefRangeBounds {
	c := CellRef{Col: pos.X, Row: pos.Y}
	return RefRangeBounds{Start: c, End: c}
}

// TableColumnSpec restricts a TableRef to a subset of columns, optionally
// including the header row.
type TableColumnSpec struct {
	All          bool
	ColumnNames  []string
	IncludeHeader bool
}

// TableRef references a named data table and optional column subset.
type TableRef struct {
	TableName string
	Columns   TableColumnSpec
}

// RangeKind distinguishes a sheet range from a table reference.
type RangeKind int

const (
	RangeKindSheet RangeKind = iota
	RangeKindTable
)

// CellRefRange is either a Sheet range or a Table range.
type CellRefRange struct {
	Kind  RangeKind
	Sheet RefRangeBounds
	Table TableRef
}

func SheetRange(b RefRangeBounds) CellRefRange {
	return CellRefRange{Kind: RangeKindSheet, Sheet: b}
}

func TableRange(t TableRef) CellRefRange {
	return CellRefRange{Kind: RangeKindTable, Table: t}
}

// A1Selection is a non-empty ordered list of ranges plus a cursor, all
// scoped to one owning sheet.
type A1Selection struct {
	SheetID grid.SheetID
	Ranges  []CellRefRange
	Cursor  grid.Pos
}

// A1Context is a snapshot of sheet-id<->name mappings and the table
// catalog used to resolve names while parsing and printing: reused by
// parsing until any sheet-name or table-name change invalidates it.
type A1Context struct {
	DefaultSheet   grid.SheetID
	sheetIDByName  map[string]grid.SheetID
	sheetNameByID  map[grid.SheetID]string
	tableSheet     map[string]grid.SheetID
	tableAnchor    map[string]grid.Pos
}

// NewA1Context builds a context from g, with defaultSheet as the sheet
// used for unqualified ranges.
func NewA1Context(g *grid.Grid, defaultSheet grid.SheetID) *A1Context {
	ctx := &A1Context{
		DefaultSheet:  defaultSheet,
		sheetIDByName: make(map[string]grid.SheetID),
		sheetNameByID: make(map[grid.SheetID]string),
		tableSheet:    make(map[string]grid.SheetID),
		tableAnchor:   make(map[string]grid.Pos),
	}
	for _, s := range g.Sheets() {
		ctx.sheetIDByName[s.Name] = s.ID
		ctx.sheetNameByID[s.ID] = s.Name
		for _, anchor := range s.SortedDataTableAnchors() {
			t, _ := s.DataTableAt(anchor)
			ctx.tableSheet[t.Name] = s.ID
			ctx.tableAnchor[t.Name] = anchor
		}
	}
	return ctx
}

func (c *A1Context) sheetByName(name string) (grid.SheetID, bool) {
	id, ok := c.sheetIDByName[name]
	return id, ok
}

func (c *A1Context) nameOfSheet(id grid.SheetID) (string, bool) {
	n, ok := c.sheetNameByID[id]
	return n, ok
}

func (c *A1Context) table(name string) (grid.SheetID, grid.Pos, bool) {
	sid, ok := c.tableSheet[name]
	if !ok {
		return grid.SheetID{}, grid.Pos{}, false
	}
	return sid, c.tableAnchor[name], true
}
