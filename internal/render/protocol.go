// Package render implements the core↔renderer binary message set: a
// bidirectional stream of self-delimited records, plus the hashed tile
// cache that fragments each sheet into fixed-size tiles so the renderer
// only ever re-requests the tiles a transaction actually touched.
package render

import "github.com/broyeztony/karlgrid/internal/grid"

// MsgType tags every frame on the wire (both directions share one byte
// space so a single ReadMessage can dispatch on it).
type MsgType byte

const (
	MsgInitSheet MsgType = iota + 1
	MsgHashCells
	MsgDirtyHashes
	MsgSelection
	MsgMultiplayerCursors
	MsgSheetInfo
	MsgSheetOffsets
	MsgSheetDeleted
	MsgClearSheet

	MsgReady
	MsgViewportChanged
	MsgCellClick
	MsgCellHover
	MsgCellEdit
	MsgSelectionStart
	MsgSelectionDrag
	MsgSelectionEnd
	MsgColumnResize
	MsgRowResize
)

// RenderCell is one cell's rendered payload: its display value and the
// computed (inherited) format at that position.
type RenderCell struct {
	Pos   grid.Pos
	Value grid.CellValue
	Style grid.CellFormat
}

// HashCells is one tile's worth of cell content, keyed by its hashed
// position: a tile is a (sheet_id, hash_pos) pair.
type HashCells struct {
	SheetID grid.SheetID
	HashPos grid.Pos
	Cells   []RenderCell
}

// InitSheet seeds the renderer with a sheet's full visible tile set on
// open.
type InitSheet struct {
	SheetID   grid.SheetID
	HashCells []HashCells
}

// DirtyHashes tells the renderer which tiles changed since its last fetch;
// the renderer is expected to re-request exactly these.
type DirtyHashes struct {
	SheetID grid.SheetID
	Hashes  []grid.Pos
}

type Cursor struct {
	UserID    string
	UserName  string
	Color     grid.Rgba
	SheetID   grid.SheetID
	Pos       grid.Pos
	Selection *grid.Rect
}

type MultiplayerCursors struct {
	Cursors []Cursor
}

type Selection struct {
	SheetID grid.SheetID
	Cursor  grid.Pos
	Ranges  []grid.Rect
}

type SheetInfo struct {
	SheetID grid.SheetID
	Name    string
	Order   string
	Color   *grid.Rgba
}

type SheetOffsets struct {
	SheetID       grid.SheetID
	ColumnWidths  []ColOffset
	RowHeights    []RowOffset
}

type ColOffset struct {
	Col   int64
	Width float64
}

type RowOffset struct {
	Row    int64
	Height float64
}

type SheetDeleted struct{ SheetID grid.SheetID }
type ClearSheet struct{ SheetID grid.SheetID }

// Renderer→core messages.

type Ready struct{}

type ViewportChanged struct {
	SheetID    grid.SheetID
	VisibleRect grid.Rect
	HashBounds grid.Rect
}

type Modifiers struct {
	Shift, Ctrl, Alt, Meta bool
}

type CellClick struct {
	SheetID   grid.SheetID
	Pos       grid.Pos
	Modifiers Modifiers
}

type CellHover struct {
	SheetID grid.SheetID
	Pos     *grid.Pos
}

type CellEdit struct {
	SheetID grid.SheetID
	Pos     grid.Pos
}

type SelectionStart struct{ SheetID grid.SheetID; Pos grid.Pos }
type SelectionDrag struct{ SheetID grid.SheetID; Pos grid.Pos }
type SelectionEnd struct{ SheetID grid.SheetID; Pos grid.Pos }

type ColumnResize struct {
	SheetID grid.SheetID
	Column  int64
	Width   float64
}

type RowResize struct {
	SheetID grid.SheetID
	Row     int64
	Height  float64
}
