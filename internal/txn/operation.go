// Package txn implements the transaction pipeline that mutates a grid.Grid:
// apply, dependency-driven recompute, spill sweep, bounds refresh, and
// commit with a reversible undo/redo stack, generalizing
// spreadsheet/engine.go and spreadsheet/sheet.go's mutex-protected
// SetCell/propagateUpdates pattern from one sheet of scalar cells to the
// full grid engine (formats, borders, merges, data tables, multiple
// sheets).
package txn

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/broyeztony/karlgrid/internal/grid"
)

// ID identifies one transaction, stable across undo/redo/broadcast.
type ID [16]byte

func NewID() ID {
	var id ID
	_, _ = rand.Read(id[:])
	return id
}

func (id ID) String() string { return hex.EncodeToString(id[:]) }

// TransactionType tags where a transaction originated, controlling undo
// stack bookkeeping and rebase eligibility.
type TransactionType int

const (
	TransactionUser TransactionType = iota
	TransactionUndo
	TransactionRedo
	TransactionMultiplayer
	TransactionServer
	TransactionUnsaved
)

// Cursor is the caller's selection/cell position at the time a transaction
// was opened, carried through so undo/redo can restore it.
type Cursor struct {
	Sheet grid.SheetID
	Pos   grid.Pos
}

// OpKind tags the variant of an Operation.
type OpKind int

const (
	OpSetCellValues OpKind = iota
	OpSetCodeCell
	OpSetCellFormatsA1
	OpSetBorders
	OpSetMergeCells
	OpInsertColumn
	OpDeleteColumn
	OpInsertRow
	OpDeleteRow
	OpMoveColumns
	OpMoveRows
	OpAddSheet
	OpDeleteSheet
	OpRenameSheet
	OpSetSheetColor
	OpSetSheetOrder
	OpResizeColumn
	OpResizeRow
	OpSetDataTable
	OpSortDataTable
	OpFlattenDataTable
	OpCodeDataTableToDataTable
	OpSetValidation
	OpSetCursorA1
	// OpRestoreBorders is a synthetic kind used only as a reverse operation:
	// it replays BorderRestore in listed order (a whole-rect clear followed
	// by each previously-nondefault block), since a border update's inverse
	// is not itself a single BordersUpdate in general.
	OpRestoreBorders
	// OpRestoreCodeDataTable is a synthetic kind used only as the reverse of
	// OpCodeDataTableToDataTable: flattening a code table to a plain import
	// table is lossy (the code, language, and run metadata are discarded),
	// so unlike OpRestoreBorders its reverse isn't itself another flatten -
	// it carries the displaced CodeRunInfo and code cell value back.
	OpRestoreCodeDataTable
	// OpRunCodeCell and OpCodeCellResult are not part of the caller-facing
	// operation vocabulary; the compute loop enqueues them internally.
	OpRunCodeCell
	OpCodeCellResult
)

// Operation is a single step of a transaction. Every kind carries enough of
// its own payload, plus whatever the executor fills in on the reverse
// operation, to be deterministically undone.
type Operation struct {
	Kind OpKind

	SheetPos grid.SheetPos
	SheetID  grid.SheetID

	// SetCellValues / SetDataTable reverse / array-shaped results.
	Values grid.Array

	// SetCodeCell. nil Code means "delete the code cell".
	Code *grid.Code

	// SetCellFormatsA1.
	Formats     *grid.SheetFormatUpdate
	FormatsRect grid.Rect

	// SetBorders.
	Borders grid.BordersUpdate
	// OpRestoreBorders reverse payload (see the kind's doc comment).
	BorderRestore []grid.BordersUpdate

	// SetMergeCells.
	MergeRect  grid.Rect
	MergeClear bool

	// InsertColumn/DeleteColumn/InsertRow/DeleteRow/ResizeColumn/ResizeRow/
	// MoveColumns/MoveRows.
	At           int64
	To           int64
	CopyFormats  bool
	NewSize      float64
	ClientResized bool

	// AddSheet/DeleteSheet: the sheet itself, so undo/redo can reinstall the
	// exact removed instance rather than rebuilding it.
	Sheet      *grid.Sheet
	SheetIndex int
	// DeletedSheetDependents carries forward, on the reverse AddSheet
	// operation, every code cell that read from the sheet being deleted -
	// so that replaying this AddSheet (on undo) can re-run them and recover
	// their pre-delete values, the same way applyDeleteSheet re-runs them to
	// surface the #REF! error going forward.
	DeletedSheetDependents []grid.SheetPos

	// RenameSheet.
	Name string

	// SetSheetColor.
	Color *grid.Rgba

	// SetDataTable. nil DataTable means "remove the table at sheet_pos".
	DataTable *grid.DataTable

	// SortDataTable.
	SortRules []grid.SortRule

	// SetValidation. nil Validation means "remove validation ValidationID".
	Validation   *grid.Validation
	ValidationID string

	// SetCursorA1.
	Cursor *Cursor

	// RunCodeCell / CodeCellResult (internal follow-ups).
	ResultValue grid.CellValue
	ResultArray *grid.Array
	ResultError *grid.RunError
}
