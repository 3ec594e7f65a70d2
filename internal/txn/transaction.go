package txn

import "github.com/broyeztony/karlgrid/internal/grid"

// Summary accumulates the per-kind dirty sets a transaction produces, for
// the render protocol's DirtyHashes notification. The pipeline fills in
// DirtyHashes only; the other maps are allocated and left empty.
type Summary struct {
	DirtyHashes map[grid.SheetID]map[grid.Pos]bool // hashed tile positions
	HTMLCells   map[grid.SheetID][]grid.Pos
	FillCells   map[grid.SheetID][]grid.Pos
	BorderCells map[grid.SheetID][]grid.Pos
	Validations map[grid.SheetID][]grid.Pos
}

func newSummary() *Summary {
	return &Summary{
		DirtyHashes: make(map[grid.SheetID]map[grid.Pos]bool),
		HTMLCells:   make(map[grid.SheetID][]grid.Pos),
		FillCells:   make(map[grid.SheetID][]grid.Pos),
		BorderCells: make(map[grid.SheetID][]grid.Pos),
		Validations: make(map[grid.SheetID][]grid.Pos),
	}
}

// markDirtyRect records every tile touched by rect as dirty, for the
// renderer's hashed-tile cache. A rect with an unbounded edge (as marked by
// column/row inserts, deletes, moves and resizes) records no tile at all.
func (s *Summary) markDirtyRect(sheet grid.SheetID, r grid.Rect) {
	if r.Max.X == grid.Unbounded || r.Max.Y == grid.Unbounded {
		return
	}
	tiles, ok := s.DirtyHashes[sheet]
	if !ok {
		tiles = make(map[grid.Pos]bool)
		s.DirtyHashes[sheet] = tiles
	}
	minTile := grid.QuadrantOf(r.Min)
	maxTile := grid.QuadrantOf(r.Max)
	for tx := minTile.X; tx <= maxTile.X; tx++ {
		for ty := minTile.Y; ty <= maxTile.Y; ty++ {
			tiles[grid.Pos{X: tx, Y: ty}] = true
		}
	}
}

// PendingTransaction is the in-flight transaction state threaded through the
// apply/compute/spill/bounds/commit pipeline.
type PendingTransaction struct {
	ID              ID
	Cursor          *Cursor
	TransactionType TransactionType

	operations []Operation // forward queue (front = next to apply)

	ForwardOperations []Operation
	ReverseOperations []Operation

	SheetsWithDirtyBounds map[grid.SheetID]bool
	CellsAccessed         []grid.SheetRect

	CurrentSheetPos *grid.SheetPos
	WaitingForAsync *grid.Language

	Complete bool
	Summary  *Summary
}

func newPendingTransaction(ops []Operation, txType TransactionType, cursor *Cursor) *PendingTransaction {
	return &PendingTransaction{
		ID:                    NewID(),
		Cursor:                cursor,
		TransactionType:       txType,
		operations:            append([]Operation(nil), ops...),
		SheetsWithDirtyBounds: make(map[grid.SheetID]bool),
		Summary:               newSummary(),
	}
}

func (pt *PendingTransaction) popFront() (Operation, bool) {
	if len(pt.operations) == 0 {
		return Operation{}, false
	}
	op := pt.operations[0]
	pt.operations = pt.operations[1:]
	return op, true
}

func (pt *PendingTransaction) enqueue(ops ...Operation) {
	pt.operations = append(pt.operations, ops...)
}
