// Package grid implements the multi-sheet cell storage, spatial indices,
// and data-table model underlying the grid engine.
package grid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
)

// Unbounded is the sentinel used for an unbounded rect edge, matching the
// contiguous2d package's sentinel so the two compose without conversion.
const Unbounded int64 = math.MaxInt64

// Pos is a 1-indexed cell position. Addressable cells have X >= 1, Y >= 1.
type Pos struct {
	X, Y int64
}

func (p Pos) String() string { return fmt.Sprintf("(%d, %d)", p.X, p.Y) }

// Valid reports whether p addresses a real cell (not a sentinel/unbounded
// coordinate).
func (p Pos) Valid() bool { return p.X >= 1 && p.Y >= 1 }

// TileSize is the fixed (W, H) tile dimension shared by the core and the
// renderer. Pick a pair and document it; pinned here so both sides always
// agree.
const (
	TileWidth  int64 = 15
	TileHeight int64 = 30
)

// QuadrantOf returns the hashed-tile coordinate containing p, using
// Euclidean (floor) division so negative-free 1-indexed positions map onto
// non-negative tiles starting at (0, 0).
func QuadrantOf(p Pos) Pos {
	return Pos{X: divEuclid(p.X, TileWidth), Y: divEuclid(p.Y, TileHeight)}
}

func divEuclid(a, b int64) int64 {
	q := a / b
	if a%b < 0 {
		if b > 0 {
			q--
		} else {
			q++
		}
	}
	return q
}

// SheetID is a 128-bit identifier, stable across renames and across
// clients. Generated with crypto/rand since no UUID package appears in the
// retrieved example pack (documented in DESIGN.md as the stdlib exception).
type SheetID [16]byte

// NewSheetID returns a fresh random SheetID.
func NewSheetID() SheetID {
	var id SheetID
	_, _ = rand.Read(id[:])
	return id
}

func (id SheetID) String() string { return hex.EncodeToString(id[:]) }

// IsZero reports whether id is the zero value (used as "no sheet").
func (id SheetID) IsZero() bool { return id == SheetID{} }

// SheetPos adjoins a SheetID to a Pos.
type SheetPos struct {
	Sheet SheetID
	Pos   Pos
}

func (sp SheetPos) String() string { return fmt.Sprintf("%s!%s", sp.Sheet, sp.Pos) }
