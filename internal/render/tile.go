package render

import "github.com/broyeztony/karlgrid/internal/grid"

// Tile dimensions are pinned in grid.TileWidth/TileHeight - pick a pair and
// document it - so the core and a hypothetical renderer never disagree on
// where a hash boundary falls.
const (
	TileWidth  = grid.TileWidth
	TileHeight = grid.TileHeight
)

// Cache holds the core's view of which tiles the renderer has already been
// sent, per sheet, so a transaction's dirty set can be translated into the
// minimal DirtyHashes notification.
type Cache struct {
	known map[grid.SheetID]map[grid.Pos]bool
}

func NewCache() *Cache {
	return &Cache{known: make(map[grid.SheetID]map[grid.Pos]bool)}
}

// BuildHashCells computes the current content of tile hashPos on sheet,
// reading every addressable cell in that tile's rect via DisplayValue and
// the computed (inherited) format.
func BuildHashCells(sheet *grid.Sheet, hashPos grid.Pos) HashCells {
	rect := TileRect(hashPos)
	var cells []RenderCell
	for y := rect.Min.Y; y <= rect.Max.Y; y++ {
		for x := rect.Min.X; x <= rect.Max.X; x++ {
			pos := grid.Pos{X: x, Y: y}
			v := sheet.DisplayValue(pos)
			if grid.IsBlank(v) {
				continue
			}
			cells = append(cells, RenderCell{Pos: pos, Value: v, Style: sheet.Formats.At(pos)})
		}
	}
	return HashCells{SheetID: sheet.ID, HashPos: hashPos, Cells: cells}
}

// TileRect returns the cell rectangle covered by hashPos - the inverse of
// grid.QuadrantOf, clamped so it never claims the invalid x<1 or y<1
// coordinates tile (0,0) would otherwise border on.
func TileRect(hashPos grid.Pos) grid.Rect {
	minX, minY := hashPos.X*TileWidth, hashPos.Y*TileHeight
	if minX < 1 {
		minX = 1
	}
	if minY < 1 {
		minY = 1
	}
	return grid.Rect{
		Min: grid.Pos{X: minX, Y: minY},
		Max: grid.Pos{X: hashPos.X*TileWidth + TileWidth - 1, Y: hashPos.Y*TileHeight + TileHeight - 1},
	}
}

// Remember records that hashPos on sheet has been sent to the renderer.
func (c *Cache) Remember(sheet grid.SheetID, hashPos grid.Pos) {
	tiles, ok := c.known[sheet]
	if !ok {
		tiles = make(map[grid.Pos]bool)
		c.known[sheet] = tiles
	}
	tiles[hashPos] = true
}

// Forget drops every tile recorded for sheet when a sheet is cleared or
// deleted: the renderer's cache for that sheet is invalidated wholesale.
func (c *Cache) Forget(sheet grid.SheetID) { delete(c.known, sheet) }

// DirtyHashesFrom converts a transaction's per-sheet dirty-tile set (as
// accumulated in txn.Summary.DirtyHashes) into the DirtyHashes messages to
// send, in sheet-iteration order.
func DirtyHashesFrom(dirty map[grid.SheetID]map[grid.Pos]bool) []DirtyHashes {
	out := make([]DirtyHashes, 0, len(dirty))
	for sheet, tiles := range dirty {
		hashes := make([]grid.Pos, 0, len(tiles))
		for pos := range tiles {
			hashes = append(hashes, pos)
		}
		out = append(out, DirtyHashes{SheetID: sheet, Hashes: hashes})
	}
	return out
}
