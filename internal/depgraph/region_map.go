// Package depgraph implements the bidirectional dependency graph between
// cell positions and the reader ranges that reference them.
//
// Quadratic's dependency graph indexes reader envelopes with an R-tree
// (rstar). No R-tree (or general spatial-index) library appears anywhere
// in the example pack, so SheetRegionMap instead buckets entries into
// fixed-width column stripes, with separate small lists for the rare
// entries that are unbounded on one or both axes. Every lookup still
// avoids a full scan of all associations; see DESIGN.md for the tradeoff.
package depgraph

import "github.com/broyeztony/karlgrid/internal/grid"

const stripeWidth int64 = 256

type entry struct {
	pos  grid.SheetPos
	rect grid.Rect
}

// SheetRegionMap is a bidirectional map between positions (writers) and
// rectangular regions (reader ranges). A region map is scoped to the sheet
// being READ; the associated position is a full SheetPos (not a bare Pos)
// because the code cell doing the reading may live on a different sheet
// than the one it reads, and two code cells on different sheets can
// otherwise collide on the same local Pos.
type SheetRegionMap struct {
	// boundedStripes buckets fully-finite rects by every column stripe
	// they span.
	boundedStripes map[int64][]entry
	// colUnbounded holds entries whose column range is unbounded (e.g. a
	// row range "10:50"), bucketed by row stripe.
	colUnbounded map[int64][]entry
	// rowUnbounded holds entries whose row range is unbounded (e.g. a
	// column range "C:E"), bucketed by column stripe.
	rowUnbounded map[int64][]entry
	// allEntries holds entries unbounded on both axes (e.g. "*").
	allEntries []entry

	posToRegions map[grid.SheetPos][]grid.Rect
}

func NewSheetRegionMap() *SheetRegionMap {
	return &SheetRegionMap{
		boundedStripes: make(map[int64][]entry),
		colUnbounded:   make(map[int64][]entry),
		rowUnbounded:   make(map[int64][]entry),
		posToRegions:   make(map[grid.SheetPos][]grid.Rect),
	}
}

func stripeOf(v int64) int64 { return v / stripeWidth }

func (m *SheetRegionMap) insert(pos grid.SheetPos, region grid.Rect) {
	colBounded := region.Max.X != grid.Unbounded
	rowBounded := region.Max.Y != grid.Unbounded
	e := entry{pos: pos, rect: region}
	switch {
	case colBounded && rowBounded:
		s1, s2 := stripeOf(region.Min.X), stripeOf(region.Max.X)
		for s := s1; s <= s2; s++ {
			m.boundedStripes[s] = append(m.boundedStripes[s], e)
		}
	case colBounded && !rowBounded:
		s1, s2 := stripeOf(region.Min.X), stripeOf(region.Max.X)
		for s := s1; s <= s2; s++ {
			m.rowUnbounded[s] = append(m.rowUnbounded[s], e)
		}
	case !colBounded && rowBounded:
		s1, s2 := stripeOf(region.Min.Y), stripeOf(region.Max.Y)
		for s := s1; s <= s2; s++ {
			m.colUnbounded[s] = append(m.colUnbounded[s], e)
		}
	default:
		m.allEntries = append(m.allEntries, e)
	}
	m.posToRegions[pos] = append(m.posToRegions[pos], region)
}

// SetRegionsForPos replaces all associations originating at pos, called
// once per code-cell execution with the runner's cells_accessed output.
func (m *SheetRegionMap) SetRegionsForPos(pos grid.SheetPos, regions []grid.Rect) {
	m.RemovePos(pos)
	for _, r := range regions {
		m.insert(pos, r)
	}
}

// RemovePos removes all associations with pos, called when a code cell
// is deleted.
func (m *SheetRegionMap) RemovePos(pos grid.SheetPos) {
	regions, ok := m.posToRegions[pos]
	if !ok {
		return
	}
	delete(m.posToRegions, pos)
	for _, region := range regions {
		m.removeEntry(pos, region)
	}
}

func (m *SheetRegionMap) removeEntry(pos grid.SheetPos, region grid.Rect) {
	colBounded := region.Max.X != grid.Unbounded
	rowBounded := region.Max.Y != grid.Unbounded
	remove := func(bucket []entry) []entry {
		out := bucket[:0]
		for _, e := range bucket {
			if e.pos == pos && e.rect == region {
				continue
			}
			out = append(out, e)
		}
		return out
	}
	switch {
	case colBounded && rowBounded:
		s1, s2 := stripeOf(region.Min.X), stripeOf(region.Max.X)
		for s := s1; s <= s2; s++ {
			m.boundedStripes[s] = remove(m.boundedStripes[s])
		}
	case colBounded && !rowBounded:
		s1, s2 := stripeOf(region.Min.X), stripeOf(region.Max.X)
		for s := s1; s <= s2; s++ {
			m.rowUnbounded[s] = remove(m.rowUnbounded[s])
		}
	case !colBounded && rowBounded:
		s1, s2 := stripeOf(region.Min.Y), stripeOf(region.Max.Y)
		for s := s1; s <= s2; s++ {
			m.colUnbounded[s] = remove(m.colUnbounded[s])
		}
	default:
		m.allEntries = remove(m.allEntries)
	}
}

// GetPositionsAssociatedWithRegion returns every position whose associated
// region intersects region.
func (m *SheetRegionMap) GetPositionsAssociatedWithRegion(region grid.Rect) []grid.SheetPos {
	seen := make(map[grid.SheetPos]bool)
	var out []grid.SheetPos
	add := func(e entry) {
		if e.rect.Intersects(region) && !seen[e.pos] {
			seen[e.pos] = true
			out = append(out, e.pos)
		}
	}

	if region.Max.X != grid.Unbounded {
		s1, s2 := stripeOf(region.Min.X), stripeOf(region.Max.X)
		for s := s1; s <= s2; s++ {
			for _, e := range m.boundedStripes[s] {
				add(e)
			}
			for _, e := range m.rowUnbounded[s] {
				add(e)
			}
		}
	} else {
		for _, bucket := range m.boundedStripes {
			for _, e := range bucket {
				add(e)
			}
		}
		for _, bucket := range m.rowUnbounded {
			for _, e := range bucket {
				add(e)
			}
		}
	}

	if region.Max.Y != grid.Unbounded {
		s1, s2 := stripeOf(region.Min.Y), stripeOf(region.Max.Y)
		for s := s1; s <= s2; s++ {
			for _, e := range m.colUnbounded[s] {
				add(e)
			}
		}
	} else {
		for _, bucket := range m.colUnbounded {
			for _, e := range bucket {
				add(e)
			}
		}
	}

	for _, e := range m.allEntries {
		add(e)
	}
	return out
}

// RegionsForPos returns the regions currently associated with pos.
func (m *SheetRegionMap) RegionsForPos(pos grid.SheetPos) []grid.Rect {
	return append([]grid.Rect(nil), m.posToRegions[pos]...)
}
