package grid

// MergedCells tracks the sheet's merged-cell ranges: every cell within a
// merge maps to the merge's anchor (top-left) rect.
type MergedCells struct {
	// byAnchor maps the anchor Pos to the merge's full rect.
	byAnchor map[Pos]Rect
	// owner maps every covered Pos (including the anchor) to its anchor.
	owner map[Pos]Pos
}

func NewMergedCells() *MergedCells {
	return &MergedCells{byAnchor: make(map[Pos]Rect), owner: make(map[Pos]Pos)}
}

// Merge records rect as a merge anchored at rect.Min. Returns false if any
// cell in rect already belongs to another merge.
func (m *MergedCells) Merge(rect Rect) bool {
	if rect.Max.X == Unbounded || rect.Max.Y == Unbounded {
		return false
	}
	for x := rect.Min.X; x <= rect.Max.X; x++ {
		for y := rect.Min.Y; y <= rect.Max.Y; y++ {
			if _, ok := m.owner[Pos{X: x, Y: y}]; ok {
				return false
			}
		}
	}
	anchor := rect.Min
	m.byAnchor[anchor] = rect
	for x := rect.Min.X; x <= rect.Max.X; x++ {
		for y := rect.Min.Y; y <= rect.Max.Y; y++ {
			m.owner[Pos{X: x, Y: y}] = anchor
		}
	}
	return true
}

// Unmerge removes the merge anchored at anchor, if any.
func (m *MergedCells) Unmerge(anchor Pos) {
	rect, ok := m.byAnchor[anchor]
	if !ok {
		return
	}
	delete(m.byAnchor, anchor)
	for x := rect.Min.X; x <= rect.Max.X; x++ {
		for y := rect.Min.Y; y <= rect.Max.Y; y++ {
			delete(m.owner, Pos{X: x, Y: y})
		}
	}
}

// Rects returns every merge rect, for serialization (internal/persist).
func (m *MergedCells) Rects() []Rect {
	out := make([]Rect, 0, len(m.byAnchor))
	for _, r := range m.byAnchor {
		out = append(out, r)
	}
	return out
}

// AnchorOf returns the anchor of the merge covering pos, and whether pos is
// merged at all.
func (m *MergedCells) AnchorOf(pos Pos) (Pos, bool) {
	a, ok := m.owner[pos]
	return a, ok
}

// RectAt returns the merge rect anchored at anchor.
func (m *MergedCells) RectAt(anchor Pos) (Rect, bool) {
	r, ok := m.byAnchor[anchor]
	return r, ok
}
