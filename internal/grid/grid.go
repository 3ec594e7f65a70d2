package grid

import (
	"fmt"
	"strconv"
)

// Grid is the top-level container: every sheet, keyed by its stable
// SheetID, plus the display order and the name index used to resolve A1
// sheet-qualified references.
type Grid struct {
	sheets map[SheetID]*Sheet
	order  []SheetID
	names  map[string]SheetID // case-sensitive name -> id, for uniqueness + lookup
}

// NewGrid returns an empty grid with a single default sheet named "Sheet1",
// matching spreadsheet/sheet.go's convention of never starting a document
// with zero sheets.
func NewGrid() *Grid {
	g := &Grid{
		sheets: make(map[SheetID]*Sheet),
		names:  make(map[string]SheetID),
	}
	s := NewSheet("Sheet1")
	g.sheets[s.ID] = s
	g.order = append(g.order, s.ID)
	g.names[s.Name] = s.ID
	s.Order = orderKey(0)
	return g
}

// NewEmptyGrid returns a grid with no sheets at all, for callers (e.g.
// internal/persist) that restore every sheet themselves, including its
// original SheetID, rather than starting from the auto-seeded "Sheet1".
func NewEmptyGrid() *Grid {
	return &Grid{
		sheets: make(map[SheetID]*Sheet),
		names:  make(map[string]SheetID),
	}
}

func orderKey(i int) string { return strconv.Itoa(i) }

// Sheet returns the sheet with the given id, or nil if none.
func (g *Grid) Sheet(id SheetID) *Sheet { return g.sheets[id] }

// SheetIDByName resolves a sheet name to its id.
func (g *Grid) SheetIDByName(name string) (SheetID, bool) {
	id, ok := g.names[name]
	return id, ok
}

// SheetNames returns every sheet name in display order.
func (g *Grid) SheetNames() []string {
	out := make([]string, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.sheets[id].Name)
	}
	return out
}

// Order returns sheet ids in display order.
func (g *Grid) Order() []SheetID { return append([]SheetID(nil), g.order...) }

// AddSheet creates a new sheet named name (or an auto-generated unique name
// if name is empty), inserted at position index (clamped to the valid
// range, appended if index < 0 or beyond the end).
func (g *Grid) AddSheet(name string, index int) (*Sheet, error) {
	if name == "" {
		name = g.nextDefaultName()
	} else if _, exists := g.names[name]; exists {
		return nil, fmt.Errorf("grid: sheet name %q already exists", name)
	}
	s := NewSheet(name)
	g.sheets[s.ID] = s
	g.names[s.Name] = s.ID
	if index < 0 || index > len(g.order) {
		index = len(g.order)
	}
	g.order = append(g.order, SheetID{})
	copy(g.order[index+1:], g.order[index:])
	g.order[index] = s.ID
	g.renumberOrder()
	return s, nil
}

// ReinsertSheet registers an already-constructed sheet (e.g. one just
// removed by DeleteSheet) back into the grid at index, preserving its ID.
// Used by the transaction pipeline's undo/redo and multiplayer rebase paths,
// which need the exact prior SheetID restored rather than a fresh one.
func (g *Grid) ReinsertSheet(s *Sheet, index int) error {
	if _, exists := g.sheets[s.ID]; exists {
		return fmt.Errorf("grid: sheet already present")
	}
	if existing, exists := g.names[s.Name]; exists && existing != s.ID {
		return fmt.Errorf("grid: sheet name %q already exists", s.Name)
	}
	g.sheets[s.ID] = s
	g.names[s.Name] = s.ID
	if index < 0 || index > len(g.order) {
		index = len(g.order)
	}
	g.order = append(g.order, SheetID{})
	copy(g.order[index+1:], g.order[index:])
	g.order[index] = s.ID
	g.renumberOrder()
	return nil
}

func (g *Grid) nextDefaultName() string {
	for i := 1; ; i++ {
		name := fmt.Sprintf("Sheet%d", i)
		if _, exists := g.names[name]; !exists {
			return name
		}
	}
}

// DeleteSheet removes a sheet. Deleting the last remaining sheet is
// rejected: a grid always has at least one sheet.
func (g *Grid) DeleteSheet(id SheetID) (*Sheet, error) {
	s, ok := g.sheets[id]
	if !ok {
		return nil, fmt.Errorf("grid: no such sheet")
	}
	if len(g.order) <= 1 {
		return nil, fmt.Errorf("grid: cannot delete the last sheet")
	}
	delete(g.sheets, id)
	delete(g.names, s.Name)
	for i, sid := range g.order {
		if sid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	g.renumberOrder()
	return s, nil
}

// RenameSheet changes a sheet's display name, enforcing uniqueness.
func (g *Grid) RenameSheet(id SheetID, newName string) error {
	s, ok := g.sheets[id]
	if !ok {
		return fmt.Errorf("grid: no such sheet")
	}
	newName = sanitizeSheetName(newName)
	if newName == "" {
		return fmt.Errorf("grid: sheet name cannot be empty")
	}
	if existing, exists := g.names[newName]; exists && existing != id {
		return fmt.Errorf("grid: sheet name %q already exists", newName)
	}
	delete(g.names, s.Name)
	s.Name = newName
	g.names[newName] = id
	return nil
}

// SetSheetColor sets the tab color shown for id.
func (g *Grid) SetSheetColor(id SheetID, color *Rgba) error {
	s, ok := g.sheets[id]
	if !ok {
		return fmt.Errorf("grid: no such sheet")
	}
	s.Color = color
	return nil
}

// MoveSheet repositions id to index in the display order.
func (g *Grid) MoveSheet(id SheetID, index int) error {
	if _, ok := g.sheets[id]; !ok {
		return fmt.Errorf("grid: no such sheet")
	}
	cur := -1
	for i, sid := range g.order {
		if sid == id {
			cur = i
			break
		}
	}
	if cur < 0 {
		return fmt.Errorf("grid: sheet not in order")
	}
	g.order = append(g.order[:cur], g.order[cur+1:]...)
	if index < 0 || index > len(g.order) {
		index = len(g.order)
	}
	g.order = append(g.order, SheetID{})
	copy(g.order[index+1:], g.order[index:])
	g.order[index] = id
	g.renumberOrder()
	return nil
}

func (g *Grid) renumberOrder() {
	for i, id := range g.order {
		g.sheets[id].Order = orderKey(i)
	}
}

// IndexOf returns id's position in the display order, or -1 if absent.
func (g *Grid) IndexOf(id SheetID) int {
	for i, sid := range g.order {
		if sid == id {
			return i
		}
	}
	return -1
}

// Sheets returns every sheet in display order.
func (g *Grid) Sheets() []*Sheet {
	out := make([]*Sheet, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.sheets[id])
	}
	return out
}
