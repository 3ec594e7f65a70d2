package grid

import "github.com/broyeztony/karlgrid/internal/contiguous2d"

// BorderLineStyle enumerates the visual weight of a border line.
type BorderLineStyle string

const (
	BorderNone   BorderLineStyle = "none"
	BorderThin   BorderLineStyle = "thin"
	BorderMedium BorderLineStyle = "medium"
	BorderThick  BorderLineStyle = "thick"
	BorderDashed BorderLineStyle = "dashed"
)

// BorderLine is one edge's style and color.
type BorderLine struct {
	Style BorderLineStyle
	Color Rgba
}

// BorderSide selects which edge of a cell a BordersUpdate touches.
type BorderSide int

const (
	BorderTop BorderSide = iota
	BorderBottomSide
	BorderLeft
	BorderRight
)

// Borders stores per-side Contiguous2D planes of BorderLine, one per table
// or sheet. A commented-out "update_override" variant was considered and
// dropped: Set always replaces the prior line for that side outright, with
// no alternate merge-by-precedence code path kept alongside it.
type Borders struct {
	Top, Bottom, Left, Right *contiguous2d.Grid[Opt[BorderLine]]
}

func NewBorders() *Borders {
	return &Borders{
		Top:    contiguous2d.New(Opt[BorderLine]{}),
		Bottom: contiguous2d.New(Opt[BorderLine]{}),
		Left:   contiguous2d.New(Opt[BorderLine]{}),
		Right:  contiguous2d.New(Opt[BorderLine]{}),
	}
}

// planeFor returns the plane for side; the live variant of update_override
// (see the type doc above).
func (b *Borders) planeFor(side BorderSide) *contiguous2d.Grid[Opt[BorderLine]] {
	switch side {
	case BorderTop:
		return b.Top
	case BorderBottomSide:
		return b.Bottom
	case BorderLeft:
		return b.Left
	default:
		return b.Right
	}
}

// Set replaces the border line for side across rect.
func (b *Borders) Set(r Rect, side BorderSide, line BorderLine) {
	var x2, y2 *int64
	if r.Max.X != Unbounded {
		v := r.Max.X
		x2 = &v
	}
	if r.Max.Y != Unbounded {
		v := r.Max.Y
		y2 = &v
	}
	b.planeFor(side).SetRect(r.Min.X, r.Min.Y, x2, y2, Opt[BorderLine]{Valid: true, Value: line})
}

// Clear removes the border line for side across rect.
func (b *Borders) Clear(r Rect, side BorderSide) {
	var x2, y2 *int64
	if r.Max.X != Unbounded {
		v := r.Max.X
		x2 = &v
	}
	if r.Max.Y != Unbounded {
		v := r.Max.Y
		y2 = &v
	}
	b.planeFor(side).SetRect(r.Min.X, r.Min.Y, x2, y2, Opt[BorderLine]{})
}

// At returns the resolved border line for side at pos.
func (b *Borders) At(pos Pos, side BorderSide) (BorderLine, bool) {
	v := b.planeFor(side).Get(pos.X, pos.Y)
	return v.Value, v.Valid
}

// BordersUpdate is the operation payload for SetBorders.
type BordersUpdate struct {
	Rect  Rect
	Side  BorderSide
	Clear bool
	Line  BorderLine
}

func (b *Borders) Apply(u BordersUpdate) {
	if u.Clear {
		b.Clear(u.Rect, u.Side)
	} else {
		b.Set(u.Rect, u.Side, u.Line)
	}
}
