package grid

import "github.com/broyeztony/karlgrid/internal/contiguous2d"

// Opt is "inherit default" (Valid=false) vs. an explicit T, used as the
// element type of every Contiguous2D formatting plane: None at a position
// means inherit default.
type Opt[T comparable] struct {
	Valid bool
	Value T
}

func Set[T comparable](v T) Opt[T] { return Opt[T]{Valid: true, Value: v} }

type Alignment string

const (
	AlignGeneral Alignment = "general"
	AlignLeft    Alignment = "left"
	AlignCenter  Alignment = "center"
	AlignRight   Alignment = "right"
)

type VerticalAlign string

const (
	VAlignTop    VerticalAlign = "top"
	VAlignMiddle VerticalAlign = "middle"
	VAlignBottom VerticalAlign = "bottom"
)

type NumericFormatKind string

const (
	NumberFormatNumber     NumericFormatKind = "NUMBER"
	NumberFormatCurrency   NumericFormatKind = "CURRENCY"
	NumberFormatPercentage NumericFormatKind = "PERCENTAGE"
	NumberFormatScientific NumericFormatKind = "SCIENTIFIC"
)

type NumericFormat struct {
	Kind           NumericFormatKind
	CurrencySymbol string
}

// Rgba is a packed 32-bit color, a simple value type for style attributes.
type Rgba struct{ R, G, B, A uint8 }

// SheetFormatting is a record of per-attribute Contiguous2D planes, each
// holding Opt[T] so that an unset position inherits the sheet/global
// default.
type SheetFormatting struct {
	Align          *contiguous2d.Grid[Opt[Alignment]]
	VerticalAlign  *contiguous2d.Grid[Opt[VerticalAlign]]
	Wrap           *contiguous2d.Grid[Opt[bool]]
	NumericFormat  *contiguous2d.Grid[Opt[NumericFormat]]
	NumericDecimal *contiguous2d.Grid[Opt[int]]
	NumericCommas  *contiguous2d.Grid[Opt[bool]]
	Bold           *contiguous2d.Grid[Opt[bool]]
	Italic         *contiguous2d.Grid[Opt[bool]]
	TextColor      *contiguous2d.Grid[Opt[Rgba]]
	FillColor      *contiguous2d.Grid[Opt[Rgba]]
	DateTimeFormat *contiguous2d.Grid[Opt[string]]
	Underline      *contiguous2d.Grid[Opt[bool]]
	StrikeThrough  *contiguous2d.Grid[Opt[bool]]
	FontSize       *contiguous2d.Grid[Opt[int]]
}

func NewSheetFormatting() *SheetFormatting {
	return &SheetFormatting{
		Align:          contiguous2d.New(Opt[Alignment]{}),
		VerticalAlign:  contiguous2d.New(Opt[VerticalAlign]{}),
		Wrap:           contiguous2d.New(Opt[bool]{}),
		NumericFormat:  contiguous2d.New(Opt[NumericFormat]{}),
		NumericDecimal: contiguous2d.New(Opt[int]{}),
		NumericCommas:  contiguous2d.New(Opt[bool]{}),
		Bold:           contiguous2d.New(Opt[bool]{}),
		Italic:         contiguous2d.New(Opt[bool]{}),
		TextColor:      contiguous2d.New(Opt[Rgba]{}),
		FillColor:      contiguous2d.New(Opt[Rgba]{}),
		DateTimeFormat: contiguous2d.New(Opt[string]{}),
		Underline:      contiguous2d.New(Opt[bool]{}),
		StrikeThrough:  contiguous2d.New(Opt[bool]{}),
		FontSize:       contiguous2d.New(Opt[int]{}),
	}
}

// CellFormat is the resolved (inherited) format at a single position,
// computed on demand for the render protocol: style is the computed
// (inherited) format at that position.
type CellFormat struct {
	Align          Alignment
	VerticalAlign  VerticalAlign
	Wrap           bool
	NumericFormat  NumericFormat
	NumericDecimal int
	NumericCommas  bool
	Bold           bool
	Italic         bool
	TextColor      Rgba
	FillColor      Rgba
	DateTimeFormat string
	Underline      bool
	StrikeThrough  bool
	FontSize       int
}

// DefaultCellFormat is the format used when every plane is unset.
func DefaultCellFormat() CellFormat {
	return CellFormat{Align: AlignGeneral, VerticalAlign: VAlignBottom, FontSize: 13}
}

// At resolves the format at pos, falling back to defaults for unset planes.
func (f *SheetFormatting) At(pos Pos) CellFormat {
	out := DefaultCellFormat()
	if v := f.Align.Get(pos.X, pos.Y); v.Valid {
		out.Align = v.Value
	}
	if v := f.VerticalAlign.Get(pos.X, pos.Y); v.Valid {
		out.VerticalAlign = v.Value
	}
	if v := f.Wrap.Get(pos.X, pos.Y); v.Valid {
		out.Wrap = v.Value
	}
	if v := f.NumericFormat.Get(pos.X, pos.Y); v.Valid {
		out.NumericFormat = v.Value
	}
	if v := f.NumericDecimal.Get(pos.X, pos.Y); v.Valid {
		out.NumericDecimal = v.Value
	}
	if v := f.NumericCommas.Get(pos.X, pos.Y); v.Valid {
		out.NumericCommas = v.Value
	}
	if v := f.Bold.Get(pos.X, pos.Y); v.Valid {
		out.Bold = v.Value
	}
	if v := f.Italic.Get(pos.X, pos.Y); v.Valid {
		out.Italic = v.Value
	}
	if v := f.TextColor.Get(pos.X, pos.Y); v.Valid {
		out.TextColor = v.Value
	}
	if v := f.FillColor.Get(pos.X, pos.Y); v.Valid {
		out.FillColor = v.Value
	}
	if v := f.DateTimeFormat.Get(pos.X, pos.Y); v.Valid {
		out.DateTimeFormat = v.Value
	}
	if v := f.Underline.Get(pos.X, pos.Y); v.Valid {
		out.Underline = v.Value
	}
	if v := f.StrikeThrough.Get(pos.X, pos.Y); v.Valid {
		out.StrikeThrough = v.Value
	}
	if v := f.FontSize.Get(pos.X, pos.Y); v.Valid {
		out.FontSize = v.Value
	}
	return out
}

// Change distinguishes "no change" / "clear" / "set" for one attribute in a
// SheetFormatUpdate.
type Change[T comparable] struct {
	Present bool // outer Option: false = no change at all
	Clear   bool // inner Option(None): true = clear to "inherit"
	Value   T    // inner Option(Some): the new value, when !Clear
}

// SheetFormatUpdate carries per-attribute Contiguous2D<Change[T]> planes and
// merges atomically into a SheetFormatting.
type SheetFormatUpdate struct {
	Align          *contiguous2d.Grid[Change[Alignment]]
	VerticalAlign  *contiguous2d.Grid[Change[VerticalAlign]]
	Wrap           *contiguous2d.Grid[Change[bool]]
	NumericFormat  *contiguous2d.Grid[Change[NumericFormat]]
	NumericDecimal *contiguous2d.Grid[Change[int]]
	NumericCommas  *contiguous2d.Grid[Change[bool]]
	Bold           *contiguous2d.Grid[Change[bool]]
	Italic         *contiguous2d.Grid[Change[bool]]
	TextColor      *contiguous2d.Grid[Change[Rgba]]
	FillColor      *contiguous2d.Grid[Change[Rgba]]
	DateTimeFormat *contiguous2d.Grid[Change[string]]
	Underline      *contiguous2d.Grid[Change[bool]]
	StrikeThrough  *contiguous2d.Grid[Change[bool]]
	FontSize       *contiguous2d.Grid[Change[int]]
}

func NewSheetFormatUpdate() *SheetFormatUpdate {
	return &SheetFormatUpdate{
		Align:          contiguous2d.New(Change[Alignment]{}),
		VerticalAlign:  contiguous2d.New(Change[VerticalAlign]{}),
		Wrap:           contiguous2d.New(Change[bool]{}),
		NumericFormat:  contiguous2d.New(Change[NumericFormat]{}),
		NumericDecimal: contiguous2d.New(Change[int]{}),
		NumericCommas:  contiguous2d.New(Change[bool]{}),
		Bold:           contiguous2d.New(Change[bool]{}),
		Italic:         contiguous2d.New(Change[bool]{}),
		TextColor:      contiguous2d.New(Change[Rgba]{}),
		FillColor:      contiguous2d.New(Change[Rgba]{}),
		DateTimeFormat: contiguous2d.New(Change[string]{}),
		Underline:      contiguous2d.New(Change[bool]{}),
		StrikeThrough:  contiguous2d.New(Change[bool]{}),
		FontSize:       contiguous2d.New(Change[int]{}),
	}
}

func applyChange[T comparable](base *contiguous2d.Grid[Opt[T]], update *contiguous2d.Grid[Change[T]], r Rect) *contiguous2d.Grid[Opt[T]] {
	blocks := update.NondefaultRectsInRect(contiguous2d.Rect{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y})
	for _, b := range blocks {
		if !b.Value.Present {
			continue
		}
		var x2, y2 *int64
		if b.Rect.X2 != contiguous2d.Unbounded {
			v := b.Rect.X2
			x2 = &v
		}
		if b.Rect.Y2 != contiguous2d.Unbounded {
			v := b.Rect.Y2
			y2 = &v
		}
		if b.Value.Clear {
			base.SetRect(b.Rect.X1, b.Rect.Y1, x2, y2, Opt[T]{})
		} else {
			base.SetRect(b.Rect.X1, b.Rect.Y1, x2, y2, Opt[T]{Valid: true, Value: b.Value.Value})
		}
	}
	return base
}

// MergeInto atomically applies every present change in u onto f, restricted
// to bounds (pass an unbounded Rect to apply everywhere the update touches).
func (u *SheetFormatUpdate) MergeInto(f *SheetFormatting, bounds Rect) {
	applyChange(f.Align, u.Align, bounds)
	applyChange(f.VerticalAlign, u.VerticalAlign, bounds)
	applyChange(f.Wrap, u.Wrap, bounds)
	applyChange(f.NumericFormat, u.NumericFormat, bounds)
	applyChange(f.NumericDecimal, u.NumericDecimal, bounds)
	applyChange(f.NumericCommas, u.NumericCommas, bounds)
	applyChange(f.Bold, u.Bold, bounds)
	applyChange(f.Italic, u.Italic, bounds)
	applyChange(f.TextColor, u.TextColor, bounds)
	applyChange(f.FillColor, u.FillColor, bounds)
	applyChange(f.DateTimeFormat, u.DateTimeFormat, bounds)
	applyChange(f.Underline, u.Underline, bounds)
	applyChange(f.StrikeThrough, u.StrikeThrough, bounds)
	applyChange(f.FontSize, u.FontSize, bounds)
}
