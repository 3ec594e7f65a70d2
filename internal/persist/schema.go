// Package persist reads and writes the on-disk checkpoint format for a
// grid.Grid: a single JSON document, versioned so that files written by an
// older build still load across schema migrations.
//
// Grounded on original_source/quadratic-core/src/grid/file/v1_8/schema.rs
// and v1_9/schema.rs's type-aliasing pattern (each version's schema mostly
// re-exports the prior version's types, overriding only what changed) and
// on v1_5.rs's SheetBuilder-style upgrade path from a flat per-cell layout
// to the RLE plane layout current versions use.
package persist

import "github.com/broyeztony/karlgrid/internal/grid"

// CurrentVersion is the version tag written by Save and understood without
// migration by Decode.
const CurrentVersion = "1.10"

// Document is the root of a saved checkpoint.
type Document struct {
	Version string        `json:"version"`
	Sheets  []SheetSchema `json:"sheets"`
}

// RectSchema is a JSON-friendly grid.Rect: Max is nil on an unbounded edge.
type RectSchema struct {
	X1 int64  `json:"x1"`
	Y1 int64  `json:"y1"`
	X2 *int64 `json:"x2,omitempty"`
	Y2 *int64 `json:"y2,omitempty"`
}

// RectValue pairs a rectangle with the non-default value covering it, one
// per formatting-plane block (the JSON shape of contiguous2d.BlockRect).
type RectValue[T any] struct {
	Rect  RectSchema `json:"rect"`
	Value T          `json:"value"`
}

// RgbaSchema mirrors grid.Rgba field-for-field.
type RgbaSchema struct{ R, G, B, A uint8 }

// NumericFormatSchema mirrors grid.NumericFormat field-for-field.
type NumericFormatSchema struct {
	Kind           string `json:"kind"`
	CurrencySymbol string `json:"currency_symbol,omitempty"`
}

// FormatPlanesSchema is the JSON shape of a grid.SheetFormatting: one block
// list per attribute, omitted entirely when the plane is all-default.
type FormatPlanesSchema struct {
	Align          []RectValue[string]              `json:"align,omitempty"`
	VerticalAlign  []RectValue[string]              `json:"vertical_align,omitempty"`
	Wrap           []RectValue[bool]                `json:"wrap,omitempty"`
	NumericFormat  []RectValue[NumericFormatSchema]  `json:"numeric_format,omitempty"`
	NumericDecimal []RectValue[int]                  `json:"numeric_decimal,omitempty"`
	NumericCommas  []RectValue[bool]                 `json:"numeric_commas,omitempty"`
	Bold           []RectValue[bool]                 `json:"bold,omitempty"`
	Italic         []RectValue[bool]                 `json:"italic,omitempty"`
	TextColor      []RectValue[RgbaSchema]           `json:"text_color,omitempty"`
	FillColor      []RectValue[RgbaSchema]           `json:"fill_color,omitempty"`
	DateTimeFormat []RectValue[string]               `json:"date_time_format,omitempty"`
	Underline      []RectValue[bool]                 `json:"underline,omitempty"`
	StrikeThrough  []RectValue[bool]                 `json:"strike_through,omitempty"`
	FontSize       []RectValue[int]                  `json:"font_size,omitempty"`
}

// BorderSideSchema is one side's non-default border-line blocks.
type BorderSideSchema struct {
	Style string     `json:"style"`
	Color RgbaSchema `json:"color"`
}

type BordersSchema struct {
	Top    []RectValue[BorderSideSchema] `json:"top,omitempty"`
	Bottom []RectValue[BorderSideSchema] `json:"bottom,omitempty"`
	Left   []RectValue[BorderSideSchema] `json:"left,omitempty"`
	Right  []RectValue[BorderSideSchema] `json:"right,omitempty"`
}

// CellValueSchema is the on-disk tagged union for grid.CellValue, modeled
// after v1_8::CellValueSchema's layout (a kind tag plus the fields needed
// for that kind, unused fields omitted).
type CellValueSchema struct {
	Kind     string `json:"kind"`
	Text     string `json:"text,omitempty"`
	Number   string `json:"number,omitempty"` // big.Rat.RatString()
	Bool     bool   `json:"bool,omitempty"`
	UnixNano int64  `json:"unix_nano,omitempty"`
	Language string `json:"language,omitempty"`
	ErrKind  string `json:"err_kind,omitempty"`
	Source   string `json:"source,omitempty"`
	Table    string `json:"table,omitempty"`
}

// CellEntrySchema is one raw (non-table) cell value.
type CellEntrySchema struct {
	X     int64           `json:"x"`
	Y     int64           `json:"y"`
	Value CellValueSchema `json:"v"`
}

// ArraySchema is the JSON shape of a grid.Array.
type ArraySchema struct {
	Width  int               `json:"w"`
	Height int               `json:"h"`
	Values []CellValueSchema `json:"values"`
}

type ColumnHeaderSchema struct {
	Name       CellValueSchema `json:"name"`
	Display    bool            `json:"display"`
	ValueIndex uint32          `json:"value_index"`
}

type SortRuleSchema struct {
	ColumnIndex int    `json:"column_index"`
	Direction   string `json:"direction"`
}

type RunErrorSchema struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type SheetRectSchema struct {
	Sheet string     `json:"sheet"`
	Rect  RectSchema `json:"rect"`
}

// CodeRunSchema is the DataTableKindSchema::CodeRun variant, field-matched
// to v1_9::CodeRunSchema (language added in 1.9; a file that lacks it
// decodes with an empty Language, since no migration step fills it in).
type CodeRunSchema struct {
	Language      string            `json:"language"`
	Code          string            `json:"code"`
	Stdout        string            `json:"std_out,omitempty"`
	Stderr        string            `json:"std_err,omitempty"`
	CellsAccessed []SheetRectSchema `json:"cells_accessed,omitempty"`
	Error         *RunErrorSchema   `json:"error,omitempty"`
	ReturnType    string            `json:"return_type,omitempty"`
	LineNumber    int               `json:"line_number,omitempty"`
}

// ImportSchema is the DataTableKindSchema::Import variant.
type ImportSchema struct {
	SourceName string `json:"source_name"`
}

type DataTableSchema struct {
	Anchor           RectSchema           `json:"anchor"` // X1,Y1 used; X2/Y2 unused
	Name             string               `json:"name"`
	Kind             string               `json:"kind"` // "CodeRun" | "Import"
	CodeRun          *CodeRunSchema       `json:"code_run,omitempty"`
	Import           *ImportSchema        `json:"import,omitempty"`
	Value            ArraySchema          `json:"value"`
	HeaderIsFirstRow bool                 `json:"header_is_first_row"`
	ShowName         bool                 `json:"show_name"`
	ShowColumns      bool                 `json:"show_columns"`
	Columns          []ColumnHeaderSchema `json:"columns,omitempty"`
	Sort             []SortRuleSchema     `json:"sort,omitempty"`
	DisplayBuffer    []uint64             `json:"display_buffer,omitempty"`
	AlternatingColors bool                `json:"alternating_colors"`
	ChartOutput      *[2]int              `json:"chart_output,omitempty"`
	LastModifiedUnix int64                `json:"last_modified_unix"`
}

type ValidationRuleSchema struct {
	Kind       string            `json:"kind"`
	ListValues []CellValueSchema `json:"list_values,omitempty"`
	SourceRect *RectSchema       `json:"source_rect,omitempty"`
	Min        string            `json:"min,omitempty"`
	Max        string            `json:"max,omitempty"`
}

type ValidationSchema struct {
	ID      string               `json:"id"`
	Rect    RectSchema           `json:"rect"`
	Rule    ValidationRuleSchema `json:"rule"`
	Message string               `json:"message,omitempty"`
	ShowUI  bool                 `json:"show_ui"`
}

type SheetSchema struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color *RgbaSchema `json:"color,omitempty"`
	Order string `json:"order"`

	ColumnWidths map[int64]float64 `json:"column_widths,omitempty"`
	RowHeights   map[int64]float64 `json:"row_heights,omitempty"`

	Cells      []CellEntrySchema `json:"cells,omitempty"`
	DataTables []DataTableSchema `json:"data_tables,omitempty"`
	Merges     []RectSchema      `json:"merges,omitempty"`
	Validations []ValidationSchema `json:"validations,omitempty"`

	Formats FormatPlanesSchema `json:"formats"`
	Borders BordersSchema      `json:"borders"`
}

func rectSchema(r grid.Rect) RectSchema {
	out := RectSchema{X1: r.Min.X, Y1: r.Min.Y}
	if r.Max.X != grid.Unbounded {
		v := r.Max.X
		out.X2 = &v
	}
	if r.Max.Y != grid.Unbounded {
		v := r.Max.Y
		out.Y2 = &v
	}
	return out
}

func (r RectSchema) toRect() grid.Rect {
	out := grid.Rect{Min: grid.Pos{X: r.X1, Y: r.Y1}, Max: grid.Pos{X: grid.Unbounded, Y: grid.Unbounded}}
	if r.X2 != nil {
		out.Max.X = *r.X2
	}
	if r.Y2 != nil {
		out.Max.Y = *r.Y2
	}
	return out
}
