package persist

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/broyeztony/karlgrid/internal/contiguous2d"
	"github.com/broyeztony/karlgrid/internal/grid"
)

var fullPlane = contiguous2d.Rect{X1: 1, Y1: 1, X2: contiguous2d.Unbounded, Y2: contiguous2d.Unbounded}

func c2dToGridRect(r contiguous2d.Rect) grid.Rect {
	out := grid.Rect{Min: grid.Pos{X: r.X1, Y: r.Y1}, Max: grid.Pos{X: grid.Unbounded, Y: grid.Unbounded}}
	if r.X2 != contiguous2d.Unbounded {
		out.Max.X = r.X2
	}
	if r.Y2 != contiguous2d.Unbounded {
		out.Max.Y = r.Y2
	}
	return out
}

// rectValues snapshots every non-default block of a formatting plane as
// JSON-ready RectValue entries, applying to to convert the plane's runtime
// value type into its on-disk schema type.
func rectValues[T comparable, O any](g *contiguous2d.Grid[grid.Opt[T]], to func(T) O) []RectValue[O] {
	blocks := g.NondefaultRectsInRect(fullPlane)
	out := make([]RectValue[O], 0, len(blocks))
	for _, b := range blocks {
		out = append(out, RectValue[O]{Rect: rectSchema(c2dToGridRect(b.Rect)), Value: to(b.Value.Value)})
	}
	return out
}

// restoreValues re-applies a plane's saved blocks, converting each schema
// value back with from.
func restoreValues[T comparable, O any](g *contiguous2d.Grid[grid.Opt[T]], items []RectValue[O], from func(O) T) {
	for _, it := range items {
		r := it.Rect.toRect()
		var x2, y2 *int64
		if r.Max.X != grid.Unbounded {
			v := r.Max.X
			x2 = &v
		}
		if r.Max.Y != grid.Unbounded {
			v := r.Max.Y
			y2 = &v
		}
		g.SetRect(r.Min.X, r.Min.Y, x2, y2, grid.Opt[T]{Valid: true, Value: from(it.Value)})
	}
}

func identity[T any](v T) T { return v }

func encodeRgba(c grid.Rgba) RgbaSchema { return RgbaSchema{R: c.R, G: c.G, B: c.B, A: c.A} }
func decodeRgba(c RgbaSchema) grid.Rgba { return grid.Rgba{R: c.R, G: c.G, B: c.B, A: c.A} }

func encodeNumericFormat(f grid.NumericFormat) NumericFormatSchema {
	return NumericFormatSchema{Kind: string(f.Kind), CurrencySymbol: f.CurrencySymbol}
}
func decodeNumericFormat(f NumericFormatSchema) grid.NumericFormat {
	return grid.NumericFormat{Kind: grid.NumericFormatKind(f.Kind), CurrencySymbol: f.CurrencySymbol}
}

func encodeFormats(f *grid.SheetFormatting) FormatPlanesSchema {
	return FormatPlanesSchema{
		Align:          rectValues(f.Align, func(v grid.Alignment) string { return string(v) }),
		VerticalAlign:  rectValues(f.VerticalAlign, func(v grid.VerticalAlign) string { return string(v) }),
		Wrap:           rectValues(f.Wrap, identity[bool]),
		NumericFormat:  rectValues(f.NumericFormat, encodeNumericFormat),
		NumericDecimal: rectValues(f.NumericDecimal, identity[int]),
		NumericCommas:  rectValues(f.NumericCommas, identity[bool]),
		Bold:           rectValues(f.Bold, identity[bool]),
		Italic:         rectValues(f.Italic, identity[bool]),
		TextColor:      rectValues(f.TextColor, encodeRgba),
		FillColor:      rectValues(f.FillColor, encodeRgba),
		DateTimeFormat: rectValues(f.DateTimeFormat, identity[string]),
		Underline:      rectValues(f.Underline, identity[bool]),
		StrikeThrough:  rectValues(f.StrikeThrough, identity[bool]),
		FontSize:       rectValues(f.FontSize, identity[int]),
	}
}

func decodeFormats(s FormatPlanesSchema, f *grid.SheetFormatting) {
	restoreValues(f.Align, s.Align, func(v string) grid.Alignment { return grid.Alignment(v) })
	restoreValues(f.VerticalAlign, s.VerticalAlign, func(v string) grid.VerticalAlign { return grid.VerticalAlign(v) })
	restoreValues(f.Wrap, s.Wrap, identity[bool])
	restoreValues(f.NumericFormat, s.NumericFormat, decodeNumericFormat)
	restoreValues(f.NumericDecimal, s.NumericDecimal, identity[int])
	restoreValues(f.NumericCommas, s.NumericCommas, identity[bool])
	restoreValues(f.Bold, s.Bold, identity[bool])
	restoreValues(f.Italic, s.Italic, identity[bool])
	restoreValues(f.TextColor, s.TextColor, decodeRgba)
	restoreValues(f.FillColor, s.FillColor, decodeRgba)
	restoreValues(f.DateTimeFormat, s.DateTimeFormat, identity[string])
	restoreValues(f.Underline, s.Underline, identity[bool])
	restoreValues(f.StrikeThrough, s.StrikeThrough, identity[bool])
	restoreValues(f.FontSize, s.FontSize, identity[int])
}

func encodeBorderLine(l grid.BorderLine) BorderSideSchema {
	return BorderSideSchema{Style: string(l.Style), Color: encodeRgba(l.Color)}
}
func decodeBorderLine(s BorderSideSchema) grid.BorderLine {
	return grid.BorderLine{Style: grid.BorderLineStyle(s.Style), Color: decodeRgba(s.Color)}
}

func encodeBorders(b *grid.Borders) BordersSchema {
	return BordersSchema{
		Top:    rectValues(b.Top, encodeBorderLine),
		Bottom: rectValues(b.Bottom, encodeBorderLine),
		Left:   rectValues(b.Left, encodeBorderLine),
		Right:  rectValues(b.Right, encodeBorderLine),
	}
}

func decodeBorders(s BordersSchema, b *grid.Borders) {
	restoreValues(b.Top, s.Top, decodeBorderLine)
	restoreValues(b.Bottom, s.Bottom, decodeBorderLine)
	restoreValues(b.Left, s.Left, decodeBorderLine)
	restoreValues(b.Right, s.Right, decodeBorderLine)
}

func encodeDataTable(t *grid.DataTable) DataTableSchema {
	out := DataTableSchema{
		Anchor:            RectSchema{X1: t.Anchor.X, Y1: t.Anchor.Y},
		Name:              t.Name,
		Value:             encodeArray(t.Value),
		HeaderIsFirstRow:  t.HeaderIsFirstRow,
		ShowName:          t.ShowName,
		ShowColumns:       t.ShowColumns,
		DisplayBuffer:     t.DisplayBuffer,
		AlternatingColors: t.AlternatingColors,
		ChartOutput:       t.ChartOutput,
		LastModifiedUnix:  t.LastModified.UnixNano(),
	}
	for _, c := range t.Columns {
		out.Columns = append(out.Columns, ColumnHeaderSchema{Name: encodeValue(c.Name), Display: c.Display, ValueIndex: c.ValueIndex})
	}
	for _, r := range t.Sort {
		out.Sort = append(out.Sort, SortRuleSchema{ColumnIndex: r.ColumnIndex, Direction: string(r.Direction)})
	}
	switch t.Kind {
	case grid.DataTableCodeRun:
		out.Kind = "CodeRun"
		cr := &CodeRunSchema{
			Language:   string(t.CodeRun.Language),
			Code:       t.CodeRun.Code,
			Stdout:     t.CodeRun.Stdout,
			Stderr:     t.CodeRun.Stderr,
			ReturnType: t.CodeRun.ReturnType,
			LineNumber: t.CodeRun.LineNumber,
		}
		for _, a := range t.CodeRun.AccessedCells {
			cr.CellsAccessed = append(cr.CellsAccessed, SheetRectSchema{Sheet: a.Sheet.String(), Rect: rectSchema(a.Rect)})
		}
		if t.CodeRun.Error != nil {
			cr.Error = &RunErrorSchema{Kind: string(t.CodeRun.Error.Kind), Message: t.CodeRun.Error.Message}
		}
		out.CodeRun = cr
	case grid.DataTableImport:
		out.Kind = "Import"
		out.Import = &ImportSchema{SourceName: t.Import.SourceName}
	}
	return out
}

func decodeDataTable(s DataTableSchema) *grid.DataTable {
	t := &grid.DataTable{
		Anchor:            grid.Pos{X: s.Anchor.X1, Y: s.Anchor.Y1},
		Name:              s.Name,
		Value:             decodeArray(s.Value),
		HeaderIsFirstRow:  s.HeaderIsFirstRow,
		ShowName:          s.ShowName,
		ShowColumns:       s.ShowColumns,
		DisplayBuffer:     s.DisplayBuffer,
		AlternatingColors: s.AlternatingColors,
		ChartOutput:       s.ChartOutput,
		Formats:           grid.NewSheetFormatting(),
		Borders:           grid.NewBorders(),
		LastModified:      time.Unix(0, s.LastModifiedUnix).UTC(),
	}
	for _, c := range s.Columns {
		t.Columns = append(t.Columns, grid.ColumnHeader{Name: decodeValue(c.Name), Display: c.Display, ValueIndex: c.ValueIndex})
	}
	for _, r := range s.Sort {
		t.Sort = append(t.Sort, grid.SortRule{ColumnIndex: r.ColumnIndex, Direction: grid.SortDirection(r.Direction)})
	}
	if len(t.Sort) > 0 {
		t.SortDirty = true
	}
	switch s.Kind {
	case "CodeRun":
		t.Kind = grid.DataTableCodeRun
		if s.CodeRun != nil {
			t.CodeRun = grid.CodeRunInfo{
				Language:   grid.Language(s.CodeRun.Language),
				Code:       s.CodeRun.Code,
				Stdout:     s.CodeRun.Stdout,
				Stderr:     s.CodeRun.Stderr,
				ReturnType: s.CodeRun.ReturnType,
				LineNumber: s.CodeRun.LineNumber,
			}
			for _, a := range s.CodeRun.CellsAccessed {
				sheetID, _ := parseSheetID(a.Sheet)
				t.CodeRun.AccessedCells = append(t.CodeRun.AccessedCells, grid.SheetRect{Sheet: sheetID, Rect: a.Rect.toRect()})
			}
			if s.CodeRun.Error != nil {
				t.CodeRun.Error = &grid.RunError{Kind: grid.ErrorKind(s.CodeRun.Error.Kind), Message: s.CodeRun.Error.Message}
			}
		}
	case "Import":
		t.Kind = grid.DataTableImport
		if s.Import != nil {
			t.Import = grid.ImportInfo{SourceName: s.Import.SourceName}
		}
	}
	return t
}

func encodeSheet(s *grid.Sheet) SheetSchema {
	out := SheetSchema{
		ID:           s.ID.String(),
		Name:         s.Name,
		Order:        s.Order,
		ColumnWidths: s.Offsets.ColumnWidths(),
		RowHeights:   s.Offsets.RowHeights(),
		Formats:      encodeFormats(s.Formats),
		Borders:      encodeBorders(s.Borders),
	}
	if s.Color != nil {
		c := encodeRgba(*s.Color)
		out.Color = &c
	}
	for _, ce := range s.AllCells() {
		out.Cells = append(out.Cells, CellEntrySchema{X: ce.Pos.X, Y: ce.Pos.Y, Value: encodeValue(ce.Value)})
	}
	for _, anchor := range s.SortedDataTableAnchors() {
		t, _ := s.DataTableAt(anchor)
		out.DataTables = append(out.DataTables, encodeDataTable(t))
	}
	for _, r := range s.Merges.Rects() {
		out.Merges = append(out.Merges, rectSchema(r))
	}
	for _, v := range s.Validations.All() {
		out.Validations = append(out.Validations, encodeValidation(v))
	}
	return out
}

func encodeValidation(v *grid.Validation) ValidationSchema {
	rule := ValidationRuleSchema{Kind: string(v.Rule.Kind)}
	for _, lv := range v.Rule.ListValues {
		rule.ListValues = append(rule.ListValues, encodeValue(lv))
	}
	if v.Rule.SourceRect != nil {
		rs := rectSchema(*v.Rule.SourceRect)
		rule.SourceRect = &rs
	}
	if v.Rule.Min != nil && v.Rule.Min.Value != nil {
		rule.Min = v.Rule.Min.Value.RatString()
	}
	if v.Rule.Max != nil && v.Rule.Max.Value != nil {
		rule.Max = v.Rule.Max.Value.RatString()
	}
	return ValidationSchema{ID: v.ID, Rect: rectSchema(v.Rect), Rule: rule, Message: v.Message, ShowUI: v.ShowUI}
}

func decodeValidation(s ValidationSchema) *grid.Validation {
	rule := grid.ValidationRule{Kind: grid.ValidationRuleKind(s.Rule.Kind)}
	for _, lv := range s.Rule.ListValues {
		rule.ListValues = append(rule.ListValues, decodeValue(lv))
	}
	if s.Rule.SourceRect != nil {
		r := s.Rule.SourceRect.toRect()
		rule.SourceRect = &r
	}
	if s.Rule.Min != "" {
		if n, ok := parseNumber(s.Rule.Min); ok {
			rule.Min = &n
		}
	}
	if s.Rule.Max != "" {
		if n, ok := parseNumber(s.Rule.Max); ok {
			rule.Max = &n
		}
	}
	return &grid.Validation{ID: s.ID, Rect: s.Rect.toRect(), Rule: rule, Message: s.Message, ShowUI: s.ShowUI}
}

func parseNumber(s string) (grid.Number, bool) {
	n := grid.NewNumber(0)
	if _, ok := n.Value.SetString(s); !ok {
		return grid.Number{}, false
	}
	return n, true
}

func decodeSheet(s SheetSchema) (*grid.Sheet, error) {
	id, err := parseSheetID(s.ID)
	if err != nil {
		return nil, fmt.Errorf("persist: sheet %q: %w", s.Name, err)
	}
	sh := grid.NewSheet(s.Name)
	sh.ID = id
	sh.Order = s.Order
	if s.Color != nil {
		c := decodeRgba(*s.Color)
		sh.Color = &c
	}
	for col, w := range s.ColumnWidths {
		sh.Offsets.SetColumnWidth(col, w)
	}
	for row, h := range s.RowHeights {
		sh.Offsets.SetRowHeight(row, h)
	}

	entries := make([]grid.CellEntry, 0, len(s.Cells))
	for _, ce := range s.Cells {
		entries = append(entries, grid.CellEntry{Pos: grid.Pos{X: ce.X, Y: ce.Y}, Value: decodeValue(ce.Value)})
	}
	sh.SetCellEntries(entries)

	decodeFormats(s.Formats, sh.Formats)
	decodeBorders(s.Borders, sh.Borders)

	for _, r := range s.Merges {
		sh.Merges.Merge(r.toRect())
	}
	for _, v := range s.Validations {
		sh.Validations.Set(decodeValidation(v))
	}
	for _, dt := range s.DataTables {
		sh.SetDataTable(decodeDataTable(dt))
	}
	return sh, nil
}

// Encode snapshots g into a Document at CurrentVersion.
func Encode(g *grid.Grid) *Document {
	doc := &Document{Version: CurrentVersion}
	for _, s := range g.Sheets() {
		doc.Sheets = append(doc.Sheets, encodeSheet(s))
	}
	return doc
}

// Decode rebuilds a grid.Grid from doc, which must already be at
// CurrentVersion (callers go through Migrate first).
func Decode(doc *Document) (*grid.Grid, error) {
	g := grid.NewEmptyGrid()
	for i, ss := range doc.Sheets {
		sh, err := decodeSheet(ss)
		if err != nil {
			return nil, err
		}
		if err := g.ReinsertSheet(sh, i); err != nil {
			return nil, fmt.Errorf("persist: sheet %q: %w", ss.Name, err)
		}
	}
	return g, nil
}

func parseSheetID(s string) (grid.SheetID, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 16 {
		return grid.SheetID{}, fmt.Errorf("invalid sheet id %q", s)
	}
	var id grid.SheetID
	copy(id[:], b)
	return id, nil
}
