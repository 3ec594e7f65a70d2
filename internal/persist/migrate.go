package persist

// Legacy schema + migration steps, grounded on
// original_source/quadratic-core/src/grid/file/v1_5.rs (the flat
// per-cell-format layout a pre-1.5 file used, and the SheetBuilder upgrade
// that folds it into the columnar/RLE layout current versions use) and
// shift_negative_offsets.rs (the v1.7->v1.7.1 step that shifts any sheet
// whose content starts at x<=0 or y<=0 so every position becomes
// addressable under this engine's 1-indexed Pos).
//
// The real history spans v1.4 through v1.10 with many incremental field
// renames (see v1_8/schema.rs and v1_9/schema.rs, which mostly just
// re-export the prior version's types and override a handful of fields).
// Modeling each of those ten schemas separately would not exercise any
// different code path here, so this migration chain collapses them into
// the two representative, semantically distinct steps above: a legacy
// flat-format upgrade and a negative-offset shift. Anything already at
// CurrentVersion skips both.

import (
	"encoding/json"

	"github.com/broyeztony/karlgrid/internal/grid"
)

const legacyVersion = "1.4"

// LegacyDocumentV14 is a pre-1.5 checkpoint: per-cell flat formats instead
// of RLE planes, and code cells stored as a simple value rather than a
// materialized DataTable (matching v1_5.rs's JsCell/JsFormat shape before
// SheetBuilder folds them into columns).
type LegacyDocumentV14 struct {
	Sheets []LegacySheetV14 `json:"sheets"`
}

type LegacySheetV14 struct {
	Name      string               `json:"name"`
	Color     *RgbaSchema          `json:"color,omitempty"`
	Cells     []LegacyCellV14      `json:"cells,omitempty"`
	Formats   []LegacyFormatV14    `json:"formats,omitempty"`
	CodeCells []LegacyCodeCellV14  `json:"code_cells,omitempty"`
}

type LegacyCellV14 struct {
	X     int64           `json:"x"`
	Y     int64           `json:"y"`
	Value CellValueSchema `json:"value"`
}

// LegacyFormatV14 is one cell's flat style bag, the shape js_format had
// before it was split into per-attribute Contiguous2D planes.
type LegacyFormatV14 struct {
	X         int64       `json:"x"`
	Y         int64       `json:"y"`
	Bold      bool        `json:"bold,omitempty"`
	Italic    bool        `json:"italic,omitempty"`
	TextColor *RgbaSchema `json:"text_color,omitempty"`
	FillColor *RgbaSchema `json:"fill_color,omitempty"`
}

type LegacyCodeCellV14 struct {
	X        int64  `json:"x"`
	Y        int64  `json:"y"`
	Language string `json:"language"`
	Code     string `json:"code"`
}

// legacyToCurrent upgrades a v1.4 document to the current SheetSchema
// shape, folding each flat LegacyFormatV14 entry into a 1x1 format-plane
// block, same as SheetBuilder folding JsFormat rows into Column planes.
// A v1.4 sheet has no ID, so each one is given a fresh SheetID.
func legacyToCurrent(legacy LegacyDocumentV14) *Document {
	doc := &Document{Version: CurrentVersion}
	for _, ls := range legacy.Sheets {
		sheet := SheetSchema{ID: grid.NewSheetID().String(), Name: ls.Name, Color: ls.Color}
		for _, c := range ls.Cells {
			sheet.Cells = append(sheet.Cells, CellEntrySchema{X: c.X, Y: c.Y, Value: c.Value})
		}
		for _, cc := range ls.CodeCells {
			sheet.Cells = append(sheet.Cells, CellEntrySchema{
				X: cc.X, Y: cc.Y,
				Value: CellValueSchema{Kind: "CODE", Language: cc.Language, Source: cc.Code},
			})
		}
		for _, f := range ls.Formats {
			one := func(v bool) []RectValue[bool] {
				if !v {
					return nil
				}
				return []RectValue[bool]{{Rect: RectSchema{X1: f.X, Y1: f.Y, X2: &f.X, Y2: &f.Y}, Value: true}}
			}
			sheet.Formats.Bold = append(sheet.Formats.Bold, one(f.Bold)...)
			sheet.Formats.Italic = append(sheet.Formats.Italic, one(f.Italic)...)
			if f.TextColor != nil {
				sheet.Formats.TextColor = append(sheet.Formats.TextColor, RectValue[RgbaSchema]{
					Rect: RectSchema{X1: f.X, Y1: f.Y, X2: &f.X, Y2: &f.Y}, Value: *f.TextColor,
				})
			}
			if f.FillColor != nil {
				sheet.Formats.FillColor = append(sheet.Formats.FillColor, RectValue[RgbaSchema]{
					Rect: RectSchema{X1: f.X, Y1: f.Y, X2: &f.X, Y2: &f.Y}, Value: *f.FillColor,
				})
			}
		}
		doc.Sheets = append(doc.Sheets, sheet)
	}
	return doc
}

// importOffset is the legacy constant used when an import historically
// pushed content to negative coordinates deliberately (see
// shift_negative_offsets.rs's IMPORT_OFFSET); unused by new saves, kept so
// the shift step's intent is traceable back to the original migration.
const importOffset = 1000000

// shiftNegativeOffsets translates every coordinate on a sheet so the
// smallest becomes 1, mirroring the v1.7->v1.7.1 migration. No-op if the
// sheet already starts at (1, 1) or later, which is the common case for
// anything saved by this engine.
func shiftNegativeOffsets(doc *Document) {
	for i := range doc.Sheets {
		shiftSheetOffsets(&doc.Sheets[i])
	}
}

func shiftSheetOffsets(s *SheetSchema) {
	minX, minY := int64(1), int64(1)
	consider := func(x, y int64) {
		if x < minX {
			minX = x
		}
		if y < minY {
			minY = y
		}
	}
	for _, c := range s.Cells {
		consider(c.X, c.Y)
	}
	for _, t := range s.DataTables {
		consider(t.Anchor.X1, t.Anchor.Y1)
	}
	for _, m := range s.Merges {
		consider(m.X1, m.Y1)
	}
	for _, v := range s.Validations {
		consider(v.Rect.X1, v.Rect.Y1)
	}
	dx, dy := int64(0), int64(0)
	if minX < 1 {
		dx = 1 - minX
	}
	if minY < 1 {
		dy = 1 - minY
	}
	if dx == 0 && dy == 0 {
		return
	}
	for i := range s.Cells {
		s.Cells[i].X += dx
		s.Cells[i].Y += dy
	}
	for i := range s.DataTables {
		s.DataTables[i].Anchor.X1 += dx
		s.DataTables[i].Anchor.Y1 += dy
	}
	for i := range s.Merges {
		translateRect(&s.Merges[i], dx, dy)
	}
	for i := range s.Validations {
		translateRect(&s.Validations[i].Rect, dx, dy)
	}
	translateFormats(&s.Formats, dx, dy)
	translateBorders(&s.Borders, dx, dy)
}

func translateRect(r *RectSchema, dx, dy int64) {
	r.X1 += dx
	r.Y1 += dy
	if r.X2 != nil {
		v := *r.X2 + dx
		r.X2 = &v
	}
	if r.Y2 != nil {
		v := *r.Y2 + dy
		r.Y2 = &v
	}
}

func translateRectValues[T any](items []RectValue[T], dx, dy int64) {
	for i := range items {
		translateRect(&items[i].Rect, dx, dy)
	}
}

func translateFormats(f *FormatPlanesSchema, dx, dy int64) {
	translateRectValues(f.Align, dx, dy)
	translateRectValues(f.VerticalAlign, dx, dy)
	translateRectValues(f.Wrap, dx, dy)
	translateRectValues(f.NumericFormat, dx, dy)
	translateRectValues(f.NumericDecimal, dx, dy)
	translateRectValues(f.NumericCommas, dx, dy)
	translateRectValues(f.Bold, dx, dy)
	translateRectValues(f.Italic, dx, dy)
	translateRectValues(f.TextColor, dx, dy)
	translateRectValues(f.FillColor, dx, dy)
	translateRectValues(f.DateTimeFormat, dx, dy)
	translateRectValues(f.Underline, dx, dy)
	translateRectValues(f.StrikeThrough, dx, dy)
	translateRectValues(f.FontSize, dx, dy)
}

func translateBorders(b *BordersSchema, dx, dy int64) {
	translateRectValues(b.Top, dx, dy)
	translateRectValues(b.Bottom, dx, dy)
	translateRectValues(b.Left, dx, dy)
	translateRectValues(b.Right, dx, dy)
}

// versionEnvelope peeks at a document's version tag without fully parsing
// its body, since a legacy (pre-1.5) file has a different sheet shape
// entirely.
type versionEnvelope struct {
	Version string `json:"version"`
}

// Migrate parses raw JSON bytes into a Document at CurrentVersion,
// upgrading through the legacy and offset-shift steps as needed.
func Migrate(raw []byte) (*Document, error) {
	var env versionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.Version == "" {
		var legacy LegacyDocumentV14
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, err
		}
		doc := legacyToCurrent(legacy)
		shiftNegativeOffsets(doc)
		return doc, nil
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Version != CurrentVersion {
		shiftNegativeOffsets(&doc)
		doc.Version = CurrentVersion
	}
	return &doc, nil
}
