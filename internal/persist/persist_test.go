package persist

import (
	"encoding/json"
	"testing"

	"github.com/broyeztony/karlgrid/internal/grid"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	g := grid.NewGrid()
	sh := g.Sheets()[0]

	sh.SetCellValue(grid.Pos{X: 1, Y: 1}, grid.Text{Value: "hello"})
	sh.SetCellValue(grid.Pos{X: 2, Y: 1}, grid.NewNumber(42))

	sh.Formats.Bold.SetRect(1, 1, int64Ptr(2), int64Ptr(1), grid.Opt[bool]{Valid: true, Value: true})
	sh.Formats.FillColor.SetRect(1, 1, int64Ptr(1), int64Ptr(1), grid.Opt[grid.Rgba]{Valid: true, Value: grid.Rgba{R: 255, A: 255}})

	if !sh.Merges.Merge(grid.Rect{Min: grid.Pos{X: 4, Y: 4}, Max: grid.Pos{X: 5, Y: 5}}) {
		t.Fatalf("expected merge to succeed")
	}

	sh.Validations.Set(&grid.Validation{
		ID:      "v1",
		Rect:    grid.Rect{Min: grid.Pos{X: 3, Y: 3}, Max: grid.Pos{X: 3, Y: 3}},
		Rule:    grid.ValidationRule{Kind: grid.ValidationLogical},
		Message: "pick one",
		ShowUI:  true,
	})

	arr := grid.NewArray(1, 2)
	arr.Set(0, 0, grid.NewNumber(1))
	arr.Set(0, 1, grid.NewNumber(2))
	sh.SetDataTable(&grid.DataTable{
		Anchor:      grid.Pos{X: 8, Y: 8},
		Name:        "Table1",
		Kind:        grid.DataTableImport,
		Import:      grid.ImportInfo{SourceName: "orders.csv"},
		Value:       arr,
		ShowName:    true,
		ShowColumns: true,
		Formats:     grid.NewSheetFormatting(),
		Borders:     grid.NewBorders(),
	})

	doc := Encode(g)
	if doc.Version != CurrentVersion {
		t.Fatalf("expected version %q, got %q", CurrentVersion, doc.Version)
	}

	// Round-trip through JSON too, since that's the real persisted shape.
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc2 Document
	if err := json.Unmarshal(raw, &doc2); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	g2, err := Decode(&doc2)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sheets := g2.Sheets()
	if len(sheets) != 1 {
		t.Fatalf("expected 1 sheet, got %d", len(sheets))
	}
	sh2 := sheets[0]
	if sh2.ID != sh.ID {
		t.Fatalf("sheet id not preserved: got %v, want %v", sh2.ID, sh.ID)
	}

	v, ok := sh2.CellValue(grid.Pos{X: 1, Y: 1})
	if !ok {
		t.Fatalf("expected cell at (1,1)")
	}
	txt, ok := v.(grid.Text)
	if !ok || txt.Value != "hello" {
		t.Fatalf("expected Text{hello}, got %v", v)
	}

	fmtAt := sh2.Formats.At(grid.Pos{X: 1, Y: 1})
	if !fmtAt.Bold {
		t.Fatalf("expected bold at (1,1)")
	}
	if fmtAt.FillColor != (grid.Rgba{R: 255, A: 255}) {
		t.Fatalf("expected fill color preserved, got %+v", fmtAt.FillColor)
	}

	fmtAt2 := sh2.Formats.At(grid.Pos{X: 2, Y: 1})
	if !fmtAt2.Bold {
		t.Fatalf("expected bold to cover (2,1) too")
	}

	if _, ok := sh2.Merges.AnchorOf(grid.Pos{X: 5, Y: 5}); !ok {
		t.Fatalf("expected merge to survive round-trip")
	}

	if len(sh2.Validations.All()) != 1 {
		t.Fatalf("expected 1 validation, got %d", len(sh2.Validations.All()))
	}

	table, ok := sh2.DataTableAt(grid.Pos{X: 8, Y: 8})
	if !ok {
		t.Fatalf("expected data table at anchor")
	}
	if table.Kind != grid.DataTableImport || table.Import.SourceName != "orders.csv" {
		t.Fatalf("data table import info not preserved: %+v", table)
	}
}

func TestMigrateLegacyDocument(t *testing.T) {
	raw := []byte(`{
		"sheets": [
			{
				"name": "Sheet1",
				"cells": [{"x": 2, "y": 3, "value": {"kind": "TEXT", "text": "hi"}}],
				"code_cells": [{"x": 5, "y": 5, "language": "Formula", "code": "=1+1"}],
				"formats": [{"x": 2, "y": 3, "bold": true, "text_color": {"R": 1, "G": 2, "B": 3, "A": 255}}]
			}
		]
	}`)

	doc, err := Migrate(raw)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if doc.Version != CurrentVersion {
		t.Fatalf("expected migrated version %q, got %q", CurrentVersion, doc.Version)
	}
	if len(doc.Sheets) != 1 {
		t.Fatalf("expected 1 sheet, got %d", len(doc.Sheets))
	}
	sheet := doc.Sheets[0]
	if len(sheet.Cells) != 2 {
		t.Fatalf("expected 2 cells (flat cell + folded code cell), got %d", len(sheet.Cells))
	}
	if len(sheet.Formats.Bold) != 1 || !sheet.Formats.Bold[0].Value {
		t.Fatalf("expected one bold block folded from the flat format, got %+v", sheet.Formats.Bold)
	}
	if len(sheet.Formats.TextColor) != 1 {
		t.Fatalf("expected one text color block, got %+v", sheet.Formats.TextColor)
	}
}

func TestMigrateShiftsNegativeOffsets(t *testing.T) {
	doc := &Document{
		Version: "1.7",
		Sheets: []SheetSchema{
			{
				Name:  "Sheet1",
				Cells: []CellEntrySchema{{X: -2, Y: 0, Value: CellValueSchema{Kind: "TEXT", Text: "a"}}},
				Merges: []RectSchema{{X1: -2, Y1: 0, X2: int64Ptr(-1), Y2: int64Ptr(0)}},
			},
		},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	migrated, err := Migrate(raw)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if migrated.Version != CurrentVersion {
		t.Fatalf("expected version bumped to %q, got %q", CurrentVersion, migrated.Version)
	}
	sheet := migrated.Sheets[0]
	if sheet.Cells[0].X < 1 || sheet.Cells[0].Y < 1 {
		t.Fatalf("expected shifted cell coordinates >= 1, got (%d, %d)", sheet.Cells[0].X, sheet.Cells[0].Y)
	}
	if sheet.Merges[0].X1 < 1 || sheet.Merges[0].Y1 < 1 {
		t.Fatalf("expected shifted merge coordinates >= 1, got %+v", sheet.Merges[0])
	}
}

func int64Ptr(v int64) *int64 { return &v }
