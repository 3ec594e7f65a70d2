package a1

import (
	"testing"

	"github.com/broyeztony/karlgrid/internal/grid"
)

func newTestContext() (*grid.Grid, grid.SheetID, grid.SheetID) {
	g := grid.NewGrid()
	s1 := g.Sheets()[0] // NewGrid seeds "Sheet1"
	s2, _ := g.AddSheet("Sheet 2", 1)
	return g, s1.ID, s2.ID
}

// TestParsePrintIdentity checks that parsing a canonical A1 string and
// printing it back reproduces the original text, for every range shape the
// grammar supports.
func TestParsePrintIdentity(t *testing.T) {
	g, sheet1, _ := newTestContext()
	ctx := NewA1Context(g, sheet1)

	cases := []string{
		"A1",
		"$A1",
		"A$1",
		"$A$1",
		"A1:C5",
		"$A$1:$C$5",
		"C",
		"C:E",
		"2",
		"2:5",
		"*",
		"'Sheet 2'!A1",
		"'Sheet 2'!A1:B2",
	}
	for _, in := range cases {
		r, sheet, err := ParseSingleRange(in, ctx, sheet1)
		if err != nil {
			t.Fatalf("ParseSingleRange(%q) error: %v", in, err)
		}
		got := PrintRange(r, sheet, ctx, sheet1)
		if got != in {
			t.Errorf("ParseSingleRange(%q) -> PrintRange got %q, want %q", in, got, in)
		}
	}
}

// TestParsePrintIdentitySelection exercises the same round trip through a
// comma-joined selection rather than one bare range.
func TestParsePrintIdentitySelection(t *testing.T) {
	g, sheet1, _ := newTestContext()
	ctx := NewA1Context(g, sheet1)

	in := "A1,C3:D4,F:H"
	sel, err := ParseSelection(in, ctx, sheet1)
	if err != nil {
		t.Fatalf("ParseSelection(%q) error: %v", in, err)
	}
	if got := PrintSelection(sel, ctx); got != in {
		t.Errorf("ParseSelection(%q) -> PrintSelection got %q, want %q", in, got, in)
	}
}

func TestParseSingleRangeRejectsTrailingGarbage(t *testing.T) {
	g, sheet1, _ := newTestContext()
	ctx := NewA1Context(g, sheet1)
	if _, _, err := ParseSingleRange("A1 B2", ctx, sheet1); err == nil {
		t.Fatalf("expected an error for trailing garbage after a single range")
	}
}

// TestParseTooManySheetQualifiers checks that a selection may qualify at
// most one of its ranges with an explicit sheet name.
func TestParseTooManySheetQualifiers(t *testing.T) {
	g, sheet1, _ := newTestContext()
	ctx := NewA1Context(g, sheet1)
	if _, err := ParseSelection("'Sheet 2'!A1,Sheet1!B2", ctx, sheet1); err == nil {
		t.Fatalf("expected ErrTooManySheets, got a valid parse")
	}
}
