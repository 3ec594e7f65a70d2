package main

import (
	"testing"

	"github.com/broyeztony/karlgrid/internal/grid"
	"github.com/broyeztony/karlgrid/internal/txn"
)

func TestParseLiteral(t *testing.T) {
	if v := parseLiteral("TRUE"); v.Kind() != grid.KindLogical {
		t.Fatalf("expected logical, got %v", v.Kind())
	}
	if v := parseLiteral("42"); v.Kind() != grid.KindNumber {
		t.Fatalf("expected number, got %v", v.Kind())
	}
	if v := parseLiteral("hello"); v.Kind() != grid.KindText {
		t.Fatalf("expected text, got %v", v.Kind())
	}
}

func TestEvalReplLineSetGet(t *testing.T) {
	g := grid.NewGrid()
	sheet := g.Sheets()[0]
	engine := txn.NewEngine(g)
	docPath := ""

	if quit := evalReplLine("set A1 5", engine, sheet, &docPath); quit {
		t.Fatalf("set should not quit")
	}
	v, ok := sheet.CellValue(grid.Pos{X: 1, Y: 1})
	if !ok {
		t.Fatalf("expected a value at A1")
	}
	if v.Display() != "5" {
		t.Fatalf("expected display 5, got %q", v.Display())
	}

	if quit := evalReplLine("quit", engine, sheet, &docPath); !quit {
		t.Fatalf("quit should signal termination")
	}
}

func TestEvalReplLineUnknownCommand(t *testing.T) {
	g := grid.NewGrid()
	sheet := g.Sheets()[0]
	engine := txn.NewEngine(g)
	docPath := ""

	if quit := evalReplLine("bogus", engine, sheet, &docPath); quit {
		t.Fatalf("unknown command should not quit")
	}
}
