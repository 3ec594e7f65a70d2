package main

import (
	"context"
	"fmt"
	"os"

	"github.com/broyeztony/karlgrid/internal/a1"
	"github.com/broyeztony/karlgrid/internal/connector"
	"github.com/broyeztony/karlgrid/internal/grid"
	"github.com/broyeztony/karlgrid/internal/persist"
)

// importCommand runs a SQL query through internal/connector and lands the
// result as an Import DataTable at the given anchor, then saves the
// document back out. Grounded on main.go's kernelCommand open-then-run-
// then-report shape, generalized from a Jupyter kernel connection file to
// a SQL data source descriptor.
func importCommand(args []string) int {
	if len(args) < 4 {
		fmt.Fprintf(os.Stderr, "Usage: karlgrid import <doc.json> <dsn> <anchor> <query>\n")
		return 2
	}
	docPath, dsn, anchorStr, query := args[0], args[1], args[2], args[3]

	g, err := persist.Load(docPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import: load: %v\n", err)
		return 1
	}
	sheets := g.Sheets()
	if len(sheets) == 0 {
		fmt.Fprintf(os.Stderr, "import: document has no sheets\n")
		return 1
	}
	sheet := sheets[0]

	anchor, err := resolveAnchor(g, sheet.ID, anchorStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import: anchor: %v\n", err)
		return 1
	}

	ctx := context.Background()
	conn, err := connector.Open(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import: %v\n", err)
		return 1
	}
	defer conn.Close()

	table, err := conn.Import(ctx, anchor, "Imported", dsn, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import: %v\n", err)
		return 1
	}

	sheet.SetDataTable(table)
	sheet.RecomputeBounds()

	if err := persist.Save(docPath, g); err != nil {
		fmt.Fprintf(os.Stderr, "import: save: %v\n", err)
		return 1
	}

	fmt.Printf("imported %d x %d table at %s into %s\n", table.Value.Width, table.Value.Height, anchorStr, docPath)
	return 0
}

func resolveAnchor(g *grid.Grid, defaultSheet grid.SheetID, ref string) (grid.Pos, error) {
	ctx := a1.NewA1Context(g, defaultSheet)
	rng, _, err := a1.ParseSingleRange(ref, ctx, defaultSheet)
	if err != nil {
		return grid.Pos{}, err
	}
	if rng.Kind != a1.RangeKindSheet {
		return grid.Pos{}, fmt.Errorf("anchor %q must be a cell reference, not a table reference", ref)
	}
	return rng.Sheet.ToRect().Min, nil
}
