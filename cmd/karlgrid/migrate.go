package main

import (
	"fmt"
	"os"

	"github.com/broyeztony/karlgrid/internal/persist"
)

// migrateCommand loads a document of any prior schema version, upgrades it
// to persist.CurrentVersion, and writes it back out, grounded on main.go's
// notebookCommand convert-in-place subcommand shape ("notebook convert
// <in.ipynb> <out.knb>").
func migrateCommand(args []string) int {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: karlgrid migrate <in.json> [out.json]\n")
		return 2
	}

	in := args[0]
	out := in
	if len(args) > 1 {
		out = args[1]
	}

	g, err := persist.Load(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		return 1
	}
	if err := persist.Save(out, g); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		return 1
	}

	fmt.Printf("migrated %s -> %s (version %s)\n", in, out, persist.CurrentVersion)
	return 0
}
