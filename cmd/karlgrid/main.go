// Command karlgrid is the CLI entry point for the grid engine: a
// subcommand dispatcher in main.go's idiom, wiring the
// transaction engine, the core<->renderer protocol, the multiplayer
// relay, and the persistence and SQL-import layers together.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	sub := os.Args[1]
	switch sub {
	case "-h", "--help", "help":
		usage()
		return
	case "serve":
		os.Exit(serveCommand(os.Args[2:]))
	case "migrate":
		os.Exit(migrateCommand(os.Args[2:]))
	case "import":
		os.Exit(importCommand(os.Args[2:]))
	case "repl":
		os.Exit(replCommand(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n", sub)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  karlgrid <command> [arguments]\n")
	fmt.Fprintf(os.Stderr, "\nCommands:\n")
	fmt.Fprintf(os.Stderr, "  serve [addr]                     serve the grid engine (default :8080)\n")
	fmt.Fprintf(os.Stderr, "  migrate <in.json> [out.json]     upgrade a saved document to the current version\n")
	fmt.Fprintf(os.Stderr, "  import <doc.json> <dsn> <anchor> <query>  run a SQL query into a new data table at anchor and save it\n")
	fmt.Fprintf(os.Stderr, "  repl [doc.json]                  start an interactive debug console\n")
	fmt.Fprintf(os.Stderr, "  help                             show this help message\n")
}
