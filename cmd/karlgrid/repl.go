package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/broyeztony/karlgrid/internal/grid"
	"github.com/broyeztony/karlgrid/internal/persist"
	"github.com/broyeztony/karlgrid/internal/txn"
)

// replCommand is an interactive debug console for the grid engine: type
// "set A1 42", "get A1", "undo", "redo", "save out.json", or "quit".
// Grounded on repl/input_tty.go's raw-mode terminal handling (term.
// IsTerminal/MakeRaw/Restore, byte-at-a-time reads with backspace and
// Ctrl+C/Ctrl+D handling) pared down to a single-line editor with no
// history or arrow-key navigation - this console is for poking at a grid
// during development, not a full line editor.
func replCommand(args []string) int {
	docPath := ""
	if len(args) > 0 {
		docPath = args[0]
	}

	var g *grid.Grid
	if docPath != "" {
		loaded, err := persist.Load(docPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "repl: load: %v\n", err)
			return 1
		}
		g = loaded
	} else {
		g = grid.NewGrid()
	}
	engine := txn.NewEngine(g)
	sheet := g.Sheets()[0]

	stdinFd := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFd) {
		return runReplLines(os.Stdin, engine, sheet, docPath)
	}

	state, err := term.MakeRaw(stdinFd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "repl: %v\n", err)
		return 1
	}
	defer term.Restore(stdinFd, state)

	rl := newRawLineReader(os.Stdin, os.Stdout)
	for {
		line, ok := rl.readLine("karlgrid> ")
		if !ok {
			return 0
		}
		if quit := evalReplLine(line, engine, sheet, &docPath); quit {
			return 0
		}
	}
}

// runReplLines is the non-TTY fallback (piped input, tests): plain
// line-buffered reads, no raw mode.
func runReplLines(in *os.File, engine *txn.Engine, sheet *grid.Sheet, docPath string) int {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if quit := evalReplLine(scanner.Text(), engine, sheet, &docPath); quit {
			return 0
		}
	}
	return 0
}

func evalReplLine(line string, engine *txn.Engine, sheet *grid.Sheet, docPath *string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "quit", "exit":
		return true
	case "undo":
		if _, err := engine.Undo(); err != nil {
			fmt.Printf("undo: %v\r\n", err)
		}
	case "redo":
		if _, err := engine.Redo(); err != nil {
			fmt.Printf("redo: %v\r\n", err)
		}
	case "save":
		path := *docPath
		if len(fields) > 1 {
			path = fields[1]
		}
		if path == "" {
			fmt.Printf("save: no document path given\r\n")
			return false
		}
		if err := persist.Save(path, engine.Grid()); err != nil {
			fmt.Printf("save: %v\r\n", err)
			return false
		}
		*docPath = path
		fmt.Printf("saved %s\r\n", path)
	case "get":
		if len(fields) != 2 {
			fmt.Printf("usage: get <ref>\r\n")
			return false
		}
		pos, err := resolveAnchor(engine.Grid(), sheet.ID, fields[1])
		if err != nil {
			fmt.Printf("get: %v\r\n", err)
			return false
		}
		fmt.Printf("%s = %s\r\n", fields[1], sheet.DisplayValue(pos).Display())
	case "set":
		if len(fields) < 3 {
			fmt.Printf("usage: set <ref> <value>\r\n")
			return false
		}
		pos, err := resolveAnchor(engine.Grid(), sheet.ID, fields[1])
		if err != nil {
			fmt.Printf("set: %v\r\n", err)
			return false
		}
		arr := grid.NewArray(1, 1)
		arr.Set(0, 0, parseLiteral(strings.Join(fields[2:], " ")))
		op := txn.Operation{Kind: txn.OpSetCellValues, SheetPos: grid.SheetPos{Sheet: sheet.ID, Pos: pos}, Values: arr}
		if _, err := engine.RunTransaction([]txn.Operation{op}, txn.TransactionUser, nil); err != nil {
			fmt.Printf("set: %v\r\n", err)
		}
	default:
		fmt.Printf("unknown command %q (try set, get, undo, redo, save, quit)\r\n", fields[0])
	}
	return false
}

// parseLiteral infers a grid.CellValue from typed text: a number if it
// parses as one, TRUE/FALSE as a logical, text otherwise. Grounded on
// persist/codec.go's parseNumber, the same "try a rational, fall back"
// idea applied to console input instead of a persisted document field.
func parseLiteral(s string) grid.CellValue {
	switch strings.ToUpper(s) {
	case "TRUE":
		return grid.Logical{Value: true}
	case "FALSE":
		return grid.Logical{Value: false}
	}
	if n, ok := parseNumberLiteral(s); ok {
		return n
	}
	return grid.Text{Value: s}
}

func parseNumberLiteral(s string) (grid.Number, bool) {
	n := grid.NewNumber(0)
	if _, ok := n.Value.SetString(s); !ok {
		return grid.Number{}, false
	}
	return n, true
}

