package a1

import (
	"strconv"
	"strings"

	"github.com/broyeztony/karlgrid/internal/grid"
)

// String prints bounds per the printer rules: "*" prints as "*", single
// cells print without the ":A1" suffix, and absoluteness is preserved per
// component.
func (r RefRangeBounds) String() string {
	if r.IsAll() {
		return "*"
	}
	startUnboundedCol, endUnboundedCol := r.Start.colUnbounded(), r.End.colUnbounded()
	startUnboundedRow, endUnboundedRow := r.Start.rowUnbounded(), r.End.rowUnbounded()

	// Column-only range: "C:E" or "C".
	if startUnboundedRow && endUnboundedRow {
		if r.Start.Col == r.End.Col && r.Start.ColAbsolute == r.End.ColAbsolute {
			return printColOnly(r.Start)
		}
		return printColOnly(r.Start) + ":" + printColOnly(r.End)
	}
	// Row-only range: "2:5" or "2".
	if startUnboundedCol && endUnboundedCol {
		if r.Start.Row == r.End.Row && r.Start.RowAbsolute == r.End.RowAbsolute {
			return printRowOnly(r.Start)
		}
		return printRowOnly(r.Start) + ":" + printRowOnly(r.End)
	}
	if r.IsSingleCell() {
		return printCell(r.Start)
	}
	return printCell(r.Start) + ":" + printCell(r.End)
}

func printCell(c CellRef) string {
	var b strings.Builder
	if c.ColAbsolute {
		b.WriteByte('$')
	}
	b.WriteString(ColumnToLetters(c.Col))
	if c.RowAbsolute {
		b.WriteByte('$')
	}
	b.WriteString(strconv.FormatInt(c.Row, 10))
	return b.String()
}

func printColOnly(c CellRef) string {
	var b strings.Builder
	if c.ColAbsolute {
		b.WriteByte('$')
	}
	b.WriteString(ColumnToLetters(c.Col))
	return b.String()
}

func printRowOnly(c CellRef) string {
	var b strings.Builder
	if c.RowAbsolute {
		b.WriteByte('$')
	}
	b.WriteString(strconv.FormatInt(c.Row, 10))
	return b.String()
}

// needsQuoting reports whether a sheet name must be single-quoted when
// printed: space, '!', or a leading digit.
func needsQuoting(name string) bool {
	if name == "" {
		return true
	}
	if name[0] >= '0' && name[0] <= '9' {
		return true
	}
	return strings.ContainsAny(name, " !")
}

func quoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// printSheetPrefix renders "Name!" (quoted if necessary), or "" if sheet
// equals defaultSheet.
func printSheetPrefix(ctx *A1Context, sheet, defaultSheet grid.SheetID) string {
	if sheet == defaultSheet {
		return ""
	}
	name, ok := ctx.nameOfSheet(sheet)
	if !ok {
		return ""
	}
	if needsQuoting(name) {
		return quoteSheetName(name) + "!"
	}
	return name + "!"
}

func (t TableRef) String() string {
	if t.Columns.All {
		return t.TableName
	}
	var inner string
	if t.Columns.IncludeHeader {
		inner = "#HEADERS," + strings.Join(t.Columns.ColumnNames, ",")
	} else {
		inner = strings.Join(t.Columns.ColumnNames, ",")
	}
	return t.TableName + "[" + inner + "]"
}

// PrintRange renders one range, prefixed with its sheet name when it
// differs from defaultSheet.
func PrintRange(r CellRefRange, sheet grid.SheetID, ctx *A1Context, defaultSheet grid.SheetID) string {
	prefix := printSheetPrefix(ctx, sheet, defaultSheet)
	if r.Kind == RangeKindTable {
		return prefix + r.Table.String()
	}
	return prefix + r.Sheet.String()
}

// PrintSelection renders every range in sel, comma-joined, each qualified
// against sel.SheetID as the default.
func PrintSelection(sel A1Selection, ctx *A1Context) string {
	parts := make([]string, len(sel.Ranges))
	for i, r := range sel.Ranges {
		parts[i] = PrintRange(r, sel.SheetID, ctx, sel.SheetID)
	}
	return strings.Join(parts, ",")
}
