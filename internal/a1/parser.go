package a1

import (
	"strconv"
	"strings"

	"github.com/broyeztony/karlgrid/internal/grid"
)

// parser scans an A1 selection string one byte at a time, following the
// lexer's position/readPosition/ch scanning idiom but folded into a single
// recursive-descent pass since the A1 grammar needs no separate token
// stream.
type parser struct {
	input        string
	position     int
	readPosition int
	ch           byte

	ctx *A1Context

	sawSheetQualifier bool
}

func newParser(input string, ctx *A1Context) *parser {
	p := &parser{input: input, ctx: ctx}
	p.readChar()
	return p
}

func (p *parser) readChar() {
	if p.readPosition >= len(p.input) {
		p.ch = 0
	} else {
		p.ch = p.input[p.readPosition]
	}
	p.position = p.readPosition
	p.readPosition++
}

func (p *parser) peekChar() byte {
	if p.readPosition >= len(p.input) {
		return 0
	}
	return p.input[p.readPosition]
}

func (p *parser) skipSpace() {
	for p.ch == ' ' || p.ch == '\t' {
		p.readChar()
	}
}

// ParseSelection parses selection := range (',' range)* for sheet
// defaultSheet, using ctx to resolve sheet and table names.
func ParseSelection(input string, ctx *A1Context, defaultSheet grid.SheetID) (A1Selection, error) {
	p := newParser(strings.TrimSpace(input), ctx)
	sel := A1Selection{SheetID: defaultSheet}
	for {
		p.skipSpace()
		r, sheet, err := p.parseRange(defaultSheet)
		if err != nil {
			return A1Selection{}, err
		}
		if sheet != defaultSheet && len(sel.Ranges) == 0 {
			sel.SheetID = sheet
		}
		sel.Ranges = append(sel.Ranges, r)
		p.skipSpace()
		if p.ch != ',' {
			break
		}
		p.readChar()
	}
	p.skipSpace()
	if p.ch != 0 {
		return A1Selection{}, ParseError{Kind: ErrInvalidRange, Token: p.input[p.position:]}
	}
	if len(sel.Ranges) > 0 {
		sel.Cursor = startPosOf(sel.Ranges[0])
	}
	return sel, nil
}

func startPosOf(r CellRefRange) grid.Pos {
	if r.Kind == RangeKindTable {
		return grid.Pos{X: 1, Y: 1}
	}
	return grid.Pos{X: r.Sheet.Start.Col, Y: r.Sheet.Start.Row}
}

// ParseSingleRange parses exactly one range (no comma list), for contexts
// like RefAdjust test helpers and formula reference literals.
func ParseSingleRange(input string, ctx *A1Context, defaultSheet grid.SheetID) (CellRefRange, grid.SheetID, error) {
	p := newParser(strings.TrimSpace(input), ctx)
	r, sheet, err := p.parseRange(defaultSheet)
	if err != nil {
		return CellRefRange{}, grid.SheetID{}, err
	}
	p.skipSpace()
	if p.ch != 0 {
		return CellRefRange{}, grid.SheetID{}, ParseError{Kind: ErrInvalidRange, Token: p.input[p.position:]}
	}
	return r, sheet, nil
}

// parseRange handles [ sheet '!' ] (cell_range | col_range | row_range |
// '*' | table_ref).
func (p *parser) parseRange(defaultSheet grid.SheetID) (CellRefRange, grid.SheetID, error) {
	sheet := defaultSheet
	if name, consumed, err := p.tryParseSheetPrefix(); err != nil {
		return CellRefRange{}, grid.SheetID{}, err
	} else if consumed {
		if p.ch != '!' {
			return CellRefRange{}, grid.SheetID{}, ParseError{Kind: ErrInvalidRange, Token: name}
		}
		p.readChar() // consume '!'
		id, ok := p.ctx.sheetByName(name)
		if !ok {
			return CellRefRange{}, grid.SheetID{}, ParseError{Kind: ErrInvalidSheetName, Token: name}
		}
		if p.sawSheetQualifier {
			return CellRefRange{}, grid.SheetID{}, ParseError{Kind: ErrTooManySheets, Token: name}
		}
		p.sawSheetQualifier = true
		sheet = id
	}

	p.skipSpace()
	if p.ch == '*' {
		p.readChar()
		return SheetRange(AllRange()), sheet, nil
	}

	start := p.position
	rng, err := p.parseCellColOrRowRange()
	if err == nil {
		return SheetRange(rng), sheet, nil
	}
	// Fall back to a table reference.
	p.position, p.readPosition = start, start
	if start < len(p.input) {
		p.ch = p.input[start]
		p.readPosition = start + 1
	} else {
		p.ch = 0
	}
	tref, terr := p.parseTableRef()
	if terr != nil {
		return CellRefRange{}, grid.SheetID{}, err
	}
	return TableRange(tref), sheet, nil
}

// tryParseSheetPrefix speculatively consumes a quoted or plain sheet name
// followed by '!', restoring parser position if what follows isn't '!'.
func (p *parser) tryParseSheetPrefix() (name string, consumed bool, err error) {
	startPos, startRead, startCh := p.position, p.readPosition, p.ch
	if p.ch == '\'' {
		var b strings.Builder
		p.readChar()
		for {
			if p.ch == 0 {
				return "", false, ParseError{Kind: ErrInvalidSheetName, Token: b.String()}
			}
			if p.ch == '\'' {
				if p.peekChar() == '\'' {
					b.WriteByte('\'')
					p.readChar()
					p.readChar()
					continue
				}
				p.readChar()
				break
			}
			b.WriteByte(p.ch)
			p.readChar()
		}
		if p.ch != '!' {
			p.position, p.readPosition, p.ch = startPos, startRead, startCh
			return "", false, nil
		}
		return b.String(), true, nil
	}
	// Plain (unquoted) name: letters/digits/underscore, must not itself
	// look like a bare cell/column/row reference, and must be followed by
	// '!'.
	start := p.position
	for isNameByte(p.ch) {
		p.readChar()
	}
	if p.position == start || p.ch != '!' {
		p.position, p.readPosition, p.ch = startPos, startRead, startCh
		return "", false, nil
	}
	return p.input[start:p.position], true, nil
}

func isNameByte(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

// parseCellColOrRowRange handles cell_range | col_range | row_range.
func (p *parser) parseCellColOrRowRange() (RefRangeBounds, error) {
	start, startOK := p.tryParseCellOrColOrRow()
	if !startOK {
		return RefRangeBounds{}, ParseError{Kind: ErrInvalidRange, Token: p.remainder()}
	}
	if p.ch != ':' {
		return RefRangeBounds{Start: start, End: start}, nil
	}
	p.readChar()
	end, endOK := p.tryParseCellOrColOrRow()
	if !endOK {
		return RefRangeBounds{}, ParseError{Kind: ErrInvalidRange, Token: p.remainder()}
	}
	return normalizeBounds(start, end), nil
}

func (p *parser) remainder() string {
	if p.position >= len(p.input) {
		return ""
	}
	return p.input[p.position:]
}

// tryParseCellOrColOrRow parses one endpoint: [$]col[$]row, [$]col (column-
// only, row unbounded), or [$]row (row-only, prefixed implicitly: a bare
// integer means a row).
func (p *parser) tryParseCellOrColOrRow() (CellRef, bool) {
	colAbs := false
	if p.ch == '$' {
		colAbs = true
		p.readChar()
	}
	letterStart := p.position
	for p.ch >= 'A' && p.ch <= 'Z' || p.ch >= 'a' && p.ch <= 'z' {
		p.readChar()
	}
	letters := p.input[letterStart:p.position]

	if letters == "" {
		if colAbs {
			return CellRef{}, false
		}
		// row-only: [$]digits
		rowAbs := false
		if p.ch == '$' {
			rowAbs = true
			p.readChar()
		}
		row, ok := p.readDigits()
		if !ok {
			return CellRef{}, false
		}
		return CellRef{Col: 1, Row: row, ColAbsolute: false, RowAbsolute: rowAbs, }.withUnboundedCol(), true
	}

	col, ok := LettersToColumn(letters)
	if !ok {
		return CellRef{}, false
	}

	rowAbs := false
	if p.ch == '$' {
		rowAbs = true
		p.readChar()
	}
	digitStart := p.position
	row, hasRow := p.readDigits()
	if !hasRow {
		if rowAbs && p.position == digitStart {
			return CellRef{}, false
		}
		// column-only: row unbounded
		return CellRef{Col: col, Row: grid.Unbounded, ColAbsolute: colAbs}, true
	}
	return CellRef{Col: col, Row: row, ColAbsolute: colAbs, RowAbsolute: rowAbs}, true
}

func (c CellRef) withUnboundedCol() CellRef {
	c.Col = grid.Unbounded
	return c
}

func (p *parser) readDigits() (int64, bool) {
	start := p.position
	for p.ch >= '0' && p.ch <= '9' {
		p.readChar()
	}
	if p.position == start {
		return 0, false
	}
	n, err := strconv.ParseInt(p.input[start:p.position], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// normalizeBounds orders start/end so Start <= End on each axis, matching
// how a user may type "C1:A1" and expect "A1:C1" semantics.
func normalizeBounds(a, b CellRef) RefRangeBounds {
	start, end := a, b
	if !a.colUnbounded() && !b.colUnbounded() && b.Col < a.Col {
		start.Col, end.Col = b.Col, a.Col
		start.ColAbsolute, end.ColAbsolute = b.ColAbsolute, a.ColAbsolute
	}
	if !a.rowUnbounded() && !b.rowUnbounded() && b.Row < a.Row {
		start.Row, end.Row = b.Row, a.Row
		start.RowAbsolute, end.RowAbsolute = b.RowAbsolute, a.RowAbsolute
	}
	return RefRangeBounds{Start: start, End: end}
}

// parseTableRef handles table_name [ '[' column_spec ']' ].
func (p *parser) parseTableRef() (TableRef, error) {
	start := p.position
	for isNameByte(p.ch) {
		p.readChar()
	}
	name := p.input[start:p.position]
	if name == "" {
		return TableRef{}, ParseError{Kind: ErrInvalidTable, Token: p.remainder()}
	}
	if _, _, ok := p.ctx.table(name); !ok {
		return TableRef{}, ParseError{Kind: ErrInvalidTable, Token: name}
	}
	spec := TableColumnSpec{All: true}
	if p.ch == '[' {
		p.readChar()
		bracketStart := p.position
		for p.ch != ']' && p.ch != 0 {
			p.readChar()
		}
		if p.ch != ']' {
			return TableRef{}, ParseError{Kind: ErrInvalidTable, Token: name}
		}
		inner := p.input[bracketStart:p.position]
		p.readChar() // consume ']'
		spec = parseColumnSpec(inner)
	}
	return TableRef{TableName: name, Columns: spec}, nil
}

func parseColumnSpec(inner string) TableColumnSpec {
	inner = strings.TrimSpace(inner)
	if inner == "" || inner == "#ALL" {
		return TableColumnSpec{All: true}
	}
	includeHeader := false
	if strings.HasPrefix(inner, "#HEADERS,") {
		includeHeader = true
		inner = strings.TrimPrefix(inner, "#HEADERS,")
	}
	var cols []string
	for _, c := range strings.Split(inner, ",") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		cols = append(cols, c)
	}
	return TableColumnSpec{ColumnNames: cols, IncludeHeader: includeHeader}
}
