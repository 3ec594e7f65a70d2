package exec

import "fmt"

type (
	prefixParseFn func() (expr, error)
	infixParseFn  func(expr) (expr, error)
)

const (
	_ int = iota
	lowest
	comparison
	concatPrec
	sum
	product
	power
	prefixPrec
)

var precedences = map[tokenType]int{
	tokenEq:    comparison,
	tokenNotEq: comparison,
	tokenLt:    comparison,
	tokenGt:    comparison,
	tokenLe:    comparison,
	tokenGe:    comparison,
	tokenAmp:   concatPrec,
	tokenPlus:  sum,
	tokenMinus: sum,
	tokenAsterisk: product,
	tokenSlash:    product,
	tokenCaret:    power,
}

// parser is a small Pratt parser, grounded on parser/parser.go's
// prefix/infix function-table design.
type parser struct {
	l *lexer

	cur, peek token

	prefixFns map[tokenType]prefixParseFn
	infixFns  map[tokenType]infixParseFn
}

func newParser(input string) *parser {
	p := &parser{l: newLexer(input)}
	p.prefixFns = map[tokenType]prefixParseFn{
		tokenNumber:   p.parseNumber,
		tokenString:   p.parseString,
		tokenBool:     p.parseBool,
		tokenMinus:    p.parseUnary,
		tokenPlus:     p.parseUnary,
		tokenLParen:   p.parseGrouped,
		tokenLBrace:   p.parseArray,
		tokenIdent:    p.parseIdentOrCall,
		tokenCellRef:  p.parseCellRefOrRange,
	}
	p.infixFns = map[tokenType]infixParseFn{
		tokenPlus:     p.parseBinary,
		tokenMinus:    p.parseBinary,
		tokenAsterisk: p.parseBinary,
		tokenSlash:    p.parseBinary,
		tokenCaret:    p.parseBinary,
		tokenAmp:      p.parseBinary,
		tokenEq:       p.parseBinary,
		tokenNotEq:    p.parseBinary,
		tokenLt:       p.parseBinary,
		tokenGt:       p.parseBinary,
		tokenLe:       p.parseBinary,
		tokenGe:       p.parseBinary,
	}
	p.next()
	p.next()
	return p
}

func (p *parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *parser) peekPrecedence() int {
	if pr, ok := precedences[p.peek.Type]; ok {
		return pr
	}
	return lowest
}

// ParseFormula parses source (without a leading "=") into an expression
// tree.
func ParseFormula(source string) (expr, error) {
	p := newParser(source)
	e, err := p.parseExpr(lowest)
	if err != nil {
		return nil, err
	}
	if p.cur.Type != tokenEOF {
		return nil, fmt.Errorf("unexpected trailing token %q at offset %d", p.cur.Literal, p.cur.Offset)
	}
	return e, nil
}

func (p *parser) parseExpr(precedence int) (expr, error) {
	prefix, ok := p.prefixFns[p.cur.Type]
	if !ok {
		return nil, fmt.Errorf("unexpected token %q at offset %d", p.cur.Literal, p.cur.Offset)
	}
	left, err := prefix()
	if err != nil {
		return nil, err
	}
	for p.cur.Type != tokenEOF && precedence < p.curPrecedence() {
		infix, ok := p.infixFns[p.cur.Type]
		if !ok {
			return left, nil
		}
		left, err = infix(left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *parser) curPrecedence() int {
	if pr, ok := precedences[p.cur.Type]; ok {
		return pr
	}
	return lowest
}

func (p *parser) parseNumber() (expr, error) {
	lit := p.cur.Literal
	p.next()
	return numberLit{Literal: lit}, nil
}

func (p *parser) parseString() (expr, error) {
	v := p.cur.Literal
	p.next()
	return stringLit{Value: v}, nil
}

func (p *parser) parseBool() (expr, error) {
	v := p.cur.Literal == "TRUE" || p.cur.Literal == "true" || p.cur.Literal == "True"
	p.next()
	return boolLit{Value: v}, nil
}

func (p *parser) parseUnary() (expr, error) {
	op := p.cur.Type
	p.next()
	operand, err := p.parseExpr(prefixPrec)
	if err != nil {
		return nil, err
	}
	return unaryExpr{Op: op, Operand: operand}, nil
}

func (p *parser) parseGrouped() (expr, error) {
	p.next() // consume '('
	e, err := p.parseExpr(lowest)
	if err != nil {
		return nil, err
	}
	if p.cur.Type != tokenRParen {
		return nil, fmt.Errorf("expected ')' at offset %d", p.cur.Offset)
	}
	p.next()
	return e, nil
}

func (p *parser) parseBinary(left expr) (expr, error) {
	op := p.cur.Type
	prec := p.curPrecedence()
	p.next()
	right, err := p.parseExpr(prec)
	if err != nil {
		return nil, err
	}
	return binaryExpr{Op: op, Left: left, Right: right}, nil
}

// parseIdentOrCall handles both "NAME(args)" and a sheet-qualified
// reference "Sheet!A1" / "Sheet!A1:B2" (the identifier is the sheet name,
// '!' separates it from the cell reference).
func (p *parser) parseIdentOrCall() (expr, error) {
	name := p.cur.Literal
	p.next()
	if p.cur.Type == tokenLParen {
		return p.parseCall(name)
	}
	if p.cur.Type == tokenBang {
		p.next()
		if p.cur.Type != tokenCellRef {
			return nil, fmt.Errorf("expected cell reference after '%s!' at offset %d", name, p.cur.Offset)
		}
		return p.parseCellRefOrRangeWithSheet(name)
	}
	return nil, fmt.Errorf("unknown identifier %q at offset %d", name, p.cur.Offset)
}

func (p *parser) parseCall(name string) (expr, error) {
	p.next() // consume '('
	var args []expr
	if p.cur.Type != tokenRParen {
		for {
			arg, err := p.parseExpr(lowest)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur.Type == tokenComma {
				p.next()
				continue
			}
			break
		}
	}
	if p.cur.Type != tokenRParen {
		return nil, fmt.Errorf("expected ')' after arguments to %s at offset %d", name, p.cur.Offset)
	}
	p.next()
	return callExpr{Name: name, Args: args}, nil
}

func (p *parser) parseCellRefOrRange() (expr, error) {
	// A sheet name shaped like a cell reference ("Sheet1") lexes as a
	// CELLREF token; a following '!' marks it as the sheet qualifier.
	if p.peek.Type == tokenBang {
		name := p.cur.Literal
		p.next()
		p.next()
		if p.cur.Type != tokenCellRef {
			return nil, fmt.Errorf("expected cell reference after '%s!' at offset %d", name, p.cur.Offset)
		}
		return p.parseCellRefOrRangeWithSheet(name)
	}
	return p.parseCellRefOrRangeWithSheet("")
}

func (p *parser) parseCellRefOrRangeWithSheet(sheet string) (expr, error) {
	start := p.cur.Literal
	p.next()
	if p.cur.Type == tokenColon {
		p.next()
		if p.cur.Type != tokenCellRef {
			return nil, fmt.Errorf("expected cell reference after ':' at offset %d", p.cur.Offset)
		}
		end := p.cur.Literal
		p.next()
		return rangeExpr{Sheet: sheet, Start: start, End: end}, nil
	}
	return refExpr{Sheet: sheet, Ref: start}, nil
}

// parseArray handles "{1;2;3}" (row-major, ';' separates rows, ','
// separates columns within a row).
func (p *parser) parseArray() (expr, error) {
	p.next() // consume '{'
	var rows [][]expr
	row := []expr{}
	for p.cur.Type != tokenRBrace {
		if p.cur.Type == tokenEOF {
			return nil, fmt.Errorf("unterminated array literal")
		}
		e, err := p.parseExpr(lowest)
		if err != nil {
			return nil, err
		}
		row = append(row, e)
		switch p.cur.Type {
		case tokenComma:
			p.next()
		case tokenSemi:
			rows = append(rows, row)
			row = []expr{}
			p.next()
		case tokenRBrace:
		default:
			return nil, fmt.Errorf("expected ',' ';' or '}' in array literal at offset %d", p.cur.Offset)
		}
	}
	rows = append(rows, row)
	p.next() // consume '}'
	return arrayLit{Rows: rows}, nil
}
