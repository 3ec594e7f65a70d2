package exec

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/broyeztony/karlgrid/internal/grid"
)

func powFloat(base, exp float64) float64 { return math.Pow(base, exp) }

// Evaluator runs a parsed formula against a Grid snapshot plus the sheet it
// belongs to. Formula evaluation is pure over its input grid snapshot plus
// the A1Context.
type Evaluator struct {
	g       *grid.Grid
	sheet   grid.SheetID
	accessed []grid.SheetRect
}

func NewEvaluator(g *grid.Grid, sheet grid.SheetID) *Evaluator {
	return &Evaluator{g: g, sheet: sheet}
}

// Accessed returns every cell/range read during the last Run call, for the
// dependency graph's set_regions_for_pos.
func (e *Evaluator) Accessed() []grid.SheetRect { return e.accessed }

// Run parses and evaluates source (formula text without the leading "="),
// returning the resulting CellValue (Blank/Number/Text/.../Error) and, if
// the result is a 1xN or Nx1 or NxM shape, the full Array for spill.
func (e *Evaluator) Run(source string) (grid.CellValue, *grid.Array) {
	e.accessed = nil
	expr, err := ParseFormula(source)
	if err != nil {
		return grid.ErrorValue{Err: grid.RunError{Kind: grid.ErrExpected, Message: err.Error()}}, nil
	}
	v, evalErr := e.eval(expr)
	if evalErr != nil {
		return grid.ErrorValue{Err: *evalErr}, nil
	}
	if v.IsArray {
		a := v.Arr
		return a.At(0, 0), &a
	}
	return v.ToCellValue(), nil
}

func (e *Evaluator) eval(x expr) (Value, *grid.RunError) {
	switch n := x.(type) {
	case numberLit:
		r, ok := new(big.Rat).SetString(n.Literal)
		if !ok {
			f, ferr := strconv.ParseFloat(n.Literal, 64)
			if ferr != nil {
				return Value{}, &grid.RunError{Kind: grid.ErrNotANumber, Message: n.Literal}
			}
			r = ratFromFloat(f)
		}
		return single(grid.Number{Value: r}), nil
	case stringLit:
		return single(grid.Text{Value: n.Value}), nil
	case boolLit:
		return single(grid.Logical{Value: n.Value}), nil
	case unaryExpr:
		return e.evalUnary(n)
	case binaryExpr:
		return e.evalBinary(n)
	case refExpr:
		return e.evalRef(n)
	case rangeExpr:
		return e.evalRange(n)
	case callExpr:
		return e.evalCall(n)
	case arrayLit:
		return e.evalArrayLit(n)
	default:
		return Value{}, &grid.RunError{Kind: grid.ErrInternalError, Message: fmt.Sprintf("unhandled expr %T", x)}
	}
}

func (e *Evaluator) resolveSheet(name string) (grid.SheetID, *grid.RunError) {
	if name == "" {
		return e.sheet, nil
	}
	id, ok := e.g.SheetIDByName(name)
	if !ok {
		return grid.SheetID{}, &grid.RunError{Kind: grid.ErrRef, Message: "no such sheet: " + name}
	}
	return id, nil
}

func parseCellRefToPos(ref string) (grid.Pos, bool) {
	s := strings.TrimPrefix(ref, "$")
	i := 0
	for i < len(s) && ((s[i] >= 'A' && s[i] <= 'Z') || (s[i] >= 'a' && s[i] <= 'z')) {
		i++
	}
	if i == 0 {
		return grid.Pos{}, false
	}
	col, ok := lettersToColumn(s[:i])
	if !ok {
		return grid.Pos{}, false
	}
	rest := strings.TrimPrefix(s[i:], "$")
	row, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return grid.Pos{}, false
	}
	return grid.Pos{X: col, Y: row}, true
}

func lettersToColumn(letters string) (int64, bool) {
	letters = strings.ToUpper(letters)
	var col int64
	for i := 0; i < len(letters); i++ {
		c := letters[i]
		if c < 'A' || c > 'Z' {
			return 0, false
		}
		col = col*26 + int64(c-'A') + 1
	}
	return col, col > 0
}

func (e *Evaluator) evalRef(n refExpr) (Value, *grid.RunError) {
	sheetID, serr := e.resolveSheet(n.Sheet)
	if serr != nil {
		return Value{}, serr
	}
	pos, ok := parseCellRefToPos(n.Ref)
	if !ok {
		return Value{}, &grid.RunError{Kind: grid.ErrExpected, Message: "invalid reference: " + n.Ref}
	}
	e.accessed = append(e.accessed, grid.SheetRect{Sheet: sheetID, Rect: grid.Rect{Min: pos, Max: pos}})
	s := e.g.Sheet(sheetID)
	if s == nil {
		return Value{}, &grid.RunError{Kind: grid.ErrRef, Message: "sheet deleted"}
	}
	return single(s.DisplayValue(pos)), nil
}

func (e *Evaluator) evalRange(n rangeExpr) (Value, *grid.RunError) {
	sheetID, serr := e.resolveSheet(n.Sheet)
	if serr != nil {
		return Value{}, serr
	}
	start, ok1 := parseCellRefToPos(n.Start)
	end, ok2 := parseCellRefToPos(n.End)
	if !ok1 || !ok2 {
		return Value{}, &grid.RunError{Kind: grid.ErrExpected, Message: "invalid range"}
	}
	r := grid.NewRect(start.X, start.Y, end.X, end.Y)
	e.accessed = append(e.accessed, grid.SheetRect{Sheet: sheetID, Rect: r})
	s := e.g.Sheet(sheetID)
	if s == nil {
		return Value{}, &grid.RunError{Kind: grid.ErrRef, Message: "sheet deleted"}
	}
	w := int(r.Max.X - r.Min.X + 1)
	h := int(r.Max.Y - r.Min.Y + 1)
	arr := grid.NewArray(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			arr.Set(x, y, s.DisplayValue(grid.Pos{X: r.Min.X + int64(x), Y: r.Min.Y + int64(y)}))
		}
	}
	return arrayValue(arr), nil
}

func (e *Evaluator) evalArrayLit(n arrayLit) (Value, *grid.RunError) {
	h := len(n.Rows)
	w := 0
	for _, row := range n.Rows {
		if len(row) > w {
			w = len(row)
		}
	}
	arr := grid.NewArray(w, h)
	for y, row := range n.Rows {
		for x, cellExpr := range row {
			v, err := e.eval(cellExpr)
			if err != nil {
				return Value{}, err
			}
			arr.Set(x, y, v.ToCellValue())
		}
	}
	return arrayValue(arr), nil
}

func (e *Evaluator) evalUnary(n unaryExpr) (Value, *grid.RunError) {
	v, err := e.eval(n.Operand)
	if err != nil {
		return Value{}, err
	}
	if n.Op == tokenPlus {
		return v, nil
	}
	return e.mapNumeric(v, func(r *big.Rat) (*big.Rat, *grid.RunError) {
		return new(big.Rat).Neg(r), nil
	})
}

func (e *Evaluator) mapNumeric(v Value, f func(*big.Rat) (*big.Rat, *grid.RunError)) (Value, *grid.RunError) {
	if v.IsArray {
		out := grid.NewArray(v.Arr.Width, v.Arr.Height)
		for y := 0; y < v.Arr.Height; y++ {
			for x := 0; x < v.Arr.Width; x++ {
				n, ok := toNumber(v.Arr.At(x, y))
				if !ok {
					return Value{}, &grid.RunError{Kind: grid.ErrNotANumber, Message: "expected number"}
				}
				r, err := f(n)
				if err != nil {
					return Value{}, err
				}
				out.Set(x, y, grid.Number{Value: r})
			}
		}
		return arrayValue(out), nil
	}
	n, ok := toNumber(v.ToCellValue())
	if !ok {
		return Value{}, &grid.RunError{Kind: grid.ErrNotANumber, Message: "expected number"}
	}
	r, err := f(n)
	if err != nil {
		return Value{}, err
	}
	return single(grid.Number{Value: r}), nil
}

func (e *Evaluator) evalBinary(n binaryExpr) (Value, *grid.RunError) {
	l, lerr := e.eval(n.Left)
	if lerr != nil {
		return Value{}, lerr
	}
	r, rerr := e.eval(n.Right)
	if rerr != nil {
		return Value{}, rerr
	}
	if n.Op == tokenAmp {
		return single(grid.Text{Value: displayText(l.ToCellValue()) + displayText(r.ToCellValue())}), nil
	}
	switch n.Op {
	case tokenEq, tokenNotEq, tokenLt, tokenGt, tokenLe, tokenGe:
		c := grid.Compare(l.ToCellValue(), r.ToCellValue())
		var result bool
		switch n.Op {
		case tokenEq:
			result = c == 0
		case tokenNotEq:
			result = c != 0
		case tokenLt:
			result = c < 0
		case tokenGt:
			result = c > 0
		case tokenLe:
			result = c <= 0
		case tokenGe:
			result = c >= 0
		}
		return single(grid.Logical{Value: result}), nil
	}
	return e.evalArith(n.Op, l, r)
}

func displayText(v grid.CellValue) string {
	if v == nil {
		return ""
	}
	return v.Display()
}

func (e *Evaluator) evalArith(op tokenType, l, r Value) (Value, *grid.RunError) {
	if l.IsArray || r.IsArray {
		return e.evalArithArray(op, l, r)
	}
	ln, ok := toNumber(l.ToCellValue())
	if !ok {
		return Value{}, &grid.RunError{Kind: grid.ErrNotANumber, Message: "left operand is not a number"}
	}
	rn, ok := toNumber(r.ToCellValue())
	if !ok {
		return Value{}, &grid.RunError{Kind: grid.ErrNotANumber, Message: "right operand is not a number"}
	}
	res, err := arithOp(op, ln, rn)
	if err != nil {
		return Value{}, err
	}
	return single(grid.Number{Value: res}), nil
}

func arithOp(op tokenType, l, r *big.Rat) (*big.Rat, *grid.RunError) {
	switch op {
	case tokenPlus:
		return new(big.Rat).Add(l, r), nil
	case tokenMinus:
		return new(big.Rat).Sub(l, r), nil
	case tokenAsterisk:
		return new(big.Rat).Mul(l, r), nil
	case tokenSlash:
		if r.Sign() == 0 {
			return nil, &grid.RunError{Kind: grid.ErrDivideByZero, Message: "division by zero"}
		}
		return new(big.Rat).Quo(l, r), nil
	case tokenCaret:
		return ratPow(l, r)
	default:
		return nil, &grid.RunError{Kind: grid.ErrInternalError, Message: "unknown operator"}
	}
}

func ratPow(base, exp *big.Rat) (*big.Rat, *grid.RunError) {
	if !exp.IsInt() {
		bf, _ := base.Float64()
		ef, _ := exp.Float64()
		return ratFromFloat(powFloat(bf, ef)), nil
	}
	n := exp.Num().Int64()
	neg := n < 0
	if neg {
		n = -n
	}
	out := big.NewRat(1, 1)
	for i := int64(0); i < n; i++ {
		out.Mul(out, base)
	}
	if neg {
		if out.Sign() == 0 {
			return nil, &grid.RunError{Kind: grid.ErrDivideByZero, Message: "division by zero"}
		}
		out = new(big.Rat).Inv(out)
	}
	return out, nil
}

func (e *Evaluator) evalArithArray(op tokenType, l, r Value) (Value, *grid.RunError) {
	lw, lh := arrShape(l)
	rw, rh := arrShape(r)
	w, h := lw, lh
	if rw > w {
		w = rw
	}
	if rh > h {
		h = rh
	}
	out := grid.NewArray(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			lv := elementAt(l, x, y)
			rv := elementAt(r, x, y)
			ln, ok := toNumber(lv)
			if !ok {
				return Value{}, &grid.RunError{Kind: grid.ErrNotANumber, Message: "array element is not a number"}
			}
			rn, ok := toNumber(rv)
			if !ok {
				return Value{}, &grid.RunError{Kind: grid.ErrNotANumber, Message: "array element is not a number"}
			}
			res, err := arithOp(op, ln, rn)
			if err != nil {
				return Value{}, err
			}
			out.Set(x, y, grid.Number{Value: res})
		}
	}
	return arrayValue(out), nil
}

func arrShape(v Value) (int, int) {
	if !v.IsArray {
		return 1, 1
	}
	return v.Arr.Width, v.Arr.Height
}

// elementAt applies implicit broadcasting: a 1x1 (or scalar) operand
// repeats for every position in the other operand.
func elementAt(v Value, x, y int) grid.CellValue {
	if !v.IsArray {
		return v.ToCellValue()
	}
	ax, ay := x, y
	if v.Arr.Width == 1 {
		ax = 0
	}
	if v.Arr.Height == 1 {
		ay = 0
	}
	if ax >= v.Arr.Width || ay >= v.Arr.Height {
		return grid.Blank{}
	}
	return v.Arr.At(ax, ay)
}
