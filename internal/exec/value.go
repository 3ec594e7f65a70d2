package exec

import (
	"math/big"

	"github.com/broyeztony/karlgrid/internal/grid"
)

// Value is the evaluator's runtime value: either a single CellValue or a
// 2D Array: Value ∈ {Single(CellValue), Array(Array)}.
type Value struct {
	IsArray bool
	Single  grid.CellValue
	Arr     grid.Array
}

func single(v grid.CellValue) Value { return Value{Single: v} }
func arrayValue(a grid.Array) Value { return Value{IsArray: true, Arr: a} }

// ToCellValue collapses a Value to a single CellValue, taking the (0,0)
// element of an array per the language's implicit-intersection behavior
// for scalar contexts.
func (v Value) ToCellValue() grid.CellValue {
	if !v.IsArray {
		if v.Single == nil {
			return grid.Blank{}
		}
		return v.Single
	}
	if v.Arr.Width == 0 || v.Arr.Height == 0 {
		return grid.Blank{}
	}
	return v.Arr.At(0, 0)
}

func errorValue(kind grid.ErrorKind, msg string) Value {
	return single(grid.ErrorValue{Err: grid.RunError{Kind: kind, Message: msg}})
}

func asError(v grid.CellValue) (grid.RunError, bool) {
	if e, ok := v.(grid.ErrorValue); ok {
		return e.Err, true
	}
	return grid.RunError{}, false
}

func ratFromFloat(f float64) *big.Rat { return new(big.Rat).SetFloat64(f) }

func toNumber(v grid.CellValue) (*big.Rat, bool) {
	switch t := v.(type) {
	case grid.Number:
		return t.Value, true
	case grid.Logical:
		if t.Value {
			return big.NewRat(1, 1), true
		}
		return big.NewRat(0, 1), true
	case grid.Blank:
		return big.NewRat(0, 1), true
	default:
		return nil, false
	}
}

func numberToString(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	f, _ := r.Float64()
	return big.NewFloat(f).Text('g', 15)
}
