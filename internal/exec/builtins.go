package exec

import (
	"math/big"
	"strings"

	"github.com/broyeztony/karlgrid/internal/grid"
)

// evalCall dispatches a function call. The builtin set is intentionally
// small: enough to exercise arithmetic, aggregation, branching, and text
// concatenation end to end, following interpreter/interpreter.go's
// approach of a flat name->implementation table rather than a class
// hierarchy.
func (e *Evaluator) evalCall(n callExpr) (Value, *grid.RunError) {
	name := strings.ToUpper(n.Name)
	fn, ok := builtins[name]
	if !ok {
		return Value{}, &grid.RunError{Kind: grid.ErrExpected, Message: "unknown function " + n.Name}
	}
	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := e.eval(a)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	return fn(args)
}

type builtinFn func(args []Value) (Value, *grid.RunError)

var builtins map[string]builtinFn

func init() {
	builtins = map[string]builtinFn{
		"SUM":     builtinSum,
		"AVERAGE": builtinAverage,
		"COUNT":   builtinCount,
		"MIN":     builtinMin,
		"MAX":     builtinMax,
		"IF":      builtinIf,
		"CONCAT":  builtinConcat,
		"ABS":     builtinAbs,
		"NOT":     builtinNot,
		"AND":     builtinAnd,
		"OR":      builtinOr,
	}
}

func flattenNumbers(args []Value) ([]*big.Rat, *grid.RunError) {
	var out []*big.Rat
	var walk func(v Value)
	var walkErr *grid.RunError
	walk = func(v Value) {
		if v.IsArray {
			for y := 0; y < v.Arr.Height; y++ {
				for x := 0; x < v.Arr.Width; x++ {
					cv := v.Arr.At(x, y)
					if grid.IsBlank(cv) {
						continue
					}
					n, ok := toNumber(cv)
					if !ok {
						walkErr = &grid.RunError{Kind: grid.ErrNotANumber, Message: "non-numeric value in range"}
						return
					}
					out = append(out, n)
				}
			}
			return
		}
		cv := v.ToCellValue()
		if grid.IsBlank(cv) {
			return
		}
		n, ok := toNumber(cv)
		if !ok {
			walkErr = &grid.RunError{Kind: grid.ErrNotANumber, Message: "non-numeric argument"}
			return
		}
		out = append(out, n)
	}
	for _, a := range args {
		walk(a)
		if walkErr != nil {
			return nil, walkErr
		}
	}
	return out, nil
}

func builtinSum(args []Value) (Value, *grid.RunError) {
	nums, err := flattenNumbers(args)
	if err != nil {
		return Value{}, err
	}
	sum := big.NewRat(0, 1)
	for _, n := range nums {
		sum.Add(sum, n)
	}
	return single(grid.Number{Value: sum}), nil
}

func builtinAverage(args []Value) (Value, *grid.RunError) {
	nums, err := flattenNumbers(args)
	if err != nil {
		return Value{}, err
	}
	if len(nums) == 0 {
		return Value{}, &grid.RunError{Kind: grid.ErrDivideByZero, Message: "AVERAGE of no values"}
	}
	sum := big.NewRat(0, 1)
	for _, n := range nums {
		sum.Add(sum, n)
	}
	return single(grid.Number{Value: new(big.Rat).Quo(sum, big.NewRat(int64(len(nums)), 1))}), nil
}

func builtinCount(args []Value) (Value, *grid.RunError) {
	nums, err := flattenNumbers(args)
	if err != nil {
		return Value{}, err
	}
	return single(grid.NewNumber(int64(len(nums)))), nil
}

func builtinMin(args []Value) (Value, *grid.RunError) {
	nums, err := flattenNumbers(args)
	if err != nil {
		return Value{}, err
	}
	if len(nums) == 0 {
		return single(grid.NewNumber(0)), nil
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n.Cmp(m) < 0 {
			m = n
		}
	}
	return single(grid.Number{Value: m}), nil
}

func builtinMax(args []Value) (Value, *grid.RunError) {
	nums, err := flattenNumbers(args)
	if err != nil {
		return Value{}, err
	}
	if len(nums) == 0 {
		return single(grid.NewNumber(0)), nil
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n.Cmp(m) > 0 {
			m = n
		}
	}
	return single(grid.Number{Value: m}), nil
}

func truthy(v grid.CellValue) bool {
	switch t := v.(type) {
	case grid.Logical:
		return t.Value
	case grid.Number:
		return t.Value.Sign() != 0
	case grid.Blank:
		return false
	default:
		return true
	}
}

func builtinIf(args []Value) (Value, *grid.RunError) {
	if len(args) < 2 || len(args) > 3 {
		if len(args) < 2 {
			return Value{}, &grid.RunError{Kind: grid.ErrMissingRequiredArgument, Message: "IF requires at least 2 arguments"}
		}
		return Value{}, &grid.RunError{Kind: grid.ErrTooManyArguments, Message: "IF takes at most 3 arguments"}
	}
	if truthy(args[0].ToCellValue()) {
		return args[1], nil
	}
	if len(args) == 3 {
		return args[2], nil
	}
	return single(grid.Blank{}), nil
}

func builtinConcat(args []Value) (Value, *grid.RunError) {
	var b strings.Builder
	for _, a := range args {
		b.WriteString(displayText(a.ToCellValue()))
	}
	return single(grid.Text{Value: b.String()}), nil
}

func builtinAbs(args []Value) (Value, *grid.RunError) {
	if len(args) != 1 {
		return Value{}, &grid.RunError{Kind: grid.ErrMissingRequiredArgument, Message: "ABS requires exactly 1 argument"}
	}
	n, ok := toNumber(args[0].ToCellValue())
	if !ok {
		return Value{}, &grid.RunError{Kind: grid.ErrNotANumber, Message: "ABS expects a number"}
	}
	return single(grid.Number{Value: new(big.Rat).Abs(n)}), nil
}

func builtinNot(args []Value) (Value, *grid.RunError) {
	if len(args) != 1 {
		return Value{}, &grid.RunError{Kind: grid.ErrMissingRequiredArgument, Message: "NOT requires exactly 1 argument"}
	}
	return single(grid.Logical{Value: !truthy(args[0].ToCellValue())}), nil
}

func builtinAnd(args []Value) (Value, *grid.RunError) {
	for _, a := range args {
		if !truthy(a.ToCellValue()) {
			return single(grid.Logical{Value: false}), nil
		}
	}
	return single(grid.Logical{Value: true}), nil
}

func builtinOr(args []Value) (Value, *grid.RunError) {
	for _, a := range args {
		if truthy(a.ToCellValue()) {
			return single(grid.Logical{Value: true}), nil
		}
	}
	return single(grid.Logical{Value: false}), nil
}
