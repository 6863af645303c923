package tools

import (
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
)

// calcFunctions are the math helpers exposed to expressions.
var calcFunctions = map[string]govaluate.ExpressionFunction{
	"sqrt":  unary(math.Sqrt),
	"log":   unary(math.Log),
	"log10": unary(math.Log10),
	"log2":  unary(math.Log2),
	"sin":   unary(math.Sin),
	"cos":   unary(math.Cos),
	"tan":   unary(math.Tan),
	"ceil":  unary(math.Ceil),
	"floor": unary(math.Floor),
	"abs":   unary(math.Abs),
	"round": unary(math.Round),
	"pow": func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("pow expects 2 arguments")
		}
		x, xok := toFloat(args[0])
		y, yok := toFloat(args[1])
		if !xok || !yok {
			return nil, fmt.Errorf("pow expects numeric arguments")
		}
		return math.Pow(x, y), nil
	},
	"min": variadic(math.Min),
	"max": variadic(math.Max),
}

var calcNames = map[string]any{
	"pi": math.Pi,
	"e":  math.E,
}

// Calculate evaluates a math expression and returns the printable result.
// Errors are returned as message strings for the model to read.
func Calculate(expression string) string {
	if expression == "" {
		return "Calculation error: empty expression"
	}
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(expression, calcFunctions)
	if err != nil {
		return fmt.Sprintf("Calculation error: %v", err)
	}
	result, err := expr.Evaluate(calcNames)
	if err != nil {
		return fmt.Sprintf("Calculation error: %v", err)
	}
	return formatResult(result)
}

// formatResult prints integral floats without the trailing ".0".
func formatResult(result any) string {
	if f, ok := result.(float64); ok {
		if f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return fmt.Sprintf("%d", int64(f))
		}
		return fmt.Sprintf("%.10g", f)
	}
	return fmt.Sprintf("%v", result)
}

func unary(fn func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expects 1 argument")
		}
		x, ok := toFloat(args[0])
		if !ok {
			return nil, fmt.Errorf("expects a numeric argument")
		}
		return fn(x), nil
	}
}

func variadic(fn func(float64, float64) float64) govaluate.ExpressionFunction {
	return func(args ...any) (any, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("expects at least 1 argument")
		}
		acc, ok := toFloat(args[0])
		if !ok {
			return nil, fmt.Errorf("expects numeric arguments")
		}
		for _, a := range args[1:] {
			x, ok := toFloat(a)
			if !ok {
				return nil, fmt.Errorf("expects numeric arguments")
			}
			acc = fn(acc, x)
		}
		return acc, nil
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	}
	return 0, false
}
