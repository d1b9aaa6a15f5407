package formula

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// function is a built-in callable. IF, AND and OR are evaluated lazily by
// the evaluator and have no call body.
type function struct {
	minArgs int
	maxArgs int // -1 for variadic
	call    func(args []Value) (Value, error)
}

func (f function) checkArity(n int) error {
	switch {
	case n < f.minArgs && f.minArgs == f.maxArgs:
		return fmt.Errorf("expects %d argument(s), got %d", f.minArgs, n)
	case n < f.minArgs:
		return fmt.Errorf("expects at least %d argument(s), got %d", f.minArgs, n)
	case f.maxArgs >= 0 && n > f.maxArgs:
		return fmt.Errorf("expects at most %d argument(s), got %d", f.maxArgs, n)
	}
	return nil
}

var functions = map[string]function{
	"IF":      {minArgs: 2, maxArgs: 3},
	"AND":     {minArgs: 1, maxArgs: -1},
	"OR":      {minArgs: 1, maxArgs: -1},
	"ISBLANK": {minArgs: 1, maxArgs: 1},
	"NOT": {minArgs: 1, maxArgs: 1, call: func(a []Value) (Value, error) {
		return Bool(!a[0].Truthy()), nil
	}},
	"ABS": {minArgs: 1, maxArgs: 1, call: func(a []Value) (Value, error) {
		return Number(math.Abs(a[0].Number())), nil
	}},
	"ROUND":  {minArgs: 1, maxArgs: 2, call: round},
	"MIN":    {minArgs: 1, maxArgs: -1, call: fold(math.Min)},
	"MAX":    {minArgs: 1, maxArgs: -1, call: fold(math.Max)},
	"SUM":    {minArgs: 1, maxArgs: -1, call: fold(func(a, b float64) float64 { return a + b })},
	"AVG":    {minArgs: 1, maxArgs: -1, call: avg},
	"CONCAT": {minArgs: 1, maxArgs: -1, call: concat},
	"UPPER": {minArgs: 1, maxArgs: 1, call: func(a []Value) (Value, error) {
		return Text(strings.ToUpper(a[0].Text())), nil
	}},
	"LOWER": {minArgs: 1, maxArgs: 1, call: func(a []Value) (Value, error) {
		return Text(strings.ToLower(a[0].Text())), nil
	}},
	"LEN": {minArgs: 1, maxArgs: 1, call: func(a []Value) (Value, error) {
		return Number(float64(utf8.RuneCountInString(a[0].Text()))), nil
	}},
}

// Functions returns the names of the built-in functions.
func Functions() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	return names
}

func round(a []Value) (Value, error) {
	x := a[0].Number()
	digits := 0.0
	if len(a) == 2 {
		digits = math.Trunc(a[1].Number())
	}
	if digits < -15 || digits > 15 {
		return Value{}, fmt.Errorf("ROUND digits out of range: %v", digits)
	}
	scale := math.Pow(10, digits)
	return Number(math.Round(x*scale) / scale), nil
}

func fold(op func(a, b float64) float64) func([]Value) (Value, error) {
	return func(a []Value) (Value, error) {
		acc := a[0].Number()
		for _, v := range a[1:] {
			acc = op(acc, v.Number())
		}
		return Number(acc), nil
	}
}

func avg(a []Value) (Value, error) {
	sum := 0.0
	for _, v := range a {
		sum += v.Number()
	}
	return Number(sum / float64(len(a))), nil
}

func concat(a []Value) (Value, error) {
	var sb strings.Builder
	for _, v := range a {
		sb.WriteString(v.Text())
	}
	return Text(sb.String()), nil
}
