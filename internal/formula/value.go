package formula

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrorValue is the in-band result of a formula that could not be evaluated.
const ErrorValue = "#ERROR"

// Kind is the dynamic type of a Value.
type Kind int

const (
	KindNumber Kind = iota
	KindText
	KindBool
)

// Value is a scalar produced while evaluating a formula.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
}

func Number(f float64) Value { return Value{kind: KindNumber, num: f} }
func Text(s string) Value    { return Value{kind: KindText, str: s} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind { return v.kind }

// Number coerces v to a number. Text that does not parse to a finite
// number is 0.
func (v Value) Number() float64 {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	default:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	}
}

// Text renders v the way a grid cell shows it.
func (v Value) Text() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		if v.b {
			return "TRUE"
		}
		return "FALSE"
	default:
		return v.str
	}
}

// Truthy is the condition semantics used by IF, AND, OR and NOT.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0
	default:
		switch strings.ToUpper(strings.TrimSpace(v.str)) {
		case "", "FALSE", "0":
			return false
		}
		return true
	}
}

// Result is the final cell value: float64 for numbers, "TRUE"/"FALSE"
// for booleans, and the bare string for text.
func (v Value) Result() any {
	if v.kind == KindNumber {
		return v.num
	}
	return v.Text()
}

func (v Value) String() string { return v.Text() }

// FromAny converts a row value into a Value. Numbers and numeric-looking
// strings become numbers; nil becomes 0.
func FromAny(x any) Value {
	switch x := x.(type) {
	case nil:
		return Number(0)
	case Value:
		return x
	case float64:
		return Number(x)
	case float32:
		return Number(float64(x))
	case int:
		return Number(float64(x))
	case int8:
		return Number(float64(x))
	case int16:
		return Number(float64(x))
	case int32:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case uint:
		return Number(float64(x))
	case uint8:
		return Number(float64(x))
	case uint16:
		return Number(float64(x))
	case uint32:
		return Number(float64(x))
	case uint64:
		return Number(float64(x))
	case bool:
		return Bool(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Text(x.String())
		}
		return Number(f)
	case time.Time:
		return Text(x.Format(time.DateOnly))
	case string:
		return fromString(x)
	case []byte:
		return fromString(string(x))
	default:
		return fromString(fmt.Sprint(x))
	}
}

func fromString(s string) Value {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Text(s)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return Number(f)
	}
	return Text(s)
}
