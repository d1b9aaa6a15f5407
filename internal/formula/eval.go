// Package formula evaluates spreadsheet-style formulas against a single
// row of data.
//
// A formula references columns in brackets and combines them with
// arithmetic, comparison and a small library of functions:
//
//	[Price] * [Quantity]
//	IF([Total] > 100, "large", IF([Total] > 10, "medium", "small"))
//	ROUND([Revenue] / [Orders], 2)
//
// A bare reference to a text cell yields that text, so [Region] = "EMEA"
// compares strings; text used in arithmetic counts as 0.
//
// Evaluate never fails: any lexing, parsing or evaluation problem yields
// the cell value "#ERROR", and so does a result that overflows to
// infinity. Compile and Program expose the underlying
// errors for callers that want them (validation, API responses).
package formula

import (
	"fmt"
	"math"
	"strings"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/model"
)

// Program is a compiled formula, safe for concurrent use.
type Program struct {
	source string
	root   Node
	refs   []string
}

// Compile parses formula. An empty formula compiles to the constant 0.
func Compile(formula string) (*Program, error) {
	if strings.TrimSpace(formula) == "" {
		return &Program{source: formula, root: &Literal{Value: Number(0)}}, nil
	}
	root, err := Parse(formula)
	if err != nil {
		return nil, err
	}
	return &Program{source: formula, root: root, refs: References(root)}, nil
}

// Source returns the formula text the program was compiled from.
func (p *Program) Source() string { return p.source }

// References returns the column names the formula reads.
func (p *Program) References() []string { return p.refs }

// String returns the fully parenthesised form of the formula.
func (p *Program) String() string { return p.root.String() }

// Eval evaluates the program against row. columns supplies column types
// and lets references to formula columns absent from row be computed on
// demand.
func (p *Program) Eval(row model.Row, columns []model.Column) (v Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.Newf(errs.ErrKindUnknown, "formula panicked: %v", r)
		}
	}()
	e := newEvaluator(row, columns)
	v, err = e.eval(p.root)
	if err != nil {
		return Value{}, err
	}
	return finite(v)
}

// Evaluate computes formula against row and returns a float64, the
// strings "TRUE"/"FALSE", a plain string, or ErrorValue.
func Evaluate(formula string, row model.Row, columns []model.Column) any {
	prog, err := Compile(formula)
	if err != nil {
		return ErrorValue
	}
	v, err := prog.Eval(row, columns)
	if err != nil {
		return ErrorValue
	}
	return v.Result()
}

type evaluator struct {
	row       model.Row
	columns   map[string]model.Column
	resolving map[string]bool
	depth     int
}

func newEvaluator(row model.Row, columns []model.Column) *evaluator {
	cols := make(map[string]model.Column, len(columns))
	for _, c := range columns {
		cols[c.Name] = c
	}
	return &evaluator{row: row, columns: cols, resolving: make(map[string]bool)}
}

func (e *evaluator) eval(n Node) (Value, error) {
	switch n := n.(type) {
	case *Literal:
		return n.Value, nil
	case *ColumnRef:
		return e.column(n.Name)
	case *UnaryOp:
		v, err := e.eval(n.Operand)
		if err != nil {
			return Value{}, err
		}
		if n.Op == TokenMinus {
			return Number(-v.Number()), nil
		}
		return Number(v.Number()), nil
	case *BinaryOp:
		return e.binary(n)
	case *FunctionCall:
		return e.call(n)
	default:
		return Value{}, errs.Newf(errs.ErrKindUnknown, "unsupported node %T", n)
	}
}

// column resolves a [Name] reference. Missing and nil values are 0; a
// formula column missing from the row is computed from its formula.
func (e *evaluator) column(name string) (Value, error) {
	raw, ok := e.row[name]
	col, known := e.columns[name]

	if !ok && known && col.IsFormula() {
		return e.resolveFormula(col)
	}
	if !ok || raw == nil {
		return Number(0), nil
	}
	if s, isStr := raw.(string); isStr && s == ErrorValue {
		return Value{}, errs.Newf(errs.ErrKindQueryFailed, "column %q holds an error", name)
	}

	v := FromAny(raw)
	if known && col.Type == model.TypeNumber && v.Kind() == KindText {
		return Number(0), nil
	}
	return v, nil
}

func (e *evaluator) resolveFormula(col model.Column) (Value, error) {
	if e.resolving[col.Name] {
		return Value{}, errs.Newf(errs.ErrKindCycle, "column %q references itself", col.Name)
	}
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > MaxDepth {
		return Value{}, errs.New(errs.ErrKindCycle, "formula columns are nested too deeply")
	}

	root, err := Parse(col.Formula)
	if err != nil {
		return Value{}, err
	}
	e.resolving[col.Name] = true
	defer delete(e.resolving, col.Name)
	return e.eval(root)
}

func (e *evaluator) binary(n *BinaryOp) (Value, error) {
	l, err := e.eval(n.Left)
	if err != nil {
		return Value{}, err
	}
	r, err := e.eval(n.Right)
	if err != nil {
		return Value{}, err
	}

	switch n.Op {
	case TokenPlus:
		return finite(Number(l.Number() + r.Number()))
	case TokenMinus:
		return finite(Number(l.Number() - r.Number()))
	case TokenStar:
		return finite(Number(l.Number() * r.Number()))
	case TokenSlash:
		d := r.Number()
		if d == 0 {
			return Number(0), nil
		}
		return finite(Number(l.Number() / d))
	case TokenAmp:
		return Text(l.Text() + r.Text()), nil
	}
	return Bool(compare(n.Op, l, r)), nil
}

// finite rejects numbers that overflowed to infinity or became NaN.
func finite(v Value) (Value, error) {
	if v.kind == KindNumber && (math.IsInf(v.num, 0) || math.IsNaN(v.num)) {
		return Value{}, errs.New(errs.ErrKindInvalidInput, "numeric overflow")
	}
	return v, nil
}

// compare orders two text values lexically and anything else numerically.
func compare(op TokenType, l, r Value) bool {
	var c int
	if l.Kind() == KindText && r.Kind() == KindText {
		c = strings.Compare(l.Text(), r.Text())
	} else {
		a, b := l.Number(), r.Number()
		switch {
		case a < b:
			c = -1
		case a > b:
			c = 1
		}
	}

	switch op {
	case TokenEqual:
		return c == 0
	case TokenNotEqual:
		return c != 0
	case TokenLess:
		return c < 0
	case TokenLessEqual:
		return c <= 0
	case TokenGreater:
		return c > 0
	case TokenGreaterEqual:
		return c >= 0
	}
	return false
}

func (e *evaluator) call(n *FunctionCall) (Value, error) {
	switch n.Name {
	case "IF":
		cond, err := e.eval(n.Args[0])
		if err != nil {
			return Value{}, err
		}
		if cond.Truthy() {
			return e.eval(n.Args[1])
		}
		if len(n.Args) < 3 {
			return Bool(false), nil
		}
		return e.eval(n.Args[2])

	case "AND", "OR":
		want := n.Name == "OR"
		for _, a := range n.Args {
			v, err := e.eval(a)
			if err != nil {
				return Value{}, err
			}
			if v.Truthy() == want {
				return Bool(want), nil
			}
		}
		return Bool(!want), nil

	case "ISBLANK":
		if ref, ok := n.Args[0].(*ColumnRef); ok {
			raw, present := e.row[ref.Name]
			if !present || raw == nil {
				return Bool(true), nil
			}
			s, isStr := raw.(string)
			return Bool(isStr && strings.TrimSpace(s) == ""), nil
		}
		v, err := e.eval(n.Args[0])
		if err != nil {
			return Value{}, err
		}
		return Bool(v.Kind() == KindText && strings.TrimSpace(v.Text()) == ""), nil
	}

	fn, ok := functions[n.Name]
	if !ok || fn.call == nil {
		return Value{}, errs.Newf(errs.ErrKindSyntax, "unknown function %s", n.Name)
	}
	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := e.eval(a)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	v, err := fn.call(args)
	if err != nil {
		return Value{}, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("%s failed", n.Name), err)
	}
	return finite(v)
}
