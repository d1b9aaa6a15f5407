package formula

import (
	"strings"
)

// Node is a parsed formula expression.
type Node interface {
	String() string
}

// Literal is a number, string or boolean constant.
type Literal struct {
	Value Value
}

// ColumnRef is a [Column Name] reference resolved against the row.
type ColumnRef struct {
	Name string
}

// UnaryOp is a prefix sign.
type UnaryOp struct {
	Op      TokenType
	Operand Node
}

// BinaryOp is an arithmetic, concatenation or comparison operation.
type BinaryOp struct {
	Op    TokenType
	Left  Node
	Right Node
}

// FunctionCall is NAME(arg, ...). Name is upper-cased.
type FunctionCall struct {
	Name string
	Args []Node
}

func (l *Literal) String() string {
	if l.Value.Kind() == KindText {
		return `"` + strings.ReplaceAll(l.Value.Text(), `"`, `""`) + `"`
	}
	return l.Value.Text()
}

func (c *ColumnRef) String() string { return "[" + c.Name + "]" }

func (u *UnaryOp) String() string { return "(" + u.Op.String() + u.Operand.String() + ")" }

func (b *BinaryOp) String() string {
	return "(" + b.Left.String() + " " + b.Op.String() + " " + b.Right.String() + ")"
}

func (f *FunctionCall) String() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.String()
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")"
}

// References returns the distinct column names referenced by n, in order
// of first appearance.
func References(n Node) []string {
	var refs []string
	seen := make(map[string]bool)
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case *ColumnRef:
			if !seen[n.Name] {
				seen[n.Name] = true
				refs = append(refs, n.Name)
			}
		case *UnaryOp:
			walk(n.Operand)
		case *BinaryOp:
			walk(n.Left)
			walk(n.Right)
		case *FunctionCall:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	walk(n)
	return refs
}
