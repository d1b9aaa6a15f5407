package formula

import (
	"sort"
	"strings"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/model"
)

// Plan evaluates the formula columns of a column list in dependency order.
// Build it once per column layout and Apply it to every row.
type Plan struct {
	columns  []model.Column
	order    []plannedColumn
	failed   []string // formula columns that always yield ErrorValue
	problems map[string]error
}

type plannedColumn struct {
	name string
	prog *Program
}

// NewPlan compiles every formula column and orders them so that a column
// is computed after the formula columns it references.
//
// The returned error is non-nil when a formula fails to compile or when
// formula columns reference each other in a cycle; the plan is still
// usable and yields ErrorValue for the affected columns.
func NewPlan(columns []model.Column) (*Plan, error) {
	p := &Plan{columns: columns, problems: make(map[string]error)}

	progs := make(map[string]*Program)
	var formulaCols []string
	for _, c := range columns {
		if !c.IsFormula() {
			continue
		}
		formulaCols = append(formulaCols, c.Name)
		prog, err := Compile(c.Formula)
		if err != nil {
			p.problems[c.Name] = err
			continue
		}
		progs[c.Name] = prog
	}

	// Kahn's algorithm over formula -> formula edges, stable in declared order.
	indegree := make(map[string]int, len(progs))
	dependents := make(map[string][]string)
	for _, name := range formulaCols {
		prog, ok := progs[name]
		if !ok {
			continue
		}
		for _, ref := range prog.References() {
			if _, isFormula := progs[ref]; isFormula || p.problems[ref] != nil {
				indegree[name]++
				dependents[ref] = append(dependents[ref], name)
			}
		}
	}

	// Columns whose formula does not compile count as resolved (to ErrorValue).
	var queue []string
	for _, name := range formulaCols {
		if _, bad := p.problems[name]; bad {
			queue = append(queue, name)
		} else if indegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	done := make(map[string]bool)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if done[name] {
			continue
		}
		done[name] = true
		if prog, ok := progs[name]; ok {
			p.order = append(p.order, plannedColumn{name: name, prog: prog})
		} else {
			p.failed = append(p.failed, name)
		}
		for _, dep := range dependents[name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	var stuck []string
	for _, name := range formulaCols {
		if !done[name] {
			stuck = append(stuck, name)
			p.failed = append(p.failed, name)
		}
	}

	switch {
	case len(stuck) > 0:
		var cyclic, downstream []string
		for _, name := range stuck {
			if onCycle(name, progs, done) {
				cyclic = append(cyclic, name)
			} else {
				downstream = append(downstream, name)
			}
		}
		sorted := append([]string(nil), cyclic...)
		sort.Strings(sorted)
		err := errs.Newf(errs.ErrKindCycle, "circular formula references between columns: %s", strings.Join(sorted, ", "))
		for _, name := range cyclic {
			p.problems[name] = err
		}
		for _, name := range downstream {
			p.problems[name] = errs.Wrap(errs.ErrKindCycle, "column "+name+" depends on a circular reference", err)
		}
		return p, err
	case len(p.problems) > 0:
		for _, name := range formulaCols {
			if err := p.problems[name]; err != nil {
				return p, errs.Wrap(errs.KindOf(err), "formula column "+name, err)
			}
		}
	}
	return p, nil
}

// onCycle reports whether start can reach itself through unresolved
// formula columns.
func onCycle(start string, progs map[string]*Program, done map[string]bool) bool {
	seen := make(map[string]bool)
	stack := []string{start}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		prog, ok := progs[name]
		if !ok {
			continue
		}
		for _, ref := range prog.References() {
			if ref == start {
				return true
			}
			if _, isFormula := progs[ref]; !isFormula || done[ref] || seen[ref] {
				continue
			}
			seen[ref] = true
			stack = append(stack, ref)
		}
	}
	return false
}

// Order returns the formula column names in evaluation order. Columns on
// a cycle are reported through the error and left out.
func Order(columns []model.Column) ([]string, error) {
	p, err := NewPlan(columns)
	names := make([]string, len(p.order))
	for i, pc := range p.order {
		names[i] = pc.name
	}
	if errs.IsCycle(err) {
		return names, err
	}
	return names, nil
}

// Problems returns the compile or cycle error of each broken formula column.
func (p *Plan) Problems() map[string]error {
	return p.problems
}

// Apply returns a copy of row with every formula column filled in.
func (p *Plan) Apply(row model.Row) model.Row {
	out := row.Clone()
	for _, name := range p.failed {
		out[name] = ErrorValue
	}
	for _, pc := range p.order {
		v, err := pc.prog.Eval(out, p.columns)
		if err != nil {
			out[pc.name] = ErrorValue
			continue
		}
		out[pc.name] = v.Result()
	}
	return out
}

// ComputeRow is NewPlan followed by Apply for a single row.
func ComputeRow(row model.Row, columns []model.Column) model.Row {
	p, _ := NewPlan(columns)
	return p.Apply(row)
}
