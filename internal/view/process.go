package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/formula"
	"github.com/koustreak/datamodeler/internal/model"
)

// FilterOp compares a cell against a filter value.
type FilterOp string

const (
	OpEquals      FilterOp = "equals"
	OpNotEquals   FilterOp = "not_equals"
	OpContains    FilterOp = "contains"
	OpGreater     FilterOp = "gt"
	OpGreaterOrEq FilterOp = "gte"
	OpLess        FilterOp = "lt"
	OpLessOrEq    FilterOp = "lte"
	OpEmpty       FilterOp = "empty"
	OpNotEmpty    FilterOp = "not_empty"
)

func (op FilterOp) valid() bool {
	switch op {
	case OpEquals, OpNotEquals, OpContains, OpGreater, OpGreaterOrEq, OpLess, OpLessOrEq, OpEmpty, OpNotEmpty:
		return true
	}
	return false
}

// Filter keeps rows whose Column satisfies Operator against Value.
type Filter struct {
	Column   string   `json:"column" yaml:"column"`
	Operator FilterOp `json:"operator" yaml:"operator"`
	Value    string   `json:"value,omitempty" yaml:"value,omitempty"`
}

// Match reports whether row passes f. Comparisons are numeric when both
// sides are numbers and case-insensitive text otherwise.
func (f Filter) Match(row model.Row) bool {
	cell := formula.FromAny(row[f.Column])
	blank := isBlank(row[f.Column])

	switch f.Operator {
	case OpEmpty:
		return blank
	case OpNotEmpty:
		return !blank
	case OpContains:
		return strings.Contains(strings.ToLower(cell.Text()), strings.ToLower(f.Value))
	}

	c := compareValues(cell, formula.FromAny(f.Value))
	switch f.Operator {
	case OpEquals:
		return c == 0
	case OpNotEquals:
		return c != 0
	case OpGreater:
		return c > 0
	case OpGreaterOrEq:
		return c >= 0
	case OpLess:
		return c < 0
	case OpLessOrEq:
		return c <= 0
	}
	return false
}

// isBlank reports whether a cell is missing, nil or empty text.
func isBlank(raw any) bool {
	return raw == nil || formula.FromAny(raw).Text() == ""
}

func compareValues(a, b formula.Value) int {
	if a.Kind() == formula.KindNumber && b.Kind() == formula.KindNumber {
		switch x, y := a.Number(), b.Number(); {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return strings.Compare(strings.ToLower(a.Text()), strings.ToLower(b.Text()))
}

// Processed returns the rows as displayed: formula columns computed for
// every row, then filtered, then sorted. Nothing is cached; every call
// recomputes from the stored rows.
func (s State) Processed() []model.Row {
	plan, _ := formula.NewPlan(s.Columns)

	out := make([]model.Row, 0, len(s.Rows))
	for _, r := range s.Rows {
		row := plan.Apply(r)
		if s.matches(row) {
			out = append(out, row)
		}
	}

	if s.Sort != nil {
		col, desc := s.Sort.Column, s.Sort.Direction == Descending
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i][col], out[j][col]
			// Blank cells sort last in both directions.
			if ab, bb := isBlank(a), isBlank(b); ab || bb {
				return !ab && bb
			}
			c := compareValues(formula.FromAny(a), formula.FromAny(b))
			if desc {
				return c > 0
			}
			return c < 0
		})
	}
	return out
}

func (s State) matches(row model.Row) bool {
	for _, f := range s.Filters {
		if !f.Match(row) {
			return false
		}
	}
	return true
}

// Aggregation is a summary function over one column.
type Aggregation string

const (
	AggSum      Aggregation = "sum"
	AggAvg      Aggregation = "avg"
	AggCount    Aggregation = "count"
	AggMin      Aggregation = "min"
	AggMax      Aggregation = "max"
	AggDistinct Aggregation = "distinct"
)

// Aggregations lists the supported functions.
func Aggregations() []Aggregation {
	return []Aggregation{AggSum, AggAvg, AggCount, AggMin, AggMax, AggDistinct}
}

// Aggregate summarises column over rows. count counts non-blank cells and
// distinct counts distinct non-blank values. The numeric functions skip
// cells that are not numbers, and min, max and avg of no numbers are 0.
func Aggregate(rows []model.Row, column string, fn Aggregation) (float64, error) {
	var (
		sum, lo, hi float64
		nums, count int
		seen        = make(map[string]struct{})
	)
	for _, r := range rows {
		raw := r[column]
		if isBlank(raw) {
			continue
		}
		v := formula.FromAny(raw)
		count++
		seen[fmt.Sprint(v.Result())] = struct{}{}
		if v.Kind() != formula.KindNumber {
			continue
		}
		n := v.Number()
		if nums == 0 || n < lo {
			lo = n
		}
		if nums == 0 || n > hi {
			hi = n
		}
		sum += n
		nums++
	}

	switch Aggregation(strings.ToLower(string(fn))) {
	case AggSum:
		return sum, nil
	case AggAvg:
		if nums == 0 {
			return 0, nil
		}
		return sum / float64(nums), nil
	case AggCount:
		return float64(count), nil
	case AggMin:
		return lo, nil
	case AggMax:
		return hi, nil
	case AggDistinct:
		return float64(len(seen)), nil
	}
	return 0, errs.Newf(errs.ErrKindInvalidInput, "unknown aggregation %q", fn)
}
