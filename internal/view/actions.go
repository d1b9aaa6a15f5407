package view

import (
	"strings"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/formula"
	"github.com/koustreak/datamodeler/internal/model"
)

// Action is one edit to a view.
type Action interface {
	apply(State) (State, error)
}

// AddColumn appends a stored column. Existing rows have no value for it.
type AddColumn struct {
	Column model.Column
}

func (a AddColumn) apply(s State) (State, error) {
	name := strings.TrimSpace(a.Column.Name)
	if name == "" {
		return s, errs.New(errs.ErrKindInvalidInput, "column name is required")
	}
	if s.columnIndex(name) >= 0 {
		return s, errs.Newf(errs.ErrKindInvalidInput, "column %q already exists", name)
	}
	col := a.Column
	col.Name = name
	if col.Type == "" {
		col.Type = model.TypeText
	}
	if col.IsFormula() {
		return AddFormulaColumn{Name: name, Formula: col.Formula}.apply(s)
	}
	return s.withColumns(append(cloneColumns(s.Columns), col)), nil
}

// AddFormulaColumn appends a column computed per row from Formula. The
// formula must parse and must not close a reference cycle.
type AddFormulaColumn struct {
	Name    string
	Formula string
}

func (a AddFormulaColumn) apply(s State) (State, error) {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return s, errs.New(errs.ErrKindInvalidInput, "column name is required")
	}
	if s.columnIndex(name) >= 0 {
		return s, errs.Newf(errs.ErrKindInvalidInput, "column %q already exists", name)
	}
	if _, err := formula.Compile(a.Formula); err != nil {
		return s, err
	}
	cols := append(cloneColumns(s.Columns), model.Column{Name: name, Type: model.TypeFormula, Formula: a.Formula})
	if _, err := formula.Order(cols); err != nil {
		return s, err
	}
	return s.withColumns(cols), nil
}

// RemoveColumn drops a column along with any sort or filter on it.
// Row values stay so that an undo can restore them.
type RemoveColumn struct {
	Name string
}

func (a RemoveColumn) apply(s State) (State, error) {
	i := s.columnIndex(a.Name)
	if i < 0 {
		return s, errs.Newf(errs.ErrKindNotFound, "column %q not found", a.Name)
	}
	cols := append(cloneColumns(s.Columns[:i]), s.Columns[i+1:]...)
	out := s.withColumns(cols)
	if out.Sort != nil && out.Sort.Column == a.Name {
		out.Sort = nil
	}
	var filters []Filter
	for _, f := range s.Filters {
		if f.Column != a.Name {
			filters = append(filters, f)
		}
	}
	out.Filters = filters
	return out, nil
}

// RenameColumn renames a column everywhere it is used: row keys, formula
// references, sort and filters.
type RenameColumn struct {
	Old string
	New string
}

func (a RenameColumn) apply(s State) (State, error) {
	newName := strings.TrimSpace(a.New)
	i := s.columnIndex(a.Old)
	switch {
	case i < 0:
		return s, errs.Newf(errs.ErrKindNotFound, "column %q not found", a.Old)
	case newName == "":
		return s, errs.New(errs.ErrKindInvalidInput, "column name is required")
	case newName == a.Old:
		return s, nil
	case s.columnIndex(newName) >= 0:
		return s, errs.Newf(errs.ErrKindInvalidInput, "column %q already exists", newName)
	}

	cols := cloneColumns(s.Columns)
	cols[i].Name = newName
	for j := range cols {
		if cols[j].IsFormula() {
			cols[j].Formula = formula.RenameReference(cols[j].Formula, a.Old, newName)
		}
	}

	rows := make([]model.Row, len(s.Rows))
	for j, r := range s.Rows {
		v, ok := r[a.Old]
		if !ok {
			rows[j] = r
			continue
		}
		nr := r.Clone()
		delete(nr, a.Old)
		nr[newName] = v
		rows[j] = nr
	}

	out := s.withColumns(cols)
	out.Rows = rows
	if s.Sort != nil && s.Sort.Column == a.Old {
		out.Sort = &Sort{Column: newName, Direction: s.Sort.Direction}
	}
	out.Filters = cloneFilters(s.Filters)
	for j := range out.Filters {
		if out.Filters[j].Column == a.Old {
			out.Filters[j].Column = newName
		}
	}
	return out, nil
}

// MoveColumn moves a column to Index, clamped to the valid range.
type MoveColumn struct {
	Name  string
	Index int
}

func (a MoveColumn) apply(s State) (State, error) {
	i := s.columnIndex(a.Name)
	if i < 0 {
		return s, errs.Newf(errs.ErrKindNotFound, "column %q not found", a.Name)
	}
	col := s.Columns[i]
	cols := append(cloneColumns(s.Columns[:i]), s.Columns[i+1:]...)
	to := min(max(a.Index, 0), len(cols))
	cols = append(cols[:to], append([]model.Column{col}, cols[to:]...)...)
	return s.withColumns(cols), nil
}

// SetSort sorts by Column. An empty Column clears the sort and an empty
// Direction means ascending.
type SetSort struct {
	Column    string
	Direction SortDirection
}

func (a SetSort) apply(s State) (State, error) {
	if a.Column == "" {
		s.Sort = nil
		return s, nil
	}
	if s.columnIndex(a.Column) < 0 {
		return s, errs.Newf(errs.ErrKindNotFound, "column %q not found", a.Column)
	}
	dir := SortDirection(strings.ToLower(string(a.Direction)))
	switch dir {
	case "":
		dir = Ascending
	case Ascending, Descending:
	default:
		return s, errs.Newf(errs.ErrKindInvalidInput, "unknown sort direction %q", a.Direction)
	}
	s.Sort = &Sort{Column: a.Column, Direction: dir}
	return s, nil
}

// AddFilter narrows the visible rows. All filters must match.
type AddFilter struct {
	Filter Filter
}

func (a AddFilter) apply(s State) (State, error) {
	if s.columnIndex(a.Filter.Column) < 0 {
		return s, errs.Newf(errs.ErrKindNotFound, "column %q not found", a.Filter.Column)
	}
	f := a.Filter
	f.Operator = FilterOp(strings.ToLower(strings.TrimSpace(string(f.Operator))))
	if !f.Operator.valid() {
		return s, errs.Newf(errs.ErrKindInvalidInput, "unknown filter operator %q", a.Filter.Operator)
	}
	s.Filters = append(cloneFilters(s.Filters), f)
	return s, nil
}

// ClearFilters removes every filter.
type ClearFilters struct{}

func (ClearFilters) apply(s State) (State, error) {
	s.Filters = nil
	return s, nil
}

// SetCell stores Value in a stored column of row Row.
type SetCell struct {
	Row    int
	Column string
	Value  any
}

func (a SetCell) apply(s State) (State, error) {
	if a.Row < 0 || a.Row >= len(s.Rows) {
		return s, errs.Newf(errs.ErrKindNotFound, "row %d out of range", a.Row)
	}
	col, ok := s.Column(a.Column)
	if !ok {
		return s, errs.Newf(errs.ErrKindNotFound, "column %q not found", a.Column)
	}
	if col.IsFormula() {
		return s, errs.Newf(errs.ErrKindInvalidInput, "column %q is computed", a.Column)
	}
	rows := append([]model.Row(nil), s.Rows...)
	r := rows[a.Row].Clone()
	r[a.Column] = a.Value
	rows[a.Row] = r
	s.Rows = rows
	return s, nil
}
