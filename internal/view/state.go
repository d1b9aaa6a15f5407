// Package view holds the data grid: a column layout over a set of rows,
// edited through actions and rendered with formula columns computed,
// filters applied and rows sorted.
package view

import (
	"github.com/google/uuid"
	"github.com/koustreak/datamodeler/internal/model"
)

// SortDirection orders the grid.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// Sort is the active sort. A nil *Sort leaves rows in stored order.
type Sort struct {
	Column    string        `json:"column" yaml:"column"`
	Direction SortDirection `json:"direction" yaml:"direction"`
}

// State is an immutable snapshot of a view. Apply returns a new State and
// never modifies the receiver's slices or rows.
type State struct {
	ID      string         `json:"id" yaml:"id"`
	Name    string         `json:"name" yaml:"name"`
	Columns []model.Column `json:"columns" yaml:"columns"`
	Rows    []model.Row    `json:"rows" yaml:"rows"`
	Sort    *Sort          `json:"sort,omitempty" yaml:"sort,omitempty"`
	Filters []Filter       `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// New returns a view over columns and rows with a fresh ID.
func New(name string, columns []model.Column, rows []model.Row) State {
	return State{
		ID:      uuid.NewString(),
		Name:    name,
		Columns: columns,
		Rows:    rows,
	}
}

// Column returns the column with the given name.
func (s State) Column(name string) (model.Column, bool) {
	if i := s.columnIndex(name); i >= 0 {
		return s.Columns[i], true
	}
	return model.Column{}, false
}

// ColumnNames lists the columns in display order.
func (s State) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Apply returns the state after a.
func (s State) Apply(a Action) (State, error) {
	return a.apply(s)
}

func (s State) columnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// withColumns returns s sharing everything except a copied column slice.
func (s State) withColumns(cols []model.Column) State {
	s.Columns = cols
	return s
}

func cloneColumns(cols []model.Column) []model.Column {
	return append([]model.Column(nil), cols...)
}

func cloneFilters(fs []Filter) []Filter {
	return append([]Filter(nil), fs...)
}
