package view

import (
	"fmt"
	"strings"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/model"
)

// Edit is the wire form of an Action, tagged by Type. Only the fields the
// type uses are read.
type Edit struct {
	Type      string        `json:"type" yaml:"type"`
	Column    string        `json:"column,omitempty" yaml:"column,omitempty"`
	ColType   string        `json:"columnType,omitempty" yaml:"columnType,omitempty"`
	Formula   string        `json:"formula,omitempty" yaml:"formula,omitempty"`
	NewName   string        `json:"newName,omitempty" yaml:"newName,omitempty"`
	Index     int           `json:"index,omitempty" yaml:"index,omitempty"`
	Direction SortDirection `json:"direction,omitempty" yaml:"direction,omitempty"`
	Filter    *Filter       `json:"filter,omitempty" yaml:"filter,omitempty"`
	Row       int           `json:"row,omitempty" yaml:"row,omitempty"`
	Value     any           `json:"value,omitempty" yaml:"value,omitempty"`
}

// Action converts e. Unknown types are invalid_input errors.
func (e Edit) Action() (Action, error) {
	switch strings.ToLower(strings.TrimSpace(e.Type)) {
	case "add_column":
		return AddColumn{Column: model.Column{
			Name: e.Column, Type: model.ColumnType(e.ColType), Formula: e.Formula,
		}}, nil
	case "add_formula_column":
		return AddFormulaColumn{Name: e.Column, Formula: e.Formula}, nil
	case "remove_column":
		return RemoveColumn{Name: e.Column}, nil
	case "rename_column":
		return RenameColumn{Old: e.Column, New: e.NewName}, nil
	case "move_column":
		return MoveColumn{Name: e.Column, Index: e.Index}, nil
	case "set_sort":
		return SetSort{Column: e.Column, Direction: e.Direction}, nil
	case "add_filter":
		if e.Filter == nil {
			return nil, errs.New(errs.ErrKindInvalidInput, "add_filter needs a filter")
		}
		return AddFilter{Filter: *e.Filter}, nil
	case "clear_filters":
		return ClearFilters{}, nil
	case "set_cell":
		return SetCell{Row: e.Row, Column: e.Column, Value: e.Value}, nil
	}
	return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown view action %q", e.Type)
}

// ApplyEdits applies edits in order and stops at the first failure,
// returning the state reached so far with the error.
func (s State) ApplyEdits(edits []Edit) (State, error) {
	for i, e := range edits {
		a, err := e.Action()
		if err != nil {
			return s, errs.Wrap(errs.KindOf(err), fmt.Sprintf("edit %d (%s)", i, e.Type), err)
		}
		next, err := s.Apply(a)
		if err != nil {
			return s, errs.Wrap(errs.KindOf(err), fmt.Sprintf("edit %d (%s)", i, e.Type), err)
		}
		s = next
	}
	return s, nil
}
