// Package model holds the logical data model edited on the modeling
// canvas: tables, their columns, and the relationships between them.
//
// Model is a plain value. Every mutating method validates its input and
// either applies the change or returns an invalid_input error leaving the
// model untouched, so callers can treat it as a reducer over user actions.
package model

import (
	"github.com/koustreak/datamodeler/internal/errs"
)

const (
	MinZoom     = 0.1
	MaxZoom     = 4.0
	DefaultZoom = 1.0
)

// Model is the single source of truth for the modeling canvas.
type Model struct {
	Name          string         `json:"name" yaml:"name"`
	Tables        []Table        `json:"tables" yaml:"tables"`
	Relationships []Relationship `json:"relationships" yaml:"relationships"`
	Zoom          float64        `json:"zoom,omitempty" yaml:"zoom,omitempty"`
	Pan           Position       `json:"pan" yaml:"pan"`
}

// New returns an empty model with default zoom.
func New(name string) *Model {
	return &Model{Name: name, Zoom: DefaultZoom}
}

// Table returns a pointer to the named table, or nil.
func (m *Model) Table(name string) *Table {
	for i := range m.Tables {
		if m.Tables[i].Name == name {
			return &m.Tables[i]
		}
	}
	return nil
}

// AddTable appends t. Table names must be unique and non-empty.
func (m *Model) AddTable(t Table) error {
	if t.Name == "" {
		return errs.New(errs.ErrKindInvalidInput, "table name is required")
	}
	if m.Table(t.Name) != nil {
		return errs.Newf(errs.ErrKindInvalidInput, "table %q already exists", t.Name)
	}
	if err := validateColumns(t.Name, t.Columns); err != nil {
		return err
	}
	t.Position = clampPosition(t.Position)
	m.Tables = append(m.Tables, t)
	return nil
}

// RemoveTable deletes the table and every relationship that touches it.
func (m *Model) RemoveTable(name string) error {
	idx := -1
	for i := range m.Tables {
		if m.Tables[i].Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errs.Newf(errs.ErrKindNotFound, "table %q not found", name)
	}
	m.Tables = append(m.Tables[:idx:idx], m.Tables[idx+1:]...)

	kept := m.Relationships[:0:0]
	for _, r := range m.Relationships {
		if !r.Touches(name) {
			kept = append(kept, r)
		}
	}
	m.Relationships = kept
	return nil
}

// AddColumn appends c to the named table.
func (m *Model) AddColumn(table string, c Column) error {
	t := m.Table(table)
	if t == nil {
		return errs.Newf(errs.ErrKindNotFound, "table %q not found", table)
	}
	cols := append(append([]Column(nil), t.Columns...), c)
	if err := validateColumns(table, cols); err != nil {
		return err
	}
	t.Columns = cols
	return nil
}

// AddRelationship validates that both endpoints exist and appends r.
// An empty join type defaults to inner.
func (m *Model) AddRelationship(r Relationship) error {
	if r.Type == "" {
		r.Type = JoinInner
	}
	if !r.Type.Valid() {
		return errs.Newf(errs.ErrKindInvalidInput, "unknown join type %q", r.Type)
	}
	if err := m.checkEndpoint(r.FromTable, r.FromColumn); err != nil {
		return err
	}
	if err := m.checkEndpoint(r.ToTable, r.ToColumn); err != nil {
		return err
	}
	m.Relationships = append(m.Relationships, r)
	return nil
}

// RemoveRelationship deletes the relationship at index i.
func (m *Model) RemoveRelationship(i int) error {
	if i < 0 || i >= len(m.Relationships) {
		return errs.Newf(errs.ErrKindNotFound, "relationship %d not found", i)
	}
	m.Relationships = append(m.Relationships[:i:i], m.Relationships[i+1:]...)
	return nil
}

// MoveTable places the table at p, clamped to non-negative coordinates.
func (m *Model) MoveTable(name string, p Position) error {
	t := m.Table(name)
	if t == nil {
		return errs.Newf(errs.ErrKindNotFound, "table %q not found", name)
	}
	t.Position = clampPosition(p)
	return nil
}

// SetZoom sets the canvas zoom, clamped to [MinZoom, MaxZoom].
// Non-positive values reset to DefaultZoom.
func (m *Model) SetZoom(z float64) {
	switch {
	case z <= 0:
		m.Zoom = DefaultZoom
	case z < MinZoom:
		m.Zoom = MinZoom
	case z > MaxZoom:
		m.Zoom = MaxZoom
	default:
		m.Zoom = z
	}
}

// ToCanvas converts a screen point into canvas coordinates.
func (m *Model) ToCanvas(screen Position) Position {
	z := m.Zoom
	if z <= 0 {
		z = DefaultZoom
	}
	return Position{
		X: (screen.X - m.Pan.X) / z,
		Y: (screen.Y - m.Pan.Y) / z,
	}
}

// Validate checks every table and relationship in the model.
func (m *Model) Validate() error {
	seen := make(map[string]bool, len(m.Tables))
	for _, t := range m.Tables {
		if seen[t.Name] {
			return errs.Newf(errs.ErrKindInvalidInput, "duplicate table %q", t.Name)
		}
		seen[t.Name] = true
		if err := validateColumns(t.Name, t.Columns); err != nil {
			return err
		}
	}
	for _, r := range m.Relationships {
		if err := m.checkEndpoint(r.FromTable, r.FromColumn); err != nil {
			return err
		}
		if err := m.checkEndpoint(r.ToTable, r.ToColumn); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) checkEndpoint(table, column string) error {
	t := m.Table(table)
	if t == nil {
		return errs.Newf(errs.ErrKindInvalidInput, "relationship references unknown table %q", table)
	}
	if _, ok := t.Column(column); !ok {
		return errs.Newf(errs.ErrKindInvalidInput, "relationship references unknown column %s.%s", table, column)
	}
	return nil
}

func validateColumns(table string, cols []Column) error {
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if c.Name == "" {
			return errs.Newf(errs.ErrKindInvalidInput, "table %q has a column without a name", table)
		}
		if seen[c.Name] {
			return errs.Newf(errs.ErrKindInvalidInput, "duplicate column %s.%s", table, c.Name)
		}
		seen[c.Name] = true
		if c.IsFormula() && c.Formula == "" {
			return errs.Newf(errs.ErrKindInvalidInput, "formula column %s.%s has no formula", table, c.Name)
		}
	}
	return nil
}

func clampPosition(p Position) Position {
	if p.X < 0 {
		p.X = 0
	}
	if p.Y < 0 {
		p.Y = 0
	}
	return p
}
