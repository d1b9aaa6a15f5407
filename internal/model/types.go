package model

import (
	"strings"

	"github.com/koustreak/datamodeler/internal/errs"
)

// ColumnType is the logical type shown in the column header.
type ColumnType string

const (
	TypeText      ColumnType = "Text"
	TypeNumber    ColumnType = "Number"
	TypeDate      ColumnType = "Date"
	TypeLogical   ColumnType = "Logical"
	TypeVariant   ColumnType = "Variant"
	TypeGeography ColumnType = "Geography"
	TypeFormula   ColumnType = "formula"
)

var columnTypes = map[string]ColumnType{
	"text":      TypeText,
	"number":    TypeNumber,
	"date":      TypeDate,
	"logical":   TypeLogical,
	"variant":   TypeVariant,
	"geography": TypeGeography,
	"formula":   TypeFormula,
}

// ParseColumnType resolves a case-insensitive type name.
func ParseColumnType(s string) (ColumnType, error) {
	t, ok := columnTypes[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", errs.Newf(errs.ErrKindInvalidInput, "unknown column type %q", s)
	}
	return t, nil
}

// Column describes a single column of a table or view.
type Column struct {
	Name       string     `json:"name" yaml:"name"`
	Type       ColumnType `json:"type" yaml:"type"`
	Nullable   bool       `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	PrimaryKey bool       `json:"primaryKey,omitempty" yaml:"primaryKey,omitempty"`
	ForeignKey bool       `json:"foreignKey,omitempty" yaml:"foreignKey,omitempty"`
	Formula    string     `json:"formula,omitempty" yaml:"formula,omitempty"` // only when Type == TypeFormula
}

// IsFormula reports whether the column is computed per row.
func (c Column) IsFormula() bool {
	return c.Type == TypeFormula
}

// Row maps column name to a scalar value (string, float64, int, bool, time).
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Position is a table's location on the modeling canvas.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Table is a named set of columns placed on the canvas.
type Table struct {
	Name     string   `json:"name" yaml:"name"`
	Columns  []Column `json:"columns" yaml:"columns"`
	Position Position `json:"position" yaml:"position"`
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// JoinType is the SQL join flavour of a relationship.
type JoinType string

const (
	JoinInner JoinType = "inner"
	JoinLeft  JoinType = "left"
	JoinRight JoinType = "right"
	JoinFull  JoinType = "full"
	JoinCross JoinType = "cross"
)

// Valid reports whether j is one of the known join types.
func (j JoinType) Valid() bool {
	switch j {
	case JoinInner, JoinLeft, JoinRight, JoinFull, JoinCross:
		return true
	}
	return false
}

// Keyword returns the upper-cased SQL keyword, e.g. "LEFT".
func (j JoinType) Keyword() string {
	if j == "" {
		return "INNER"
	}
	return strings.ToUpper(string(j))
}

// JoinCondition is one explicit ON predicate.
type JoinCondition struct {
	LeftColumn  string `json:"leftColumn" yaml:"leftColumn"`
	Operator    string `json:"operator" yaml:"operator"`
	RightColumn string `json:"rightColumn" yaml:"rightColumn"`
}

// Relationship links two tables' columns on the canvas.
type Relationship struct {
	FromTable  string          `json:"fromTable" yaml:"fromTable"`
	FromColumn string          `json:"fromColumn" yaml:"fromColumn"`
	ToTable    string          `json:"toTable" yaml:"toTable"`
	ToColumn   string          `json:"toColumn" yaml:"toColumn"`
	Type       JoinType        `json:"type" yaml:"type"`
	Conditions []JoinCondition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// Touches reports whether the relationship references table.
func (r Relationship) Touches(table string) bool {
	return r.FromTable == table || r.ToTable == table
}
