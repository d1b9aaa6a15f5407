package sqlgen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/koustreak/datamodeler/internal/model"
	"go.yaml.in/yaml/v3"
)

// State is the query-builder form as the user has filled it in.
type State struct {
	Select  []string    `json:"select" yaml:"select"`
	From    string      `json:"from" yaml:"from"`
	Joins   []Join      `json:"joins,omitempty" yaml:"joins,omitempty"`
	Where   []Condition `json:"where,omitempty" yaml:"where,omitempty"`
	GroupBy []string    `json:"groupBy,omitempty" yaml:"groupBy,omitempty"`
	Having  []Condition `json:"having,omitempty" yaml:"having,omitempty"`
	OrderBy []OrderItem `json:"orderBy,omitempty" yaml:"orderBy,omitempty"`
	Limit   Scalar      `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// Join is one JOIN clause. Conditions are combined with AND.
type Join struct {
	Type       model.JoinType        `json:"type" yaml:"type"`
	Table      string                `json:"table" yaml:"table"`
	Conditions []model.JoinCondition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// Connective links a condition to the one before it.
type Connective string

const (
	And Connective = "AND"
	Or  Connective = "OR"
)

// Condition is one WHERE or HAVING entry. The connective of the first
// entry in a list is ignored.
type Condition struct {
	Connective Connective `json:"connective,omitempty" yaml:"connective,omitempty"`
	Column     string     `json:"column" yaml:"column"`
	Operator   string     `json:"operator" yaml:"operator"`
	Value      Scalar     `json:"value" yaml:"value"`
}

// SortDirection controls the ORDER BY direction.
type SortDirection string

const (
	Asc  SortDirection = "ASC"
	Desc SortDirection = "DESC"
)

// OrderItem is one ORDER BY entry. An empty direction means ascending.
type OrderItem struct {
	Column    string        `json:"column" yaml:"column"`
	Direction SortDirection `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// Scalar holds a value typed into the form. The UI sends numbers and
// strings interchangeably, so both decode into the same text.
type Scalar string

// UnmarshalJSON accepts a JSON string, number, bool or null.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(str)
	default:
		*s = Scalar(data)
	}
	return nil
}

// UnmarshalYAML accepts any YAML scalar; null and ~ decode as empty.
func (s *Scalar) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar value", n.Line)
	}
	if n.Tag == "!!null" {
		*s = ""
		return nil
	}
	*s = Scalar(n.Value)
	return nil
}

func (s Scalar) String() string { return string(s) }

// IsNumber reports whether the trimmed value is a finite decimal number.
func (s Scalar) IsNumber() bool {
	_, ok := parseNumber(strings.TrimSpace(string(s)))
	return ok
}
