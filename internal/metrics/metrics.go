// Package metrics computes dashboard cards: one aggregate per card over
// the rows of a data source, plus formula cards derived from the others.
package metrics

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/formula"
	"github.com/koustreak/datamodeler/internal/model"
	"github.com/koustreak/datamodeler/internal/sqlgen"
	"github.com/koustreak/datamodeler/internal/view"
)

// Format controls how a card value is displayed.
type Format string

const (
	FormatNumber   Format = "number"
	FormatCurrency Format = "currency"
	FormatPercent  Format = "percent"
)

// Card is one tile on a dashboard. A card with a Formula is computed from
// the other cards' values, referenced by title: "[Revenue] / [Orders]".
type Card struct {
	ID          string           `json:"id" yaml:"id"`
	Title       string           `json:"title" yaml:"title"`
	Column      string           `json:"column,omitempty" yaml:"column,omitempty"`
	Aggregation view.Aggregation `json:"aggregation,omitempty" yaml:"aggregation,omitempty"`
	Formula     string           `json:"formula,omitempty" yaml:"formula,omitempty"`
	Format      Format           `json:"format,omitempty" yaml:"format,omitempty"`
}

// NewCard returns an aggregate card with a fresh ID.
func NewCard(title, column string, fn view.Aggregation) Card {
	return Card{ID: uuid.NewString(), Title: title, Column: column, Aggregation: fn, Format: FormatNumber}
}

// NewFormulaCard returns a formula card with a fresh ID.
func NewFormulaCard(title, expr string) Card {
	return Card{ID: uuid.NewString(), Title: title, Formula: expr, Format: FormatNumber}
}

// IsFormula reports whether the card is derived from other cards.
func (c Card) IsFormula() bool {
	return strings.TrimSpace(c.Formula) != ""
}

// Value is the computed state of one card.
type Value struct {
	CardID  string `json:"card_id"`
	Title   string `json:"title"`
	Value   any    `json:"value"`
	Display string `json:"display"`
	Error   string `json:"error,omitempty"`
}

// Dashboard is an ordered set of cards.
type Dashboard struct {
	Name  string `json:"name" yaml:"name"`
	Cards []Card `json:"cards" yaml:"cards"`
}

// Validate checks that titles are unique and that every aggregate card
// names a known function.
func (d Dashboard) Validate() error {
	seen := make(map[string]bool, len(d.Cards))
	for _, c := range d.Cards {
		if strings.TrimSpace(c.Title) == "" {
			return errs.New(errs.ErrKindInvalidInput, "card title is required")
		}
		if seen[c.Title] {
			return errs.Newf(errs.ErrKindInvalidInput, "duplicate card title %q", c.Title)
		}
		seen[c.Title] = true
		if c.IsFormula() {
			if _, err := formula.Compile(c.Formula); err != nil {
				return errs.Wrap(errs.KindOf(err), "card "+c.Title, err)
			}
			continue
		}
		if !knownAggregation(c.Aggregation) {
			return errs.Newf(errs.ErrKindInvalidInput, "card %q: unknown aggregation %q", c.Title, c.Aggregation)
		}
	}
	return nil
}

// Compute returns one Value per card, in card order. Aggregate cards are
// computed first; formula cards then see every other card by title and
// run in dependency order, so a formula card may build on another. A card
// that fails carries Error and the value ErrorValue, and so does every
// formula card that reads it.
func (d Dashboard) Compute(rows []model.Row) []Value {
	out := make([]Value, len(d.Cards))
	row := make(model.Row, len(d.Cards))
	cols := make([]model.Column, 0, len(d.Cards))

	for i, c := range d.Cards {
		if c.IsFormula() {
			cols = append(cols, model.Column{Name: c.Title, Type: model.TypeFormula, Formula: c.Formula})
			continue
		}
		cols = append(cols, model.Column{Name: c.Title, Type: model.TypeNumber})
		v := Value{CardID: c.ID, Title: c.Title}
		n, err := aggregate(rows, c)
		if err == nil && (math.IsInf(n, 0) || math.IsNaN(n)) {
			err = errs.Newf(errs.ErrKindInvalidInput, "%s of %s overflows", c.Aggregation, c.Column)
		}
		if err != nil {
			v.Value, v.Display, v.Error = formula.ErrorValue, formula.ErrorValue, err.Error()
			row[c.Title] = formula.ErrorValue
		} else {
			v.Value, v.Display = n, c.Format.Display(n)
			row[c.Title] = n
		}
		out[i] = v
	}

	plan, _ := formula.NewPlan(cols)
	problems := plan.Problems()
	row = plan.Apply(row)

	for i, c := range d.Cards {
		if !c.IsFormula() {
			continue
		}
		v := Value{CardID: c.ID, Title: c.Title}
		switch res := row[c.Title].(type) {
		case float64:
			v.Value, v.Display = res, c.Format.Display(res)
		case string:
			v.Value, v.Display = res, res
			if res == formula.ErrorValue {
				v.Error = "formula could not be evaluated"
				if err := problems[c.Title]; err != nil {
					v.Error = err.Error()
				}
			}
		}
		out[i] = v
	}
	return out
}

// SQL renders the query behind each aggregate card against table, keyed
// by card ID. Formula cards have no query of their own.
func (d Dashboard) SQL(table string) (map[string]string, error) {
	out := make(map[string]string, len(d.Cards))
	for _, c := range d.Cards {
		if c.IsFormula() {
			continue
		}
		q, err := sqlgen.AggregateSQL(table, c.Column, string(c.Aggregation))
		if err != nil {
			return nil, errs.Wrap(errs.KindOf(err), "card "+c.Title, err)
		}
		out[c.ID] = q
	}
	return out, nil
}

func aggregate(rows []model.Row, c Card) (float64, error) {
	fn := view.Aggregation(strings.ToLower(string(c.Aggregation)))
	if fn == view.AggCount && (c.Column == "" || c.Column == "*") {
		return float64(len(rows)), nil
	}
	if c.Column == "" {
		return 0, errs.Newf(errs.ErrKindInvalidInput, "%s needs a column", fn)
	}
	return view.Aggregate(rows, c.Column, fn)
}

func knownAggregation(fn view.Aggregation) bool {
	fn = view.Aggregation(strings.ToLower(string(fn)))
	for _, a := range view.Aggregations() {
		if a == fn {
			return true
		}
	}
	return false
}

// Display formats n for a card. Numbers get thousands separators and at
// most two decimals; percent treats n as a ratio.
func (f Format) Display(n float64) string {
	switch f {
	case FormatCurrency:
		if n < 0 {
			return "-$" + humanize.CommafWithDigits(-n, 2)
		}
		return "$" + humanize.CommafWithDigits(n, 2)
	case FormatPercent:
		return strconv.FormatFloat(n*100, 'f', 1, 64) + "%"
	}
	return humanize.CommafWithDigits(n, 2)
}
