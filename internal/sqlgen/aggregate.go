package sqlgen

import (
	"strings"

	"github.com/koustreak/datamodeler/internal/errs"
)

// AggregateSQL renders the query behind a metric card, e.g.
// "SELECT SUM(amount) AS value FROM orders;". fn is one of sum, avg,
// count, min, max or distinct (a distinct count).
func AggregateSQL(table, column, fn string) (string, error) {
	table = strings.TrimSpace(table)
	column = strings.TrimSpace(column)
	if table == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "aggregate needs a table")
	}
	fn = strings.ToLower(strings.TrimSpace(fn))
	if column == "" || column == "*" {
		if fn != "count" {
			return "", errs.Newf(errs.ErrKindInvalidInput, "%s needs a column", strings.ToUpper(fn))
		}
		column = "*"
	}

	var expr string
	switch fn {
	case "sum", "avg", "count", "min", "max":
		expr = strings.ToUpper(fn) + "(" + column + ")"
	case "distinct":
		expr = "COUNT(DISTINCT " + column + ")"
	default:
		return "", errs.Newf(errs.ErrKindInvalidInput, "unsupported aggregation: %q", fn)
	}
	return "SELECT " + expr + " AS value FROM " + table + ";", nil
}
