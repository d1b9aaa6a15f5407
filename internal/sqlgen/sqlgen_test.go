package sqlgen

import (
	"encoding/json"
	"testing"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

var (
	customers = model.Table{Name: "customers", Columns: []model.Column{
		{Name: "id", Type: model.TypeNumber},
		{Name: "name", Type: model.TypeText},
	}}
	orders = model.Table{Name: "orders", Columns: []model.Column{
		{Name: "id", Type: model.TypeNumber},
		{Name: "customer_id", Type: model.TypeNumber},
	}}
	regions = model.Table{Name: "regions", Columns: []model.Column{
		{Name: "code", Type: model.TypeText},
	}}
)

func TestModelSQL_NoTables(t *testing.T) {
	assert.Equal(t, "SELECT 1 as placeholder;", ModelSQL(nil, nil))
}

func TestModelSQL_SingleTable(t *testing.T) {
	got := ModelSQL([]model.Table{customers, orders}, nil)
	assert.Equal(t, "SELECT customers.id,\n  customers.name\nFROM customers;", got)
}

func TestModelSQL_SingleTableWithoutColumns(t *testing.T) {
	got := ModelSQL([]model.Table{{Name: "empty"}}, nil)
	assert.Equal(t, "SELECT *\nFROM empty;", got)
}

func TestModelSQL_Joins(t *testing.T) {
	rels := []model.Relationship{
		{FromTable: "customers", FromColumn: "id", ToTable: "orders", ToColumn: "customer_id", Type: model.JoinLeft},
		{FromTable: "customers", ToTable: "regions", Type: model.JoinCross},
	}
	got := ModelSQL([]model.Table{customers, orders, regions}, rels)

	want := "SELECT customers.id, customers.name, orders.id, orders.customer_id, regions.code\n" +
		"FROM customers\n" +
		"LEFT JOIN orders ON customers.id = orders.customer_id\n" +
		"CROSS JOIN regions;"
	assert.Equal(t, want, got)
}

func TestModelSQL_ExplicitConditions(t *testing.T) {
	rels := []model.Relationship{{
		FromTable: "customers",
		ToTable:   "orders",
		Conditions: []model.JoinCondition{
			{LeftColumn: "id", Operator: "=", RightColumn: "customer_id"},
			{LeftColumn: "customers.id", Operator: ">", RightColumn: "id"},
		},
	}}
	got := ModelSQL([]model.Table{customers, orders}, rels)
	assert.Contains(t, got, "\nINNER JOIN orders ON customers.id = orders.customer_id AND customers.id > orders.id;")
}

func TestModelSQL_Deterministic(t *testing.T) {
	tables := []model.Table{customers, orders}
	rels := []model.Relationship{{FromTable: "customers", FromColumn: "id", ToTable: "orders", ToColumn: "customer_id", Type: model.JoinFull}}
	assert.Equal(t, ModelSQL(tables, rels), ModelSQL(tables, rels))
}

func fullState() State {
	return State{
		Select: []string{"c.name", "SUM(o.total) AS spend"},
		From:   "customers c",
		Joins: []Join{{
			Type:       model.JoinInner,
			Table:      "orders o",
			Conditions: []model.JoinCondition{{LeftColumn: "c.id", Operator: "=", RightColumn: "o.customer_id"}},
		}},
		Where: []Condition{
			{Connective: Or, Column: "c.country", Operator: "=", Value: "NL"},
			{Connective: Or, Column: "c.country", Operator: "=", Value: "BE"},
			{Column: "o.total", Operator: ">", Value: "10"},
		},
		GroupBy: []string{"c.name"},
		Having:  []Condition{{Column: "SUM(o.total)", Operator: ">=", Value: "100"}},
		OrderBy: []OrderItem{{Column: "spend", Direction: "desc"}, {Column: "c.name"}},
		Limit:   "25",
	}
}

func TestRender_AllClauses(t *testing.T) {
	got, err := Render(fullState())
	require.NoError(t, err)

	want := "SELECT c.name, SUM(o.total) AS spend\n" +
		"FROM customers c\n" +
		"INNER JOIN orders o ON c.id = o.customer_id\n" +
		"WHERE c.country = 'NL' OR c.country = 'BE' AND o.total > 10\n" +
		"GROUP BY c.name\n" +
		"HAVING SUM(o.total) >= 100\n" +
		"ORDER BY spend DESC, c.name ASC\n" +
		"LIMIT 25;"
	assert.Equal(t, want, got)
}

func TestRender_OmitsEmptyClauses(t *testing.T) {
	got, err := Render(State{From: "orders"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT *\nFROM orders;", got)

	for _, kw := range []string{"WHERE", "GROUP BY", "HAVING", "ORDER BY", "LIMIT", "JOIN"} {
		assert.NotContains(t, got, kw)
	}
}

func TestRender_Values(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		want string
	}{
		{"text is quoted", Condition{Column: "name", Operator: "=", Value: "O'Brien"}, "name = 'O''Brien'"},
		{"number is bare", Condition{Column: "qty", Operator: "<", Value: " 3.5 "}, "qty < 3.5"},
		{"already quoted", Condition{Column: "name", Operator: "LIKE", Value: "'A%'"}, "name LIKE 'A%'"},
		{"is null", Condition{Column: "deleted_at", Operator: "is", Value: "null"}, "deleted_at IS NULL"},
		{"is not defaults to null", Condition{Column: "deleted_at", Operator: "is  not"}, "deleted_at IS NOT NULL"},
		{"in list", Condition{Column: "region", Operator: "in", Value: "(EU, 7, 'US')"}, "region IN ('EU', 7, 'US')"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(State{From: "t", Where: []Condition{tt.cond}})
			require.NoError(t, err)
			assert.Equal(t, "SELECT *\nFROM t\nWHERE "+tt.want+";", got)
		})
	}
}

func TestRender_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		state State
	}{
		{"missing from", State{Select: []string{"a"}}},
		{"bad operator", State{From: "t", Where: []Condition{{Column: "a", Operator: "; DROP", Value: "1"}}}},
		{"bad connective", State{From: "t", Where: []Condition{{Column: "a", Operator: "=", Value: "1"}, {Connective: "XOR", Column: "b", Operator: "=", Value: "2"}}}},
		{"bad limit", State{From: "t", Limit: "ten"}},
		{"negative limit", State{From: "t", Limit: "-1"}},
		{"bad direction", State{From: "t", OrderBy: []OrderItem{{Column: "a", Direction: "sideways"}}}},
		{"join without condition", State{From: "t", Joins: []Join{{Type: model.JoinLeft, Table: "u"}}}},
		{"bad join type", State{From: "t", Joins: []Join{{Type: "outer", Table: "u"}}}},
		{"empty in", State{From: "t", Where: []Condition{{Column: "a", Operator: "IN", Value: "()"}}}},
		{"is with value", State{From: "t", Where: []Condition{{Column: "a", Operator: "IS", Value: "5"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Render(tt.state)
			require.Error(t, err)
			assert.True(t, errs.IsInvalidInput(err), "got %v", err)
		})
	}
}

func TestRender_CrossJoinHasNoOn(t *testing.T) {
	got, err := Render(State{From: "a", Joins: []Join{{Type: model.JoinCross, Table: "b"}}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT *\nFROM a\nCROSS JOIN b;", got)
}

func TestParameterized_Postgres(t *testing.T) {
	q, err := Parameterized(State{
		Select:  []string{"id", "orders.total", "COUNT(*)"},
		From:    "orders",
		Where:   []Condition{{Column: "status", Operator: "=", Value: "paid"}, {Connective: Or, Column: "total", Operator: "IN", Value: "1, 2.5"}},
		OrderBy: []OrderItem{{Column: "id", Direction: Desc}},
		Limit:   "10",
	}, DialectPostgres)
	require.NoError(t, err)

	want := `SELECT "id", "orders"."total", COUNT(*)` + "\n" +
		`FROM "orders"` + "\n" +
		`WHERE "status" = $1 OR "total" IN ($2, $3)` + "\n" +
		`ORDER BY "id" DESC` + "\n" +
		`LIMIT $4;`
	assert.Equal(t, want, q.SQL)
	assert.Equal(t, []any{"paid", int64(1), 2.5, 10}, q.Args)
}

func TestParameterized_MySQL(t *testing.T) {
	q, err := Parameterized(State{
		From:  "users",
		Where: []Condition{{Column: "name", Operator: "LIKE", Value: "'a''%'"}, {Column: "active", Operator: "=", Value: "true"}},
	}, DialectMySQL)
	require.NoError(t, err)

	assert.Equal(t, "SELECT *\nFROM `users`\nWHERE `name` LIKE ? AND `active` = ?;", q.SQL)
	assert.Equal(t, []any{"a'%", true}, q.Args)
}

func TestRender_NumberLikeWordsStayText(t *testing.T) {
	tests := []struct {
		value   string
		literal string
		arg     any
	}{
		{"Infinity", "'Infinity'", "Infinity"},
		{"-inf", "'-inf'", "-inf"},
		{"NaN", "'NaN'", "NaN"},
		{"0x1p-2", "'0x1p-2'", "0x1p-2"},
		{"1e999", "'1e999'", "1e999"},
		{"1e3", "1e3", 1000.0},
		{"-.5", "-.5", -0.5},
		{"42", "42", int64(42)},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			st := State{From: "t", Where: []Condition{{Column: "x", Operator: "=", Value: Scalar(tt.value)}}}

			got, err := Render(st)
			require.NoError(t, err)
			assert.Equal(t, "SELECT *\nFROM t\nWHERE x = "+tt.literal+";", got)

			q, err := Parameterized(st, DialectPostgres)
			require.NoError(t, err)
			assert.Equal(t, []any{tt.arg}, q.Args)
			assert.Equal(t, tt.arg != tt.value, Scalar(tt.value).IsNumber())
		})
	}
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("MySQL")
	require.NoError(t, err)
	assert.Equal(t, DialectMySQL, d)

	d, err = ParseDialect("")
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, d)

	_, err = ParseDialect("oracle")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestScalar_UnmarshalJSON(t *testing.T) {
	var s State
	require.NoError(t, json.Unmarshal([]byte(`{"from":"t","limit":50,"where":[{"column":"a","operator":"=","value":"x"},{"column":"b","operator":"IS","value":null}]}`), &s))
	assert.Equal(t, Scalar("50"), s.Limit)
	assert.Equal(t, Scalar("x"), s.Where[0].Value)
	assert.Equal(t, Scalar(""), s.Where[1].Value)
}

func TestScalar_UnmarshalYAML(t *testing.T) {
	src := `
select: [region, "SUM(amount)"]
from: orders
where:
  - {column: amount, operator: ">=", value: 100}
  - {column: note, operator: IS, value: ~}
groupBy: [region]
limit: 5
`
	var s State
	require.NoError(t, yaml.Unmarshal([]byte(src), &s))
	assert.Equal(t, Scalar("100"), s.Where[0].Value)
	assert.Equal(t, Scalar(""), s.Where[1].Value)
	assert.Equal(t, Scalar("5"), s.Limit)

	sql, err := Render(s)
	require.NoError(t, err)
	assert.Equal(t, "SELECT region, SUM(amount)\nFROM orders\nWHERE amount >= 100 AND note IS NULL\nGROUP BY region\nLIMIT 5;", sql)

	require.Error(t, yaml.Unmarshal([]byte("from: t\nlimit: [1, 2]\n"), &s))
}

func TestAggregateSQL(t *testing.T) {
	tests := []struct {
		column, fn, want string
	}{
		{"amount", "sum", "SELECT SUM(amount) AS value FROM orders;"},
		{"amount", "AVG", "SELECT AVG(amount) AS value FROM orders;"},
		{"", "count", "SELECT COUNT(*) AS value FROM orders;"},
		{"customer_id", "distinct", "SELECT COUNT(DISTINCT customer_id) AS value FROM orders;"},
		{"amount", "max", "SELECT MAX(amount) AS value FROM orders;"},
	}
	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			got, err := AggregateSQL("orders", tt.column, tt.fn)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := AggregateSQL("orders", "amount", "median")
	assert.True(t, errs.IsInvalidInput(err))
	_, err = AggregateSQL("orders", "", "sum")
	assert.True(t, errs.IsInvalidInput(err))
}
