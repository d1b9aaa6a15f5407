package formula

import (
	"strings"
	"testing"
	"time"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var salesColumns = []model.Column{
	{Name: "Price", Type: model.TypeNumber},
	{Name: "Quantity", Type: model.TypeNumber},
	{Name: "Region", Type: model.TypeText},
	{Name: "Active", Type: model.TypeLogical},
	{Name: "Unit Cost", Type: model.TypeNumber},
}

func TestEvaluate(t *testing.T) {
	row := model.Row{
		"Price":     10,
		"Quantity":  "3",
		"Region":    "EMEA",
		"Active":    true,
		"Unit Cost": 4.5,
	}

	tests := []struct {
		name    string
		formula string
		want    any
	}{
		{"addition", "5+3", 8.0},
		{"division by zero is zero", "10/0", 0.0},
		{"column product", "[Price] * [Quantity]", 30.0},
		{"comparison renders TRUE", "5>3", "TRUE"},
		{"comparison renders FALSE", "5<3", "FALSE"},
		{"single equals compares", "[Price] = 10", "TRUE"},
		{"double equals compares", "[Price] == 11", "FALSE"},
		{"not equal", "[Price] != 11", "TRUE"},
		{"angle not equal", "[Price] <> 10", "FALSE"},
		{"greater or equal", "[Price] >= 10", "TRUE"},
		{"malformed", "malformed((", ErrorValue},
		{"bare number", "42", 42.0},
		{"decimal", ".5 * 4", 2.0},
		{"precedence", "2 + 3 * 4", 14.0},
		{"parentheses", "(2 + 3) * 4", 20.0},
		{"unary minus", "-[Price] + 1", -9.0},
		{"column with space", "[Unit Cost] * 2", 9.0},
		{"missing column is zero", "[Discount] + 1", 1.0},
		{"string literal", `"hello"`, "hello"},
		{"single quoted", `'it''s'`, "it's"},
		{"concatenation", `[Region] & "-" & [Price]`, "EMEA-10"},
		{"bare text reference yields the text", "[Region]", "EMEA"},
		{"text column in arithmetic is zero", "[Region] + 1", 1.0},
		{"text comparison", `[Region] = "EMEA"`, "TRUE"},
		{"if true branch", `IF([Price] > 5, "high", "low")`, "high"},
		{"if false branch", `IF([Price] > 50, "high", "low")`, "low"},
		{"nested if", `IF([Price] > 50, "high", IF([Price] > 5, "mid", "low"))`, "mid"},
		{"deeply nested if", `IF(1>2, "a", IF(2>3, "b", IF(3>4, "c", "d")))`, "d"},
		{"if without else", `IF(1 > 2, "yes")`, "FALSE"},
		{"if numeric branches", `IF([Active], [Price] * 2, 0)`, 20.0},
		{"and", "AND([Price] > 5, [Quantity] > 1)", "TRUE"},
		{"or", "OR([Price] > 50, [Quantity] > 5)", "FALSE"},
		{"not", "NOT([Price] > 50)", "TRUE"},
		{"round", "ROUND(10 / 3, 2)", 3.33},
		{"round default digits", "ROUND(2.5)", 3.0},
		{"abs", "ABS(-4)", 4.0},
		{"min max", "MAX([Price], [Quantity]) - MIN(1, 2)", 9.0},
		{"sum avg", "SUM(1, 2, 3) + AVG(2, 4)", 9.0},
		{"upper lower", `UPPER("ab") & LOWER("CD")`, "ABcd"},
		{"len", `LEN([Region])`, 4.0},
		{"concat function", `CONCAT([Region], ":", 1)`, "EMEA:1"},
		{"isblank missing", "ISBLANK([Nope])", "TRUE"},
		{"isblank present", "ISBLANK([Region])", "FALSE"},
		{"case insensitive functions", `if(true, "y", "n")`, "y"},
		{"empty formula", "   ", 0.0},
		{"unknown function", "FOO(1)", ErrorValue},
		{"bare identifier", "Price * 2", ErrorValue},
		{"unterminated string", `"abc`, ErrorValue},
		{"unterminated column", "[Price * 2", ErrorValue},
		{"trailing operator", "1 +", ErrorValue},
		{"illegal character", "1 $ 2", ErrorValue},
		{"wrong arity", "ABS(1, 2)", ErrorValue},
		{"too few if args", "IF(1)", ErrorValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.formula, row, salesColumns)
			if f, ok := tt.want.(float64); ok {
				require.IsType(t, float64(0), got)
				assert.InDelta(t, f, got.(float64), 1e-9)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	row := model.Row{"Price": 12.5, "Quantity": 4}
	formula := `IF([Price] * [Quantity] > 40, "big", "small")`

	first := Evaluate(formula, row, salesColumns)
	second := Evaluate(formula, row, salesColumns)
	assert.Equal(t, first, second)
	assert.Equal(t, model.Row{"Price": 12.5, "Quantity": 4}, row, "row is not mutated")
}

func TestEvaluate_MissingColumnsNeverFail(t *testing.T) {
	rows := []model.Row{
		{},
		{"Price": nil},
		{"Quantity": 2},
	}
	for _, row := range rows {
		got := Evaluate("[Price] * 2 + [Quantity]", row, salesColumns)
		assert.IsType(t, float64(0), got)
	}
}

func TestEvaluate_NumberColumnWithTextIsZero(t *testing.T) {
	got := Evaluate("[Price] + 1", model.Row{"Price": "n/a"}, salesColumns)
	assert.Equal(t, 1.0, got)
}

func TestEvaluate_ValueConversions(t *testing.T) {
	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	row := model.Row{"When": day, "Count": int64(7), "Flag": false}

	assert.Equal(t, "2024-03-09", Evaluate("[When]", row, nil))
	assert.Equal(t, 8.0, Evaluate("[Count] + 1", row, nil))
	assert.Equal(t, 1.0, Evaluate("[Flag] + 1", row, nil))
}

func TestEvaluate_ForwardFormulaReference(t *testing.T) {
	cols := []model.Column{
		{Name: "Total", Type: model.TypeFormula, Formula: "[Subtotal] * 1.2"},
		{Name: "Subtotal", Type: model.TypeFormula, Formula: "[Price] * [Quantity]"},
		{Name: "Price", Type: model.TypeNumber},
		{Name: "Quantity", Type: model.TypeNumber},
	}
	got := Evaluate("[Total]", model.Row{"Price": 10, "Quantity": 2}, cols)
	assert.InDelta(t, 24.0, got.(float64), 1e-9)
}

func TestEvaluate_SelfReferenceIsError(t *testing.T) {
	cols := []model.Column{
		{Name: "A", Type: model.TypeFormula, Formula: "[B] + 1"},
		{Name: "B", Type: model.TypeFormula, Formula: "[A] + 1"},
	}
	assert.Equal(t, ErrorValue, Evaluate("[A]", model.Row{}, cols))
}

func TestEvaluate_ErrorCellsPropagate(t *testing.T) {
	assert.Equal(t, ErrorValue, Evaluate("[Broken] + 1", model.Row{"Broken": ErrorValue}, nil))
}

func TestEvaluate_OverflowIsError(t *testing.T) {
	for _, f := range []string{"1e308 * 10", "-1e308 - 1e308", "SUM(1e308, 1e308)", "[Big] * [Big]"} {
		assert.Equal(t, ErrorValue, Evaluate(f, model.Row{"Big": 1e200}, nil), f)
	}
	assert.Equal(t, 1e308, Evaluate("1e308 * 1", nil, nil))

	_, err := mustCompile(t, "1e308 * 10").Eval(nil, nil)
	assert.Error(t, err)
}

func TestValue_NumberRejectsNonFiniteText(t *testing.T) {
	for _, s := range []string{"Inf", "+Infinity", "-inf", "NaN"} {
		assert.Equal(t, 0.0, Text(s).Number(), s)
	}
	assert.Equal(t, 0.0, Evaluate(`"Infinity" + 0`, nil, nil))
	assert.Equal(t, 2.5, Text(" 2.5 ").Number())
}

func mustCompile(t *testing.T, f string) *Program {
	t.Helper()
	prog, err := Compile(f)
	require.NoError(t, err)
	return prog
}

func TestEvaluate_DepthLimit(t *testing.T) {
	deep := strings.Repeat("(", MaxDepth+5) + "1" + strings.Repeat(")", MaxDepth+5)
	assert.Equal(t, ErrorValue, Evaluate(deep, nil, nil))
}

func TestCompile(t *testing.T) {
	prog, err := Compile(`IF([Price] > 5, [Price] * [Quantity], [Price])`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Price", "Quantity"}, prog.References())
	assert.Equal(t, `IF(([Price] > 5), ([Price] * [Quantity]), [Price])`, prog.String())

	_, err = Compile("1 + * 2")
	require.Error(t, err)
	assert.True(t, errs.IsSyntax(err))
	assert.Contains(t, err.Error(), "position 4")
}

func TestProgram_EvalConcurrent(t *testing.T) {
	prog, err := Compile("[Price] * [Quantity]")
	require.NoError(t, err)

	done := make(chan float64, 8)
	for i := 0; i < 8; i++ {
		go func(i int) {
			v, err := prog.Eval(model.Row{"Price": i, "Quantity": 2}, nil)
			if err != nil {
				done <- -1
				return
			}
			done <- v.Number()
		}(i)
	}
	sum := 0.0
	for i := 0; i < 8; i++ {
		sum += <-done
	}
	assert.Equal(t, 56.0, sum)
}
