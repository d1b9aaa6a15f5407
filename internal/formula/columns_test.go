package formula

import (
	"testing"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_TopologicalOrder(t *testing.T) {
	cols := []model.Column{
		{Name: "Total", Type: model.TypeFormula, Formula: "[Net] + [Tax]"},
		{Name: "Tax", Type: model.TypeFormula, Formula: "[Net] * 0.2"},
		{Name: "Net", Type: model.TypeFormula, Formula: "[Price] * [Qty]"},
		{Name: "Price", Type: model.TypeNumber},
		{Name: "Qty", Type: model.TypeNumber},
	}

	order, err := Order(cols)
	require.NoError(t, err)
	assert.Equal(t, []string{"Net", "Tax", "Total"}, order)
}

func TestOrder_DetectsCycle(t *testing.T) {
	cols := []model.Column{
		{Name: "A", Type: model.TypeFormula, Formula: "[B] + 1"},
		{Name: "B", Type: model.TypeFormula, Formula: "[A] + 1"},
		{Name: "C", Type: model.TypeFormula, Formula: "[A] * 2"},
		{Name: "D", Type: model.TypeFormula, Formula: "1 + 1"},
	}

	order, err := Order(cols)
	require.Error(t, err)
	assert.True(t, errs.IsCycle(err))
	assert.Contains(t, err.Error(), "columns: A, B")
	assert.NotContains(t, err.Error(), "C", "C only depends on the cycle")
	assert.Equal(t, []string{"D"}, order)
}

func TestPlan_CycleDependentsAreNotMembers(t *testing.T) {
	cols := []model.Column{
		{Name: "A", Type: model.TypeFormula, Formula: "[B] + 1"},
		{Name: "B", Type: model.TypeFormula, Formula: "[A] + 1"},
		{Name: "C", Type: model.TypeFormula, Formula: "[A] + 1"},
		{Name: "E", Type: model.TypeFormula, Formula: "[C] * 2"},
	}
	plan, err := NewPlan(cols)
	require.Error(t, err)
	assert.Equal(t, "[cycle] circular formula references between columns: A, B", err.Error())

	problems := plan.Problems()
	require.Len(t, problems, 4)
	assert.Equal(t, err, problems["A"])
	for _, name := range []string{"C", "E"} {
		assert.True(t, errs.IsCycle(problems[name]), name)
		assert.Contains(t, problems[name].Error(), "column "+name+" depends on a circular reference")
	}

	out := plan.Apply(model.Row{})
	for _, name := range []string{"A", "B", "C", "E"} {
		assert.Equal(t, ErrorValue, out[name], name)
	}
}

func TestPlan_Apply(t *testing.T) {
	cols := []model.Column{
		{Name: "Total", Type: model.TypeFormula, Formula: "[Net] * 1.1"},
		{Name: "Net", Type: model.TypeFormula, Formula: "[Price] * [Qty]"},
		{Name: "Label", Type: model.TypeFormula, Formula: `IF([Total] > 50, "big", "small")`},
		{Name: "Price", Type: model.TypeNumber},
		{Name: "Qty", Type: model.TypeNumber},
	}
	plan, err := NewPlan(cols)
	require.NoError(t, err)

	row := model.Row{"Price": 10, "Qty": 5}
	out := plan.Apply(row)

	assert.Equal(t, 50.0, out["Net"])
	assert.InDelta(t, 55.0, out["Total"].(float64), 1e-9)
	assert.Equal(t, "big", out["Label"])
	assert.NotContains(t, row, "Net", "input row is left untouched")
}

func TestPlan_CycleYieldsErrorCells(t *testing.T) {
	cols := []model.Column{
		{Name: "A", Type: model.TypeFormula, Formula: "[B]"},
		{Name: "B", Type: model.TypeFormula, Formula: "[A]"},
		{Name: "Ok", Type: model.TypeFormula, Formula: "[X] + 1"},
		{Name: "X", Type: model.TypeNumber},
	}
	plan, err := NewPlan(cols)
	assert.True(t, errs.IsCycle(err))
	assert.Len(t, plan.Problems(), 2)

	out := plan.Apply(model.Row{"X": 1, "A": 99})
	assert.Equal(t, ErrorValue, out["A"], "stale values on a cycle are replaced")
	assert.Equal(t, ErrorValue, out["B"])
	assert.Equal(t, 2.0, out["Ok"])
}

func TestPlan_CompileErrorPropagates(t *testing.T) {
	cols := []model.Column{
		{Name: "Bad", Type: model.TypeFormula, Formula: "1 +"},
		{Name: "UsesBad", Type: model.TypeFormula, Formula: "[Bad] * 2"},
		{Name: "Fine", Type: model.TypeFormula, Formula: "2 * 2"},
	}
	plan, err := NewPlan(cols)
	require.Error(t, err)
	assert.True(t, errs.IsSyntax(err))

	out := plan.Apply(model.Row{})
	assert.Equal(t, ErrorValue, out["Bad"])
	assert.Equal(t, ErrorValue, out["UsesBad"])
	assert.Equal(t, 4.0, out["Fine"])
}

func TestComputeRow(t *testing.T) {
	cols := []model.Column{
		{Name: "Margin", Type: model.TypeFormula, Formula: "([Revenue] - [Cost]) / [Revenue]"},
		{Name: "Revenue", Type: model.TypeNumber},
		{Name: "Cost", Type: model.TypeNumber},
	}
	out := ComputeRow(model.Row{"Revenue": 200, "Cost": 150}, cols)
	assert.Equal(t, 0.25, out["Margin"])

	out = ComputeRow(model.Row{"Revenue": 0, "Cost": 0}, cols)
	assert.Equal(t, 0.0, out["Margin"])
}
