package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pulsegrid/pulsegrid/schema"
)

func sampleRows() []schema.Row {
	return []schema.Row{
		{"clicks": 3, "views": 10},
		{"clicks": 7, "views": "20"},
		{"clicks": "x", "views": 5},
	}
}

func TestAggregateCategoriesSum(t *testing.T) {
	out := AggregateCategories(sampleRows(), []string{"clicks", "views"}, schema.AggSum)
	assert.InDelta(t, 10.0, out["clicks"], 1e-9)
	assert.InDelta(t, 35.0, out["views"], 1e-9)
}

func TestAggregateCategoriesAvg(t *testing.T) {
	out := AggregateCategories(sampleRows(), []string{"clicks"}, schema.AggAvg)
	// Non-numeric cells do not count toward the divisor.
	assert.InDelta(t, 5.0, out["clicks"], 1e-9)
}

func TestAggregateCategoriesAvgNoFiniteValues(t *testing.T) {
	rows := []schema.Row{{"clicks": "a"}, {"clicks": nil}}
	out := AggregateCategories(rows, []string{"clicks"}, schema.AggAvg)
	assert.InDelta(t, 0.0, out["clicks"], 1e-9)
}

func TestAggregateCategoriesLast(t *testing.T) {
	out := AggregateCategories(sampleRows(), []string{"clicks"}, schema.AggLast)
	// The trailing non-numeric cell is skipped, so the last finite value wins.
	assert.InDelta(t, 7.0, out["clicks"], 1e-9)
}

func TestAggregateCategoriesAdvancedModes(t *testing.T) {
	rows := []schema.Row{
		{"c": 3}, {"c": 7}, {"c": "x"}, {"c": 2},
	}
	cats := []string{"c"}

	assert.InDelta(t, 12.0, AggregateCategoriesAdvanced(rows, cats, schema.AggSum)["c"], 1e-9)
	assert.InDelta(t, 12.0, AggregateCategoriesAdvanced(rows, cats, schema.AggCount)["c"], 1e-9)
	assert.InDelta(t, 12.0, AggregateCategoriesAdvanced(rows, cats, schema.AggDistinctCount)["c"], 1e-9)
	assert.InDelta(t, 4.0, AggregateCategoriesAdvanced(rows, cats, schema.AggAvg)["c"], 1e-9)
	assert.InDelta(t, 2.0, AggregateCategoriesAdvanced(rows, cats, schema.AggMin)["c"], 1e-9)
	assert.InDelta(t, 7.0, AggregateCategoriesAdvanced(rows, cats, schema.AggMax)["c"], 1e-9)
	assert.InDelta(t, 3.0, AggregateCategoriesAdvanced(rows, cats, schema.AggFirst)["c"], 1e-9)
	assert.InDelta(t, 2.0, AggregateCategoriesAdvanced(rows, cats, schema.AggLast)["c"], 1e-9)
	assert.InDelta(t, 2.0, AggregateCategoriesAdvanced(rows, cats, schema.AggNone)["c"], 1e-9)
}

func TestAggregateCategoriesAdvancedDropsNonFinite(t *testing.T) {
	rows := []schema.Row{
		{"c": math.NaN()},
		{"c": math.Inf(1)},
		{"c": 5},
	}
	out := AggregateCategoriesAdvanced(rows, []string{"c"}, schema.AggMin)
	assert.InDelta(t, 5.0, out["c"], 1e-9)
}

func TestAggregateCategoriesAdvancedEmptyCategory(t *testing.T) {
	rows := []schema.Row{{"other": 1}}
	for _, mode := range []schema.AggMode{schema.AggSum, schema.AggMin, schema.AggMax, schema.AggAvg, schema.AggFirst} {
		out := AggregateCategoriesAdvanced(rows, []string{"c"}, mode)
		assert.InDelta(t, 0.0, out["c"], 1e-9, "mode %s", mode)
	}
}

func TestComputeColMax(t *testing.T) {
	rows := []schema.Row{
		{"c": 3}, {"c": "bad"}, {"c": 7}, {"c": -2},
	}
	assert.InDelta(t, 7.0, ComputeColMax(rows, "c"), 1e-9)

	// All-negative values floor the max at zero.
	negative := []schema.Row{{"c": -3}, {"c": -1}}
	assert.InDelta(t, 0.0, ComputeColMax(negative, "c"), 1e-9)
}
