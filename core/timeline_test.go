package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsegrid/pulsegrid/schema"
)

func TestBuildTimelineDateAxisFillsGaps(t *testing.T) {
	rows := []schema.Row{
		{"x": "2024-01-01", "clicks": 5},
		{"x": "2024-01-04", "clicks": 2},
	}

	tc := BuildTimeline(rows, []string{"clicks"}, schema.TimelineOptions{})

	require.True(t, tc.DateAxis)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"}, tc.Labels)

	// Synthesized days read as zero.
	assert.InDelta(t, 5.0, tc.Value("2024-01-01", "clicks"), 1e-9)
	assert.InDelta(t, 0.0, tc.Value("2024-01-02", "clicks"), 1e-9)
	assert.InDelta(t, 2.0, tc.Value("2024-01-04", "clicks"), 1e-9)
}

func TestBuildTimelineDateAxisAccumulatesSameDay(t *testing.T) {
	rows := []schema.Row{
		{"x": "2024-01-01 08:00", "clicks": 5},
		{"x": "2024-01-01 17:30", "clicks": 3},
	}

	tc := BuildTimeline(rows, []string{"clicks"}, schema.TimelineOptions{})

	assert.Equal(t, []string{"2024-01-01"}, tc.Labels)
	assert.InDelta(t, 8.0, tc.Value("2024-01-01", "clicks"), 1e-9)
}

func TestBuildTimelineDropsUnparseableRows(t *testing.T) {
	rows := []schema.Row{
		{"x": "2024-01-01", "clicks": 5},
		{"x": "garbage", "clicks": 100},
	}

	tc := BuildTimeline(rows, []string{"clicks"}, schema.TimelineOptions{})

	assert.Equal(t, 1, tc.DroppedRows)
	assert.Equal(t, []string{"2024-01-01"}, tc.Labels)
	assert.InDelta(t, 5.0, tc.TotalsByLabel["2024-01-01"], 1e-9)
}

func TestBuildTimelineDiscreteAxis(t *testing.T) {
	rows := []schema.Row{
		{"x": "alpha", "clicks": 1},
		{"x": "beta", "clicks": 2},
		{"x": "alpha", "clicks": 3},
	}

	tc := BuildTimeline(rows, []string{"clicks"}, schema.TimelineOptions{})

	require.False(t, tc.DateAxis)
	// The label list follows raw row order and keeps duplicates, while the
	// underlying map aggregates them into one entry.
	assert.Equal(t, []string{"alpha", "beta", "alpha"}, tc.Labels)
	assert.Len(t, tc.RowsByLabel, 2)
	assert.InDelta(t, 4.0, tc.Value("alpha", "clicks"), 1e-9)
}

func TestBuildTimelineBucketCompression(t *testing.T) {
	var rows []schema.Row
	for i := range 25 {
		rows = append(rows, schema.Row{"x": fmt.Sprintf("label-%02d", i), "clicks": 1})
	}

	tc := BuildTimeline(rows, []string{"clicks"}, schema.TimelineOptions{TrackerMaxPills: 10})

	// 25 labels at cap 10 gives buckets of size 3.
	require.Len(t, tc.Labels, 9)
	assert.Equal(t, "label-00 – label-02", tc.Labels[0])
	assert.Equal(t, "label-24", tc.Labels[8])

	// Category mass is conserved across compression.
	var total float64
	for _, label := range tc.Labels {
		total += tc.TotalsByLabel[label]
	}
	assert.InDelta(t, 25.0, total, 1e-9)
	assert.InDelta(t, 3.0, tc.Value(tc.Labels[0], "clicks"), 1e-9)
	assert.InDelta(t, 1.0, tc.Value("label-24", "clicks"), 1e-9)
}

func TestBuildTimelinePillFloor(t *testing.T) {
	var rows []schema.Row
	for i := range 30 {
		rows = append(rows, schema.Row{"x": fmt.Sprintf("l%02d", i), "clicks": 1})
	}

	// A cap below the floor is raised to the floor.
	tc := BuildTimeline(rows, []string{"clicks"}, schema.TimelineOptions{TrackerMaxPills: 2})
	assert.Len(t, tc.Labels, 10)
}

func TestBuildTimelineTotalsAndMax(t *testing.T) {
	rows := []schema.Row{
		{"x": "a", "clicks": 2, "views": 5},
		{"x": "b", "clicks": 9, "views": 1},
	}

	tc := BuildTimeline(rows, []string{"clicks", "views"}, schema.TimelineOptions{})

	assert.InDelta(t, 7.0, tc.TotalsByLabel["a"], 1e-9)
	assert.InDelta(t, 10.0, tc.TotalsByLabel["b"], 1e-9)
	assert.InDelta(t, 9.0, tc.RowMaxByCat["clicks"], 1e-9)
	assert.InDelta(t, 5.0, tc.RowMaxByCat["views"], 1e-9)
}

func TestBuildTimelineYMaxOverride(t *testing.T) {
	yMax := 100.0
	rows := []schema.Row{{"x": "a", "clicks": 2}}

	tc := BuildTimeline(rows, []string{"clicks"}, schema.TimelineOptions{YMax: &yMax})

	assert.InDelta(t, 100.0, tc.RowMaxByCat["clicks"], 1e-9)
}

func TestBuildTimelineEmptyInput(t *testing.T) {
	tc := BuildTimeline(nil, []string{"clicks"}, schema.TimelineOptions{})
	assert.Empty(t, tc.Labels)
	assert.Empty(t, tc.RowsByLabel)
	assert.Empty(t, tc.TotalsByLabel)
	assert.Empty(t, tc.RowMaxByCat)
}

func TestBuildTimelineInvariantLabelsHaveEntries(t *testing.T) {
	rows := []schema.Row{
		{"x": "2024-02-27", "clicks": 1},
		{"x": "2024-03-02", "clicks": 1},
	}

	tc := BuildTimeline(rows, []string{"clicks"}, schema.TimelineOptions{})

	for _, label := range tc.Labels {
		_, inRows := tc.RowsByLabel[label]
		_, inTotals := tc.TotalsByLabel[label]
		assert.True(t, inRows, "label %s missing from rowsByLabel", label)
		assert.True(t, inTotals, "label %s missing from totalsByLabel", label)
	}
}

func TestPivotThenTimelineConservesTotals(t *testing.T) {
	// Long rows with duplicate legend entries on one day and a calendar gap.
	longRows := [][]any{
		{"2024-01-01", "a", 5.0},
		{"2024-01-01", "b", 2.0},
		{"2024-01-01", "a", 1.0},
		{"2024-01-03", "b", 4.0},
		{"2024-01-04", "a", 7.0},
	}
	columns := []string{"x", "legend", "value"}
	categories := []string{"a", "b"}

	// Per-category reference sums straight off the long rows.
	want := map[string]float64{}
	for _, row := range longRows {
		v, _ := schema.ToFloat(row[2])
		want[row[1].(string)] += v
	}

	wide := Pivot(longRows, columns, categories)
	tc := BuildTimeline(wide, categories, schema.TimelineOptions{})

	require.True(t, tc.DateAxis)
	assert.Len(t, tc.Labels, 4, "gap day should be synthesized")

	// Pivoting then bucketing must not create or lose category mass.
	for _, cat := range categories {
		var got float64
		for _, label := range tc.Labels {
			got += tc.Value(label, cat)
		}
		assert.InDelta(t, want[cat], got, 1e-9, "category %s totals should survive the round trip", cat)
	}
}
