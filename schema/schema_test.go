package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimelineContextValue(t *testing.T) {
	tc := &TimelineContext{
		Labels: []string{"2024-03-01", "2024-03-02"},
		RowsByLabel: map[string]Row{
			"2024-03-01": {XField: "2024-03-01", "east": 10.0, "west": "2.5"},
			"2024-03-02": {XField: "2024-03-02", "east": nil},
		},
	}

	// Present numeric values, including string-typed cells.
	assert.Equal(t, 10.0, tc.Value("2024-03-01", "east"), "plain float cell")
	assert.Equal(t, 2.5, tc.Value("2024-03-01", "west"), "numeric string cell")

	// Missing label, missing category and nil cell all read as zero.
	assert.Equal(t, 0.0, tc.Value("2024-03-03", "east"), "missing label should be zero")
	assert.Equal(t, 0.0, tc.Value("2024-03-01", "north"), "missing category should be zero")
	assert.Equal(t, 0.0, tc.Value("2024-03-02", "east"), "nil cell should be zero")
}

func TestValidAllowLists(t *testing.T) {
	// Every declared constant must be in its allow-list, and obvious
	// misspellings must not be.
	_, ok := ValidAggModes[AggDistinctCount]
	assert.True(t, ok, "distinctCount should be a valid agg mode")
	_, ok = ValidAggModes[AggMode("median")]
	assert.False(t, ok, "median is not a supported agg mode")

	assert.Len(t, ValidPeriodModes, 7, "seven comparison windows are supported")
	_, ok = ValidPeriodModes[QuarterVsLastQuart]
	assert.True(t, ok, "TQ_LQ should be a valid period mode")
	_, ok = ValidPeriodModes[PeriodMode("LAST_DECADE")]
	assert.False(t, ok, "unknown period modes should be rejected")

	for _, ws := range []WeekStart{WeekStartSaturday, WeekStartSunday, WeekStartMonday} {
		_, ok = ValidWeekStarts[ws]
		assert.True(t, ok, "%s should be a valid week start", ws)
	}

	_, ok = ValidDatabaseBackends[NoneBackend]
	assert.True(t, ok, "none should be a valid backend")
	_, ok = ValidOutputModes[ParquetOut]
	assert.True(t, ok, "parquet should be a valid output mode")
}

func TestTrackerPillConstants(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultTrackerMaxPills, MinTrackerPills,
		"default pill cap must not be below the floor")
}
