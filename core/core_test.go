package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pulsegrid/pulsegrid/internal/contract"
	"github.com/pulsegrid/pulsegrid/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInferCategories(t *testing.T) {
	columns := []string{schema.XField, "legend", "value", "east", "west"}
	assert.Equal(t, []string{"east", "west"}, inferCategories(columns))

	assert.Nil(t, inferCategories([]string{schema.XField, "legend", "value"}),
		"No categories should remain when only reserved columns are present")
}

func TestLoadAndPivot(t *testing.T) {
	t.Run("wide input passes through", func(t *testing.T) {
		path := writeTempCSV(t, "x,east,west\n2024-03-11,10,20\n2024-03-12,5,0\n")
		cfg := &contract.Config{InputFile: path}

		rows, categories, err := loadAndPivot(context.Background(), cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"east", "west"}, categories)
		require.Len(t, rows, 2)
		assert.Equal(t, "2024-03-11", rows[0][schema.XField])
		assert.InDelta(t, 10.0, rows[0]["east"], 0.001)
	})

	t.Run("long input pivots on legend", func(t *testing.T) {
		path := writeTempCSV(t, "x,legend,value\n2024-03-11,east,10\n2024-03-11,west,20\n2024-03-12,east,5\n")
		cfg := &contract.Config{
			InputFile:  path,
			Categories: []string{"east", "west"},
		}

		rows, categories, err := loadAndPivot(context.Background(), cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"east", "west"}, categories)
		require.Len(t, rows, 2)
		assert.InDelta(t, 20.0, rows[0]["west"], 0.001)
		assert.InDelta(t, 0.0, rows[1]["west"], 0.001, "Missing legend values should zero-fill")
	})

	t.Run("missing input file", func(t *testing.T) {
		cfg := &contract.Config{}
		_, _, err := loadAndPivot(context.Background(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "input file is required")
	})

	t.Run("unreadable input file", func(t *testing.T) {
		cfg := &contract.Config{InputFile: filepath.Join(t.TempDir(), "missing.csv")}
		_, _, err := loadAndPivot(context.Background(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load input")
	})
}

func TestGetTimelineResults(t *testing.T) {
	path := writeTempCSV(t, "x,east\n2024-03-11,10\n2024-03-13,5\n")
	cfg := &contract.Config{InputFile: path, TrackerMaxPills: 10}

	tc, err := GetTimelineResults(context.Background(), cfg)
	require.NoError(t, err)
	assert.Len(t, tc.Labels, 3, "Calendar gap should be filled")
	assert.InDelta(t, 10.0, tc.TotalsByLabel["2024-03-11"], 0.001)
	assert.InDelta(t, 0.0, tc.TotalsByLabel["2024-03-12"], 0.001)
}

func TestGetAggregateResults(t *testing.T) {
	path := writeTempCSV(t, "x,east,west\n2024-03-11,10,20\n2024-03-12,5,0.5\n")

	t.Run("basic sum", func(t *testing.T) {
		cfg := &contract.Config{InputFile: path, Agg: schema.AggSum}
		totals, categories, err := GetAggregateResults(context.Background(), cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"east", "west"}, categories)
		assert.InDelta(t, 15.0, totals["east"], 0.001)
		assert.InDelta(t, 20.5, totals["west"], 0.001)
	})

	t.Run("advanced count", func(t *testing.T) {
		// Count cells carry per-bucket partial counts from upstream, so
		// the overall count is their sum, not the number of rows.
		cfg := &contract.Config{InputFile: path, Agg: schema.AggCount, Advanced: true}
		totals, _, err := GetAggregateResults(context.Background(), cfg)
		require.NoError(t, err)
		assert.InDelta(t, 15.0, totals["east"], 0.001)
	})
}

func TestGetDeltaResultsValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *contract.Config
		wantErr string
	}{
		{
			name:    "missing source",
			cfg:     &contract.Config{},
			wantErr: "--source is required",
		},
		{
			name:    "missing date field",
			cfg:     &contract.Config{Source: "orders"},
			wantErr: "--date-field is required",
		},
		{
			name:    "missing period",
			cfg:     &contract.Config{Source: "orders", DateField: "order_date"},
			wantErr: "--period is required",
		},
		{
			name: "missing totals backend",
			cfg: &contract.Config{
				Source:     "orders",
				DateField:  "order_date",
				PeriodMode: schema.WeekVsLastWeek,
			},
			wantErr: "--totals-backend is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GetDeltaResults(context.Background(), tt.cfg, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDeltaRecords(t *testing.T) {
	t.Run("legend shape", func(t *testing.T) {
		result := schema.PeriodDeltaResult{
			Deltas:          map[string]float64{"east": 50, "west": -10},
			CurTotals:       map[string]float64{"east": 150, "west": 30},
			PrevTotals:      map[string]float64{"east": 100, "west": 40},
			CurShareTotals:  map[string]float64{"east": 83.33, "west": 16.67},
			PrevShareTotals: map[string]float64{"east": 71.43, "west": 28.57},
		}

		records := deltaRecords(result)
		require.Len(t, records, 2)
		east := records["east"]
		assert.InDelta(t, 150.0, east.Cur, 0.001)
		assert.InDelta(t, 100.0, east.Prev, 0.001)
		assert.InDelta(t, 50.0, east.ChangePct, 0.001)
		assert.InDelta(t, 83.33, east.CurShare, 0.001)
		west := records["west"]
		assert.InDelta(t, -25.0, west.ChangePct, 0.001)
	})

	t.Run("scalar shape", func(t *testing.T) {
		result := schema.PeriodDeltaResult{
			Deltas:    map[string]float64{"revenue": 50},
			CurTotal:  150,
			PrevTotal: 100,
		}

		records := deltaRecords(result)
		require.Len(t, records, 1)
		rec := records["revenue"]
		assert.InDelta(t, 150.0, rec.Cur, 0.001)
		assert.InDelta(t, 100.0, rec.Prev, 0.001)
		assert.InDelta(t, 50.0, rec.ChangePct, 0.001)
		assert.Zero(t, rec.CurShare, "Scalar results carry no share breakdown")
	})
}
