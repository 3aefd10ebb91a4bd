package core

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pulsegrid/pulsegrid/internal/contract"
	"github.com/pulsegrid/pulsegrid/schema"
)

// MockPeriodResolver is a testify mock for contract.PeriodResolver.
type MockPeriodResolver struct {
	mock.Mock
}

var _ contract.PeriodResolver = &MockPeriodResolver{}

func (m *MockPeriodResolver) ResolvePeriods(ctx context.Context, query schema.PeriodQuery) (schema.PeriodRange, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(schema.PeriodRange), args.Error(1)
}

// MockTotalsService is a testify mock for contract.TotalsService.
type MockTotalsService struct {
	mock.Mock
}

var _ contract.TotalsService = &MockTotalsService{}

func (m *MockTotalsService) PeriodTotalsCompare(ctx context.Context, req schema.TotalsCompareRequest) (schema.TotalsCompareResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(schema.TotalsCompareResult), args.Error(1)
}

func (m *MockTotalsService) PeriodTotalsBatch(ctx context.Context, req schema.TotalsBatchRequest) (schema.TotalsBatchResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(schema.TotalsBatchResult), args.Error(1)
}

func (m *MockTotalsService) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testRange() schema.PeriodRange {
	return schema.PeriodRange{
		CurStart:  time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		CurEnd:    time.Date(2024, 3, 17, 23, 59, 59, 999000000, time.UTC),
		PrevStart: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		PrevEnd:   time.Date(2024, 3, 10, 23, 59, 59, 999000000, time.UTC),
	}
}

func newResolver(t *testing.T) *MockPeriodResolver {
	t.Helper()
	resolver := &MockPeriodResolver{}
	resolver.On("ResolvePeriods", mock.Anything, mock.Anything).Return(testRange(), nil)
	return resolver
}

func scalarResult(cur, prev float64) schema.TotalsCompareResult {
	return schema.TotalsCompareResult{
		Cur:  schema.PeriodTotals{Total: cur},
		Prev: schema.PeriodTotals{Total: prev},
	}
}

func TestComputeDeltasSingleSeries(t *testing.T) {
	totals := &MockTotalsService{}
	totals.On("PeriodTotalsCompare", mock.Anything, mock.Anything).Return(scalarResult(150, 100), nil)

	engine := NewEngine(newResolver(t), totals, nil)
	result, err := engine.ComputeDeltas(context.Background(), schema.PeriodDeltaRequest{
		Source: "orders", DateField: "created_at", Mode: schema.WeekVsLastWeek,
	})

	require.NoError(t, err)
	assert.InDelta(t, 50.0, result.Deltas["value"], 1e-9)
	assert.InDelta(t, 150.0, result.CurTotal, 1e-9)
	assert.InDelta(t, 100.0, result.PrevTotal, 1e-9)
	assert.Equal(t, schema.FallbackNotAttempted, result.Fallback)
	totals.AssertNumberOfCalls(t, "PeriodTotalsCompare", 1)
}

func TestComputeDeltasDefaultsWeekStart(t *testing.T) {
	resolver := &MockPeriodResolver{}
	resolver.On("ResolvePeriods", mock.Anything, mock.MatchedBy(func(q schema.PeriodQuery) bool {
		return q.WeekStart == schema.WeekStartMonday
	})).Return(testRange(), nil)

	totals := &MockTotalsService{}
	totals.On("PeriodTotalsCompare", mock.Anything, mock.Anything).Return(scalarResult(1, 1), nil)

	engine := NewEngine(resolver, totals, nil)
	_, err := engine.ComputeDeltas(context.Background(), schema.PeriodDeltaRequest{
		Source: "orders", DateField: "created_at", Mode: schema.TodayVsYesterday,
	})

	require.NoError(t, err)
	resolver.AssertExpectations(t)
}

func TestComputeDeltasForcesSumWithValueField(t *testing.T) {
	totals := &MockTotalsService{}
	totals.On("PeriodTotalsCompare", mock.Anything, mock.MatchedBy(func(req schema.TotalsCompareRequest) bool {
		return req.Agg == schema.AggSum && req.Y == "amount"
	})).Return(scalarResult(10, 5), nil)

	engine := NewEngine(newResolver(t), totals, nil)
	_, err := engine.ComputeDeltas(context.Background(), schema.PeriodDeltaRequest{
		Source: "orders", DateField: "created_at", Mode: schema.TodayVsYesterday,
		Y: "amount", Agg: schema.AggCount,
	})

	require.NoError(t, err)
	totals.AssertExpectations(t)
}

func TestComputeDeltasResolverErrorPropagates(t *testing.T) {
	resolver := &MockPeriodResolver{}
	resolver.On("ResolvePeriods", mock.Anything, mock.Anything).
		Return(schema.PeriodRange{}, errors.New("bad mode"))

	engine := NewEngine(resolver, &MockTotalsService{}, nil)
	_, err := engine.ComputeDeltas(context.Background(), schema.PeriodDeltaRequest{Mode: "bogus"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve periods")
}

func TestComputeDeltasSanitizesDateFieldFilters(t *testing.T) {
	totals := &MockTotalsService{}
	totals.On("PeriodTotalsCompare", mock.Anything, mock.MatchedBy(func(req schema.TotalsCompareRequest) bool {
		_, hasStatus := req.Where["status"]
		return len(req.Where) == 1 && hasStatus
	})).Return(scalarResult(1, 1), nil)

	engine := NewEngine(newResolver(t), totals, nil)
	_, err := engine.ComputeDeltas(context.Background(), schema.PeriodDeltaRequest{
		Source: "orders", DateField: "created_at", Mode: schema.TodayVsYesterday,
		Where: map[string]any{
			"status":           "active",
			"created_at":       "2024-01-01",
			"created_at__gte":  "2024-01-01",
			"created_at__lte":  "2024-02-01",
			"created_at__gt":   "x",
			"created_at__lt":   "y",
		},
	})

	require.NoError(t, err)
	totals.AssertExpectations(t)
}

func TestComputeDeltasSingleSeriesFallback(t *testing.T) {
	ranges := testRange()
	duration := ranges.PrevEnd.Sub(ranges.PrevStart)
	wantStart := ranges.PrevStart.Add(-duration)
	wantEnd := ranges.PrevStart.Add(-time.Millisecond)

	t.Run("adopted", func(t *testing.T) {
		totals := &MockTotalsService{}
		totals.On("PeriodTotalsCompare", mock.Anything, mock.MatchedBy(func(req schema.TotalsCompareRequest) bool {
			return req.PrevStart.Equal(ranges.PrevStart)
		})).Return(scalarResult(150, 0), nil).Once()
		totals.On("PeriodTotalsCompare", mock.Anything, mock.MatchedBy(func(req schema.TotalsCompareRequest) bool {
			return req.PrevStart.Equal(wantStart) && req.PrevEnd.Equal(wantEnd)
		})).Return(scalarResult(150, 40), nil).Once()

		engine := NewEngine(newResolver(t), totals, nil)
		result, err := engine.ComputeDeltas(context.Background(), schema.PeriodDeltaRequest{
			Source: "orders", DateField: "created_at", Mode: schema.WeekVsLastWeek,
		})

		require.NoError(t, err)
		assert.Equal(t, schema.FallbackAdopted, result.Fallback)
		assert.InDelta(t, 40.0, result.PrevTotal, 1e-9)
		assert.InDelta(t, 110.0, result.Deltas["value"], 1e-9)
		totals.AssertExpectations(t)
	})

	t.Run("ignored when still zero", func(t *testing.T) {
		totals := &MockTotalsService{}
		totals.On("PeriodTotalsCompare", mock.Anything, mock.Anything).Return(scalarResult(150, 0), nil)

		engine := NewEngine(newResolver(t), totals, nil)
		result, err := engine.ComputeDeltas(context.Background(), schema.PeriodDeltaRequest{
			Source: "orders", DateField: "created_at", Mode: schema.WeekVsLastWeek,
		})

		require.NoError(t, err)
		assert.Equal(t, schema.FallbackIgnored, result.Fallback)
		assert.InDelta(t, 0.0, result.PrevTotal, 1e-9)
		totals.AssertNumberOfCalls(t, "PeriodTotalsCompare", 2)
	})

	t.Run("failure swallowed", func(t *testing.T) {
		totals := &MockTotalsService{}
		totals.On("PeriodTotalsCompare", mock.Anything, mock.MatchedBy(func(req schema.TotalsCompareRequest) bool {
			return req.PrevStart.Equal(ranges.PrevStart)
		})).Return(scalarResult(150, 0), nil).Once()
		totals.On("PeriodTotalsCompare", mock.Anything, mock.Anything).
			Return(schema.TotalsCompareResult{}, errors.New("backend down")).Once()

		engine := NewEngine(newResolver(t), totals, nil)
		result, err := engine.ComputeDeltas(context.Background(), schema.PeriodDeltaRequest{
			Source: "orders", DateField: "created_at", Mode: schema.WeekVsLastWeek,
		})

		require.NoError(t, err)
		assert.Equal(t, schema.FallbackFailed, result.Fallback)
		assert.InDelta(t, 150.0, result.Deltas["value"], 1e-9)
	})
}

func TestComputeDeltasLegendShape(t *testing.T) {
	totals := &MockTotalsService{}
	// Per-key breakdown call.
	totals.On("PeriodTotalsCompare", mock.Anything, mock.MatchedBy(func(req schema.TotalsCompareRequest) bool {
		return len(req.Legend) == 1
	})).Return(schema.TotalsCompareResult{
		Cur:  schema.PeriodTotals{Totals: map[string]float64{"east": 60, "west": 40}},
		Prev: schema.PeriodTotals{Totals: map[string]float64{"east": 30, "south": 10}},
	}, nil).Once()
	// Overall share denominator call is ungrouped.
	totals.On("PeriodTotalsCompare", mock.Anything, mock.MatchedBy(func(req schema.TotalsCompareRequest) bool {
		return req.Legend == nil
	})).Return(scalarResult(200, 80), nil).Once()

	engine := NewEngine(newResolver(t), totals, nil)
	result, err := engine.ComputeDeltas(context.Background(), schema.PeriodDeltaRequest{
		Source: "orders", DateField: "created_at", Mode: schema.WeekVsLastWeek,
		Legend: []string{"region"},
	})

	require.NoError(t, err)
	assert.InDelta(t, 30.0, result.Deltas["east"], 1e-9)
	assert.InDelta(t, 40.0, result.Deltas["west"], 1e-9)
	assert.InDelta(t, -10.0, result.Deltas["south"], 1e-9)
	assert.InDelta(t, 200.0, result.CurOverall, 1e-9)
	assert.InDelta(t, 30.0, result.CurShareTotals["east"], 1e-9)
	assert.InDelta(t, 37.5, result.PrevShareTotals["east"], 1e-9)
	assert.Equal(t, schema.FallbackNotAttempted, result.Fallback)
	totals.AssertExpectations(t)
}

func TestComputeDeltasLegendOverallStripsLegendFilters(t *testing.T) {
	totals := &MockTotalsService{}
	totals.On("PeriodTotalsCompare", mock.Anything, mock.MatchedBy(func(req schema.TotalsCompareRequest) bool {
		return len(req.Legend) == 1
	})).Return(schema.TotalsCompareResult{
		Cur:  schema.PeriodTotals{Totals: map[string]float64{"east": 1}},
		Prev: schema.PeriodTotals{Totals: map[string]float64{"east": 1}},
	}, nil).Once()
	totals.On("PeriodTotalsCompare", mock.Anything, mock.MatchedBy(func(req schema.TotalsCompareRequest) bool {
		_, hasRegion := req.Where["region"]
		_, hasRegionOp := req.Where["region__ne"]
		_, hasStatus := req.Where["status"]
		return req.Legend == nil && !hasRegion && !hasRegionOp && hasStatus
	})).Return(scalarResult(1, 1), nil).Once()

	engine := NewEngine(newResolver(t), totals, nil)
	_, err := engine.ComputeDeltas(context.Background(), schema.PeriodDeltaRequest{
		Source: "orders", DateField: "created_at", Mode: schema.WeekVsLastWeek,
		Legend: []string{"region"},
		Where:  map[string]any{"region": "east", "region__ne": "west", "status": "active"},
	})

	require.NoError(t, err)
	totals.AssertExpectations(t)
}

func TestComputeDeltasLegendFallbackAdoptsKeySet(t *testing.T) {
	ranges := testRange()
	duration := ranges.PrevEnd.Sub(ranges.PrevStart)
	wantStart := ranges.PrevStart.Add(-duration)

	totals := &MockTotalsService{}
	totals.On("PeriodTotalsCompare", mock.Anything, mock.MatchedBy(func(req schema.TotalsCompareRequest) bool {
		return len(req.Legend) == 1 && req.PrevStart.Equal(ranges.PrevStart)
	})).Return(schema.TotalsCompareResult{
		Cur:  schema.PeriodTotals{Totals: map[string]float64{"east": 50}},
		Prev: schema.PeriodTotals{Totals: map[string]float64{}},
	}, nil).Once()
	totals.On("PeriodTotalsCompare", mock.Anything, mock.MatchedBy(func(req schema.TotalsCompareRequest) bool {
		return len(req.Legend) == 1 && req.PrevStart.Equal(wantStart)
	})).Return(schema.TotalsCompareResult{
		Cur:  schema.PeriodTotals{Totals: map[string]float64{"east": 50}},
		Prev: schema.PeriodTotals{Totals: map[string]float64{"north": 20}},
	}, nil).Once()
	totals.On("PeriodTotalsCompare", mock.Anything, mock.MatchedBy(func(req schema.TotalsCompareRequest) bool {
		return req.Legend == nil
	})).Return(scalarResult(50, 20), nil).Once()

	engine := NewEngine(newResolver(t), totals, nil)
	result, err := engine.ComputeDeltas(context.Background(), schema.PeriodDeltaRequest{
		Source: "orders", DateField: "created_at", Mode: schema.WeekVsLastWeek,
		Legend: []string{"region"},
	})

	require.NoError(t, err)
	assert.Equal(t, schema.FallbackAdopted, result.Fallback)
	assert.InDelta(t, 50.0, result.Deltas["east"], 1e-9)
	assert.InDelta(t, -20.0, result.Deltas["north"], 1e-9)
	assert.InDelta(t, 20.0, result.PrevTotals["north"], 1e-9)
	totals.AssertExpectations(t)
}

func TestComputeDeltasSeriesShape(t *testing.T) {
	totals := &MockTotalsService{}
	totals.On("PeriodTotalsBatch", mock.Anything, mock.MatchedBy(func(req schema.TotalsBatchRequest) bool {
		return len(req.Requests) == 4
	})).Return(schema.TotalsBatchResult{
		Results: map[string]float64{
			"cur:0": 100, "prev:0": 80,
			"cur:1": 50, "prev:1": 20,
		},
	}, nil).Once()

	engine := NewEngine(newResolver(t), totals, nil)
	result, err := engine.ComputeDeltas(context.Background(), schema.PeriodDeltaRequest{
		Source: "orders", DateField: "created_at", Mode: schema.WeekVsLastWeek,
		Series: []schema.SeriesSpec{
			{Label: "Revenue", Y: "amount"},
			{Y: "refunds"},
		},
	})

	require.NoError(t, err)
	assert.InDelta(t, 20.0, result.Deltas["Revenue"], 1e-9)
	assert.InDelta(t, 30.0, result.Deltas["refunds"], 1e-9)
	assert.InDelta(t, 150.0, result.CurOverall, 1e-9)
	assert.InDelta(t, 100.0, result.PrevOverall, 1e-9)
	// Shares against the summed overall.
	assert.InDelta(t, 100.0/1.5, result.CurShareTotals["Revenue"], 1e-6)
	assert.Equal(t, schema.FallbackNotAttempted, result.Fallback)
	totals.AssertExpectations(t)

	// One logical round trip, never N compare calls.
	totals.AssertNotCalled(t, "PeriodTotalsCompare", mock.Anything, mock.Anything)
}

func TestComputeDeltasSeriesBatchErrorPropagates(t *testing.T) {
	totals := &MockTotalsService{}
	totals.On("PeriodTotalsBatch", mock.Anything, mock.Anything).
		Return(schema.TotalsBatchResult{}, errors.New("backend down"))

	engine := NewEngine(newResolver(t), totals, nil)
	_, err := engine.ComputeDeltas(context.Background(), schema.PeriodDeltaRequest{
		Source: "orders", DateField: "created_at", Mode: schema.WeekVsLastWeek,
		Series: []schema.SeriesSpec{{Y: "amount"}},
	})

	require.Error(t, err)
}

func TestComputeChangePercent(t *testing.T) {
	assert.InDelta(t, 50.0, ComputeChangePercent(150, 100), 1e-9)
	assert.InDelta(t, -50.0, ComputeChangePercent(50, 100), 1e-9)
	assert.InDelta(t, 100.0, ComputeChangePercent(42, 0), 1e-9)
	assert.InDelta(t, 0.0, ComputeChangePercent(0, 0), 1e-9)
	assert.InDelta(t, 0.0, ComputeChangePercent(math.NaN(), math.Inf(1)), 1e-9)
	// Negative previous values divide by their magnitude.
	assert.InDelta(t, 200.0, ComputeChangePercent(100, -100), 1e-9)
}

func TestShareOfTotal(t *testing.T) {
	assert.InDelta(t, 25.0, shareOfTotal(25, 100), 1e-9)
	assert.InDelta(t, 100.0, shareOfTotal(5, 0), 1e-9)
	assert.InDelta(t, 0.0, shareOfTotal(0, 0), 1e-9)
	assert.InDelta(t, -25.0, shareOfTotal(-25, 100), 1e-9)
	assert.InDelta(t, 25.0, shareOfTotal(25, -100), 1e-9)
}
