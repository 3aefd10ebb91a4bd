package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pulsegrid/pulsegrid/internal/iocache"
	"github.com/pulsegrid/pulsegrid/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleCompareRequest() schema.TotalsCompareRequest {
	return schema.TotalsCompareRequest{
		Source:    "orders",
		DateField: "order_date",
		Y:         "revenue",
		Agg:       schema.AggSum,
		Start:     time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC),
		PrevStart: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		PrevEnd:   time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
	}
}

func TestGenerateCacheKey(t *testing.T) {
	req := sampleCompareRequest()

	key1 := generateCacheKey(req)
	key2 := generateCacheKey(req)
	assert.Equal(t, key1, key2, "Equal requests should share a cache key")
	assert.Len(t, key1, 64, "Key should be a hex-encoded SHA-256 digest")

	other := req
	other.Source = "signups"
	assert.NotEqual(t, key1, generateCacheKey(other), "Different requests should use different keys")
}

func TestCachedTotalsCompare_CacheHit(t *testing.T) {
	req := sampleCompareRequest()
	cached := schema.TotalsCompareResult{
		Cur:  schema.PeriodTotals{Totals: map[string]float64{"east": 150.0}},
		Prev: schema.PeriodTotals{Totals: map[string]float64{"east": 100.0}},
	}
	data, err := json.Marshal(cached)
	require.NoError(t, err)

	store := new(iocache.MockCacheStore)
	store.On("Get", generateCacheKey(req)).Return(data, currentCacheVersion, time.Now().Unix(), nil)

	svc := new(MockTotalsService)

	result, err := cachedTotalsCompare(context.Background(), store, svc, req)
	require.NoError(t, err)
	assert.InDelta(t, 150.0, result.Cur.Totals["east"], 0.001)

	store.AssertExpectations(t)
	svc.AssertNotCalled(t, "PeriodTotalsCompare", mock.Anything, mock.Anything)
}

func TestCachedTotalsCompare_CacheMiss(t *testing.T) {
	req := sampleCompareRequest()
	computed := schema.TotalsCompareResult{
		Cur:  schema.PeriodTotals{Totals: map[string]float64{"west": 42.0}},
		Prev: schema.PeriodTotals{Totals: map[string]float64{"west": 40.0}},
	}

	store := new(iocache.MockCacheStore)
	store.On("Get", mock.Anything).Return([]byte(nil), 0, int64(0), errors.New("not found"))
	store.On("Set", mock.Anything, mock.Anything, currentCacheVersion, mock.Anything).Return(nil)

	svc := new(MockTotalsService)
	svc.On("PeriodTotalsCompare", mock.Anything, req).Return(computed, nil)

	result, err := cachedTotalsCompare(context.Background(), store, svc, req)
	require.NoError(t, err)
	assert.InDelta(t, 42.0, result.Cur.Totals["west"], 0.001)

	store.AssertExpectations(t)
	svc.AssertExpectations(t)
}

func TestCachedTotalsCompare_BackendError(t *testing.T) {
	req := sampleCompareRequest()

	store := new(iocache.MockCacheStore)
	store.On("Get", mock.Anything).Return([]byte(nil), 0, int64(0), errors.New("not found"))

	svc := new(MockTotalsService)
	svc.On("PeriodTotalsCompare", mock.Anything, req).Return(schema.TotalsCompareResult{}, errors.New("connection refused"))

	_, err := cachedTotalsCompare(context.Background(), store, svc, req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckCacheHit_StaleEntry(t *testing.T) {
	cached := schema.TotalsCompareResult{Cur: schema.PeriodTotals{Totals: map[string]float64{"east": 1.0}}}
	data, err := json.Marshal(cached)
	require.NoError(t, err)

	staleTS := time.Now().Add(-2 * time.Hour).Unix()

	store := new(iocache.MockCacheStore)
	store.On("Get", "some-key").Return(data, currentCacheVersion, staleTS, nil)

	_, ok := checkCacheHit(store, "some-key")
	assert.False(t, ok, "Entries older than the staleness horizon should miss")
}

func TestCheckCacheHit_VersionMismatch(t *testing.T) {
	cached := schema.TotalsCompareResult{Cur: schema.PeriodTotals{Totals: map[string]float64{"east": 1.0}}}
	data, err := json.Marshal(cached)
	require.NoError(t, err)

	store := new(iocache.MockCacheStore)
	store.On("Get", "some-key").Return(data, currentCacheVersion+1, time.Now().Unix(), nil)

	_, ok := checkCacheHit(store, "some-key")
	assert.False(t, ok, "Entries from a different cache version should miss")
}

func TestCheckCacheHit_CorruptPayload(t *testing.T) {
	store := new(iocache.MockCacheStore)
	store.On("Get", "some-key").Return([]byte("{not json"), currentCacheVersion, time.Now().Unix(), nil)

	_, ok := checkCacheHit(store, "some-key")
	assert.False(t, ok, "Unreadable payloads should miss instead of erroring")
}
