// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/pulsegrid/pulsegrid/schema"
)

// PeriodResolver turns a named comparison mode into concrete calendar
// boundaries. This allows the delta engine to be tested with a fixed clock.
type PeriodResolver interface {
	// ResolvePeriods returns the current and previous period boundaries
	// for the given mode, timezone offset and week start.
	ResolvePeriods(ctx context.Context, query schema.PeriodQuery) (schema.PeriodRange, error)
}

// TotalsService answers aggregate totals queries against a datasource.
// This allows the delta engine to be tested without a real database.
type TotalsService interface {
	// PeriodTotalsCompare returns totals for the current and previous
	// periods in one call, broken down per legend key when Legend is set.
	PeriodTotalsCompare(ctx context.Context, req schema.TotalsCompareRequest) (schema.TotalsCompareResult, error)

	// PeriodTotalsBatch resolves several scalar totals queries in one
	// logical round trip, keyed by each entry's Key.
	PeriodTotalsBatch(ctx context.Context, req schema.TotalsBatchRequest) (schema.TotalsBatchResult, error)

	// Close releases the underlying connection pool.
	Close() error
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetTotalsStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// HistoryStore defines the interface for tracking delta runs and storing
// per-label comparison outcomes.
type HistoryStore interface {
	// BeginRun creates a new delta run and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the delta run with completion data
	EndRun(runID int64, endTime time.Time, totalLabels int) error

	// RecordDelta stores one label's comparison outcome for a run
	RecordDelta(runID int64, label string, rec schema.DeltaRecord) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllDeltaRuns retrieves every recorded delta run
	GetAllDeltaRuns() ([]schema.DeltaRunRecord, error)

	// GetAllRunDeltas retrieves every stored per-label outcome
	GetAllRunDeltas() ([]schema.RunDeltaRecord, error)

	// Close releases the database connection
	Close() error
}
