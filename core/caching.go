package core

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pulsegrid/pulsegrid/internal/contract"
	"github.com/pulsegrid/pulsegrid/schema"
)

// currentCacheVersion defines the version of the cache schema
const currentCacheVersion = 1

// cachedTotalsCompare wraps a totals comparison with a keyed cache lookup.
func cachedTotalsCompare(ctx context.Context, store contract.CacheStore, svc contract.TotalsService, req schema.TotalsCompareRequest) (schema.TotalsCompareResult, error) {
	key := generateCacheKey(req)

	// Check for cache hit
	if result, ok := checkCacheHit(store, key); ok {
		return result, nil
	}

	// Cache miss: compute and store
	result, err := svc.PeriodTotalsCompare(ctx, req)
	if err != nil {
		return schema.TotalsCompareResult{}, err
	}
	if data, err := json.Marshal(result); err == nil {
		_ = store.Set(key, data, currentCacheVersion, time.Now().Unix())
	}
	return result, nil
}

// checkCacheHit attempts to retrieve and validate a cached result
func checkCacheHit(store contract.CacheStore, key string) (schema.TotalsCompareResult, bool) {
	data, version, ts, err := store.Get(key)
	if err != nil {
		return schema.TotalsCompareResult{}, false // Cache miss
	}

	// Validate version and staleness
	if version == currentCacheVersion {
		entryTimestamp := time.Unix(ts, 0)
		if time.Since(entryTimestamp) <= contract.CacheGranularity {
			var result schema.TotalsCompareResult
			if err := json.Unmarshal(data, &result); err == nil {
				return result, true // Cache hit
			}
		}
	}

	return schema.TotalsCompareResult{}, false // Cache miss (stale or version mismatch)
}

// generateCacheKey creates a unique key based on comparison parameters.
// The request marshals deterministically, so equal requests share a key.
func generateCacheKey(req schema.TotalsCompareRequest) string {
	data, err := json.Marshal(req)
	if err != nil {
		data = fmt.Appendf(nil, "%v", req)
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
