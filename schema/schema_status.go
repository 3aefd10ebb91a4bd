package schema

import "time"

// CacheStatus holds status information about the totals cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int64     `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// DeltaRunRecord represents one completed delta run row in the history store.
type DeltaRunRecord struct {
	RunID         int64      `json:"run_id"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	RunDurationMs *int64     `json:"run_duration_ms,omitempty"`
	TotalLabels   *int       `json:"total_labels,omitempty"`
	ConfigParams  *string    `json:"config_params,omitempty"`
}

// RunDeltaRecord represents one label's stored comparison outcome.
type RunDeltaRecord struct {
	RunID      int64     `json:"run_id"`
	Label      string    `json:"label"`
	RecordTime time.Time `json:"record_time"`
	Cur        float64   `json:"cur"`
	Prev       float64   `json:"prev"`
	Delta      float64   `json:"delta"`
	ChangePct  float64   `json:"change_pct"`
	CurShare   float64   `json:"cur_share"`
	PrevShare  float64   `json:"prev_share"`
}

// HistoryStatus holds status information about the delta history store.
type HistoryStatus struct {
	Backend       string           `json:"backend"`
	Connected     bool             `json:"connected"`
	TotalRuns     int64            `json:"total_runs"`
	LastRunID     int64            `json:"last_run_id"`
	LastRunTime   time.Time        `json:"last_run_time"`
	OldestRunTime time.Time        `json:"oldest_run_time"`
	TotalDeltas   int64            `json:"total_deltas"`
	TableSizes    map[string]int64 `json:"table_sizes"`
}
