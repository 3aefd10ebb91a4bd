// Package parquet provides data structures and functions for exporting delta
// history data to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/pulsegrid/pulsegrid/schema"
)

// DeltaRun represents a single period delta run with metadata.
// This struct maps to the pulsegrid_delta_runs database table.
type DeltaRun struct {
	// RunID is the unique identifier for this delta run
	RunID int64 `parquet:"run_id,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable, stored as TIMESTAMP with nanosecond precision)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int64 `parquet:"run_duration_ms,optional,snappy"`

	// TotalLabels is the number of labels compared in this run (nullable)
	TotalLabels *int32 `parquet:"total_labels,optional,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// RunDelta represents one label's comparison outcome within a delta run.
// This struct maps to the pulsegrid_run_deltas database table.
type RunDelta struct {
	// RunID references the parent delta run
	RunID int64 `parquet:"run_id,snappy"`

	// Label is the legend key or series name this outcome belongs to
	Label string `parquet:"label,snappy"`

	// RecordTime is when this outcome was stored (stored as TIMESTAMP with nanosecond precision)
	RecordTime time.Time `parquet:"record_time,snappy"`

	// Cur is the current period total
	Cur float64 `parquet:"cur_total,snappy"`

	// Prev is the previous period total
	Prev float64 `parquet:"prev_total,snappy"`

	// Delta is the absolute difference between the periods
	Delta float64 `parquet:"delta,snappy"`

	// ChangePct is the percentage change between the periods
	ChangePct float64 `parquet:"change_pct,snappy"`

	// CurShare is the current period share of total, in percent
	CurShare float64 `parquet:"cur_share,snappy"`

	// PrevShare is the previous period share of total, in percent
	PrevShare float64 `parquet:"prev_share,snappy"`
}

// WriteDeltaRunsParquet writes a slice of DeltaRun structs to a Parquet file.
func WriteDeltaRunsParquet(data []DeltaRun, outputPath string) error {
	// Create the output file
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Create a Parquet writer using struct schema inference
	// The schema is automatically derived from the DeltaRun struct tags
	writer := parquet.NewGenericWriter[DeltaRun](file)
	defer func() { _ = writer.Close() }()

	// Write all records to the file
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}

	return nil
}

// WriteRunDeltasParquet writes a slice of RunDelta structs to a Parquet file.
func WriteRunDeltasParquet(data []RunDelta, outputPath string) error {
	// Create the output file
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Create a Parquet writer using struct schema inference
	// The schema is automatically derived from the RunDelta struct tags
	writer := parquet.NewGenericWriter[RunDelta](file)
	defer func() { _ = writer.Close() }()

	// Write all records to the file
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}

	return nil
}

// MockFetchDeltaRuns generates sample DeltaRun data for demonstration.
func MockFetchDeltaRuns() []DeltaRun {
	now := time.Now()
	startTime1 := now.Add(-2 * time.Hour)
	endTime1 := startTime1.Add(3 * time.Second)
	durationMs1 := endTime1.Sub(startTime1).Milliseconds()
	totalLabels1 := int32(4)
	configParams1 := `{"source":"orders","date_field":"created_at","period":"tw"}`

	startTime2 := now.Add(-24 * time.Hour)
	endTime2 := startTime2.Add(5 * time.Second)
	durationMs2 := endTime2.Sub(startTime2).Milliseconds()
	totalLabels2 := int32(2)
	configParams2 := `{"source":"signups","date_field":"joined_at","period":"month"}`

	startTime3 := now.Add(-10 * time.Minute)
	// Note: endTime3, durationMs3, configParams3 are nil to demonstrate nullable fields

	return []DeltaRun{
		{
			RunID:         1,
			StartTime:     startTime1,
			EndTime:       &endTime1,
			RunDurationMs: &durationMs1,
			TotalLabels:   &totalLabels1,
			ConfigParams:  &configParams1,
		},
		{
			RunID:         2,
			StartTime:     startTime2,
			EndTime:       &endTime2,
			RunDurationMs: &durationMs2,
			TotalLabels:   &totalLabels2,
			ConfigParams:  &configParams2,
		},
		{
			RunID:         3,
			StartTime:     startTime3,
			EndTime:       nil, // Still running - nullable field
			RunDurationMs: nil, // Not yet calculated - nullable field
			TotalLabels:   nil, // Not yet counted - nullable field
			ConfigParams:  nil, // No config stored - nullable field
		},
	}
}

// MockFetchRunDeltas generates sample RunDelta data for demonstration.
func MockFetchRunDeltas() []RunDelta {
	now := time.Now()

	return []RunDelta{
		{
			RunID:      1,
			Label:      "east",
			RecordTime: now.Add(-2 * time.Hour),
			Cur:        150,
			Prev:       100,
			Delta:      50,
			ChangePct:  50,
			CurShare:   60,
			PrevShare:  40,
		},
		{
			RunID:      1,
			Label:      "west",
			RecordTime: now.Add(-2 * time.Hour),
			Cur:        30,
			Prev:       60,
			Delta:      -30,
			ChangePct:  -50,
			CurShare:   12,
			PrevShare:  24,
		},
		{
			RunID:      2,
			Label:      "value",
			RecordTime: now.Add(-24 * time.Hour),
			Cur:        0,
			Prev:       12.5,
			Delta:      -12.5,
			ChangePct:  -100,
			CurShare:   0,
			PrevShare:  100,
		},
	}
}

// ConvertDeltaRunRecords converts schema.DeltaRunRecord to DeltaRun for Parquet export.
func ConvertDeltaRunRecords(records []schema.DeltaRunRecord) []DeltaRun {
	result := make([]DeltaRun, len(records))
	for i, record := range records {
		var totalLabels *int32
		if record.TotalLabels != nil {
			v := int32(*record.TotalLabels)
			totalLabels = &v
		}
		result[i] = DeltaRun{
			RunID:         record.RunID,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			TotalLabels:   totalLabels,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertRunDeltaRecords converts schema.RunDeltaRecord to RunDelta for Parquet export.
func ConvertRunDeltaRecords(records []schema.RunDeltaRecord) []RunDelta {
	result := make([]RunDelta, len(records))
	for i, record := range records {
		result[i] = RunDelta{
			RunID:      record.RunID,
			Label:      record.Label,
			RecordTime: record.RecordTime,
			Cur:        record.Cur,
			Prev:       record.Prev,
			Delta:      record.Delta,
			ChangePct:  record.ChangePct,
			CurShare:   record.CurShare,
			PrevShare:  record.PrevShare,
		}
	}
	return result
}
