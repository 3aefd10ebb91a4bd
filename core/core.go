// Package core has core logic for timeline alignment, aggregation and period deltas.
package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/pulsegrid/pulsegrid/internal/contract"
	"github.com/pulsegrid/pulsegrid/internal/outwriter"
	"github.com/pulsegrid/pulsegrid/internal/periodres"
	"github.com/pulsegrid/pulsegrid/internal/rowset"
	"github.com/pulsegrid/pulsegrid/internal/totalsql"
	"github.com/pulsegrid/pulsegrid/schema"
)

// ExecutorFunc defines the function signature for executing different computation modes.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// ExecuteTimeline builds the axis-aligned timeline and prints it to stdout.
// It serves as the main entry point for the 'timeline' mode.
func ExecuteTimeline(ctx context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	start := time.Now()
	tc, err := GetTimelineResults(ctx, cfg)
	if err != nil {
		return err
	}
	duration := time.Since(start)
	return outwriter.PrintTimeline(tc, cfg, duration)
}

// GetTimelineResults loads the input rows, pivots them when needed and builds
// the timeline context without printing.
func GetTimelineResults(ctx context.Context, cfg *contract.Config) (schema.TimelineContext, error) {
	rows, categories, err := loadAndPivot(ctx, cfg)
	if err != nil {
		return schema.TimelineContext{}, err
	}
	return BuildTimeline(rows, categories, cfg.TimelineOptions()), nil
}

// ExecuteAggregate reduces the input rows to one value per category and
// prints the result. It serves as the main entry point for the 'aggregate' mode.
func ExecuteAggregate(ctx context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	start := time.Now()
	totals, categories, err := GetAggregateResults(ctx, cfg)
	if err != nil {
		return err
	}
	duration := time.Since(start)
	return outwriter.PrintAggregates(totals, categories, cfg, duration)
}

// GetAggregateResults loads the input rows and aggregates them without printing.
func GetAggregateResults(ctx context.Context, cfg *contract.Config) (map[string]float64, []string, error) {
	rows, categories, err := loadAndPivot(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Advanced {
		return AggregateCategoriesAdvanced(rows, categories, cfg.Agg), categories, nil
	}
	return AggregateCategories(rows, categories, cfg.Agg), categories, nil
}

// ExecutePivot reshapes long-format rows into wide rows and prints them.
// It serves as the main entry point for the 'pivot' mode.
func ExecutePivot(ctx context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	start := time.Now()
	rows, categories, err := loadAndPivot(ctx, cfg)
	if err != nil {
		return err
	}
	duration := time.Since(start)
	return outwriter.PrintPivot(rows, categories, cfg, duration)
}

// ExecuteDeltas computes the period-over-period comparison against the
// configured totals backend and prints the result. It serves as the main
// entry point for the 'delta' mode.
func ExecuteDeltas(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()

	if !shouldSuppressHeader(ctx) {
		outwriter.LogDeltaHeader(cfg)
	}

	result, err := GetDeltaResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}

	recordRunHistory(cfg, mgr, result, start)

	duration := time.Since(start)
	return outwriter.PrintDeltas(result, cfg, duration)
}

// GetDeltaResults runs the delta computation without printing.
func GetDeltaResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (schema.PeriodDeltaResult, error) {
	if cfg.Source == "" {
		return schema.PeriodDeltaResult{}, errors.New("--source is required")
	}
	if cfg.DateField == "" {
		return schema.PeriodDeltaResult{}, errors.New("--date-field is required")
	}
	if cfg.PeriodMode == "" {
		return schema.PeriodDeltaResult{}, errors.New("--period is required")
	}
	if cfg.TotalsBackend == "" {
		return schema.PeriodDeltaResult{}, errors.New("--totals-backend is required")
	}

	svc, err := totalsql.NewService(cfg.TotalsBackend, cfg.TotalsDBConnect)
	if err != nil {
		return schema.PeriodDeltaResult{}, fmt.Errorf("open totals backend: %w", err)
	}
	defer func() { _ = svc.Close() }()

	engine := NewEngine(periodres.NewResolver(), svc, mgr.GetTotalsStore())
	return engine.ComputeDeltas(ctx, cfg.DeltaRequest())
}

// loadAndPivot reads the CSV input and reshapes it into wide rows. When no
// category list is configured, every column besides the axis and pivot
// columns becomes a category.
func loadAndPivot(_ context.Context, cfg *contract.Config) ([]schema.Row, []string, error) {
	if cfg.InputFile == "" {
		return nil, nil, errors.New("input file is required")
	}
	rs, err := rowset.LoadCSV(cfg.InputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load input: %w", err)
	}

	columns := cfg.Columns
	if len(columns) == 0 {
		columns = rs.Columns
	}

	categories := cfg.Categories
	if len(categories) == 0 {
		categories = inferCategories(columns)
	}

	return Pivot(rs.Rows, columns, categories), categories, nil
}

// inferCategories treats every column besides the axis and the pivot pair as
// a numeric category.
func inferCategories(columns []string) []string {
	var categories []string
	for _, col := range columns {
		if col == schema.XField || col == legendColumn || col == valueColumn {
			continue
		}
		categories = append(categories, col)
	}
	return categories
}

// recordRunHistory persists the per-label outcomes of a delta run. History
// failures degrade to warnings so the computation result still reaches the user.
func recordRunHistory(cfg *contract.Config, mgr contract.CacheManager, result schema.PeriodDeltaResult, start time.Time) {
	history := mgr.GetHistoryStore()
	if history == nil {
		return
	}

	configParams := map[string]any{
		"source":     cfg.Source,
		"date_field": cfg.DateField,
		"period":     string(cfg.PeriodMode),
		"agg":        string(cfg.Agg),
		"week_start": string(cfg.WeekStart),
		"tz_offset":  cfg.TZOffsetMinutes,
	}
	runID, err := history.BeginRun(start, configParams)
	if err != nil {
		contract.LogWarn("begin history run", err)
		return
	}

	records := deltaRecords(result)
	labels := make([]string, 0, len(records))
	for label := range records {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	for _, label := range labels {
		if err := history.RecordDelta(runID, label, records[label]); err != nil {
			contract.LogWarn("record delta", err)
		}
	}

	if err := history.EndRun(runID, time.Now(), len(records)); err != nil {
		contract.LogWarn("end history run", err)
	}
}

// deltaRecords flattens a delta result into per-label records, covering both
// the map-shaped and scalar-shaped responses.
func deltaRecords(result schema.PeriodDeltaResult) map[string]schema.DeltaRecord {
	records := make(map[string]schema.DeltaRecord, len(result.Deltas))
	for label, delta := range result.Deltas {
		cur := result.CurTotals[label]
		prev := result.PrevTotals[label]
		if result.CurTotals == nil && result.PrevTotals == nil {
			cur = result.CurTotal
			prev = result.PrevTotal
		}
		records[label] = schema.DeltaRecord{
			Cur:       cur,
			Prev:      prev,
			Delta:     delta,
			ChangePct: ComputeChangePercent(cur, prev),
			CurShare:  result.CurShareTotals[label],
			PrevShare: result.PrevShareTotals[label],
		}
	}
	return records
}
