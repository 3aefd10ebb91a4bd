package core

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pulsegrid/pulsegrid/internal/contract"
	"github.com/pulsegrid/pulsegrid/schema"
)

// Engine computes current-vs-prior period deltas by orchestrating a period
// resolver and a totals service. The cache store is optional; a nil store
// disables compare-call caching.
type Engine struct {
	resolver contract.PeriodResolver
	totals   contract.TotalsService
	cache    contract.CacheStore
}

// NewEngine builds a delta engine. Pass a nil cache to query directly.
func NewEngine(resolver contract.PeriodResolver, totals contract.TotalsService, cache contract.CacheStore) *Engine {
	return &Engine{resolver: resolver, totals: totals, cache: cache}
}

// ComputeDeltas resolves the comparison window once, then branches on the
// request shape: per-legend-key breakdown, batched multi-series, or a single
// scalar comparison. Resolver and required totals failures propagate; only
// the zero-previous fallback query is best-effort.
func (e *Engine) ComputeDeltas(ctx context.Context, req schema.PeriodDeltaRequest) (schema.PeriodDeltaResult, error) {
	weekStart := req.WeekStart
	if weekStart == "" {
		weekStart = schema.WeekStartMonday
	}
	ranges, err := e.resolver.ResolvePeriods(ctx, schema.PeriodQuery{
		Mode:            req.Mode,
		TZOffsetMinutes: req.TZOffsetMinutes,
		WeekStart:       weekStart,
	})
	if err != nil {
		return schema.PeriodDeltaResult{}, fmt.Errorf("resolve periods: %w", err)
	}

	where := sanitizeWhere(req.Where, req.DateField)

	switch {
	case len(req.Legend) > 0:
		return e.computeLegendDeltas(ctx, req, ranges, where)
	case len(req.Series) > 0:
		return e.computeSeriesDeltas(ctx, req, ranges, where)
	default:
		return e.computeSingleDelta(ctx, req, ranges, where)
	}
}

// computeLegendDeltas compares per-key breakdowns for the legend fields and
// derives share-of-total percentages against an ungrouped overall query.
func (e *Engine) computeLegendDeltas(ctx context.Context, req schema.PeriodDeltaRequest, ranges schema.PeriodRange, where map[string]any) (schema.PeriodDeltaResult, error) {
	cmpReq := schema.TotalsCompareRequest{
		Source:       req.Source,
		DatasourceID: req.DatasourceID,
		DateField:    req.DateField,
		Start:        ranges.CurStart,
		End:          ranges.CurEnd,
		PrevStart:    ranges.PrevStart,
		PrevEnd:      ranges.PrevEnd,
		Where:        where,
		Legend:       req.Legend,
		Agg:          req.Agg,
		Y:            req.Y,
		Measure:      req.Measure,
	}

	cmp, err := e.compare(ctx, cmpReq)
	if err != nil {
		return schema.PeriodDeltaResult{}, err
	}
	cur := cmp.Cur.Totals
	prev := cmp.Prev.Totals

	outcome := schema.FallbackNotAttempted
	if sumTotals(prev) == 0 && sumTotals(cur) > 0 {
		prev, outcome = e.fallbackLegendTotals(ctx, cmpReq, ranges, prev)
	}

	keys := unionKeys(cur, prev)
	deltas := make(map[string]float64, len(keys))
	for _, k := range keys {
		deltas[k] = cur[k] - prev[k]
	}

	// Overall totals across the full filter minus the legend constraints
	// serve as the share-of-total denominator.
	overallReq := cmpReq
	overallReq.Legend = nil
	overallReq.Where = stripFieldConstraints(where, req.Legend)
	overall, err := e.compare(ctx, overallReq)
	if err != nil {
		return schema.PeriodDeltaResult{}, err
	}

	curShares := make(map[string]float64, len(keys))
	prevShares := make(map[string]float64, len(keys))
	for _, k := range keys {
		curShares[k] = shareOfTotal(cur[k], overall.Cur.Total)
		prevShares[k] = shareOfTotal(prev[k], overall.Prev.Total)
	}

	return schema.PeriodDeltaResult{
		Deltas:          deltas,
		CurTotals:       copyTotals(cur),
		PrevTotals:      copyTotals(prev),
		CurOverall:      overall.Cur.Total,
		PrevOverall:     overall.Prev.Total,
		CurShareTotals:  curShares,
		PrevShareTotals: prevShares,
		Fallback:        outcome,
	}, nil
}

// fallbackLegendTotals re-queries a window of identical duration ending at
// prevStart and adopts its previous side when it carries data. A failed
// fallback query is swallowed and the original previous side stands.
func (e *Engine) fallbackLegendTotals(ctx context.Context, cmpReq schema.TotalsCompareRequest, ranges schema.PeriodRange, prev map[string]float64) (map[string]float64, schema.FallbackOutcome) {
	fbReq := cmpReq
	fbReq.PrevStart, fbReq.PrevEnd = fallbackWindow(ranges)

	fb, err := e.compare(ctx, fbReq)
	if err != nil {
		return prev, schema.FallbackFailed
	}
	if sumTotals(fb.Prev.Totals) > 0 {
		return fb.Prev.Totals, schema.FallbackAdopted
	}
	return prev, schema.FallbackIgnored
}

// computeSeriesDeltas submits one batched totals request with two sub-queries
// per series entry, then derives per-label deltas and overall shares.
func (e *Engine) computeSeriesDeltas(ctx context.Context, req schema.PeriodDeltaRequest, ranges schema.PeriodRange, where map[string]any) (schema.PeriodDeltaResult, error) {
	entries := make([]schema.TotalsBatchEntry, 0, 2*len(req.Series))
	labels := make([]string, len(req.Series))

	for i, s := range req.Series {
		agg := s.Agg
		if agg == "" {
			agg = req.Agg
		}
		y := s.Y
		if y == "" {
			y = req.Y
		}
		measure := s.Measure
		if measure == "" {
			measure = req.Measure
		}
		labels[i] = seriesLabel(s, y, measure, i)

		base := schema.TotalsBatchEntry{
			Source:       req.Source,
			DatasourceID: req.DatasourceID,
			DateField:    req.DateField,
			Where:        where,
			Agg:          agg,
			Y:            y,
			Measure:      measure,
		}

		curEntry := base
		curEntry.Key = fmt.Sprintf("cur:%d", i)
		curEntry.Start, curEntry.End = ranges.CurStart, ranges.CurEnd

		prevEntry := base
		prevEntry.Key = fmt.Sprintf("prev:%d", i)
		prevEntry.Start, prevEntry.End = ranges.PrevStart, ranges.PrevEnd

		entries = append(entries, curEntry, prevEntry)
	}

	batch, err := e.totals.PeriodTotalsBatch(ctx, schema.TotalsBatchRequest{Requests: entries})
	if err != nil {
		return schema.PeriodDeltaResult{}, fmt.Errorf("batch totals: %w", err)
	}

	deltas := make(map[string]float64, len(labels))
	curTotals := make(map[string]float64, len(labels))
	prevTotals := make(map[string]float64, len(labels))
	var curOverall, prevOverall float64

	for i, label := range labels {
		cur := batch.Results[fmt.Sprintf("cur:%d", i)]
		prev := batch.Results[fmt.Sprintf("prev:%d", i)]
		deltas[label] = cur - prev
		curTotals[label] = cur
		prevTotals[label] = prev
		curOverall += cur
		prevOverall += prev
	}

	curShares := make(map[string]float64, len(labels))
	prevShares := make(map[string]float64, len(labels))
	for _, label := range labels {
		curShares[label] = shareOfTotal(curTotals[label], curOverall)
		prevShares[label] = shareOfTotal(prevTotals[label], prevOverall)
	}

	return schema.PeriodDeltaResult{
		Deltas:          deltas,
		CurTotals:       curTotals,
		PrevTotals:      prevTotals,
		CurOverall:      curOverall,
		PrevOverall:     prevOverall,
		CurShareTotals:  curShares,
		PrevShareTotals: prevShares,
		Fallback:        schema.FallbackNotAttempted,
	}, nil
}

// computeSingleDelta compares one scalar total across the two periods,
// applying the same zero-previous fallback as the legend branch.
func (e *Engine) computeSingleDelta(ctx context.Context, req schema.PeriodDeltaRequest, ranges schema.PeriodRange, where map[string]any) (schema.PeriodDeltaResult, error) {
	agg := req.Agg
	// Counting rows is meaningless once a value field is named.
	if req.Y != "" && (agg == schema.AggCount || agg == schema.AggNone) {
		agg = schema.AggSum
	}

	cmpReq := schema.TotalsCompareRequest{
		Source:       req.Source,
		DatasourceID: req.DatasourceID,
		DateField:    req.DateField,
		Start:        ranges.CurStart,
		End:          ranges.CurEnd,
		PrevStart:    ranges.PrevStart,
		PrevEnd:      ranges.PrevEnd,
		Where:        where,
		Agg:          agg,
		Y:            req.Y,
		Measure:      req.Measure,
	}

	cmp, err := e.compare(ctx, cmpReq)
	if err != nil {
		return schema.PeriodDeltaResult{}, err
	}
	cur := cmp.Cur.Total
	prev := cmp.Prev.Total

	outcome := schema.FallbackNotAttempted
	if prev == 0 && cur > 0 {
		fbReq := cmpReq
		fbReq.PrevStart, fbReq.PrevEnd = fallbackWindow(ranges)
		if fb, fbErr := e.compare(ctx, fbReq); fbErr != nil {
			outcome = schema.FallbackFailed
		} else if fb.Prev.Total > 0 {
			prev = fb.Prev.Total
			outcome = schema.FallbackAdopted
		} else {
			outcome = schema.FallbackIgnored
		}
	}

	return schema.PeriodDeltaResult{
		Deltas:    map[string]float64{"value": cur - prev},
		CurTotal:  cur,
		PrevTotal: prev,
		Fallback:  outcome,
	}, nil
}

// compare routes a totals comparison through the cache when one is configured.
func (e *Engine) compare(ctx context.Context, req schema.TotalsCompareRequest) (schema.TotalsCompareResult, error) {
	if e.cache == nil {
		return e.totals.PeriodTotalsCompare(ctx, req)
	}
	return cachedTotalsCompare(ctx, e.cache, e.totals, req)
}

// ComputeChangePercent expresses the movement from prev to cur as a percent.
// A zero previous value reads as a 100 percent change when the current value
// is nonzero.
func ComputeChangePercent(cur, prev float64) float64 {
	curFinite := isFinite(cur)
	prevFinite := isFinite(prev)
	if !curFinite && !prevFinite {
		return 0
	}
	if !curFinite {
		cur = 0
	}
	if !prevFinite {
		prev = 0
	}
	if prev == 0 {
		if cur != 0 {
			return 100
		}
		return 0
	}
	return (cur - prev) / math.Abs(prev) * 100
}

// shareOfTotal expresses total as a percentage of overall. A zero overall
// with nonzero total reads as 100 percent.
func shareOfTotal(total, overall float64) float64 {
	if overall == 0 {
		if total != 0 {
			return 100
		}
		return 0
	}
	return total / math.Abs(overall) * 100
}

// fallbackWindow returns a window of identical duration ending exactly at
// the previous period's start.
func fallbackWindow(ranges schema.PeriodRange) (time.Time, time.Time) {
	duration := ranges.PrevEnd.Sub(ranges.PrevStart)
	return ranges.PrevStart.Add(-duration), ranges.PrevStart.Add(-time.Millisecond)
}

// sanitizeWhere drops the date-field constraints from a filter so the period
// slice is the only constraint on that field. An empty result reads as an
// absent filter.
func sanitizeWhere(where map[string]any, dateField string) map[string]any {
	if len(where) == 0 {
		return nil
	}
	out := make(map[string]any, len(where))
	for k, v := range where {
		if k == dateField {
			continue
		}
		if suffix, found := strings.CutPrefix(k, dateField); found {
			switch suffix {
			case "__gte", "__lte", "__gt", "__lt":
				continue
			}
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// stripFieldConstraints removes constraints on the given fields, including
// operator-suffixed forms, from a filter.
func stripFieldConstraints(where map[string]any, fields []string) map[string]any {
	if len(where) == 0 {
		return nil
	}
	out := make(map[string]any, len(where))
	for k, v := range where {
		if constrainsAnyField(k, fields) {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func constrainsAnyField(key string, fields []string) bool {
	for _, f := range fields {
		if key == f || strings.HasPrefix(key, f+"__") {
			return true
		}
	}
	return false
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func sumTotals(totals map[string]float64) float64 {
	var sum float64
	for _, v := range totals {
		sum += v
	}
	return sum
}

// unionKeys returns the sorted union of keys across both sides. Sorting keeps
// delta output deterministic.
func unionKeys(cur, prev map[string]float64) []string {
	seen := make(map[string]struct{}, len(cur)+len(prev))
	for k := range cur {
		seen[k] = struct{}{}
	}
	for k := range prev {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyTotals(totals map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(totals))
	for k, v := range totals {
		out[k] = v
	}
	return out
}

// seriesLabel picks the display label for a series entry, preferring the
// explicit label, then the value field, then the measure.
func seriesLabel(s schema.SeriesSpec, y, measure string, idx int) string {
	switch {
	case s.Label != "":
		return s.Label
	case y != "":
		return y
	case measure != "":
		return measure
	default:
		return fmt.Sprintf("series_%d", idx)
	}
}
