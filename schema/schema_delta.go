package schema

import "time"

// SeriesSpec describes one entry of a multi-series delta request.
// Empty fields fall back to the request-level defaults.
type SeriesSpec struct {
	Label   string  `json:"label,omitempty"`
	Y       string  `json:"y,omitempty"`
	Measure string  `json:"measure,omitempty"`
	Agg     AggMode `json:"agg,omitempty"`
}

// PeriodDeltaRequest describes a current-vs-prior comparison computation.
// Exactly one of Legend, Series, or neither (single-series default)
// determines the response shape.
type PeriodDeltaRequest struct {
	Source       string         `json:"source"`
	DatasourceID string         `json:"datasourceId,omitempty"`
	DateField    string         `json:"dateField"`
	Where        map[string]any `json:"where,omitempty"`
	Legend       []string       `json:"legend,omitempty"`
	Series       []SeriesSpec   `json:"series,omitempty"`
	Agg          AggMode        `json:"agg,omitempty"`
	Y            string         `json:"y,omitempty"`
	Measure      string         `json:"measure,omitempty"`
	Mode         PeriodMode     `json:"mode"`

	// TZOffsetMinutes is the fixed offset east of UTC used for calendar
	// boundaries. Zero means UTC.
	TZOffsetMinutes int `json:"tzOffsetMinutes,omitempty"`

	// WeekStart defaults to Monday when empty.
	WeekStart WeekStart `json:"weekStart,omitempty"`
}

// PeriodDeltaResult holds the deltas and supporting totals of a comparison.
// Populated fields depend on the request shape: legend requests fill the
// per-key maps and overall totals, multi-series requests fill per-label maps,
// single-series requests fill the scalar totals.
type PeriodDeltaResult struct {
	Deltas          map[string]float64 `json:"deltas"`
	CurTotals       map[string]float64 `json:"curTotals,omitempty"`
	PrevTotals      map[string]float64 `json:"prevTotals,omitempty"`
	CurTotal        float64            `json:"curTotal,omitempty"`
	PrevTotal       float64            `json:"prevTotal,omitempty"`
	CurOverall      float64            `json:"curOverall,omitempty"`
	PrevOverall     float64            `json:"prevOverall,omitempty"`
	CurShareTotals  map[string]float64 `json:"curShareTotals,omitempty"`
	PrevShareTotals map[string]float64 `json:"prevShareTotals,omitempty"`

	// Fallback reports whether the zero-previous fallback window was
	// attempted and what came of it.
	Fallback FallbackOutcome `json:"fallback"`
}

// PeriodQuery is the input to a PeriodResolver.
type PeriodQuery struct {
	Mode            PeriodMode `json:"mode"`
	TZOffsetMinutes int        `json:"tzOffsetMinutes,omitempty"`
	WeekStart       WeekStart  `json:"weekStart"`
}

// PeriodRange holds the resolved boundaries of a current period and its
// direct comparison period. Boundaries are inclusive on both ends.
type PeriodRange struct {
	CurStart  time.Time `json:"curStart"`
	CurEnd    time.Time `json:"curEnd"`
	PrevStart time.Time `json:"prevStart"`
	PrevEnd   time.Time `json:"prevEnd"`
}

// TotalsCompareRequest asks a TotalsService for current and previous totals
// in one call, optionally broken down by legend fields.
type TotalsCompareRequest struct {
	Source       string         `json:"source"`
	DatasourceID string         `json:"datasourceId,omitempty"`
	DateField    string         `json:"dateField"`
	Start        time.Time      `json:"start"`
	End          time.Time      `json:"end"`
	PrevStart    time.Time      `json:"prevStart"`
	PrevEnd      time.Time      `json:"prevEnd"`
	Where        map[string]any `json:"where,omitempty"`
	Legend       []string       `json:"legend,omitempty"`
	Agg          AggMode        `json:"agg,omitempty"`
	Y            string         `json:"y,omitempty"`
	Measure      string         `json:"measure,omitempty"`
}

// PeriodTotals is one side of a totals comparison: a scalar total for
// ungrouped requests, a per-key breakdown for legend requests.
type PeriodTotals struct {
	Total  float64            `json:"total,omitempty"`
	Totals map[string]float64 `json:"totals,omitempty"`
}

// TotalsCompareResult pairs the current and previous period totals.
type TotalsCompareResult struct {
	Cur  PeriodTotals `json:"cur"`
	Prev PeriodTotals `json:"prev"`
}

// TotalsBatchEntry is one sub-query of a batched totals request.
type TotalsBatchEntry struct {
	Key          string         `json:"key"`
	Source       string         `json:"source"`
	DatasourceID string         `json:"datasourceId,omitempty"`
	DateField    string         `json:"dateField"`
	Start        time.Time      `json:"start"`
	End          time.Time      `json:"end"`
	Where        map[string]any `json:"where,omitempty"`
	Agg          AggMode        `json:"agg,omitempty"`
	Y            string         `json:"y,omitempty"`
	Measure      string         `json:"measure,omitempty"`
}

// TotalsBatchRequest bundles several scalar totals queries into one
// logical round trip.
type TotalsBatchRequest struct {
	Requests []TotalsBatchEntry `json:"requests"`
}

// TotalsBatchResult maps each entry key to its scalar total.
type TotalsBatchResult struct {
	Results map[string]float64 `json:"results"`
}

// DeltaRecord captures one label's comparison outcome for history
// tracking and export.
type DeltaRecord struct {
	Cur       float64 `json:"cur"`
	Prev      float64 `json:"prev"`
	Delta     float64 `json:"delta"`
	ChangePct float64 `json:"changePct"`
	CurShare  float64 `json:"curShare"`
	PrevShare float64 `json:"prevShare"`
}
