// Package schema has configs, models and shared helpers for all parts of pulsegrid.
package schema

// Row is a single wide-format data point: a mapping from field name to value.
// It always carries an "x" field (the category-axis key, typically a date or
// discrete label) plus zero or more numeric category fields.
type Row map[string]any

// XField is the well-known name of the category-axis field on a Row.
const XField = "x"

// ResultSet is the raw output shape of an upstream query execution layer:
// positional rows plus the column names that give them meaning.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// TimelineOptions tunes timeline construction.
type TimelineOptions struct {
	// YMax overrides the per-category maximum when set.
	YMax *float64

	// TrackerMaxPills caps the number of axis labels before bucket
	// compression kicks in. Zero means DefaultTrackerMaxPills; values
	// below MinTrackerPills are raised to MinTrackerPills.
	TrackerMaxPills int
}

// TimelineContext is an axis-aligned, possibly bucket-compressed timeline.
// Every label in Labels has exactly one entry in RowsByLabel and
// TotalsByLabel; RowMaxByCat has one entry per requested category.
type TimelineContext struct {
	// Labels is the ordered axis label sequence: chronological per calendar
	// day on a date axis, insertion order on a discrete axis.
	Labels []string `json:"labels"`

	// RowsByLabel maps each label to its aggregated row.
	RowsByLabel map[string]Row `json:"rowsByLabel"`

	// TotalsByLabel maps each label to the sum across categories.
	TotalsByLabel map[string]float64 `json:"totalsByLabel"`

	// RowMaxByCat maps each category to its maximum value across labels,
	// or to the fixed override when one was supplied.
	RowMaxByCat map[string]float64 `json:"rowMaxByCat"`

	// DateAxis is true when at least one x value parsed as a date and the
	// axis was laid out per calendar day.
	DateAxis bool `json:"dateAxis"`

	// DroppedRows counts rows excluded because their x value failed to
	// parse on a date axis.
	DroppedRows int `json:"droppedRows"`
}

// Value returns the numeric value of cat in the row for label, treating a
// missing label or category as zero. Consumers must treat a missing day as
// all-zero; this is the canonical accessor for that rule.
func (tc *TimelineContext) Value(label, cat string) float64 {
	row, ok := tc.RowsByLabel[label]
	if !ok {
		return 0
	}
	v, ok := ToFloat(row[cat])
	if !ok {
		return 0
	}
	return v
}
