package core

import (
	"fmt"

	"github.com/pulsegrid/pulsegrid/schema"
)

const dayFormat = "2006-01-02"

// BuildTimeline aligns raw rows onto a shared axis and aggregates category
// values per label. When any x value parses as a date, the axis becomes a
// gap-free sequence of calendar days between the earliest and latest valid
// rows; otherwise labels follow the raw x sequence in row order. Label lists
// longer than the pill cap are compressed into contiguous buckets.
func BuildTimeline(rows []schema.Row, categories []string, opts schema.TimelineOptions) schema.TimelineContext {
	tc := schema.TimelineContext{
		Labels:        []string{},
		RowsByLabel:   make(map[string]schema.Row),
		TotalsByLabel: make(map[string]float64),
		RowMaxByCat:   make(map[string]float64),
	}
	if len(rows) == 0 {
		return tc
	}

	if anyDateAxis(rows) {
		buildDateAxis(&tc, rows, categories)
	} else {
		buildDiscreteAxis(&tc, rows, categories)
	}

	compressBuckets(&tc, categories, pillCap(opts))
	fillTotalsAndMax(&tc, categories, opts.YMax)
	return tc
}

// anyDateAxis reports whether at least one row's x value parses as a date.
func anyDateAxis(rows []schema.Row) bool {
	for _, row := range rows {
		if _, ok := ParseDate(row[schema.XField]); ok {
			return true
		}
	}
	return false
}

// buildDateAxis accumulates category sums per local calendar day and
// synthesizes a label for every day between the earliest and latest valid
// rows. Rows whose x fails to parse are dropped and counted.
func buildDateAxis(tc *schema.TimelineContext, rows []schema.Row, categories []string) {
	tc.DateAxis = true

	var minDay, maxDay string
	for _, row := range rows {
		t, ok := ParseDate(row[schema.XField])
		if !ok {
			tc.DroppedRows++
			continue
		}
		day := t.Format(dayFormat)
		if minDay == "" || day < minDay {
			minDay = day
		}
		if day > maxDay {
			maxDay = day
		}
		accumulate(tc.RowsByLabel, day, row, categories)
	}

	start, _ := ParseDate(minDay)
	end, _ := ParseDate(maxDay)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		label := d.Format(dayFormat)
		tc.Labels = append(tc.Labels, label)
		if _, ok := tc.RowsByLabel[label]; !ok {
			tc.RowsByLabel[label] = zeroRow(label, categories)
		}
	}
}

// buildDiscreteAxis accumulates category sums keyed by the stringified x
// value. The label list follows raw row order and is not deduplicated, so
// repeated x values repeat in Labels while sharing one aggregated entry.
func buildDiscreteAxis(tc *schema.TimelineContext, rows []schema.Row, categories []string) {
	for _, row := range rows {
		label := schema.Stringify(row[schema.XField])
		tc.Labels = append(tc.Labels, label)
		accumulate(tc.RowsByLabel, label, row, categories)
	}
}

// accumulate folds one row's category values into the aggregated row for key.
func accumulate(byLabel map[string]schema.Row, key string, row schema.Row, categories []string) {
	agg, ok := byLabel[key]
	if !ok {
		agg = zeroRow(key, categories)
		byLabel[key] = agg
	}
	for _, cat := range categories {
		v, ok := schema.ToFloat(row[cat])
		if !ok {
			continue
		}
		prior, _ := schema.ToFloat(agg[cat])
		agg[cat] = prior + v
	}
}

func zeroRow(label string, categories []string) schema.Row {
	row := schema.Row{schema.XField: label}
	for _, cat := range categories {
		row[cat] = 0.0
	}
	return row
}

func pillCap(opts schema.TimelineOptions) int {
	pills := opts.TrackerMaxPills
	if pills == 0 {
		pills = schema.DefaultTrackerMaxPills
	}
	if pills < schema.MinTrackerPills {
		pills = schema.MinTrackerPills
	}
	return pills
}

// compressBuckets merges contiguous labels into buckets of equal size when
// the label count exceeds the cap. Bucket values are per-category sums over
// member labels, so duplicate discrete labels double-count by construction.
func compressBuckets(tc *schema.TimelineContext, categories []string, maxPills int) {
	n := len(tc.Labels)
	if n <= maxPills {
		return
	}
	size := (n + maxPills - 1) / maxPills

	var labels []string
	rowsByLabel := make(map[string]schema.Row)

	for start := 0; start < n; start += size {
		end := min(start+size, n)
		members := tc.Labels[start:end]

		label := members[0]
		if len(members) > 1 {
			label = fmt.Sprintf("%s – %s", members[0], members[len(members)-1])
		}

		bucket := zeroRow(label, categories)
		for _, member := range members {
			for _, cat := range categories {
				prior, _ := schema.ToFloat(bucket[cat])
				bucket[cat] = prior + tc.Value(member, cat)
			}
		}

		labels = append(labels, label)
		rowsByLabel[label] = bucket
	}

	tc.Labels = labels
	tc.RowsByLabel = rowsByLabel
}

// fillTotalsAndMax derives per-label totals and per-category maxima from the
// final label set. A yMax override pins every category's max.
func fillTotalsAndMax(tc *schema.TimelineContext, categories []string, yMax *float64) {
	for _, label := range tc.Labels {
		var total float64
		for _, cat := range categories {
			total += tc.Value(label, cat)
		}
		tc.TotalsByLabel[label] = total
	}

	for _, cat := range categories {
		if yMax != nil {
			tc.RowMaxByCat[cat] = *yMax
			continue
		}
		var maxV float64
		for _, label := range tc.Labels {
			if v := tc.Value(label, cat); v > maxV {
				maxV = v
			}
		}
		tc.RowMaxByCat[cat] = maxV
	}
}
