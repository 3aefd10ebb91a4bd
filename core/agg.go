package core

import (
	"github.com/pulsegrid/pulsegrid/schema"
)

// AggregateCategories collapses rows into one value per category using the
// basic aggregation modes (sum, avg, last). Cells that do not coerce to a
// finite number contribute zero to the sum and are excluded from the average
// count. Unknown modes fall back to sum.
func AggregateCategories(rows []schema.Row, categories []string, mode schema.AggMode) map[string]float64 {
	out := make(map[string]float64, len(categories))
	for _, cat := range categories {
		var sum, last float64
		var count int
		for _, row := range rows {
			v, ok := schema.ToFloat(row[cat])
			if !ok {
				continue
			}
			sum += v
			count++
			last = v
		}

		switch mode {
		case schema.AggAvg:
			if count > 0 {
				out[cat] = sum / float64(count)
			} else {
				out[cat] = 0
			}
		case schema.AggLast:
			out[cat] = last
		default:
			out[cat] = sum
		}
	}
	return out
}

// AggregateCategoriesAdvanced collapses rows into one value per category
// using the full aggregation vocabulary. Cells that do not coerce to a finite
// number are dropped before aggregation; a category with no finite values
// yields zero regardless of mode.
func AggregateCategoriesAdvanced(rows []schema.Row, categories []string, mode schema.AggMode) map[string]float64 {
	out := make(map[string]float64, len(categories))
	for _, cat := range categories {
		values := make([]float64, 0, len(rows))
		for _, row := range rows {
			if v, ok := schema.ToFloat(row[cat]); ok {
				values = append(values, v)
			}
		}
		out[cat] = aggregateValues(values, mode)
	}
	return out
}

// aggregateValues reduces a finite value list per the requested mode.
func aggregateValues(values []float64, mode schema.AggMode) float64 {
	if len(values) == 0 {
		return 0
	}

	switch mode {
	case schema.AggNone, schema.AggLast:
		return values[len(values)-1]
	case schema.AggFirst:
		return values[0]
	case schema.AggAvg:
		return sumValues(values) / float64(len(values))
	case schema.AggMin:
		minV := values[0]
		for _, v := range values[1:] {
			if v < minV {
				minV = v
			}
		}
		return minV
	case schema.AggMax:
		maxV := values[0]
		for _, v := range values[1:] {
			if v > maxV {
				maxV = v
			}
		}
		return maxV
	default: // sum, count, distinctCount
		return sumValues(values)
	}
}

// ComputeColMax returns the largest coerced value for a category across all
// rows, treating non-numeric cells as zero. The result never drops below zero.
func ComputeColMax(rows []schema.Row, category string) float64 {
	var maxV float64
	for _, row := range rows {
		v, ok := schema.ToFloat(row[category])
		if !ok {
			v = 0
		}
		if v > maxV {
			maxV = v
		}
	}
	return maxV
}

func sumValues(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum
}
