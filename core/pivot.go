package core

import (
	"slices"
	"strconv"

	"github.com/pulsegrid/pulsegrid/schema"
)

// Column names that trigger the long-to-wide pivot.
const (
	legendColumn = "legend"
	valueColumn  = "value"
)

// Pivot reshapes long-format query rows into wide rows keyed by column name.
// When the column list carries both a "legend" and a "value" column, rows
// sharing an x are merged into one wide row with a key per legend and values
// accumulated additively. Otherwise each array row maps positionally onto the
// column names, or onto index strings when no columns are known.
func Pivot(rows [][]any, columns []string, categories []string) []schema.Row {
	legendIdx := slices.Index(columns, legendColumn)
	valueIdx := slices.Index(columns, valueColumn)
	if legendIdx >= 0 && valueIdx >= 0 {
		return pivotLong(rows, columns, categories, legendIdx, valueIdx)
	}
	if len(columns) > 0 {
		return mapPositional(rows, columns)
	}
	return mapIndexed(rows)
}

func pivotLong(rows [][]any, columns []string, categories []string, legendIdx, valueIdx int) []schema.Row {
	xIdx := slices.Index(columns, schema.XField)
	if xIdx < 0 {
		xIdx = 0
	}

	var order []string
	groups := make(map[string]schema.Row)

	for _, row := range rows {
		xVal := cell(row, xIdx)
		key := schema.Stringify(xVal)

		group, ok := groups[key]
		if !ok {
			group = schema.Row{schema.XField: xVal}
			groups[key] = group
			order = append(order, key)
		}

		legend := schema.Stringify(cell(row, legendIdx))
		increment, _ := schema.ToFloat(cell(row, valueIdx))
		prior, _ := schema.ToFloat(group[legend])
		group[legend] = prior + increment
	}

	out := make([]schema.Row, 0, len(order))
	for _, key := range order {
		group := groups[key]
		for _, cat := range categories {
			if _, ok := group[cat]; !ok {
				group[cat] = 0.0
			}
		}
		out = append(out, group)
	}
	return out
}

func mapPositional(rows [][]any, columns []string) []schema.Row {
	out := make([]schema.Row, 0, len(rows))
	for _, row := range rows {
		mapped := make(schema.Row, len(columns))
		for i, col := range columns {
			if i >= len(row) {
				break
			}
			mapped[col] = row[i]
		}
		out = append(out, mapped)
	}
	return out
}

func mapIndexed(rows [][]any) []schema.Row {
	out := make([]schema.Row, 0, len(rows))
	for _, row := range rows {
		mapped := make(schema.Row, len(row))
		for i, v := range row {
			mapped[strconv.Itoa(i)] = v
		}
		out = append(out, mapped)
	}
	return out
}

// cell returns the value at index i, or nil when the row is too short.
func cell(row []any, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}
