package outwriter

import (
	"encoding/csv"
	"io"

	"github.com/pulsegrid/pulsegrid/schema"
)

// writeJSONResultsForTimeline marshals the schema.TimelineContext to JSON and writes it.
func writeJSONResultsForTimeline(w io.Writer, tc schema.TimelineContext) error {
	return writeJSON(w, tc)
}

// writeCSVResultsForTimeline writes the timeline data to a CSV writer.
func writeCSVResultsForTimeline(w *csv.Writer, tc schema.TimelineContext, categories []string, fmtFloat func(float64) string) error {
	// 1. Write Header Row
	header := []string{schema.XField}
	header = append(header, categories...)
	header = append(header, "total")
	if err := w.Write(header); err != nil {
		return err
	}

	// 2. Write Data Rows
	for _, label := range tc.Labels {
		row := []string{label}
		for _, cat := range categories {
			row = append(row, fmtFloat(tc.Value(label, cat)))
		}
		row = append(row, fmtFloat(tc.TotalsByLabel[label]))
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
