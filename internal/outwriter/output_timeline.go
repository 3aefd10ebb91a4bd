package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/pulsegrid/pulsegrid/internal/contract"
	"github.com/pulsegrid/pulsegrid/internal/parquet"
	"github.com/pulsegrid/pulsegrid/schema"
)

// PrintTimeline outputs the timeline, dispatching based on the output format configured.
func PrintTimeline(tc schema.TimelineContext, cfg *contract.Config, duration time.Duration) error {
	// Create formatters using helper
	fmtFloat, _ := createFormatters(cfg.Precision)
	categories := timelineCategories(tc)

	// Dispatcher: Handle different output formats
	switch cfg.Output {
	case schema.JSONOut:
		if err := printJSONResultsForTimeline(tc, cfg); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := printCSVResultsForTimeline(tc, categories, cfg, fmtFloat); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := printParquetResultsForTimeline(tc, categories, cfg); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		// Default to human-readable table
		if err := printTimelineTable(tc, categories, cfg, fmtFloat, duration); err != nil {
			return fmt.Errorf("error writing timeline table output: %w", err)
		}
	}
	return nil
}

// timelineCategories returns the category names of a timeline in stable order.
func timelineCategories(tc schema.TimelineContext) []string {
	categories := make([]string, 0, len(tc.RowMaxByCat))
	for cat := range tc.RowMaxByCat {
		categories = append(categories, cat)
	}
	sort.Strings(categories)
	return categories
}

// printJSONResultsForTimeline handles opening the file and calling the JSON writer.
func printJSONResultsForTimeline(tc schema.TimelineContext, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeJSONResultsForTimeline(w, tc)
	}, "Wrote JSON timeline")
}

// printCSVResultsForTimeline handles opening the file and calling the CSV writer.
func printCSVResultsForTimeline(tc schema.TimelineContext, categories []string, cfg *contract.Config, fmtFloat func(float64) string) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		csvWriter := csv.NewWriter(w)
		defer csvWriter.Flush()
		return writeCSVResultsForTimeline(csvWriter, tc, categories, fmtFloat)
	}, "Wrote CSV timeline")
}

// printParquetResultsForTimeline flattens the timeline to cells and writes a Parquet file.
func printParquetResultsForTimeline(tc schema.TimelineContext, categories []string, cfg *contract.Config) error {
	if err := requireOutputFile(cfg.OutputFile, "parquet"); err != nil {
		return err
	}

	var cells []parquet.CategoryCell
	for _, label := range tc.Labels {
		for _, cat := range categories {
			cells = append(cells, parquet.CategoryCell{
				X:        label,
				Category: cat,
				Value:    tc.Value(label, cat),
			})
		}
	}

	if err := parquet.WriteCategoryCellsParquet(cells, cfg.OutputFile); err != nil {
		return err
	}
	fmt.Printf("Wrote %d timeline cells to: %s\n", len(cells), cfg.OutputFile)
	return nil
}

// printTimelineTable prints the timeline in a label-per-row table.
func printTimelineTable(tc schema.TimelineContext, categories []string, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		table := tablewriter.NewWriter(w)

		// 1. Define Headers
		headers := []string{"Label"}
		headers = append(headers, categories...)
		headers = append(headers, "Total")
		table.Header(headers)

		// 2. Configure Alignment
		table.Configure(func(tcfg *tablewriter.Config) {
			tcfg.Row.Alignment.Global = tw.AlignRight
		})

		// 3. Prepare Data Rows
		maxLabelWidth := GetMaxTableLabelWidth(cfg, len(categories))
		var data [][]string
		for _, label := range tc.Labels {
			row := []string{truncateLabel(label, maxLabelWidth)}
			for _, cat := range categories {
				row = append(row, fmtFloat(tc.Value(label, cat)))
			}
			row = append(row, fmtFloat(tc.TotalsByLabel[label]))
			data = append(data, row)
		}

		// 4. Render the table
		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}

		axisKind := "discrete"
		if tc.DateAxis {
			axisKind = "date"
		}
		fmt.Fprintf(w, "Timeline built in %v. Labels: %d (%s axis, dropped rows: %d)\n", duration, len(tc.Labels), axisKind, tc.DroppedRows)
		return nil
	}, "Wrote timeline table")
}
