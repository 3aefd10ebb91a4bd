package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/pulsegrid/pulsegrid/internal/contract"
	"github.com/pulsegrid/pulsegrid/internal/parquet"
	"github.com/pulsegrid/pulsegrid/schema"
)

// PrintPivot outputs pivoted wide rows, dispatching based on the output format configured.
func PrintPivot(rows []schema.Row, categories []string, cfg *contract.Config, duration time.Duration) error {
	// Create formatters using helper
	fmtFloat, _ := createFormatters(cfg.Precision)

	// Dispatcher: Handle different output formats
	switch cfg.Output {
	case schema.JSONOut:
		if err := printJSONResultsForPivot(rows, cfg); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := printCSVResultsForPivot(rows, categories, cfg, fmtFloat); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := printParquetResultsForPivot(rows, categories, cfg); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		// Default to human-readable table
		if err := printPivotTable(rows, categories, cfg, fmtFloat, duration); err != nil {
			return fmt.Errorf("error writing pivot table output: %w", err)
		}
	}
	return nil
}

// printJSONResultsForPivot handles opening the file and calling the JSON writer.
func printJSONResultsForPivot(rows []schema.Row, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeJSON(w, rows)
	}, "Wrote JSON pivot")
}

// printCSVResultsForPivot handles opening the file and calling the CSV writer.
func printCSVResultsForPivot(rows []schema.Row, categories []string, cfg *contract.Config, fmtFloat func(float64) string) error {
	header := []string{schema.XField}
	header = append(header, categories...)

	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
			for _, row := range rows {
				record := []string{schema.Stringify(row[schema.XField])}
				for _, cat := range categories {
					record = append(record, fmtFloat(rowValue(row, cat)))
				}
				if err := csvWriter.Write(record); err != nil {
					return err
				}
			}
			return nil
		})
	}, "Wrote CSV pivot")
}

// printParquetResultsForPivot flattens the wide rows to cells and writes a Parquet file.
func printParquetResultsForPivot(rows []schema.Row, categories []string, cfg *contract.Config) error {
	if err := requireOutputFile(cfg.OutputFile, "parquet"); err != nil {
		return err
	}

	var cells []parquet.CategoryCell
	for _, row := range rows {
		x := schema.Stringify(row[schema.XField])
		for _, cat := range categories {
			cells = append(cells, parquet.CategoryCell{
				X:        x,
				Category: cat,
				Value:    rowValue(row, cat),
			})
		}
	}

	if err := parquet.WriteCategoryCellsParquet(cells, cfg.OutputFile); err != nil {
		return err
	}
	fmt.Printf("Wrote %d pivot cells to: %s\n", len(cells), cfg.OutputFile)
	return nil
}

// printPivotTable prints the wide rows in a table, one row per x value.
func printPivotTable(rows []schema.Row, categories []string, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		table := tablewriter.NewWriter(w)

		headers := []string{"X"}
		headers = append(headers, categories...)
		table.Header(headers)

		table.Configure(func(tcfg *tablewriter.Config) {
			tcfg.Row.Alignment.Global = tw.AlignRight
		})

		maxLabelWidth := GetMaxTableLabelWidth(cfg, len(categories))
		var data [][]string
		for _, row := range rows {
			record := []string{truncateLabel(schema.Stringify(row[schema.XField]), maxLabelWidth)}
			for _, cat := range categories {
				record = append(record, fmtFloat(rowValue(row, cat)))
			}
			data = append(data, record)
		}

		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}

		fmt.Fprintf(w, "Pivoted %d rows in %v\n", len(rows), duration)
		return nil
	}, "Wrote pivot table")
}

// rowValue reads a category value from a wide row, treating missing or
// non-numeric entries as zero.
func rowValue(row schema.Row, cat string) float64 {
	v, ok := schema.ToFloat(row[cat])
	if !ok {
		return 0
	}
	return v
}
