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

// PrintAggregates outputs per-category totals, dispatching based on the output format configured.
func PrintAggregates(totals map[string]float64, categories []string, cfg *contract.Config, duration time.Duration) error {
	// Create formatters using helper
	fmtFloat, _ := createFormatters(cfg.Precision)

	// Dispatcher: Handle different output formats
	switch cfg.Output {
	case schema.JSONOut:
		if err := printJSONResultsForAggregates(totals, cfg); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := printCSVResultsForAggregates(totals, categories, cfg, fmtFloat); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := printParquetResultsForAggregates(totals, categories, cfg); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		// Default to human-readable table
		if err := printAggregatesTable(totals, categories, cfg, fmtFloat, duration); err != nil {
			return fmt.Errorf("error writing aggregate table output: %w", err)
		}
	}
	return nil
}

// printJSONResultsForAggregates handles opening the file and calling the JSON writer.
func printJSONResultsForAggregates(totals map[string]float64, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeJSON(w, totals)
	}, "Wrote JSON aggregates")
}

// printCSVResultsForAggregates handles opening the file and calling the CSV writer.
func printCSVResultsForAggregates(totals map[string]float64, categories []string, cfg *contract.Config, fmtFloat func(float64) string) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeCSVWithHeader(w, []string{"category", "total"}, func(csvWriter *csv.Writer) error {
			for _, cat := range categories {
				if err := csvWriter.Write([]string{cat, fmtFloat(totals[cat])}); err != nil {
					return err
				}
			}
			return nil
		})
	}, "Wrote CSV aggregates")
}

// printParquetResultsForAggregates writes the aggregated totals to a Parquet file.
func printParquetResultsForAggregates(totals map[string]float64, categories []string, cfg *contract.Config) error {
	if err := requireOutputFile(cfg.OutputFile, "parquet"); err != nil {
		return err
	}

	records := make([]parquet.CategoryTotal, 0, len(categories))
	for _, cat := range categories {
		records = append(records, parquet.CategoryTotal{Category: cat, Total: totals[cat]})
	}

	if err := parquet.WriteCategoryTotalsParquet(records, cfg.OutputFile); err != nil {
		return err
	}
	fmt.Printf("Wrote %d category totals to: %s\n", len(records), cfg.OutputFile)
	return nil
}

// printAggregatesTable prints the per-category totals in a two-column table.
func printAggregatesTable(totals map[string]float64, categories []string, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		table := tablewriter.NewWriter(w)
		table.Header([]string{"Category", "Total"})

		table.Configure(func(tcfg *tablewriter.Config) {
			tcfg.Row.Alignment.Global = tw.AlignRight
		})

		var data [][]string
		for _, cat := range categories {
			data = append(data, []string{cat, fmtFloat(totals[cat])})
		}

		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}

		fmt.Fprintf(w, "Aggregated %d categories in %v (agg: %s)\n", len(categories), duration, cfg.Agg)
		return nil
	}, "Wrote aggregate table")
}
