package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/pulsegrid/pulsegrid/internal/contract"
	"github.com/pulsegrid/pulsegrid/internal/parquet"
	"github.com/pulsegrid/pulsegrid/schema"
)

// deltaRow is one display row of a period delta result.
type deltaRow struct {
	Label     string
	Cur       float64
	Prev      float64
	Delta     float64
	ChangePct float64
	CurShare  float64
	PrevShare float64
}

// PrintDeltas outputs the comparison result, dispatching based on the output format configured.
func PrintDeltas(result schema.PeriodDeltaResult, cfg *contract.Config, duration time.Duration) error {
	// Create formatters using helper
	fmtFloat, _ := createFormatters(cfg.Precision)
	rows, hasShares := deltaDisplayRows(result)

	// Dispatcher: Handle different output formats
	switch cfg.Output {
	case schema.JSONOut:
		if err := printJSONResultsForDeltas(result, cfg); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := printCSVResultsForDeltas(rows, hasShares, cfg, fmtFloat); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := printParquetResultsForDeltas(rows, cfg); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		// Default to human-readable table
		if err := printDeltasTable(result, rows, hasShares, cfg, fmtFloat, duration); err != nil {
			return fmt.Errorf("error writing delta table output: %w", err)
		}
	}
	return nil
}

// deltaDisplayRows flattens a delta result into sorted display rows. The
// second return reports whether share columns carry data.
func deltaDisplayRows(result schema.PeriodDeltaResult) ([]deltaRow, bool) {
	labels := make([]string, 0, len(result.Deltas))
	for label := range result.Deltas {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	// Scalar results carry their totals outside the per-label maps.
	scalar := result.CurTotals == nil && result.PrevTotals == nil
	hasShares := result.CurShareTotals != nil || result.PrevShareTotals != nil

	rows := make([]deltaRow, 0, len(labels))
	for _, label := range labels {
		row := deltaRow{Label: label, Delta: result.Deltas[label]}
		if scalar {
			row.Cur = result.CurTotal
			row.Prev = result.PrevTotal
		} else {
			row.Cur = result.CurTotals[label]
			row.Prev = result.PrevTotals[label]
		}
		row.ChangePct = changePercent(row.Cur, row.Prev)
		if hasShares {
			row.CurShare = result.CurShareTotals[label]
			row.PrevShare = result.PrevShareTotals[label]
		}
		rows = append(rows, row)
	}
	return rows, hasShares
}

// changePercent mirrors the delta engine's change rule so display rows stay
// consistent with recorded history: a zero prior maps to 100 when the
// current value moved, non-finite inputs collapse to zero.
func changePercent(cur, prev float64) float64 {
	curFinite := !math.IsNaN(cur) && !math.IsInf(cur, 0)
	prevFinite := !math.IsNaN(prev) && !math.IsInf(prev, 0)
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

// printJSONResultsForDeltas handles opening the file and calling the JSON writer.
func printJSONResultsForDeltas(result schema.PeriodDeltaResult, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeJSON(w, result)
	}, "Wrote JSON deltas")
}

// printCSVResultsForDeltas handles opening the file and calling the CSV writer.
func printCSVResultsForDeltas(rows []deltaRow, hasShares bool, cfg *contract.Config, fmtFloat func(float64) string) error {
	header := []string{"label", "prev", "cur", "delta", "change_pct", "trend"}
	if hasShares {
		header = append(header, "cur_share", "prev_share")
	}

	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
			for _, row := range rows {
				record := []string{
					row.Label,
					fmtFloat(row.Prev),
					fmtFloat(row.Cur),
					fmtFloat(row.Delta),
					fmtFloat(row.ChangePct),
					contract.GetPlainLabel(row.ChangePct),
				}
				if hasShares {
					record = append(record, fmtFloat(row.CurShare), fmtFloat(row.PrevShare))
				}
				if err := csvWriter.Write(record); err != nil {
					return err
				}
			}
			return nil
		})
	}, "Wrote CSV deltas")
}

// printParquetResultsForDeltas writes the display rows to a Parquet file.
func printParquetResultsForDeltas(rows []deltaRow, cfg *contract.Config) error {
	if err := requireOutputFile(cfg.OutputFile, "parquet"); err != nil {
		return err
	}

	records := make([]parquet.DeltaOutcome, 0, len(rows))
	for _, row := range rows {
		records = append(records, parquet.DeltaOutcome{
			Label:     row.Label,
			Cur:       row.Cur,
			Prev:      row.Prev,
			Delta:     row.Delta,
			ChangePct: row.ChangePct,
			CurShare:  row.CurShare,
			PrevShare: row.PrevShare,
		})
	}

	if err := parquet.WriteDeltaOutcomesParquet(records, cfg.OutputFile); err != nil {
		return err
	}
	fmt.Printf("Wrote %d delta outcomes to: %s\n", len(records), cfg.OutputFile)
	return nil
}

// printDeltasTable prints the comparison in a label-per-row table.
func printDeltasTable(result schema.PeriodDeltaResult, rows []deltaRow, hasShares bool, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		table := tablewriter.NewWriter(w)

		headers := []string{"Label", "Prev", "Cur", "Delta", "Change %", "Trend"}
		if hasShares {
			headers = append(headers, "Cur Share %", "Prev Share %")
		}
		table.Header(headers)

		table.Configure(func(tcfg *tablewriter.Config) {
			tcfg.Row.Alignment.Global = tw.AlignRight
		})

		var data [][]string
		for _, row := range rows {
			trend := contract.GetPlainLabel(row.ChangePct)
			if cfg.UseColors {
				trend = contract.GetColorLabel(row.ChangePct)
			}
			record := []string{
				row.Label,
				fmtFloat(row.Prev),
				fmtFloat(row.Cur),
				fmtFloat(row.Delta),
				fmtFloat(row.ChangePct),
				trend,
			}
			if hasShares {
				record = append(record, fmtFloat(row.CurShare), fmtFloat(row.PrevShare))
			}
			data = append(data, record)
		}

		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}

		if hasShares {
			fmt.Fprintf(w, "Overall: %s (prev %s)\n", fmtFloat(result.CurOverall), fmtFloat(result.PrevOverall))
		}
		fmt.Fprintf(w, "Deltas computed in %v (fallback: %s). Cache backend: %s\n", duration, result.Fallback, cfg.CacheBackend)
		return nil
	}, "Wrote delta table")
}
