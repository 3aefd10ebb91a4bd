package iocache

import (
	"errors"
	"fmt"

	"github.com/pulsegrid/pulsegrid/internal/parquet"
)

// ExecuteHistoryExport performs the actual export of delta history to Parquet files.
func ExecuteHistoryExport(outputFile string) error {
	// Validate that output file is specified
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	// Get the history store
	store := Manager.GetHistoryStore()

	// Check if there's any data to export
	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}

	if status.TotalRuns == 0 {
		return errors.New("no delta history found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total delta runs: %d\n", status.TotalRuns)
	fmt.Printf("Total delta records: %d\n", status.TableSizes[runDeltasTable])

	// Retrieve all delta runs
	deltaRuns, err := store.GetAllDeltaRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve delta runs: %w", err)
	}

	// Retrieve all per-label outcomes
	runDeltas, err := store.GetAllRunDeltas()
	if err != nil {
		return fmt.Errorf("failed to retrieve run deltas: %w", err)
	}

	// Convert to Parquet format
	parquetDeltaRuns := parquet.ConvertDeltaRunRecords(deltaRuns)
	parquetRunDeltas := parquet.ConvertRunDeltaRecords(runDeltas)

	// Write delta runs to Parquet
	deltaRunsFile := outputFile + ".delta_runs.parquet"
	if err := parquet.WriteDeltaRunsParquet(parquetDeltaRuns, deltaRunsFile); err != nil {
		return fmt.Errorf("failed to write delta runs: %w", err)
	}
	fmt.Printf("Exported %d delta runs to: %s\n", len(parquetDeltaRuns), deltaRunsFile)

	// Write per-label outcomes to Parquet
	runDeltasFile := outputFile + ".run_deltas.parquet"
	if err := parquet.WriteRunDeltasParquet(parquetRunDeltas, runDeltasFile); err != nil {
		return fmt.Errorf("failed to write run deltas: %w", err)
	}
	fmt.Printf("Exported %d delta records to: %s\n", len(parquetRunDeltas), runDeltasFile)

	fmt.Println("\nExport complete! The Parquet files can be used with:")
	fmt.Println("  - Apache Spark")
	fmt.Println("  - Apache Arrow")
	fmt.Println("  - Pandas (via pyarrow)")
	fmt.Println("  - DuckDB")
	fmt.Println("  - Any other Parquet-compatible tool")

	return nil
}
