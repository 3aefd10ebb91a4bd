package parquet

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
)

// CategoryCell is one flattened timeline or pivot cell: an axis label, a
// category name and the accumulated value.
type CategoryCell struct {
	X        string  `parquet:"x,snappy"`
	Category string  `parquet:"category,snappy"`
	Value    float64 `parquet:"value,snappy"`
}

// CategoryTotal is one aggregated category value.
type CategoryTotal struct {
	Category string  `parquet:"category,snappy"`
	Total    float64 `parquet:"total,snappy"`
}

// DeltaOutcome is one label's comparison outcome in command output form.
type DeltaOutcome struct {
	Label     string  `parquet:"label,snappy"`
	Cur       float64 `parquet:"cur_total,snappy"`
	Prev      float64 `parquet:"prev_total,snappy"`
	Delta     float64 `parquet:"delta,snappy"`
	ChangePct float64 `parquet:"change_pct,snappy"`
	CurShare  float64 `parquet:"cur_share,snappy"`
	PrevShare float64 `parquet:"prev_share,snappy"`
}

// WriteCategoryCellsParquet writes a slice of CategoryCell structs to a Parquet file.
func WriteCategoryCellsParquet(data []CategoryCell, outputPath string) error {
	return writeRecords(data, outputPath)
}

// WriteCategoryTotalsParquet writes a slice of CategoryTotal structs to a Parquet file.
func WriteCategoryTotalsParquet(data []CategoryTotal, outputPath string) error {
	return writeRecords(data, outputPath)
}

// WriteDeltaOutcomesParquet writes a slice of DeltaOutcome structs to a Parquet file.
func WriteDeltaOutcomesParquet(data []DeltaOutcome, outputPath string) error {
	return writeRecords(data, outputPath)
}

// writeRecords writes any slice of tagged record structs to a Parquet file.
func writeRecords[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	defer func() { _ = writer.Close() }()

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}

	return nil
}
