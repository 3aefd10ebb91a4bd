package parquet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryCellStructTags(t *testing.T) {
	sch := parquet.SchemaOf(new(CategoryCell))
	for _, colName := range []string{"x", "category", "value"} {
		_, ok := sch.Lookup(colName)
		require.True(t, ok, "Column %s should exist in schema", colName)
	}
}

func TestWriteCategoryCellsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "cells.parquet")

	cells := []CategoryCell{
		{X: "2024-03-11", Category: "east", Value: 150},
		{X: "2024-03-11", Category: "west", Value: 30},
		{X: "2024-03-12", Category: "east", Value: 0},
	}

	require.NoError(t, WriteCategoryCellsParquet(cells, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestWriteCategoryTotalsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "totals.parquet")

	totals := []CategoryTotal{
		{Category: "east", Total: 180},
		{Category: "west", Total: 30},
	}

	require.NoError(t, WriteCategoryTotalsParquet(totals, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestWriteDeltaOutcomesParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "outcomes.parquet")

	outcomes := []DeltaOutcome{
		{Label: "east", Cur: 150, Prev: 100, Delta: 50, ChangePct: 50, CurShare: 60, PrevShare: 40},
	}

	require.NoError(t, WriteDeltaOutcomesParquet(outcomes, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
