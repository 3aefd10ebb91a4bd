package cmd

import (
	"github.com/pulsegrid/pulsegrid/core"
	"github.com/pulsegrid/pulsegrid/internal/contract"
	"github.com/spf13/cobra"
)

// aggregateCmd reduces input rows to one value per category.
var aggregateCmd = &cobra.Command{
	Use:   "aggregate [input-file]",
	Short: "Reduce rows to a single value per category.",
	Long: `Collapse wide-format rows into one number per category.

The basic path covers the common chart reductions (sum, avg, last). The
--advanced path adds distinct tracking and positional modes, helping you:
- Total a metric across the whole window
- Count rows or distinct values per category
- Grab the first or most recent reading
- Feed single-value widgets and KPI tiles

Examples:
  # Sum every category (default)
  pulsegrid aggregate orders.csv

  # Average instead of sum
  pulsegrid aggregate orders.csv --agg avg

  # Count distinct values per category
  pulsegrid aggregate orders.csv --agg distinctCount --advanced

  # Export totals as JSON
  pulsegrid aggregate orders.csv --output json --output-file totals.json`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteAggregate(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot aggregate categories", err)
		}
	},
}
