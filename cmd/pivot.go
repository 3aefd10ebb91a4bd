package cmd

import (
	"github.com/pulsegrid/pulsegrid/core"
	"github.com/pulsegrid/pulsegrid/internal/contract"
	"github.com/spf13/cobra"
)

// pivotCmd reshapes long-format rows into wide rows.
var pivotCmd = &cobra.Command{
	Use:   "pivot [input-file]",
	Short: "Reshape long-format rows into one wide row per axis value.",
	Long: `Pivot long-format rows (axis, legend, value) into wide rows keyed by axis value.

Each distinct legend value becomes its own column, summed when an axis value
repeats, helping you:
- Convert database query results into chart-shaped grids
- Merge duplicate readings for the same axis point
- Zero-fill categories that are missing for an axis value

First-seen axis order is preserved so pivoted output lines up with the input.

Examples:
  # Pivot a long-format CSV
  pulsegrid pivot events.csv

  # Restrict the legend to known categories
  pulsegrid pivot events.csv --categories east,west

  # Export the wide grid for a spreadsheet
  pulsegrid pivot events.csv --output csv --output-file wide.csv`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecutePivot(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot pivot rows", err)
		}
	},
}
