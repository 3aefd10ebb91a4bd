package cmd

import (
	"github.com/pulsegrid/pulsegrid/core"
	"github.com/pulsegrid/pulsegrid/internal/contract"
	"github.com/spf13/cobra"
)

// timelineCmd builds a calendar-aligned timeline from input rows.
var timelineCmd = &cobra.Command{
	Use:   "timeline [input-file]",
	Short: "Align rows to a continuous calendar axis and bucket them for charting.",
	Long: `Build a chart-ready timeline from wide-format rows.

Parses the axis column with tolerant date handling, fills calendar gaps with
zero rows, and compresses the axis into at most --max-pills buckets, helping you:
- Plot sparse data without misleading gaps
- Keep dense histories readable on small dashboards
- Track per-category peaks and per-bucket totals
- Mix date and discrete axes without separate code paths

Rows that fail date parsing are dropped and counted, never silently kept.

Examples:
  # Build a timeline from a CSV export
  pulsegrid timeline orders.csv

  # Limit the axis to 12 buckets
  pulsegrid timeline orders.csv --max-pills 12

  # Pin the value axis ceiling for side-by-side charts
  pulsegrid timeline orders.csv --y-max 500

  # Export the bucketed grid for downstream tooling
  pulsegrid timeline orders.csv --output csv --output-file timeline.csv`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteTimeline(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot build timeline", err)
		}
	},
}
