package cmd

import (
	"github.com/pulsegrid/pulsegrid/core"
	"github.com/pulsegrid/pulsegrid/internal/contract"
	"github.com/spf13/cobra"
)

// deltaCmd compares the current period against the prior period.
var deltaCmd = &cobra.Command{
	Use:   "delta",
	Short: "Compare the current period against the prior period per legend label.",
	Long: `Compute period-over-period deltas from a SQL totals backend.

Resolves the requested comparison window into current and prior date ranges,
queries totals for both, and reports per-label movement, helping you:
- Track today against yesterday, this week against last week, and five more windows
- See percent change with a stable rule for zero priors
- Compare each label's share of the total across periods
- Fall back to the latest period with data when the current one is empty

Results are cached per query shape and recorded to run history when a history
backend is configured.

Examples:
  # Week over week revenue by region
  pulsegrid delta --source orders --date-field order_date --period TW_LW --legend region --y revenue

  # Month to date against the same stretch of last month
  pulsegrid delta --source orders --date-field order_date --period MTD_LMTD --y revenue

  # Weekly comparison with a Sunday week start and a timezone shift
  pulsegrid delta --source orders --date-field order_date --period TW_LW --week-start sun --tz-offset -300

  # Export outcomes for tracking
  pulsegrid delta --source orders --date-field order_date --period TD_YSTD --output csv --output-file deltas.csv`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteDeltas(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot compute deltas", err)
		}
	},
}
