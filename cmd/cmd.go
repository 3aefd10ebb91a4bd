// Package cmd defines the command-line interface for pulsegrid.
package cmd

import (
	"github.com/pulsegrid/pulsegrid/internal/contract"
	"github.com/pulsegrid/pulsegrid/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(pivotCmd)
	rootCmd.AddCommand(deltaCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("columns", "", "Comma-separated column list (defaults to the CSV header)")
	rootCmd.PersistentFlags().String("categories", "", "Comma-separated category columns (defaults to every non-axis column)")
	rootCmd.PersistentFlags().String("agg", string(schema.AggSum), "Aggregation mode: none, sum, count, distinctCount, avg, min, max, first, last")
	rootCmd.PersistentFlags().Bool("advanced", false, "Enable the advanced aggregation path (distinct tracking, first/last)")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Totals cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("history-backend", "", "Delta run history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for run history (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("emoji", "yes", "Enable emojis in output headers (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of timelineCmd to Viper
	timelineCmd.Flags().String("y-max", "", "Fixed axis ceiling (defaults to the observed maximum)")
	timelineCmd.Flags().Int("max-pills", schema.DefaultTrackerMaxPills, "Maximum number of buckets before compression kicks in")
	if err := viper.BindPFlags(timelineCmd.Flags()); err != nil {
		contract.LogFatal("Error binding timeline flags", err)
	}

	// Bind all flags of deltaCmd to Viper
	deltaCmd.Flags().String("source", "", "Totals table or view to query")
	deltaCmd.Flags().String("datasource-id", "", "Datasource identifier included in the cache key")
	deltaCmd.Flags().String("date-field", "", "Date column used to bound both periods")
	deltaCmd.Flags().String("where", "", "JSON object of equality filters applied to both periods")
	deltaCmd.Flags().String("legend", "", "Comma-separated legend columns for per-label totals")
	deltaCmd.Flags().String("series", "", "JSON array of series specs (overrides legend)")
	deltaCmd.Flags().String("y", "", "Value column to aggregate")
	deltaCmd.Flags().String("measure", "", "Named measure expression overriding the y column")
	deltaCmd.Flags().String("period", "", "Comparison window: TD_YSTD, TW_LW, MONTH_LMONTH, MTD_LMTD, TY_LY, YTD_LYTD, TQ_LQ")
	deltaCmd.Flags().Int("tz-offset", 0, "Timezone offset in minutes applied before bucketing")
	deltaCmd.Flags().String("week-start", string(schema.WeekStartMonday), "First day of the week: sat, sun, mon")
	deltaCmd.Flags().String("totals-backend", "", "Totals backend: sqlite or mysql or postgresql")
	deltaCmd.Flags().String("totals-db-connect", "", "Database connection string for the totals backend")
	if err := viper.BindPFlags(deltaCmd.Flags()); err != nil {
		contract.LogFatal("Error binding delta flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
