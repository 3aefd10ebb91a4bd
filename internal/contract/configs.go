package contract

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/pulsegrid/pulsegrid/schema"
)

// Default values for configuration.
const (
	DefaultPrecision = 1
	MaxTZOffset      = 14 * 60
	MinTZOffset      = -12 * 60
)

// CacheGranularity defines the staleness horizon for cached totals.
// Period totals drift as new rows land, so entries expire quickly.
const CacheGranularity = time.Hour

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// ProcessProfilingConfig processes profiling configuration from the profile prefix.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

// Config holds the runtime configuration for a dashboard computation.
// This struct remains the "final, validated" config.
type Config struct {
	InputFile  string
	Columns    []string
	Categories []string

	Agg      schema.AggMode
	Advanced bool

	YMax            *float64
	TrackerMaxPills int

	Source          string
	DatasourceID    string
	DateField       string
	Where           map[string]any
	Legend          []string
	Series          []schema.SeriesSpec
	Y               string
	Measure         string
	PeriodMode      schema.PeriodMode
	TZOffsetMinutes int
	WeekStart       schema.WeekStart

	Precision  int
	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)

	TotalsBackend   schema.DatabaseBackend
	TotalsDBConnect string // Please use env var as this is plaintext

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	UseEmojis bool // Enable emojis in output headers
	UseColors bool // Enable colored labels in table output
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	InputFileStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	OutputFile       string `mapstructure:"output-file"`
	Precision        int    `mapstructure:"precision"`
	Output           string `mapstructure:"output"`
	Width            int    `mapstructure:"width"`
	Emoji            string `mapstructure:"emoji"`
	Color            string `mapstructure:"color"`
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`

	// --- Shared dataset flags, also on rootCmd.PersistentFlags() ---
	Columns    string `mapstructure:"columns"`
	Categories string `mapstructure:"categories"`
	Agg        string `mapstructure:"agg"`
	Advanced   bool   `mapstructure:"advanced"`

	// --- Fields from timelineCmd.Flags() ---
	YMax     string `mapstructure:"y-max"`
	MaxPills int    `mapstructure:"max-pills"`

	// --- Fields from deltaCmd.Flags() ---
	Source          string `mapstructure:"source"`
	DatasourceID    string `mapstructure:"datasource-id"`
	DateField       string `mapstructure:"date-field"`
	Where           string `mapstructure:"where"`
	Legend          string `mapstructure:"legend"`
	Series          string `mapstructure:"series"`
	Y               string `mapstructure:"y"`
	Measure         string `mapstructure:"measure"`
	Period          string `mapstructure:"period"`
	TZOffset        int    `mapstructure:"tz-offset"`
	WeekStart       string `mapstructure:"week-start"`
	TotalsBackend   string `mapstructure:"totals-backend"`
	TotalsDBConnect string `mapstructure:"totals-db-connect"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Columns != nil {
		clone.Columns = make([]string, len(c.Columns))
		copy(clone.Columns, c.Columns)
	}
	if c.Categories != nil {
		clone.Categories = make([]string, len(c.Categories))
		copy(clone.Categories, c.Categories)
	}
	if c.Legend != nil {
		clone.Legend = make([]string, len(c.Legend))
		copy(clone.Legend, c.Legend)
	}
	if c.Series != nil {
		clone.Series = make([]schema.SeriesSpec, len(c.Series))
		copy(clone.Series, c.Series)
	}
	if c.Where != nil {
		clone.Where = make(map[string]any, len(c.Where))
		maps.Copy(clone.Where, c.Where)
	}
	if c.YMax != nil {
		y := *c.YMax
		clone.YMax = &y
	}
	return &clone
}

// DeltaRequest assembles the validated delta inputs into a request struct.
func (c *Config) DeltaRequest() schema.PeriodDeltaRequest {
	return schema.PeriodDeltaRequest{
		Source:          c.Source,
		DatasourceID:    c.DatasourceID,
		DateField:       c.DateField,
		Where:           c.Where,
		Legend:          c.Legend,
		Series:          c.Series,
		Agg:             c.Agg,
		Y:               c.Y,
		Measure:         c.Measure,
		Mode:            c.PeriodMode,
		TZOffsetMinutes: c.TZOffsetMinutes,
		WeekStart:       c.WeekStart,
	}
}

// TimelineOptions assembles the validated timeline inputs.
func (c *Config) TimelineOptions() schema.TimelineOptions {
	return schema.TimelineOptions{
		YMax:            c.YMax,
		TrackerMaxPills: c.TrackerMaxPills,
	}
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	// All validation functions read from 'input' and populate 'cfg'.
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processDatasetInputs(cfg, input); err != nil {
		return err
	}
	if err := processAggInputs(cfg, input); err != nil {
		return err
	}
	if err := processTimelineInputs(cfg, input); err != nil {
		return err
	}
	if err := processPeriodInputs(cfg, input); err != nil {
		return err
	}
	if err := processWhereAndSeries(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates cache, history and totals backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- History Backend Validation ---
	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if cfg.HistoryBackend != "" {
		if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
			return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
		}
		cfg.HistoryDBConnect = input.HistoryDBConnect
		if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
			return err
		}

		// Validate that cache and history use different databases
		if cfg.CacheBackend == cfg.HistoryBackend && cfg.CacheBackend != schema.NoneBackend {
			// For SQLite, resolve to actual file paths to catch default path conflicts
			if cfg.CacheBackend == schema.SQLiteBackend {
				cacheDBPath := cfg.CacheDBConnect
				if cacheDBPath == "" {
					cacheDBPath = GetCacheDBFilePath()
				}
				historyDBPath := cfg.HistoryDBConnect
				if historyDBPath == "" {
					historyDBPath = GetHistoryDBFilePath()
				}
				if cacheDBPath == historyDBPath {
					return fmt.Errorf("cache and history storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
				}
			}
		}
	}

	// --- Totals Backend Validation ---
	if input.TotalsBackend != "" {
		cfg.TotalsBackend = schema.DatabaseBackend(strings.ToLower(input.TotalsBackend))
		if _, ok := schema.ValidDatabaseBackends[cfg.TotalsBackend]; !ok || cfg.TotalsBackend == schema.NoneBackend {
			return fmt.Errorf("invalid totals backend '%s'. must be sqlite, mysql, postgresql", input.TotalsBackend)
		}
		cfg.TotalsDBConnect = input.TotalsDBConnect
		if err := ValidateDatabaseConnectionString(cfg.TotalsBackend, cfg.TotalsDBConnect); err != nil {
			return err
		}
	}

	return nil
}

// validateSimpleInputs processes and validates all non-dataset related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.InputFile = input.InputFileStr
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	// Parse emoji flag
	emojis, err := ParseBoolString(input.Emoji)
	if err != nil {
		return fmt.Errorf("invalid --emoji value: %w", err)
	}
	cfg.UseEmojis = emojis

	// Parse color flag
	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. Precision and Output Validation ---
	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", cfg.Output)
	}

	// --- 2. Backend Validation ---
	return validateBackendConfigs(cfg, input)
}

// processDatasetInputs splits the column and category lists.
func processDatasetInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Columns = splitCommaList(input.Columns)
	cfg.Categories = splitCommaList(input.Categories)
	return nil
}

// processAggInputs validates the aggregation mode against the allow-list.
func processAggInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Advanced = input.Advanced
	if input.Agg == "" {
		cfg.Agg = schema.AggSum
		return nil
	}
	cfg.Agg = schema.AggMode(input.Agg)
	if _, ok := schema.ValidAggModes[cfg.Agg]; !ok {
		return fmt.Errorf("invalid agg '%s'. must be none, sum, count, distinctCount, avg, min, max, first, last", input.Agg)
	}
	if !cfg.Advanced {
		switch cfg.Agg {
		case schema.AggSum, schema.AggAvg, schema.AggLast:
		default:
			return fmt.Errorf("agg '%s' requires --advanced. basic modes are sum, avg, last", input.Agg)
		}
	}
	return nil
}

// processTimelineInputs parses the axis ceiling and the pill cap.
func processTimelineInputs(cfg *Config, input *ConfigRawInput) error {
	if input.YMax != "" {
		y, err := strconv.ParseFloat(input.YMax, 64)
		if err != nil {
			return fmt.Errorf("invalid --y-max value '%s': %w", input.YMax, err)
		}
		cfg.YMax = &y
	}
	cfg.TrackerMaxPills = input.MaxPills
	if cfg.TrackerMaxPills == 0 {
		cfg.TrackerMaxPills = schema.DefaultTrackerMaxPills
	}
	if cfg.TrackerMaxPills < schema.MinTrackerPills {
		cfg.TrackerMaxPills = schema.MinTrackerPills
	}
	return nil
}

// processPeriodInputs validates the comparison window inputs.
func processPeriodInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Source = input.Source
	cfg.DatasourceID = input.DatasourceID
	cfg.DateField = input.DateField
	cfg.Y = input.Y
	cfg.Measure = input.Measure
	cfg.Legend = splitCommaList(input.Legend)

	if input.Period != "" {
		cfg.PeriodMode = schema.PeriodMode(input.Period)
		if _, ok := schema.ValidPeriodModes[cfg.PeriodMode]; !ok {
			return fmt.Errorf("invalid period '%s'. must be one of TD_YSTD, TW_LW, MONTH_LMONTH, MTD_LMTD, TY_LY, YTD_LYTD, TQ_LQ", input.Period)
		}
	}

	if input.TZOffset < MinTZOffset || input.TZOffset > MaxTZOffset {
		return fmt.Errorf("tz-offset must be between %d and %d minutes (received %d)", MinTZOffset, MaxTZOffset, input.TZOffset)
	}
	cfg.TZOffsetMinutes = input.TZOffset

	cfg.WeekStart = schema.WeekStart(strings.ToLower(input.WeekStart))
	if cfg.WeekStart == "" {
		cfg.WeekStart = schema.WeekStartMonday
	}
	if _, ok := schema.ValidWeekStarts[cfg.WeekStart]; !ok {
		return fmt.Errorf("invalid week-start '%s'. must be sat, sun, mon", input.WeekStart)
	}
	return nil
}

// processWhereAndSeries decodes the JSON-encoded filter and series flags.
func processWhereAndSeries(cfg *Config, input *ConfigRawInput) error {
	if input.Where != "" {
		if err := json.Unmarshal([]byte(input.Where), &cfg.Where); err != nil {
			return fmt.Errorf("invalid --where JSON: %w", err)
		}
	}
	if input.Series != "" {
		if err := json.Unmarshal([]byte(input.Series), &cfg.Series); err != nil {
			return fmt.Errorf("invalid --series JSON: %w", err)
		}
	}
	return nil
}

func splitCommaList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
