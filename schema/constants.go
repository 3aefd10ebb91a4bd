package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// AggMode represents an aggregation semantic applied to a category.
	AggMode string

	// PeriodMode represents one of the named current-vs-prior comparison windows.
	PeriodMode string

	// WeekStart represents the first day of the week for weekly periods.
	WeekStart string

	// DatabaseBackend represents a database backend for stores and totals queries.
	DatabaseBackend string

	// FallbackOutcome reports which path the zero-previous fallback heuristic took.
	FallbackOutcome string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All aggregation modes supported.
const (
	AggNone          AggMode = "none"
	AggSum           AggMode = "sum" // default
	AggCount         AggMode = "count"
	AggDistinctCount AggMode = "distinctCount"
	AggAvg           AggMode = "avg"
	AggMin           AggMode = "min"
	AggMax           AggMode = "max"
	AggFirst         AggMode = "first"
	AggLast          AggMode = "last"
)

// All period comparison modes supported.
const (
	TodayVsYesterday   PeriodMode = "TD_YSTD"
	WeekVsLastWeek     PeriodMode = "TW_LW"
	MonthVsLastMonth   PeriodMode = "MONTH_LMONTH"
	MTDVsLastMTD       PeriodMode = "MTD_LMTD"
	YearVsLastYear     PeriodMode = "TY_LY"
	YTDVsLastYTD       PeriodMode = "YTD_LYTD"
	QuarterVsLastQuart PeriodMode = "TQ_LQ"
)

// All week start conventions supported.
const (
	WeekStartSaturday WeekStart = "sat"
	WeekStartSunday   WeekStart = "sun"
	WeekStartMonday   WeekStart = "mon" // default
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All fallback outcomes reported by the delta engine.
const (
	FallbackNotAttempted FallbackOutcome = "not_attempted"
	FallbackAdopted      FallbackOutcome = "adopted"
	FallbackIgnored      FallbackOutcome = "ignored"
	FallbackFailed       FallbackOutcome = "failed"
)

// ValidOutputModes is the allow-list for output format validation.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidAggModes is the allow-list for aggregation mode validation.
var ValidAggModes = map[AggMode]struct{}{
	AggNone:          {},
	AggSum:           {},
	AggCount:         {},
	AggDistinctCount: {},
	AggAvg:           {},
	AggMin:           {},
	AggMax:           {},
	AggFirst:         {},
	AggLast:          {},
}

// ValidPeriodModes is the allow-list for period mode validation.
var ValidPeriodModes = map[PeriodMode]struct{}{
	TodayVsYesterday:   {},
	WeekVsLastWeek:     {},
	MonthVsLastMonth:   {},
	MTDVsLastMTD:       {},
	YearVsLastYear:     {},
	YTDVsLastYTD:       {},
	QuarterVsLastQuart: {},
}

// ValidWeekStarts is the allow-list for week start validation.
var ValidWeekStarts = map[WeekStart]struct{}{
	WeekStartSaturday: {},
	WeekStartSunday:   {},
	WeekStartMonday:   {},
}

// ValidDatabaseBackends is the allow-list for backend validation.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// Timeline display constraints.
const (
	// MinTrackerPills is the floor for the bucket compression cap.
	MinTrackerPills = 10

	// DefaultTrackerMaxPills is the default bucket compression cap.
	DefaultTrackerMaxPills = 60
)
