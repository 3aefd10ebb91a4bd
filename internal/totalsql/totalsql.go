// Package totalsql executes aggregate totals queries against SQL backends.
// It is the default Totals Query Service used by the delta engine.
package totalsql

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pulsegrid/pulsegrid/internal/contract"
	"github.com/pulsegrid/pulsegrid/schema"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// DateTimeSQLFormat is how period boundaries are bound into queries. The
// layout compares correctly as text in SQLite and parses as a timestamp
// literal in MySQL and PostgreSQL.
const DateTimeSQLFormat = "2006-01-02 15:04:05.999"

// legendKeySeparator joins multi-field legend values into one map key.
const legendKeySeparator = " / "

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Filter operator suffixes mapped to SQL comparison operators.
var filterOperators = map[string]string{
	"gte": ">=",
	"lte": "<=",
	"gt":  ">",
	"lt":  "<",
	"ne":  "<>",
}

// Service answers totals queries by building aggregate SQL against one of
// the supported backends.
type Service struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.TotalsService = &Service{} // Compile-time check

// NewService opens a connection pool for the given backend.
func NewService(backend schema.DatabaseBackend, connStr string) (*Service, error) {
	var db *sql.DB
	var err error

	switch backend {
	case schema.SQLiteBackend:
		if connStr == "" {
			return nil, fmt.Errorf("a database path is required for the sqlite totals backend")
		}
		db, err = sql.Open("sqlite", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite totals database at %q: %w", connStr, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)

	case schema.MySQLBackend:
		// connStr should be:
		// user:password@tcp(host:port)/dbname
		db, err = sql.Open("mysql", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL totals backend: %w. Check connection format: user:password@tcp(host:port)/dbname", err)
		}

	case schema.PostgreSQLBackend:
		// connStr should be:
		// host=localhost port=5432 user=postgres password=mysecretpassword dbname=postgres
		db, err = sql.Open("pgx", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL totals backend: %w. Check connection format: host=localhost port=5432 user=postgres dbname=mydb", err)
		}

	default:
		return nil, fmt.Errorf("unsupported totals backend: %s. Must be sqlite, mysql, or postgresql", backend)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s totals backend. Check that the server is running and connection parameters are valid: %w", backend, err)
	}

	return &Service{db: db, backend: backend}, nil
}

// NewServiceWithDB wraps an existing connection pool. Used by tests.
func NewServiceWithDB(db *sql.DB, backend schema.DatabaseBackend) *Service {
	return &Service{db: db, backend: backend}
}

// PeriodTotalsCompare runs the current and previous period queries inside one
// read transaction so both sides observe a consistent snapshot.
func (s *Service) PeriodTotalsCompare(ctx context.Context, req schema.TotalsCompareRequest) (schema.TotalsCompareResult, error) {
	var result schema.TotalsCompareResult

	err := s.withReadTx(ctx, func(tx *sql.Tx) error {
		cur, err := s.queryTotals(ctx, tx, periodQuery{
			Source: req.Source, DateField: req.DateField,
			Start: req.Start, End: req.End,
			Where: req.Where, Legend: req.Legend,
			Agg: req.Agg, Y: req.Y, Measure: req.Measure,
		})
		if err != nil {
			return err
		}
		prev, err := s.queryTotals(ctx, tx, periodQuery{
			Source: req.Source, DateField: req.DateField,
			Start: req.PrevStart, End: req.PrevEnd,
			Where: req.Where, Legend: req.Legend,
			Agg: req.Agg, Y: req.Y, Measure: req.Measure,
		})
		if err != nil {
			return err
		}
		result.Cur = cur
		result.Prev = prev
		return nil
	})
	if err != nil {
		return schema.TotalsCompareResult{}, err
	}
	return result, nil
}

// PeriodTotalsBatch resolves every entry inside one read transaction, which
// keeps the batch a single logical round trip against the backend.
func (s *Service) PeriodTotalsBatch(ctx context.Context, req schema.TotalsBatchRequest) (schema.TotalsBatchResult, error) {
	results := make(map[string]float64, len(req.Requests))

	err := s.withReadTx(ctx, func(tx *sql.Tx) error {
		for _, entry := range req.Requests {
			totals, err := s.queryTotals(ctx, tx, periodQuery{
				Source: entry.Source, DateField: entry.DateField,
				Start: entry.Start, End: entry.End,
				Where: entry.Where,
				Agg:   entry.Agg, Y: entry.Y, Measure: entry.Measure,
			})
			if err != nil {
				return fmt.Errorf("batch entry %q: %w", entry.Key, err)
			}
			results[entry.Key] = totals.Total
		}
		return nil
	})
	if err != nil {
		return schema.TotalsBatchResult{}, err
	}
	return schema.TotalsBatchResult{Results: results}, nil
}

// Close closes the underlying DB connection.
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Service) withReadTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: s.backend == schema.PostgreSQLBackend})
	if err != nil {
		return fmt.Errorf("begin totals transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// periodQuery is one aggregate query over a single period.
type periodQuery struct {
	Source    string
	DateField string
	Start     time.Time
	End       time.Time
	Where     map[string]any
	Legend    []string
	Agg       schema.AggMode
	Y         string
	Measure   string
}

// queryTotals builds and runs one aggregate query, grouped per legend key
// when legend fields are present.
func (s *Service) queryTotals(ctx context.Context, tx *sql.Tx, q periodQuery) (schema.PeriodTotals, error) {
	query, args, err := s.buildQuery(q)
	if err != nil {
		return schema.PeriodTotals{}, err
	}

	if len(q.Legend) == 0 {
		var total sql.NullFloat64
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
			return schema.PeriodTotals{}, fmt.Errorf("totals query on %s: %w", q.Source, err)
		}
		return schema.PeriodTotals{Total: total.Float64}, nil
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return schema.PeriodTotals{}, fmt.Errorf("totals query on %s: %w", q.Source, err)
	}
	defer func() { _ = rows.Close() }()

	totals := make(map[string]float64)
	for rows.Next() {
		scan := make([]any, len(q.Legend)+1)
		parts := make([]sql.NullString, len(q.Legend))
		for i := range parts {
			scan[i] = &parts[i]
		}
		var total sql.NullFloat64
		scan[len(q.Legend)] = &total
		if err := rows.Scan(scan...); err != nil {
			return schema.PeriodTotals{}, fmt.Errorf("scan totals row: %w", err)
		}
		totals[legendKey(parts)] = total.Float64
	}
	if err := rows.Err(); err != nil {
		return schema.PeriodTotals{}, fmt.Errorf("iterate totals rows: %w", err)
	}
	return schema.PeriodTotals{Totals: totals}, nil
}

func legendKey(parts []sql.NullString) string {
	values := make([]string, len(parts))
	for i, p := range parts {
		values[i] = p.String
	}
	return strings.Join(values, legendKeySeparator)
}

// buildQuery assembles the aggregate SQL and its bind arguments. Every
// identifier is validated before quoting, so user input never lands in the
// statement text unescaped.
func (s *Service) buildQuery(q periodQuery) (string, []any, error) {
	if err := validateIdentifier(q.Source); err != nil {
		return "", nil, fmt.Errorf("invalid source: %w", err)
	}
	if err := validateIdentifier(q.DateField); err != nil {
		return "", nil, fmt.Errorf("invalid date field: %w", err)
	}
	for _, field := range q.Legend {
		if err := validateIdentifier(field); err != nil {
			return "", nil, fmt.Errorf("invalid legend field: %w", err)
		}
	}

	aggExpr, err := s.aggExpression(q.Agg, q.Y, q.Measure)
	if err != nil {
		return "", nil, err
	}

	ph := newPlaceholders(s.backend)
	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT ")
	for _, field := range q.Legend {
		sb.WriteString(s.quoteIdent(field))
		sb.WriteString(", ")
	}
	sb.WriteString(aggExpr)
	sb.WriteString(" FROM ")
	sb.WriteString(s.quoteIdent(q.Source))

	sb.WriteString(" WHERE ")
	sb.WriteString(s.quoteIdent(q.DateField))
	sb.WriteString(" >= ")
	sb.WriteString(ph.next())
	args = append(args, q.Start.UTC().Format(DateTimeSQLFormat))
	sb.WriteString(" AND ")
	sb.WriteString(s.quoteIdent(q.DateField))
	sb.WriteString(" <= ")
	sb.WriteString(ph.next())
	args = append(args, q.End.UTC().Format(DateTimeSQLFormat))

	filterSQL, filterArgs, err := s.buildFilters(q.Where, ph)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString(filterSQL)
	args = append(args, filterArgs...)

	if len(q.Legend) > 0 {
		sb.WriteString(" GROUP BY ")
		quoted := make([]string, len(q.Legend))
		for i, field := range q.Legend {
			quoted[i] = s.quoteIdent(field)
		}
		sb.WriteString(strings.Join(quoted, ", "))
	}

	return sb.String(), args, nil
}

// buildFilters renders the sanitized filter map as AND-joined predicates.
// Keys iterate in sorted order so statement text is deterministic.
func (s *Service) buildFilters(where map[string]any, ph *placeholders) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	var args []any
	for _, key := range keys {
		field, op := splitFilterKey(key)
		if err := validateIdentifier(field); err != nil {
			return "", nil, fmt.Errorf("invalid filter field: %w", err)
		}
		sb.WriteString(" AND ")
		sb.WriteString(s.quoteIdent(field))
		sb.WriteString(" ")
		sb.WriteString(op)
		sb.WriteString(" ")
		sb.WriteString(ph.next())
		args = append(args, where[key])
	}
	return sb.String(), args, nil
}

// splitFilterKey separates an operator suffix from a filter key. Unknown
// suffixes read as part of the field name with an equality comparison.
func splitFilterKey(key string) (string, string) {
	if field, suffix, found := strings.Cut(key, "__"); found {
		if op, ok := filterOperators[suffix]; ok {
			return field, op
		}
	}
	return key, "="
}

// aggExpression maps an aggregation mode onto its SQL aggregate. Modes that
// need a value field fall back to row counting when none is named.
func (s *Service) aggExpression(agg schema.AggMode, y, measure string) (string, error) {
	field := y
	if field == "" {
		field = measure
	}
	if field != "" {
		if err := validateIdentifier(field); err != nil {
			return "", fmt.Errorf("invalid value field: %w", err)
		}
	}

	switch agg {
	case schema.AggCount, schema.AggNone, "":
		if field == "" {
			return "COUNT(*)", nil
		}
		return fmt.Sprintf("SUM(%s)", s.quoteIdent(field)), nil
	case schema.AggDistinctCount:
		if field == "" {
			return "", fmt.Errorf("distinctCount requires a value field")
		}
		return fmt.Sprintf("COUNT(DISTINCT %s)", s.quoteIdent(field)), nil
	case schema.AggSum, schema.AggAvg, schema.AggMin, schema.AggMax:
		if field == "" {
			return "COUNT(*)", nil
		}
		fn := map[schema.AggMode]string{
			schema.AggSum: "SUM", schema.AggAvg: "AVG",
			schema.AggMin: "MIN", schema.AggMax: "MAX",
		}[agg]
		return fmt.Sprintf("%s(%s)", fn, s.quoteIdent(field)), nil
	default:
		return "", fmt.Errorf("aggregation %q is not supported by the SQL totals backend", agg)
	}
}

func (s *Service) quoteIdent(name string) string {
	if s.backend == schema.MySQLBackend {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

func validateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier is empty")
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("identifier %q contains unsupported characters", name)
	}
	return nil
}

// placeholders generates backend-specific bind markers.
type placeholders struct {
	backend schema.DatabaseBackend
	n       int
}

func newPlaceholders(backend schema.DatabaseBackend) *placeholders {
	return &placeholders{backend: backend}
}

func (p *placeholders) next() string {
	p.n++
	if p.backend == schema.PostgreSQLBackend {
		return fmt.Sprintf("$%d", p.n)
	}
	return "?"
}
