// Package rowset loads tabular query results from CSV files.
package rowset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pulsegrid/pulsegrid/schema"
)

// LoadCSV reads a CSV file into a ResultSet. The first record is the column
// header; every following record becomes one row. Numeric-looking cells are
// coerced to float64 so downstream aggregation sees numbers, everything else
// stays a string.
func LoadCSV(path string) (schema.ResultSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return schema.ResultSet{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return Parse(f)
}

// Parse reads CSV content from a reader into a ResultSet.
func Parse(r io.Reader) (schema.ResultSet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // tolerate ragged rows

	headers, err := reader.Read()
	if err != nil {
		return schema.ResultSet{}, fmt.Errorf("read CSV header: %w", err)
	}
	columns := make([]string, len(headers))
	for i, h := range headers {
		columns[i] = strings.TrimSpace(h)
	}

	var rows [][]any
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return schema.ResultSet{}, fmt.Errorf("read CSV row: %w", err)
		}
		row := make([]any, len(record))
		for i, cell := range record {
			row[i] = coerceCell(cell)
		}
		rows = append(rows, row)
	}

	return schema.ResultSet{Columns: columns, Rows: rows}, nil
}

// coerceCell turns numeric-looking cells into float64 values. Cells that look
// like dates or identifiers stay strings; the date normalizer handles those
// downstream.
func coerceCell(cell string) any {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return ""
	}
	// Long digit runs are timestamps or identifiers, not measures.
	if len(trimmed) >= 10 && isDigits(trimmed) {
		return trimmed
	}
	if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return v
	}
	return trimmed
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
