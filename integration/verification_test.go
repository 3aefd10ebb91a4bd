//go:build integration

// Package integration contains integration tests for pulsegrid.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags integration ./integration
// Or use: make test-integration
package integration

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAggregateVerification generates a long-format dataset, runs
// pulsegrid aggregate and verifies the totals against sums computed directly
// from the generated rows.
func TestAggregateVerification(t *testing.T) {
	pulsegridPath := buildPulsegrid(t)

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "events.csv")
	expected := generateLongCSV(t, csvPath, 500)

	out := runForOutput(t, pulsegridPath, "aggregate", csvPath, "--output", "csv", "--precision", "2")
	totals := parseTotalsCSV(t, out)

	require.Len(t, totals, len(expected))
	for category, want := range expected {
		t.Run(category, func(t *testing.T) {
			got, ok := totals[category]
			require.True(t, ok, "category %s missing from output", category)
			assert.InDelta(t, want, got, 0.01, "total mismatch for %s", category)
		})
	}
}

// TestPivotVerification runs pulsegrid pivot on the same dataset and checks
// that the wide rows sum to the per-category totals.
func TestPivotVerification(t *testing.T) {
	pulsegridPath := buildPulsegrid(t)

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "events.csv")
	expected := generateLongCSV(t, csvPath, 500)

	out := runForOutput(t, pulsegridPath, "pivot", csvPath, "--output", "csv", "--precision", "2")

	reader := csv.NewReader(strings.NewReader(out))
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)

	header := records[0]
	sums := make(map[string]float64)
	for _, record := range records[1:] {
		for i, cell := range record {
			if i == 0 {
				continue // axis column
			}
			v, err := strconv.ParseFloat(cell, 64)
			require.NoError(t, err)
			sums[header[i]] += v
		}
	}

	for category, want := range expected {
		assert.InDelta(t, want, sums[category], 0.01, "pivoted sum mismatch for %s", category)
	}
}

// buildPulsegrid builds the CLI binary into a temp dir.
func buildPulsegrid(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pulsegrid")
	buildCmd := exec.Command("go", "build", "-o", path, ".")
	buildCmd.Dir = ".." // Project root
	require.NoError(t, buildCmd.Run())
	return path
}

// generateLongCSV writes n long-format rows and returns the expected
// per-category sums.
func generateLongCSV(t *testing.T, path string, n int) map[string]float64 {
	t.Helper()

	rng := rand.New(rand.NewSource(42))
	categories := []string{"east", "west", "north", "south"}
	expected := make(map[string]float64)

	var buf bytes.Buffer
	buf.WriteString("x,legend,value\n")
	for i := range n {
		day := fmt.Sprintf("2024-03-%02d", i%28+1)
		category := categories[rng.Intn(len(categories))]
		value := float64(rng.Intn(10000)) / 100.0
		expected[category] += value
		fmt.Fprintf(&buf, "%s,%s,%.2f\n", day, category, value)
	}

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return expected
}

// parseTotalsCSV extracts category -> total from aggregate CSV output.
func parseTotalsCSV(t *testing.T, out string) map[string]float64 {
	t.Helper()

	reader := csv.NewReader(strings.NewReader(out))
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)
	require.Equal(t, []string{"category", "total"}, records[0])

	totals := make(map[string]float64)
	for _, record := range records[1:] {
		v, err := strconv.ParseFloat(record[1], 64)
		require.NoError(t, err)
		totals[record[0]] = v
	}
	return totals
}

// runForOutput executes the CLI and returns stdout.
func runForOutput(t *testing.T, binary string, args ...string) string {
	t.Helper()

	cmd := exec.Command(binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	require.NoError(t, cmd.Run(), "stderr: %s", stderr.String())
	return stdout.String()
}
