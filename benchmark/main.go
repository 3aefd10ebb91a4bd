// Package main provides a performance benchmarking tool for the PulseGrid CLI.
// It measures execution times across different dataset sizes and command types,
// running each test multiple times, treating the first run as cold and averaging the rest as warm,
// generating CSV output for performance analysis and documentation.
//
// Prerequisites:
// - pulsegrid binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory where synthetic datasets are generated
package main

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (cold run and average of warm runs).
type BenchmarkResult struct {
	Dataset  string
	Command  string
	ColdTime string
	WarmTime string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir      string
	Timeout      time.Duration
	Runs         int
	DatasetSizes map[string]int
	Commands     []string
}

func main() {
	// Parse command line arguments
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}
	workDir := os.Args[1]

	config := BenchmarkConfig{
		WorkDir: workDir,
		Timeout: 2 * time.Minute,
		Runs:    4,
		DatasetSizes: map[string]int{
			"small":  1_000,
			"medium": 50_000,
			"large":  500_000,
		},
		Commands: []string{"timeline", "aggregate", "pivot"},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	datasets, err := generateDatasets(config)
	if err != nil {
		fmt.Printf("Failed to generate datasets: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config, datasets)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results, config.Commands)
}

// checkPrerequisites verifies that the pulsegrid binary and the work dir exist.
func checkPrerequisites(config BenchmarkConfig) error {
	// Check if pulsegrid is available
	if _, err := exec.LookPath("pulsegrid"); err != nil {
		return fmt.Errorf("pulsegrid binary not found in PATH")
	}

	if err := os.MkdirAll(config.WorkDir, 0o755); err != nil {
		return fmt.Errorf("cannot create work dir %s: %w", config.WorkDir, err)
	}

	return nil
}

// generateDatasets writes one long-format CSV per configured size and returns
// dataset name -> file path.
func generateDatasets(config BenchmarkConfig) (map[string]string, error) {
	rng := rand.New(rand.NewSource(1))
	categories := []string{"east", "west", "north", "south", "online", "retail"}

	datasets := make(map[string]string, len(config.DatasetSizes))
	for name, rows := range config.DatasetSizes {
		path := filepath.Join(config.WorkDir, fmt.Sprintf("bench_%s.csv", name))
		fmt.Printf("Generating %s dataset (%d rows) at %s\n", name, rows, path)

		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}

		writer := csv.NewWriter(f)
		if err := writer.Write([]string{"x", "legend", "value"}); err != nil {
			_ = f.Close()
			return nil, err
		}
		start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := range rows {
			day := start.AddDate(0, 0, i%365).Format("2006-01-02")
			category := categories[rng.Intn(len(categories))]
			value := fmt.Sprintf("%.2f", float64(rng.Intn(100000))/100.0)
			if err := writer.Write([]string{day, category, value}); err != nil {
				_ = f.Close()
				return nil, err
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.Close(); err != nil {
			return nil, err
		}

		datasets[name] = path
	}
	return datasets, nil
}

// runBenchmarks executes all benchmark tests across configured datasets.
func runBenchmarks(config BenchmarkConfig, datasets map[string]string) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d datasets, %v timeout, %d runs per command\n",
		len(datasets), config.Timeout, config.Runs)

	for name, path := range datasets {
		fmt.Printf("Benchmarking %s\n", name)

		for _, command := range config.Commands {
			fmt.Printf("Running %s on %s\n", command, name)
			cold, times := runBenchmark(config, command, path)

			warmAvg := "TIMEOUT"
			if len(times) > 0 {
				var sum float64
				for _, t := range times {
					sum += t
				}
				warmAvg = fmt.Sprintf("%.3fs", sum/float64(len(times)))
			}
			coldStr := "TIMEOUT"
			if cold > 0 {
				coldStr = fmt.Sprintf("%.3fs", cold)
			}
			fmt.Printf("  Cold time: %s, Warm average: %s\n", coldStr, warmAvg)

			results = append(results, BenchmarkResult{
				Dataset:  name,
				Command:  command,
				ColdTime: coldStr,
				WarmTime: warmAvg,
			})
		}
	}

	return results
}

// runBenchmark executes a pulsegrid command multiple times and returns the
// cold time plus the warm times.
func runBenchmark(config BenchmarkConfig, command, csvPath string) (coldTime float64, warmTimes []float64) {
	var times []float64
	for run := 1; run <= config.Runs; run++ {
		start := time.Now()

		cmd := exec.Command("pulsegrid", command, csvPath)

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output, command) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			// Timeout - don't add to times
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion.
func isSuccess(output []byte, command string) bool {
	outputStr := string(output)

	var completionPhrase string
	switch command {
	case "timeline":
		completionPhrase = "Timeline built in"
	case "aggregate":
		completionPhrase = "Aggregated"
	case "pivot":
		completionPhrase = "Pivoted"
	default:
		completionPhrase = "in"
	}

	return strings.Contains(outputStr, completionPhrase)
}

// saveResults writes benchmark results to a timestamped CSV file.
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/pulsegrid_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	if err := writer.Write([]string{"dataset", "cmd", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write results
	for _, result := range results {
		if err := writer.Write([]string{result.Dataset, result.Command, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary.
func printSummary(results []BenchmarkResult, commands []string) {
	fmt.Printf("Benchmark complete\n")

	for _, command := range commands {
		fmt.Printf("%s:\n", command)
		for _, result := range results {
			if result.Command == command {
				fmt.Printf("  %-12s: Cold: %s, Warm: %s\n", result.Dataset, result.ColdTime, result.WarmTime)
			}
		}
	}

	fmt.Printf("Benchmark script completed successfully\n")
}
