package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Trend label constants.
const (
	SurgingValue   = "Surging"   // Strong growth over the prior period
	GrowingValue   = "Growing"   // Moderate growth over the prior period
	FlatValue      = "Flat"      // No change over the prior period
	DecliningValue = "Declining" // Contraction over the prior period
)

// Color variables for console output.
var (
	SurgingColor   = color.New(color.FgGreen, color.Bold) // surgingColor represents strong positive movement.
	GrowingColor   = color.New(color.FgGreen)             // growingColor represents steady positive movement.
	FlatColor      = color.New(color.FgYellow)            // flatColor represents an unchanged value.
	DecliningColor = color.New(color.FgRed)               // decliningColor represents negative movement.
)

// GetPlainLabel returns a plain text label indicating the trend direction
// based on the change percent. This is the core logic used for CSV, JSON,
// and table printing.
func GetPlainLabel(changePct float64) string {
	switch {
	case changePct >= 25:
		return SurgingValue
	case changePct > 0:
		return GrowingValue
	case changePct == 0:
		return FlatValue
	default:
		return DecliningValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
// It uses GetPlainLabel to determine the string, and then applies the appropriate color.
func GetColorLabel(changePct float64) string {
	text := GetPlainLabel(changePct)

	switch text {
	case SurgingValue:
		return SurgingColor.Sprint(text)
	case GrowingValue:
		return GrowingColor.Sprint(text)
	case FlatValue:
		return FlatColor.Sprint(text)
	default: // "Declining"
		return DecliningColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on
// the provided file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for totals cache storage.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".pulsegrid_cache.db"
	}
	return filepath.Join(homeDir, ".pulsegrid_cache.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for run history storage.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".pulsegrid_history.db"
	}
	return filepath.Join(homeDir, ".pulsegrid_history.db")
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
