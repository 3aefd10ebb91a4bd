// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"os"

	"github.com/pulsegrid/pulsegrid/internal/contract"
	"golang.org/x/term"
)

// LogDeltaHeader prints a concise, 2-line header for a delta computation.
func LogDeltaHeader(cfg *contract.Config) {
	searchPrefix, rangePrefix := "", ""
	if cfg.UseEmojis {
		searchPrefix, rangePrefix = "🔎 ", "📅 "
	}

	// Line 1: The comparison summary (Source and Agg)
	fmt.Printf("%sSource: %s (Agg: %s)\n", searchPrefix, cfg.Source, cfg.Agg)

	// Line 2: The comparison window being resolved
	fmt.Printf("%sPeriod: %s (week start: %s, tz offset: %+d min)\n", rangePrefix, cfg.PeriodMode, cfg.WeekStart, cfg.TZOffsetMinutes)
}

// GetMaxTableLabelWidth calculates the maximum width for axis labels in table
// output based on terminal width and table configuration.
func GetMaxTableLabelWidth(cfg *contract.Config, categoryCount int) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		// Get terminal width
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			// Fallback to conservative default if terminal size can't be detected
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Reserve space for value columns with table formatting. Each numeric
	// column needs roughly 12 characters including borders and padding.
	baseWidth := 12 * (categoryCount + 1)

	// Reserve space for table borders, separators, and padding
	baseWidth += 8

	// Calculate available space for labels
	available := termWidth - baseWidth
	if available < 12 {
		// Minimum width that keeps bucket range labels readable
		return 12
	}
	if available > 40 {
		// Maximum label width to prevent overly wide tables
		return 40
	}
	return available
}

// truncateLabel shortens an axis label to maxLen runes, marking the cut
// with a trailing ellipsis.
func truncateLabel(label string, maxLen int) string {
	runes := []rune(label)
	if len(runes) <= maxLen {
		return label
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
