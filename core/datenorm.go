package core

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pulsegrid/pulsegrid/schema"
)

// Timestamp strings are 10 digits for seconds, 11 to 13 for milliseconds.
var unixDigitsRegex = regexp.MustCompile(`^\d{10,13}$`)

// Layouts tried in order for the generic parsing step.
var genericLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC1123Z,
	time.RFC1123,
}

// Layouts for slash-separated dates, tried in order.
var slashLayouts = []string{
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
}

// ParseDate coerces an arbitrary cell value into a time. It accepts native
// times, unix timestamps in seconds or milliseconds (numeric or string),
// dash-separated dates with an optional time-of-day, slash-separated dates,
// and a handful of generic layouts. The second return value reports success;
// the function never panics on malformed input.
func ParseDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		return parseDateString(strings.TrimSpace(v))
	case nil:
		return time.Time{}, false
	}

	if n, ok := schema.ToFloat(value); ok {
		return parseUnixNumber(n)
	}
	return time.Time{}, false
}

// parseUnixNumber interprets an integral number as a unix timestamp.
// Ten digits read as seconds, eleven to thirteen as milliseconds.
func parseUnixNumber(n float64) (time.Time, bool) {
	if n != math.Trunc(n) || n <= 0 {
		return time.Time{}, false
	}
	digits := len(strconv.FormatFloat(math.Abs(n), 'f', -1, 64))
	switch {
	case digits == 10:
		return time.Unix(int64(n), 0), true
	case digits >= 11 && digits <= 13:
		return time.UnixMilli(int64(n)), true
	}
	return time.Time{}, false
}

func parseDateString(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	// 1. Unix timestamp strings
	if unixDigitsRegex.MatchString(s) {
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, false
		}
		return parseUnixNumber(n)
	}

	// 2. Dash date with space-separated time of day
	if len(s) > 10 && s[4] == '-' && s[10] == ' ' {
		candidate := s[:10] + "T" + s[11:]
		for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
			if t, err := time.ParseInLocation(layout, candidate, time.Local); err == nil {
				return t, true
			}
		}
	}

	// 3. Bare dash date at local midnight
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, true
	}

	// 4. Slash dates
	if strings.Contains(s, "/") {
		for _, layout := range slashLayouts {
			if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return t, true
			}
		}
	}

	// 5. Generic layouts
	for _, layout := range genericLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
