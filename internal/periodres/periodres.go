// Package periodres resolves named comparison modes into concrete calendar
// boundaries for a fixed timezone offset and week-start convention.
package periodres

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsegrid/pulsegrid/internal/contract"
	"github.com/pulsegrid/pulsegrid/schema"
)

// Resolver maps period modes onto calendar windows anchored at the current
// time. The clock is injectable so boundaries can be tested deterministically.
type Resolver struct {
	now func() time.Time
}

var _ contract.PeriodResolver = &Resolver{}

// NewResolver returns a resolver anchored at the wall clock.
func NewResolver() *Resolver {
	return &Resolver{now: time.Now}
}

// NewResolverWithClock returns a resolver anchored at a fixed clock.
func NewResolverWithClock(now func() time.Time) *Resolver {
	return &Resolver{now: now}
}

// ResolvePeriods returns the current and previous period boundaries for the
// query. Boundaries are inclusive on both ends, with period ends landing one
// millisecond before the next period begins.
func (r *Resolver) ResolvePeriods(_ context.Context, query schema.PeriodQuery) (schema.PeriodRange, error) {
	loc := locationFor(query.TZOffsetMinutes)
	now := r.now().In(loc)

	switch query.Mode {
	case schema.TodayVsYesterday:
		today := startOfDay(now)
		return rangeOf(today, today.AddDate(0, 0, 1), today.AddDate(0, 0, -1), today), nil

	case schema.WeekVsLastWeek:
		sow := startOfWeek(now, query.WeekStart)
		return rangeOf(sow, sow.AddDate(0, 0, 7), sow.AddDate(0, 0, -7), sow), nil

	case schema.MonthVsLastMonth:
		som := startOfMonth(now)
		return rangeOf(som, som.AddDate(0, 1, 0), som.AddDate(0, -1, 0), som), nil

	case schema.MTDVsLastMTD:
		som := startOfMonth(now)
		endOfToday := startOfDay(now).AddDate(0, 0, 1)
		prevStart := som.AddDate(0, -1, 0)
		prevEnd := prevStart.AddDate(0, 0, now.Day())
		// Clamp short months so the previous window never bleeds into the
		// current month.
		if prevEnd.After(som) {
			prevEnd = som
		}
		return rangeOf(som, endOfToday, prevStart, prevEnd), nil

	case schema.YearVsLastYear:
		soy := startOfYear(now)
		return rangeOf(soy, soy.AddDate(1, 0, 0), soy.AddDate(-1, 0, 0), soy), nil

	case schema.YTDVsLastYTD:
		soy := startOfYear(now)
		endOfToday := startOfDay(now).AddDate(0, 0, 1)
		return rangeOf(soy, endOfToday, soy.AddDate(-1, 0, 0), endOfToday.AddDate(-1, 0, 0)), nil

	case schema.QuarterVsLastQuart:
		soq := startOfQuarter(now)
		return rangeOf(soq, soq.AddDate(0, 3, 0), soq.AddDate(0, -3, 0), soq), nil
	}

	return schema.PeriodRange{}, fmt.Errorf("unknown period mode %q", query.Mode)
}

// rangeOf builds an inclusive range from exclusive period-end boundaries.
func rangeOf(curStart, curNext, prevStart, prevNext time.Time) schema.PeriodRange {
	return schema.PeriodRange{
		CurStart:  curStart,
		CurEnd:    curNext.Add(-time.Millisecond),
		PrevStart: prevStart,
		PrevEnd:   prevNext.Add(-time.Millisecond),
	}
}

func locationFor(offsetMinutes int) *time.Location {
	if offsetMinutes == 0 {
		return time.UTC
	}
	return time.FixedZone(fmt.Sprintf("UTC%+03d:%02d", offsetMinutes/60, abs(offsetMinutes%60)), offsetMinutes*60)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func startOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
}

func startOfQuarter(t time.Time) time.Time {
	quarterMonth := time.Month((int(t.Month())-1)/3*3 + 1)
	return time.Date(t.Year(), quarterMonth, 1, 0, 0, 0, 0, t.Location())
}

// startOfWeek walks back to the configured first day of the week.
func startOfWeek(t time.Time, weekStart schema.WeekStart) time.Time {
	first := time.Monday
	switch weekStart {
	case schema.WeekStartSunday:
		first = time.Sunday
	case schema.WeekStartSaturday:
		first = time.Saturday
	}
	diff := (int(t.Weekday()) - int(first) + 7) % 7
	return startOfDay(t).AddDate(0, 0, -diff)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
