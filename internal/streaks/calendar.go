// Package streaks rebuilds a day-by-day activity calendar from streak intervals.
package streaks

import (
	"time"

	"github.com/jonathan/lpi-harvester/internal/types"
)

// dateLayouts are tried in order when parsing interval dates.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Midnight truncates t to the start of its day in its own location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate parses an interval date at day granularity in loc.
// Date-only values are civil dates; timestamps are converted to loc first.
func ParseDate(value string, loc *time.Location) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation(time.DateOnly, value, loc); err == nil {
		return t, true
	}
	for _, layout := range dateLayouts[1:] {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return Midnight(t.In(loc)), true
		}
	}
	return time.Time{}, false
}

// Span returns the first and last day of an interval.
// ok is false when either date is unparseable or the end precedes the start.
func Span(iv types.StreakInterval, loc *time.Location) (start, end time.Time, ok bool) {
	start, ok = ParseDate(iv.StartDate, loc)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok = ParseDate(iv.EndDate, loc)
	if !ok || end.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// Reconstruct builds the calendar for year/month as seen on today.
//
// Days after today are DayFuture, all other days start as DayMissed and become
// DayPlayed when an interval covers them. Intervals rejected by Span are skipped.
// The result depends only on its arguments.
func Reconstruct(intervals []types.StreakInterval, year int, month time.Month, today time.Time) types.MonthlyCalendar {
	loc := today.Location()
	todayDate := civil(today)
	n := DaysIn(year, month)

	days := make([]types.DayState, n)
	for d := 1; d <= n; d++ {
		if time.Date(year, month, d, 0, 0, 0, 0, time.UTC).After(todayDate) {
			days[d-1] = types.DayFuture
		} else {
			days[d-1] = types.DayMissed
		}
	}

	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, month, n, 0, 0, 0, 0, time.UTC)
	if todayDate.Before(last) {
		last = todayDate
	}

	for _, iv := range intervals {
		start, end, ok := Span(iv, loc)
		if !ok {
			continue
		}
		start, end = civil(start), civil(end)
		if start.Before(monthStart) {
			start = monthStart
		}
		if end.After(last) {
			end = last
		}
		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			days[day.Day()-1] = types.DayPlayed
		}
	}

	return types.MonthlyCalendar{Days: days}
}

// civil returns t's calendar date, in its own location, as midnight UTC.
// Day stepping in UTC never lands on a wall clock skipped by a DST change.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
