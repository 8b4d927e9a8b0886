package util

import "time"

// DateLayout is the calendar date format used on the wire and in the database
const DateLayout = "2006-01-02"

// StartOfDay returns midnight of t's calendar day in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last nanosecond of t's calendar day in t's location
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

const secondsPerDay = 24 * 60 * 60

// DaysBetween returns the number of calendar days from a to b (negative when b is before a).
// Only the calendar dates matter, so DST transitions and time of day never change the count.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int((to.Unix() - from.Unix()) / secondsPerDay)
}

// ParseDate parses a calendar date or an RFC3339 timestamp and returns midnight of
// that calendar day in loc. Timestamps are first converted to loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(DateLayout, value, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return StartOfDay(t.In(loc)), nil
}

// FormatDate formats t as a calendar date
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// IsFutureDay returns true if day falls on a calendar day after today
func IsFutureDay(day, today time.Time) bool {
	return DaysBetween(today, day) > 0
}
