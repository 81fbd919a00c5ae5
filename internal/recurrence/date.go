package recurrence

import "time"

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// DateOf drops the time-of-day from t, keeping the calendar date as seen in
// t's own location. The result is midnight UTC so dates compare and persist
// consistently.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfDay is the instant the calendar date day begins in loc, in UTC.
// A nil loc means UTC.
func StartOfDay(day time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).UTC()
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddDays moves a date by n calendar days.
func AddDays(d time.Time, n int) time.Time {
	return DateOf(d).AddDate(0, 0, n)
}

// AddMonths moves a date by n months, clamping the day to the last day of the
// target month instead of overflowing into the next one.
func AddMonths(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	return onDay(y, m+time.Month(n), day)
}

// AddYears moves a date by n years. Feb 29 lands on Feb 28 in non-leap years.
func AddYears(d time.Time, n int) time.Time {
	return AddMonths(d, 12*n)
}

// onDay builds the date for the given day of a (possibly unnormalized) month,
// clamped to the month length.
func onDay(year int, month time.Month, day int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	if last := DaysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}
