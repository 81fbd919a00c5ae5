package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestNext(t *testing.T) {
	tests := []struct {
		name   string
		rule   Rule
		anchor string
		want   string
	}{
		{"daily", Rule{Frequency: Daily, Interval: 1}, "2024-03-04", "2024-03-05"},
		{"every 3 days across month", Rule{Frequency: Daily, Interval: 3}, "2024-02-28", "2024-03-02"},
		{"custom is daily", Rule{Frequency: Custom, Interval: 10}, "2024-12-25", "2025-01-04"},
		{"weekly", Rule{Frequency: Weekly, Interval: 1}, "2024-03-04", "2024-03-11"},
		{"biweekly", Rule{Frequency: Weekly, Interval: 2}, "2024-03-04", "2024-03-18"},
		{"weekdays from wednesday", Rule{Frequency: Weekly, Interval: 1, Weekdays: []time.Weekday{1, 3, 5}}, "2024-03-06", "2024-03-08"},
		{"weekdays from friday wraps", Rule{Frequency: Weekly, Interval: 1, Weekdays: []time.Weekday{1, 3, 5}}, "2024-03-08", "2024-03-11"},
		{"single weekday same day goes a week", Rule{Frequency: Weekly, Interval: 1, Weekdays: []time.Weekday{time.Monday}}, "2024-03-04", "2024-03-11"},
		{"weekdays ignore interval", Rule{Frequency: Weekly, Interval: 4, Weekdays: []time.Weekday{time.Tuesday}}, "2024-03-04", "2024-03-05"},
		{"monthly clamps to leap day", Rule{Frequency: Monthly, Interval: 1}, "2024-01-31", "2024-02-29"},
		{"monthly clamps non-leap", Rule{Frequency: Monthly, Interval: 1}, "2023-01-31", "2023-02-28"},
		{"quarterly", Rule{Frequency: Monthly, Interval: 3}, "2024-11-15", "2025-02-15"},
		{"day of month later this month", Rule{Frequency: Monthly, Interval: 1, DayOfMonth: 20}, "2024-03-04", "2024-03-20"},
		{"day of month already passed", Rule{Frequency: Monthly, Interval: 1, DayOfMonth: 1}, "2024-03-04", "2024-04-01"},
		{"day of month same day", Rule{Frequency: Monthly, Interval: 1, DayOfMonth: 4}, "2024-03-04", "2024-04-04"},
		{"day 31 in 30 day month", Rule{Frequency: Monthly, Interval: 1, DayOfMonth: 31}, "2024-04-15", "2024-04-30"},
		{"day 31 from jan 31", Rule{Frequency: Monthly, Interval: 1, DayOfMonth: 31}, "2024-01-31", "2024-02-29"},
		{"day of month every 2 months", Rule{Frequency: Monthly, Interval: 2, DayOfMonth: 10}, "2024-01-15", "2024-03-10"},
		{"day of month crosses year", Rule{Frequency: Monthly, Interval: 1, DayOfMonth: 5}, "2024-12-20", "2025-01-05"},
		{"yearly", Rule{Frequency: Yearly, Interval: 1}, "2023-06-15", "2024-06-15"},
		{"yearly leap day", Rule{Frequency: Yearly, Interval: 1}, "2024-02-29", "2025-02-28"},
		{"every 4 years leap day", Rule{Frequency: Yearly, Interval: 4}, "2024-02-29", "2028-02-29"},
		{"day of month ignored for weekly", Rule{Frequency: Weekly, Interval: 1, DayOfMonth: 15}, "2024-03-04", "2024-03-11"},
		{"weekdays ignored for monthly", Rule{Frequency: Monthly, Interval: 1, Weekdays: []time.Weekday{time.Friday}}, "2024-03-04", "2024-04-04"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.rule, mustDate(t, tt.anchor))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format(DateLayout))
		})
	}
}

func TestNextUsesCalendarDateOfTimestamp(t *testing.T) {
	completed := time.Date(2024, 3, 4, 23, 59, 0, 0, time.UTC)
	got, err := Next(Rule{Frequency: Daily, Interval: 1}, completed)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), got)
}

func TestNextInvalidRule(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{"zero interval", Rule{Frequency: Daily, Interval: 0}},
		{"negative interval", Rule{Frequency: Weekly, Interval: -2}},
		{"day of month too large", Rule{Frequency: Monthly, Interval: 1, DayOfMonth: 32}},
		{"day of month negative", Rule{Frequency: Monthly, Interval: 1, DayOfMonth: -1}},
		{"unknown frequency", Rule{Frequency: "hourly", Interval: 1}},
		{"bad weekday", Rule{Frequency: Weekly, Interval: 1, Weekdays: []time.Weekday{7}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Next(tt.rule, mustDate(t, "2024-01-01"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRule))
		})
	}
}

func TestNextIsStrictlyAfterAnchor(t *testing.T) {
	rules := []Rule{
		{Frequency: Daily, Interval: 1},
		{Frequency: Custom, Interval: 2},
		{Frequency: Weekly, Interval: 1},
		{Frequency: Weekly, Interval: 1, Weekdays: []time.Weekday{time.Sunday}},
		{Frequency: Weekly, Interval: 3, Weekdays: []time.Weekday{time.Monday, time.Thursday}},
		{Frequency: Monthly, Interval: 1},
		{Frequency: Monthly, Interval: 1, DayOfMonth: 1},
		{Frequency: Monthly, Interval: 1, DayOfMonth: 29},
		{Frequency: Monthly, Interval: 1, DayOfMonth: 31},
		{Frequency: Monthly, Interval: 6, DayOfMonth: 15},
		{Frequency: Yearly, Interval: 1},
	}

	start := mustDate(t, "2023-12-01")
	for day := 0; day < 500; day++ {
		anchor := start.AddDate(0, 0, day)
		for _, r := range rules {
			got, err := Next(r, anchor)
			require.NoError(t, err)
			require.Truef(t, got.After(anchor), "%s from %s gave %s", r, anchor.Format(DateLayout), got.Format(DateLayout))
		}
	}
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		from string
		n    int
		want string
	}{
		{"2024-01-31", 1, "2024-02-29"},
		{"2024-03-31", -1, "2024-02-29"},
		{"2024-08-31", 1, "2024-09-30"},
		{"2024-12-15", 1, "2025-01-15"},
		{"2024-05-31", 13, "2025-06-30"},
	}
	for _, tt := range tests {
		got := AddMonths(mustDate(t, tt.from), tt.n)
		assert.Equal(t, tt.want, got.Format(DateLayout), "%s %+d months", tt.from, tt.n)
	}
}

func TestStartOfDay(t *testing.T) {
	sydney := time.FixedZone("AEDT", 11*60*60)
	day := mustDate(t, "2024-03-05")

	assert.Equal(t, time.Date(2024, 3, 4, 13, 0, 0, 0, time.UTC), StartOfDay(day, sydney))
	assert.Equal(t, day, StartOfDay(day, nil))
	assert.Equal(t, time.UTC, StartOfDay(day, sydney).Location())
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 29, DaysIn(2024, time.February))
	assert.Equal(t, 28, DaysIn(2023, time.February))
	assert.Equal(t, 28, DaysIn(1900, time.February))
	assert.Equal(t, 29, DaysIn(2000, time.February))
	assert.Equal(t, 31, DaysIn(2024, time.December))
	assert.Equal(t, 30, DaysIn(2024, time.April))
}

func TestParseWeekdays(t *testing.T) {
	got, err := ParseWeekdays([]int{5, 1, 3, 1})
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Friday}, got)

	_, err = ParseWeekdays([]int{7})
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestRuleString(t *testing.T) {
	r := Rule{Frequency: Weekly, Interval: 1, Weekdays: []time.Weekday{time.Monday, time.Friday}}
	assert.Equal(t, "weekly/1 on Mon,Fri", r.String())
	assert.Equal(t, "monthly/2 day 31", Rule{Frequency: Monthly, Interval: 2, DayOfMonth: 31}.String())
}
