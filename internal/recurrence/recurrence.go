// Package recurrence computes when a recurring task is next due.
package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Frequency is the cadence family of a recurrence rule.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
	// Custom is an interval in days, same as Daily.
	Custom Frequency = "custom"
)

// Frequencies lists every supported frequency.
var Frequencies = []Frequency{Daily, Weekly, Monthly, Yearly, Custom}

// ErrInvalidRule is returned for malformed recurrence configuration.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// Rule describes how often a task recurs.
type Rule struct {
	Frequency Frequency
	// Interval is the N in "every N days/weeks/months/years".
	Interval int
	// DayOfMonth pins monthly tasks to a calendar day; 0 means unset.
	DayOfMonth int
	// Weekdays pins weekly tasks to specific weekdays.
	Weekdays []time.Weekday
}

// Validate reports whether the rule can be evaluated.
func (r Rule) Validate() error {
	if r.Interval < 1 {
		return fmt.Errorf("%w: frequency value must be at least 1, got %d", ErrInvalidRule, r.Interval)
	}
	if r.DayOfMonth != 0 && (r.DayOfMonth < 1 || r.DayOfMonth > 31) {
		return fmt.Errorf("%w: day of month must be between 1 and 31, got %d", ErrInvalidRule, r.DayOfMonth)
	}
	for _, wd := range r.Weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return fmt.Errorf("%w: weekday must be between 0 and 6, got %d", ErrInvalidRule, wd)
		}
	}
	switch r.Frequency {
	case Daily, Weekly, Monthly, Yearly, Custom:
		return nil
	default:
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidRule, r.Frequency)
	}
}

func (r Rule) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s/%d", r.Frequency, r.Interval)
	if r.Frequency == Monthly && r.DayOfMonth != 0 {
		fmt.Fprintf(&sb, " day %d", r.DayOfMonth)
	}
	if r.Frequency == Weekly && len(r.Weekdays) > 0 {
		days := make([]string, 0, len(r.Weekdays))
		for _, wd := range r.Weekdays {
			days = append(days, wd.String()[:3])
		}
		fmt.Fprintf(&sb, " on %s", strings.Join(days, ","))
	}
	return sb.String()
}

// Strategy computes the next due date from an anchor (completion or start).
// The result is always a calendar date strictly after the anchor's date.
type Strategy interface {
	Next(anchor time.Time) time.Time
}

// StrategyFor selects the computation for a rule. Day-of-month is consulted
// only for monthly rules and weekdays only for weekly rules.
func StrategyFor(r Rule) (Strategy, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	switch r.Frequency {
	case Daily, Custom:
		return everyDays{days: r.Interval}, nil
	case Weekly:
		if len(r.Weekdays) > 0 {
			return newWeekdaySet(r.Weekdays), nil
		}
		return everyDays{days: 7 * r.Interval}, nil
	case Monthly:
		if r.DayOfMonth != 0 {
			return monthDay{months: r.Interval, day: r.DayOfMonth}, nil
		}
		return everyMonths{months: r.Interval}, nil
	default:
		return everyMonths{months: 12 * r.Interval}, nil
	}
}

// Next returns the date the task is due after being completed at anchor.
func Next(r Rule, anchor time.Time) (time.Time, error) {
	s, err := StrategyFor(r)
	if err != nil {
		return time.Time{}, err
	}
	return s.Next(anchor), nil
}

type everyDays struct {
	days int
}

func (s everyDays) Next(anchor time.Time) time.Time {
	return AddDays(anchor, s.days)
}

// weekdaySet picks the earliest listed weekday at least one day after the
// anchor. The interval is ignored when explicit weekdays are given.
type weekdaySet struct {
	days [7]bool
}

func newWeekdaySet(weekdays []time.Weekday) weekdaySet {
	var s weekdaySet
	for _, wd := range weekdays {
		s.days[wd] = true
	}
	return s
}

func (s weekdaySet) Next(anchor time.Time) time.Time {
	a := DateOf(anchor)
	for i := 1; i <= 7; i++ {
		d := a.AddDate(0, 0, i)
		if s.days[d.Weekday()] {
			return d
		}
	}
	// unreachable: the set is non-empty
	return a.AddDate(0, 0, 7)
}

type everyMonths struct {
	months int
}

func (s everyMonths) Next(anchor time.Time) time.Time {
	return AddMonths(DateOf(anchor), s.months)
}

// monthDay finds the first occurrence of day (clamped to month length) after
// the anchor, stepping from the anchor's month in increments of months.
type monthDay struct {
	months int
	day    int
}

func (s monthDay) Next(anchor time.Time) time.Time {
	a := DateOf(anchor)
	y, m, _ := a.Date()
	for step := 0; ; step += s.months {
		if d := onDay(y, m+time.Month(step), s.day); d.After(a) {
			return d
		}
	}
}

// ParseWeekdays converts 0=Sunday..6=Saturday indices into a sorted,
// de-duplicated weekday list.
func ParseWeekdays(indices []int) ([]time.Weekday, error) {
	seen := make(map[int]bool, len(indices))
	out := make([]time.Weekday, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i > 6 {
			return nil, fmt.Errorf("%w: weekday must be between 0 and 6, got %d", ErrInvalidRule, i)
		}
		if seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, time.Weekday(i))
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out, nil
}
