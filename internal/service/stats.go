package service

import (
	"math"
	"time"

	"task-reminder/internal/model"
	"task-reminder/internal/recurrence"
)

// Approximate period lengths for completion statistics. Due dates use real
// calendar math; these numbers only feed the dashboard rate.
const (
	statsDaysPerWeek  = 7
	statsDaysPerMonth = 30
	statsDaysPerYear  = 365
)

// CompletionStats summarizes how well a task has been kept up since it
// started.
type CompletionStats struct {
	Expected int `json:"expected"`
	Actual   int `json:"actual"`
	Missed   int `json:"missed"`
	Rate     int `json:"rate"`
}

// ComputeStats estimates expected completions from the days elapsed since the
// start date.
func ComputeStats(task model.Task, completions int, today time.Time) CompletionStats {
	stats := CompletionStats{Actual: completions}

	days := int(recurrence.DateOf(today).Sub(recurrence.DateOf(task.StartDate)).Hours() / 24)
	if period := statsPeriodDays(task); days > 0 && period > 0 {
		stats.Expected = days / period
	}

	if stats.Expected > 0 {
		stats.Rate = int(math.Round(float64(stats.Actual) / float64(stats.Expected) * 100))
	}
	stats.Missed = max(0, stats.Expected-stats.Actual)
	return stats
}

func statsPeriodDays(task model.Task) int {
	n := task.FrequencyValue
	switch task.FrequencyType {
	case recurrence.Daily, recurrence.Custom:
		return n
	case recurrence.Weekly:
		return statsDaysPerWeek * n
	case recurrence.Monthly:
		return statsDaysPerMonth * n
	case recurrence.Yearly:
		return statsDaysPerYear * n
	default:
		return 0
	}
}
