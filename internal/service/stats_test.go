package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"task-reminder/internal/model"
	"task-reminder/internal/recurrence"
)

func TestComputeStats(t *testing.T) {
	start := date(t, "2024-01-01")
	tests := []struct {
		name        string
		freq        recurrence.Frequency
		value       int
		completions int
		today       string
		want        CompletionStats
	}{
		{"daily", recurrence.Daily, 1, 5, "2024-01-11", CompletionStats{Expected: 10, Actual: 5, Missed: 5, Rate: 50}},
		{"custom matches daily", recurrence.Custom, 2, 5, "2024-01-11", CompletionStats{Expected: 5, Actual: 5, Rate: 100}},
		{"weekly", recurrence.Weekly, 1, 1, "2024-01-29", CompletionStats{Expected: 4, Actual: 1, Missed: 3, Rate: 25}},
		{"monthly uses thirty days", recurrence.Monthly, 1, 2, "2024-03-01", CompletionStats{Expected: 2, Actual: 2, Rate: 100}},
		{"yearly", recurrence.Yearly, 1, 0, "2024-12-31", CompletionStats{Expected: 1, Missed: 1}},
		{"over achiever", recurrence.Weekly, 1, 3, "2024-01-15", CompletionStats{Expected: 2, Actual: 3, Rate: 150}},
		{"nothing expected yet", recurrence.Monthly, 1, 1, "2024-01-20", CompletionStats{Actual: 1}},
		{"before start", recurrence.Daily, 1, 0, "2023-12-01", CompletionStats{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := model.Task{FrequencyType: tt.freq, FrequencyValue: tt.value, StartDate: start}
			assert.Equal(t, tt.want, ComputeStats(task, tt.completions, date(t, tt.today)))
		})
	}
}
