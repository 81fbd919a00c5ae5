package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"task-reminder/internal/recurrence"
)

func day(s string) time.Time {
	d, err := recurrence.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func ptr[T any](v T) *T { return &v }

func TestStateOn(t *testing.T) {
	today := day("2024-03-10")
	tests := []struct {
		name string
		task Task
		want StateKind
	}{
		{"active", Task{Active: true}, StateActive},
		{"deleted wins", Task{Active: false, Paused: true}, StateDeleted},
		{"paused wins over snooze", Task{Active: true, Paused: true, SnoozedUntil: ptr(day("2024-03-20"))}, StatePaused},
		{"snoozed until tomorrow", Task{Active: true, SnoozedUntil: ptr(day("2024-03-11"))}, StateSnoozed},
		{"snoozed until today", Task{Active: true, SnoozedUntil: ptr(day("2024-03-10"))}, StateSnoozed},
		{"snooze expired", Task{Active: true, SnoozedUntil: ptr(day("2024-03-09"))}, StateActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.StateOn(today).Kind)
		})
	}

	snoozed := Task{Active: true, SnoozedUntil: ptr(time.Date(2024, 3, 12, 15, 0, 0, 0, time.UTC))}
	assert.Equal(t, day("2024-03-12"), snoozed.StateOn(today).Until)
}

func TestStatusOn(t *testing.T) {
	today := day("2024-03-10")
	base := Task{Active: true, NextDueDate: day("2024-03-10")}

	assert.Equal(t, StatusDuePending, base.StatusOn(today, nil))

	notYet := base
	notYet.NextDueDate = day("2024-03-11")
	assert.Equal(t, StatusNotDue, notYet.StatusOn(today, nil))

	lead := notYet
	lead.ReminderLeadTimeDays = ptr(1)
	assert.Equal(t, StatusDuePending, lead.StatusOn(today, nil))

	notified := base
	notified.LastNotifiedAt = ptr(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, StatusNotifiedToday, notified.StatusOn(today, nil))
	// Midnight rollover puts an unresolved task back to pending.
	assert.Equal(t, StatusDuePending, notified.StatusOn(day("2024-03-11"), nil))

	paused := base
	paused.Paused = true
	assert.Equal(t, StatusPaused, paused.StatusOn(today, nil))
}

func TestNotifiedOnUsesLocalDay(t *testing.T) {
	sydney := time.FixedZone("AEDT", 11*60*60)
	newYork := time.FixedZone("EST", -5*60*60)

	// 08:00 on Mar 5 in Sydney is still Mar 4 in UTC.
	morning := time.Date(2024, 3, 5, 8, 0, 0, 0, sydney).UTC()
	task := Task{Active: true, NextDueDate: day("2024-03-05"), LastNotifiedAt: &morning}
	assert.True(t, task.NotifiedOn(day("2024-03-05"), sydney))
	assert.False(t, task.NotifiedOn(day("2024-03-06"), sydney))
	assert.Equal(t, StatusNotifiedToday, task.StatusOn(day("2024-03-05"), sydney))

	// 21:00 on Mar 4 in New York is already Mar 5 in UTC.
	evening := time.Date(2024, 3, 4, 21, 0, 0, 0, newYork).UTC()
	task.LastNotifiedAt = &evening
	assert.True(t, task.NotifiedOn(day("2024-03-04"), newYork))
	assert.False(t, task.NotifiedOn(day("2024-03-05"), newYork))
	assert.Equal(t, StatusDuePending, task.StatusOn(day("2024-03-05"), newYork))
}

func TestEffectiveChannel(t *testing.T) {
	task := Task{Profile: Profile{NotifyVia: ChannelSMS}}
	assert.Equal(t, ChannelSMS, task.EffectiveChannel())

	task.NotifyVia = ptr(ChannelNone)
	assert.Equal(t, ChannelNone, task.EffectiveChannel())

	assert.Equal(t, ChannelEmail, Task{}.EffectiveChannel())
	assert.Equal(t, []Channel{ChannelEmail, ChannelSMS}, ChannelBoth.Targets())
	assert.Empty(t, ChannelNone.Targets())
}

func TestTaskRule(t *testing.T) {
	task := Task{
		FrequencyType:  recurrence.Weekly,
		FrequencyValue: 1,
		DayOfMonth:     ptr(3),
		DaysOfWeek:     []int{1, 5},
	}
	rule := task.Rule()
	assert.Equal(t, []time.Weekday{time.Monday, time.Friday}, rule.Weekdays)
	assert.Equal(t, 3, rule.DayOfMonth)
}
