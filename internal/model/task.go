package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"task-reminder/internal/recurrence"
)

// MaxLeadTimeDays bounds how early a reminder may start before the due date.
const MaxLeadTimeDays = 30

// Task is a recurring obligation owned by a profile.
type Task struct {
	ID          string `gorm:"primaryKey;size:36"`
	ProfileID   string `gorm:"index;size:36;not null"`
	Profile     Profile
	Title       string `gorm:"not null"`
	Description string
	Category    Category `gorm:"size:16"`

	FrequencyType  recurrence.Frequency `gorm:"size:16;not null"`
	FrequencyValue int                  `gorm:"not null"`
	DayOfMonth     *int
	DaysOfWeek     datatypes.JSONSlice[int]

	StartDate       time.Time `gorm:"not null"`
	NextDueDate     time.Time `gorm:"index;not null"`
	LastCompletedAt *time.Time
	LastNotifiedAt  *time.Time

	// ReminderLeadTimeDays starts reminders this many days before the due date.
	ReminderLeadTimeDays *int

	Active       bool `gorm:"index;not null"`
	Paused       bool `gorm:"not null"`
	SnoozedUntil *time.Time

	// NotifyVia overrides the profile preference when set.
	NotifyVia *Channel `gorm:"size:8"`

	CompletionToken string `gorm:"uniqueIndex;size:36"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CompletionToken == "" {
		t.CompletionToken = uuid.NewString()
	}
	return nil
}

// Rule returns the task's recurrence configuration.
func (t Task) Rule() recurrence.Rule {
	r := recurrence.Rule{
		Frequency: t.FrequencyType,
		Interval:  t.FrequencyValue,
	}
	if t.DayOfMonth != nil {
		r.DayOfMonth = *t.DayOfMonth
	}
	for _, d := range t.DaysOfWeek {
		r.Weekdays = append(r.Weekdays, time.Weekday(d))
	}
	return r
}

// EffectiveChannel resolves the task override against the owner's default.
func (t Task) EffectiveChannel() Channel {
	if t.NotifyVia != nil && *t.NotifyVia != "" {
		return *t.NotifyVia
	}
	if t.Profile.NotifyVia != "" {
		return t.Profile.NotifyVia
	}
	return ChannelEmail
}

// RemindFrom is the first day a reminder may go out for the current cycle.
func (t Task) RemindFrom() time.Time {
	due := recurrence.DateOf(t.NextDueDate)
	if t.ReminderLeadTimeDays == nil || *t.ReminderLeadTimeDays <= 0 {
		return due
	}
	return recurrence.AddDays(due, -*t.ReminderLeadTimeDays)
}

// NotifiedOn reports whether a reminder was already stamped on day, where
// day is a calendar date in loc.
func (t Task) NotifiedOn(day time.Time, loc *time.Location) bool {
	if t.LastNotifiedAt == nil {
		return false
	}
	return !t.LastNotifiedAt.Before(recurrence.StartOfDay(day, loc))
}
