package model

import (
	"time"

	"task-reminder/internal/recurrence"
)

// StateKind is the lifecycle gate of a task.
type StateKind int

const (
	StateActive StateKind = iota
	StatePaused
	StateSnoozed
	StateDeleted
)

func (k StateKind) String() string {
	switch k {
	case StateActive:
		return "active"
	case StatePaused:
		return "paused"
	case StateSnoozed:
		return "snoozed"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// State is the tagged lifecycle state of a task on a given day. Until is set
// only for StateSnoozed.
type State struct {
	Kind  StateKind
	Until time.Time
}

// StateOn folds the stored flags into a single state. Deleted wins over
// paused, paused over snoozed. A snooze lasts through its until date.
func (t Task) StateOn(today time.Time) State {
	switch {
	case !t.Active:
		return State{Kind: StateDeleted}
	case t.Paused:
		return State{Kind: StatePaused}
	case t.SnoozedUntil != nil && !recurrence.DateOf(*t.SnoozedUntil).Before(recurrence.DateOf(today)):
		return State{Kind: StateSnoozed, Until: recurrence.DateOf(*t.SnoozedUntil)}
	default:
		return State{Kind: StateActive}
	}
}

// NotificationStatus is the reminder progress of a task within a day.
type NotificationStatus string

const (
	StatusNotDue        NotificationStatus = "not_due"
	StatusDuePending    NotificationStatus = "due_pending"
	StatusNotifiedToday NotificationStatus = "notified_today"
	StatusPaused        NotificationStatus = "paused"
	StatusSnoozed       NotificationStatus = "snoozed"
	StatusDeleted       NotificationStatus = "deleted"
)

// StatusOn reports where the task sits in the reminder cycle on today, a
// calendar date in loc. Suspensions overlay the date-driven states.
func (t Task) StatusOn(today time.Time, loc *time.Location) NotificationStatus {
	switch t.StateOn(today).Kind {
	case StateDeleted:
		return StatusDeleted
	case StatePaused:
		return StatusPaused
	case StateSnoozed:
		return StatusSnoozed
	}
	switch {
	case t.RemindFrom().After(recurrence.DateOf(today)):
		return StatusNotDue
	case t.NotifiedOn(today, loc):
		return StatusNotifiedToday
	default:
		return StatusDuePending
	}
}
