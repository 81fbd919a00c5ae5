package service

import (
	"context"
	"time"

	"task-reminder/internal/model"
	"task-reminder/internal/recurrence"
)

// CandidateStore yields tasks that might need a reminder on a day.
type CandidateStore interface {
	FindDueCandidates(ctx context.Context, today time.Time, loc *time.Location) ([]model.Task, error)
}

// DueTaskSelector picks the tasks that are owed a reminder today. Days are
// calendar days in its location.
type DueTaskSelector struct {
	store    CandidateStore
	location *time.Location
}

func NewDueTaskSelector(store CandidateStore, loc *time.Location) *DueTaskSelector {
	if loc == nil {
		loc = time.UTC
	}
	return &DueTaskSelector{store: store, location: loc}
}

// Select returns the tasks pending a reminder on today, keeping the store's
// due-date order. Store failures are returned as is.
func (s *DueTaskSelector) Select(ctx context.Context, today time.Time) ([]model.Task, error) {
	today = recurrence.DateOf(today)
	candidates, err := s.store.FindDueCandidates(ctx, today, s.location)
	if err != nil {
		return nil, err
	}

	due := make([]model.Task, 0, len(candidates))
	for _, task := range candidates {
		if task.StatusOn(today, s.location) == model.StatusDuePending {
			due = append(due, task)
		}
	}
	return due, nil
}
