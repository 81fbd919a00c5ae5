package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"task-reminder/internal/model"
	"task-reminder/internal/recurrence"
	"task-reminder/internal/repository"
)

// ErrValidation is returned for rejected user input.
var ErrValidation = errors.New("validation failed")

const (
	maxTitleLen       = 100
	maxDescriptionLen = 500
	maxFrequencyValue = 365
)

// TaskInput represents data required to create or edit a task.
type TaskInput struct {
	Title                string
	Description          string
	Category             model.Category
	FrequencyType        recurrence.Frequency
	FrequencyValue       int
	DayOfMonth           *int
	DaysOfWeek           []int
	StartDate            time.Time
	ReminderLeadTimeDays *int
	NotifyVia            *model.Channel
}

// Validate checks field bounds and the recurrence rule.
func (in TaskInput) Validate() error {
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return fmt.Errorf("%w: title is required", ErrValidation)
	case utf8.RuneCountInString(title) > maxTitleLen:
		return fmt.Errorf("%w: title must be at most %d characters", ErrValidation, maxTitleLen)
	case strings.IndexFunc(title, unicode.IsControl) >= 0:
		return fmt.Errorf("%w: title must not contain control characters", ErrValidation)
	case utf8.RuneCountInString(in.Description) > maxDescriptionLen:
		return fmt.Errorf("%w: description must be at most %d characters", ErrValidation, maxDescriptionLen)
	case in.Category != "" && !in.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", ErrValidation, in.Category)
	case in.FrequencyValue > maxFrequencyValue:
		return fmt.Errorf("%w: frequency value must be at most %d", ErrValidation, maxFrequencyValue)
	case in.StartDate.IsZero():
		return fmt.Errorf("%w: start date is required", ErrValidation)
	case in.NotifyVia != nil && !in.NotifyVia.Valid():
		return fmt.Errorf("%w: unknown channel %q", ErrValidation, *in.NotifyVia)
	case in.ReminderLeadTimeDays != nil && (*in.ReminderLeadTimeDays < 0 || *in.ReminderLeadTimeDays > model.MaxLeadTimeDays):
		return fmt.Errorf("%w: reminder lead time must be between 0 and %d days", ErrValidation, model.MaxLeadTimeDays)
	}
	if in.DayOfMonth != nil && *in.DayOfMonth == 0 {
		return fmt.Errorf("%w: day of month must be between 1 and 31", recurrence.ErrInvalidRule)
	}
	if _, err := recurrence.ParseWeekdays(in.DaysOfWeek); err != nil {
		return err
	}
	return in.apply(&model.Task{}).Rule().Validate()
}

// apply copies the input onto task, normalizing dates and the rule fields that
// do not belong to the chosen frequency.
func (in TaskInput) apply(task *model.Task) *model.Task {
	task.Title = strings.TrimSpace(in.Title)
	task.Description = strings.TrimSpace(in.Description)
	task.Category = in.Category
	if task.Category == "" {
		task.Category = model.CategoryOther
	}
	task.FrequencyType = in.FrequencyType
	task.FrequencyValue = in.FrequencyValue
	task.DayOfMonth = nil
	task.DaysOfWeek = nil
	switch in.FrequencyType {
	case recurrence.Monthly:
		task.DayOfMonth = in.DayOfMonth
	case recurrence.Weekly:
		if weekdays, err := recurrence.ParseWeekdays(in.DaysOfWeek); err == nil {
			for _, wd := range weekdays {
				task.DaysOfWeek = append(task.DaysOfWeek, int(wd))
			}
		}
	}
	task.StartDate = recurrence.DateOf(in.StartDate)
	task.ReminderLeadTimeDays = in.ReminderLeadTimeDays
	task.NotifyVia = in.NotifyVia
	return task
}

// TaskService wraps task-related business logic. Completion dates and
// reminder days are read in its location.
type TaskService struct {
	store    *repository.Store
	location *time.Location
	logger   *log.Logger
}

func NewTaskService(store *repository.Store, loc *time.Location, logger *log.Logger) *TaskService {
	if loc == nil {
		loc = time.UTC
	}
	return &TaskService{store: store, location: loc, logger: logger}
}

// CreateTask stores a new task due first on its start date.
func (s *TaskService) CreateTask(ctx context.Context, profileID string, input TaskInput) (*model.Task, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.Profiles.FindByID(ctx, profileID); err != nil {
		return nil, err
	}

	task := input.apply(&model.Task{ProfileID: profileID, Active: true})
	task.NextDueDate = task.StartDate
	if err := s.store.Tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	return s.store.Tasks.FindByID(ctx, profileID, task.ID)
}

// UpdateTask edits a task. The due date is left where it is; the new rule
// takes effect on the next completion. The start date never changes.
func (s *TaskService) UpdateTask(ctx context.Context, profileID, taskID string, input TaskInput) (*model.Task, error) {
	task, err := s.activeTask(ctx, profileID, taskID)
	if err != nil {
		return nil, err
	}
	input.StartDate = task.StartDate
	if err := input.Validate(); err != nil {
		return nil, err
	}

	input.apply(task)
	if err := s.store.Tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return s.store.Tasks.FindByID(ctx, profileID, taskID)
}

func (s *TaskService) GetTask(ctx context.Context, profileID, taskID string) (*model.Task, error) {
	return s.activeTask(ctx, profileID, taskID)
}

func (s *TaskService) ListActive(ctx context.Context, profileID string) ([]model.Task, error) {
	return s.store.Tasks.ListActive(ctx, profileID)
}

// CompleteTask records a completion at completedAt, which may lie in the past,
// and moves the task to its next due date. A concurrent completion of the
// same task makes this one fail with ErrStaleTaskState.
func (s *TaskService) CompleteTask(ctx context.Context, profileID, taskID string, completedAt time.Time, notes *string) (*model.Task, error) {
	task, err := s.activeTask(ctx, profileID, taskID)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, task, completedAt, notes)
}

// CompleteByToken completes the task a reminder link points at. Tokens are
// rotated on every completion, so a link works once.
func (s *TaskService) CompleteByToken(ctx context.Context, token string, completedAt time.Time) (*model.Task, error) {
	if strings.TrimSpace(token) == "" {
		return nil, repository.ErrNotFound
	}
	task, err := s.store.Tasks.FindByCompletionToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, task, completedAt, nil)
}

func (s *TaskService) complete(ctx context.Context, task *model.Task, completedAt time.Time, notes *string) (*model.Task, error) {
	completedAt = completedAt.UTC().Truncate(time.Second)
	next, err := recurrence.Next(task.Rule(), recurrence.DateOf(completedAt.In(s.location)))
	if err != nil {
		return nil, fmt.Errorf("compute next due date for task %s: %w", task.ID, err)
	}

	if notes != nil {
		trimmed := strings.TrimSpace(*notes)
		notes = &trimmed
		if trimmed == "" {
			notes = nil
		}
	}

	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		if err := tx.Completions.RecordCompletion(ctx, &model.Completion{
			TaskID:      task.ID,
			ProfileID:   task.ProfileID,
			CompletedAt: completedAt,
			Notes:       notes,
		}); err != nil {
			return err
		}
		return tx.Tasks.UpdateNextDueDate(ctx, repository.NextDueUpdate{
			TaskID:                task.ID,
			NextDueDate:           next,
			CompletedAt:           completedAt,
			CompletionToken:       uuid.NewString(),
			ExpectedNextDue:       task.NextDueDate,
			ExpectedLastCompleted: task.LastCompletedAt,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task completed", "task", task.ID, "completed_at", completedAt, "next_due", next.Format(recurrence.DateLayout))
	return s.store.Tasks.FindByID(ctx, task.ProfileID, task.ID)
}

// Snooze suppresses reminders through until.
func (s *TaskService) Snooze(ctx context.Context, profileID, taskID string, until time.Time) (*model.Task, error) {
	if until.IsZero() {
		return nil, fmt.Errorf("%w: snooze date is required", ErrValidation)
	}
	day := recurrence.DateOf(until)
	if err := s.store.Tasks.SetSnoozedUntil(ctx, profileID, taskID, &day); err != nil {
		return nil, err
	}
	return s.store.Tasks.FindByID(ctx, profileID, taskID)
}

func (s *TaskService) Unsnooze(ctx context.Context, profileID, taskID string) (*model.Task, error) {
	if err := s.store.Tasks.SetSnoozedUntil(ctx, profileID, taskID, nil); err != nil {
		return nil, err
	}
	return s.store.Tasks.FindByID(ctx, profileID, taskID)
}

// Pause stops reminders until Resume. The pause history entry is best effort.
func (s *TaskService) Pause(ctx context.Context, profileID, taskID string, reason *string) (*model.Task, error) {
	task, err := s.activeTask(ctx, profileID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Paused {
		return task, nil
	}
	if err := s.store.Tasks.SetPaused(ctx, profileID, taskID, true); err != nil {
		return nil, err
	}

	if err := s.store.Pauses.Create(ctx, &model.TaskPause{
		TaskID:    taskID,
		ProfileID: profileID,
		PausedAt:  time.Now().UTC().Truncate(time.Second),
		Reason:    reason,
	}); err != nil {
		s.logger.Warn("record pause history", "task", taskID, "err", err)
	}
	return s.store.Tasks.FindByID(ctx, profileID, taskID)
}

func (s *TaskService) Resume(ctx context.Context, profileID, taskID string) (*model.Task, error) {
	task, err := s.activeTask(ctx, profileID, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Paused {
		return task, nil
	}
	if err := s.store.Tasks.SetPaused(ctx, profileID, taskID, false); err != nil {
		return nil, err
	}

	if err := s.store.Pauses.CloseLatest(ctx, taskID, time.Now().UTC().Truncate(time.Second)); err != nil {
		s.logger.Warn("close pause history", "task", taskID, "err", err)
	}
	return s.store.Tasks.FindByID(ctx, profileID, taskID)
}

// DeleteTask hides a task. Its completions and pauses stay on record.
func (s *TaskService) DeleteTask(ctx context.Context, profileID, taskID string) error {
	return s.store.Tasks.SoftDelete(ctx, profileID, taskID)
}

// DeleteCompletion removes a completion record. The task's due date is not
// recomputed.
func (s *TaskService) DeleteCompletion(ctx context.Context, profileID, completionID string) error {
	return s.store.Completions.Delete(ctx, profileID, completionID)
}

// TaskHistory is everything recorded about one task.
type TaskHistory struct {
	Task        model.Task
	Completions []model.Completion
	Pauses      []model.TaskPause
	Stats       CompletionStats
}

func (s *TaskService) History(ctx context.Context, profileID, taskID string, today time.Time) (*TaskHistory, error) {
	task, err := s.store.Tasks.FindByID(ctx, profileID, taskID)
	if err != nil {
		return nil, err
	}
	completions, err := s.store.Completions.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	pauses, err := s.store.Pauses.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &TaskHistory{
		Task:        *task,
		Completions: completions,
		Pauses:      pauses,
		Stats:       ComputeStats(*task, len(completions), today),
	}, nil
}

// DashboardEntry is a task with its reminder status for the day.
type DashboardEntry struct {
	Task   model.Task
	Status model.NotificationStatus
}

// Dashboard buckets a profile's tasks by due date relative to today.
type Dashboard struct {
	Date     time.Time
	Overdue  []DashboardEntry
	DueToday []DashboardEntry
	Upcoming []DashboardEntry
}

// Dashboard lists due tasks regardless of their notification channel.
func (s *TaskService) Dashboard(ctx context.Context, profileID string, today time.Time) (*Dashboard, error) {
	today = recurrence.DateOf(today)
	tasks, err := s.store.Tasks.ListActive(ctx, profileID)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{Date: today}
	for _, task := range tasks {
		entry := DashboardEntry{Task: task, Status: task.StatusOn(today, s.location)}
		due := recurrence.DateOf(task.NextDueDate)
		switch {
		case due.Before(today):
			d.Overdue = append(d.Overdue, entry)
		case due.Equal(today):
			d.DueToday = append(d.DueToday, entry)
		default:
			d.Upcoming = append(d.Upcoming, entry)
		}
	}
	return d, nil
}

func (s *TaskService) activeTask(ctx context.Context, profileID, taskID string) (*model.Task, error) {
	task, err := s.store.Tasks.FindByID(ctx, profileID, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Active {
		return nil, repository.ErrNotFound
	}
	return task, nil
}
