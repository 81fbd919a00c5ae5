package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"task-reminder/internal/model"
	"task-reminder/internal/recurrence"
)

// TaskRepository is the task store.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// NotifyClaim conditionally stamps a task as notified for a run day.
type NotifyClaim struct {
	TaskID string
	Today  time.Time
	// Location is where Today is a calendar day. Nil means UTC.
	Location *time.Location
	// ExpectedNextDue is the due date seen at selection; a completion in
	// between invalidates the claim.
	ExpectedNextDue time.Time
	At              time.Time
}

// NotifyRelease undoes a claim whose deliveries all failed.
type NotifyRelease struct {
	TaskID    string
	StampedAt time.Time
	Previous  *time.Time
}

// NextDueUpdate advances a task after a completion. The Expected fields are
// the state the new due date was computed from.
type NextDueUpdate struct {
	TaskID          string
	NextDueDate     time.Time
	CompletedAt     time.Time
	CompletionToken string

	ExpectedNextDue       time.Time
	ExpectedLastCompleted *time.Time
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Omit("Profile").Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Update writes the user-editable fields of a task. Scheduling state is left
// alone.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND profile_id = ? AND active = ?", task.ID, task.ProfileID, true).
		Select("title", "description", "category", "frequency_type", "frequency_value",
			"day_of_month", "days_of_week", "start_date", "notify_via", "reminder_lead_time_days").
		Updates(task)
	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByID loads an active or deleted task with its owner. An empty
// profileID skips the ownership check.
func (r *TaskRepository) FindByID(ctx context.Context, profileID, taskID string) (*model.Task, error) {
	var task model.Task
	q := r.db.WithContext(ctx).Preload("Profile").Where("id = ?", taskID)
	if profileID != "" {
		q = q.Where("profile_id = ?", profileID)
	}
	if err := q.First(&task).Error; err != nil {
		return nil, notFound(err)
	}
	return &task, nil
}

// FindByCompletionToken resolves a reminder link to its active task.
func (r *TaskRepository) FindByCompletionToken(ctx context.Context, token string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Preload("Profile").
		Where("completion_token = ? AND active = ?", token, true).
		First(&task).Error; err != nil {
		return nil, notFound(err)
	}
	return &task, nil
}

// ListActive returns a profile's tasks ordered by due date.
func (r *TaskRepository) ListActive(ctx context.Context, profileID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Preload("Profile").
		Where("profile_id = ? AND active = ?", profileID, true).
		Order("next_due_date ASC").Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// FindDueCandidates returns tasks that may need a reminder on today, a
// calendar date in loc, in due order. It pre-filters in SQL with the widest
// reminder lead time, so callers still apply the exact eligibility check.
func (r *TaskRepository) FindDueCandidates(ctx context.Context, today time.Time, loc *time.Location) ([]model.Task, error) {
	today = recurrence.DateOf(today)
	horizon := recurrence.AddDays(today, model.MaxLeadTimeDays+1)
	dayStart := recurrence.StartOfDay(today, loc)

	var tasks []model.Task
	err := r.db.WithContext(ctx).Preload("Profile").
		Where("active = ? AND paused = ?", true, false).
		Where("(snoozed_until IS NULL OR snoozed_until < ?)", today).
		Where("next_due_date < ?", horizon).
		Where("(last_notified_at IS NULL OR last_notified_at < ?)", dayStart).
		Order("next_due_date ASC").Order("created_at ASC").Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("%w: find due candidates: %w", ErrStoreUnavailable, err)
	}
	return tasks, nil
}

// MarkNotified claims a task for today's run by stamping last_notified_at,
// but only while the task is still eligible and unstamped for the day. The
// day starts at local midnight in c.Location.
// Losing the claim returns ErrStaleTaskState.
func (r *TaskRepository) MarkNotified(ctx context.Context, c NotifyClaim) error {
	today := recurrence.DateOf(c.Today)
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND active = ? AND paused = ?", c.TaskID, true, false).
		Where("(snoozed_until IS NULL OR snoozed_until < ?)", today).
		Where("next_due_date = ?", c.ExpectedNextDue).
		Where("(last_notified_at IS NULL OR last_notified_at < ?)", recurrence.StartOfDay(today, c.Location)).
		Update("last_notified_at", c.At.UTC())
	if res.Error != nil {
		return fmt.Errorf("%w: mark notified: %w", ErrStoreUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleTaskState
	}
	return nil
}

// ReleaseNotified restores the previous stamp if ours is still in place.
func (r *TaskRepository) ReleaseNotified(ctx context.Context, rel NotifyRelease) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND last_notified_at = ?", rel.TaskID, rel.StampedAt).
		Update("last_notified_at", rel.Previous)
	if res.Error != nil {
		return fmt.Errorf("%w: release notified: %w", ErrStoreUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleTaskState
	}
	return nil
}

// UpdateNextDueDate moves a task to its next cycle if nobody else completed
// it since it was read.
func (r *TaskRepository) UpdateNextDueDate(ctx context.Context, u NextDueUpdate) error {
	q := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND next_due_date = ?", u.TaskID, u.ExpectedNextDue)
	if u.ExpectedLastCompleted == nil {
		q = q.Where("last_completed_at IS NULL")
	} else {
		q = q.Where("last_completed_at = ?", *u.ExpectedLastCompleted)
	}

	updates := map[string]interface{}{
		"next_due_date":     recurrence.DateOf(u.NextDueDate),
		"last_completed_at": u.CompletedAt,
	}
	if u.CompletionToken != "" {
		updates["completion_token"] = u.CompletionToken
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update next due date: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleTaskState
	}
	return nil
}

// SetPaused flips the administrative pause flag.
func (r *TaskRepository) SetPaused(ctx context.Context, profileID, taskID string, paused bool) error {
	return r.updateOwned(ctx, profileID, taskID, map[string]interface{}{"paused": paused})
}

// SetSnoozedUntil sets or clears (nil) the snooze date.
func (r *TaskRepository) SetSnoozedUntil(ctx context.Context, profileID, taskID string, until *time.Time) error {
	return r.updateOwned(ctx, profileID, taskID, map[string]interface{}{"snoozed_until": until})
}

// SoftDelete clears the active flag. History rows are kept.
func (r *TaskRepository) SoftDelete(ctx context.Context, profileID, taskID string) error {
	return r.updateOwned(ctx, profileID, taskID, map[string]interface{}{"active": false})
}

func (r *TaskRepository) updateOwned(ctx context.Context, profileID, taskID string, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND profile_id = ? AND active = ?", taskID, profileID, true).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update task %s: %w", taskID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
