package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"task-reminder/internal/model"
)

// CompletionRepository is the append-only completion log.
type CompletionRepository struct {
	db *gorm.DB
}

func NewCompletionRepository(db *gorm.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

// RecordCompletion appends a completion event.
func (r *CompletionRepository) RecordCompletion(ctx context.Context, c *model.Completion) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("record completion: %w", err)
	}
	return nil
}

// ListByTask returns completions newest first.
func (r *CompletionRepository) ListByTask(ctx context.Context, taskID string) ([]model.Completion, error) {
	var completions []model.Completion
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).
		Order("completed_at DESC").
		Find(&completions).Error; err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return completions, nil
}

// Delete removes one completion owned by the profile. The task's schedule
// is not recomputed.
func (r *CompletionRepository) Delete(ctx context.Context, profileID, completionID string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND profile_id = ?", completionID, profileID).
		Delete(&model.Completion{})
	if res.Error != nil {
		return fmt.Errorf("delete completion: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// PauseRepository keeps the pause/resume history of tasks.
type PauseRepository struct {
	db *gorm.DB
}

func NewPauseRepository(db *gorm.DB) *PauseRepository {
	return &PauseRepository{db: db}
}

func (r *PauseRepository) Create(ctx context.Context, p *model.TaskPause) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("record pause: %w", err)
	}
	return nil
}

// CloseLatest stamps the newest open pause of a task as resumed.
func (r *PauseRepository) CloseLatest(ctx context.Context, taskID string, at time.Time) error {
	var open model.TaskPause
	db := r.db.WithContext(ctx)
	if err := db.Where("task_id = ? AND resumed_at IS NULL", taskID).
		Order("paused_at DESC").
		First(&open).Error; err != nil {
		return notFound(err)
	}
	if err := db.Model(&open).Update("resumed_at", at).Error; err != nil {
		return fmt.Errorf("record resume: %w", err)
	}
	return nil
}

// ListByTask returns pauses newest first.
func (r *PauseRepository) ListByTask(ctx context.Context, taskID string) ([]model.TaskPause, error) {
	var pauses []model.TaskPause
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).
		Order("paused_at DESC").
		Find(&pauses).Error; err != nil {
		return nil, fmt.Errorf("list pauses: %w", err)
	}
	return pauses, nil
}
