package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Completion is an append-only record of a task being done.
type Completion struct {
	ID          string    `gorm:"primaryKey;size:36"`
	TaskID      string    `gorm:"index;size:36;not null"`
	ProfileID   string    `gorm:"index;size:36;not null"`
	CompletedAt time.Time `gorm:"index;not null"`
	Notes       *string
	CreatedAt   time.Time
}

func (c *Completion) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// TaskPause records one pause/resume interval. It is history only; the
// scheduler never reads it.
type TaskPause struct {
	ID        string    `gorm:"primaryKey;size:36"`
	TaskID    string    `gorm:"index;size:36;not null"`
	ProfileID string    `gorm:"index;size:36;not null"`
	PausedAt  time.Time `gorm:"not null"`
	ResumedAt *time.Time
	Reason    *string
	CreatedAt time.Time
}

func (p *TaskPause) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
