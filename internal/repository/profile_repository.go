package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"task-reminder/internal/model"
)

// ProfileRepository handles CRUD for profiles.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Upsert creates the profile or updates its contact details and default
// channel. The Telegram link is kept unless a new chat id is given.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *model.Profile) error {
	var existing model.Profile
	db := r.db.WithContext(ctx)
	err := db.Where("id = ?", profile.ID).First(&existing).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"email":      profile.Email,
			"phone":      profile.Phone,
			"notify_via": profile.NotifyVia,
		}
		if profile.TelegramChatID != 0 {
			updates["telegram_chat_id"] = profile.TelegramChatID
		}
		if err := db.Model(&existing).Updates(updates).Error; err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		return db.First(profile, "id = ?", profile.ID).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := db.Create(profile).Error; err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("find profile: %w", err)
	}
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (r *ProfileRepository) FindByEmail(ctx context.Context, email string) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&profile).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (r *ProfileRepository) FindByTelegramChatID(ctx context.Context, chatID int64) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.WithContext(ctx).Where("telegram_chat_id = ?", chatID).First(&profile).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

// LinkTelegram attaches a chat to the profile registered under email.
func (r *ProfileRepository) LinkTelegram(ctx context.Context, email string, chatID int64) (*model.Profile, error) {
	profile, err := r.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(profile).Update("telegram_chat_id", chatID).Error; err != nil {
		return nil, fmt.Errorf("link telegram: %w", err)
	}
	profile.TelegramChatID = chatID
	return profile, nil
}
