package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"task-reminder/internal/model"
	"task-reminder/internal/repository"
)

// ProfileInput carries onboarding details for a user.
type ProfileInput struct {
	ID        string
	Email     string
	Phone     string
	NotifyVia model.Channel
}

// ProfileService manages contact details and the default channel.
type ProfileService struct {
	repo *repository.ProfileRepository
}

func NewProfileService(repo *repository.ProfileRepository) *ProfileService {
	return &ProfileService{repo: repo}
}

// Save creates or updates the profile with the given id.
func (s *ProfileService) Save(ctx context.Context, input ProfileInput) (*model.Profile, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email %q", ErrValidation, email)
	}
	channel := input.NotifyVia
	if channel == "" {
		channel = model.ChannelEmail
	}
	if !channel.Valid() {
		return nil, fmt.Errorf("%w: unknown channel %q", ErrValidation, channel)
	}

	profile := &model.Profile{
		ID:        strings.TrimSpace(input.ID),
		Email:     email,
		Phone:     strings.TrimSpace(input.Phone),
		NotifyVia: channel,
	}
	if err := s.repo.Upsert(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *ProfileService) Get(ctx context.Context, id string) (*model.Profile, error) {
	return s.repo.FindByID(ctx, id)
}

// LinkTelegram binds a chat to the profile registered under email.
func (s *ProfileService) LinkTelegram(ctx context.Context, email string, chatID int64) (*model.Profile, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	return s.repo.LinkTelegram(ctx, email, chatID)
}

// FindByTelegramChat returns the profile linked to a chat.
func (s *ProfileService) FindByTelegramChat(ctx context.Context, chatID int64) (*model.Profile, error) {
	return s.repo.FindByTelegramChatID(ctx, chatID)
}
