package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Channel is how a reminder reaches its recipient.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelBoth  Channel = "both"
	ChannelNone  Channel = "none"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelBoth, ChannelNone:
		return true
	}
	return false
}

// Targets expands a preference into the concrete transports it covers.
func (c Channel) Targets() []Channel {
	switch c {
	case ChannelEmail:
		return []Channel{ChannelEmail}
	case ChannelSMS:
		return []Channel{ChannelSMS}
	case ChannelBoth:
		return []Channel{ChannelEmail, ChannelSMS}
	default:
		return nil
	}
}

// Profile stores one user's contact details and default notification channel.
type Profile struct {
	ID             string `gorm:"primaryKey;size:36"`
	Email          string `gorm:"uniqueIndex;not null"`
	Phone          string
	TelegramChatID int64   `gorm:"index"`
	NotifyVia      Channel `gorm:"size:8"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (p *Profile) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
