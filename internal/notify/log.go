package notify

import (
	"context"

	"github.com/charmbracelet/log"

	"task-reminder/internal/model"
)

// LogSender writes batches to the log instead of delivering them. It stands
// in for a channel whose transport is not configured.
type LogSender struct {
	channel  model.Channel
	renderer Renderer
	logger   *log.Logger
}

func NewLogSender(channel model.Channel, renderer Renderer, logger *log.Logger) *LogSender {
	return &LogSender{channel: channel, renderer: renderer, logger: logger}
}

func (s *LogSender) Channel() model.Channel {
	return s.channel
}

func (s *LogSender) Address(p model.Profile) string {
	return defaultAddress(s.channel, p)
}

func (s *LogSender) Send(ctx context.Context, b Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info("dry-run delivery",
		"channel", s.channel,
		"to", b.Recipient.Address,
		"tasks", len(b.Tasks),
		"message", s.renderer.ShortText(b))
	return nil
}
