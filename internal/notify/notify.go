// Package notify delivers reminder batches over email and short-message
// transports.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"task-reminder/internal/model"
)

// ErrDelivery marks a transport failure for one recipient.
var ErrDelivery = errors.New("delivery failed")

// Recipient is one address on one transport.
type Recipient struct {
	ProfileID string
	Channel   model.Channel
	Address   string
}

func (r Recipient) String() string {
	return fmt.Sprintf("%s:%s", r.Channel, r.Address)
}

// Batch is everything one recipient hears about in a run: one message, many
// tasks.
type Batch struct {
	Recipient Recipient
	Date      time.Time
	Tasks     []model.Task
}

// Sender is a delivery transport for a single channel.
type Sender interface {
	Channel() model.Channel
	// Address returns where the profile is reached on this channel, or ""
	// when it cannot be reached.
	Address(p model.Profile) string
	Send(ctx context.Context, b Batch) error
}

// DeliveryError reports a failed send to a recipient.
type DeliveryError struct {
	Recipient Recipient
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() []error {
	return []error{ErrDelivery, e.Err}
}

// Recorder is an in-memory Sender for tests and dry runs.
type Recorder struct {
	channel model.Channel
	mu      sync.Mutex
	sent    []Batch
	// Fail, when set, decides per batch whether the send fails.
	Fail func(Batch) error
}

func NewRecorder(channel model.Channel) *Recorder {
	return &Recorder{channel: channel}
}

func (r *Recorder) Channel() model.Channel {
	return r.channel
}

func (r *Recorder) Address(p model.Profile) string {
	return defaultAddress(r.channel, p)
}

func (r *Recorder) Send(_ context.Context, b Batch) error {
	if r.Fail != nil {
		if err := r.Fail(b); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, b)
	return nil
}

// Sent returns a copy of all delivered batches.
func (r *Recorder) Sent() []Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Batch, len(r.sent))
	copy(out, r.sent)
	return out
}

func defaultAddress(channel model.Channel, p model.Profile) string {
	switch channel {
	case model.ChannelEmail:
		return p.Email
	case model.ChannelSMS:
		return p.Phone
	default:
		return ""
	}
}
