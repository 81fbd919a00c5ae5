package service

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"task-reminder/internal/config"
	"task-reminder/internal/model"
	"task-reminder/internal/notify"
	"task-reminder/internal/recurrence"
	"task-reminder/internal/repository"
)

// NotifyStore is the part of the task store a dispatch run writes to.
type NotifyStore interface {
	CandidateStore
	MarkNotified(ctx context.Context, c repository.NotifyClaim) error
	ReleaseNotified(ctx context.Context, rel repository.NotifyRelease) error
}

// DispatchSummary reports the outcome of one run.
type DispatchSummary struct {
	TasksProcessed      int       `json:"tasksProcessed"`
	NotificationsSent   int       `json:"notificationsSent"`
	NotificationsFailed int       `json:"notificationsFailed"`
	RecipientsNotified  int       `json:"recipientsNotified"`
	Skipped             int       `json:"skipped"`
	Timestamp           time.Time `json:"timestamp"`
	Failures            []string  `json:"failures,omitempty"`
}

// Dispatcher groups due tasks per recipient and hands each group to the
// matching sender.
type Dispatcher struct {
	selector *DueTaskSelector
	store    NotifyStore
	senders  map[model.Channel]notify.Sender
	policy   config.StampPolicy
	limiter  *rate.Limiter
	location *time.Location
	logger   *log.Logger
	now      func() time.Time
}

// NewDispatcher builds a dispatcher. A nil limiter sends without pacing. Run
// dates are calendar days in loc; nil means UTC.
func NewDispatcher(store NotifyStore, senders []notify.Sender, policy config.StampPolicy, limiter *rate.Limiter, loc *time.Location, logger *log.Logger) *Dispatcher {
	byChannel := make(map[model.Channel]notify.Sender, len(senders))
	for _, s := range senders {
		byChannel[s.Channel()] = s
	}
	if policy == "" {
		policy = config.StampOnSuccess
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{
		selector: NewDueTaskSelector(store, loc),
		store:    store,
		senders:  byChannel,
		policy:   policy,
		limiter:  limiter,
		location: loc,
		logger:   logger,
		now:      time.Now,
	}
}

type claimedTask struct {
	task      model.Task
	delivered bool
}

type batchKey struct {
	channel model.Channel
	address string
}

type pendingBatch struct {
	batch  notify.Batch
	claims []*claimedTask
}

// Run sends today's reminders. Only a failure to read the candidate set
// aborts the run; everything else is recorded in the summary.
func (d *Dispatcher) Run(ctx context.Context, today time.Time) (DispatchSummary, error) {
	today = recurrence.DateOf(today)
	now := d.now().UTC().Truncate(time.Second)
	summary := DispatchSummary{Timestamp: now}

	tasks, err := d.selector.Select(ctx, today)
	if err != nil {
		d.logger.Error("select due tasks", "date", today.Format(recurrence.DateLayout), "err", err)
		return summary, err
	}
	d.logger.Info("dispatch started", "date", today.Format(recurrence.DateLayout), "due", len(tasks))

	var (
		claimed []*claimedTask
		order   []batchKey
		batches = make(map[batchKey]*pendingBatch)
	)

	for _, task := range tasks {
		targets := d.targets(task)
		if len(targets) == 0 {
			summary.Skipped++
			continue
		}

		err := d.store.MarkNotified(ctx, repository.NotifyClaim{
			TaskID:          task.ID,
			Today:           today,
			Location:        d.location,
			ExpectedNextDue: task.NextDueDate,
			At:              now,
		})
		if err != nil {
			summary.Skipped++
			if !errors.Is(err, repository.ErrStaleTaskState) {
				summary.Failures = append(summary.Failures, err.Error())
				d.logger.Error("claim task", "task", task.ID, "err", err)
			}
			continue
		}

		c := &claimedTask{task: task}
		claimed = append(claimed, c)
		for _, r := range targets {
			key := batchKey{channel: r.Channel, address: r.Address}
			b, ok := batches[key]
			if !ok {
				b = &pendingBatch{batch: notify.Batch{Recipient: r, Date: today}}
				batches[key] = b
				order = append(order, key)
			}
			b.batch.Tasks = append(b.batch.Tasks, task)
			b.claims = append(b.claims, c)
		}
	}
	summary.TasksProcessed = len(claimed)

	notified := make(map[string]bool)
	for _, key := range order {
		b := batches[key]
		if err := d.send(ctx, b.batch); err != nil {
			summary.NotificationsFailed++
			summary.Failures = append(summary.Failures, err.Error())
			d.logger.Warn("delivery failed", "to", b.batch.Recipient, "tasks", len(b.batch.Tasks), "err", err)
			continue
		}
		summary.NotificationsSent++
		notified[b.batch.Recipient.ProfileID] = true
		for _, c := range b.claims {
			c.delivered = true
		}
		d.logger.Debug("delivered", "to", b.batch.Recipient, "tasks", len(b.batch.Tasks))
	}
	summary.RecipientsNotified = len(notified)

	if d.policy == config.StampOnSuccess {
		d.releaseUndelivered(ctx, claimed, now)
	}

	d.logger.Info("dispatch finished",
		"date", today.Format(recurrence.DateLayout),
		"processed", summary.TasksProcessed,
		"sent", summary.NotificationsSent,
		"failed", summary.NotificationsFailed,
		"skipped", summary.Skipped)
	return summary, nil
}

// targets resolves where a task's reminder goes. Channels without a sender or
// without an address on the profile are dropped.
func (d *Dispatcher) targets(task model.Task) []notify.Recipient {
	var out []notify.Recipient
	for _, ch := range task.EffectiveChannel().Targets() {
		sender, ok := d.senders[ch]
		if !ok {
			continue
		}
		addr := sender.Address(task.Profile)
		if addr == "" {
			continue
		}
		out = append(out, notify.Recipient{ProfileID: task.ProfileID, Channel: ch, Address: addr})
	}
	return out
}

func (d *Dispatcher) send(ctx context.Context, b notify.Batch) error {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return &notify.DeliveryError{Recipient: b.Recipient, Err: err}
		}
	}
	if err := d.senders[b.Recipient.Channel].Send(ctx, b); err != nil {
		return &notify.DeliveryError{Recipient: b.Recipient, Err: err}
	}
	return nil
}

// releaseUndelivered hands claims back so the tasks stay eligible today.
func (d *Dispatcher) releaseUndelivered(ctx context.Context, claimed []*claimedTask, stampedAt time.Time) {
	for _, c := range claimed {
		if c.delivered {
			continue
		}
		err := d.store.ReleaseNotified(context.WithoutCancel(ctx), repository.NotifyRelease{
			TaskID:    c.task.ID,
			StampedAt: stampedAt,
			Previous:  c.task.LastNotifiedAt,
		})
		if err != nil {
			d.logger.Warn("release claim", "task", c.task.ID, "err", err)
		}
	}
}
