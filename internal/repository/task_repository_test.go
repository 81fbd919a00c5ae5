package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-reminder/internal/logger"
	"task-reminder/internal/model"
	"task-reminder/internal/recurrence"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), logger.Discard())
	require.NoError(t, err)
	store := NewStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := recurrence.ParseDate(s)
	require.NoError(t, err)
	return d
}

func seedProfile(t *testing.T, s *Store, email string) *model.Profile {
	t.Helper()
	p := &model.Profile{Email: email, NotifyVia: model.ChannelEmail}
	require.NoError(t, s.Profiles.Upsert(context.Background(), p))
	return p
}

func seedTask(t *testing.T, s *Store, p *model.Profile, title string, due time.Time, mutate ...func(*model.Task)) *model.Task {
	t.Helper()
	task := &model.Task{
		ProfileID:      p.ID,
		Title:          title,
		Category:       model.CategoryHome,
		FrequencyType:  recurrence.Daily,
		FrequencyValue: 1,
		StartDate:      due,
		NextDueDate:    due,
		Active:         true,
	}
	for _, fn := range mutate {
		fn(task)
	}
	require.NoError(t, s.Tasks.Create(context.Background(), task))
	return task
}

func TestFindDueCandidates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProfile(t, s, "ann@example.com")
	today := date(t, "2024-03-10")
	tomorrow := date(t, "2024-03-11")
	yesterday := date(t, "2024-03-09")

	due := seedTask(t, s, p, "due", today)
	overdue := seedTask(t, s, p, "overdue", date(t, "2024-03-01"))
	seedTask(t, s, p, "future", date(t, "2024-06-01"))
	seedTask(t, s, p, "paused", today, func(t *model.Task) { t.Paused = true })
	seedTask(t, s, p, "deleted", today, func(t *model.Task) { t.Active = false })
	seedTask(t, s, p, "snoozed", yesterday, func(t *model.Task) { t.SnoozedUntil = &tomorrow })
	expired := seedTask(t, s, p, "snooze expired", yesterday, func(t *model.Task) { t.SnoozedUntil = &yesterday })
	notifiedToday := time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC)
	seedTask(t, s, p, "notified", today, func(t *model.Task) { t.LastNotifiedAt = &notifiedToday })
	notifiedBefore := time.Date(2024, 3, 9, 7, 0, 0, 0, time.UTC)
	renotify := seedTask(t, s, p, "notified yesterday", yesterday, func(t *model.Task) { t.LastNotifiedAt = &notifiedBefore })

	tasks, err := s.Tasks.FindDueCandidates(ctx, today, nil)
	require.NoError(t, err)

	var ids []string
	for _, task := range tasks {
		ids = append(ids, task.ID)
		assert.Equal(t, "ann@example.com", task.Profile.Email)
	}
	assert.Equal(t, []string{overdue.ID, expired.ID, renotify.ID, due.ID}, ids)
}

func TestMarkNotifiedIsAClaim(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProfile(t, s, "ann@example.com")
	today := date(t, "2024-03-10")
	task := seedTask(t, s, p, "due", today)

	at := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	claim := NotifyClaim{TaskID: task.ID, Today: today, ExpectedNextDue: task.NextDueDate, At: at}

	require.NoError(t, s.Tasks.MarkNotified(ctx, claim))
	assert.ErrorIs(t, s.Tasks.MarkNotified(ctx, claim), ErrStaleTaskState)

	// Next day the task can be claimed again.
	nextDay := claim
	nextDay.Today = date(t, "2024-03-11")
	nextDay.At = at.AddDate(0, 0, 1)
	require.NoError(t, s.Tasks.MarkNotified(ctx, nextDay))
}

func TestMarkNotifiedUsesLocalDay(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProfile(t, s, "ann@example.com")
	sydney := time.FixedZone("AEDT", 11*60*60)
	today := date(t, "2024-03-05")
	task := seedTask(t, s, p, "due", today)

	claim := NotifyClaim{
		TaskID:          task.ID,
		Today:           today,
		Location:        sydney,
		ExpectedNextDue: today,
		At:              time.Date(2024, 3, 5, 8, 0, 0, 0, sydney),
	}
	require.NoError(t, s.Tasks.MarkNotified(ctx, claim))

	later := claim
	later.At = time.Date(2024, 3, 5, 9, 0, 0, 0, sydney)
	assert.ErrorIs(t, s.Tasks.MarkNotified(ctx, later), ErrStaleTaskState)

	tasks, err := s.Tasks.FindDueCandidates(ctx, today, sydney)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	nextDay := claim
	nextDay.Today = date(t, "2024-03-06")
	nextDay.At = time.Date(2024, 3, 6, 8, 0, 0, 0, sydney)
	require.NoError(t, s.Tasks.MarkNotified(ctx, nextDay))

	reloaded, err := s.Tasks.FindByID(ctx, "", task.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastNotifiedAt)
	assert.True(t, nextDay.At.Equal(*reloaded.LastNotifiedAt))
}

func TestMarkNotifiedRejectsChangedTask(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProfile(t, s, "ann@example.com")
	today := date(t, "2024-03-10")
	task := seedTask(t, s, p, "due", today)

	require.NoError(t, s.Tasks.SetPaused(ctx, p.ID, task.ID, true))
	err := s.Tasks.MarkNotified(ctx, NotifyClaim{TaskID: task.ID, Today: today, ExpectedNextDue: today, At: time.Now().UTC()})
	assert.ErrorIs(t, err, ErrStaleTaskState)

	require.NoError(t, s.Tasks.SetPaused(ctx, p.ID, task.ID, false))
	err = s.Tasks.MarkNotified(ctx, NotifyClaim{TaskID: task.ID, Today: today, ExpectedNextDue: date(t, "2024-03-09"), At: time.Now().UTC()})
	assert.ErrorIs(t, err, ErrStaleTaskState, "due date moved since selection")
}

func TestReleaseNotified(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProfile(t, s, "ann@example.com")
	today := date(t, "2024-03-10")
	task := seedTask(t, s, p, "due", today)

	at := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.Tasks.MarkNotified(ctx, NotifyClaim{TaskID: task.ID, Today: today, ExpectedNextDue: today, At: at}))
	require.NoError(t, s.Tasks.ReleaseNotified(ctx, NotifyRelease{TaskID: task.ID, StampedAt: at}))

	reloaded, err := s.Tasks.FindByID(ctx, "", task.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.LastNotifiedAt)

	assert.ErrorIs(t, s.Tasks.ReleaseNotified(ctx, NotifyRelease{TaskID: task.ID, StampedAt: at}), ErrStaleTaskState)
}

func TestUpdateNextDueDateDetectsRace(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProfile(t, s, "ann@example.com")
	start := date(t, "2024-03-04")
	task := seedTask(t, s, p, "weekly", start)

	completed := time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC)
	first := NextDueUpdate{
		TaskID:          task.ID,
		NextDueDate:     date(t, "2024-03-11"),
		CompletedAt:     completed,
		CompletionToken: "rotated",
		ExpectedNextDue: start,
	}
	require.NoError(t, s.Tasks.UpdateNextDueDate(ctx, first))

	// A second writer computed from the same stale anchor loses.
	second := first
	second.NextDueDate = date(t, "2024-03-12")
	assert.ErrorIs(t, s.Tasks.UpdateNextDueDate(ctx, second), ErrStaleTaskState)

	reloaded, err := s.Tasks.FindByID(ctx, p.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, date(t, "2024-03-11"), reloaded.NextDueDate.UTC())
	assert.Equal(t, "rotated", reloaded.CompletionToken)
	require.NotNil(t, reloaded.LastCompletedAt)

	// Chaining from the fresh state succeeds.
	third := NextDueUpdate{
		TaskID:                task.ID,
		NextDueDate:           date(t, "2024-03-18"),
		CompletedAt:           completed.AddDate(0, 0, 7),
		ExpectedNextDue:       reloaded.NextDueDate,
		ExpectedLastCompleted: reloaded.LastCompletedAt,
	}
	require.NoError(t, s.Tasks.UpdateNextDueDate(ctx, third))
}

func TestSoftDeleteHidesTask(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProfile(t, s, "ann@example.com")
	other := seedProfile(t, s, "bob@example.com")
	task := seedTask(t, s, p, "due", date(t, "2024-03-10"))

	assert.ErrorIs(t, s.Tasks.SoftDelete(ctx, other.ID, task.ID), ErrNotFound)
	require.NoError(t, s.Tasks.SoftDelete(ctx, p.ID, task.ID))

	tasks, err := s.Tasks.ListActive(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	_, err = s.Tasks.FindByCompletionToken(ctx, task.CompletionToken)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProfile(t, s, "ann@example.com")
	task := seedTask(t, s, p, "due", date(t, "2024-03-10"))

	err := s.InTx(ctx, func(tx *Store) error {
		require.NoError(t, tx.Completions.RecordCompletion(ctx, &model.Completion{TaskID: task.ID, ProfileID: p.ID, CompletedAt: time.Now().UTC()}))
		return ErrStaleTaskState
	})
	assert.ErrorIs(t, err, ErrStaleTaskState)

	completions, err := s.Completions.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, completions)
}

func TestProfileLinkTelegram(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedProfile(t, s, "Ann@Example.com")

	linked, err := s.Profiles.LinkTelegram(ctx, "ann@example.com", 4242)
	require.NoError(t, err)
	assert.Equal(t, int64(4242), linked.TelegramChatID)

	found, err := s.Profiles.FindByTelegramChatID(ctx, 4242)
	require.NoError(t, err)
	assert.Equal(t, linked.ID, found.ID)

	_, err = s.Profiles.LinkTelegram(ctx, "nobody@example.com", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPauseHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProfile(t, s, "ann@example.com")
	task := seedTask(t, s, p, "due", date(t, "2024-03-10"))

	pausedAt := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Pauses.Create(ctx, &model.TaskPause{TaskID: task.ID, ProfileID: p.ID, PausedAt: pausedAt}))
	require.NoError(t, s.Pauses.CloseLatest(ctx, task.ID, pausedAt.Add(48*time.Hour)))
	assert.ErrorIs(t, s.Pauses.CloseLatest(ctx, task.ID, pausedAt), ErrNotFound)

	pauses, err := s.Pauses.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, pauses, 1)
	require.NotNil(t, pauses[0].ResumedAt)
}
