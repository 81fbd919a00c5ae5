package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"task-reminder/internal/logger"
	"task-reminder/internal/model"
	"task-reminder/internal/recurrence"
	"task-reminder/internal/repository"
)

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "service.db"), logger.Discard())
	require.NoError(t, err)
	store := repository.NewStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := recurrence.ParseDate(s)
	require.NoError(t, err)
	return d
}

func ptr[T any](v T) *T {
	return &v
}

func seedProfile(t *testing.T, s *repository.Store, email string, mutate ...func(*model.Profile)) *model.Profile {
	t.Helper()
	p := &model.Profile{Email: email, NotifyVia: model.ChannelEmail}
	for _, fn := range mutate {
		fn(p)
	}
	require.NoError(t, s.Profiles.Upsert(context.Background(), p))
	return p
}

func seedTask(t *testing.T, s *repository.Store, p *model.Profile, title string, due time.Time, mutate ...func(*model.Task)) *model.Task {
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

func reload(t *testing.T, s *repository.Store, task *model.Task) *model.Task {
	t.Helper()
	got, err := s.Tasks.FindByID(context.Background(), "", task.ID)
	require.NoError(t, err)
	return got
}
