package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileServiceSave(t *testing.T) {
	s := newTestStore(t)
	svc := NewProfileService(s.Profiles)
	ctx := context.Background()

	p, err := svc.Save(ctx, ProfileInput{ID: "p-1", Email: " ann@example.com "})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", p.Email)
	assert.Equal(t, "email", string(p.NotifyVia))

	p, err = svc.Save(ctx, ProfileInput{ID: "p-1", Email: "ann@example.com", Phone: "+15550100", NotifyVia: "both"})
	require.NoError(t, err)
	assert.Equal(t, "+15550100", p.Phone)

	linked, err := svc.LinkTelegram(ctx, "ANN@example.com", 42)
	require.NoError(t, err)
	assert.Equal(t, "p-1", linked.ID)
	found, err := svc.FindByTelegramChat(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "p-1", found.ID)

	_, err = svc.Save(ctx, ProfileInput{ID: "p-2", Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Save(ctx, ProfileInput{ID: "p-2", Email: "b@example.com", NotifyVia: "pigeon"})
	assert.ErrorIs(t, err, ErrValidation)
}
