package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ze-club/models"
)

func TestSiteSettings_EnsureGetUpdate(t *testing.T) {
	db := newTestDB(t)
	s := NewSiteSettingsService(db, zap.NewNop())
	ctx := context.Background()

	_, err := s.Get(ctx)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.Update(ctx, SiteSettingsInput{}, "admin-1")
	assert.True(t, errors.Is(err, ErrNotFound))

	st, err := s.EnsureSiteSettings(ctx)
	require.NoError(t, err)
	assert.True(t, st.RedemptionsOpen)
	assert.True(t, st.SubmissionsOpen)

	name := "ZE Club PH"
	closed := false
	updated, err := s.Update(ctx, SiteSettingsInput{ClubName: &name, RedemptionsOpen: &closed}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, name, updated.ClubName)
	assert.False(t, updated.RedemptionsOpen)
	require.NotNil(t, updated.UpdatedBy)
	assert.Equal(t, "admin-1", *updated.UpdatedBy)

	// Startup must not reset what an admin changed.
	again, err := s.EnsureSiteSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, name, again.ClubName)
	assert.False(t, again.RedemptionsOpen)

	bad := "not a url"
	_, err = s.Update(ctx, SiteSettingsInput{DiscordURL: &bad}, "admin-1")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestGateOpen(t *testing.T) {
	db := newTestDB(t)
	s := NewSiteSettingsService(db, zap.NewNop())
	ctx := context.Background()
	redemptions := func(st *models.SiteSettings) bool { return st.RedemptionsOpen }

	open, err := gateOpen(db, redemptions)
	require.NoError(t, err)
	assert.True(t, open, "no settings row means open")

	_, err = s.EnsureSiteSettings(ctx)
	require.NoError(t, err)
	open, err = gateOpen(db, redemptions)
	require.NoError(t, err)
	assert.True(t, open)

	on := true
	_, err = s.Update(ctx, SiteSettingsInput{MaintenanceMode: &on}, "admin-1")
	require.NoError(t, err)
	open, err = gateOpen(db, redemptions)
	require.NoError(t, err)
	assert.False(t, open)
}
