package service

import (
	"context"
	"strings"
	"testing"

	"evote-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSettingsFixture(t *testing.T) (*SettingsService, *memSettingsRepo) {
	t.Helper()
	repo := newMemSettingsRepo()
	log := zap.NewNop()
	return NewSettingsService(repo, NewCacheService(nil, log), log), repo
}

func TestSettingsService_Defaults(t *testing.T) {
	svc, _ := newSettingsFixture(t)
	ctx := context.Background()

	open, err := svc.GetVotingStatus(ctx)
	require.NoError(t, err)
	assert.False(t, open, "voting defaults to closed")

	show, err := svc.GetShowResultsStatus(ctx)
	require.NoError(t, err)
	assert.False(t, show, "results default to hidden")

	sessionID, err := svc.GetVotingSessionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSessionID, sessionID)
}

func TestSettingsService_Toggles(t *testing.T) {
	svc, _ := newSettingsFixture(t)
	ctx := context.Background()

	open, err := svc.SetVotingStatus(ctx, true)
	require.NoError(t, err)
	assert.True(t, open)

	got, err := svc.GetVotingStatus(ctx)
	require.NoError(t, err)
	assert.True(t, got)

	_, err = svc.SetVotingStatus(ctx, false)
	require.NoError(t, err)
	got, err = svc.GetVotingStatus(ctx)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestSettingsService_MalformedValueCoerces(t *testing.T) {
	svc, repo := newSettingsFixture(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, domain.SettingVotingOpen, "definitely"))

	open, err := svc.GetVotingStatus(ctx)
	require.NoError(t, err)
	assert.False(t, open, "malformed stored value reads as the default")
}

func TestSettingsService_RotateSessionID(t *testing.T) {
	svc, _ := newSettingsFixture(t)
	ctx := context.Background()

	rotated, err := svc.RotateVotingSessionID(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rotated, "session_"))
	assert.NotEqual(t, domain.DefaultSessionID, rotated)

	stored, err := svc.GetVotingSessionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, rotated, stored)
}

func TestSettingsService_GetSessionInfo(t *testing.T) {
	svc, _ := newSettingsFixture(t)
	ctx := context.Background()

	_, err := svc.SetVotingStatus(ctx, true)
	require.NoError(t, err)

	info, err := svc.GetSessionInfo(ctx)
	require.NoError(t, err)
	assert.True(t, info.VotingOpen)
	assert.False(t, info.ShowResults)
	assert.Equal(t, domain.DefaultSessionID, info.SessionID)
}

func TestSettingsService_DeleteAll(t *testing.T) {
	svc, _ := newSettingsFixture(t)
	ctx := context.Background()

	_, err := svc.SetVotingStatus(ctx, true)
	require.NoError(t, err)
	_, err = svc.RotateVotingSessionID(ctx)
	require.NoError(t, err)

	deleted, err := svc.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	open, err := svc.GetVotingStatus(ctx)
	require.NoError(t, err)
	assert.False(t, open)
	sessionID, err := svc.GetVotingSessionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSessionID, sessionID)
}
