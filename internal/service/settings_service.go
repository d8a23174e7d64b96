package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"evote-api/internal/domain"
	"evote-api/internal/repository"
	"evote-api/pkg/redis"

	"go.uber.org/zap"
)

// SettingsService wraps the settings store with typed accessors for the
// three global toggles. Unknown or malformed stored values coerce to the
// documented defaults instead of propagating loose strings upward.
type SettingsService struct {
	settings repository.SettingsRepository
	cache    *CacheService
	logger   *zap.Logger
}

func NewSettingsService(settings repository.SettingsRepository, cache *CacheService, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		settings: settings,
		cache:    cache,
		logger:   logger,
	}
}

func (s *SettingsService) getBool(ctx context.Context, key string) (bool, error) {
	raw, err := s.settings.Get(ctx, key, "false")
	if err != nil {
		return false, err
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		s.logger.Warn("Coercing malformed setting to default",
			zap.String("key", key),
			zap.String("value", raw))
		return false, nil
	}
	return value, nil
}

func (s *SettingsService) setBool(ctx context.Context, key string, value bool) error {
	if err := s.settings.Set(ctx, key, strconv.FormatBool(value)); err != nil {
		return err
	}
	s.cache.InvalidateViews(ctx)
	return nil
}

// GetVotingStatus reports whether the voting session is open.
func (s *SettingsService) GetVotingStatus(ctx context.Context) (bool, error) {
	return s.getBool(ctx, domain.SettingVotingOpen)
}

// SetVotingStatus opens or closes the voting session.
func (s *SettingsService) SetVotingStatus(ctx context.Context, open bool) (bool, error) {
	if err := s.setBool(ctx, domain.SettingVotingOpen, open); err != nil {
		return false, err
	}
	s.logger.Info("Voting status changed", zap.Bool("open", open))
	return open, nil
}

// GetShowResultsStatus reports whether public results are visible.
func (s *SettingsService) GetShowResultsStatus(ctx context.Context) (bool, error) {
	return s.getBool(ctx, domain.SettingShowResults)
}

// SetShowResultsStatus shows or hides the public results page.
func (s *SettingsService) SetShowResultsStatus(ctx context.Context, show bool) (bool, error) {
	if err := s.setBool(ctx, domain.SettingShowResults, show); err != nil {
		return false, err
	}
	s.logger.Info("Show results status changed", zap.Bool("show", show))
	return show, nil
}

// GetVotingSessionID returns the current voting session id.
func (s *SettingsService) GetVotingSessionID(ctx context.Context) (string, error) {
	return s.settings.Get(ctx, domain.SettingVotingSessionID, domain.DefaultSessionID)
}

// RotateVotingSessionID issues a fresh session id. Clients holding an
// "already voted" marker for the old id treat theirs as stale; the
// server-side registry remains the authority either way.
func (s *SettingsService) RotateVotingSessionID(ctx context.Context) (string, error) {
	newID := fmt.Sprintf("session_%d", time.Now().UnixMilli())
	if err := s.settings.Set(ctx, domain.SettingVotingSessionID, newID); err != nil {
		return "", err
	}
	s.cache.InvalidateViews(ctx)
	s.logger.Info("Voting session rotated", zap.String("session_id", newID))
	return newID, nil
}

// DeleteAll wipes every stored setting; subsequent reads fall back to
// the documented defaults (voting closed, results hidden).
func (s *SettingsService) DeleteAll(ctx context.Context) (int64, error) {
	deleted, err := s.settings.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.cache.InvalidateViews(ctx)
	return deleted, nil
}

// GetSessionInfo bundles the global toggles for the public client.
func (s *SettingsService) GetSessionInfo(ctx context.Context) (*domain.SessionInfo, error) {
	var cached domain.SessionInfo
	if s.cache.GetJSON(ctx, s.sessionKey(), &cached) {
		return &cached, nil
	}

	open, err := s.GetVotingStatus(ctx)
	if err != nil {
		return nil, err
	}
	show, err := s.GetShowResultsStatus(ctx)
	if err != nil {
		return nil, err
	}
	sessionID, err := s.GetVotingSessionID(ctx)
	if err != nil {
		return nil, err
	}

	info := &domain.SessionInfo{
		VotingOpen:  open,
		ShowResults: show,
		SessionID:   sessionID,
	}
	s.cache.SetJSON(ctx, s.sessionKey(), info, redis.TTLSession)
	return info, nil
}

func (s *SettingsService) sessionKey() string {
	if s.cache.redis == nil {
		return redis.KeySession
	}
	return s.cache.redis.KeyBuilder.KeySession()
}
