package service

import (
	"context"
	"encoding/json"
	"time"

	"evote-api/pkg/redis"

	"go.uber.org/zap"
)

// CacheService caches the read views (candidate list, results, session
// toggles) and invalidates them after mutations. The cache is a pure
// performance layer: a nil Redis client degrades every call to a direct
// fetch, and a cache failure never fails the request.
type CacheService struct {
	redis  *redis.Client
	logger *zap.Logger
}

func NewCacheService(redisClient *redis.Client, logger *zap.Logger) *CacheService {
	return &CacheService{
		redis:  redisClient,
		logger: logger,
	}
}

// GetJSON loads key into dest, reporting whether it was a hit.
func (s *CacheService) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if s.redis == nil {
		return false
	}
	cached, err := s.redis.Get(ctx, key)
	if err != nil || cached == "" {
		return false
	}
	if err := json.Unmarshal([]byte(cached), dest); err != nil {
		s.logger.Warn("Discarding malformed cache entry", zap.Error(err))
		return false
	}
	return true
}

// SetJSON stores value under key with the given TTL.
func (s *CacheService) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, string(data), ttl); err != nil {
		s.logger.Warn("Failed to cache value", zap.Error(err))
	}
}

// InvalidateViews drops every cached page view that depends on candidate
// or settings state. Called after each successful mutation.
func (s *CacheService) InvalidateViews(ctx context.Context) {
	if s.redis == nil {
		return
	}
	keys := []string{
		s.redis.KeyBuilder.KeyCandidatesAll(),
		s.redis.KeyBuilder.KeyResults(),
		s.redis.KeyBuilder.KeySession(),
	}
	if err := s.redis.Delete(ctx, keys...); err != nil {
		s.logger.Warn("Failed to invalidate view caches", zap.Error(err))
	}
}

// CacheVoterStatus stores a voter's status under a session-scoped key,
// so rotating the session id naturally expires every stale entry.
func (s *CacheService) CacheVoterStatus(ctx context.Context, sessionID, identifier string, status interface{}) {
	if s.redis == nil {
		return
	}
	key := s.redis.KeyBuilder.KeyCustom("voting:%s:voter:%s", sessionID, identifier)
	s.SetJSON(ctx, key, status, redis.TTLVoterStatus)
}

// GetVoterStatus loads a cached voter status for the current session.
func (s *CacheService) GetVoterStatus(ctx context.Context, sessionID, identifier string, dest interface{}) bool {
	if s.redis == nil {
		return false
	}
	key := s.redis.KeyBuilder.KeyCustom("voting:%s:voter:%s", sessionID, identifier)
	return s.GetJSON(ctx, key, dest)
}

// HealthCheck verifies the cache connection when one is configured.
func (s *CacheService) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Health(ctx)
}
