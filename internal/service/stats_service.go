package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"evote-api/internal/domain"
	"evote-api/internal/repository"
	"evote-api/pkg/logger"
)

// SnapshotInterval is how often turnout is sampled while the service
// runs. Samples where nothing changed since the previous one are
// skipped.
const SnapshotInterval = 5 * time.Minute

// StatsService samples turnout (registered voters, votes cast) on a
// timer and persists the samples for the admin dashboard chart. It is
// started alongside the HTTP server and stopped during shutdown, taking
// a final sample on the way out.
type StatsService struct {
	voters   repository.VoterRepository
	turnout  repository.TurnoutRepository
	settings *SettingsService
	log      *logger.Logger

	ticker    *time.Ticker
	stop      chan struct{}
	mu        sync.Mutex
	isRunning bool
	lastCast  int
}

func NewStatsService(voters repository.VoterRepository, turnout repository.TurnoutRepository, settings *SettingsService, log *logger.Logger) *StatsService {
	return &StatsService{
		voters:   voters,
		turnout:  turnout,
		settings: settings,
		log:      log,
		stop:     make(chan struct{}),
		lastCast: -1,
	}
}

// Start begins the periodic snapshot routine.
func (s *StatsService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	s.ticker = time.NewTicker(SnapshotInterval)
	go s.snapshotRoutine(ctx)

	s.isRunning = true
	s.log.Info("Turnout stats service started")
	return nil
}

// Stop halts the routine and saves a final snapshot.
func (s *StatsService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stop)

	if err := s.saveSnapshot(ctx); err != nil {
		s.log.WithError(err).Error("Failed to save final turnout snapshot")
	}

	s.isRunning = false
	s.log.Info("Turnout stats service stopped")
	return nil
}

// History returns the most recent turnout samples, newest first.
func (s *StatsService) History(ctx context.Context, limit int) ([]domain.TurnoutSnapshot, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	snapshots, err := s.turnout.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load turnout history: %w", err)
	}
	return snapshots, nil
}

func (s *StatsService) saveSnapshot(ctx context.Context) error {
	registered, err := s.voters.CountRegistered(ctx)
	if err != nil {
		return err
	}
	cast, err := s.voters.CountVoted(ctx)
	if err != nil {
		return err
	}
	if cast == s.lastCast {
		return nil
	}

	sessionID, err := s.settings.GetVotingSessionID(ctx)
	if err != nil {
		return err
	}

	snapshot := &domain.TurnoutSnapshot{
		SessionID:        sessionID,
		RegisteredVoters: registered,
		VotesCast:        cast,
	}
	if err := s.turnout.CreateSnapshot(ctx, snapshot); err != nil {
		return err
	}

	s.lastCast = cast
	s.log.WithFields(map[string]interface{}{
		"registered": registered,
		"votes_cast": cast,
		"session_id": sessionID,
	}).Debug("Turnout snapshot saved")

	return nil
}

func (s *StatsService) snapshotRoutine(ctx context.Context) {
	for {
		select {
		case <-s.ticker.C:
			if err := s.saveSnapshot(ctx); err != nil {
				s.log.WithError(err).Error("Failed to save periodic turnout snapshot")
			}
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}
