package service

import (
	"context"
	"fmt"
	"strings"

	"evote-api/internal/domain"
	"evote-api/internal/repository"
	"evote-api/pkg/errors"
	"evote-api/pkg/utils"

	"go.uber.org/zap"
)

// VoterService manages the voter registry: bulk token import, the admin
// voter table, and the public "have I voted" lookup.
type VoterService struct {
	voters   repository.VoterRepository
	settings *SettingsService
	cache    *CacheService
	logger   *zap.Logger
}

func NewVoterService(voters repository.VoterRepository, settings *SettingsService, cache *CacheService, logger *zap.Logger) *VoterService {
	return &VoterService{
		voters:   voters,
		settings: settings,
		cache:    cache,
		logger:   logger,
	}
}

// ImportTokens registers a newline-separated token list. Tokens already
// present are counted as duplicates and left untouched, so re-importing
// a list is safe.
func (s *VoterService) ImportTokens(ctx context.Context, raw string) (*domain.TokenImportResult, error) {
	tokens, invalid := utils.ParseTokenList(raw)
	if len(invalid) > 0 {
		s.logger.Warn("Skipping malformed voter tokens", zap.Int("count", len(invalid)))
	}
	if len(tokens) == 0 {
		return nil, errors.NewValidationError("token list contains no valid tokens", nil)
	}

	added, err := s.voters.RegisterBatch(ctx, tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to import voter tokens: %w", err)
	}

	result := &domain.TokenImportResult{
		Added:      int(added),
		Duplicates: len(tokens) - int(added),
	}
	s.logger.Info("Voter tokens imported",
		zap.Int("added", result.Added),
		zap.Int("duplicates", result.Duplicates))

	return result, nil
}

// List returns every registered voter for the admin token table.
func (s *VoterService) List(ctx context.Context) ([]domain.Voter, error) {
	voters, err := s.voters.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list voters: %w", err)
	}
	return voters, nil
}

// GetStatus reports whether an identifier has voted and for whom. An
// unknown identifier reports not-voted rather than an error; this feeds
// the client-side pre-render hint, with CastVote as the real gate.
func (s *VoterService) GetStatus(ctx context.Context, identifier string) (*domain.VoterStatus, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return &domain.VoterStatus{}, nil
	}

	sessionID, err := s.settings.GetVotingSessionID(ctx)
	if err != nil {
		return nil, err
	}

	var cached domain.VoterStatus
	if s.cache.GetVoterStatus(ctx, sessionID, identifier, &cached) {
		return &cached, nil
	}

	voter, err := s.voters.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to look up voter: %w", err)
	}
	if voter == nil {
		return &domain.VoterStatus{}, nil
	}

	status := &domain.VoterStatus{
		HasVoted:         voter.HasVoted,
		Registered:       true,
		VotedCandidateID: voter.VotedCandidateID,
	}
	if voter.HasVoted {
		s.cache.CacheVoterStatus(ctx, sessionID, identifier, status)
	}
	return status, nil
}
