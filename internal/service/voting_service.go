package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"evote-api/internal/domain"
	"evote-api/internal/repository"
	"evote-api/pkg/redis"

	"go.uber.org/zap"
)

// VotingService coordinates the settings store, voter registry and
// candidate tally to accept or reject vote attempts, and owns the admin
// reset and reconciliation operations.
//
// Two operating modes exist for repeat-vote detection. Token-registry
// mode (the default) admits only pre-imported identifiers. Self-service
// mode creates the identifier on first contact; a row's existence with
// has_voted=true is the whole record. In both modes the conditional
// registry write is the serialization point: of N concurrent votes from
// one identifier, exactly one claims the row.
type VotingService struct {
	candidates  repository.CandidateRepository
	voters      repository.VoterRepository
	turnout     repository.TurnoutRepository
	settings    *SettingsService
	cache       *CacheService
	logger      *zap.Logger
	selfService bool
}

func NewVotingService(
	candidates repository.CandidateRepository,
	voters repository.VoterRepository,
	turnout repository.TurnoutRepository,
	settings *SettingsService,
	cache *CacheService,
	logger *zap.Logger,
	selfService bool,
) *VotingService {
	return &VotingService{
		candidates:  candidates,
		voters:      voters,
		turnout:     turnout,
		settings:    settings,
		cache:       cache,
		logger:      logger,
		selfService: selfService,
	}
}

// CastVote runs the casting protocol. Preconditions are checked in
// order: session open, candidate exists, identifier well-formed, voter
// admitted, voter not already voted. On acceptance the voter record is
// claimed first and the tally incremented second; the registry write is
// authoritative and is never unwound if the increment fails, since the
// counter is repairable from voter records (ReconcileTallies).
func (s *VotingService) CastVote(ctx context.Context, candidateID, voterIdentifier string) (*domain.VoteResponse, error) {
	open, err := s.settings.GetVotingStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read voting status: %w", err)
	}
	if !open {
		return nil, domain.ErrVotingClosed
	}

	candidate, err := s.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up candidate: %w", err)
	}
	if candidate == nil {
		return nil, domain.ErrCandidateNotFound
	}

	identifier := strings.TrimSpace(voterIdentifier)
	if identifier == "" {
		return nil, domain.ErrInvalidVoter
	}

	sessionID, err := s.settings.GetVotingSessionID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read session id: %w", err)
	}

	votedAt := time.Now().UTC()
	claimed, err := s.claimVote(ctx, identifier, candidateID, sessionID, votedAt)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, s.alreadyVoted(ctx, identifier)
	}

	if err := s.candidates.IncrementVotes(ctx, candidateID); err != nil {
		// The voter record already holds the vote; the counter now
		// under-counts by one until the next reconciliation pass.
		s.logger.Error("Tally increment failed after registry claim",
			zap.String("candidate_id", candidateID),
			zap.Error(err))
	}

	status := &domain.VoterStatus{
		HasVoted:         true,
		Registered:       true,
		VotedCandidateID: candidateID,
	}
	s.cache.CacheVoterStatus(ctx, sessionID, identifier, status)
	s.cache.InvalidateViews(ctx)

	s.logger.Info("Vote accepted",
		zap.String("candidate_id", candidateID),
		zap.String("session_id", sessionID))

	return &domain.VoteResponse{
		CandidateID: candidateID,
		SessionID:   sessionID,
		VotedAt:     votedAt,
	}, nil
}

// claimVote performs the mode-specific conditional registry write.
func (s *VotingService) claimVote(ctx context.Context, identifier, candidateID, sessionID string, votedAt time.Time) (bool, error) {
	if s.selfService {
		claimed, err := s.voters.ClaimOrCreate(ctx, identifier, candidateID, sessionID, votedAt)
		if err != nil {
			return false, fmt.Errorf("failed to claim voter record: %w", err)
		}
		return claimed, nil
	}

	voter, err := s.voters.FindByIdentifier(ctx, identifier)
	if err != nil {
		return false, fmt.Errorf("failed to look up voter: %w", err)
	}
	if voter == nil {
		return false, domain.ErrVoterNotRegistered
	}
	if voter.HasVoted {
		return false, &domain.AlreadyVotedError{VotedCandidateID: voter.VotedCandidateID}
	}

	claimed, err := s.voters.MarkVoted(ctx, identifier, candidateID, sessionID, votedAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark voter as voted: %w", err)
	}
	return claimed, nil
}

// alreadyVoted builds the rejection for a lost claim, recovering the
// previously chosen candidate where derivable.
func (s *VotingService) alreadyVoted(ctx context.Context, identifier string) error {
	voter, err := s.voters.FindByIdentifier(ctx, identifier)
	if err != nil || voter == nil {
		return &domain.AlreadyVotedError{}
	}
	return &domain.AlreadyVotedError{VotedCandidateID: voter.VotedCandidateID}
}

// GetResults returns the ranked public results.
func (s *VotingService) GetResults(ctx context.Context) (*domain.VotingResults, error) {
	var cached domain.VotingResults
	if s.cache.GetJSON(ctx, s.resultsKey(), &cached) {
		return &cached, nil
	}

	candidates, err := s.candidates.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	results := BuildResults(candidates, time.Now().UTC())
	s.cache.SetJSON(ctx, s.resultsKey(), results, redis.TTLResults)
	return results, nil
}

// ResetAllVotes starts a new voting round: every tally is zeroed, every
// voter flag cleared, and the session id rotated — as one operation.
// Rotating the id alone would only fool clients while the registry kept
// rejecting them, so the three writes always travel together. Tokens
// stay registered and are reusable in the next round.
func (s *VotingService) ResetAllVotes(ctx context.Context) error {
	tallies, err := s.candidates.ResetVotes(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset tallies: %w", err)
	}
	flags, err := s.voters.ResetVoteFlags(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset voter flags: %w", err)
	}
	sessionID, err := s.settings.RotateVotingSessionID(ctx)
	if err != nil {
		return fmt.Errorf("failed to rotate session id: %w", err)
	}

	s.cache.InvalidateViews(ctx)
	s.logger.Info("All votes reset",
		zap.Int64("tallies_zeroed", tallies),
		zap.Int64("voters_cleared", flags),
		zap.String("session_id", sessionID))

	return nil
}

// ResetAllData wipes candidates, voters, settings and turnout history,
// returning the system to an uninitialized state (voting closed,
// results hidden). There is no rollback: a failure partway leaves the
// earlier deletions in place, which is acceptable for an explicitly
// destructive admin operation.
func (s *VotingService) ResetAllData(ctx context.Context) error {
	candidates, err := s.candidates.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete candidates: %w", err)
	}
	voters, err := s.voters.ClearAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete voters: %w", err)
	}
	settings, err := s.settings.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete settings: %w", err)
	}
	snapshots, err := s.turnout.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete turnout snapshots: %w", err)
	}

	s.cache.InvalidateViews(ctx)
	s.logger.Info("All data reset",
		zap.Int64("candidates_deleted", candidates),
		zap.Int64("voters_deleted", voters),
		zap.Int64("settings_deleted", settings),
		zap.Int64("snapshots_deleted", snapshots))

	return nil
}

// ReconcileTallies recomputes every candidate's counter from the voter
// registry, the source of truth. A crash between the registry claim and
// the tally increment leaves the counter behind by one; this pass is the
// idempotent repair for that drift.
func (s *VotingService) ReconcileTallies(ctx context.Context) (*domain.ReconcileReport, error) {
	counts, err := s.voters.CountByCandidate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes by candidate: %w", err)
	}
	candidates, err := s.candidates.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	report := &domain.ReconcileReport{
		Checked:   len(candidates),
		Drift:     make(map[string]int),
		Tallies:   make(map[string]int, len(candidates)),
		Timestamp: time.Now().UTC(),
	}

	for _, candidate := range candidates {
		expected := counts[candidate.ID]
		report.Tallies[candidate.ID] = expected
		if candidate.Votes == expected {
			continue
		}
		if err := s.candidates.SetVotes(ctx, candidate.ID, expected); err != nil {
			return nil, fmt.Errorf("failed to repair tally: %w", err)
		}
		report.Drift[candidate.ID] = candidate.Votes - expected
		report.Repaired++
		s.logger.Warn("Repaired candidate tally",
			zap.String("candidate_id", candidate.ID),
			zap.Int("stored", candidate.Votes),
			zap.Int("recomputed", expected))
	}

	if report.Repaired > 0 {
		s.cache.InvalidateViews(ctx)
	}
	return report, nil
}

// GetStats summarizes turnout for the admin dashboard.
func (s *VotingService) GetStats(ctx context.Context) (*domain.TurnoutStats, error) {
	registered, err := s.voters.CountRegistered(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count registered voters: %w", err)
	}
	voted, err := s.voters.CountVoted(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count voted voters: %w", err)
	}
	candidates, err := s.candidates.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	tallySum := 0
	for _, c := range candidates {
		tallySum += c.Votes
	}

	open, err := s.settings.GetVotingStatus(ctx)
	if err != nil {
		return nil, err
	}
	sessionID, err := s.settings.GetVotingSessionID(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.TurnoutStats{
		RegisteredVoters: registered,
		VotesCast:        voted,
		TallySum:         tallySum,
		VotingOpen:       open,
		SessionID:        sessionID,
		LastUpdate:       time.Now().UTC(),
	}, nil
}

func (s *VotingService) resultsKey() string {
	if s.cache.redis == nil {
		return redis.KeyResults
	}
	return s.cache.redis.KeyBuilder.KeyResults()
}
