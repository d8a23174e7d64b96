package repository

import (
	"context"
	"time"

	"evote-api/internal/domain"
)

// CandidateRepository defines storage operations for candidates.
type CandidateRepository interface {
	// List retrieves all candidates ordered by ballot number ascending.
	List(ctx context.Context) ([]domain.Candidate, error)

	// GetByID retrieves a candidate by id, (nil, nil) when absent.
	GetByID(ctx context.Context, id string) (*domain.Candidate, error)

	// FindByNumber retrieves a candidate holding the given ballot number,
	// excluding excludeID when non-empty. (nil, nil) when absent.
	FindByNumber(ctx context.Context, number int, excludeID string) (*domain.Candidate, error)

	// Create inserts a new candidate and fills ID and CreatedAt.
	Create(ctx context.Context, candidate *domain.Candidate) error

	// Update replaces the profile fields of an existing candidate.
	Update(ctx context.Context, candidate *domain.Candidate) error

	// Delete removes a candidate. Voter rows referencing it are left alone.
	Delete(ctx context.Context, id string) error

	// IncrementVotes atomically adds one to a candidate's counter.
	// Returns domain.ErrCandidateNotFound when no row matches.
	IncrementVotes(ctx context.Context, id string) error

	// SetVotes overwrites a candidate's counter (reconciliation only).
	SetVotes(ctx context.Context, id string, votes int) error

	// ResetVotes zeroes every candidate's counter and reports how many
	// rows were touched.
	ResetVotes(ctx context.Context) (int64, error)

	// DeleteAll removes every candidate.
	DeleteAll(ctx context.Context) (int64, error)
}

// VoterRepository defines storage operations for the voter registry.
type VoterRepository interface {
	// FindByIdentifier retrieves a voter by external identifier,
	// (nil, nil) when absent.
	FindByIdentifier(ctx context.Context, identifier string) (*domain.Voter, error)

	// List retrieves all voters ordered by registration time.
	List(ctx context.Context) ([]domain.Voter, error)

	// RegisterBatch inserts the given identifiers as unvoted voters,
	// skipping identifiers already present, and reports how many were
	// inserted.
	RegisterBatch(ctx context.Context, identifiers []string) (int64, error)

	// MarkVoted flips an existing voter from not-voted to voted in a
	// single conditional write. Returns false when the voter was absent
	// or had already voted; the caller disambiguates.
	MarkVoted(ctx context.Context, identifier, candidateID, sessionID string, votedAt time.Time) (bool, error)

	// ClaimOrCreate is the self-service variant of MarkVoted: it upserts
	// the identifier and claims the vote in one statement, first write
	// wins. Returns false when the identifier had already voted.
	ClaimOrCreate(ctx context.Context, identifier, candidateID, sessionID string, votedAt time.Time) (bool, error)

	// ResetVoteFlags clears has_voted, voted_at and voted_candidate_id on
	// every voter, preserving registration.
	ResetVoteFlags(ctx context.Context) (int64, error)

	// ClearAll deletes every voter record.
	ClearAll(ctx context.Context) (int64, error)

	// CountRegistered returns the number of voter rows.
	CountRegistered(ctx context.Context) (int, error)

	// CountVoted returns the number of voters with has_voted=true.
	CountVoted(ctx context.Context) (int, error)

	// CountByCandidate returns voted-voter counts keyed by candidate id.
	CountByCandidate(ctx context.Context) (map[string]int, error)
}

// SettingsRepository defines storage operations for named settings.
type SettingsRepository interface {
	// Get retrieves a setting value; a missing key returns def without
	// error.
	Get(ctx context.Context, key, def string) (string, error)

	// Set upserts a setting value.
	Set(ctx context.Context, key, value string) error

	// DeleteAll removes every setting, restoring documented defaults.
	DeleteAll(ctx context.Context) (int64, error)
}

// Repositories aggregates the storage interfaces.
type Repositories struct {
	Candidates CandidateRepository
	Voters     VoterRepository
	Settings   SettingsRepository
}
