package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"evote-api/internal/domain"
)

// In-memory repositories with the same conditional-write semantics as
// the Postgres implementations, safe for concurrent use so the casting
// protocol can be exercised from many goroutines.

type memCandidateRepo struct {
	mu         sync.Mutex
	candidates map[string]*domain.Candidate
	order      []string
	nextID     int

	failIncrement bool
}

func newMemCandidateRepo() *memCandidateRepo {
	return &memCandidateRepo{candidates: make(map[string]*domain.Candidate)}
}

func (r *memCandidateRepo) List(ctx context.Context) ([]domain.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Candidate, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.candidates[id])
	}
	return out, nil
}

func (r *memCandidateRepo) GetByID(ctx context.Context, id string) (*domain.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.candidates[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (r *memCandidateRepo) FindByNumber(ctx context.Context, number int, excludeID string) (*domain.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		c := r.candidates[id]
		if c.Number == number && c.ID != excludeID {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memCandidateRepo) Create(ctx context.Context, candidate *domain.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	candidate.ID = fmt.Sprintf("cand-%d", r.nextID)
	candidate.CreatedAt = time.Now().UTC()
	copied := *candidate
	r.candidates[candidate.ID] = &copied
	r.order = append(r.order, candidate.ID)
	return nil
}

func (r *memCandidateRepo) Update(ctx context.Context, candidate *domain.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.candidates[candidate.ID]
	if !ok {
		return domain.ErrCandidateNotFound
	}
	copied := *candidate
	copied.Votes = existing.Votes
	r.candidates[candidate.ID] = &copied
	return nil
}

func (r *memCandidateRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.candidates, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *memCandidateRepo) IncrementVotes(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failIncrement {
		return fmt.Errorf("simulated storage failure")
	}
	c, ok := r.candidates[id]
	if !ok {
		return domain.ErrCandidateNotFound
	}
	c.Votes++
	return nil
}

func (r *memCandidateRepo) SetVotes(ctx context.Context, id string, votes int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.candidates[id]
	if !ok {
		return domain.ErrCandidateNotFound
	}
	c.Votes = votes
	return nil
}

func (r *memCandidateRepo) ResetVotes(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.candidates {
		c.Votes = 0
	}
	return int64(len(r.candidates)), nil
}

func (r *memCandidateRepo) DeleteAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.candidates))
	r.candidates = make(map[string]*domain.Candidate)
	r.order = nil
	return n, nil
}

type memVoterRepo struct {
	mu     sync.Mutex
	voters map[string]*domain.Voter
	order  []string
	nextID int
}

func newMemVoterRepo() *memVoterRepo {
	return &memVoterRepo{voters: make(map[string]*domain.Voter)}
}

func (r *memVoterRepo) FindByIdentifier(ctx context.Context, identifier string) (*domain.Voter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.voters[identifier]
	if !ok {
		return nil, nil
	}
	copied := *v
	return &copied, nil
}

func (r *memVoterRepo) List(ctx context.Context) ([]domain.Voter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Voter, 0, len(r.order))
	for _, identifier := range r.order {
		out = append(out, *r.voters[identifier])
	}
	return out, nil
}

func (r *memVoterRepo) RegisterBatch(ctx context.Context, identifiers []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var added int64
	for _, identifier := range identifiers {
		if _, ok := r.voters[identifier]; ok {
			continue
		}
		r.insertLocked(identifier)
		added++
	}
	return added, nil
}

func (r *memVoterRepo) insertLocked(identifier string) *domain.Voter {
	r.nextID++
	v := &domain.Voter{
		ID:         fmt.Sprintf("voter-%d", r.nextID),
		Identifier: identifier,
		CreatedAt:  time.Now().UTC(),
	}
	r.voters[identifier] = v
	r.order = append(r.order, identifier)
	return v
}

func (r *memVoterRepo) MarkVoted(ctx context.Context, identifier, candidateID, sessionID string, votedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.voters[identifier]
	if !ok || v.HasVoted {
		return false, nil
	}
	v.HasVoted = true
	v.VotedAt = &votedAt
	v.VotedCandidateID = candidateID
	v.SessionID = sessionID
	return true, nil
}

func (r *memVoterRepo) ClaimOrCreate(ctx context.Context, identifier, candidateID, sessionID string, votedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.voters[identifier]
	if !ok {
		v = r.insertLocked(identifier)
	}
	if v.HasVoted {
		return false, nil
	}
	v.HasVoted = true
	v.VotedAt = &votedAt
	v.VotedCandidateID = candidateID
	v.SessionID = sessionID
	return true, nil
}

func (r *memVoterRepo) ResetVoteFlags(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.voters {
		v.HasVoted = false
		v.VotedAt = nil
		v.VotedCandidateID = ""
		v.SessionID = ""
	}
	return int64(len(r.voters)), nil
}

func (r *memVoterRepo) ClearAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.voters))
	r.voters = make(map[string]*domain.Voter)
	r.order = nil
	return n, nil
}

func (r *memVoterRepo) CountRegistered(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.voters), nil
}

func (r *memVoterRepo) CountVoted(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, v := range r.voters {
		if v.HasVoted {
			count++
		}
	}
	return count, nil
}

func (r *memVoterRepo) CountByCandidate(ctx context.Context) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int)
	for _, v := range r.voters {
		if v.HasVoted && v.VotedCandidateID != "" {
			counts[v.VotedCandidateID]++
		}
	}
	return counts, nil
}

type memSettingsRepo struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemSettingsRepo() *memSettingsRepo {
	return &memSettingsRepo{values: make(map[string]string)}
}

func (r *memSettingsRepo) Get(ctx context.Context, key, def string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if value, ok := r.values[key]; ok {
		return value, nil
	}
	return def, nil
}

func (r *memSettingsRepo) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}

func (r *memSettingsRepo) DeleteAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.values))
	r.values = make(map[string]string)
	return n, nil
}

type memTurnoutRepo struct {
	mu        sync.Mutex
	snapshots []domain.TurnoutSnapshot
	nextID    int64
}

func newMemTurnoutRepo() *memTurnoutRepo {
	return &memTurnoutRepo{}
}

func (r *memTurnoutRepo) CreateSnapshot(ctx context.Context, snapshot *domain.TurnoutSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	snapshot.ID = r.nextID
	snapshot.CreatedAt = time.Now().UTC()
	r.snapshots = append(r.snapshots, *snapshot)
	return nil
}

func (r *memTurnoutRepo) ListRecent(ctx context.Context, limit int) ([]domain.TurnoutSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TurnoutSnapshot, 0, limit)
	for i := len(r.snapshots) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.snapshots[i])
	}
	return out, nil
}

func (r *memTurnoutRepo) DeleteAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.snapshots))
	r.snapshots = nil
	return n, nil
}
