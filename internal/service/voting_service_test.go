package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"evote-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type votingFixture struct {
	candidates *memCandidateRepo
	voters     *memVoterRepo
	settings   *memSettingsRepo
	service    *VotingService
	settingsSv *SettingsService
}

func newVotingFixture(t *testing.T, selfService bool) *votingFixture {
	t.Helper()

	candidates := newMemCandidateRepo()
	voters := newMemVoterRepo()
	settings := newMemSettingsRepo()

	log := zap.NewNop()
	cache := NewCacheService(nil, log)
	settingsService := NewSettingsService(settings, cache, log)
	votingService := NewVotingService(candidates, voters, newMemTurnoutRepo(), settingsService, cache, log, selfService)

	return &votingFixture{
		candidates: candidates,
		voters:     voters,
		settings:   settings,
		service:    votingService,
		settingsSv: settingsService,
	}
}

func (f *votingFixture) openVoting(t *testing.T) {
	t.Helper()
	_, err := f.settingsSv.SetVotingStatus(context.Background(), true)
	require.NoError(t, err)
}

func (f *votingFixture) addCandidate(t *testing.T, number int, name string) *domain.Candidate {
	t.Helper()
	candidate := &domain.Candidate{
		Number:    number,
		Name:      name,
		ClassName: "M.6/1",
		Vision:    "A better school for everyone",
		Mission:   "Listen first, then act",
		PhotoURL:  "data:image/png;base64,aGk=",
	}
	require.NoError(t, f.candidates.Create(context.Background(), candidate))
	return candidate
}

func (f *votingFixture) registerTokens(t *testing.T, tokens ...string) {
	t.Helper()
	_, err := f.voters.RegisterBatch(context.Background(), tokens)
	require.NoError(t, err)
}

func TestCastVote_Success(t *testing.T) {
	f := newVotingFixture(t, false)
	f.openVoting(t)
	candidate := f.addCandidate(t, 1, "Candidate One")
	f.registerTokens(t, "TOKEN-A")

	resp, err := f.service.CastVote(context.Background(), candidate.ID, "TOKEN-A")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, candidate.ID, resp.CandidateID)
	assert.Equal(t, domain.DefaultSessionID, resp.SessionID)
	assert.False(t, resp.VotedAt.IsZero())

	stored, err := f.candidates.GetByID(context.Background(), candidate.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Votes)

	voter, err := f.voters.FindByIdentifier(context.Background(), "TOKEN-A")
	require.NoError(t, err)
	require.NotNil(t, voter)
	assert.True(t, voter.HasVoted)
	assert.Equal(t, candidate.ID, voter.VotedCandidateID)
	require.NotNil(t, voter.VotedAt)
}

func TestCastVote_VotingClosed(t *testing.T) {
	f := newVotingFixture(t, false)
	candidate := f.addCandidate(t, 1, "Candidate One")
	f.registerTokens(t, "TOKEN-A")

	_, err := f.service.CastVote(context.Background(), candidate.ID, "TOKEN-A")
	assert.ErrorIs(t, err, domain.ErrVotingClosed)

	voter, err := f.voters.FindByIdentifier(context.Background(), "TOKEN-A")
	require.NoError(t, err)
	assert.False(t, voter.HasVoted, "closed session must not consume the voter's vote")
}

func TestCastVote_UnknownCandidate(t *testing.T) {
	f := newVotingFixture(t, false)
	f.openVoting(t)
	f.registerTokens(t, "TOKEN-A")

	_, err := f.service.CastVote(context.Background(), "missing", "TOKEN-A")
	assert.ErrorIs(t, err, domain.ErrCandidateNotFound)
}

func TestCastVote_EmptyIdentifier(t *testing.T) {
	f := newVotingFixture(t, false)
	f.openVoting(t)
	candidate := f.addCandidate(t, 1, "Candidate One")

	for _, identifier := range []string{"", "   ", "\t\n"} {
		_, err := f.service.CastVote(context.Background(), candidate.ID, identifier)
		assert.ErrorIs(t, err, domain.ErrInvalidVoter)
	}
}

func TestCastVote_UnregisteredVoter(t *testing.T) {
	f := newVotingFixture(t, false)
	f.openVoting(t)
	candidate := f.addCandidate(t, 1, "Candidate One")

	_, err := f.service.CastVote(context.Background(), candidate.ID, "NOT-IMPORTED")
	assert.ErrorIs(t, err, domain.ErrVoterNotRegistered)
}

func TestCastVote_RepeatRejected(t *testing.T) {
	f := newVotingFixture(t, false)
	f.openVoting(t)
	first := f.addCandidate(t, 1, "Candidate One")
	second := f.addCandidate(t, 2, "Candidate Two")
	f.registerTokens(t, "TOKEN-A")

	_, err := f.service.CastVote(context.Background(), first.ID, "TOKEN-A")
	require.NoError(t, err)

	// A repeat vote for a different candidate is still rejected and
	// reports the originally chosen candidate.
	_, err = f.service.CastVote(context.Background(), second.ID, "TOKEN-A")
	var alreadyVoted *domain.AlreadyVotedError
	require.ErrorAs(t, err, &alreadyVoted)
	assert.Equal(t, first.ID, alreadyVoted.VotedCandidateID)

	stored, err := f.candidates.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Votes)
	storedSecond, err := f.candidates.GetByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, storedSecond.Votes)
}

func TestCastVote_ConcurrentSingleClaim(t *testing.T) {
	f := newVotingFixture(t, false)
	f.openVoting(t)
	candidate := f.addCandidate(t, 1, "Candidate One")
	f.registerTokens(t, "TOKEN-A")

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.CastVote(context.Background(), candidate.ID, "TOKEN-A")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	accepted, rejected := 0, 0
	for err := range results {
		if err == nil {
			accepted++
			continue
		}
		var alreadyVoted *domain.AlreadyVotedError
		require.ErrorAs(t, err, &alreadyVoted)
		rejected++
	}

	assert.Equal(t, 1, accepted, "exactly one concurrent attempt may claim the vote")
	assert.Equal(t, attempts-1, rejected)

	stored, err := f.candidates.GetByID(context.Background(), candidate.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Votes)
}

func TestCastVote_SelfService(t *testing.T) {
	f := newVotingFixture(t, true)
	f.openVoting(t)
	candidate := f.addCandidate(t, 1, "Candidate One")

	// First contact creates the voter record and claims the vote.
	resp, err := f.service.CastVote(context.Background(), candidate.ID, "device-123")
	require.NoError(t, err)
	require.NotNil(t, resp)

	voter, err := f.voters.FindByIdentifier(context.Background(), "device-123")
	require.NoError(t, err)
	require.NotNil(t, voter)
	assert.True(t, voter.HasVoted)

	// Second contact from the same identifier loses the claim.
	_, err = f.service.CastVote(context.Background(), candidate.ID, "device-123")
	var alreadyVoted *domain.AlreadyVotedError
	require.ErrorAs(t, err, &alreadyVoted)
	assert.Equal(t, candidate.ID, alreadyVoted.VotedCandidateID)

	stored, err := f.candidates.GetByID(context.Background(), candidate.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Votes)
}

func TestCastVote_SelfServiceConcurrent(t *testing.T) {
	f := newVotingFixture(t, true)
	f.openVoting(t)
	candidate := f.addCandidate(t, 1, "Candidate One")

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.CastVote(context.Background(), candidate.ID, "device-123")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	accepted := 0
	for err := range results {
		if err == nil {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)

	registered, err := f.voters.CountRegistered(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, registered, "concurrent first contacts must collapse onto one record")
}

func TestCastVote_IncrementFailureKeepsClaim(t *testing.T) {
	f := newVotingFixture(t, false)
	f.openVoting(t)
	candidate := f.addCandidate(t, 1, "Candidate One")
	f.registerTokens(t, "TOKEN-A")

	f.candidates.failIncrement = true
	resp, err := f.service.CastVote(context.Background(), candidate.ID, "TOKEN-A")
	require.NoError(t, err, "a failed tally increment must not reject the vote")
	require.NotNil(t, resp)

	// The registry holds the vote; the counter lags until reconciled.
	stored, err := f.candidates.GetByID(context.Background(), candidate.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Votes)

	f.candidates.failIncrement = false
	report, err := f.service.ReconcileTallies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Repaired)
	assert.Equal(t, -1, report.Drift[candidate.ID])

	stored, err = f.candidates.GetByID(context.Background(), candidate.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Votes)
}

func TestReconcileTallies_Idempotent(t *testing.T) {
	f := newVotingFixture(t, false)
	f.openVoting(t)
	candidate := f.addCandidate(t, 1, "Candidate One")
	f.registerTokens(t, "TOKEN-A", "TOKEN-B")

	_, err := f.service.CastVote(context.Background(), candidate.ID, "TOKEN-A")
	require.NoError(t, err)
	_, err = f.service.CastVote(context.Background(), candidate.ID, "TOKEN-B")
	require.NoError(t, err)

	// Inject drift: the counter over-counts by three.
	require.NoError(t, f.candidates.SetVotes(context.Background(), candidate.ID, 5))

	report, err := f.service.ReconcileTallies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 1, report.Repaired)
	assert.Equal(t, 3, report.Drift[candidate.ID])
	assert.Equal(t, 2, report.Tallies[candidate.ID])

	// Second pass finds nothing to repair.
	report, err = f.service.ReconcileTallies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Repaired)
	assert.Empty(t, report.Drift)
	assert.Equal(t, 2, report.Tallies[candidate.ID])
}

func TestResetAllVotes(t *testing.T) {
	f := newVotingFixture(t, false)
	f.openVoting(t)
	candidate := f.addCandidate(t, 1, "Candidate One")
	f.registerTokens(t, "TOKEN-A", "TOKEN-B")

	_, err := f.service.CastVote(context.Background(), candidate.ID, "TOKEN-A")
	require.NoError(t, err)

	before, err := f.settingsSv.GetVotingSessionID(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.service.ResetAllVotes(context.Background()))

	// Tallies zeroed.
	stored, err := f.candidates.GetByID(context.Background(), candidate.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Votes)

	// Flags cleared but registration preserved.
	voter, err := f.voters.FindByIdentifier(context.Background(), "TOKEN-A")
	require.NoError(t, err)
	require.NotNil(t, voter)
	assert.False(t, voter.HasVoted)
	assert.Empty(t, voter.VotedCandidateID)
	registered, err := f.voters.CountRegistered(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, registered)

	// Session rotated.
	after, err := f.settingsSv.GetVotingSessionID(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	assert.True(t, strings.HasPrefix(after, "session_"))

	// The same token can vote again in the new round.
	_, err = f.service.CastVote(context.Background(), candidate.ID, "TOKEN-A")
	require.NoError(t, err)
}

func TestResetAllData(t *testing.T) {
	f := newVotingFixture(t, false)
	f.openVoting(t)
	candidate := f.addCandidate(t, 1, "Candidate One")
	f.registerTokens(t, "TOKEN-A")
	_, err := f.service.CastVote(context.Background(), candidate.ID, "TOKEN-A")
	require.NoError(t, err)

	require.NoError(t, f.service.ResetAllData(context.Background()))

	candidates, err := f.candidates.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, candidates)

	registered, err := f.voters.CountRegistered(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, registered)

	// Settings fall back to the documented defaults.
	open, err := f.settingsSv.GetVotingStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, open)
	show, err := f.settingsSv.GetShowResultsStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, show)
	sessionID, err := f.settingsSv.GetVotingSessionID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSessionID, sessionID)
}

func TestGetResults_Ranking(t *testing.T) {
	f := newVotingFixture(t, false)
	f.openVoting(t)
	first := f.addCandidate(t, 1, "Candidate One")
	second := f.addCandidate(t, 2, "Candidate Two")
	third := f.addCandidate(t, 3, "Candidate Three")
	f.registerTokens(t, "A", "B", "C")

	for _, vote := range []struct{ candidateID, token string }{
		{second.ID, "A"},
		{second.ID, "B"},
		{first.ID, "C"},
	} {
		_, err := f.service.CastVote(context.Background(), vote.candidateID, vote.token)
		require.NoError(t, err)
	}

	results, err := f.service.GetResults(context.Background())
	require.NoError(t, err)
	require.Len(t, results.Candidates, 3)
	assert.Equal(t, 3, results.TotalVotes)

	assert.Equal(t, second.ID, results.Candidates[0].ID)
	assert.Equal(t, 1, results.Candidates[0].Rank)
	assert.True(t, results.Candidates[0].IsWinner)
	assert.InDelta(t, 66.67, results.Candidates[0].Percentage, 0.01)

	assert.Equal(t, first.ID, results.Candidates[1].ID)
	assert.Equal(t, 2, results.Candidates[1].Rank)
	assert.False(t, results.Candidates[1].IsWinner)

	assert.Equal(t, third.ID, results.Candidates[2].ID)
	assert.Equal(t, 3, results.Candidates[2].Rank)
	assert.Zero(t, results.Candidates[2].Percentage)
}

func TestGetStats(t *testing.T) {
	f := newVotingFixture(t, false)
	f.openVoting(t)
	candidate := f.addCandidate(t, 1, "Candidate One")
	f.registerTokens(t, "A", "B", "C")

	_, err := f.service.CastVote(context.Background(), candidate.ID, "A")
	require.NoError(t, err)

	stats, err := f.service.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.RegisteredVoters)
	assert.Equal(t, 1, stats.VotesCast)
	assert.Equal(t, 1, stats.TallySum)
	assert.True(t, stats.VotingOpen)
	assert.Equal(t, domain.DefaultSessionID, stats.SessionID)
}

func TestCastVote_TrimsIdentifier(t *testing.T) {
	f := newVotingFixture(t, false)
	f.openVoting(t)
	candidate := f.addCandidate(t, 1, "Candidate One")
	f.registerTokens(t, "TOKEN-A")

	_, err := f.service.CastVote(context.Background(), candidate.ID, "  TOKEN-A  ")
	require.NoError(t, err)

	_, err = f.service.CastVote(context.Background(), candidate.ID, "TOKEN-A")
	var alreadyVoted *domain.AlreadyVotedError
	assert.True(t, errors.As(err, &alreadyVoted))
}
