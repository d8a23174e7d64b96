package domain

import (
	"time"
)

// VoteRequest is a vote submission.
type VoteRequest struct {
	CandidateID     string `json:"candidate_id"`
	VoterIdentifier string `json:"voter_identifier"`
}

// VoteResponse is returned after an accepted vote.
type VoteResponse struct {
	CandidateID string    `json:"candidate_id"`
	SessionID   string    `json:"session_id"`
	VotedAt     time.Time `json:"voted_at"`
}

// ReconcileReport describes one tally repair pass. Counters are
// recomputed from voter records, so running it twice yields the same
// result as once.
type ReconcileReport struct {
	Checked   int            `json:"checked"`
	Repaired  int            `json:"repaired"`
	Drift     map[string]int `json:"drift,omitempty"`
	Tallies   map[string]int `json:"tallies"`
	Timestamp time.Time      `json:"timestamp"`
}

// TurnoutStats is the admin dashboard summary.
type TurnoutStats struct {
	RegisteredVoters int       `json:"registered_voters"`
	VotesCast        int       `json:"votes_cast"`
	TallySum         int       `json:"tally_sum"`
	VotingOpen       bool      `json:"voting_open"`
	SessionID        string    `json:"session_id"`
	LastUpdate       time.Time `json:"last_update"`
}
