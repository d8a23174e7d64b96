package domain

import (
	"time"
)

// Voter is one tracked voting identity. Identifier is the external token
// (admin-issued code or device-generated id); ID is the storage key.
type Voter struct {
	ID               string     `json:"id"`
	Identifier       string     `json:"identifier"`
	HasVoted         bool       `json:"has_voted"`
	VotedAt          *time.Time `json:"voted_at,omitempty"`
	VotedCandidateID string     `json:"voted_candidate_id,omitempty"`
	SessionID        string     `json:"session_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// VoterStatus is the public answer to "has this identifier voted".
// Absent identifiers report HasVoted=false rather than an error.
type VoterStatus struct {
	HasVoted         bool   `json:"has_voted"`
	Registered       bool   `json:"registered"`
	VotedCandidateID string `json:"voted_candidate_id,omitempty"`
}

// TokenImportResult reports a bulk voter token import. Tokens already
// present are skipped, not rejected.
type TokenImportResult struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
}
