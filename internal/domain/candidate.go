package domain

import (
	"time"
)

// Candidate represents an electable candidate with profile content and a
// vote counter. The counter is a performance cache; the voter registry is
// the source of truth for tallies (see VotingService.ReconcileTallies).
type Candidate struct {
	ID        string    `json:"id"`
	Number    int       `json:"number"`
	Name      string    `json:"name"`
	ClassName string    `json:"class_name"`
	Vision    string    `json:"vision"`
	Mission   string    `json:"mission"`
	PhotoURL  string    `json:"photo_url"`
	Votes     int       `json:"votes"`
	CreatedAt time.Time `json:"created_at"`
}

// CandidateInput carries the admin-supplied fields for create/update.
// Photo is the raw uploaded image; PhotoContentType its MIME type. On
// update an empty Photo keeps the stored photo.
type CandidateInput struct {
	Name             string `json:"name"`
	ClassName        string `json:"class_name"`
	Number           int    `json:"number"`
	Vision           string `json:"vision"`
	Mission          string `json:"mission"`
	Photo            []byte `json:"-"`
	PhotoContentType string `json:"-"`
}

// CandidateResult represents a candidate with ranking data for the
// results view.
type CandidateResult struct {
	Candidate
	Rank       int     `json:"rank"`
	Percentage float64 `json:"percentage"`
	IsWinner   bool    `json:"is_winner"`
}

// VotingResults is the public results payload.
type VotingResults struct {
	Candidates []CandidateResult `json:"candidates"`
	TotalVotes int               `json:"total_votes"`
	LastUpdate time.Time         `json:"last_update"`
}
