package domain

import (
	"time"
)

// TurnoutSnapshot is a periodic sample of turnout, persisted so the
// admin dashboard can chart participation over the course of a session.
type TurnoutSnapshot struct {
	ID               int64     `json:"id"`
	SessionID        string    `json:"session_id"`
	RegisteredVoters int       `json:"registered_voters"`
	VotesCast        int       `json:"votes_cast"`
	CreatedAt        time.Time `json:"created_at"`
}
