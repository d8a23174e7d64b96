package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the vote casting protocol and admin operations.
// Handlers map these to HTTP status codes; anything else is an internal
// storage failure.
var (
	ErrVotingClosed       = errors.New("voting session is closed")
	ErrCandidateNotFound  = errors.New("candidate not found")
	ErrInvalidVoter       = errors.New("voter identifier must not be empty")
	ErrVoterNotRegistered = errors.New("voter identifier is not registered")
)

// AlreadyVotedError rejects a repeat vote. It carries the previously
// chosen candidate id so clients can render "you voted for X" without
// re-deriving it.
type AlreadyVotedError struct {
	VotedCandidateID string
}

func (e *AlreadyVotedError) Error() string {
	return "voter has already cast a vote"
}

// DuplicateNumberError rejects a candidate create/update whose ballot
// number collides with another candidate.
type DuplicateNumberError struct {
	Number int
}

func (e *DuplicateNumberError) Error() string {
	return fmt.Sprintf("candidate number %d is already in use", e.Number)
}
