package handler

import (
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"evote-api/internal/domain"
	apperrors "evote-api/pkg/errors"
)

// respondJSON writes data as a JSON response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes a structured error response.
func respondError(w http.ResponseWriter, appErr *apperrors.AppError) {
	respondJSON(w, appErr.StatusCode, map[string]interface{}{
		"error": map[string]interface{}{
			"type":      appErr.Type,
			"message":   appErr.Message,
			"details":   appErr.Details,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// mapError translates domain and service errors into the structured
// error surface. Anything unrecognized becomes a generic internal
// failure; the caller logs the detail server-side.
func mapError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var alreadyVoted *domain.AlreadyVotedError
	if errors.As(err, &alreadyVoted) {
		details := map[string]interface{}{}
		if alreadyVoted.VotedCandidateID != "" {
			details["voted_candidate_id"] = alreadyVoted.VotedCandidateID
		}
		return apperrors.NewConflictError("You have already cast a vote", details)
	}

	var duplicateNumber *domain.DuplicateNumberError
	if errors.As(err, &duplicateNumber) {
		return apperrors.NewConflictError(
			fmt.Sprintf("Candidate number %d is already in use", duplicateNumber.Number),
			map[string]interface{}{"number": duplicateNumber.Number},
		)
	}

	switch {
	case errors.Is(err, domain.ErrVotingClosed):
		return apperrors.NewForbiddenError("Voting session is closed")
	case errors.Is(err, domain.ErrCandidateNotFound):
		return apperrors.NewNotFoundError("Candidate not found")
	case errors.Is(err, domain.ErrInvalidVoter):
		return apperrors.NewValidationError("Voter identifier must not be empty", nil)
	case errors.Is(err, domain.ErrVoterNotRegistered):
		return apperrors.NewForbiddenError("Voter token is not registered; contact the election committee")
	default:
		return apperrors.NewInternalError("Internal server error", err)
	}
}

// generateETag derives a weak content hash for conditional GETs.
func generateETag(data interface{}) string {
	jsonData, _ := json.Marshal(data)
	hash := md5.Sum(jsonData)
	return fmt.Sprintf(`"%x"`, hash)
}
