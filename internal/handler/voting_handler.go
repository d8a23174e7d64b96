package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"evote-api/internal/domain"
	"evote-api/internal/service"
	apperrors "evote-api/pkg/errors"
	"evote-api/pkg/logger"
)

// VotingHandler serves the public voting surface: the candidate list,
// the results page, the session toggles, voter status and vote casting.
type VotingHandler struct {
	votingService    *service.VotingService
	candidateService *service.CandidateService
	voterService     *service.VoterService
	settingsService  *service.SettingsService
	logger           *logger.Logger
}

func NewVotingHandler(
	votingService *service.VotingService,
	candidateService *service.CandidateService,
	voterService *service.VoterService,
	settingsService *service.SettingsService,
	logger *logger.Logger,
) *VotingHandler {
	return &VotingHandler{
		votingService:    votingService,
		candidateService: candidateService,
		voterService:     voterService,
		settingsService:  settingsService,
		logger:           logger,
	}
}

// GetCandidates handles GET /api/candidates (polling endpoint)
func (h *VotingHandler) GetCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.candidateService.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list candidates")
		respondError(w, mapError(err))
		return
	}
	if candidates == nil {
		candidates = []domain.Candidate{}
	}

	etag := generateETag(candidates)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=10")
	respondJSON(w, http.StatusOK, candidates)
}

// GetResults handles GET /api/results. Results stay hidden until the
// admin flips showResults.
func (h *VotingHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	visible, err := h.settingsService.GetShowResultsStatus(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to read show results setting")
		respondError(w, mapError(err))
		return
	}
	if !visible {
		respondError(w, apperrors.NewForbiddenError("Results are not published yet"))
		return
	}

	results, err := h.votingService.GetResults(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to build voting results")
		respondError(w, mapError(err))
		return
	}

	etag := generateETag(results)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=30")
	respondJSON(w, http.StatusOK, results)
}

// GetSession handles GET /api/session
func (h *VotingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.settingsService.GetSessionInfo(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to read session info")
		respondError(w, mapError(err))
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// GetVoterStatus handles GET /api/voter-status?identifier=...
func (h *VotingHandler) GetVoterStatus(w http.ResponseWriter, r *http.Request) {
	identifier := r.URL.Query().Get("identifier")

	status, err := h.voterService.GetStatus(r.Context(), identifier)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get voter status")
		respondError(w, mapError(err))
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// CastVote handles POST /api/vote
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	var req domain.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.NewValidationError("Invalid request body", nil))
		return
	}

	if err := validateVoteRequest(&req); err != nil {
		respondError(w, mapError(err))
		return
	}

	response, err := h.votingService.CastVote(r.Context(), req.CandidateID, req.VoterIdentifier)
	if err != nil {
		appErr := mapError(err)
		if appErr.Type == apperrors.ErrorTypeInternal {
			h.logger.WithError(err).Error("Vote submission failed")
		}
		respondError(w, appErr)
		return
	}

	respondJSON(w, http.StatusCreated, response)
}

func validateVoteRequest(req *domain.VoteRequest) error {
	if strings.TrimSpace(req.CandidateID) == "" {
		return apperrors.NewValidationError("candidate_id is required", nil)
	}
	if strings.TrimSpace(req.VoterIdentifier) == "" {
		return domain.ErrInvalidVoter
	}
	return nil
}
