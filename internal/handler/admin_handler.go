package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"evote-api/internal/domain"
	"evote-api/internal/service"
	apperrors "evote-api/pkg/errors"
	"evote-api/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// maxUploadBytes bounds parsed multipart bodies; the photo itself is
// further limited by the candidate service.
const maxUploadBytes = 4 * 1024 * 1024

// AdminHandler serves the admin dashboard surface: login, candidate
// management, voter token management, global toggles, resets and
// maintenance.
type AdminHandler struct {
	authService      *service.AuthService
	candidateService *service.CandidateService
	voterService     *service.VoterService
	settingsService  *service.SettingsService
	votingService    *service.VotingService
	statsService     *service.StatsService
	logger           *logger.Logger
}

func NewAdminHandler(
	authService *service.AuthService,
	candidateService *service.CandidateService,
	voterService *service.VoterService,
	settingsService *service.SettingsService,
	votingService *service.VotingService,
	statsService *service.StatsService,
	logger *logger.Logger,
) *AdminHandler {
	return &AdminHandler{
		authService:      authService,
		candidateService: candidateService,
		voterService:     voterService,
		settingsService:  settingsService,
		votingService:    votingService,
		statsService:     statsService,
		logger:           logger,
	}
}

// Login handles POST /api/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.NewValidationError("Invalid request body", nil))
		return
	}

	token, err := h.authService.Login(req.Password)
	if err != nil {
		respondError(w, mapError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// CreateCandidate handles POST /api/admin/candidates (multipart form)
func (h *AdminHandler) CreateCandidate(w http.ResponseWriter, r *http.Request) {
	input, err := parseCandidateForm(r)
	if err != nil {
		respondError(w, mapError(err))
		return
	}

	candidate, err := h.candidateService.Create(r.Context(), input)
	if err != nil {
		appErr := mapError(err)
		if appErr.Type == apperrors.ErrorTypeInternal {
			h.logger.WithError(err).Error("Failed to create candidate")
		}
		respondError(w, appErr)
		return
	}

	respondJSON(w, http.StatusCreated, candidate)
}

// UpdateCandidate handles PUT /api/admin/candidates/{candidateId}
func (h *AdminHandler) UpdateCandidate(w http.ResponseWriter, r *http.Request) {
	candidateID := chi.URLParam(r, "candidateId")
	if candidateID == "" {
		respondError(w, apperrors.NewValidationError("Candidate id is required", nil))
		return
	}

	input, err := parseCandidateForm(r)
	if err != nil {
		respondError(w, mapError(err))
		return
	}

	candidate, err := h.candidateService.Update(r.Context(), candidateID, input)
	if err != nil {
		appErr := mapError(err)
		if appErr.Type == apperrors.ErrorTypeInternal {
			h.logger.WithError(err).Error("Failed to update candidate")
		}
		respondError(w, appErr)
		return
	}

	respondJSON(w, http.StatusOK, candidate)
}

// DeleteCandidate handles DELETE /api/admin/candidates/{candidateId}
func (h *AdminHandler) DeleteCandidate(w http.ResponseWriter, r *http.Request) {
	candidateID := chi.URLParam(r, "candidateId")
	if candidateID == "" {
		respondError(w, apperrors.NewValidationError("Candidate id is required", nil))
		return
	}

	if err := h.candidateService.Delete(r.Context(), candidateID); err != nil {
		h.logger.WithError(err).Error("Failed to delete candidate")
		respondError(w, mapError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListVoters handles GET /api/admin/voters
func (h *AdminHandler) ListVoters(w http.ResponseWriter, r *http.Request) {
	voters, err := h.voterService.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list voters")
		respondError(w, mapError(err))
		return
	}
	if voters == nil {
		voters = []domain.Voter{}
	}
	respondJSON(w, http.StatusOK, voters)
}

// ImportVoterTokens handles POST /api/admin/voters/tokens
func (h *AdminHandler) ImportVoterTokens(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tokens string `json:"tokens"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.NewValidationError("Invalid request body", nil))
		return
	}

	result, err := h.voterService.ImportTokens(r.Context(), req.Tokens)
	if err != nil {
		appErr := mapError(err)
		if appErr.Type == apperrors.ErrorTypeInternal {
			h.logger.WithError(err).Error("Failed to import voter tokens")
		}
		respondError(w, appErr)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// SetVotingStatus handles PUT /api/admin/settings/voting
func (h *AdminHandler) SetVotingStatus(w http.ResponseWriter, r *http.Request) {
	h.setToggle(w, r, "open", h.settingsService.SetVotingStatus)
}

// SetShowResults handles PUT /api/admin/settings/results
func (h *AdminHandler) SetShowResults(w http.ResponseWriter, r *http.Request) {
	h.setToggle(w, r, "show", h.settingsService.SetShowResultsStatus)
}

// ResetVotes handles POST /api/admin/reset/votes
func (h *AdminHandler) ResetVotes(w http.ResponseWriter, r *http.Request) {
	if err := h.votingService.ResetAllVotes(r.Context()); err != nil {
		h.logger.WithError(err).Error("Failed to reset votes")
		respondError(w, mapError(err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ResetData handles POST /api/admin/reset/all
func (h *AdminHandler) ResetData(w http.ResponseWriter, r *http.Request) {
	if err := h.votingService.ResetAllData(r.Context()); err != nil {
		h.logger.WithError(err).Error("Failed to reset data")
		respondError(w, mapError(err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Reconcile handles POST /api/admin/reconcile
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.votingService.ReconcileTallies(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to reconcile tallies")
		respondError(w, mapError(err))
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// GetStats handles GET /api/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.votingService.GetStats(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to build turnout stats")
		respondError(w, mapError(err))
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// GetStatsHistory handles GET /api/admin/stats/history
func (h *AdminHandler) GetStatsHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	snapshots, err := h.statsService.History(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load turnout history")
		respondError(w, mapError(err))
		return
	}
	if snapshots == nil {
		snapshots = []domain.TurnoutSnapshot{}
	}
	respondJSON(w, http.StatusOK, snapshots)
}

func (h *AdminHandler) setToggle(w http.ResponseWriter, r *http.Request, field string, set func(ctx context.Context, v bool) (bool, error)) {
	var body map[string]bool
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, apperrors.NewValidationError("Invalid request body", nil))
		return
	}
	value, ok := body[field]
	if !ok {
		respondError(w, apperrors.NewValidationError("Missing field: "+field, nil))
		return
	}

	newState, err := set(r.Context(), value)
	if err != nil {
		h.logger.WithError(err).Error("Failed to update setting")
		respondError(w, mapError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"new_state": newState,
	})
}

// parseCandidateForm extracts a CandidateInput from a multipart form.
// The photo part is optional here; the service decides whether its
// absence is allowed.
func parseCandidateForm(r *http.Request) (*domain.CandidateInput, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, apperrors.NewValidationError("Invalid multipart form", nil)
	}

	number, err := strconv.Atoi(strings.TrimSpace(r.FormValue("number")))
	if err != nil {
		return nil, apperrors.NewValidationError("Candidate number must be an integer", nil)
	}

	input := &domain.CandidateInput{
		Name:      strings.TrimSpace(r.FormValue("name")),
		ClassName: strings.TrimSpace(r.FormValue("className")),
		Number:    number,
		Vision:    strings.TrimSpace(r.FormValue("vision")),
		Mission:   strings.TrimSpace(r.FormValue("mission")),
	}

	file, header, err := r.FormFile("photo")
	if err == http.ErrMissingFile {
		return input, nil
	}
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid photo upload", nil)
	}
	defer file.Close()

	photo, err := io.ReadAll(io.LimitReader(file, service.MaxPhotoBytes+1))
	if err != nil {
		return nil, apperrors.NewValidationError("Failed to read photo upload", nil)
	}
	input.Photo = photo
	input.PhotoContentType = photoContentType(photo, header.Header.Get("Content-Type"))

	return input, nil
}

// photoContentType prefers sniffed content over the client-declared
// header.
func photoContentType(photo []byte, declared string) string {
	if len(photo) > 0 {
		return http.DetectContentType(photo)
	}
	return declared
}
