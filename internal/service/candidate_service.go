package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"evote-api/internal/domain"
	"evote-api/internal/repository"
	"evote-api/pkg/errors"
	"evote-api/pkg/redis"

	"go.uber.org/zap"
)

// MaxPhotoBytes caps candidate photo uploads at 2MB.
const MaxPhotoBytes = 2 * 1024 * 1024

var allowedPhotoTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
}

// CandidateService manages candidate profiles and the ordered public
// candidate list. Ballot-number uniqueness is enforced here with a
// check-then-write probe; admin writes are low-frequency and
// single-operator in practice, so the residual race is accepted rather
// than locked around.
type CandidateService struct {
	candidates repository.CandidateRepository
	cache      *CacheService
	logger     *zap.Logger
}

func NewCandidateService(candidates repository.CandidateRepository, cache *CacheService, logger *zap.Logger) *CandidateService {
	return &CandidateService{
		candidates: candidates,
		cache:      cache,
		logger:     logger,
	}
}

// List returns all candidates ordered by ballot number.
func (s *CandidateService) List(ctx context.Context) ([]domain.Candidate, error) {
	var cached []domain.Candidate
	if s.cache.GetJSON(ctx, s.listKey(), &cached) {
		return cached, nil
	}

	candidates, err := s.candidates.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	s.cache.SetJSON(ctx, s.listKey(), candidates, redis.TTLCandidates)
	return candidates, nil
}

// Create validates and stores a new candidate. The photo is mandatory
// and stored as a data URI, matching what the public page renders.
func (s *CandidateService) Create(ctx context.Context, input *domain.CandidateInput) (*domain.Candidate, error) {
	if err := validateCandidateInput(input); err != nil {
		return nil, err
	}
	if len(input.Photo) == 0 {
		return nil, errors.NewValidationError("candidate photo is required", nil)
	}
	photoURL, err := encodePhotoDataURI(input.Photo, input.PhotoContentType)
	if err != nil {
		return nil, err
	}

	existing, err := s.candidates.FindByNumber(ctx, input.Number, "")
	if err != nil {
		return nil, fmt.Errorf("failed to check candidate number: %w", err)
	}
	if existing != nil {
		return nil, &domain.DuplicateNumberError{Number: input.Number}
	}

	candidate := &domain.Candidate{
		Number:    input.Number,
		Name:      input.Name,
		ClassName: input.ClassName,
		Vision:    input.Vision,
		Mission:   input.Mission,
		PhotoURL:  photoURL,
	}
	if err := s.candidates.Create(ctx, candidate); err != nil {
		return nil, fmt.Errorf("failed to create candidate: %w", err)
	}

	s.cache.InvalidateViews(ctx)
	s.logger.Info("Candidate created",
		zap.String("candidate_id", candidate.ID),
		zap.Int("number", candidate.Number))

	return candidate, nil
}

// Update validates and applies profile changes. Keeping the candidate's
// own unchanged number is allowed; taking another candidate's number is
// not. An empty photo keeps the stored one.
func (s *CandidateService) Update(ctx context.Context, id string, input *domain.CandidateInput) (*domain.Candidate, error) {
	if err := validateCandidateInput(input); err != nil {
		return nil, err
	}

	candidate, err := s.candidates.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	if candidate == nil {
		return nil, domain.ErrCandidateNotFound
	}

	conflicting, err := s.candidates.FindByNumber(ctx, input.Number, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check candidate number: %w", err)
	}
	if conflicting != nil {
		return nil, &domain.DuplicateNumberError{Number: input.Number}
	}

	candidate.Number = input.Number
	candidate.Name = input.Name
	candidate.ClassName = input.ClassName
	candidate.Vision = input.Vision
	candidate.Mission = input.Mission
	if len(input.Photo) > 0 {
		photoURL, err := encodePhotoDataURI(input.Photo, input.PhotoContentType)
		if err != nil {
			return nil, err
		}
		candidate.PhotoURL = photoURL
	}

	if err := s.candidates.Update(ctx, candidate); err != nil {
		return nil, fmt.Errorf("failed to update candidate: %w", err)
	}

	s.cache.InvalidateViews(ctx)
	s.logger.Info("Candidate updated",
		zap.String("candidate_id", candidate.ID),
		zap.Int("number", candidate.Number))

	return candidate, nil
}

// Delete removes a candidate. Voter records pointing at the deleted id
// are left untouched; reconciliation simply finds no candidate for them.
func (s *CandidateService) Delete(ctx context.Context, id string) error {
	if err := s.candidates.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete candidate: %w", err)
	}
	s.cache.InvalidateViews(ctx)
	s.logger.Info("Candidate deleted", zap.String("candidate_id", id))
	return nil
}

// BuildResults ranks candidates by votes descending with percentages.
func BuildResults(candidates []domain.Candidate, now time.Time) *domain.VotingResults {
	total := 0
	for _, c := range candidates {
		total += c.Votes
	}

	ranked := make([]domain.CandidateResult, len(candidates))
	for i, c := range candidates {
		ranked[i] = domain.CandidateResult{Candidate: c}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Votes != ranked[j].Votes {
			return ranked[i].Votes > ranked[j].Votes
		}
		return ranked[i].Number < ranked[j].Number
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
		if total > 0 {
			ranked[i].Percentage = float64(ranked[i].Votes) / float64(total) * 100
		}
		ranked[i].IsWinner = i == 0 && ranked[i].Votes > 0
	}

	return &domain.VotingResults{
		Candidates: ranked,
		TotalVotes: total,
		LastUpdate: now,
	}
}

func validateCandidateInput(input *domain.CandidateInput) error {
	if utf8.RuneCountInString(input.Name) < 3 {
		return errors.NewValidationError("candidate name must be at least 3 characters", nil)
	}
	if input.ClassName == "" {
		return errors.NewValidationError("class name is required", nil)
	}
	if input.Number < 1 {
		return errors.NewValidationError("candidate number must be at least 1", nil)
	}
	if utf8.RuneCountInString(input.Vision) < 10 {
		return errors.NewValidationError("vision must be at least 10 characters", nil)
	}
	if utf8.RuneCountInString(input.Mission) < 10 {
		return errors.NewValidationError("mission must be at least 10 characters", nil)
	}
	if len(input.Photo) > 0 {
		if len(input.Photo) > MaxPhotoBytes {
			return errors.NewValidationError("photo must not exceed 2MB", nil)
		}
		if !allowedPhotoTypes[input.PhotoContentType] {
			return errors.NewValidationError("photo must be PNG or JPEG", nil)
		}
	}
	return nil
}

func encodePhotoDataURI(photo []byte, contentType string) (string, error) {
	if !allowedPhotoTypes[contentType] {
		return "", errors.NewValidationError("photo must be PNG or JPEG", nil)
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(photo)), nil
}

func (s *CandidateService) listKey() string {
	if s.cache.redis == nil {
		return redis.KeyCandidatesAll
	}
	return s.cache.redis.KeyBuilder.KeyCandidatesAll()
}
