package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pigmap/internal/cache"
	"pigmap/internal/logging"
	"pigmap/internal/model"
	"pigmap/internal/repository"
)

type UpvoteService struct {
	upvoteRepo repository.UpvoteRepository
	guard      cache.ActionGuard
	now        func() time.Time
}

func NewUpvoteService(upvoteRepo repository.UpvoteRepository, guard cache.ActionGuard) *UpvoteService {
	return &UpvoteService{
		upvoteRepo: upvoteRepo,
		guard:      guard,
		now:        time.Now,
	}
}

// Upvote records one upvote per (kind, marker, magic code) per day and
// returns the marker's regular upvote total.
func (s *UpvoteService) Upvote(ctx context.Context, markerID string, req model.UpvoteRequest) (*model.UpvoteResponse, error) {
	log := logging.Component("upvote_service")

	kind := strings.TrimSpace(req.Type)
	if kind == "" {
		return nil, model.NewValidationError("type is required")
	}
	if !model.IsValidUpvoteKind(kind) {
		return nil, model.NewValidationError("type must be one of: regular, ongoing")
	}
	code := strings.TrimSpace(req.MagicCode)
	if code == "" {
		return nil, model.ErrMagicCodeRequired
	}

	key := cache.UpvoteKey(kind, markerID, code)
	claimed, err := s.guard.Claim(ctx, key, model.IdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrServiceUnavailable, err)
	}
	if !claimed {
		log.Info().Str("marker", markerID).Str("kind", kind).Msg("Upvote DUPLICATE")
		return nil, model.ErrAlreadyUpvoted
	}

	upvote := &model.Upvote{
		ID:        uuid.NewString(),
		MarkerID:  markerID,
		VoterID:   code,
		Kind:      kind,
		CreatedAt: s.now().UTC(),
	}
	total, err := s.upvoteRepo.Add(ctx, upvote, model.OngoingExtension)
	if err != nil {
		if relErr := s.guard.Release(ctx, key); relErr != nil {
			log.Warn().Err(relErr).Str("marker", markerID).Msg("Upvote release FAILED")
		}
		if errors.Is(err, model.ErrMarkerNotFound) {
			return nil, err
		}
		log.Error().Err(err).Str("marker", markerID).Msg("Upvote FAILED")
		return nil, fmt.Errorf("add upvote: %w", err)
	}

	log.Info().Str("marker", markerID).Str("kind", kind).Int("upvotes", total).Msg("Upvote OK")
	return &model.UpvoteResponse{Message: "Upvoted successfully", Upvotes: total}, nil
}
