package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pigmap/internal/logging"
	"pigmap/internal/model"
	"pigmap/internal/pseudonym"
	"pigmap/internal/repository"
	"pigmap/internal/sanitize"
	"pigmap/internal/validation"
)

// Broadcaster announces new markers to live sessions. Implementations must not block.
type Broadcaster interface {
	MarkerAdded(marker model.Marker)
}

// MediaCleaner removes stored media objects by public URL.
type MediaCleaner interface {
	DeleteByURL(ctx context.Context, url string) error
}

type MarkerService struct {
	markerRepo  repository.MarkerRepository
	broadcaster Broadcaster
	cleaner     MediaCleaner // nil when no blob store is configured
	ttl         time.Duration
	now         func() time.Time
}

func NewMarkerService(
	markerRepo repository.MarkerRepository,
	broadcaster Broadcaster,
	cleaner MediaCleaner,
	ttl time.Duration,
) *MarkerService {
	if ttl <= 0 {
		ttl = model.DefaultMarkerTTL
	}
	return &MarkerService{
		markerRepo:  markerRepo,
		broadcaster: broadcaster,
		cleaner:     cleaner,
		ttl:         ttl,
		now:         time.Now,
	}
}

// Create validates and stores a marker, then broadcasts it.
// The returned marker is the only place its magic code is ever exposed.
func (s *MarkerService) Create(ctx context.Context, req model.CreateMarkerRequest) (*model.Marker, error) {
	log := logging.Component("marker_service")

	req.Title = strings.TrimSpace(req.Title)
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}

	code := strings.TrimSpace(req.MagicCode)
	if code == "" {
		var err error
		if code, err = pseudonym.MagicCode(model.MagicCodeLength); err != nil {
			return nil, fmt.Errorf("generate magic code: %w", err)
		}
	}

	now := s.now().UTC()
	marker := &model.Marker{
		ID:          uuid.NewString(),
		Title:       sanitize.HTML(req.Title),
		Type:        req.Type,
		Description: sanitize.HTML(req.Description),
		Longitude:   req.Coords[0],
		Latitude:    req.Coords[1],
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
		MagicCode:   code,
		Media:       make([]model.Media, 0, len(req.Media)),
	}
	for _, url := range req.Media {
		marker.Media = append(marker.Media, model.Media{
			ID:       uuid.NewString(),
			MarkerID: marker.ID,
			URL:      url,
			Kind:     model.MediaKindFromURL(url),
		})
	}
	marker.SetCoords()

	if err := s.markerRepo.Create(ctx, marker); err != nil {
		log.Error().Err(err).Str("type", marker.Type).Msg("Create FAILED")
		return nil, fmt.Errorf("create marker: %w", err)
	}

	log.Info().Str("marker", marker.ID).Str("type", marker.Type).Int("media", len(marker.Media)).Msg("Create OK")

	// Broadcast only after commit.
	s.broadcaster.MarkerAdded(*marker)

	return marker, nil
}

// List returns visible markers. filter is "active" (default) or "all".
func (s *MarkerService) List(ctx context.Context, filter string) ([]model.Marker, error) {
	var includeArchived bool
	switch filter {
	case "", model.FilterActive:
	case model.FilterAll:
		includeArchived = true
	default:
		return nil, model.NewValidationError("filter must be one of: active, all")
	}

	markers, err := s.markerRepo.List(ctx, includeArchived, model.MaxListedMarkers)
	if err != nil {
		return nil, fmt.Errorf("list markers: %w", err)
	}
	return markers, nil
}

// Delete removes a marker when magicCode matches its creator's token.
// Media objects are cleaned up afterwards; failures there are only logged.
func (s *MarkerService) Delete(ctx context.Context, id, magicCode string) error {
	log := logging.Component("marker_service")

	marker, err := s.markerRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if magicCode == "" || subtle.ConstantTimeCompare([]byte(magicCode), []byte(marker.MagicCode)) != 1 {
		log.Warn().Str("marker", id).Msg("Delete UNAUTHORIZED")
		return model.ErrUnauthorized
	}

	media, err := s.markerRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	log.Info().Str("marker", id).Int("media", len(media)).Msg("Delete OK")

	s.cleanupMedia(ctx, id, media)
	return nil
}

func (s *MarkerService) cleanupMedia(ctx context.Context, markerID string, media []model.Media) {
	if s.cleaner == nil {
		return
	}
	for _, m := range media {
		if err := s.cleaner.DeleteByURL(ctx, m.URL); err != nil {
			logging.Component("marker_service").Warn().Err(err).Str("marker", markerID).Str("url", m.URL).Msg("Media cleanup FAILED")
		}
	}
}
