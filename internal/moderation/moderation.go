// Package moderation decides marker visibility from reports and upvotes.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pigmap/internal/cache"
	"pigmap/internal/logging"
	"pigmap/internal/metrics"
	"pigmap/internal/model"
)

// DefaultThreshold is the report count at which a marker may be hidden.
const DefaultThreshold = 5

// ShouldHide reports whether a marker with the given counters is hidden.
// Reports must reach threshold and also outweigh twice the upvotes.
func ShouldHide(reports, upvotes, threshold int) bool {
	return reports >= threshold && reports > 2*upvotes
}

// ReportStore applies one report as a single conditional update and returns
// the resulting hidden flag. Hidden or unknown markers yield model.ErrMarkerNotFound.
type ReportStore interface {
	IncrementReports(ctx context.Context, markerID string, threshold int) (hidden bool, err error)
}

// Moderator applies reports once per reporter per day.
type Moderator struct {
	store     ReportStore
	guard     cache.ActionGuard
	threshold int
}

func NewModerator(store ReportStore, guard cache.ActionGuard, threshold int) *Moderator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Moderator{store: store, guard: guard, threshold: threshold}
}

// Report records a report from reporterID against markerID.
// The idempotency key is claimed before the increment and released again
// when the increment does not happen.
func (m *Moderator) Report(ctx context.Context, markerID, reporterID string) (bool, error) {
	log := logging.Component("moderation")

	reporterID = strings.TrimSpace(reporterID)
	if reporterID == "" {
		return false, model.ErrMagicCodeRequired
	}

	key := cache.ReportKey(markerID, reporterID)
	claimed, err := m.guard.Claim(ctx, key, model.IdempotencyTTL)
	if err != nil {
		return false, fmt.Errorf("%w: %w", model.ErrServiceUnavailable, err)
	}
	if !claimed {
		log.Info().Str("marker", markerID).Msg("Report DUPLICATE")
		return false, model.ErrAlreadyReported
	}

	hidden, err := m.store.IncrementReports(ctx, markerID, m.threshold)
	if err != nil {
		if relErr := m.guard.Release(ctx, key); relErr != nil {
			log.Warn().Err(relErr).Str("marker", markerID).Msg("Report release FAILED")
		}
		if errors.Is(err, model.ErrMarkerNotFound) {
			return false, err
		}
		log.Error().Err(err).Str("marker", markerID).Msg("Report FAILED")
		return false, fmt.Errorf("increment reports: %w", err)
	}

	if hidden {
		metrics.MarkersHidden.Inc()
	}
	log.Info().Str("marker", markerID).Bool("hidden", hidden).Msg("Report OK")
	return hidden, nil
}
