// Package worker runs background maintenance for the marker store.
package worker

import (
	"context"
	"time"

	"pigmap/internal/logging"
	"pigmap/internal/metrics"
)

// DefaultSweepInterval is how often expired markers are archived when no interval is configured.
const DefaultSweepInterval = 15 * time.Minute

// Archiver flags expired markers as archived and reports how many changed.
type Archiver interface {
	ArchiveExpired(ctx context.Context) (int64, error)
}

// Sweeper periodically archives markers whose expiration has passed.
// It implements suture.Service.
type Sweeper struct {
	archiver Archiver
	interval time.Duration
}

func NewSweeper(archiver Archiver, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{archiver: archiver, interval: interval}
}

func (s *Sweeper) String() string { return "archive-sweeper" }

// Serve sweeps once immediately, then on every tick until ctx is cancelled.
func (s *Sweeper) Serve(ctx context.Context) error {
	log := logging.Component("sweeper")
	log.Info().Dur("interval", s.interval).Msg("Sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.Sweep(ctx)

		select {
		case <-ctx.Done():
			log.Info().Msg("Sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep runs a single archive pass. Failures are logged and retried on the next tick.
func (s *Sweeper) Sweep(ctx context.Context) int64 {
	log := logging.Component("sweeper")

	n, err := s.archiver.ArchiveExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Msg("Archive FAILED")
		}
		return 0
	}
	if n > 0 {
		metrics.MarkersArchived.Add(float64(n))
		log.Info().Int64("archived", n).Msg("Archive OK")
	}
	return n
}
