package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pigmap/internal/logging"
)

// ActionGuard remembers one-shot actions (reports, upvotes) for a bounded time.
// Keys expire on their own, so the guarantee is soft and resets after the TTL.
type ActionGuard interface {
	// Claim records key if absent. Returns false when the key was already held.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops a claim so the action can be retried.
	Release(ctx context.Context, key string) error
}

// RedisActionGuard implements ActionGuard with SET NX.
type RedisActionGuard struct {
	client *redis.Client
}

// NewActionGuard creates a new ActionGuard backed by Redis.
func NewActionGuard(client *redis.Client) ActionGuard {
	return &RedisActionGuard{client: client}
}

// ReportKey identifies one reporter's report on one marker.
func ReportKey(markerID, reporterID string) string {
	return fmt.Sprintf("reported:%s:%s", markerID, reporterID)
}

// UpvoteKey identifies one voter's upvote of a given kind on one marker.
func UpvoteKey(kind, markerID, voterID string) string {
	return fmt.Sprintf("upvoted_%s_%s_%s", kind, markerID, voterID)
}

func (g *RedisActionGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	log := logging.Component("action_guard")
	startTime := time.Now()

	ok, err := g.client.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Claim FAILED")
		return false, fmt.Errorf("claim %s: %w", key, err)
	}

	log.Debug().Str("key", key).Bool("claimed", ok).Dur("duration", time.Since(startTime)).Msg("Claim OK")
	return ok, nil
}

func (g *RedisActionGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, key).Err(); err != nil {
		logging.Component("action_guard").Error().Err(err).Str("key", key).Msg("Release FAILED")
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}
