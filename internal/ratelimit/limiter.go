// Package ratelimit bounds state-changing actions per (endpoint, identifier)
// to fixed one-hour windows stored in Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pigmap/internal/logging"
	"pigmap/internal/metrics"
	"pigmap/internal/model"
)

// Endpoint classes with independent quotas.
type Endpoint string

const (
	EndpointMarkers  Endpoint = "markers"
	EndpointComments Endpoint = "comments"
	EndpointReports  Endpoint = "reports"
	EndpointUpvotes  Endpoint = "upvotes"
)

// DefaultWindow is the length of one counting window.
const DefaultWindow = time.Hour

// KeyPrefix is the Redis key prefix for window entries.
const KeyPrefix = "ratelimit:"

// DefaultLimits are the per-hour quotas.
func DefaultLimits() map[Endpoint]int {
	return map[Endpoint]int{
		EndpointMarkers:  5,
		EndpointComments: 20,
		EndpointReports:  10,
		EndpointUpvotes:  20,
	}
}

// Decision is the outcome of one Check.
type Decision struct {
	Allowed bool
	Count   int
	Limit   int
	ResetAt time.Time
}

// Remaining is how many more requests fit in the current window.
func (d Decision) Remaining() int {
	if r := d.Limit - d.Count; r > 0 {
		return r
	}
	return 0
}

// The window entry is a hash {count, reset_at}. Read, compare, write and
// expiry happen inside one script so concurrent checks cannot lose increments.
// The key's TTL always equals reset_at - now.
var windowScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local window = tonumber(ARGV[3])

local count = tonumber(redis.call('HGET', key, 'count'))
local resetAt = tonumber(redis.call('HGET', key, 'reset_at'))

if count == nil or resetAt == nil or resetAt <= now then
  resetAt = now + window
  redis.call('HSET', key, 'count', 1, 'reset_at', resetAt)
  redis.call('PEXPIRE', key, window)
  return {1, 1, resetAt}
end

if count >= limit then
  return {0, count, resetAt}
end

count = redis.call('HINCRBY', key, 'count', 1)
redis.call('PEXPIRE', key, resetAt - now)
return {1, count, resetAt}
`)

// Limiter checks and records requests against per-endpoint quotas.
type Limiter struct {
	client *redis.Client
	limits map[Endpoint]int
	window time.Duration
	now    func() time.Time
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithWindow overrides the window length.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) { l.window = d }
}

// NewLimiter creates a Limiter. Endpoints missing from limits use DefaultLimits.
func NewLimiter(client *redis.Client, limits map[Endpoint]int, opts ...Option) *Limiter {
	merged := DefaultLimits()
	for ep, n := range limits {
		if n > 0 {
			merged[ep] = n
		}
	}

	l := &Limiter{
		client: client,
		limits: merged,
		window: DefaultWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key returns the Redis key for an (endpoint, identifier) window.
func Key(endpoint Endpoint, identifier string) string {
	return fmt.Sprintf("%s%s:%s", KeyPrefix, endpoint, identifier)
}

// Check records one request for identifier on endpoint and reports whether
// it is within quota. Store failures are returned wrapping
// model.ErrServiceUnavailable; callers must not treat them as allowed.
func (l *Limiter) Check(ctx context.Context, endpoint Endpoint, identifier string) (Decision, error) {
	log := logging.Component("ratelimit")

	limit, ok := l.limits[endpoint]
	if !ok {
		return Decision{}, fmt.Errorf("unknown rate limit endpoint %q", endpoint)
	}
	if identifier == "" {
		identifier = AnonymousIdentifier
	}

	now := l.now()
	key := Key(endpoint, identifier)

	res, err := windowScript.Run(ctx, l.client, []string{key},
		limit, now.UnixMilli(), l.window.Milliseconds()).Int64Slice()
	if err != nil {
		metrics.RecordRateLimit(string(endpoint), "error")
		log.Error().Err(err).Str("endpoint", string(endpoint)).Msg("Check FAILED")
		return Decision{}, fmt.Errorf("%w: rate limit store: %w", model.ErrServiceUnavailable, err)
	}
	if len(res) != 3 {
		metrics.RecordRateLimit(string(endpoint), "error")
		return Decision{}, fmt.Errorf("%w: %w", model.ErrServiceUnavailable, errors.New("unexpected rate limit script reply"))
	}

	d := Decision{
		Allowed: res[0] == 1,
		Count:   int(res[1]),
		Limit:   limit,
		ResetAt: time.UnixMilli(res[2]),
	}

	if d.Allowed {
		metrics.RecordRateLimit(string(endpoint), "allow")
	} else {
		metrics.RecordRateLimit(string(endpoint), "reject")
		log.Info().Str("endpoint", string(endpoint)).Int("count", d.Count).Int("limit", limit).
			Time("reset_at", d.ResetAt).Msg("Check REJECTED")
	}
	return d, nil
}
