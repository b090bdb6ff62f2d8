package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"pigmap/internal/logging"
	"pigmap/internal/model"
)

// maxSearchResponse caps how much of an upstream response is read.
const maxSearchResponse = 1 << 20

// SearchService proxies location searches to a Nominatim-compatible geocoder.
// Repeated upstream failures open a circuit breaker so the proxy fails fast.
type SearchService struct {
	client    *http.Client
	baseURL   string
	userAgent string
	breaker   *gobreaker.CircuitBreaker[json.RawMessage]
}

func NewSearchService(baseURL, userAgent string, client *http.Client) *SearchService {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	log := logging.Component("search_service")
	breaker := gobreaker.NewCircuitBreaker[json.RawMessage](gobreaker.Settings{
		Name:        "nominatim",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state change")
		},
	})

	return &SearchService{
		client:    client,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: userAgent,
		breaker:   breaker,
	}
}

// Search returns the geocoder's JSON result list for q unchanged.
func (s *SearchService) Search(ctx context.Context, q string) (json.RawMessage, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, model.NewValidationError(`query parameter "q" is required`)
	}

	result, err := s.breaker.Execute(func() (json.RawMessage, error) {
		return s.fetch(ctx, q)
	})
	if err != nil {
		logging.Component("search_service").Error().Err(err).Msg("Search FAILED")
		return nil, fmt.Errorf("%w: search: %w", model.ErrServiceUnavailable, err)
	}
	return result, nil
}

func (s *SearchService) fetch(ctx context.Context, q string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", q)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request geocoder: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder responded with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchResponse))
	if err != nil {
		return nil, fmt.Errorf("read geocoder response: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("geocoder returned invalid JSON")
	}
	return json.RawMessage(body), nil
}
