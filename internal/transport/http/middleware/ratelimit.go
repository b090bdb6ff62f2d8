package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"pigmap/internal/httputil"
	"pigmap/internal/logging"
	"pigmap/internal/model"
	"pigmap/internal/ratelimit"
)

// MagicCodeHeader is consulted when the body carries no magicCode.
const MagicCodeHeader = "X-Magic-Code"

const maxPeekBytes = 1 << 20

// Limiter is the per-identifier quota check.
type Limiter interface {
	Check(ctx context.Context, endpoint ratelimit.Endpoint, identifier string) (ratelimit.Decision, error)
}

// RateLimit enforces the hourly quota for one endpoint class. The bucket
// identifier is chosen by policy from the body's magicCode, the
// X-Magic-Code header and the client address. A store failure is a 500,
// never a pass.
func RateLimit(limiter Limiter, endpoint ratelimit.Endpoint, policy ratelimit.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code, err := peekMagicCode(r)
			if err != nil {
				httputil.WriteBadRequest(w, "Invalid request body")
				return
			}
			if code == "" {
				code = r.Header.Get(MagicCodeHeader)
			}

			id := policy.Identify(code, clientIP(r))
			d, err := limiter.Check(r.Context(), endpoint, id)
			if err != nil {
				if errors.Is(err, model.ErrServiceUnavailable) {
					httputil.WriteServiceUnavailable(w, "Rate limiting is temporarily unavailable")
					return
				}
				logging.Component("ratelimit").Error().Err(err).Str("endpoint", string(endpoint)).Msg("Middleware FAILED")
				httputil.WriteInternalError(w, "Rate limiting failed")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining()))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				retry := int(time.Until(d.ResetAt).Seconds())
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				httputil.WriteTooManyRequests(w, model.CodeRateLimited, "Too many requests, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// peekMagicCode reads magicCode from a JSON body and restores the body for
// the handler. Bodies that are not JSON objects yield no code.
func peekMagicCode(r *http.Request) (string, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return "", nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes+1))
	_ = r.Body.Close()
	if err != nil {
		return "", err
	}
	if len(body) > maxPeekBytes {
		return "", errors.New("request body too large")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var peek struct {
		MagicCode string `json:"magicCode"`
	}
	if json.Unmarshal(body, &peek) != nil {
		return "", nil
	}
	return peek.MagicCode, nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
