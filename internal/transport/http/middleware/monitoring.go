package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"pigmap/internal/logging"
	"pigmap/internal/metrics"
)

// SlowRequestThreshold is the latency above which a request is logged at warn.
const SlowRequestThreshold = time.Second

// Monitoring records request latency by route pattern and logs slow
// requests and server errors.
func Monitoring(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		metrics.RecordHTTPRequest(r.Method, route, status, elapsed)

		log := logging.Component("http")
		switch {
		case status >= http.StatusInternalServerError:
			log.Error().Str("method", r.Method).Str("route", route).Int("status", status).
				Dur("elapsed", elapsed).Str("request_id", chimw.GetReqID(r.Context())).Msg("Request FAILED")
		case elapsed > SlowRequestThreshold:
			log.Warn().Str("method", r.Method).Str("route", route).Int("status", status).
				Dur("elapsed", elapsed).Str("request_id", chimw.GetReqID(r.Context())).Msg("Request SLOW")
		}
	})
}
