package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pigmap/internal/handler"
	"pigmap/internal/httputil"
	"pigmap/internal/ratelimit"
	mw "pigmap/internal/transport/http/middleware"
)

// WebSocketPath is where live-update sessions connect.
const WebSocketPath = "/ws"

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	MarkerHandler   *handler.MarkerHandler
	UpvoteHandler   *handler.UpvoteHandler
	CommentHandler  *handler.CommentHandler
	MediaHandler    *handler.MediaHandler
	SearchHandler   *handler.SearchHandler
	RealtimeHandler *handler.RealtimeHandler

	Limiter        mw.Limiter
	IdentityPolicy ratelimit.Policy
	AllowedOrigins []string

	// FloodLimit caps requests per client IP per minute on /ws, upload-url and search.
	FloodLimit int
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	if cfg.FloodLimit <= 0 {
		cfg.FloodLimit = 60
	}
	flood := httprate.LimitByIP(cfg.FloodLimit, time.Minute)
	limit := func(ep ratelimit.Endpoint) func(http.Handler) http.Handler {
		return mw.RateLimit(cfg.Limiter, ep, cfg.IdentityPolicy)
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(mw.Monitoring)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", mw.MagicCodeHeader},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         86400,
	}))
	r.Use(mw.SecurityHeaders(WebSocketPath))

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.With(flood).Get(WebSocketPath, cfg.RealtimeHandler.Connect)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", cfg.RealtimeHandler.Stats)

		r.Get("/markers", cfg.MarkerHandler.List)
		r.With(limit(ratelimit.EndpointMarkers)).Post("/markers", cfg.MarkerHandler.Create)
		r.Delete("/markers/{id}", cfg.MarkerHandler.Delete)
		r.With(limit(ratelimit.EndpointReports)).Post("/markers/{id}/report", cfg.MarkerHandler.Report)

		r.With(limit(ratelimit.EndpointUpvotes)).Post("/upvotes/{markerId}", cfg.UpvoteHandler.Upvote)

		r.With(limit(ratelimit.EndpointComments)).Post("/comments", cfg.CommentHandler.Create)
		r.Get("/comments/{markerId}", cfg.CommentHandler.List)

		r.With(flood).Post("/upload-url", cfg.MediaHandler.UploadURL)
		r.With(flood).Get("/search", cfg.SearchHandler.Search)
	})

	return r
}
