package http

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thejerf/suture/v4"

	"pigmap/internal/cache"
	"pigmap/internal/config"
	"pigmap/internal/database"
	"pigmap/internal/handler"
	"pigmap/internal/logging"
	"pigmap/internal/model"
	"pigmap/internal/moderation"
	"pigmap/internal/ratelimit"
	"pigmap/internal/realtime"
	"pigmap/internal/redis"
	"pigmap/internal/repository"
	"pigmap/internal/service"
	"pigmap/internal/worker"
)

func Run() error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logging.Component("server")

	policy, err := ratelimit.ParsePolicy(cfg.RateLimitIdentity)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	// 3. Connect to Redis
	rdb, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rdb.Close()

	if err := rdb.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	// 4. Wire repositories, services and handlers
	markerRepo := repository.NewMarkerRepository(db)
	upvoteRepo := repository.NewUpvoteRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	guard := cache.NewActionGuard(rdb.Client)
	limiter := ratelimit.NewLimiter(rdb.Client, map[ratelimit.Endpoint]int{
		ratelimit.EndpointMarkers:  cfg.RateLimitMarkers,
		ratelimit.EndpointComments: cfg.RateLimitComments,
		ratelimit.EndpointReports:  cfg.RateLimitReports,
		ratelimit.EndpointUpvotes:  cfg.RateLimitUpvotes,
	})

	registry := realtime.NewRegistry(realtime.Config{AllowedOrigins: cfg.CORSAllowedOrigins})

	mediaService, err := service.NewMediaService(ctx, cfg)
	switch {
	case errors.Is(err, model.ErrBlobStoreDisabled):
		log.Warn().Msg("R2 not configured, media uploads disabled")
	case err != nil:
		return err
	}

	var cleaner service.MediaCleaner
	if mediaService != nil {
		cleaner = mediaService
	}

	markerService := service.NewMarkerService(markerRepo, registry, cleaner, cfg.MarkerTTL)
	upvoteService := service.NewUpvoteService(upvoteRepo, guard)
	commentService := service.NewCommentService(commentRepo)
	searchService := service.NewSearchService(cfg.SearchBaseURL, cfg.SearchUserAgent, nil)
	moderator := moderation.NewModerator(markerRepo, guard, cfg.ReportThreshold)

	router := NewRouter(RouterConfig{
		MarkerHandler:   handler.NewMarkerHandler(markerService, moderator),
		UpvoteHandler:   handler.NewUpvoteHandler(upvoteService),
		CommentHandler:  handler.NewCommentHandler(commentService),
		MediaHandler:    handler.NewMediaHandler(mediaService),
		SearchHandler:   handler.NewSearchHandler(searchService),
		RealtimeHandler: handler.NewRealtimeHandler(registry),
		Limiter:         limiter,
		IdentityPolicy:  policy,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	server := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 5. Supervise long-running services
	sup := suture.New("pigmap", suture.Spec{
		EventHook: func(e suture.Event) {
			logging.Component("supervisor").Warn().Str("event", e.String()).Msg("Supervisor event")
		},
		Timeout: 15 * time.Second,
	})
	sup.Add(registry)
	sup.Add(worker.NewSweeper(markerRepo, cfg.ArchiveInterval))
	sup.Add(newServerService(server, 10*time.Second))

	log.Info().Str("port", cfg.ServerPort).Str("rate_limit_identity", string(policy)).Msg("Starting server")

	if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor stopped: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}
