package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"pigmap/internal/logging"
)

// serverService runs an *http.Server under the supervisor.
type serverService struct {
	server          *http.Server
	shutdownTimeout time.Duration
}

func newServerService(server *http.Server, shutdownTimeout time.Duration) *serverService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &serverService{server: server, shutdownTimeout: shutdownTimeout}
}

func (s *serverService) String() string { return "http-server" }

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *serverService) Serve(ctx context.Context) error {
	log := logging.Component("http")

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.server.Addr).Msg("Listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			log.Error().Err(err).Msg("Listen FAILED")
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Shutdown FAILED")
			return err
		}
		log.Info().Msg("Shutdown OK")
		return ctx.Err()
	}
}
