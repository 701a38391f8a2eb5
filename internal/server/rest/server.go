package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cuppie/cuppie-auth/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// Server wraps http.Server with the service's middleware chain and graceful
// shutdown.
type Server struct {
	httpServer *http.Server
	logger     logging.Logger
}

// NewServer builds the HTTP server: routes from the handler, wrapped in
// recovery, request-id and logging middleware.
func NewServer(addr string, handler *Handler, logger logging.Logger) *Server {
	mux := http.NewServeMux()
	handler.Routes(mux)

	var h http.Handler = mux
	h = WithLogging(logger)(h)
	h = WithRequestID(h)
	h = WithRecovery(logger)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info(shutdownCtx, "shutting down http server")
	return s.httpServer.Shutdown(shutdownCtx)
}
