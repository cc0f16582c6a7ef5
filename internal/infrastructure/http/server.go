// Package http runs the echo server with graceful shutdown.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const defaultShutdownTimeout = 10 * time.Second

// Server owns the listener lifecycle of an echo instance.
type Server struct {
	echo            *echo.Echo
	addr            string
	shutdownTimeout time.Duration
	log             zerolog.Logger
}

func NewServer(e *echo.Echo, port string, log zerolog.Logger) *Server {
	return &Server{
		echo:            e,
		addr:            ":" + port,
		shutdownTimeout: defaultShutdownTimeout,
		log:             log,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Server.ReadHeaderTimeout = 5 * time.Second

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("http server listening")
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
