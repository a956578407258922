package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mufasadev/grinpay/internal/config"
	apperrors "github.com/mufasadev/grinpay/internal/errors"
	"github.com/mufasadev/grinpay/pkg/log"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

type Service struct {
	config *config.Config
	logger *zerolog.Logger
}

// NewService creates a new instance of the service
func NewService(cfg *config.Config) *Service {
	return &Service{config: cfg, logger: log.Component("service")}
}

// Run serves the API and runs the reconciliation jobs until ctx is cancelled
// or the process receives SIGINT or SIGTERM.
func (s *Service) Run(ctx context.Context, router chi.Router, scheduler *Scheduler) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              s.config.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().Str("addr", server.Addr).Msg("server is listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg(apperrors.ErrorFailedToRunTheServer)
			return err
		}
		return nil
	})
	g.Go(func() error {
		return scheduler.Run(gCtx)
	})
	g.Go(func() error {
		<-gCtx.Done()
		s.logger.Info().Msg("server is shutting down")
		return s.shutdown(server)
	})

	err := g.Wait()
	s.logger.Info().Msg("server stopped")
	return err
}

// shutdown gracefully shuts down the server without interrupting any active connections.
func (s *Service) shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		s.logger.Error().Err(err).Msg(apperrors.ErrorFailedToShutdownTheServer)
		return err
	}
	return nil
}
