package app

import (
	"context"
	"time"

	"github.com/mufasadev/grinpay/pkg/log"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// JobHandler is one reconciliation step.
type JobHandler interface {
	Execute(ctx context.Context) error
}

// JobFunc adapts a function to JobHandler.
type JobFunc func(ctx context.Context) error

func (f JobFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

type Job struct {
	Name     string
	Interval time.Duration
	Handler  JobHandler
}

// Scheduler runs each job on its own ticker. Ticks of one job never overlap,
// and a failing or slow job does not delay the others.
type Scheduler struct {
	jobs        []Job
	tickTimeout time.Duration
	logger      *zerolog.Logger
}

func NewScheduler(tickTimeout time.Duration, jobs ...Job) *Scheduler {
	return &Scheduler{
		jobs:        jobs,
		tickTimeout: tickTimeout,
		logger:      log.Component("scheduler"),
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)
	for _, job := range s.jobs {
		g.Go(func() error {
			s.loop(gCtx, job)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	s.logger.Info().Str("job", job.Name).Dur("interval", job.Interval).Msg("job started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Str("job", job.Name).Msg("job stopped")
			return
		case <-ticker.C:
			s.tick(ctx, job)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, job Job) {
	tickCtx := ctx
	if s.tickTimeout > 0 {
		var cancel context.CancelFunc
		tickCtx, cancel = context.WithTimeout(ctx, s.tickTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("job", job.Name).Interface("panic", r).Msg("job panicked")
		}
	}()

	start := time.Now()
	if err := job.Handler.Execute(tickCtx); err != nil {
		s.logger.Error().Err(err).Str("job", job.Name).Dur("took", time.Since(start)).Msg("job failed")
		return
	}
	s.logger.Debug().Str("job", job.Name).Dur("took", time.Since(start)).Msg("job done")
}
