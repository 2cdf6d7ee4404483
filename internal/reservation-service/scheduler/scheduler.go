// Package scheduler runs the expiry and completion sweeps on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/app"
)

const defaultRunTimeout = 2 * time.Minute

// Sweeper is implemented by *app.Engine.
type Sweeper interface {
	SweepExpired(ctx context.Context) (app.SweepResult, error)
	SweepCompleted(ctx context.Context) (app.SweepResult, error)
}

var _ Sweeper = (*app.Engine)(nil)

// parser accepts both five-field specs and the six-field form with seconds,
// plus descriptors such as "@every 60s".
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type Scheduler struct {
	cron       *cron.Cron
	sweeper    Sweeper
	runTimeout time.Duration
}

type Option func(*Scheduler)

// WithRunTimeout bounds a single sweep run.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.runTimeout = d
		}
	}
}

// New registers both sweeps. Overlapping runs of the same job are skipped.
func New(sweeper Sweeper, expirySpec, completionSpec string, opts ...Option) (*Scheduler, error) {
	logger := slogAdapter{}
	s := &Scheduler{
		sweeper:    sweeper,
		runTimeout: defaultRunTimeout,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(time.UTC),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.cron.AddFunc(expirySpec, s.job("expiry", sweeper.SweepExpired)); err != nil {
		return nil, fmt.Errorf("scheduler: expiry schedule %q: %w", expirySpec, err)
	}
	if _, err := s.cron.AddFunc(completionSpec, s.job("completion", sweeper.SweepCompleted)); err != nil {
		return nil, fmt.Errorf("scheduler: completion schedule %q: %w", completionSpec, err)
	}
	return s, nil
}

// Run starts the schedules and blocks until ctx is done, then waits for any
// sweep still in flight.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	slog.InfoContext(ctx, "sweep scheduler started", "jobs", len(s.cron.Entries()))

	<-ctx.Done()

	<-s.cron.Stop().Done()
	slog.Info("sweep scheduler stopped")
	return nil
}

func (s *Scheduler) job(name string, sweep func(context.Context) (app.SweepResult, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
		defer cancel()

		res, err := sweep(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "sweep run failed", "job", name, "error", err)
			return
		}
		slog.DebugContext(ctx, "sweep run done", "job", name, "scanned", res.Scanned, "processed", res.Processed)
	}
}

// slogAdapter lets cron report through slog.
type slogAdapter struct{}

func (slogAdapter) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogAdapter) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
