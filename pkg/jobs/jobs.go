// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/biolink/pkg/logger"
)

// Config holds job schedules in standard five-field cron syntax.
type Config struct {
	ExpirySchedule string        `env:"EXPIRY_SCHEDULE" envDefault:"0 3 * * *"`
	Timeout        time.Duration `env:"JOBS_TIMEOUT" envDefault:"5m"`
}

// ErrInvalidSchedule is returned when a cron expression cannot be parsed.
var ErrInvalidSchedule = errors.New("jobs: invalid schedule")

// Expirer moves lapsed subscriptions out of the active state.
type Expirer interface {
	ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron    *cron.Cron
	log     *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

type Option func(*Scheduler)

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces time.Now as the reference time passed to jobs.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func New(cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		log:     logger.Discard(),
		timeout: cfg.Timeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("jobs"))

	cl := cronLogger{log: s.log}
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cl),
		cron.SkipIfStillRunning(cl),
	), cron.WithLogger(cl))
	return s
}

// Add registers fn under name. Each run gets its own context bounded by
// the configured timeout.
func (s *Scheduler) Add(name, schedule string, fn func(ctx context.Context, now time.Time) error) error {
	_, err := s.cron.AddFunc(schedule, func() { s.run(name, fn) })
	if err != nil {
		return fmt.Errorf("%w: %s %q: %w", ErrInvalidSchedule, name, schedule, err)
	}
	return nil
}

func (s *Scheduler) run(name string, fn func(ctx context.Context, now time.Time) error) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := s.now()
	if err := fn(ctx, start); err != nil {
		s.log.ErrorContext(ctx, "job failed",
			logger.Event(name),
			logger.Error(err),
		)
		return
	}
	s.log.DebugContext(ctx, "job finished",
		logger.Event(name),
		logger.Duration(time.Since(start)),
	)
}

// Start runs the scheduler in its own goroutine until ctx is done, then
// waits for running jobs to return.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()
}

// Stop halts scheduling and returns a context done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// ExpireSubscriptions returns the job body for the subscription expiry run.
func ExpireSubscriptions(e Expirer) func(ctx context.Context, now time.Time) error {
	return func(ctx context.Context, now time.Time) error {
		_, err := e.ExpireSubscriptions(ctx, now)
		return err
	}
}

// RegisterExpiry schedules the subscription expiry job.
func (s *Scheduler) RegisterExpiry(cfg Config, e Expirer) error {
	return s.Add("subscription_expiry", cfg.ExpirySchedule, ExpireSubscriptions(e))
}

type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, logger.Error(err))...)
}
