package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs watchers on cron schedules
type Scheduler struct {
	cron    *cron.Cron
	logger  zerolog.Logger
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler creates a scheduler. Each poll gets at most timeout; zero
// means no limit beyond Stop.
func NewScheduler(logger zerolog.Logger, timeout time.Duration) *Scheduler {
	cronLog := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		logger:  logger,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add schedules w. The schedule uses the standard five field cron syntax or
// descriptors such as "@every 1m".
func (s *Scheduler) Add(schedule string, w *Watcher) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("watch %s: invalid schedule %q: %w", w.Name(), schedule, err)
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.run(w)
	})
	if err != nil {
		return fmt.Errorf("watch %s: failed to schedule: %w", w.Name(), err)
	}

	s.logger.Info().
		Str("watch", w.Name()).
		Str("schedule", schedule).
		Msg("Watch scheduled")
	return nil
}

func (s *Scheduler) run(w *Watcher) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if _, err := w.Poll(ctx); err != nil {
		s.logger.Error().
			Err(err).
			Str("watch", w.Name()).
			Msg("Watch poll failed")
	}
}

// Start runs the scheduler in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running polls and waits for them to return, or for ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	stopped := s.cron.Stop()

	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
