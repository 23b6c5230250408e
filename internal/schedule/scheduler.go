package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/JakeFAU/knowledgesync/internal/runlock"
)

// Scheduler triggers runs on a cron spec. Overlapping ticks are skipped.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	spec   string
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler registers runner under spec (standard five-field syntax or a
// descriptor such as "@every 1h").
func NewScheduler(spec string, runner *Runner, logger *zap.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{runner: runner, spec: spec, logger: logger}
	cl := cronLogger{s: logger.Sugar()}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		s.cancel()
		return nil, fmt.Errorf("add cron job %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	rep, err := s.runner.Run(s.ctx)
	switch {
	case errors.Is(err, ErrBusy), errors.Is(err, runlock.ErrHeld):
		s.logger.Info("scheduled run skipped", zap.Error(err))
	case err != nil:
		s.logger.Error("scheduled run could not start", zap.Error(err))
	case rep.Failed():
		s.logger.Warn("scheduled run failed", zap.String("run_id", rep.RunID), zap.Error(rep.Err))
	default:
		s.logger.Info("scheduled run finished", zap.String("run_id", rep.RunID), zap.Int("appended", rep.Appended))
	}
}

// Start begins firing on the schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("cron", s.spec))
}

// Stop halts the schedule, cancels an in-flight run and waits for it or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
