// Package schedule serializes sync runs and triggers them on a cron schedule.
package schedule

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/knowledgesync/internal/pipeline"
	"github.com/JakeFAU/knowledgesync/internal/runlock"
)

// ErrBusy is returned when a run is already in progress in this process.
var ErrBusy = errors.New("sync run already in progress")

// Pipeline executes one sync pass.
type Pipeline interface {
	Run(ctx context.Context) pipeline.Report
}

// Runner allows at most one run at a time, in-process and across processes
// sharing the same lock file.
type Runner struct {
	mu     sync.Mutex
	pipe   Pipeline
	lock   *runlock.Lock
	logger *zap.Logger

	lastMu  sync.RWMutex
	last    pipeline.Report
	hasLast bool
}

// NewRunner wraps pipe. A nil lock disables the cross-process guard.
func NewRunner(pipe Pipeline, lock *runlock.Lock, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{pipe: pipe, lock: lock, logger: logger}
}

// Run executes one pass unless another is in flight.
func (r *Runner) Run(ctx context.Context) (pipeline.Report, error) {
	if !r.mu.TryLock() {
		return pipeline.Report{}, ErrBusy
	}
	defer r.mu.Unlock()

	release, err := r.lock.TryAcquire()
	if err != nil {
		return pipeline.Report{}, err
	}
	defer func() {
		if err := release(); err != nil {
			r.logger.Warn("release run lock failed", zap.String("path", r.lock.Path()), zap.Error(err))
		}
	}()

	rep := r.pipe.Run(ctx)

	r.lastMu.Lock()
	r.last, r.hasLast = rep, true
	r.lastMu.Unlock()
	return rep, nil
}

// Last returns the most recent report, if any run has finished.
func (r *Runner) Last() (pipeline.Report, bool) {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()
	return r.last, r.hasLast
}
