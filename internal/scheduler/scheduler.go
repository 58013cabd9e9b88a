// Package scheduler runs the recurring auto-update loop: one pass over all
// auto-update subjects per cycle, with a manually preemptable wait.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"creator_mirror/internal/domain"
)

// Syncer runs one full pass over the auto-update subjects.
type Syncer interface {
	SyncAll(ctx context.Context) error
}

// IntervalSource supplies the cycle interval. It is re-read at the top of
// every cycle, so an operator change affects the next wait, never the one in
// progress.
type IntervalSource interface {
	AutoUpdateInterval(ctx context.Context) (time.Duration, error)
}

type Scheduler struct {
	syncer       Syncer
	intervals    IntervalSource
	faultBackoff time.Duration
	logger       *slog.Logger

	// trigger is a sticky single-slot flag: repeated TriggerNow calls while
	// waiting collapse into one immediate pass.
	trigger chan struct{}

	mu        sync.Mutex
	lastRun   int64
	nextRun   int64
	isRunning bool

	now func() time.Time
}

func New(syncer Syncer, intervals IntervalSource, faultBackoff time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		syncer:       syncer,
		intervals:    intervals,
		faultBackoff: faultBackoff,
		logger:       logger,
		trigger:      make(chan struct{}, 1),
		now:          time.Now,
	}
}

// TriggerNow requests an immediate pass. Calls made while a pass is waiting
// to start, or while one is executing, have no additional effect.
func (s *Scheduler) TriggerNow() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) Status() domain.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SchedulerStatus{
		LastRun:   s.lastRun,
		NextRun:   s.nextRun,
		IsRunning: s.isRunning,
	}
}

// Start blocks, running cycles until the context is cancelled. Faults in the
// loop's own bookkeeping back off for a fixed delay and retry instead of
// terminating the process.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started")

	for {
		if err := s.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				s.logger.Info("scheduler stopped")
				return ctx.Err()
			}
			s.logger.Error("scheduler cycle failed", "error", err, "backoff", s.faultBackoff)
			select {
			case <-ctx.Done():
				s.logger.Info("scheduler stopped")
				return ctx.Err()
			case <-time.After(s.faultBackoff):
			}
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) error {
	interval, err := s.intervals.AutoUpdateInterval(ctx)
	if err != nil {
		return err
	}

	now := s.now()

	s.mu.Lock()
	next := now
	if s.lastRun != 0 {
		next = time.Unix(s.lastRun, 0).Add(interval)
	}
	s.nextRun = next.Unix()
	s.mu.Unlock()

	if wait := next.Sub(now); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		case <-s.trigger:
			timer.Stop()
			s.logger.Info("manual trigger received, starting pass early")
		}
	}

	started := s.now()
	s.mu.Lock()
	s.lastRun = started.Unix()
	s.nextRun = started.Add(interval).Unix()
	s.isRunning = true
	s.mu.Unlock()

	err = s.syncer.SyncAll(ctx)

	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()

	// A trigger raised while the pass was executing is already covered by
	// that pass; drop it so it does not queue a second immediate run.
	select {
	case <-s.trigger:
	default:
	}

	if err != nil {
		return err
	}
	return ctx.Err()
}
