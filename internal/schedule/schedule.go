// Package schedule runs a dashboard's periodic refresh: a fixed interval
// plus one extra run just after the next local midnight.
package schedule

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MidnightOffset is how long after midnight the one-shot run fires.
const MidnightOffset = 5 * time.Second

// Task is the scheduled work. It receives the scheduler's context, which is
// cancelled on Stop.
type Task func(ctx context.Context)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
		s.after = after
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithoutMidnight disables the midnight one-shot.
func WithoutMidnight() Option {
	return func(s *Scheduler) { s.midnight = false }
}

// Scheduler runs a Task until stopped. The zero value is not usable; call New.
type Scheduler struct {
	interval time.Duration
	midnight bool
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a stopped scheduler.
func New(interval time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		interval: interval,
		midnight: true,
		now:      time.Now,
		after:    time.After,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.Named("schedule")
	return s
}

// NextMidnight returns MidnightOffset past the next local midnight after now.
func NextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location()).Add(MidnightOffset)
}

// Start launches the loop. Calling Start on a running scheduler restarts it.
func (s *Scheduler) Start(ctx context.Context, task Task) {
	s.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.run(ctx, cancel, task, done)
}

func (s *Scheduler) run(ctx context.Context, cancel context.CancelFunc, task Task, done chan struct{}) {
	defer func() {
		cancel()
		s.mu.Lock()
		if s.done == done {
			s.cancel, s.done = nil, nil
		}
		s.mu.Unlock()
		close(done)
	}()

	var midnight <-chan time.Time
	if s.midnight {
		now := s.now()
		midnight = s.after(NextMidnight(now).Sub(now))
	}
	tick := s.after(s.interval)
	s.logger.Debug("scheduler started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("scheduler stopped")
			return
		case <-tick:
			task(ctx)
			tick = s.after(s.interval)
		case <-midnight:
			s.logger.Debug("midnight refresh")
			task(ctx)
			midnight = nil
		}
	}
}

// Running reports whether the loop is active. It turns false once the
// loop ends, whether through Stop or the Start context.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Stop cancels the loop and waits for it to exit. Safe to call repeatedly.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
