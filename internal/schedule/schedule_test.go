package schedule_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blackwell-systems/bookdesk/internal/schedule"
)

// fakeClock hands out timer channels the test fires by duration.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers map[time.Duration][]chan time.Time
	armed  chan time.Duration
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now, timers: map[time.Duration][]chan time.Time{}, armed: make(chan time.Duration, 16)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.mu.Lock()
	c.timers[d] = append(c.timers[d], ch)
	c.mu.Unlock()
	c.armed <- d
	return ch
}

func (c *fakeClock) fire(t *testing.T, d time.Duration) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.timers[d]
	if len(list) == 0 {
		t.Fatalf("no timer armed for %v", d)
	}
	list[0] <- c.now
	c.timers[d] = list[1:]
}

func (c *fakeClock) waitArmed(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case got := <-c.armed:
		if got != d {
			t.Fatalf("armed %v, want %v", got, d)
		}
	case <-time.After(time.Second):
		t.Fatalf("timer for %v never armed", d)
	}
}

// --- NextMidnight ---

func TestNextMidnight(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	cases := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2024, 5, 15, 13, 0, 0, 0, loc), time.Date(2024, 5, 16, 0, 0, 5, 0, loc)},
		{time.Date(2024, 12, 31, 23, 59, 59, 0, loc), time.Date(2025, 1, 1, 0, 0, 5, 0, loc)},
		{time.Date(2024, 2, 28, 0, 0, 0, 0, loc), time.Date(2024, 2, 29, 0, 0, 5, 0, loc)},
	}
	for _, c := range cases {
		if got := schedule.NextMidnight(c.now); !got.Equal(c.want) {
			t.Errorf("NextMidnight(%v) = %v, want %v", c.now, got, c.want)
		}
	}
}

// --- Scheduler ---

func TestSchedulerRunsIntervalAndMidnight(t *testing.T) {
	now := time.Date(2024, 5, 15, 23, 0, 0, 0, time.Local)
	clock := newFakeClock(now)
	interval := 5 * time.Minute
	untilMidnight := schedule.NextMidnight(now).Sub(now)

	var runs atomic.Int32
	ran := make(chan struct{}, 8)
	s := schedule.New(interval, schedule.WithClock(clock.Now, clock.After))
	s.Start(context.Background(), func(context.Context) {
		runs.Add(1)
		ran <- struct{}{}
	})
	defer s.Stop()

	clock.waitArmed(t, untilMidnight)
	clock.waitArmed(t, interval)

	clock.fire(t, interval)
	<-ran
	clock.waitArmed(t, interval)

	clock.fire(t, untilMidnight)
	<-ran

	if got := runs.Load(); got != 2 {
		t.Errorf("runs = %d, want 2", got)
	}
}

func TestSchedulerStop(t *testing.T) {
	clock := newFakeClock(time.Now())
	s := schedule.New(time.Minute, schedule.WithClock(clock.Now, clock.After), schedule.WithoutMidnight())

	var runs atomic.Int32
	s.Start(context.Background(), func(context.Context) { runs.Add(1) })
	clock.waitArmed(t, time.Minute)
	if !s.Running() {
		t.Fatal("Running() = false after Start")
	}

	s.Stop()
	s.Stop()
	if s.Running() {
		t.Error("Running() = true after Stop")
	}
	clock.fire(t, time.Minute)
	time.Sleep(10 * time.Millisecond)
	if got := runs.Load(); got != 0 {
		t.Errorf("runs after Stop = %d, want 0", got)
	}
}

func TestSchedulerStopsWithParentContext(t *testing.T) {
	clock := newFakeClock(time.Now())
	s := schedule.New(time.Minute, schedule.WithClock(clock.Now, clock.After), schedule.WithoutMidnight())
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx, func(context.Context) {})
	clock.waitArmed(t, time.Minute)
	cancel()

	deadline := time.Now().Add(time.Second)
	for s.Running() {
		if time.Now().After(deadline) {
			t.Fatal("Running() = true after the parent context ended")
		}
		time.Sleep(time.Millisecond)
	}
	s.Stop() // must not block once the loop has exited
}

func TestSchedulerRestartAfterParentContext(t *testing.T) {
	clock := newFakeClock(time.Now())
	s := schedule.New(time.Minute, schedule.WithClock(clock.Now, clock.After), schedule.WithoutMidnight())
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx, func(context.Context) {})
	clock.waitArmed(t, time.Minute)
	cancel()

	ran := make(chan struct{}, 1)
	s.Start(context.Background(), func(context.Context) { ran <- struct{}{} })
	defer s.Stop()
	clock.waitArmed(t, time.Minute)
	if !s.Running() {
		t.Fatal("Running() = false after restart")
	}
	clock.fire(t, time.Minute) // the ended loop's timer
	clock.fire(t, time.Minute)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("restarted scheduler never ran")
	}
}
