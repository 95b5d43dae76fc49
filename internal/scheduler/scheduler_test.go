package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobradar/internal/poller"
)

// --- Mock implementations ---

type CountingCycle struct {
	calls atomic.Int32
	err   error
	// inFlight detects overlapping cycles.
	inFlight atomic.Int32
	overlap  atomic.Bool
	delay    time.Duration
}

func (c *CountingCycle) Poll(ctx context.Context) (poller.Report, error) {
	if c.inFlight.Add(1) > 1 {
		c.overlap.Store(true)
	}
	defer c.inFlight.Add(-1)
	c.calls.Add(1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
		}
	}
	return poller.Report{}, c.err
}

type PanickingCycle struct {
	calls atomic.Int32
}

func (c *PanickingCycle) Poll(_ context.Context) (poller.Report, error) {
	c.calls.Add(1)
	panic("boom")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runFor(t *testing.T, s *Scheduler, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()
	time.Sleep(d)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on cancel, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not return within 2s after cancel")
	}
}

// --- Tests ---

func TestRun_CancelReturnsPromptly(t *testing.T) {
	c := &CountingCycle{}
	s := NewScheduler(c, Every(time.Hour), discardLogger())
	runFor(t, s, 100*time.Millisecond)

	if got := c.calls.Load(); got != 1 {
		t.Errorf("cycle calls = %d, want 1 (the immediate run)", got)
	}
}

func TestRun_CyclesRepeatOnSchedule(t *testing.T) {
	c := &CountingCycle{}
	s := NewScheduler(c, Every(50*time.Millisecond), discardLogger())

	// Immediate run plus at least two scheduled runs.
	runFor(t, s, 180*time.Millisecond)

	if got := c.calls.Load(); got < 3 {
		t.Errorf("cycle calls = %d, want >= 3", got)
	}
}

func TestRun_ErrorDoesNotStopLoop(t *testing.T) {
	c := &CountingCycle{err: errors.New("smtp exhausted")}
	s := NewScheduler(c, Every(30*time.Millisecond), discardLogger())
	runFor(t, s, 150*time.Millisecond)

	if got := c.calls.Load(); got < 2 {
		t.Errorf("cycle calls = %d, want >= 2 after a failing cycle", got)
	}
}

func TestRun_PanicDoesNotStopLoop(t *testing.T) {
	c := &PanickingCycle{}
	s := NewScheduler(c, Every(30*time.Millisecond), discardLogger())
	runFor(t, s, 150*time.Millisecond)

	if got := c.calls.Load(); got < 2 {
		t.Errorf("cycle calls = %d, want >= 2 after a panicking cycle", got)
	}
}

func TestRun_CyclesNeverOverlap(t *testing.T) {
	// Each cycle outlasts the interval.
	c := &CountingCycle{delay: 60 * time.Millisecond}
	s := NewScheduler(c, Every(10*time.Millisecond), discardLogger())
	runFor(t, s, 250*time.Millisecond)

	if c.overlap.Load() {
		t.Error("cycles overlapped")
	}
	if got := c.calls.Load(); got < 2 {
		t.Errorf("cycle calls = %d, want >= 2", got)
	}
}

func TestParseSchedule(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 7, 0, 0, time.UTC)

	tests := []struct {
		expr     string
		interval time.Duration
		want     time.Time
	}{
		{"", 30 * time.Minute, base.Add(30 * time.Minute)},
		{"@every 30m", 0, base.Add(30 * time.Minute)},
		{"*/15 * * * *", 0, time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)},
		{"@hourly", 0, time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			sched, err := ParseSchedule(tt.expr, tt.interval)
			if err != nil {
				t.Fatalf("ParseSchedule(%q): %v", tt.expr, err)
			}
			if got := sched.Next(base); !got.Equal(tt.want) {
				t.Errorf("Next = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseSchedule_Invalid(t *testing.T) {
	if _, err := ParseSchedule("not-a-cron", time.Minute); err == nil {
		t.Error("expected error for invalid expression")
	}
	if _, err := ParseSchedule("", 0); err == nil {
		t.Error("expected error for zero interval")
	}
}

func TestAcquireLock_SecondHolderRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobradar.lock")

	first, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("first AcquireLock: %v", err)
	}

	if _, err := AcquireLock(path); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	if err := first.Unlock(); err != nil {
		t.Fatal(err)
	}
	again, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock after unlock: %v", err)
	}
	again.Unlock()
}
