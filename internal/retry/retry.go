package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"
)

// SleepFunc blocks for d or until ctx is done. Delivery code takes one as a
// dependency so tests can run the retry state machine without waiting.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the wall-clock SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry cancelled: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}

// Linear grows the delay linearly with the attempt number.
// Delay = Base * attempt, capped at Max when Max > 0.
type Linear struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the wait before the attempt following attempt (1-indexed).
func (l Linear) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	d := l.Base * time.Duration(attempt)
	if l.Max > 0 && d > l.Max {
		return l.Max
	}
	return d
}

// IsNetworkError reports whether err is a connection-level failure such as a
// refused connection, an unreachable network or a timeout.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
