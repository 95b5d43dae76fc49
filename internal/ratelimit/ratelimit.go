package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/jobradar/internal/model"
)

// SourceLimiter enforces a minimum delay between consecutive queries against
// the same listing site. The delay runs from the end of one query (Done) to
// the start of the next (Wait). The first query to a source is never delayed.
type SourceLimiter struct {
	mu       sync.Mutex
	limiters map[model.Source]*rate.Limiter
	minDelay time.Duration
}

// NewSourceLimiter creates a limiter that spaces queries to each source by
// at least minDelay. A non-positive minDelay disables waiting.
func NewSourceLimiter(minDelay time.Duration) *SourceLimiter {
	return &SourceLimiter{
		limiters: make(map[model.Source]*rate.Limiter),
		minDelay: minDelay,
	}
}

func (l *SourceLimiter) limiterFor(src model.Source) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[src]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Every(l.minDelay), 1)
	l.limiters[src] = lim
	return lim
}

// Wait blocks until a query to src is allowed.
// Returns an error if the context is cancelled while waiting.
func (l *SourceLimiter) Wait(ctx context.Context, src model.Source) error {
	if l.minDelay <= 0 {
		return ctx.Err()
	}
	if err := l.limiterFor(src).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", src, err)
	}
	return nil
}

// Done marks the end of a query to src and restarts its delay from now, so a
// slow response never eats into the gap before the next query.
func (l *SourceLimiter) Done(src model.Source) {
	if l.minDelay <= 0 {
		return
	}
	now := time.Now()
	lim := rate.NewLimiter(rate.Every(l.minDelay), 1)
	lim.AllowN(now, 1) // drain the initial token

	l.mu.Lock()
	l.limiters[src] = lim
	l.mu.Unlock()
}
