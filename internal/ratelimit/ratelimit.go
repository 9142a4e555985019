package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter - ограничитель исходящих запросов к API (sliding window).
// Safe for concurrent use; all page fetches of a search share one.
type Limiter struct {
	mu       sync.Mutex
	requests []time.Time
	limit    int
	window   time.Duration
}

type Config struct {
	RequestsPerMinute int
	// Window overrides the one minute window, mostly for tests.
	Window time.Duration
}

func New(cfg Config) *Limiter {
	limit := cfg.RequestsPerMinute
	if limit <= 0 {
		limit = 10
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	return &Limiter{
		limit:  limit,
		window: window,
	}
}

// Allow takes a slot if one is free right now.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.prune(now)
	if len(l.requests) >= l.limit {
		return false
	}
	l.requests = append(l.requests, now)
	return true
}

// Wait blocks until a slot is free or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()
		l.prune(now)
		if len(l.requests) < l.limit {
			l.requests = append(l.requests, now)
			l.mu.Unlock()
			return nil
		}
		// requests отсортированы по времени, первый освободится раньше всех
		wait := l.requests[0].Add(l.window).Sub(now)
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(time.Now())
	if rem := l.limit - len(l.requests); rem > 0 {
		return rem
	}
	return 0
}

func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	fresh := l.requests[:0]
	for _, t := range l.requests {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	l.requests = fresh
}
