// Package ratelimit implements fixed-window admission control keyed by a
// caller identifier, plus a registry of independently configured named
// limiters for the HTTP layer.
package ratelimit

import (
	"sync"
	"time"
)

// Config configures a Limiter.
type Config struct {
	// Window is the fixed counting interval. Default 1 minute.
	Window time.Duration

	// Max is the number of requests admitted per window. Default 100.
	Max int

	// KeyFunc maps a caller identifier to the storage key. Identity by
	// default.
	KeyFunc func(identifier string) string

	// Reserved for API compatibility with middleware that distinguishes
	// request outcomes; not consulted by Check.
	SkipSuccessfulRequests bool
	SkipFailedRequests     bool
}

// Result is the outcome of a Check call. A denial is a normal result, not an
// error; RetryAfter is only set when Allowed is false.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Window is a snapshot of one identifier's current counting window.
type Window struct {
	Count   int
	ResetAt time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per identifier in fixed, non-overlapping windows.
// Check is both the admission test and the consumption of one unit of quota,
// so callers must invoke it exactly once per admitted request.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	cfg     Config

	cleanup  *time.Ticker
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter creates a Limiter and starts a background goroutine that drops
// expired windows, bounding memory to recently active identifiers.
func NewLimiter(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Max <= 0 {
		cfg.Max = 100
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(id string) string { return id }
	}

	l := &Limiter{
		windows: make(map[string]*window),
		cfg:     cfg,
		cleanup: time.NewTicker(cfg.Window),
		stop:    make(chan struct{}),
	}
	go l.cleanupExpired()
	return l
}

// Check decides whether the identified caller may proceed and, when allowed,
// consumes one unit of quota. A denied check does not increment the counter.
func (l *Limiter) Check(identifier string) Result {
	key := l.cfg.KeyFunc(identifier)
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.cfg.Window)}
		l.windows[key] = w
	}

	if w.count >= l.cfg.Max {
		return Result{
			Allowed:    false,
			Limit:      l.cfg.Max,
			Remaining:  0,
			ResetAt:    w.resetAt,
			RetryAfter: w.resetAt.Sub(now),
		}
	}

	w.count++
	return Result{
		Allowed:   true,
		Limit:     l.cfg.Max,
		Remaining: l.cfg.Max - w.count,
		ResetAt:   w.resetAt,
	}
}

// Reset force-clears the window for an identifier, making a denied caller
// immediately eligible again.
func (l *Limiter) Reset(identifier string) {
	key := l.cfg.KeyFunc(identifier)

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Status returns a copy of the identifier's current window without side
// effects. The second return is false when no window exists.
func (l *Limiter) Status(identifier string) (Window, bool) {
	key := l.cfg.KeyFunc(identifier)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok {
		return Window{}, false
	}
	return Window{Count: w.count, ResetAt: w.resetAt}, true
}

// Limit returns the configured per-window maximum.
func (l *Limiter) Limit() int {
	return l.cfg.Max
}

// ActiveWindows returns the number of tracked identifiers.
func (l *Limiter) ActiveWindows() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// cleanupExpired periodically drops windows whose reset time has passed.
func (l *Limiter) cleanupExpired() {
	for {
		select {
		case <-l.cleanup.C:
			now := time.Now()
			l.mu.Lock()
			for key, w := range l.windows {
				if !now.Before(w.resetAt) {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// Stop halts the cleanup goroutine.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		l.cleanup.Stop()
		close(l.stop)
	})
}
