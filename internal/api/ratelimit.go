package api

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig configures the per-key sliding window, mirroring
// internal/config.RateLimitConfig's shape (kept independent so this
// package doesn't need to import internal/config directly).
type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int
}

// DefaultRateLimit matches spec.md §6's "default 100 req/60 s".
func DefaultRateLimit() RateLimitConfig {
	return RateLimitConfig{Window: 60 * time.Second, MaxRequests: 100}
}

// slidingWindowLimiters tracks one request-timestamp log per API key.
// A true sliding window (rather than golang.org/x/time/rate's token
// bucket) is used deliberately here: spec.md §6 requires exact
// X-RateLimit-Remaining/X-RateLimit-Reset semantics tied to a rolling
// count of requests within the last Window, which a token bucket's
// continuous refill rate cannot report directly.
type slidingWindowLimiters struct {
	mu     sync.Mutex
	cfg    RateLimitConfig
	byKey  map[string][]time.Time
}

func newSlidingWindowLimiters(cfg RateLimitConfig) *slidingWindowLimiters {
	if cfg.Window <= 0 {
		cfg.Window = DefaultRateLimit().Window
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultRateLimit().MaxRequests
	}
	return &slidingWindowLimiters{cfg: cfg, byKey: make(map[string][]time.Time)}
}

// allow records a request for key at now, evicting timestamps that have
// aged out of the window, and reports whether the request is within the
// limit along with the remaining count and the time the oldest
// in-window request will expire.
func (l *slidingWindowLimiters) allow(key string, now time.Time) (ok bool, remaining int, reset time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.cfg.Window)
	times := l.byKey[key]
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.cfg.MaxRequests {
		l.byKey[key] = kept
		resetAt := kept[0].Add(l.cfg.Window)
		return false, 0, resetAt
	}

	kept = append(kept, now)
	l.byKey[key] = kept
	remaining = l.cfg.MaxRequests - len(kept)
	resetAt := kept[0].Add(l.cfg.Window)
	return true, remaining, resetAt
}

// rateLimit enforces the sliding window per authenticated API key (or per
// client IP when auth is disabled), setting X-RateLimit-* headers on
// every response per spec.md §6.
func (c *Controller) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		key, _ := ctx.Get("apiKeyID").(string)
		if key == "" {
			key = ctx.RealIP()
		}

		ok, remaining, reset := c.limiters.allow(key, time.Now())

		ctx.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(c.limiters.cfg.MaxRequests))
		ctx.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		ctx.Response().Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !ok {
			return writeError(ctx, codeRateLimitExceeded, "rate limit exceeded", 429)
		}
		return next(ctx)
	}
}
