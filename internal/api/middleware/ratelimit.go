package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const (
	clientLimiterTTL = 10 * time.Minute
	clientSweepEvery = 5 * time.Minute
)

type clientEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// clientLimiter keeps one token bucket per client IP and forgets idle clients.
type clientLimiter struct {
	mu      sync.Mutex
	entries map[string]*clientEntry
	r       rate.Limit
	b       int
}

func newClientLimiter(ctx context.Context, r rate.Limit, b int) *clientLimiter {
	cl := &clientLimiter{
		entries: make(map[string]*clientEntry),
		r:       r,
		b:       b,
	}
	go cl.sweepLoop(ctx)
	return cl
}

func (l *clientLimiter) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(clientSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.sweep(now)
		}
	}
}

func (l *clientLimiter) sweep(now time.Time) {
	cutoff := now.Add(-clientLimiterTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, ip)
		}
	}
}

func (l *clientLimiter) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[ip]
	if !ok {
		e = &clientEntry{lim: rate.NewLimiter(l.r, l.b)}
		l.entries[ip] = e
	}
	e.lastSeen = now
	return e.lim
}

// RateLimit limits requests per client IP. rps <= 0 disables it. The idle
// client sweeper stops with ctx.
func RateLimit(ctx context.Context, rps float64, burst int) echo.MiddlewareFunc {
	if rps <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if burst < 1 {
		burst = int(math.Ceil(rps))
	}
	limiter := newClientLimiter(ctx, rate.Limit(rps), burst)
	retryAfter := strconv.Itoa(int(math.Ceil(1 / rps)))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.get(c.RealIP(), time.Now()).Allow() {
				c.Response().Header().Set("Retry-After", retryAfter)
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
