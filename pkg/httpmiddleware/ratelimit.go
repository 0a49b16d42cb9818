package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures a sliding window Limiter.
type RateLimitConfig struct {
	// Max is the number of requests a client may make per window.
	Max    int
	Window time.Duration
	// KeyFunc identifies the client. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Decision is the outcome of one Limiter.Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// window counts requests in the current fixed window and the one before
// it; the previous count is weighted by how much it still overlaps.
type window struct {
	start time.Time
	prev  float64
	curr  float64
}

// Limiter is a per-client sliding window rate limiter.
type Limiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	clients map[string]*window
}

// NewLimiter creates a Limiter.
func NewLimiter(cfg RateLimitConfig) *Limiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Limiter{cfg: cfg, clients: make(map[string]*window)}
}

// Allow records one request of key if it is within the limit.
func (l *Limiter) Allow(key string) Decision {
	now := l.cfg.Now()
	start := now.Truncate(l.cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.clients[key]
	switch {
	case !ok:
		w = &window{start: start}
		l.clients[key] = w
	case w.start.Equal(start):
	case start.Sub(w.start) == l.cfg.Window:
		w.prev, w.curr, w.start = w.curr, 0, start
	default:
		w.prev, w.curr, w.start = 0, 0, start
	}

	overlap := 1 - float64(now.Sub(start))/float64(l.cfg.Window)
	used := w.prev*overlap + w.curr
	d := Decision{ResetAt: start.Add(l.cfg.Window)}
	if used >= float64(l.cfg.Max) {
		return d
	}
	w.curr++
	d.Allowed = true
	d.Remaining = max(0, int(math.Floor(float64(l.cfg.Max)-used-1)))
	return d
}

// Sweep forgets clients idle for two windows.
func (l *Limiter) Sweep() {
	cutoff := l.cfg.Now().Add(-2 * l.cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.clients {
		if w.start.Before(cutoff) {
			delete(l.clients, key)
		}
	}
}

// Run sweeps idle clients every two windows until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(2 * l.cfg.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Middleware rejects over-limit requests with 429 and a failure envelope.
// Every response carries the X-RateLimit-* headers.
func (l *Limiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := l.Allow(l.cfg.KeyFunc(r))

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
			if !d.Allowed {
				wait := max(0, d.ResetAt.Sub(l.cfg.Now()))
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				WriteFailure(w, http.StatusTooManyRequests, "too many requests, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For address, then X-Real-IP, then
// the remote host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
