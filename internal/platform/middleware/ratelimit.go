package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ipWindow is one IP's fixed-window counter.
type ipWindow struct {
	count   int
	resetAt time.Time
}

// RateLimiter applies a fixed-window per-IP limit. It protects the public
// endpoints (application intake, data-subject requests) from abuse; the HR
// back office sits behind authentication and is not limited.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*ipWindow

	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		windows: make(map[string]*ipWindow),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// allow counts one request for ip and reports whether it fits the window,
// plus the remaining quota and when the window resets.
func (l *RateLimiter) allow(ip string) (allowed bool, remaining int, resetAt time.Time) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[ip]
	if !ok || now.After(w.resetAt) {
		// Window rollover doubles as cleanup opportunity for idle IPs.
		if len(l.windows) > 10000 {
			for k, v := range l.windows {
				if now.After(v.resetAt) {
					delete(l.windows, k)
				}
			}
		}
		w = &ipWindow{resetAt: now.Add(l.window)}
		l.windows[ip] = w
	}

	if w.count >= l.limit {
		return false, 0, w.resetAt
	}
	w.count++
	return true, l.limit - w.count, w.resetAt
}

// Middleware enforces the limit and exposes the standard rate limit headers.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIPFromRequest(r)

		allowed, remaining, resetAt := l.allow(ip)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Muitas requisições, tente novamente em instantes"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
