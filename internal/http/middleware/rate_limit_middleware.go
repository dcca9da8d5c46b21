package middleware

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/site-analyzer/portal/internal/http/response"
	"github.com/site-analyzer/portal/internal/observability"
)

// RateLimiter is a fixed-window counter per client address. It sits in
// front of every route, ahead of all token and role checks.
type RateLimiter struct {
	limit  int
	window time.Duration
	scope  string

	mu      sync.Mutex
	windows map[string]*windowState
	cleanup time.Time
}

type windowState struct {
	count   int
	startAt time.Time
}

func NewRateLimiter(limit int, window time.Duration, scope string) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if scope == "" {
		scope = "api"
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		scope:   scope,
		windows: make(map[string]*windowState),
		cleanup: time.Now().Add(window),
	}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIPKey(r)
			allowed, remaining, resetAt := rl.allow(key, time.Now())

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt.Unix()))

			if !allowed {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "deny")
				retry := int(time.Until(resetAt).Round(time.Second).Seconds())
				if retry <= 0 {
					retry = 1
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retry))
				response.Error(w, http.StatusTooManyRequests, "too many requests from this IP, please try again later")
				return
			}
			observability.RecordRateLimitDecision(r.Context(), rl.scope, "allow")
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) allow(key string, now time.Time) (allowed bool, remaining int, resetAt time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.After(rl.cleanup) {
		for k, st := range rl.windows {
			if now.Sub(st.startAt) > 2*rl.window {
				delete(rl.windows, k)
			}
		}
		rl.cleanup = now.Add(rl.window)
	}

	st, ok := rl.windows[key]
	if !ok || now.Sub(st.startAt) >= rl.window {
		st = &windowState{startAt: now}
		rl.windows[key] = st
	}
	resetAt = st.startAt.Add(rl.window)
	if st.count >= rl.limit {
		return false, 0, resetAt
	}
	st.count++
	return true, rl.limit - st.count, resetAt
}

func clientIPKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
