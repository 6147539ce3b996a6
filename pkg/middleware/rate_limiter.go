package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"nean/pkg/apierror"
)

// RateLimiter is a fixed-window per-client counter. All counters reset
// together when the window elapses.
type RateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	requests  map[string]int
	lastReset time.Time
	now       func() time.Time
	logger    *slog.Logger
}

func NewRateLimiter(limit int, window time.Duration, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		limit:     limit,
		window:    window,
		requests:  make(map[string]int),
		lastReset: time.Now(),
		now:       time.Now,
		logger:    logger,
	}
}

// Allow reports whether key may make another request in the current window.
// A non-positive limit disables limiting.
func (r *RateLimiter) Allow(key string) bool {
	if r.limit <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if now := r.now(); now.Sub(r.lastReset) >= r.window {
		r.requests = make(map[string]int)
		r.lastReset = now
	}

	count := r.requests[key]
	if count >= r.limit {
		return false
	}
	r.requests[key] = count + 1
	return true
}

func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ip := clientIP(req)
		if !r.Allow(ip) {
			r.logger.WarnContext(req.Context(), "rate limit exceeded",
				"ip", ip,
				"path", req.URL.Path,
				"request_id", GetReqID(req.Context()),
			)
			apierror.Write(w, GetReqID(req.Context()), apierror.New(apierror.KindTooManyRequests))
			return
		}

		next.ServeHTTP(w, req)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
