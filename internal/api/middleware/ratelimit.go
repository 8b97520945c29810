package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/felixgeelhaar/gptutor/internal/api/respond"
)

// RateLimitConfig configures per-client rate limiting
type RateLimitConfig struct {
	// Requests per minute for each client IP
	RequestsPerMinute int
	// Burst size multiplier (burst = rate * multiplier)
	BurstMultiplier int
}

// DefaultRateLimitConfig returns the defaults used by gptutord
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 60,
		BurstMultiplier:   3,
	}
}

// RateLimiter limits requests per client IP with a fortify token bucket.
type RateLimiter struct {
	limiter ratelimit.RateLimiter
}

// NewRateLimiter creates a limiter. Close releases its resources.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultRateLimitConfig().RequestsPerMinute
	}
	if cfg.BurstMultiplier <= 0 {
		cfg.BurstMultiplier = 1
	}

	return &RateLimiter{
		limiter: ratelimit.New(&ratelimit.Config{
			Rate:     cfg.RequestsPerMinute,
			Burst:    cfg.RequestsPerMinute * cfg.BurstMultiplier,
			Interval: time.Minute,
		}),
	}
}

// Handler rejects requests over the limit with 429.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)

		if !rl.limiter.Allow(r.Context(), key) {
			slog.Warn("rate limit exceeded",
				"ip", key,
				"path", r.URL.Path,
				"request_id", GetRequestID(r.Context()),
			)
			w.Header().Set("Retry-After", strconv.Itoa(60))
			respond.TooManyRequests(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Close stops the limiter
func (rl *RateLimiter) Close() error {
	return rl.limiter.Close()
}

// clientIP extracts the client IP address from the request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
