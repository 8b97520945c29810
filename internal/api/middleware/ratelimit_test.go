package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/felixgeelhaar/gptutor/internal/api/middleware"
)

func TestRateLimiter_Burst(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.RateLimitConfig{RequestsPerMinute: 3, BurstMultiplier: 1})
	defer rl.Close()

	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/options", nil)
		req.RemoteAddr = ip + ":41000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		if code := do("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("request %d status = %d; want 200", i+1, code)
		}
	}
	if code := do("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("4th request status = %d; want 429", code)
	}

	// Each client has its own bucket.
	if code := do("10.0.0.2"); code != http.StatusOK {
		t.Errorf("other client status = %d; want 200", code)
	}
}

func TestRateLimiter_ForwardedFor(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.RateLimitConfig{RequestsPerMinute: 1, BurstMultiplier: 1})
	defer rl.Close()

	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(xff string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("203.0.113.7, 10.0.0.1"); code != http.StatusOK {
		t.Fatalf("first status = %d; want 200", code)
	}
	if code := send("203.0.113.7"); code != http.StatusTooManyRequests {
		t.Errorf("same client via proxy status = %d; want 429", code)
	}
	if code := send("198.51.100.1, 10.0.0.1"); code != http.StatusOK {
		t.Errorf("different client status = %d; want 200", code)
	}
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := middleware.DefaultRateLimitConfig()
	if cfg.RequestsPerMinute <= 0 {
		t.Error("RequestsPerMinute should be positive")
	}
	if cfg.BurstMultiplier <= 0 {
		t.Error("BurstMultiplier should be positive")
	}
}
