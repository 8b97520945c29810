package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestDefaultResilientConfig(t *testing.T) {
	cfg := DefaultResilientConfig()

	if !cfg.EnableCircuitBreaker || !cfg.EnableRetry || !cfg.EnableBulkhead {
		t.Errorf("DefaultResilientConfig() = %+v, want all patterns enabled", cfg)
	}
	if cfg.MaxConcurrent != 5 {
		t.Errorf("MaxConcurrent = %d, want 5", cfg.MaxConcurrent)
	}
}

func TestResilientProvider_Generate_Success(t *testing.T) {
	mock := &mockProvider{name: "mock", response: &Response{Content: "ok"}}
	rp := NewResilientProvider(mock, DefaultResilientConfig())

	if rp.Name() != "mock" {
		t.Errorf("Name() = %v, want mock", rp.Name())
	}

	got, err := rp.Generate(context.Background(), &Request{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Content != "ok" {
		t.Errorf("Content = %v, want ok", got.Content)
	}
	if mock.callCount() != 1 {
		t.Errorf("calls = %d, want 1", mock.callCount())
	}
}

func TestResilientProvider_RetriesOnce(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{"rate limited", &StatusError{Provider: "mock", StatusCode: 429}, 2},
		{"server error", &StatusError{Provider: "mock", StatusCode: 503}, 2},
		{"unauthorized", &StatusError{Provider: "mock", StatusCode: 401}, 1},
		{"network", errors.New("connection refused"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockProvider{name: "mock", err: tt.err}
			rp := NewResilientProvider(mock, ResilientConfig{
				EnableRetry: true,
				RetryDelay:  time.Millisecond,
			})

			if _, err := rp.Generate(context.Background(), &Request{}); err == nil {
				t.Fatal("Generate() expected error")
			}
			if mock.callCount() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", mock.callCount(), tt.wantCalls)
			}
		})
	}
}

func TestResilientProvider_Generate_NoPatterns(t *testing.T) {
	mock := &mockProvider{name: "mock", response: &Response{Content: "plain"}}
	rp := NewResilientProvider(mock, ResilientConfig{})

	got, err := rp.Generate(context.Background(), &Request{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Content != "plain" {
		t.Errorf("Content = %v, want plain", got.Content)
	}
}

func TestResilientProvider_CircuitOpens(t *testing.T) {
	mock := &mockProvider{name: "mock", err: errors.New("down")}
	rp := NewResilientProvider(mock, ResilientConfig{EnableCircuitBreaker: true})

	for i := 0; i < 5; i++ {
		_, _ = rp.Generate(context.Background(), &Request{})
	}

	// Trips after three consecutive failures
	if mock.callCount() != 3 {
		t.Errorf("calls = %d, want 3 before the circuit opened", mock.callCount())
	}
}

func TestIsRetryableHTTPError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("status 500"), false},
		{&StatusError{StatusCode: 429}, true},
		{&StatusError{StatusCode: 500}, true},
		{&StatusError{StatusCode: 502}, true},
		{&StatusError{StatusCode: 504}, true},
		{&StatusError{StatusCode: 400}, false},
		{fmt.Errorf("wrapped: %w", &StatusError{StatusCode: 503}), true},
	}

	for _, tt := range tests {
		if got := isRetryableHTTPError(tt.err); got != tt.want {
			t.Errorf("isRetryableHTTPError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
