package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func value(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestObserveCompletion(t *testing.T) {
	before := value(t, CompletionRequestsTotal.WithLabelValues("test", "error"))

	ObserveCompletion("test", errors.New("boom"), time.Second)
	ObserveCompletion("test", nil, time.Second)

	if got := value(t, CompletionRequestsTotal.WithLabelValues("test", "error")); got != before+1 {
		t.Errorf("error count = %v, want %v", got, before+1)
	}
	if got := value(t, CompletionRequestsTotal.WithLabelValues("test", "ok")); got < 1 {
		t.Errorf("ok count = %v, want >= 1", got)
	}
}

func TestObserveAuth(t *testing.T) {
	before := value(t, AuthAttemptsTotal.WithLabelValues("login", "failed"))
	ObserveAuth("login", errors.New("nope"))
	if got := value(t, AuthAttemptsTotal.WithLabelValues("login", "failed")); got != before+1 {
		t.Errorf("failed logins = %v, want %v", got, before+1)
	}
}

func TestObserveHTTP(t *testing.T) {
	ObserveHTTP("GET", "/health", 200, time.Millisecond)
	if got := value(t, HTTPRequestsTotal.WithLabelValues("GET", "/health", "200")); got < 1 {
		t.Errorf("http count = %v, want >= 1", got)
	}
}
