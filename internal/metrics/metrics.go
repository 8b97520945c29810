// Package metrics defines the Prometheus metrics exported by gptutord.
// Metrics are registered with the default registry when the package is
// loaded and served by promhttp on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gptutor"

// ── Completion metrics ───────────────────────────────────────────────────────

// CompletionRequestsTotal counts calls to the completion endpoint.
// Labels:
//   - provider: registry name of the provider (e.g. "openai")
//   - outcome: "ok" or "error"
var CompletionRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "completion_requests_total",
		Help:      "Total number of completion requests, by provider and outcome.",
	},
	[]string{"provider", "outcome"},
)

// CompletionDuration measures completion latency including retries.
var CompletionDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "completion_duration_seconds",
		Help:      "Duration of completion requests, including retries.",
		Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 60},
	},
	[]string{"provider"},
)

// ── Exercise metrics ─────────────────────────────────────────────────────────

// ExercisesStartedTotal counts persisted exercises.
// Label:
//   - level: the requested difficulty level
var ExercisesStartedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exercises_started_total",
		Help:      "Total number of exercises generated and persisted, by level.",
	},
	[]string{"level"},
)

// ExerciseFailuresTotal counts exercise requests that produced nothing.
// Label:
//   - reason: "validation", "upstream" or "store"
var ExerciseFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exercise_failures_total",
		Help:      "Total number of exercise requests that failed, by reason.",
	},
	[]string{"reason"},
)

// ── Auth metrics ─────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts register and login attempts.
// Labels:
//   - action: "register" or "login"
//   - outcome: "ok" or "failed"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts, by action and outcome.",
	},
	[]string{"action", "outcome"},
)

// ── HTTP metrics ─────────────────────────────────────────────────────────────

// HTTPRequestsTotal counts served HTTP requests.
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests, by method, route pattern and status code.",
	},
	[]string{"method", "route", "code"},
)

// HTTPRequestDuration measures handler latency.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests, by method and route pattern.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// ObserveCompletion records one completion call
func ObserveCompletion(provider string, err error, d time.Duration) {
	CompletionRequestsTotal.WithLabelValues(provider, outcome(err)).Inc()
	CompletionDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveAuth records one register or login attempt
func ObserveAuth(action string, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	AuthAttemptsTotal.WithLabelValues(action, result).Inc()
}

// ObserveHTTP records one served request
func ObserveHTTP(method, route string, code int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
