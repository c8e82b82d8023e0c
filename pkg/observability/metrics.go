// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the sqlgym practice engine.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets covers question-generation latencies, which are dominated
// by model inference: 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// SQLBuckets covers sandbox statement latencies: 1ms to 30s.
var SQLBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30}

var (
	// RequestsTotal counts all HTTP requests by method, route, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlgym_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlgym_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// SessionsActive tracks the number of live practice sessions.
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sqlgym_sessions_active",
			Help: "Active practice sessions",
		},
	)

	// SessionsReapedTotal counts sessions destroyed by the idle reaper.
	SessionsReapedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlgym_sessions_reaped_total",
			Help: "Sessions destroyed by the idle reaper",
		},
	)

	// GenerationsTotal counts question generations by difficulty and outcome.
	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlgym_generations_total",
			Help: "Question generation attempts",
		},
		[]string{"difficulty", "status"},
	)

	// GenerationDuration records end-to-end generation latency in seconds.
	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlgym_generation_duration_seconds",
			Help:    "Question generation latency",
			Buckets: LLMBuckets,
		},
		[]string{"difficulty"},
	)

	// ChecksTotal counts answer checks by verdict.
	ChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlgym_checks_total",
			Help: "Answer checks",
		},
		[]string{"verdict"},
	)

	// SandboxExecutionDuration records sandbox statement latency in seconds.
	SandboxExecutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlgym_sandbox_execution_duration_seconds",
			Help:    "Sandbox statement latency",
			Buckets: SQLBuckets,
		},
	)

	// RateLimitRejectedTotal counts generation requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlgym_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		SessionsActive,
		SessionsReapedTotal,
		GenerationsTotal,
		GenerationDuration,
		ChecksTotal,
		SandboxExecutionDuration,
		RateLimitRejectedTotal,
	)
}
