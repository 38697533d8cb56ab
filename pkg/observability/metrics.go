// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the gemgate gateway.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and model.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemgate_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "model"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gemgate_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method"},
	)

	// StreamingConnections tracks the number of active SSE streaming connections.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gemgate_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// ChunksTotal counts translated chunks emitted to callers by kind
	// (text, function_call, finish).
	ChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemgate_chunks_total",
			Help: "Translated chunks emitted",
		},
		[]string{"model", "kind"},
	)

	// DiagnosticsTotal counts translation diagnostics by code.
	DiagnosticsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemgate_translation_diagnostics_total",
			Help: "Translation diagnostics",
		},
		[]string{"code"},
	)

	// SkippedFramesTotal counts malformed stream records dropped by the
	// transport parser.
	SkippedFramesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gemgate_skipped_frames_total",
			Help: "Malformed stream records skipped",
		},
	)

	// BackendRequestsTotal counts requests sent to the Responses backend.
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemgate_backend_requests_total",
			Help: "Backend requests",
		},
		[]string{"model", "status"},
	)

	// BackendLatency records backend latency in seconds.
	BackendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gemgate_backend_latency_seconds",
			Help:    "Backend latency",
			Buckets: LLMBuckets,
		},
		[]string{"model"},
	)

	// BackendTokensTotal counts tokens processed by direction (input/output).
	BackendTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemgate_backend_tokens_total",
			Help: "Token count",
		},
		[]string{"model", "direction"},
	)

	// AuthRejectedTotal counts requests rejected by authentication.
	AuthRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gemgate_auth_rejected_total",
			Help: "Authentication rejections",
		},
	)

	// RateLimitRejectedTotal counts requests rejected by rate limiting,
	// by service tier.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemgate_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		ChunksTotal,
		DiagnosticsTotal,
		SkippedFramesTotal,
		BackendRequestsTotal,
		BackendLatency,
		BackendTokensTotal,
		AuthRejectedTotal,
		RateLimitRejectedTotal,
	)
}
