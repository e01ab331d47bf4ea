package metrics

import (
	"time"

	"styx-hq/charon/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RelayMetrics tracks metrics for relay traffic.
//
// Metrics:
//   - styx_charon_requests_total: Requests by supplier, operation, code
//   - styx_charon_request_duration_seconds: Request duration histogram
//   - styx_charon_upstream_errors_total: Upstream failures by error kind
//   - styx_charon_stream_chunks_total: SSE chunks relayed per supplier
//   - styx_charon_stream_bytes_total: SSE bytes relayed per supplier
//   - styx_charon_active_streams: Streams currently open per supplier
//   - styx_charon_payload_bytes: Request/response payload size histogram
type RelayMetrics struct {
	// Total request count
	requestsTotal *prometheus.CounterVec

	// Request duration histogram
	requestDuration *prometheus.HistogramVec

	// Upstream failures by taxonomy kind
	upstreamErrors *prometheus.CounterVec

	// Stream chunk and byte counters
	streamChunks *prometheus.CounterVec
	streamBytes  *prometheus.CounterVec

	// Streams currently open
	activeStreams *prometheus.GaugeVec

	// Payload size in bytes
	payloadBytes *prometheus.HistogramVec
}

// NewRelayMetrics creates and registers relay metrics with the provided registry.
func NewRelayMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RelayMetrics {
	rm := &RelayMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of relay requests processed",
			},
			[]string{"supplier", "operation", "code"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Duration of relay requests in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"supplier", "operation"},
		),

		upstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "upstream_errors_total",
				Help:      "Total number of failed relay operations by error kind",
			},
			[]string{"kind"},
		),

		streamChunks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "stream_chunks_total",
				Help:      "Total number of SSE chunks relayed",
			},
			[]string{"supplier"},
		),

		streamBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "stream_bytes_total",
				Help:      "Total number of SSE bytes relayed",
			},
			[]string{"supplier"},
		),

		activeStreams: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "active_streams",
				Help:      "Number of SSE streams currently open",
			},
			[]string{"supplier"},
		),

		payloadBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "payload_bytes",
				Help:      "Size of relay payloads in bytes",
				Buckets:   prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to 4MB
			},
			[]string{"operation", "direction"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.upstreamErrors,
		rm.streamChunks,
		rm.streamBytes,
		rm.activeStreams,
		rm.payloadBytes,
	)

	return rm
}

// RecordRequest records a completed relay request.
//
// Parameters:
//   - supplier: Supplier label (registry name or "inline")
//   - operation: Relay operation ("chat", "chat_stream", "models")
//   - code: HTTP status code returned to the caller
//   - duration: Total request duration
func (rm *RelayMetrics) RecordRequest(supplier, operation, code string, duration time.Duration) {
	rm.requestsTotal.WithLabelValues(supplier, operation, code).Inc()
	rm.requestDuration.WithLabelValues(supplier, operation).Observe(duration.Seconds())
}

// RecordUpstreamError records a failed relay operation by error kind.
// Kind values come from the closed relay taxonomy, so the label stays
// bounded.
func (rm *RelayMetrics) RecordUpstreamError(kind string) {
	rm.upstreamErrors.WithLabelValues(kind).Inc()
}

// RecordStreamChunk records one relayed SSE chunk and its size.
func (rm *RelayMetrics) RecordStreamChunk(supplier string, sizeBytes int) {
	rm.streamChunks.WithLabelValues(supplier).Inc()
	if sizeBytes > 0 {
		rm.streamBytes.WithLabelValues(supplier).Add(float64(sizeBytes))
	}
}

// StreamOpened increments the active stream gauge for a supplier.
func (rm *RelayMetrics) StreamOpened(supplier string) {
	rm.activeStreams.WithLabelValues(supplier).Inc()
}

// StreamClosed decrements the active stream gauge for a supplier.
func (rm *RelayMetrics) StreamClosed(supplier string) {
	rm.activeStreams.WithLabelValues(supplier).Dec()
}

// RecordPayload records the size of a request or response body.
//
// Parameters:
//   - operation: Relay operation
//   - direction: "request" or "response"
//   - sizeBytes: Size in bytes
func (rm *RelayMetrics) RecordPayload(operation, direction string, sizeBytes int) {
	if sizeBytes > 0 {
		rm.payloadBytes.WithLabelValues(operation, direction).Observe(float64(sizeBytes))
	}
}
