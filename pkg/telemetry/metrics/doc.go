// Package metrics provides Prometheus metrics for relay traffic.
//
// The Collector owns a registry and the relay metric set; handlers
// record through it and the server mounts Collector.Handler on
// /metrics (OpenMetrics encoding enabled).
//
// Metrics, under the configured namespace/subsystem (default
// styx_charon):
//
//   - requests_total{supplier,operation,code}: completed requests
//   - request_duration_seconds{supplier,operation}: duration histogram
//   - upstream_errors_total{kind}: failures by relay error kind
//   - stream_chunks_total{supplier} / stream_bytes_total{supplier}:
//     SSE relay volume
//   - active_streams{supplier}: streams currently open
//   - payload_bytes{operation,direction}: body size histogram
//
// Usage:
//
//	collector := metrics.NewCollector(cfg, nil)
//	collector.RecordRequest("openrouter", "chat", "200", 1200*time.Millisecond)
//	collector.RecordUpstreamError("RATE_LIMITED")
//
// The supplier label is bounded by a cardinality limiter; values past
// the cap aggregate into "other". The operation, code, and kind labels
// are closed sets.
package metrics
