// Package telemetry groups the observability packages for Charon.
//
// Components:
//
//   - logging: structured slog logging with credential redaction and
//     request-scoped context fields
//   - metrics: Prometheus metrics for relay traffic and the /metrics
//     handler
//
// Both are wired in cmd/charon at startup: the logger is installed as
// the process slog default, and the metrics collector is handed to the
// server for handler wiring.
package telemetry
