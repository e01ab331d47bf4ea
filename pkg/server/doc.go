// Package server assembles Charon's HTTP surface and manages its lifecycle.
//
// This package ties together the relay handlers, the import surface, the
// operational probes, and the middleware chain, and provides server
// lifecycle management including start, shutdown, and OS signal handling.
//
// # Basic Usage
//
// Creating and starting a server:
//
//	import (
//	    "context"
//	    "styx-hq/charon/pkg/config"
//	    "styx-hq/charon/pkg/relay"
//	    "styx-hq/charon/pkg/server"
//	)
//
//	cfg := config.GetConfig()
//
//	srv := server.NewServer(cfg, server.Deps{
//	    Relay: relay.New(relay.Options{}),
//	})
//	if err := srv.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// Start blocks until the context is cancelled, a SIGINT/SIGTERM arrives,
// Stop is called, or the listener fails.
//
// # Routes
//
// The server exposes the following HTTP endpoints:
//
//   - POST /v1/relay/chat - Chat relay (buffered and SSE streaming)
//   - POST /v1/suppliers/models - Model listing for a submitted endpoint
//   - POST /v1/suppliers/test-connection - Connection test for a submitted endpoint
//   - POST /v1/import/remote - Remote card import submission
//   - GET /v1/import/remote/pending - List staged imports
//   - GET /v1/import/remote/pending/{id} - Collect one staged import
//   - GET /health - Liveness probe (always returns 200)
//   - GET /ready - Readiness probe (registry snapshot + audit store reachability)
//   - GET /version - Build identity
//   - GET /metrics - Prometheus metrics (when enabled)
//
// Probe and metrics paths are configurable through the telemetry section.
// The import endpoints are mounted only when an import store is supplied.
//
// # Middleware Chain
//
// Requests pass through the following middleware (innermost to outermost):
//  1. CORS: Adds Cross-Origin Resource Sharing headers
//  2. RequestID: Generates unique request ID for tracing
//  3. Logging: Logs request/response details
//  4. Recovery: Recovers from panics and returns 500 error
//
// There is no per-request timeout middleware: the relay owns its upstream
// budgets, and a blanket handler deadline would sever SSE streams. For the
// same reason the HTTP server's WriteTimeout defaults to zero.
//
// # TLS Support
//
// The server supports TLS 1.3 with configurable certificates:
//
//	server:
//	  tls:
//	    enabled: true
//	    cert_file: "/path/to/cert.pem"
//	    key_file: "/path/to/key.pem"
//
// TLS configuration enforces:
//   - TLS 1.3 minimum version
//   - Secure cipher suites only
//   - Server cipher suite preference
//
// # Graceful Shutdown
//
// On shutdown the server stops accepting new connections and waits up to
// server.shutdown_timeout for in-flight requests (including open streams)
// to finish before forcing connections closed. Component lifecycles (the
// registry watcher, the audit recorder, the stores) belong to the caller
// that constructed them.
//
// # Thread Safety
//
// All server operations are thread-safe and can be called concurrently from
// multiple goroutines.
package server
