// Package handlers provides the HTTP endpoint handlers for the relay
// server.
//
// Each handler is a plain http.Handler constructed with its dependencies
// and mounted by pkg/server. The package covers four endpoint groups:
//
// Chat relay:
//   - ChatHandler: POST /v1/relay/chat, buffered and SSE streaming
//
// Supplier probes:
//   - ModelsHandler: POST /v1/suppliers/models
//   - TestConnectionHandler: POST /v1/suppliers/test-connection
//
// Remote import:
//   - ImportHandler: POST /v1/import/remote
//   - PendingListHandler: GET /v1/import/remote/pending
//   - PendingCardHandler: GET /v1/import/remote/pending/{id}
//
// Probes and build identity:
//   - HealthHandler: GET /health (liveness)
//   - ReadyHandler: GET /ready (registry loaded, audit store reachable)
//   - VersionHandler: GET /version
//
// # Target selection
//
// The chat and supplier endpoints accept the upstream target two ways: a
// registry supplier name, or an inline base_url/api_key pair. A named
// supplier wins when both are present. The resolved label (the supplier
// name, or "inline") identifies the target in logs, metrics, and audit
// records; inline credentials themselves are never logged or persisted.
//
// # Error surfaces
//
// The chat endpoint reports failures in the OpenAI-style error body:
//
//	{"error": {"message": "...", "code": "UPSTREAM_ERROR"}}
//
// with the translated HTTP status. Once a streaming response has
// committed, failures instead travel as a single framed SSE event:
//
//	event: error
//	data: {"code": "TIMEOUT", "message": "..."}
//
// The supplier and pending endpoints use the API envelope:
//
//	{"success": false, "error": "...", "error_code": "UNAUTHORIZED"}
//
// Card submissions are different again: import failures answer 200 with
// the failure code in the body, so the submitting client can always parse
// the outcome.
//
// # Accounting
//
// Every relay operation (chat, chat_stream, models, test_connection)
// lands in the Prometheus collector and, when a recorder is wired, as one
// audit record. Request bodies are used for byte counts and optional
// hashes only.
package handlers
