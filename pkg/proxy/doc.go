// Package proxy provides the HTTP plumbing shared by the relay handlers:
// request parsing with size caps, response writers for the three wire
// shapes (chat error body, supplier envelope, SSE frames), and the
// coercion of arbitrary errors into the closed relay error kinds.
//
// # Architecture
//
// The HTTP surface splits into:
//
//   - proxy: parse/write helpers and error coercion (this package)
//   - proxy/handlers: endpoint logic (chat relay, suppliers, imports, health)
//   - proxy/middleware: cross-cutting concerns (request ID, logging, recovery, CORS)
//   - proxy/types: wire DTOs shared by handlers and clients
//
// # Error Handling
//
// Handlers never invent error shapes. Local failures and upstream failures
// both surface as *relay.Error values and are written in one of three ways:
//
//   - Chat endpoint, buffered mode: {"error": {"message", "code"}} with the
//     translated HTTP status.
//   - Chat endpoint, stream mode: exactly one SSE error frame, because the
//     status line is already committed.
//   - Supplier endpoints: {"success": false, "error", "error_code"} with the
//     translated HTTP status.
//
// AsRelayError guarantees that unclassified errors fall back to
// INTERNAL_ERROR instead of leaking internals to the caller.
//
// # Request Flow
//
//  1. Client sends a relay request to /v1/relay/chat
//  2. Middleware chain processes it (recovery → logging → request ID → CORS)
//  3. ParseRelayChatRequest enforces the body cap and target selection rules
//  4. The handler resolves the target and calls the relay engine
//  5. The response is written buffered or streamed per the request mode
//
// # Streaming
//
// Once SetSSEHeaders runs, the response is a byte stream. WriteSSEChunk
// forwards upstream bytes verbatim (the upstream's own SSE framing is
// preserved) and WriteSSEErrorFrame is the sole failure vehicle.
package proxy
