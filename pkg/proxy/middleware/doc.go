// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// This package implements middleware functions shared by every endpoint:
// request ID generation, structured request logging, CORS, and panic
// recovery.
//
// # Middleware Chain
//
// The server wires the chain as:
//
//	handler = Recovery(Logging(RequestID(CORS(handler))))
//
// Recovery sits outermost so a panic anywhere below still produces a
// well-formed 500 and a logged stack trace. There is deliberately no
// per-request timeout middleware: the relay engine owns its upstream
// timeout budget, and a server-side write timeout would kill long-lived
// SSE streams.
//
// # Request ID
//
// RequestIDMiddleware attaches 32 hex characters of crypto/rand entropy to
// each request (or honors a client-supplied X-Request-ID):
//
//	X-Request-ID: 6f2a1c09e3b44dd2a67c1f20c4b1a9d3
//
// The ID is stored in the context, echoed in the response headers, and
// carried on every log line for the request.
//
// # Logging
//
// LoggingMiddleware emits one structured line per request via log/slog:
//
//	{
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "method": "POST",
//	  "path": "/v1/relay/chat",
//	  "status": 200,
//	  "latency_ms": 1250,
//	  "bytes": 2048,
//	  "request_id": "6f2a1c09..."
//	}
//
// Completion level follows the response status: 5xx at error, 4xx at warn.
// The wrapper passes Flush through so streaming responses are unaffected.
//
// # Recovery
//
// RecoveryMiddleware converts handler panics into the standard error body:
//
//	{
//	  "error": {
//	    "message": "An internal error occurred. Please try again later.",
//	    "code": "INTERNAL_ERROR"
//	  }
//	}
//
// The panic value and stack trace are logged, never sent to the client.
//
// # CORS
//
// CORSMiddleware adds Cross-Origin Resource Sharing headers so browser
// clients can call the relay directly. The default configuration allows
// the X-Charon-Version header used by the remote import gate.
package middleware
