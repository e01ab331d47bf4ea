// Package logging provides structured logging with credential redaction.
//
// The package wraps Go's standard log/slog:
//   - JSON (default) or text output, leveled, optional source locations
//   - Automatic masking of API keys, bearer tokens, and
//     credential-bearing URLs in messages and attribute values
//   - Request-scoped fields (request_id, supplier, model, operation)
//     carried through context and appended to every log line
//
// Usage:
//
//	logger, err := logging.New(logging.Config{
//	    Level:         "info",
//	    Format:        "json",
//	    RedactSecrets: true,
//	})
//	logger.Install() // becomes slog.Default for the whole process
//
//	ctx = logging.WithRequestID(ctx, requestID)
//	slog.InfoContext(ctx, "relay finished",
//	    "api_key", key, // masked to a 4-char hint
//	    "status", 200,
//	)
//
// Redaction lives in the slog handler, not the Logger methods, so any
// logger derived from the installed default inherits it.
package logging
