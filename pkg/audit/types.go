package audit

import (
	"context"
	"io"
	"time"
)

// Operation labels used in audit records. Every relay call records
// exactly one of these.
const (
	// OpChat is a buffered chat completion relay.
	OpChat = "chat"

	// OpChatStream is a streaming chat completion relay.
	OpChatStream = "chat_stream"

	// OpModels is a model listing call.
	OpModels = "models"

	// OpTestConnection is a supplier connectivity check.
	OpTestConnection = "test_connection"
)

// SupplierInline is the supplier label recorded when the caller provided
// the target inline instead of naming a registry entry.
const SupplierInline = "inline"

// Record is the audit trail entry for a single relay operation. It captures
// where the request went and how it ended, never what it said: bodies are
// reduced to byte counts and optional hashes, and the target URL is stored
// with credentials redacted. API keys are never persisted.
type Record struct {
	// Identity
	ID        string `json:"id"`         // UUID v4
	RequestID string `json:"request_id"` // From proxy

	// Timestamp is when the operation finished.
	Timestamp time.Time `json:"timestamp"`

	// Target
	Supplier  string `json:"supplier"`        // Registry name or "inline"
	Operation string `json:"operation"`       // chat, chat_stream, models, test_connection
	Model     string `json:"model,omitempty"` // Requested model, when the operation has one
	TargetURL string `json:"target_url"`      // Upstream base URL, credentials redacted

	// Outcome
	UpstreamStatus int    `json:"upstream_status"`      // HTTP status from upstream, 0 when never reached
	ErrorKind      string `json:"error_kind,omitempty"` // Relay error kind, empty on success
	DurationMS     int64  `json:"duration_ms"`          // Wall time for the whole operation

	// Body accounting
	RequestBytes  int64  `json:"request_bytes"`
	ResponseBytes int64  `json:"response_bytes"`
	RequestHash   string `json:"request_hash,omitempty"`  // SHA-256, when hashing is enabled
	ResponseHash  string `json:"response_hash,omitempty"` // SHA-256, when hashing is enabled

	// Stream reports whether the response was relayed as SSE.
	Stream bool `json:"stream"`
}

// Succeeded reports whether the recorded operation completed without a
// relay error.
func (r *Record) Succeeded() bool {
	return r.ErrorKind == ""
}

// Query defines filter parameters for querying audit records.
type Query struct {
	// Time range
	StartTime *time.Time `json:"start_time,omitempty"` // Inclusive start time
	EndTime   *time.Time `json:"end_time,omitempty"`   // Inclusive end time

	// Filters
	Supplier  string `json:"supplier,omitempty"`  // Filter by supplier label
	Operation string `json:"operation,omitempty"` // Filter by operation
	Kind      string `json:"kind,omitempty"`      // Filter by error kind
	Model     string `json:"model,omitempty"`     // Filter by model

	// Status filters on outcome: "success" or "error".
	Status string `json:"status,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`  // Max records to return
	Offset int `json:"offset,omitempty"` // Skip N records
}

// Storage defines the interface for audit storage backends.
// Implementations must be thread-safe and support concurrent access.
type Storage interface {
	// Store persists an audit record.
	// Returns an error if the record cannot be written.
	Store(ctx context.Context, record *Record) error

	// Query retrieves audit records matching the query filters,
	// newest first. Returns an empty slice if no records match.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of audit records matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes audit records matching the query filters.
	// Returns the number of records deleted.
	// Used for retention policy enforcement.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases any resources held by the storage backend.
	Close() error
}

// Exporter defines the interface for exporting audit records.
type Exporter interface {
	// Export writes audit records to the provided writer in the
	// exporter's format. Returns an error if the export fails.
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
