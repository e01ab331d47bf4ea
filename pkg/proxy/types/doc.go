// Package types defines the wire types for the relay HTTP surface.
//
// This package contains the data transfer objects used for HTTP
// request/response handling. It has no dependencies on the relay engine
// or storage layers so handlers and clients can share the shapes freely.
//
// # Core Types
//
// Request types:
//   - RelayChatRequest: Main request body for /v1/relay/chat
//   - SupplierRequest: Target selection for the supplier endpoints
//
// Response types:
//   - APIResponse: Success/failure envelope for the supplier endpoints
//   - ModelsData, ModelInfo: Model listing payloads
//   - ConnectionData: Connection probe payload
//   - ImportResult, PendingList, PendingCardResult: Remote import payloads
//   - VersionInfo: Build identification
//
// Error types:
//   - ChatError: Error body for the chat relay endpoint
//
// # Target selection
//
// RelayChatRequest and SupplierRequest name the upstream either by registry
// supplier or by an inline base_url/api_key pair. The supplier takes
// precedence when both are present. Message contents, tools, and tool
// choice are carried as json.RawMessage and forwarded verbatim; the relay
// never interprets them.
//
// # JSON Serialization
//
// All types use standard encoding/json with snake_case field names to
// match the client contract this service fronts.
package types
