package types

import "encoding/json"

// RelayChatRequest is the request body for POST /v1/relay/chat.
//
// The upstream target comes either from a named registry supplier or from
// an inline base_url/api_key pair. When both are present the supplier wins
// so stored credentials cannot be overridden per call.
type RelayChatRequest struct {
	// Supplier is the name of a registry entry to relay through.
	Supplier string `json:"supplier,omitempty"`

	// BaseURL is an inline upstream endpoint, used when Supplier is empty.
	BaseURL string `json:"base_url,omitempty"`

	// APIKey is the bearer credential for an inline target.
	APIKey string `json:"api_key,omitempty"`

	// Model is the upstream model identifier.
	Model string `json:"model"`

	// Messages is the conversation history. Each element is forwarded to
	// the upstream verbatim; the relay never inspects message contents.
	Messages []json.RawMessage `json:"messages"`

	// Stream selects SSE streaming. Omitted means streaming, matching the
	// client contract this service fronts.
	Stream *bool `json:"stream,omitempty"`

	// Temperature is forwarded when present.
	Temperature *float64 `json:"temperature,omitempty"`

	// Tools is forwarded verbatim when present.
	Tools []json.RawMessage `json:"tools,omitempty"`

	// ToolChoice is forwarded verbatim when present.
	ToolChoice json.RawMessage `json:"tool_choice,omitempty"`
}

// WantsStream reports whether the caller asked for a streaming response.
// An omitted stream field counts as a request to stream.
func (r *RelayChatRequest) WantsStream() bool {
	return r.Stream == nil || *r.Stream
}

// HasTarget reports whether the request names any upstream target,
// either a registry supplier or an inline endpoint.
func (r *RelayChatRequest) HasTarget() bool {
	return r.Supplier != "" || r.BaseURL != ""
}

// SupplierRequest is the request body for POST /v1/suppliers/models and
// POST /v1/suppliers/test-connection. Target selection follows the same
// rules as RelayChatRequest.
type SupplierRequest struct {
	// Supplier is the name of a registry entry.
	Supplier string `json:"supplier,omitempty"`

	// BaseURL is an inline upstream endpoint, used when Supplier is empty.
	BaseURL string `json:"base_url,omitempty"`

	// APIKey is the bearer credential for an inline target.
	APIKey string `json:"api_key,omitempty"`
}

// HasTarget reports whether the request names any upstream target.
func (r *SupplierRequest) HasTarget() bool {
	return r.Supplier != "" || r.BaseURL != ""
}
