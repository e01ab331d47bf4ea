package relay

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ChatRequest is a normalized chat-completion request. Messages and tool
// definitions are opaque JSON and pass through to the upstream unmodified.
// Optional fields use pointer or RawMessage types so that absence is
// representable: an absent optional is omitted from the outgoing body
// entirely, never serialized as null, since upstreams may reject
// unexpected null fields.
type ChatRequest struct {
	// Model is the upstream model identifier. Required.
	Model string

	// Messages is the ordered conversation, each element an opaque
	// message object. Required, relayed verbatim.
	Messages []json.RawMessage

	// Temperature is the optional sampling temperature.
	Temperature *float64

	// Tools is the optional sequence of opaque tool definitions.
	Tools []json.RawMessage

	// ToolChoice is the optional opaque tool-choice value.
	ToolChoice json.RawMessage
}

// Validate checks the fields the relay itself requires. Target
// validation (credential, base URL) is separate and happens on every
// operation.
func (r *ChatRequest) Validate() error {
	if strings.TrimSpace(r.Model) == "" {
		return NewError(KindValidation, "Model must not be empty")
	}
	if len(r.Messages) == 0 {
		return NewError(KindValidation, "Messages must not be empty")
	}
	return nil
}

// chatBody is the wire form POSTed to {base}/v1/chat/completions. The
// omitempty tags carry the omit-if-absent contract for optional fields.
type chatBody struct {
	Model       string            `json:"model"`
	Messages    []json.RawMessage `json:"messages"`
	Stream      bool              `json:"stream"`
	Temperature *float64          `json:"temperature,omitempty"`
	Tools       []json.RawMessage `json:"tools,omitempty"`
	ToolChoice  json.RawMessage   `json:"tool_choice,omitempty"`
}

// body builds the outgoing upstream request body for the requested mode.
func (r *ChatRequest) body(stream bool) ([]byte, error) {
	payload, err := json.Marshal(chatBody{
		Model:       r.Model,
		Messages:    r.Messages,
		Stream:      stream,
		Temperature: r.Temperature,
		Tools:       r.Tools,
		ToolChoice:  r.ToolChoice,
	})
	if err != nil {
		return nil, &Error{
			Kind:    KindInternal,
			Message: fmt.Sprintf("Failed to encode upstream request: %v", err),
			Cause:   err,
		}
	}
	return payload, nil
}
