package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ChatResponse carries the upstream's reply to a buffered chat call: the
// upstream status code and the JSON body, passed through verbatim. A 2xx
// body that is not valid JSON is wrapped as {"message": <text>} so the
// caller always receives JSON.
type ChatResponse struct {
	StatusCode int
	Body       json.RawMessage
}

// Chat forwards a chat-completion request in buffered mode: the body is
// built with stream=false, POSTed to {base}/v1/chat/completions, and the
// whole upstream reply is returned at once.
//
// Upstream statuses >= 400 come back as an *Error whose Kind follows
// ChatKindForStatus, whose Status carries the upstream's original code,
// and whose Message is extracted from the upstream body (error.message,
// then a top-level message field, then a generic fallback, then the raw
// trimmed text when the body is not JSON). Validation failures are
// detected before any network call.
func (r *Relay) Chat(ctx context.Context, target Target, req *ChatRequest) (*ChatResponse, error) {
	base, verr := prepareTarget(target)
	if verr != nil {
		return nil, verr
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload, err := req.body(false)
	if err != nil {
		return nil, err
	}

	httpReq, err := r.newRequest(ctx, http.MethodPost, base+chatCompletionsPath, payload, target.APIKey, "application/json")
	if err != nil {
		return nil, err
	}

	resp, err := r.chatClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		kind := ChatKindForStatus(resp.StatusCode)
		message := extractErrorMessage(body, resp.StatusCode)
		slog.DebugContext(ctx, "chat call rejected by upstream",
			"status", resp.StatusCode,
			"kind", string(kind),
		)
		return nil, upstreamError(kind, resp.StatusCode, message)
	}

	if !json.Valid(body) {
		wrapped, werr := json.Marshal(map[string]string{
			"message": string(bytes.TrimSpace(body)),
		})
		if werr != nil {
			return nil, &Error{Kind: KindInternal, Message: "Failed to encode upstream response", Cause: werr}
		}
		return &ChatResponse{StatusCode: resp.StatusCode, Body: wrapped}, nil
	}

	return &ChatResponse{StatusCode: resp.StatusCode, Body: body}, nil
}

// extractErrorMessage pulls a display message from an upstream error
// body. Lookup order: error.message, top-level message, a generic
// "Upstream error (<status>)" fallback; when the body does not parse as
// JSON at all, the raw trimmed text is used instead.
func extractErrorMessage(body []byte, status int) string {
	fallback := fmt.Sprintf("Upstream error (%d)", status)
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return fallback
	}

	var doc struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		if json.Valid(trimmed) {
			// JSON of the wrong shape (array, bare string) carries no
			// usable message; only non-JSON text is worth relaying raw.
			return fallback
		}
		return string(trimmed)
	}
	if doc.Error.Message != "" {
		return doc.Error.Message
	}
	if doc.Message != "" {
		return doc.Message
	}
	return fallback
}
