package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"styx-hq/charon/pkg/proxy/types"
	"styx-hq/charon/pkg/relay"
)

// WriteJSON writes a JSON response body with the given status code.
// It sets the content-type header and reports encoding failures, which at
// that point can no longer change the response status.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}

// WriteRawJSON relays an upstream JSON body verbatim with the given
// status code. Unlike WriteJSON it never re-encodes, so the upstream's
// bytes reach the caller unmodified.
func WriteRawJSON(w http.ResponseWriter, statusCode int, body []byte) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("failed to write response body: %w", err)
	}

	return nil
}

// WriteChatError writes the chat endpoint error body for err. The HTTP
// status is the translated one: the upstream's own status for upstream
// errors, 400 for validation, 504 timeout, 502 network, 500 internal.
func WriteChatError(w http.ResponseWriter, relErr *relay.Error) error {
	body := types.NewChatError(string(relErr.Kind), relErr.Message)
	return WriteJSON(w, relErr.HTTPStatus(), body)
}

// WriteAPIError writes the supplier endpoint failure envelope for err,
// using the same status translation as WriteChatError.
func WriteAPIError(w http.ResponseWriter, relErr *relay.Error) error {
	body := &types.APIResponse{
		Success:   false,
		Error:     relErr.Message,
		ErrorCode: string(relErr.Kind),
	}
	return WriteJSON(w, relErr.HTTPStatus(), body)
}

// WriteAPISuccess writes the supplier endpoint success envelope around data.
func WriteAPISuccess(w http.ResponseWriter, data interface{}) error {
	body := &types.APIResponse{
		Success: true,
		Data:    data,
	}
	return WriteJSON(w, http.StatusOK, body)
}

// SetSSEHeaders sets the headers for a Server-Sent Events response.
// Callers must not touch the status line afterwards; errors travel as
// framed events once these are written.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Transfer-Encoding", "chunked")
}

// WriteSSEChunk writes one upstream chunk verbatim and flushes it to the
// caller. Chunks already carry the upstream's own SSE framing, so nothing
// is added or rewritten here.
func WriteSSEChunk(w http.ResponseWriter, chunk []byte) error {
	if _, err := w.Write(chunk); err != nil {
		return fmt.Errorf("failed to write SSE chunk: %w", err)
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	return nil
}

// WriteSSEErrorFrame writes the single framed error event for err and
// flushes. This is the only error vehicle once the response has committed
// to stream mode.
func WriteSSEErrorFrame(w http.ResponseWriter, relErr *relay.Error) error {
	frame := relay.FrameError(relErr.Kind, relErr.Message)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("failed to write SSE error frame: %w", err)
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	return nil
}
