// Package relaytest provides a mock OpenAI-compatible upstream for relay
// tests. It records every request it receives and serves configurable
// responses: canned JSON, raw bytes, scripted SSE chunk sequences, and
// pathological cases (delays, hanging after headers) for timeout tests.
//
// The upstream listens on 127.0.0.2 rather than 127.0.0.1: the relay's
// endpoint normalizer rejects 127.0.0.1 by name, and the whole 127/8
// block is bindable on Linux, so tests exercise the real network path
// without weakening the loopback check.
package relaytest

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// Upstream is a mock OpenAI-compatible endpoint backed by httptest.
type Upstream struct {
	server    *httptest.Server
	mu        sync.Mutex
	responses map[string]Response
	requests  []RecordedRequest
}

// Response configures what the upstream serves for one path.
type Response struct {
	StatusCode int

	// Body is the buffered response payload: string and []byte are
	// written as-is, anything else is JSON encoded.
	Body any

	// Headers are set before the status is written.
	Headers map[string]string

	// Delay is applied before anything is written.
	Delay time.Duration

	// StreamChunks, when non-empty, switches the response to streaming:
	// each element is written and flushed verbatim, so tests control the
	// exact byte sequence on the wire.
	StreamChunks [][]byte

	// ChunkDelay spaces out stream chunks.
	ChunkDelay time.Duration

	// HangAfterHeaders sends headers (and any StreamChunks), then blocks
	// without closing until the client goes away. Used to provoke read
	// timeouts without emitting a connection error.
	HangAfterHeaders bool

	// AbortMidStream drops the connection after the chunks without a
	// terminating chunk, so the client sees a transport error rather
	// than a clean EOF.
	AbortMidStream bool
}

// RecordedRequest captures one request the upstream received.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	Accept        string
	ContentType   string
	Body          []byte
}

// NewUpstream starts a mock upstream. Callers must Close it.
func NewUpstream() *Upstream {
	u := &Upstream{
		responses: make(map[string]Response),
	}
	listener, err := net.Listen("tcp", "127.0.0.2:0")
	if err != nil {
		panic(fmt.Sprintf("relaytest: cannot bind 127.0.0.2: %v", err))
	}
	u.server = &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: http.HandlerFunc(u.handle)},
	}
	u.server.Start()
	return u
}

// URL returns the upstream's base URL.
func (u *Upstream) URL() string {
	return u.server.URL
}

// Close shuts the upstream down.
func (u *Upstream) Close() {
	u.server.Close()
}

// SetResponse configures the response for a path, e.g. "/v1/models".
func (u *Upstream) SetResponse(path string, resp Response) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.responses[path] = resp
}

// RequestCount returns how many requests the upstream has received.
func (u *Upstream) RequestCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.requests)
}

// Requests returns a copy of all recorded requests.
func (u *Upstream) Requests() []RecordedRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]RecordedRequest, len(u.requests))
	copy(out, u.requests)
	return out
}

// LastRequest returns the most recent recorded request, or false when none
// has arrived.
func (u *Upstream) LastRequest() (RecordedRequest, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.requests) == 0 {
		return RecordedRequest{}, false
	}
	return u.requests[len(u.requests)-1], true
}

func (u *Upstream) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	u.mu.Lock()
	u.requests = append(u.requests, RecordedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		Accept:        r.Header.Get("Accept"),
		ContentType:   r.Header.Get("Content-Type"),
		Body:          body,
	})
	resp, ok := u.responses[r.URL.Path]
	u.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	if len(resp.StreamChunks) > 0 || resp.HangAfterHeaders {
		u.handleStream(w, r, resp)
		return
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	switch v := resp.Body.(type) {
	case nil:
	case string:
		_, _ = io.WriteString(w, v)
	case []byte:
		_, _ = w.Write(v)
	default:
		_ = json.NewEncoder(w).Encode(v)
	}
}

func (u *Upstream) handleStream(w http.ResponseWriter, r *http.Request, resp Response) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/event-stream")
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	flusher, ok := w.(http.Flusher)
	if !ok {
		return
	}
	flusher.Flush()

	for _, chunk := range resp.StreamChunks {
		if resp.ChunkDelay > 0 {
			select {
			case <-time.After(resp.ChunkDelay):
			case <-r.Context().Done():
				return
			}
		}
		if _, err := w.Write(chunk); err != nil {
			return
		}
		flusher.Flush()
	}

	if resp.AbortMidStream {
		// ErrAbortHandler makes the server sever the connection without a
		// terminating chunk, so the client reads an unexpected EOF.
		panic(http.ErrAbortHandler)
	}

	if resp.HangAfterHeaders {
		// Keep the connection open, sending nothing, until the client
		// disconnects. The relay side must time out on its own.
		<-r.Context().Done()
	}
}

// ChatCompletionBody builds a minimal OpenAI-style chat completion
// document for buffered responses.
func ChatCompletionBody(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   "mock-model",
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
	}
}

// ModelListBody builds an OpenAI-style model listing document.
func ModelListBody(ids ...string) map[string]any {
	data := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		data = append(data, map[string]any{"id": id, "object": "model"})
	}
	return map[string]any{"object": "list", "data": data}
}

// ErrorBody builds an OpenAI-style error document.
func ErrorBody(message string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    "invalid_request_error",
		},
	}
}

// ErrorResponse builds a Response carrying an OpenAI-style error body.
func ErrorResponse(status int, message string) Response {
	return Response{StatusCode: status, Body: ErrorBody(message)}
}

// SSEDataChunk formats one SSE data line the way OpenAI-compatible
// upstreams emit stream chunks.
func SSEDataChunk(payload string) []byte {
	return []byte(fmt.Sprintf("data: %s\n\n", payload))
}
