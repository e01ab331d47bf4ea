package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"styx-hq/charon/internal/relaytest"
	"styx-hq/charon/pkg/audit"
	"styx-hq/charon/pkg/audit/recorder"
	"styx-hq/charon/pkg/config"
	"styx-hq/charon/pkg/proxy/types"
	"styx-hq/charon/pkg/relay"
	"styx-hq/charon/pkg/telemetry/metrics"
)

// fakeRegistry resolves supplier names from a fixed map.
type fakeRegistry struct {
	targets map[string]relay.Target
}

func (f *fakeRegistry) Resolve(name string) (relay.Target, bool) {
	target, ok := f.targets[name]
	return target, ok
}

// captureRecorder collects audit operations for assertions.
type captureRecorder struct {
	mu  sync.Mutex
	ops []*recorder.Operation
}

func (c *captureRecorder) Record(_ context.Context, op *recorder.Operation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, op)
	return nil
}

func (c *captureRecorder) last(t *testing.T) *recorder.Operation {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.ops) == 0 {
		t.Fatal("no audit operation recorded")
	}
	return c.ops[len(c.ops)-1]
}

func newTestRelay(t *testing.T) *relay.Relay {
	t.Helper()
	r := relay.New(relay.Options{Timeouts: relay.Timeouts{
		Connect:    2 * time.Second,
		Chat:       2 * time.Second,
		Models:     2 * time.Second,
		StreamRead: 300 * time.Millisecond,
	}})
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func inlineChatBody(upstream *relaytest.Upstream, stream bool) string {
	return fmt.Sprintf(`{"base_url":%q,"api_key":"sk-test","model":"gpt-4o","messages":[{"role":"user","content":"hi"}],"stream":%v}`,
		upstream.URL(), stream)
}

// sseErrorCode extracts the code from the first error frame in body.
func sseErrorCode(t *testing.T, body string) string {
	t.Helper()
	const marker = "event: error\ndata: "
	idx := strings.Index(body, marker)
	if idx < 0 {
		t.Fatalf("no error frame in stream body %q", body)
	}
	payload := body[idx+len(marker):]
	if end := strings.Index(payload, "\n"); end >= 0 {
		payload = payload[:end]
	}
	var doc struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		t.Fatalf("malformed error frame %q: %v", payload, err)
	}
	return doc.Code
}

func TestChatHandler_BufferedSuccess(t *testing.T) {
	upstream := relaytest.NewUpstream()
	defer upstream.Close()
	upstream.SetResponse("/v1/chat/completions", relaytest.Response{
		Body: relaytest.ChatCompletionBody("hello from upstream"),
	})

	rec := &captureRecorder{}
	h := NewChatHandler(Deps{Relay: newTestRelay(t), Recorder: rec})

	r := httptest.NewRequest("POST", "/v1/relay/chat", strings.NewReader(inlineChatBody(upstream, false)))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var doc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if len(doc.Choices) != 1 || doc.Choices[0].Message.Content != "hello from upstream" {
		t.Errorf("unexpected response body: %s", w.Body.String())
	}

	last, ok := upstream.LastRequest()
	if !ok {
		t.Fatal("upstream received no request")
	}
	if last.Authorization != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want %q", last.Authorization, "Bearer sk-test")
	}
	var sent struct {
		Stream bool `json:"stream"`
	}
	if err := json.Unmarshal(last.Body, &sent); err != nil {
		t.Fatalf("upstream body is not JSON: %v", err)
	}
	if sent.Stream {
		t.Error("upstream request has stream=true, want false")
	}

	op := rec.last(t)
	if op.Operation != audit.OpChat {
		t.Errorf("audit operation = %q, want %q", op.Operation, audit.OpChat)
	}
	if op.Stream {
		t.Error("audit record marked as stream")
	}
	if op.UpstreamStatus != 200 {
		t.Errorf("audit upstream status = %d, want 200", op.UpstreamStatus)
	}
	if op.Supplier != "" {
		t.Errorf("audit supplier = %q, want empty for inline target", op.Supplier)
	}
	if op.Model != "gpt-4o" {
		t.Errorf("audit model = %q, want %q", op.Model, "gpt-4o")
	}
}

func TestChatHandler_BufferedUpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		response   relaytest.Response
		wantStatus int
		wantCode   string
	}{
		{
			name:       "401 unauthorized",
			response:   relaytest.ErrorResponse(401, "bad key"),
			wantStatus: 401,
			wantCode:   "UNAUTHORIZED",
		},
		{
			name:       "429 rate limited",
			response:   relaytest.ErrorResponse(429, "slow down"),
			wantStatus: 429,
			wantCode:   "RATE_LIMITED",
		},
		{
			name:       "400 becomes validation",
			response:   relaytest.ErrorResponse(400, "bad body"),
			wantStatus: 400,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "500 upstream error",
			response:   relaytest.ErrorResponse(500, "exploded"),
			wantStatus: 500,
			wantCode:   "UPSTREAM_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := relaytest.NewUpstream()
			defer upstream.Close()
			upstream.SetResponse("/v1/chat/completions", tt.response)

			h := NewChatHandler(Deps{Relay: newTestRelay(t)})

			r := httptest.NewRequest("POST", "/v1/relay/chat", strings.NewReader(inlineChatBody(upstream, false)))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var doc types.ChatError
			if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
			if doc.Error.Code != tt.wantCode {
				t.Errorf("error code = %q, want %q", doc.Error.Code, tt.wantCode)
			}
			if doc.Error.Message == "" {
				t.Error("error message is empty")
			}
		})
	}
}

func TestChatHandler_RejectsBadRequests(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "wrong method",
			method:     "GET",
			wantStatus: 405,
		},
		{
			name:       "empty body",
			method:     "POST",
			body:       "",
			wantStatus: 400,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "invalid JSON",
			method:     "POST",
			body:       `{"model":`,
			wantStatus: 400,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "no target named",
			method:     "POST",
			body:       `{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`,
			wantStatus: 400,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "unknown supplier buffered",
			method:     "POST",
			body:       `{"supplier":"ghost","model":"gpt-4o","messages":[{"role":"user","content":"hi"}],"stream":false}`,
			wantStatus: 400,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "loopback target rejected",
			method:     "POST",
			body:       `{"base_url":"http://127.0.0.1:8080","api_key":"sk-x","model":"gpt-4o","messages":[{"role":"user","content":"hi"}],"stream":false}`,
			wantStatus: 400,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "missing model",
			method:     "POST",
			body:       `{"base_url":"https://api.example.com","api_key":"sk-x","messages":[{"role":"user","content":"hi"}],"stream":false}`,
			wantStatus: 400,
			wantCode:   "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewChatHandler(Deps{Relay: newTestRelay(t), Registry: &fakeRegistry{}})

			r := httptest.NewRequest(tt.method, "/v1/relay/chat", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantCode == "" {
				return
			}
			var doc types.ChatError
			if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
			if doc.Error.Code != tt.wantCode {
				t.Errorf("error code = %q, want %q", doc.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestChatHandler_SupplierTarget(t *testing.T) {
	upstream := relaytest.NewUpstream()
	defer upstream.Close()
	upstream.SetResponse("/v1/chat/completions", relaytest.Response{
		Body: relaytest.ChatCompletionBody("ok"),
	})

	reg := &fakeRegistry{targets: map[string]relay.Target{
		"openrouter": {BaseURL: upstream.URL(), APIKey: "sk-stored"},
	}}
	rec := &captureRecorder{}
	h := NewChatHandler(Deps{Relay: newTestRelay(t), Registry: reg, Recorder: rec})

	// Inline credentials ride along but must lose to the named supplier.
	body := `{"supplier":"openrouter","base_url":"http://127.0.0.1:1","api_key":"sk-inline","model":"gpt-4o","messages":[{"role":"user","content":"hi"}],"stream":false}`
	r := httptest.NewRequest("POST", "/v1/relay/chat", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	last, ok := upstream.LastRequest()
	if !ok {
		t.Fatal("upstream received no request")
	}
	if last.Authorization != "Bearer sk-stored" {
		t.Errorf("Authorization = %q, want the stored key", last.Authorization)
	}

	op := rec.last(t)
	if op.Supplier != "openrouter" {
		t.Errorf("audit supplier = %q, want %q", op.Supplier, "openrouter")
	}
}

func TestChatHandler_StreamSuccess(t *testing.T) {
	first := relaytest.SSEDataChunk(`{"choices":[{"delta":{"content":"Hel"}}]}`)
	second := relaytest.SSEDataChunk(`{"choices":[{"delta":{"content":"lo"}}]}`)
	done := relaytest.SSEDataChunk("[DONE]")

	upstream := relaytest.NewUpstream()
	defer upstream.Close()
	upstream.SetResponse("/v1/chat/completions", relaytest.Response{
		StreamChunks: [][]byte{first, second, done},
	})

	rec := &captureRecorder{}
	h := NewChatHandler(Deps{Relay: newTestRelay(t), Recorder: rec})

	r := httptest.NewRequest("POST", "/v1/relay/chat", strings.NewReader(inlineChatBody(upstream, true)))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	body := w.Body.String()
	for _, chunk := range [][]byte{first, second, done} {
		if !strings.Contains(body, string(chunk)) {
			t.Errorf("stream body missing chunk %q", chunk)
		}
	}
	if strings.Contains(body, "event: error") {
		t.Errorf("clean stream contains an error frame: %q", body)
	}

	op := rec.last(t)
	if op.Operation != audit.OpChatStream {
		t.Errorf("audit operation = %q, want %q", op.Operation, audit.OpChatStream)
	}
	if !op.Stream {
		t.Error("audit record not marked as stream")
	}
	want := int64(len(first) + len(second) + len(done))
	if op.ResponseBytes != want {
		t.Errorf("audit response bytes = %d, want %d", op.ResponseBytes, want)
	}
	if op.ErrorKind != "" {
		t.Errorf("audit error kind = %q, want empty", op.ErrorKind)
	}
}

func TestChatHandler_StreamIsDefault(t *testing.T) {
	upstream := relaytest.NewUpstream()
	defer upstream.Close()
	upstream.SetResponse("/v1/chat/completions", relaytest.Response{
		StreamChunks: [][]byte{relaytest.SSEDataChunk("[DONE]")},
	})

	h := NewChatHandler(Deps{Relay: newTestRelay(t)})

	body := fmt.Sprintf(`{"base_url":%q,"api_key":"sk-test","model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`,
		upstream.URL())
	r := httptest.NewRequest("POST", "/v1/relay/chat", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	last, ok := upstream.LastRequest()
	if !ok {
		t.Fatal("upstream received no request")
	}
	var sent struct {
		Stream bool `json:"stream"`
	}
	if err := json.Unmarshal(last.Body, &sent); err != nil {
		t.Fatalf("upstream body is not JSON: %v", err)
	}
	if !sent.Stream {
		t.Error("upstream request has stream=false, want true")
	}
}

func TestChatHandler_StreamErrorFrames(t *testing.T) {
	tests := []struct {
		name     string
		body     func(u *relaytest.Upstream) string
		response *relaytest.Response
		wantCode string
	}{
		{
			name: "unknown supplier",
			body: func(u *relaytest.Upstream) string {
				return `{"supplier":"ghost","model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`
			},
			wantCode: "VALIDATION_ERROR",
		},
		{
			name: "upstream rejects with 401",
			body: func(u *relaytest.Upstream) string { return inlineChatBody(u, true) },
			response: func() *relaytest.Response {
				r := relaytest.ErrorResponse(401, "bad key")
				return &r
			}(),
			wantCode: "UNAUTHORIZED",
		},
		{
			name: "upstream rejects with 500",
			body: func(u *relaytest.Upstream) string { return inlineChatBody(u, true) },
			response: func() *relaytest.Response {
				r := relaytest.ErrorResponse(500, "exploded")
				return &r
			}(),
			wantCode: "UPSTREAM_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := relaytest.NewUpstream()
			defer upstream.Close()
			if tt.response != nil {
				upstream.SetResponse("/v1/chat/completions", *tt.response)
			}

			h := NewChatHandler(Deps{Relay: newTestRelay(t), Registry: &fakeRegistry{}})

			r := httptest.NewRequest("POST", "/v1/relay/chat", strings.NewReader(tt.body(upstream)))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			// Committed streams answer 200 no matter what went wrong.
			if w.Code != 200 {
				t.Errorf("status = %d, want 200", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
				t.Errorf("Content-Type = %q, want text/event-stream", ct)
			}

			body := w.Body.String()
			if got := strings.Count(body, "event: error"); got != 1 {
				t.Errorf("stream body has %d error frames, want exactly 1: %q", got, body)
			}
			if got := sseErrorCode(t, body); got != tt.wantCode {
				t.Errorf("error frame code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestChatHandler_StreamMidStreamFailure(t *testing.T) {
	chunk := relaytest.SSEDataChunk(`{"choices":[{"delta":{"content":"a"}}]}`)
	upstream := relaytest.NewUpstream()
	defer upstream.Close()
	upstream.SetResponse("/v1/chat/completions", relaytest.Response{
		StreamChunks:   [][]byte{chunk},
		AbortMidStream: true,
	})

	rec := &captureRecorder{}
	h := NewChatHandler(Deps{Relay: newTestRelay(t), Recorder: rec})

	r := httptest.NewRequest("POST", "/v1/relay/chat", strings.NewReader(inlineChatBody(upstream, true)))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	body := w.Body.String()
	if !strings.Contains(body, string(chunk)) {
		t.Error("chunk relayed before the abort is missing from the body")
	}
	if got := sseErrorCode(t, body); got != "NETWORK_ERROR" {
		t.Errorf("error frame code = %q, want NETWORK_ERROR", got)
	}

	op := rec.last(t)
	if op.ErrorKind != "NETWORK_ERROR" {
		t.Errorf("audit error kind = %q, want NETWORK_ERROR", op.ErrorKind)
	}
	if op.UpstreamStatus != 200 {
		t.Errorf("audit upstream status = %d, want 200", op.UpstreamStatus)
	}
}

func TestChatHandler_StreamReadTimeout(t *testing.T) {
	chunk := relaytest.SSEDataChunk(`{"choices":[{"delta":{"content":"a"}}]}`)
	upstream := relaytest.NewUpstream()
	defer upstream.Close()
	upstream.SetResponse("/v1/chat/completions", relaytest.Response{
		StreamChunks:     [][]byte{chunk},
		HangAfterHeaders: true,
	})

	rec := &captureRecorder{}
	h := NewChatHandler(Deps{Relay: newTestRelay(t), Recorder: rec})

	r := httptest.NewRequest("POST", "/v1/relay/chat", strings.NewReader(inlineChatBody(upstream, true)))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	body := w.Body.String()
	if !strings.Contains(body, string(chunk)) {
		t.Error("chunk relayed before the stall is missing from the body")
	}
	if got := sseErrorCode(t, body); got != "TIMEOUT" {
		t.Errorf("error frame code = %q, want TIMEOUT", got)
	}

	op := rec.last(t)
	if op.ErrorKind != "TIMEOUT" {
		t.Errorf("audit error kind = %q, want TIMEOUT", op.ErrorKind)
	}
	if !op.Stream {
		t.Error("audit record not marked as stream")
	}
}

// failingWriter drops the connection by failing writes, the way a real
// ResponseWriter behaves after the client goes away.
type failingWriter struct {
	*httptest.ResponseRecorder
	writes int
	failAt int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	f.writes++
	if f.writes >= f.failAt {
		return 0, fmt.Errorf("write tcp: broken pipe")
	}
	return f.ResponseRecorder.Write(p)
}

func TestChatHandler_ClientDisconnect(t *testing.T) {
	upstream := relaytest.NewUpstream()
	defer upstream.Close()
	upstream.SetResponse("/v1/chat/completions", relaytest.Response{
		StreamChunks: [][]byte{
			relaytest.SSEDataChunk("one"),
			relaytest.SSEDataChunk("two"),
		},
		ChunkDelay: 20 * time.Millisecond,
	})

	rec := &captureRecorder{}
	h := NewChatHandler(Deps{Relay: newTestRelay(t), Recorder: rec})

	w := &failingWriter{ResponseRecorder: httptest.NewRecorder(), failAt: 1}
	r := httptest.NewRequest("POST", "/v1/relay/chat", strings.NewReader(inlineChatBody(upstream, true)))
	h.ServeHTTP(w, r)

	// A disconnect is not a relay failure: the record stays clean and
	// counts only what actually reached the caller.
	op := rec.last(t)
	if op.ErrorKind != "" {
		t.Errorf("audit error kind = %q, want empty for client disconnect", op.ErrorKind)
	}
	if op.ResponseBytes != 0 {
		t.Errorf("audit response bytes = %d, want 0", op.ResponseBytes)
	}
	if !op.Stream {
		t.Error("audit record not marked as stream")
	}
}

func TestChatHandler_RecordsMetrics(t *testing.T) {
	upstream := relaytest.NewUpstream()
	defer upstream.Close()
	upstream.SetResponse("/v1/chat/completions", relaytest.Response{
		Body: relaytest.ChatCompletionBody("ok"),
	})

	collector := metrics.NewCollector(&config.MetricsConfig{
		Enabled:   true,
		Namespace: "test",
		Subsystem: "chat",
	}, nil)
	h := NewChatHandler(Deps{Relay: newTestRelay(t), Metrics: collector})

	r := httptest.NewRequest("POST", "/v1/relay/chat", strings.NewReader(inlineChatBody(upstream, false)))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	count, err := testutil.GatherAndCount(collector.Registry(), "test_chat_requests_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("requests_total series = %d, want 1", count)
	}
}
