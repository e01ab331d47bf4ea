package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"styx-hq/charon/internal/relaytest"
)

func newTestRelay(t *testing.T, timeouts Timeouts) *Relay {
	t.Helper()
	r := New(Options{Timeouts: timeouts})
	t.Cleanup(func() { r.Close() })
	return r
}

func chatRequest(model string) *ChatRequest {
	return &ChatRequest{
		Model:    model,
		Messages: []json.RawMessage{json.RawMessage(`{"role":"user","content":"hello"}`)},
	}
}

func TestChat_Success(t *testing.T) {
	upstream := relaytest.NewUpstream()
	defer upstream.Close()
	upstream.SetResponse("/v1/chat/completions", relaytest.Response{
		StatusCode: http.StatusOK,
		Body:       relaytest.ChatCompletionBody("Hello there"),
	})

	r := newTestRelay(t, Timeouts{})
	target := Target{BaseURL: upstream.URL(), APIKey: "sk-test"}

	resp, err := r.Chat(context.Background(), target, chatRequest("gpt-4o"))
	if err != nil {
		t.Fatalf("Chat() unexpected error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Chat() status = %d, want 200", resp.StatusCode)
	}

	var doc struct {
		Object  string `json:"object"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		t.Fatalf("Chat() body is not valid JSON: %v", err)
	}
	if doc.Object != "chat.completion" {
		t.Errorf("Chat() object = %q, want chat.completion", doc.Object)
	}
	if len(doc.Choices) == 0 || doc.Choices[0].Message.Content != "Hello there" {
		t.Errorf("Chat() body did not pass through upstream content: %s", resp.Body)
	}
}

func TestChat_UpstreamRequestShape(t *testing.T) {
	upstream := relaytest.NewUpstream()
	defer upstream.Close()
	upstream.SetResponse("/v1/chat/completions", relaytest.Response{
		StatusCode: http.StatusOK,
		Body:       relaytest.ChatCompletionBody("ok"),
	})

	r := newTestRelay(t, Timeouts{})
	target := Target{BaseURL: upstream.URL() + "/", APIKey: "sk-secret"}

	if _, err := r.Chat(context.Background(), target, chatRequest("gpt-4o")); err != nil {
		t.Fatalf("Chat() unexpected error = %v", err)
	}

	req, ok := upstream.LastRequest()
	if !ok {
		t.Fatal("upstream received no request")
	}
	if req.Method != http.MethodPost {
		t.Errorf("upstream method = %q, want POST", req.Method)
	}
	if req.Path != "/v1/chat/completions" {
		t.Errorf("upstream path = %q, want /v1/chat/completions", req.Path)
	}
	if req.Authorization != "Bearer sk-secret" {
		t.Errorf("upstream authorization = %q, want bearer credential", req.Authorization)
	}
	if req.ContentType != "application/json" {
		t.Errorf("upstream content type = %q", req.ContentType)
	}

	var body struct {
		Stream bool   `json:"stream"`
		Model  string `json:"model"`
	}
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("upstream body is not valid JSON: %v", err)
	}
	if body.Stream {
		t.Error("buffered Chat() sent stream=true upstream")
	}
	if body.Model != "gpt-4o" {
		t.Errorf("upstream model = %q, want gpt-4o", body.Model)
	}
}

func TestChat_ValidationBeforeNetwork(t *testing.T) {
	upstream := relaytest.NewUpstream()
	defer upstream.Close()
	upstream.SetResponse("/v1/chat/completions", relaytest.Response{
		StatusCode: http.StatusOK,
		Body:       relaytest.ChatCompletionBody("ok"),
	})

	r := newTestRelay(t, Timeouts{})

	tests := []struct {
		name   string
		target Target
		req    *ChatRequest
	}{
		{
			name:   "empty api key",
			target: Target{BaseURL: upstream.URL(), APIKey: ""},
			req:    chatRequest("gpt-4o"),
		},
		{
			name:   "loopback base url",
			target: Target{BaseURL: "http://127.0.0.1:9", APIKey: "sk-test"},
			req:    chatRequest("gpt-4o"),
		},
		{
			name:   "missing model",
			target: Target{BaseURL: upstream.URL(), APIKey: "sk-test"},
			req:    chatRequest(""),
		},
		{
			name:   "missing messages",
			target: Target{BaseURL: upstream.URL(), APIKey: "sk-test"},
			req:    &ChatRequest{Model: "gpt-4o"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := upstream.RequestCount()

			_, err := r.Chat(context.Background(), tt.target, tt.req)

			var relayErr *Error
			if !errors.As(err, &relayErr) {
				t.Fatalf("Chat() error type = %T, want *Error", err)
			}
			if relayErr.Kind != KindValidation {
				t.Errorf("Chat() kind = %v, want %v", relayErr.Kind, KindValidation)
			}
			if upstream.RequestCount() != before {
				t.Error("Chat() made a network call despite validation failure")
			}
		})
	}
}

func TestChat_UpstreamErrorTranslation(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       any
		wantKind   Kind
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "401 unauthorized",
			status:     http.StatusUnauthorized,
			body:       relaytest.ErrorBody("Incorrect API key provided"),
			wantKind:   KindUnauthorized,
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Incorrect API key provided",
		},
		{
			name:       "429 rate limited",
			status:     http.StatusTooManyRequests,
			body:       relaytest.ErrorBody("Rate limit reached"),
			wantKind:   KindRateLimited,
			wantStatus: http.StatusTooManyRequests,
			wantMsg:    "Rate limit reached",
		},
		{
			name:       "400 becomes validation on chat",
			status:     http.StatusBadRequest,
			body:       relaytest.ErrorBody("messages must not be empty"),
			wantKind:   KindValidation,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "messages must not be empty",
		},
		{
			name:       "503 upstream error",
			status:     http.StatusServiceUnavailable,
			body:       relaytest.ErrorBody("overloaded"),
			wantKind:   KindUpstream,
			wantStatus: http.StatusServiceUnavailable,
			wantMsg:    "overloaded",
		},
		{
			name:       "top-level message field",
			status:     http.StatusBadGateway,
			body:       map[string]any{"message": "bad gateway upstream"},
			wantKind:   KindUpstream,
			wantStatus: http.StatusBadGateway,
			wantMsg:    "bad gateway upstream",
		},
		{
			name:       "empty error body gets fallback",
			status:     http.StatusInternalServerError,
			body:       "",
			wantKind:   KindUpstream,
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Upstream error (500)",
		},
		{
			name:       "non-json error body used raw",
			status:     http.StatusBadGateway,
			body:       "upstream exploded\n",
			wantKind:   KindUpstream,
			wantStatus: http.StatusBadGateway,
			wantMsg:    "upstream exploded",
		},
		{
			name:       "json without message fields gets fallback",
			status:     http.StatusServiceUnavailable,
			body:       map[string]any{"status": "down"},
			wantKind:   KindUpstream,
			wantStatus: http.StatusServiceUnavailable,
			wantMsg:    "Upstream error (503)",
		},
		{
			name:       "json array body gets fallback",
			status:     http.StatusBadGateway,
			body:       `["not", "an", "error object"]`,
			wantKind:   KindUpstream,
			wantStatus: http.StatusBadGateway,
			wantMsg:    "Upstream error (502)",
		},
		{
			name:       "json string body gets fallback",
			status:     http.StatusServiceUnavailable,
			body:       `"oops"`,
			wantKind:   KindUpstream,
			wantStatus: http.StatusServiceUnavailable,
			wantMsg:    "Upstream error (503)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := relaytest.NewUpstream()
			defer upstream.Close()
			upstream.SetResponse("/v1/chat/completions", relaytest.Response{
				StatusCode: tt.status,
				Body:       tt.body,
			})

			r := newTestRelay(t, Timeouts{})
			target := Target{BaseURL: upstream.URL(), APIKey: "sk-test"}

			_, err := r.Chat(context.Background(), target, chatRequest("gpt-4o"))

			var relayErr *Error
			if !errors.As(err, &relayErr) {
				t.Fatalf("Chat() error type = %T, want *Error", err)
			}
			if relayErr.Kind != tt.wantKind {
				t.Errorf("Chat() kind = %v, want %v", relayErr.Kind, tt.wantKind)
			}
			if relayErr.Status != tt.wantStatus {
				t.Errorf("Chat() status = %d, want %d", relayErr.Status, tt.wantStatus)
			}
			if relayErr.Message != tt.wantMsg {
				t.Errorf("Chat() message = %q, want %q", relayErr.Message, tt.wantMsg)
			}
		})
	}
}

func TestChat_NonJSONSuccessWrapped(t *testing.T) {
	upstream := relaytest.NewUpstream()
	defer upstream.Close()
	upstream.SetResponse("/v1/chat/completions", relaytest.Response{
		StatusCode: http.StatusOK,
		Body:       "plain text reply",
	})

	r := newTestRelay(t, Timeouts{})
	target := Target{BaseURL: upstream.URL(), APIKey: "sk-test"}

	resp, err := r.Chat(context.Background(), target, chatRequest("gpt-4o"))
	if err != nil {
		t.Fatalf("Chat() unexpected error = %v", err)
	}

	var wrapped struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body, &wrapped); err != nil {
		t.Fatalf("Chat() wrapped body is not valid JSON: %v", err)
	}
	if wrapped.Message != "plain text reply" {
		t.Errorf("Chat() wrapped message = %q", wrapped.Message)
	}
}

func TestChat_Timeout(t *testing.T) {
	upstream := relaytest.NewUpstream()
	defer upstream.Close()
	upstream.SetResponse("/v1/chat/completions", relaytest.Response{
		StatusCode: http.StatusOK,
		Body:       relaytest.ChatCompletionBody("late"),
		Delay:      2 * time.Second,
	})

	r := newTestRelay(t, Timeouts{Chat: 100 * time.Millisecond})
	target := Target{BaseURL: upstream.URL(), APIKey: "sk-test"}

	start := time.Now()
	_, err := r.Chat(context.Background(), target, chatRequest("gpt-4o"))
	elapsed := time.Since(start)

	var relayErr *Error
	if !errors.As(err, &relayErr) {
		t.Fatalf("Chat() error type = %T, want *Error", err)
	}
	if relayErr.Kind != KindTimeout {
		t.Errorf("Chat() kind = %v, want %v", relayErr.Kind, KindTimeout)
	}
	if elapsed > time.Second {
		t.Errorf("Chat() took %v, expected prompt timeout", elapsed)
	}
}

func TestChat_ConnectionRefused(t *testing.T) {
	// Nothing listens on this port; dialing fails immediately.
	r := newTestRelay(t, Timeouts{})
	target := Target{BaseURL: "http://127.0.0.2:1", APIKey: "sk-test"}

	_, err := r.Chat(context.Background(), target, chatRequest("gpt-4o"))

	var relayErr *Error
	if !errors.As(err, &relayErr) {
		t.Fatalf("Chat() error type = %T, want *Error", err)
	}
	if relayErr.Kind != KindNetwork {
		t.Errorf("Chat() kind = %v, want %v", relayErr.Kind, KindNetwork)
	}
	if !strings.Contains(relayErr.Message, "Failed to reach upstream") {
		t.Errorf("Chat() message = %q", relayErr.Message)
	}
}
