package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	chatCompletionsPath = "/v1/chat/completions"
	modelsPath          = "/v1/models"
)

// Default network budgets. Connect covers dial and TLS handshake; Chat
// and Models bound the whole call; StreamRead bounds the gap between
// consecutive chunks of a live stream (a total deadline would kill
// long-running streams).
const (
	DefaultConnectTimeout    = 10 * time.Second
	DefaultChatTimeout       = 60 * time.Second
	DefaultModelsTimeout     = 10 * time.Second
	DefaultStreamReadTimeout = 60 * time.Second
)

// Timeouts groups the network budgets for relay calls. Zero fields take
// the package defaults.
type Timeouts struct {
	// Connect bounds connection establishment (dial + TLS).
	Connect time.Duration

	// Chat bounds a whole buffered chat call.
	Chat time.Duration

	// Models bounds a whole model-listing call.
	Models time.Duration

	// StreamRead bounds the wait for response headers and the gap
	// between consecutive stream chunks.
	StreamRead time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Connect <= 0 {
		t.Connect = DefaultConnectTimeout
	}
	if t.Chat <= 0 {
		t.Chat = DefaultChatTimeout
	}
	if t.Models <= 0 {
		t.Models = DefaultModelsTimeout
	}
	if t.StreamRead <= 0 {
		t.StreamRead = DefaultStreamReadTimeout
	}
	return t
}

// Options configures a Relay.
type Options struct {
	// Timeouts are the network budgets; zero fields take defaults.
	Timeouts Timeouts

	// UserAgent is sent on upstream requests when non-empty.
	UserAgent string
}

// Relay is a client for OpenAI-compatible upstreams. It holds no
// per-target state: the target arrives with every call, so one Relay
// serves any number of concurrent requests to any number of upstreams.
// All methods are safe for concurrent use.
type Relay struct {
	timeouts  Timeouts
	userAgent string

	// Separate clients because the modes need different deadline shapes:
	// buffered calls take a hard total timeout, streams must not.
	chatClient   *http.Client
	modelsClient *http.Client
	streamClient *http.Client
}

// New creates a Relay with pooled transports.
func New(opts Options) *Relay {
	t := opts.Timeouts.withDefaults()
	return &Relay{
		timeouts:  t,
		userAgent: opts.UserAgent,
		chatClient: &http.Client{
			Transport: newTransport(t.Connect, 0),
			Timeout:   t.Chat,
		},
		modelsClient: &http.Client{
			Transport: newTransport(t.Connect, 0),
			Timeout:   t.Models,
		},
		streamClient: &http.Client{
			// No total timeout: the stream may legitimately outlive any
			// fixed budget. Header wait is bounded by the transport and
			// read gaps by the stream consumer.
			Transport: newTransport(t.Connect, t.StreamRead),
		},
	}
}

func newTransport(connect, responseHeader time.Duration) *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   connect,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: responseHeader,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}

// Timeouts returns the effective network budgets.
func (r *Relay) Timeouts() Timeouts {
	return r.timeouts
}

// Close releases pooled connections.
func (r *Relay) Close() error {
	for _, c := range []*http.Client{r.chatClient, r.modelsClient, r.streamClient} {
		if transport, ok := c.Transport.(*http.Transport); ok {
			transport.CloseIdleConnections()
		}
	}
	return nil
}

// newRequest builds an upstream request with bearer authentication.
func (r *Relay) newRequest(ctx context.Context, method, url string, body []byte, apiKey, accept string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &Error{
			Kind:    KindInternal,
			Message: fmt.Sprintf("Failed to build upstream request: %v", err),
			Cause:   err,
		}
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	return req, nil
}
