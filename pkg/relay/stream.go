package relay

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// streamBufferSize bounds the producer/consumer pipe. Small on purpose:
// it absorbs jitter without letting the relay buffer a slow caller's
// stream in memory.
const streamBufferSize = 16

// streamChunkSize is the read granularity of the upstream producer.
const streamChunkSize = 32 * 1024

// Event is one unit of a relayed stream: either a chunk of upstream bytes,
// exactly as received, or a terminal error. After an Event with a non-nil
// Err the channel is closed and no further events follow.
type Event struct {
	Data []byte
	Err  *Error
}

// Stream is a live streaming chat response. Receive from Events until it
// closes; relay each Data chunk to the caller unmodified and in order.
// A consumer that stops early must call Close to release the upstream
// connection.
type Stream struct {
	// Events delivers upstream chunks in arrival order.
	Events <-chan Event

	// ReadTimeout is the configured bound on the gap between consecutive
	// chunks. The consumer enforces it (select on Events and a timer) and
	// reports a breach as a TIMEOUT error frame.
	ReadTimeout time.Duration

	cancel context.CancelFunc
}

// Close cancels the stream and promptly closes the upstream connection.
// Safe to call multiple times and after the channel has closed.
func (s *Stream) Close() {
	s.cancel()
}

// OpenStream forwards a chat-completion request in streaming mode: the
// body is built with stream=true, POSTed with Accept: text/event-stream,
// and the upstream's bytes are handed back through Stream.Events as they
// arrive.
//
// Failures before any byte is relayed (validation, transport errors, and
// upstream statuses >= 400, whose error body is read whole and translated
// exactly as in buffered mode) are returned as an *Error so the caller
// can emit a single SSE error event as the stream's sole output. Failures
// after relaying has begun arrive in-band as the final Event.
//
// Canceling ctx closes the upstream connection promptly; this is how a
// caller disconnect propagates upstream.
func (r *Relay) OpenStream(ctx context.Context, target Target, req *ChatRequest) (*Stream, error) {
	base, verr := prepareTarget(target)
	if verr != nil {
		return nil, verr
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload, err := req.body(true)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)

	httpReq, err := r.newRequest(streamCtx, http.MethodPost, base+chatCompletionsPath, payload, target.APIKey, "text/event-stream")
	if err != nil {
		cancel()
		return nil, err
	}

	resp, err := r.streamClient.Do(httpReq)
	if err != nil {
		cancel()
		return nil, classifyTransport(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		// Error responses are not streamed: read the whole body and
		// translate it like a buffered failure.
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		kind := ChatKindForStatus(resp.StatusCode)
		message := extractErrorMessage(body, resp.StatusCode)
		slog.DebugContext(ctx, "stream rejected by upstream",
			"status", resp.StatusCode,
			"kind", string(kind),
		)
		return nil, upstreamError(kind, resp.StatusCode, message)
	}

	events := make(chan Event, streamBufferSize)
	go pump(streamCtx, resp.Body, events)

	return &Stream{
		Events:      events,
		ReadTimeout: r.timeouts.StreamRead,
		cancel:      cancel,
	}, nil
}

// pump reads upstream chunks and forwards them until EOF, a transport
// error, or cancellation. It owns the response body.
func pump(ctx context.Context, body io.ReadCloser, events chan<- Event) {
	defer close(events)
	defer body.Close()

	buf := make([]byte, streamChunkSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case events <- Event{Data: chunk}:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if err == io.EOF {
				return
			}
			if ctx.Err() != nil {
				// Consumer or caller canceled; nobody is listening.
				return
			}
			select {
			case events <- Event{Err: classifyTransport(err)}:
			case <-ctx.Done():
			}
			return
		}
	}
}
