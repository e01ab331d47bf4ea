package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"styx-hq/charon/pkg/audit"
	"styx-hq/charon/pkg/audit/recorder"
	"styx-hq/charon/pkg/proxy"
	"styx-hq/charon/pkg/proxy/middleware"
	"styx-hq/charon/pkg/proxy/types"
	"styx-hq/charon/pkg/relay"
	"styx-hq/charon/pkg/telemetry/logging"
	"styx-hq/charon/pkg/telemetry/metrics"
)

// ChatHandler serves POST /v1/relay/chat in both response modes. Streaming
// is the default; callers opt out with "stream": false.
//
// The failure surface depends on how far the request got. Before the body
// parses the mode is unknown, so parse failures are buffered JSON errors.
// Once a parsed request asks for streaming the response commits to SSE,
// and every later failure travels as a single framed error event on an
// HTTP 200.
type ChatHandler struct {
	relay    Relayer
	registry TargetResolver
	recorder AuditRecorder
	metrics  *metrics.Collector
	maxBody  int64
}

// NewChatHandler creates the chat relay handler.
func NewChatHandler(deps Deps) *ChatHandler {
	deps = deps.normalize()
	return &ChatHandler{
		relay:    deps.Relay,
		registry: deps.Registry,
		recorder: deps.Recorder,
		metrics:  deps.Metrics,
		maxBody:  deps.MaxBodyBytes,
	}
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	chatReq, body, perr := proxy.ParseRelayChatRequest(r, h.maxBody)
	if perr != nil {
		slog.WarnContext(ctx, "rejected chat relay request",
			"kind", string(perr.Kind),
			"error", perr.Message,
		)
		if err := proxy.WriteChatError(w, perr); err != nil {
			slog.ErrorContext(ctx, "failed to write error response", "error", err)
		}
		return
	}

	operation := audit.OpChat
	if chatReq.WantsStream() {
		operation = audit.OpChatStream
	}
	ctx = logging.WithOperation(ctx, operation)
	ctx = logging.WithModel(ctx, chatReq.Model)
	h.metrics.RecordPayload(operation, "request", len(body))

	if chatReq.WantsStream() {
		h.serveStream(ctx, w, chatReq, body, start)
		return
	}
	h.serveBuffered(ctx, w, chatReq, body, start)
}

// serveBuffered relays one buffered chat call. The upstream body passes
// through verbatim on success; failures become the chat error body with
// the translated status.
func (h *ChatHandler) serveBuffered(ctx context.Context, w http.ResponseWriter, chatReq *types.RelayChatRequest, body []byte, start time.Time) {
	out := outcome{
		op:          audit.OpChat,
		supplier:    chatReq.Supplier,
		model:       chatReq.Model,
		requestBody: body,
	}

	target, label, relErr := resolveTarget(h.registry, chatReq.Supplier, chatReq.BaseURL, chatReq.APIKey)
	out.label = label
	out.targetURL = target.BaseURL
	ctx = logging.WithSupplier(ctx, label)

	if relErr == nil {
		slog.InfoContext(ctx, "relaying chat completion",
			"messages", len(chatReq.Messages),
		)

		resp, err := h.relay.Chat(ctx, target, toRelayRequest(chatReq))
		if err != nil {
			relErr = asRelayError(err)
		} else {
			out.httpStatus = resp.StatusCode
			out.upstreamStatus = resp.StatusCode
			out.responseBody = resp.Body
			out.duration = time.Since(start)

			if err := proxy.WriteRawJSON(w, resp.StatusCode, resp.Body); err != nil {
				slog.ErrorContext(ctx, "failed to write response", "error", err)
			}
			h.finish(ctx, out)
			return
		}
	}

	out.err = relErr
	out.httpStatus = relErr.HTTPStatus()
	out.upstreamStatus = relErr.Status
	out.duration = time.Since(start)

	if err := proxy.WriteChatError(w, relErr); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
	h.finish(ctx, out)
}

// serveStream relays one streaming chat call. The response commits to
// stream mode before target resolution, so even an unknown supplier is
// reported as a framed error event rather than an HTTP error.
func (h *ChatHandler) serveStream(ctx context.Context, w http.ResponseWriter, chatReq *types.RelayChatRequest, body []byte, start time.Time) {
	proxy.SetSSEHeaders(w)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	out := outcome{
		op:          audit.OpChatStream,
		supplier:    chatReq.Supplier,
		model:       chatReq.Model,
		requestBody: body,
		httpStatus:  http.StatusOK,
		stream:      true,
	}

	target, label, relErr := resolveTarget(h.registry, chatReq.Supplier, chatReq.BaseURL, chatReq.APIKey)
	out.label = label
	out.targetURL = target.BaseURL
	ctx = logging.WithSupplier(ctx, label)

	if relErr != nil {
		out.err = relErr
		out.duration = time.Since(start)
		if err := proxy.WriteSSEErrorFrame(w, relErr); err != nil {
			slog.ErrorContext(ctx, "failed to write SSE error frame", "error", err)
		}
		h.finish(ctx, out)
		return
	}

	slog.InfoContext(ctx, "relaying chat completion stream",
		"messages", len(chatReq.Messages),
	)

	stream, err := h.relay.OpenStream(ctx, target, toRelayRequest(chatReq))
	if err != nil {
		relErr := asRelayError(err)
		out.err = relErr
		out.upstreamStatus = relErr.Status
		out.duration = time.Since(start)
		if err := proxy.WriteSSEErrorFrame(w, relErr); err != nil {
			slog.ErrorContext(ctx, "failed to write SSE error frame", "error", err)
		}
		h.finish(ctx, out)
		return
	}
	defer stream.Close()

	h.metrics.StreamOpened(label)
	defer h.metrics.StreamClosed(label)

	// An opened stream means the upstream accepted the request.
	out.upstreamStatus = http.StatusOK

	// The gap timer bounds the wait between consecutive chunks. A nil
	// channel never fires, which disables the timeout cleanly.
	var gap *time.Timer
	var gapC <-chan time.Time
	if stream.ReadTimeout > 0 {
		gap = time.NewTimer(stream.ReadTimeout)
		defer gap.Stop()
		gapC = gap.C
	}

	for {
		select {
		case ev, open := <-stream.Events:
			if !open {
				out.duration = time.Since(start)
				h.finish(ctx, out)
				return
			}
			if ev.Err != nil {
				out.err = ev.Err
				out.duration = time.Since(start)
				if err := proxy.WriteSSEErrorFrame(w, ev.Err); err != nil {
					slog.ErrorContext(ctx, "failed to write SSE error frame", "error", err)
				}
				h.finish(ctx, out)
				return
			}

			if err := proxy.WriteSSEChunk(w, ev.Data); err != nil {
				out.clientGone = true
				out.duration = time.Since(start)
				h.finish(ctx, out)
				return
			}
			out.responseBytes += int64(len(ev.Data))
			out.chunks++
			h.metrics.RecordStreamChunk(label, len(ev.Data))

			if gap != nil {
				if !gap.Stop() {
					select {
					case <-gap.C:
					default:
					}
				}
				gap.Reset(stream.ReadTimeout)
			}

		case <-gapC:
			relErr := relay.NewError(relay.KindTimeout, "Upstream stream stalled")
			out.err = relErr
			out.duration = time.Since(start)
			if err := proxy.WriteSSEErrorFrame(w, relErr); err != nil {
				slog.ErrorContext(ctx, "failed to write SSE error frame", "error", err)
			}
			h.finish(ctx, out)
			return

		case <-ctx.Done():
			out.clientGone = true
			out.duration = time.Since(start)
			h.finish(ctx, out)
			return
		}
	}
}

// outcome describes one finished chat relay call for accounting.
type outcome struct {
	op             string // audit operation label
	label          string // supplier label for metrics and logs
	supplier       string // registry name, empty for inline targets
	model          string
	targetURL      string
	httpStatus     int          // status answered to the caller
	upstreamStatus int          // upstream status, 0 when never reached
	err            *relay.Error // nil on success
	clientGone     bool         // caller disconnected mid-stream
	requestBody    []byte
	responseBody   []byte // buffered mode
	responseBytes  int64  // stream mode
	chunks         int    // stream mode
	stream         bool
	duration       time.Duration
}

// finish records one completed relay call in metrics, the audit trail,
// and the log. It is the single accounting point for both response modes.
func (h *ChatHandler) finish(ctx context.Context, out outcome) {
	h.metrics.RecordRequest(out.label, out.op, strconv.Itoa(out.httpStatus), out.duration)
	if out.responseBody != nil {
		h.metrics.RecordPayload(out.op, "response", len(out.responseBody))
	} else if out.responseBytes > 0 {
		h.metrics.RecordPayload(out.op, "response", int(out.responseBytes))
	}

	errKind := ""
	if out.err != nil {
		errKind = string(out.err.Kind)
		h.metrics.RecordUpstreamError(errKind)
	}

	recordAudit(ctx, h.recorder, &recorder.Operation{
		RequestID:      middleware.GetRequestID(ctx),
		Supplier:       out.supplier,
		Operation:      out.op,
		Model:          out.model,
		TargetURL:      out.targetURL,
		UpstreamStatus: out.upstreamStatus,
		ErrorKind:      errKind,
		Duration:       out.duration,
		RequestBody:    out.requestBody,
		ResponseBody:   out.responseBody,
		ResponseBytes:  out.responseBytes,
		Stream:         out.stream,
	})

	switch {
	case out.err != nil:
		slog.ErrorContext(ctx, "chat relay failed",
			"kind", errKind,
			"error", out.err.Message,
			"upstream_status", out.upstreamStatus,
			"duration_ms", out.duration.Milliseconds(),
		)
	case out.clientGone:
		slog.WarnContext(ctx, "client disconnected during stream",
			"chunks_sent", out.chunks,
			"bytes_relayed", out.responseBytes,
			"duration_ms", out.duration.Milliseconds(),
		)
	case out.stream:
		slog.InfoContext(ctx, "stream relay complete",
			"chunks_sent", out.chunks,
			"bytes_relayed", out.responseBytes,
			"duration_ms", out.duration.Milliseconds(),
		)
	default:
		slog.InfoContext(ctx, "chat relay complete",
			"upstream_status", out.upstreamStatus,
			"response_bytes", len(out.responseBody),
			"duration_ms", out.duration.Milliseconds(),
		)
	}
}

// toRelayRequest maps the endpoint body onto the relay's normalized chat
// request. Messages and tool fields pass through as raw JSON.
func toRelayRequest(req *types.RelayChatRequest) *relay.ChatRequest {
	return &relay.ChatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		Tools:       req.Tools,
		ToolChoice:  req.ToolChoice,
	}
}
