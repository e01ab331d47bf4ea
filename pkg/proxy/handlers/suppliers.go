package handlers

import (
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

// supplierHandler is the shared plumbing of the two supplier endpoints.
// Both accept the same body, resolve the target the same way, and fetch
// the upstream's model list; they differ only in the success payload.
type supplierHandler struct {
	relay    Relayer
	registry TargetResolver
	recorder AuditRecorder
	metrics  *metrics.Collector
	maxBody  int64
}

func newSupplierHandler(deps Deps) supplierHandler {
	deps = deps.normalize()
	return supplierHandler{
		relay:    deps.Relay,
		registry: deps.Registry,
		recorder: deps.Recorder,
		metrics:  deps.Metrics,
		maxBody:  deps.MaxBodyBytes,
	}
}

// listModels parses the request, fetches the target's model list, and
// accounts for the call. Failures are written as the API error envelope
// here; on success the caller writes its own payload around the list.
func (h *supplierHandler) listModels(w http.ResponseWriter, r *http.Request, op string) ([]types.ModelInfo, bool) {
	start := time.Now()
	ctx := logging.WithOperation(r.Context(), op)

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	supReq, body, perr := proxy.ParseSupplierRequest(r, h.maxBody)
	if perr != nil {
		slog.WarnContext(ctx, "rejected supplier request",
			"kind", string(perr.Kind),
			"error", perr.Message,
		)
		if err := proxy.WriteAPIError(w, perr); err != nil {
			slog.ErrorContext(ctx, "failed to write error response", "error", err)
		}
		return nil, false
	}

	target, label, relErr := resolveTarget(h.registry, supReq.Supplier, supReq.BaseURL, supReq.APIKey)
	ctx = logging.WithSupplier(ctx, label)

	var entries []relay.ModelEntry
	if relErr == nil {
		var err error
		entries, err = h.relay.ListModels(ctx, target)
		if err != nil {
			relErr = asRelayError(err)
		}
	}

	duration := time.Since(start)
	status := http.StatusOK
	upstreamStatus := http.StatusOK
	errKind := ""
	if relErr != nil {
		status = relErr.HTTPStatus()
		upstreamStatus = relErr.Status
		errKind = string(relErr.Kind)
		h.metrics.RecordUpstreamError(errKind)
	}
	h.metrics.RecordRequest(label, op, strconv.Itoa(status), duration)

	recordAudit(ctx, h.recorder, &recorder.Operation{
		RequestID:      middleware.GetRequestID(ctx),
		Supplier:       supReq.Supplier,
		Operation:      op,
		TargetURL:      target.BaseURL,
		UpstreamStatus: upstreamStatus,
		ErrorKind:      errKind,
		Duration:       duration,
		RequestBody:    body,
	})

	if relErr != nil {
		slog.ErrorContext(ctx, "model listing failed",
			"kind", errKind,
			"error", relErr.Message,
			"duration_ms", duration.Milliseconds(),
		)
		if err := proxy.WriteAPIError(w, relErr); err != nil {
			slog.ErrorContext(ctx, "failed to write error response", "error", err)
		}
		return nil, false
	}

	models := make([]types.ModelInfo, 0, len(entries))
	for _, entry := range entries {
		models = append(models, types.ModelInfo{ID: entry.ID})
	}

	slog.InfoContext(ctx, "model listing complete",
		"count", len(models),
		"duration_ms", duration.Milliseconds(),
	)
	return models, true
}

// ModelsHandler serves POST /v1/suppliers/models: the target's advertised
// models inside the API envelope.
type ModelsHandler struct {
	supplierHandler
}

// NewModelsHandler creates the model listing handler.
func NewModelsHandler(deps Deps) *ModelsHandler {
	return &ModelsHandler{newSupplierHandler(deps)}
}

// ServeHTTP implements http.Handler.
func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	models, ok := h.listModels(w, r, audit.OpModels)
	if !ok {
		return
	}
	if err := proxy.WriteAPISuccess(w, &types.ModelsData{Models: models}); err != nil {
		slog.ErrorContext(r.Context(), "failed to write response", "error", err)
	}
}

// TestConnectionHandler serves POST /v1/suppliers/test-connection. A
// connection test is a model listing under the hood: reaching the models
// endpoint proves the base URL and credential work.
type TestConnectionHandler struct {
	supplierHandler
}

// NewTestConnectionHandler creates the connection test handler.
func NewTestConnectionHandler(deps Deps) *TestConnectionHandler {
	return &TestConnectionHandler{newSupplierHandler(deps)}
}

// ServeHTTP implements http.Handler.
func (h *TestConnectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	models, ok := h.listModels(w, r, audit.OpTestConnection)
	if !ok {
		return
	}
	data := &types.ConnectionData{
		Success: true,
		Message: "connection successful",
		Models:  models,
	}
	if err := proxy.WriteAPISuccess(w, data); err != nil {
		slog.ErrorContext(r.Context(), "failed to write response", "error", err)
	}
}
