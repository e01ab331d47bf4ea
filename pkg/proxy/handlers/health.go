package handlers

import (
	"context"
	"net/http"
	"time"

	"styx-hq/charon/pkg/audit"
	"styx-hq/charon/pkg/proxy"
	"styx-hq/charon/pkg/proxy/types"
)

// auditProbeTimeout bounds the storage reachability check so a wedged
// store cannot hang the probe.
const auditProbeTimeout = 2 * time.Second

// RegistryStatus is the registry surface the readiness check reads.
// *registry.Registry implements it.
type RegistryStatus interface {
	Ready() bool
	Len() int
}

// HealthHandler serves GET /health for liveness probes.
type HealthHandler struct{}

// NewHealthHandler creates a new liveness handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	}
	_ = proxy.WriteJSON(w, http.StatusOK, response)
}

// ReadyHandler serves GET /ready for readiness probes. The service is
// ready when the supplier registry has a loaded snapshot and the audit
// store answers a query. A nil dependency skips its check.
type ReadyHandler struct {
	registry RegistryStatus
	audit    audit.Storage
}

// NewReadyHandler creates a new readiness handler.
func NewReadyHandler(registry RegistryStatus, auditStore audit.Storage) *ReadyHandler {
	return &ReadyHandler{registry: registry, audit: auditStore}
}

// ServeHTTP implements http.Handler.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	checks := make(map[string]string)
	ready := true

	if h.registry != nil {
		if h.registry.Ready() {
			checks["registry"] = "ok"
		} else {
			checks["registry"] = "not_loaded"
			ready = false
		}
	}

	if h.audit != nil {
		ctx, cancel := context.WithTimeout(r.Context(), auditProbeTimeout)
		defer cancel()
		if _, err := h.audit.Count(ctx, &audit.Query{}); err != nil {
			checks["audit"] = "unreachable"
			ready = false
		} else {
			checks["audit"] = "ok"
		}
	}

	status := "ready"
	statusCode := http.StatusOK
	if !ready {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().Unix(),
	}
	_ = proxy.WriteJSON(w, statusCode, response)
}

// VersionHandler serves GET /version with the build's identity.
type VersionHandler struct {
	info types.VersionInfo
}

// NewVersionHandler creates a new version handler.
func NewVersionHandler(info types.VersionInfo) *VersionHandler {
	return &VersionHandler{info: info}
}

// ServeHTTP implements http.Handler.
func (h *VersionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	_ = proxy.WriteJSON(w, http.StatusOK, h.info)
}
