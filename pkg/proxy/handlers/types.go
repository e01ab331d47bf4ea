package handlers

import (
	"context"
	"log/slog"

	"styx-hq/charon/pkg/audit/recorder"
	"styx-hq/charon/pkg/relay"
	"styx-hq/charon/pkg/telemetry/metrics"
)

// Relayer is the relay surface the endpoint handlers drive.
// *relay.Relay implements it.
type Relayer interface {
	Chat(ctx context.Context, target relay.Target, req *relay.ChatRequest) (*relay.ChatResponse, error)
	OpenStream(ctx context.Context, target relay.Target, req *relay.ChatRequest) (*relay.Stream, error)
	ListModels(ctx context.Context, target relay.Target) ([]relay.ModelEntry, error)
}

// TargetResolver maps supplier names to relay targets.
// *registry.Registry implements it.
type TargetResolver interface {
	Resolve(name string) (relay.Target, bool)
}

// AuditRecorder accepts finished relay operations for the audit trail.
// *recorder.Recorder implements it.
type AuditRecorder interface {
	Record(ctx context.Context, op *recorder.Operation) error
}

// Deps bundles the collaborators shared by the relay-facing handlers.
// Relay is required. Registry, Recorder, and Metrics may be nil, which
// disables the concern: a nil registry knows no supplier names, a nil
// recorder skips auditing, a nil collector records nothing.
type Deps struct {
	// Relay performs the upstream calls.
	Relay Relayer

	// Registry resolves named suppliers to stored targets.
	Registry TargetResolver

	// Recorder receives one audit operation per relay call.
	Recorder AuditRecorder

	// Metrics records request metrics.
	Metrics *metrics.Collector

	// MaxBodyBytes caps request bodies. Zero means the package default.
	MaxBodyBytes int64
}

// normalize substitutes a no-op collector for a nil one so handlers can
// record metrics without nil checks at every call site.
func (d Deps) normalize() Deps {
	if d.Metrics == nil {
		d.Metrics = metrics.NewNopCollector()
	}
	return d
}

// recordAudit hands one finished operation to the recorder. Failures are
// logged, never surfaced to the caller.
func recordAudit(ctx context.Context, rec AuditRecorder, op *recorder.Operation) {
	if rec == nil {
		return
	}
	if err := rec.Record(ctx, op); err != nil {
		slog.WarnContext(ctx, "failed to record audit entry",
			"operation", op.Operation,
			"error", err,
		)
	}
}
