package logging

import (
	"context"
	"log/slog"
)

// contextHandler wraps a slog.Handler to inject request-scoped context
// fields and mask credentials in messages and attribute values. Both
// live in the handler rather than the Logger so that every logger
// sharing it, including slog.Default after Install, behaves the same.
type contextHandler struct {
	inner    slog.Handler
	redactor *Redactor
}

func newContextHandler(inner slog.Handler, redactor *Redactor) *contextHandler {
	return &contextHandler{inner: inner, redactor: redactor}
}

// Enabled reports whether the wrapped handler handles records at the
// given level.
func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle rewrites the record with redacted values, appends the known
// context fields, and passes it on.
func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	ctxAttrs := contextAttrs(ctx)
	if h.redactor == nil && len(ctxAttrs) == 0 {
		return h.inner.Handle(ctx, r)
	}

	msg := r.Message
	if h.redactor != nil {
		msg = h.redactor.RedactString(msg)
	}

	out := slog.NewRecord(r.Time, r.Level, msg, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactAttr(a))
		return true
	})
	out.AddAttrs(ctxAttrs...)

	return h.inner.Handle(ctx, out)
}

// WithAttrs redacts the bound attributes before handing them to the
// wrapped handler, so Logger.With sees the same masking as log calls.
func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &contextHandler{inner: h.inner.WithAttrs(redacted), redactor: h.redactor}
}

// WithGroup opens a group on the wrapped handler.
func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{inner: h.inner.WithGroup(name), redactor: h.redactor}
}

// redactAttr masks a single attribute. Values under sensitive keys are
// masked entirely; other string values are scanned for embedded
// credentials. Groups recurse.
func (h *contextHandler) redactAttr(a slog.Attr) slog.Attr {
	if h.redactor == nil {
		return a
	}

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		if h.redactor.isSensitiveKey(a.Key) {
			return slog.Any(a.Key, h.redactor.redactValue(v.String()))
		}
		return slog.String(a.Key, h.redactor.RedactString(v.String()))
	case slog.KindGroup:
		group := v.Group()
		redacted := make([]any, 0, len(group))
		for _, ga := range group {
			redacted = append(redacted, h.redactAttr(ga))
		}
		return slog.Group(a.Key, redacted...)
	default:
		if h.redactor.isSensitiveKey(a.Key) {
			return slog.Any(a.Key, h.redactor.redactValue(v.Any()))
		}
		return a
	}
}
