package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// SupplierKey is the context key for upstream supplier labels.
	SupplierKey contextKey = "supplier"

	// ModelKey is the context key for model names.
	ModelKey contextKey = "model"

	// OperationKey is the context key for relay operation names.
	OperationKey contextKey = "operation"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithSupplier adds a supplier label to the context.
func WithSupplier(ctx context.Context, supplier string) context.Context {
	return context.WithValue(ctx, SupplierKey, supplier)
}

// GetSupplier retrieves the supplier label from the context.
func GetSupplier(ctx context.Context) string {
	if supplier, ok := ctx.Value(SupplierKey).(string); ok {
		return supplier
	}
	return ""
}

// WithModel adds a model name to the context.
func WithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, ModelKey, model)
}

// GetModel retrieves the model name from the context.
func GetModel(ctx context.Context) string {
	if model, ok := ctx.Value(ModelKey).(string); ok {
		return model
	}
	return ""
}

// WithOperation adds a relay operation name to the context.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, OperationKey, operation)
}

// GetOperation retrieves the relay operation name from the context.
func GetOperation(ctx context.Context) string {
	if operation, ok := ctx.Value(OperationKey).(string); ok {
		return operation
	}
	return ""
}

// contextAttrs extracts the known request-scoped fields from ctx as
// slog attributes, in a fixed order.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	if requestID := GetRequestID(ctx); requestID != "" {
		attrs = append(attrs, slog.String(string(RequestIDKey), requestID))
	}
	if supplier := GetSupplier(ctx); supplier != "" {
		attrs = append(attrs, slog.String(string(SupplierKey), supplier))
	}
	if model := GetModel(ctx); model != "" {
		attrs = append(attrs, slog.String(string(ModelKey), model))
	}
	if operation := GetOperation(ctx); operation != "" {
		attrs = append(attrs, slog.String(string(OperationKey), operation))
	}

	return attrs
}
