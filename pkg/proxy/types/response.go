package types

import "encoding/json"

// APIResponse is the envelope used by the supplier endpoints. Success
// responses carry a payload under Data; failures carry a message and the
// error kind string.
type APIResponse struct {
	// Success indicates whether the operation completed.
	Success bool `json:"success"`

	// Data is the operation payload, present on success.
	Data interface{} `json:"data,omitempty"`

	// Error is a human-readable failure message.
	Error string `json:"error,omitempty"`

	// ErrorCode is the failure kind (VALIDATION_ERROR, UNAUTHORIZED, ...).
	ErrorCode string `json:"error_code,omitempty"`
}

// ModelInfo identifies one model advertised by an upstream.
type ModelInfo struct {
	// ID is the model identifier as reported by the upstream.
	ID string `json:"id"`
}

// ModelsData is the Data payload of a successful /v1/suppliers/models call.
type ModelsData struct {
	// Models lists the upstream's advertised models.
	Models []ModelInfo `json:"models"`
}

// ConnectionData is the Data payload of a successful
// /v1/suppliers/test-connection call.
type ConnectionData struct {
	// Success mirrors the envelope flag for clients that only read Data.
	Success bool `json:"success"`

	// Message is a short human-readable status.
	Message string `json:"message"`

	// Models lists the models fetched while probing the connection.
	Models []ModelInfo `json:"models"`
}

// ImportResult is the response body for POST /v1/import/remote. Import
// failures are soft: the handler answers 200 with Success false and a
// failure code rather than an HTTP error.
type ImportResult struct {
	// Success indicates whether the card was accepted.
	Success bool `json:"success"`

	// CardID is the short identifier of the stored card, present on success.
	CardID string `json:"card_id,omitempty"`

	// Message is a human-readable status or failure description.
	Message string `json:"message,omitempty"`

	// ErrorCode is the failure kind, present on failure.
	ErrorCode string `json:"error_code,omitempty"`
}

// PendingList is the response body for GET /v1/import/remote/pending.
type PendingList struct {
	// Count is the number of cards awaiting pickup.
	Count int `json:"count"`

	// Cards summarizes the pending cards in storage order.
	Cards []PendingCard `json:"cards"`
}

// PendingCard summarizes one stored card awaiting pickup.
type PendingCard struct {
	// ID is the short card identifier.
	ID string `json:"id"`

	// Name is the display name extracted from the card payload.
	Name string `json:"name"`
}

// PendingCardResult is the response body for
// GET /v1/import/remote/pending/{id}. Fetching a card removes it.
type PendingCardResult struct {
	// Success is always true on a 200 response.
	Success bool `json:"success"`

	// Card is the original payload as submitted.
	Card json.RawMessage `json:"card"`
}

// VersionInfo is the response body for GET /version.
type VersionInfo struct {
	// Version is the semantic version of the build.
	Version string `json:"version"`

	// Commit is the VCS revision the binary was built from.
	Commit string `json:"commit"`

	// BuildDate is the build timestamp.
	BuildDate string `json:"build_date"`

	// GoVersion is the Go toolchain the binary was built with.
	GoVersion string `json:"go_version,omitempty"`

	// Platform is the target OS and architecture, e.g. "linux/amd64".
	Platform string `json:"platform,omitempty"`
}
