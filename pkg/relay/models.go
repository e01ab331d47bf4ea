package relay

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// ModelEntry is one model identifier reported by an upstream.
type ModelEntry struct {
	ID string `json:"id"`
}

// ListModels queries {base}/v1/models with bearer authentication and
// returns the upstream's model identifiers.
//
// Failure translation: empty credential or bad base URL is a
// VALIDATION_ERROR with no network call; transport timeout TIMEOUT; other
// transport failure NETWORK_ERROR; status 401 UNAUTHORIZED; 429
// RATE_LIMITED; any other status >= 400 UPSTREAM_ERROR carrying the
// status. A 2xx body that is not parseable JSON is a VALIDATION_ERROR.
//
// The 2xx body is read tolerantly: a missing `data` key or a `data` that
// is not an array yields an empty list rather than an error, and array
// elements without a non-empty string `id` are silently dropped.
func (r *Relay) ListModels(ctx context.Context, target Target) ([]ModelEntry, error) {
	base, verr := prepareTarget(target)
	if verr != nil {
		return nil, verr
	}

	req, err := r.newRequest(ctx, http.MethodGet, base+modelsPath, nil, target.APIKey, "application/json")
	if err != nil {
		return nil, err
	}

	resp, err := r.modelsClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		slog.DebugContext(ctx, "model listing rejected by upstream",
			"status", resp.StatusCode,
		)
		return nil, upstreamError(KindForStatus(resp.StatusCode), resp.StatusCode, "")
	}

	return parseModelList(body)
}

// parseModelList extracts model entries from an upstream 2xx body.
func parseModelList(body []byte) ([]ModelEntry, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &Error{
			Kind:    KindValidation,
			Message: "Failed to parse upstream model list",
			Cause:   err,
		}
	}

	entries := make([]ModelEntry, 0)
	doc, ok := payload.(map[string]any)
	if !ok {
		return entries, nil
	}
	items, ok := doc["data"].([]any)
	if !ok {
		return entries, nil
	}
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, ok := obj["id"].(string)
		if !ok || id == "" {
			continue
		}
		entries = append(entries, ModelEntry{ID: id})
	}
	return entries, nil
}
