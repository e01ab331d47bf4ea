package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"styx-hq/charon/pkg/imports"
	"styx-hq/charon/pkg/proxy"
	"styx-hq/charon/pkg/proxy/types"
	"styx-hq/charon/pkg/relay"
)

// PendingCardPathPrefix is the mount prefix of the single-card endpoint.
// The card id is the remainder of the path.
const PendingCardPathPrefix = "/v1/import/remote/pending/"

// Failure codes specific to the import surface. Validation and internal
// failures reuse the relay's kind strings.
const (
	codeVersionMismatch = "VERSION_MISMATCH"
	codeNotFound        = "NOT_FOUND"
)

// ImportConfig configures the remote import endpoints.
type ImportConfig struct {
	// Store stages imported cards until a client collects them.
	Store imports.Store

	// MinClientVersion is the lowest client build allowed to import.
	// Empty disables the gate.
	MinClientVersion string

	// MaxBodyBytes caps card payloads. Zero means the package default.
	MaxBodyBytes int64
}

// ImportHandler serves POST /v1/import/remote. Import failures are soft:
// the response status is 200 and the body carries the failure code, so a
// submitting client can always parse the outcome.
type ImportHandler struct {
	store      imports.Store
	minVersion string
	maxBody    int64
}

// NewImportHandler creates the remote import handler.
func NewImportHandler(cfg ImportConfig) *ImportHandler {
	return &ImportHandler{
		store:      cfg.Store,
		minVersion: cfg.MinClientVersion,
		maxBody:    cfg.MaxBodyBytes,
	}
}

// ServeHTTP implements http.Handler.
func (h *ImportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := imports.CheckClientVersion(proxy.ExtractClientVersion(r), h.minVersion); err != nil {
		h.writeFailure(ctx, w, codeVersionMismatch, err.Error())
		return
	}

	body, rerr := proxy.ReadBody(r, h.maxBody)
	if rerr != nil {
		h.writeFailure(ctx, w, string(relay.KindValidation), rerr.Message)
		return
	}
	if len(body) == 0 {
		h.writeFailure(ctx, w, string(relay.KindValidation), "Card payload must not be empty")
		return
	}
	if !json.Valid(body) {
		h.writeFailure(ctx, w, string(relay.KindValidation), "Card payload must be valid JSON")
		return
	}

	card := imports.NewCard(body)
	if err := h.store.Put(ctx, card); err != nil {
		slog.ErrorContext(ctx, "failed to stage imported card",
			"card_id", card.ID,
			"error", err,
		)
		h.writeFailure(ctx, w, string(relay.KindInternal), "Failed to store card")
		return
	}

	slog.InfoContext(ctx, "card imported",
		"card_id", card.ID,
		"name", card.Name,
		"bytes", len(body),
	)

	result := &types.ImportResult{
		Success: true,
		CardID:  card.ID,
		Message: fmt.Sprintf("Card '%s' imported successfully", card.Name),
	}
	if err := proxy.WriteJSON(w, http.StatusOK, result); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

// writeFailure answers an import failure with a 200 and the failure code.
func (h *ImportHandler) writeFailure(ctx context.Context, w http.ResponseWriter, code, message string) {
	slog.WarnContext(ctx, "card import rejected",
		"code", code,
		"error", message,
	)
	result := &types.ImportResult{
		Success:   false,
		ErrorCode: code,
		Message:   message,
	}
	if err := proxy.WriteJSON(w, http.StatusOK, result); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

// PendingListHandler serves GET /v1/import/remote/pending: a summary of
// the cards awaiting collection, oldest first.
type PendingListHandler struct {
	store imports.Store
}

// NewPendingListHandler creates the pending list handler.
func NewPendingListHandler(store imports.Store) *PendingListHandler {
	return &PendingListHandler{store: store}
}

// ServeHTTP implements http.Handler.
func (h *PendingListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cards, err := h.store.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list pending cards", "error", err)
		writeImportError(w, http.StatusInternalServerError,
			string(relay.KindInternal), "Failed to list pending cards")
		return
	}

	list := &types.PendingList{
		Count: len(cards),
		Cards: make([]types.PendingCard, 0, len(cards)),
	}
	for _, card := range cards {
		list.Cards = append(list.Cards, types.PendingCard{ID: card.ID, Name: card.Name})
	}

	if err := proxy.WriteJSON(w, http.StatusOK, list); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

// PendingCardHandler serves GET /v1/import/remote/pending/{id}. Collecting
// a card removes it from the store, so each card is delivered exactly once.
type PendingCardHandler struct {
	store imports.Store
}

// NewPendingCardHandler creates the card collection handler.
func NewPendingCardHandler(store imports.Store) *PendingCardHandler {
	return &PendingCardHandler{store: store}
}

// ServeHTTP implements http.Handler.
func (h *PendingCardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, PendingCardPathPrefix)
	if id == "" || strings.Contains(id, "/") {
		writeImportError(w, http.StatusNotFound, codeNotFound, "Card not found")
		return
	}

	card, err := h.store.Get(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "failed to fetch pending card",
			"card_id", id,
			"error", err,
		)
		writeImportError(w, http.StatusInternalServerError,
			string(relay.KindInternal), "Failed to fetch card")
		return
	}
	if card == nil {
		writeImportError(w, http.StatusNotFound, codeNotFound, "Card not found")
		return
	}

	slog.InfoContext(ctx, "card collected",
		"card_id", card.ID,
		"name", card.Name,
	)

	result := &types.PendingCardResult{
		Success: true,
		Card:    card.Payload,
	}
	if err := proxy.WriteJSON(w, http.StatusOK, result); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

// writeImportError answers a pending endpoint failure with the API error
// envelope and an explicit status. Unlike submissions these are hard
// failures: the collecting client keys off the status code.
func writeImportError(w http.ResponseWriter, status int, code, message string) {
	resp := &types.APIResponse{
		Success:   false,
		Error:     message,
		ErrorCode: code,
	}
	_ = proxy.WriteJSON(w, status, resp)
}
