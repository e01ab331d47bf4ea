package imports

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// UnnamedCard is the display name used when a payload carries no name.
const UnnamedCard = "Unnamed card"

// Card is one imported payload staged until a client collects it.
// The payload is opaque; the relay never inspects it beyond the name.
type Card struct {
	// ID is the short identifier clients use to collect the card.
	ID string

	// Name is the display name shown in the pending list.
	Name string

	// Payload is the card exactly as it was received.
	Payload json.RawMessage

	// CreatedAt is when the card was staged.
	CreatedAt time.Time
}

// NewCard stages a raw card payload under a fresh short id.
// The caller is responsible for validating that payload is JSON.
func NewCard(payload []byte) *Card {
	return &Card{
		ID:        uuid.New().String()[:8],
		Name:      displayName(payload),
		Payload:   json.RawMessage(payload),
		CreatedAt: time.Now(),
	}
}

// displayName extracts the card's display name from the top-level "name"
// field, falling back to "data.name" for wrapped card formats.
func displayName(payload []byte) string {
	var doc struct {
		Name string `json:"name"`
		Data struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &doc); err == nil {
		if doc.Name != "" {
			return doc.Name
		}
		if doc.Data.Name != "" {
			return doc.Data.Name
		}
	}
	return UnnamedCard
}
