package imports

import (
	"context"
	"time"
)

// Store persists cards staged by remote import until a client collects
// them. Implementations must be thread-safe and support concurrent access.
type Store interface {
	// Put stages a card for collection.
	// A store at capacity evicts the oldest pending card first.
	Put(ctx context.Context, card *Card) error

	// Get removes and returns the card with the given id.
	// Returns nil if no card with that id is pending.
	Get(ctx context.Context, id string) (*Card, error)

	// List returns all pending cards, oldest first.
	// Returns an empty slice when nothing is pending.
	List(ctx context.Context) ([]*Card, error)

	// Cleanup removes cards staged before the cutoff.
	// Returns the number of cards removed and any error.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases any resources held by the store.
	// The store should not be used after calling Close.
	Close() error
}
