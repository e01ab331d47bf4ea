package imports

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store using in-memory storage.
// This is the default store; pending cards are lost when the process exits.
//
// MemoryStore is thread-safe and supports concurrent access using sync.RWMutex.
type MemoryStore struct {
	// cards maps card id to the staged card.
	cards map[string]*Card

	// mu protects access to the cards map.
	mu sync.RWMutex

	// maxEntries is the maximum number of pending cards before eviction.
	maxEntries int

	// ttl is how long a card may stay pending before it expires.
	ttl time.Duration

	// cleanupInterval is how often to run expiry cleanup.
	cleanupInterval time.Duration

	// done signals the cleanup goroutine to stop.
	done chan struct{}

	closeOnce sync.Once
}

// MemoryStoreConfig configures the memory store.
type MemoryStoreConfig struct {
	// MaxEntries is the maximum number of pending cards to hold.
	// The oldest card is evicted when this limit is reached.
	// Default: 100
	MaxEntries int

	// TTL is how long a card may stay pending before it expires.
	// Default: 1 hour
	TTL time.Duration

	// CleanupInterval is how often expired cards are removed.
	// Default: 1 minute
	CleanupInterval time.Duration
}

// NewMemoryStore creates a new in-memory pending store with default settings.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithConfig(MemoryStoreConfig{
		MaxEntries:      100,
		TTL:             time.Hour,
		CleanupInterval: time.Minute,
	})
}

// NewMemoryStoreWithConfig creates a new in-memory store with custom configuration.
func NewMemoryStoreWithConfig(cfg MemoryStoreConfig) *MemoryStore {
	// Apply defaults
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = 100
	}
	if cfg.TTL == 0 {
		cfg.TTL = time.Hour
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Minute
	}

	store := &MemoryStore{
		cards:           make(map[string]*Card),
		maxEntries:      cfg.MaxEntries,
		ttl:             cfg.TTL,
		cleanupInterval: cfg.CleanupInterval,
		done:            make(chan struct{}),
	}

	// Start background cleanup goroutine
	go store.cleanupLoop()

	return store
}

// Put stages a card for collection.
func (m *MemoryStore) Put(ctx context.Context, card *Card) error {
	if card == nil {
		return fmt.Errorf("card cannot be nil")
	}
	if card.ID == "" {
		return fmt.Errorf("card id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Evict the oldest card when the store is full
	if len(m.cards) >= m.maxEntries {
		m.evictOldestLocked()
	}

	if card.CreatedAt.IsZero() {
		card.CreatedAt = time.Now()
	}

	m.cards[card.ID] = card

	return nil
}

// Get removes and returns the card with the given id.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Card, error) {
	if id == "" {
		return nil, fmt.Errorf("card id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	card, exists := m.cards[id]
	if !exists {
		return nil, nil
	}
	delete(m.cards, id)

	// A card past its TTL but not yet swept is already gone from the
	// caller's point of view.
	if m.ttl > 0 && time.Since(card.CreatedAt) > m.ttl {
		return nil, nil
	}
	return card, nil
}

// List returns all pending cards, oldest first.
func (m *MemoryStore) List(ctx context.Context) ([]*Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cards := make([]*Card, 0, len(m.cards))
	for _, card := range m.cards {
		cards = append(cards, card)
	}

	sort.Slice(cards, func(i, j int) bool {
		return cards[i].CreatedAt.Before(cards[j].CreatedAt)
	})

	return cards, nil
}

// Cleanup removes cards staged before the cutoff.
func (m *MemoryStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, card := range m.cards {
		if card.CreatedAt.Before(olderThan) {
			delete(m.cards, id)
			removed++
		}
	}

	return removed, nil
}

// Close releases any resources held by the store.
// Close is idempotent and safe to call multiple times.
func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	return nil
}

// Size returns the current number of pending cards.
// This is useful for monitoring and testing.
func (m *MemoryStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cards)
}

// evictOldestLocked evicts the oldest card to make room for new entries.
// Caller must hold the write lock.
func (m *MemoryStore) evictOldestLocked() {
	var (
		oldestID    string
		oldestTime  time.Time
		foundOldest bool
	)

	for id, card := range m.cards {
		if !foundOldest || card.CreatedAt.Before(oldestTime) {
			oldestID = id
			oldestTime = card.CreatedAt
			foundOldest = true
		}
	}

	if foundOldest {
		delete(m.cards, oldestID)
	}
}

// cleanupLoop runs periodic cleanup of expired cards.
func (m *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-m.ttl)
			_, _ = m.Cleanup(context.Background(), cutoff)
		case <-m.done:
			return
		}
	}
}
