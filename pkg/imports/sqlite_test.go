package imports

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

// newTestSQLiteStore creates a SQLite store backed by a temp file.
func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "pending.db")

	store, err := NewSQLiteStoreWithConfig(SQLiteStoreConfig{
		Path:            dbPath,
		MaxEntries:      100,
		TTL:             time.Hour,
		CleanupInterval: time.Hour, // Disable cleanup for most tests
	})
	if err != nil {
		t.Fatalf("Failed to create SQLite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestSQLiteStore_PutAndGet(t *testing.T) {
	store := newTestSQLiteStore(t)

	ctx := context.Background()

	card := &Card{
		ID:      "a1b2c3d4",
		Name:    "Morrigan",
		Payload: json.RawMessage(`{"name": "Morrigan", "description": "test"}`),
	}

	if err := store.Put(ctx, card); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, "a1b2c3d4")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected card, got nil")
	}
	if got.Name != "Morrigan" {
		t.Errorf("Expected name Morrigan, got %q", got.Name)
	}
	if string(got.Payload) != string(card.Payload) {
		t.Errorf("Expected payload to round-trip, got %s", got.Payload)
	}
	if got.CreatedAt.UnixNano() != card.CreatedAt.UnixNano() {
		t.Errorf("Expected CreatedAt %v, got %v", card.CreatedAt, got.CreatedAt)
	}

	// Get pops: the card must be gone afterwards
	got, err = store.Get(ctx, "a1b2c3d4")
	if err != nil {
		t.Fatalf("Second Get failed: %v", err)
	}
	if got != nil {
		t.Error("Expected card to be removed after Get")
	}
}

func TestSQLiteStore_GetNonExistent(t *testing.T) {
	store := newTestSQLiteStore(t)

	got, err := store.Get(context.Background(), "missing1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for non-existent card, got %v", got)
	}
}

func TestSQLiteStore_GetExpiredBeforeSweep(t *testing.T) {
	// The helper's long cleanup interval keeps the sweeper out of the
	// picture: the row is past its TTL but still present when Get runs.
	store := newTestSQLiteStore(t)

	ctx := context.Background()

	card := &Card{
		ID:        "stalecard",
		Name:      "Stale",
		Payload:   json.RawMessage(`{"name": "Stale"}`),
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	if err := store.Put(ctx, card); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, "stalecard")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for expired card, got %v", got)
	}

	remaining, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("Expected expired card to be removed, %d cards remain", len(remaining))
	}
}

func TestSQLiteStore_List(t *testing.T) {
	store := newTestSQLiteStore(t)

	ctx := context.Background()
	base := time.Now()

	cards := []*Card{
		{ID: "card-two", Name: "Two", Payload: json.RawMessage(`{}`), CreatedAt: base.Add(2 * time.Second)},
		{ID: "card-one", Name: "One", Payload: json.RawMessage(`{}`), CreatedAt: base.Add(1 * time.Second)},
		{ID: "card-three", Name: "Three", Payload: json.RawMessage(`{}`), CreatedAt: base.Add(3 * time.Second)},
	}
	for _, card := range cards {
		if err := store.Put(ctx, card); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	listed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("Expected 3 cards, got %d", len(listed))
	}

	wantOrder := []string{"One", "Two", "Three"}
	for i, want := range wantOrder {
		if listed[i].Name != want {
			t.Errorf("Expected card %d to be %s, got %s", i, want, listed[i].Name)
		}
	}
}

func TestSQLiteStore_MaxEntries(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pending.db")

	store, err := NewSQLiteStoreWithConfig(SQLiteStoreConfig{
		Path:            dbPath,
		MaxEntries:      3,
		TTL:             time.Hour,
		CleanupInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("Failed to create SQLite store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Now()

	for i := 1; i <= 5; i++ {
		card := &Card{
			ID:        fmt.Sprintf("card-%d", i),
			Name:      fmt.Sprintf("Card %d", i),
			Payload:   json.RawMessage(`{}`),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.Put(ctx, card); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	listed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("Expected 3 cards after eviction, got %d", len(listed))
	}

	// The three newest cards survive, oldest first
	wantOrder := []string{"Card 3", "Card 4", "Card 5"}
	for i, want := range wantOrder {
		if listed[i].Name != want {
			t.Errorf("Expected card %d to be %s, got %s", i, want, listed[i].Name)
		}
	}
}

func TestSQLiteStore_Cleanup(t *testing.T) {
	store := newTestSQLiteStore(t)

	ctx := context.Background()

	oldCard := &Card{
		ID:        "old-card",
		Name:      "Old",
		Payload:   json.RawMessage(`{}`),
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	recentCard := &Card{
		ID:        "new-card",
		Name:      "Recent",
		Payload:   json.RawMessage(`{}`),
		CreatedAt: time.Now().Add(-time.Minute),
	}

	if err := store.Put(ctx, oldCard); err != nil {
		t.Fatalf("Put old card failed: %v", err)
	}
	if err := store.Put(ctx, recentCard); err != nil {
		t.Fatalf("Put recent card failed: %v", err)
	}

	removed, err := store.Cleanup(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected to remove 1 card, removed %d", removed)
	}

	got, err := store.Get(ctx, "old-card")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Error("Expected old card to be cleaned up")
	}

	got, err = store.Get(ctx, "new-card")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Error("Expected recent card to still exist")
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pending.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create SQLite store: %v", err)
	}

	ctx := context.Background()

	card := &Card{
		ID:      "persist1",
		Name:    "Durable",
		Payload: json.RawMessage(`{"name": "Durable"}`),
	}
	if err := store.Put(ctx, card); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen SQLite store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "persist1")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected card to survive reopen")
	}
	if got.Name != "Durable" {
		t.Errorf("Expected name Durable, got %q", got.Name)
	}
}

func TestSQLiteStore_ReplaceSameID(t *testing.T) {
	store := newTestSQLiteStore(t)

	ctx := context.Background()

	first := &Card{ID: "same-id", Name: "First", Payload: json.RawMessage(`{"v": 1}`)}
	second := &Card{ID: "same-id", Name: "Second", Payload: json.RawMessage(`{"v": 2}`)}

	if err := store.Put(ctx, first); err != nil {
		t.Fatalf("Put first failed: %v", err)
	}
	if err := store.Put(ctx, second); err != nil {
		t.Fatalf("Put second failed: %v", err)
	}

	listed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("Expected 1 card after replace, got %d", len(listed))
	}

	got, err := store.Get(ctx, "same-id")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "Second" {
		t.Errorf("Expected replacement card, got %q", got.Name)
	}
}

func TestSQLiteStore_Validation(t *testing.T) {
	store := newTestSQLiteStore(t)

	ctx := context.Background()

	if err := store.Put(ctx, nil); err == nil {
		t.Error("Expected error for nil card")
	}
	if err := store.Put(ctx, &Card{ID: ""}); err == nil {
		t.Error("Expected error for empty card id")
	}
	if _, err := store.Get(ctx, ""); err == nil {
		t.Error("Expected error for Get with empty id")
	}
}

func TestSQLiteStore_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStoreWithConfig(SQLiteStoreConfig{Path: ""})
	if err == nil {
		t.Fatal("Expected error for empty db path")
	}
}
