package imports

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements Store using SQLite for persistence.
// Pending cards survive process restarts, which matters when the importing
// client and the collecting client are not running at the same time.
//
// SQLiteStore uses a write-ahead log (WAL) and a single connection since
// SQLite only supports one writer.
type SQLiteStore struct {
	db              *sql.DB
	dbPath          string
	maxEntries      int
	ttl             time.Duration
	cleanupInterval time.Duration
	done            chan struct{}
	mu              sync.RWMutex
	closeOnce       sync.Once
}

// SQLiteStoreConfig configures the SQLite store.
type SQLiteStoreConfig struct {
	// Path is the path to the SQLite database file.
	Path string

	// MaxEntries is the maximum number of pending cards to hold.
	// The oldest cards are evicted when this limit is reached.
	// Default: 100
	MaxEntries int

	// TTL is how long a card may stay pending before it expires.
	// Default: 1 hour
	TTL time.Duration

	// CleanupInterval is how often expired cards are removed.
	// Default: 1 minute
	CleanupInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore creates a new SQLite pending store with default settings.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteStoreConfig{Path: path})
}

// NewSQLiteStoreWithConfig creates a new SQLite store with custom configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	// Apply defaults
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = 100
	}
	if cfg.TTL == 0 {
		cfg.TTL = time.Hour
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{
		db:              db,
		dbPath:          cfg.Path,
		maxEntries:      cfg.MaxEntries,
		ttl:             cfg.TTL,
		cleanupInterval: cfg.CleanupInterval,
		done:            make(chan struct{}),
	}

	// Enable WAL mode and set the busy timeout
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Initialize schema
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Start background cleanup goroutine
	go store.cleanupLoop()

	return store, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pending_cards (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pending_cards_created_at ON pending_cards(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Put stages a card for collection.
func (s *SQLiteStore) Put(ctx context.Context, card *Card) error {
	if card == nil {
		return fmt.Errorf("card cannot be nil")
	}
	if card.ID == "" {
		return fmt.Errorf("card id cannot be empty")
	}

	if card.CreatedAt.IsZero() {
		card.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Evict the oldest cards when the store is full
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_cards`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count pending cards: %w", err)
	}
	if count >= s.maxEntries {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM pending_cards
			WHERE id IN (SELECT id FROM pending_cards ORDER BY created_at LIMIT ?)
		`, count-s.maxEntries+1)
		if err != nil {
			return fmt.Errorf("failed to evict oldest cards: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pending_cards (id, name, payload, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			payload = excluded.payload,
			created_at = excluded.created_at
	`, card.ID, card.Name, string(card.Payload), card.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to store card: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// Get removes and returns the card with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Card, error) {
	if id == "" {
		return nil, fmt.Errorf("card id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		name      string
		payload   string
		createdAt int64
	)

	err = tx.QueryRowContext(ctx, `
		SELECT name, payload, created_at FROM pending_cards WHERE id = ?
	`, id).Scan(&name, &payload, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load card: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_cards WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to remove card: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	// The row is popped either way; a card past its TTL but not yet
	// swept is already gone from the caller's point of view.
	created := time.Unix(0, createdAt)
	if s.ttl > 0 && time.Since(created) > s.ttl {
		return nil, nil
	}

	return &Card{
		ID:        id,
		Name:      name,
		Payload:   json.RawMessage(payload),
		CreatedAt: created,
	}, nil
}

// List returns all pending cards, oldest first.
func (s *SQLiteStore) List(ctx context.Context) ([]*Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, payload, created_at FROM pending_cards ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	cards := []*Card{}
	for rows.Next() {
		var (
			id        string
			name      string
			payload   string
			createdAt int64
		)
		if err := rows.Scan(&id, &name, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		cards = append(cards, &Card{
			ID:        id,
			Name:      name,
			Payload:   json.RawMessage(payload),
			CreatedAt: time.Unix(0, createdAt),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return cards, nil
}

// Cleanup removes cards staged before the cutoff.
func (s *SQLiteStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM pending_cards WHERE created_at < ?
	`, olderThan.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(removed), nil
}

// Close releases any resources held by the store.
// Close is idempotent and safe to call multiple times.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		if s.db != nil {
			// Run final checkpoint
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

// cleanupLoop runs periodic cleanup of expired cards.
func (s *SQLiteStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-s.ttl)
			_, _ = s.Cleanup(context.Background(), cutoff)
		case <-s.done:
			return
		}
	}
}
