package retention

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"styx-hq/charon/pkg/audit"
	"styx-hq/charon/pkg/audit/storage"
)

// TestPruner_PruneOldRecords tests pruning records older than the
// retention period.
func TestPruner_PruneOldRecords(t *testing.T) {
	store := storage.NewMemoryStorage()
	config := DefaultConfig()
	config.RetentionDays = 7
	config.ArchiveBeforeDelete = false

	pruner := NewPruner(store, config)

	ctx := context.Background()
	now := time.Now()

	records := []*audit.Record{
		{ID: "old-1", RequestID: "req-1", Timestamp: now.AddDate(0, 0, -10), Supplier: "openai", Operation: audit.OpChat},
		{ID: "old-2", RequestID: "req-2", Timestamp: now.AddDate(0, 0, -8), Supplier: "openai", Operation: audit.OpChat},
		{ID: "recent-1", RequestID: "req-3", Timestamp: now.AddDate(0, 0, -5), Supplier: "openai", Operation: audit.OpChat},
		{ID: "recent-2", RequestID: "req-4", Timestamp: now.AddDate(0, 0, -3), Supplier: "openai", Operation: audit.OpChat},
	}
	for _, record := range records {
		if err := store.Store(ctx, record); err != nil {
			t.Fatalf("Store() failed: %v", err)
		}
	}

	deleted, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}

	if deleted != 2 {
		t.Errorf("Expected 2 deleted records, got %d", deleted)
	}

	results, _ := store.Query(ctx, &audit.Query{})
	if len(results) != 2 {
		t.Errorf("Expected 2 remaining records, got %d", len(results))
	}
	for _, r := range results {
		if r.ID == "old-1" || r.ID == "old-2" {
			t.Errorf("Old record %s should have been deleted", r.ID)
		}
	}
}

// TestPruner_RetentionDisabled tests that pruning is skipped when both
// limits are zero.
func TestPruner_RetentionDisabled(t *testing.T) {
	store := storage.NewMemoryStorage()
	config := DefaultConfig()
	config.RetentionDays = 0
	config.MaxRecords = 0

	pruner := NewPruner(store, config)

	ctx := context.Background()
	record := &audit.Record{
		ID:        "ancient",
		RequestID: "req-1",
		Timestamp: time.Now().AddDate(0, 0, -1000),
		Supplier:  "openai",
		Operation: audit.OpChat,
	}
	if err := store.Store(ctx, record); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}

	deleted, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Expected 0 deleted records when retention disabled, got %d", deleted)
	}
	if store.Size() != 1 {
		t.Errorf("Expected record to remain, got %d records", store.Size())
	}
}

// TestPruner_PruneByCount tests count-based pruning.
func TestPruner_PruneByCount(t *testing.T) {
	tests := []struct {
		name           string
		maxRecords     int64
		existingCount  int
		expectedDelete int64
	}{
		{
			name:           "within limit - no deletion",
			maxRecords:     100,
			existingCount:  50,
			expectedDelete: 0,
		},
		{
			name:           "at limit - no deletion",
			maxRecords:     100,
			existingCount:  100,
			expectedDelete: 0,
		},
		{
			name:           "exceeds by 1 - delete oldest",
			maxRecords:     100,
			existingCount:  101,
			expectedDelete: 1,
		},
		{
			name:           "exceeds by many - delete oldest batch",
			maxRecords:     100,
			existingCount:  150,
			expectedDelete: 50,
		},
		{
			name:           "unlimited - no deletion",
			maxRecords:     0,
			existingCount:  200,
			expectedDelete: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStorage()
			config := DefaultConfig()
			config.RetentionDays = 0
			config.MaxRecords = tt.maxRecords
			config.ArchiveBeforeDelete = false

			pruner := NewPruner(store, config)

			ctx := context.Background()
			now := time.Now()

			for i := 0; i < tt.existingCount; i++ {
				record := &audit.Record{
					ID:        fmt.Sprintf("rec-%d", i),
					RequestID: fmt.Sprintf("req-%d", i),
					Timestamp: now.Add(time.Duration(i) * time.Second),
					Supplier:  "openai",
					Operation: audit.OpChat,
				}
				if err := store.Store(ctx, record); err != nil {
					t.Fatalf("Store() failed: %v", err)
				}
			}

			deleted, err := pruner.Prune(ctx)
			if err != nil {
				t.Fatalf("Prune() failed: %v", err)
			}

			if deleted != tt.expectedDelete {
				t.Errorf("deleted = %d, want %d", deleted, tt.expectedDelete)
			}

			remaining, err := store.Count(ctx, &audit.Query{})
			if err != nil {
				t.Fatalf("Count() failed: %v", err)
			}
			if remaining != int64(tt.existingCount)-tt.expectedDelete {
				t.Errorf("remaining = %d, want %d", remaining, int64(tt.existingCount)-tt.expectedDelete)
			}

			// The oldest records go first
			if tt.expectedDelete > 0 {
				results, _ := store.Query(ctx, &audit.Query{})
				for _, r := range results {
					for i := int64(0); i < tt.expectedDelete; i++ {
						if r.ID == fmt.Sprintf("rec-%d", i) {
							t.Errorf("Oldest record %s should have been deleted", r.ID)
						}
					}
				}
			}
		})
	}
}

// TestPruner_BothAgeAndCount tests that age-based and count-based pruning
// work together.
func TestPruner_BothAgeAndCount(t *testing.T) {
	store := storage.NewMemoryStorage()
	config := DefaultConfig()
	config.RetentionDays = 90
	config.MaxRecords = 80
	config.ArchiveBeforeDelete = false

	pruner := NewPruner(store, config)

	ctx := context.Background()
	now := time.Now()

	// 50 records past retention, 100 recent
	for i := 0; i < 50; i++ {
		record := &audit.Record{
			ID:        fmt.Sprintf("old-%d", i),
			RequestID: fmt.Sprintf("req-old-%d", i),
			Timestamp: now.AddDate(0, 0, -100),
			Supplier:  "openai",
			Operation: audit.OpChat,
		}
		if err := store.Store(ctx, record); err != nil {
			t.Fatalf("Store() failed: %v", err)
		}
	}
	for i := 0; i < 100; i++ {
		record := &audit.Record{
			ID:        fmt.Sprintf("recent-%d", i),
			RequestID: fmt.Sprintf("req-recent-%d", i),
			Timestamp: now.Add(time.Duration(i) * time.Second),
			Supplier:  "openai",
			Operation: audit.OpChat,
		}
		if err := store.Store(ctx, record); err != nil {
			t.Fatalf("Store() failed: %v", err)
		}
	}

	deleted, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}

	// 50 by age, then 20 by count (100 - 80)
	if deleted != 70 {
		t.Errorf("deleted = %d, want 70", deleted)
	}

	remaining, _ := store.Count(ctx, &audit.Query{})
	if remaining != 80 {
		t.Errorf("remaining = %d, want 80", remaining)
	}
}

// TestPruner_ArchiveBeforeDelete tests archiving records before deletion.
func TestPruner_ArchiveBeforeDelete(t *testing.T) {
	store := storage.NewMemoryStorage()
	tmpDir := t.TempDir()

	config := DefaultConfig()
	config.RetentionDays = 7
	config.ArchiveBeforeDelete = true
	config.ArchivePath = tmpDir

	pruner := NewPruner(store, config)

	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		record := &audit.Record{
			ID:        fmt.Sprintf("old-%d", i),
			RequestID: fmt.Sprintf("req-%d", i),
			Timestamp: now.AddDate(0, 0, -10),
			Supplier:  "openai",
			Operation: audit.OpChat,
		}
		if err := store.Store(ctx, record); err != nil {
			t.Fatalf("Store() failed: %v", err)
		}
	}

	deleted, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("Expected 3 deleted records, got %d", deleted)
	}

	files, err := filepath.Glob(filepath.Join(tmpDir, "audit-*.json"))
	if err != nil {
		t.Fatalf("Failed to list archive files: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("Expected 1 archive file, got %d", len(files))
	}

	stat, err := os.Stat(files[0])
	if err != nil {
		t.Fatalf("Failed to stat archive file: %v", err)
	}
	if stat.Size() == 0 {
		t.Error("Archive file is empty")
	}
}

// TestPruner_NoArchiveWhenNoRecords tests that no archive file is created
// when nothing matches.
func TestPruner_NoArchiveWhenNoRecords(t *testing.T) {
	store := storage.NewMemoryStorage()
	tmpDir := t.TempDir()

	config := DefaultConfig()
	config.RetentionDays = 7
	config.ArchiveBeforeDelete = true
	config.ArchivePath = tmpDir

	pruner := NewPruner(store, config)

	ctx := context.Background()
	record := &audit.Record{
		ID:        "recent",
		RequestID: "req-1",
		Timestamp: time.Now().AddDate(0, 0, -1),
		Supplier:  "openai",
		Operation: audit.OpChat,
	}
	if err := store.Store(ctx, record); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}

	if _, err := pruner.Prune(ctx); err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(tmpDir, "audit-*.json"))
	if len(files) != 0 {
		t.Errorf("Expected no archive files, got %d", len(files))
	}
}
