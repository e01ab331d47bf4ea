package storage

import (
	"context"
	"sort"
	"sync"

	"styx-hq/charon/pkg/audit"
)

// DefaultMemoryCapacity is the default ring capacity for in-memory storage.
const DefaultMemoryCapacity = 10000

// MemoryStorage implements the Storage interface with a bounded ring of
// records. Once the ring is full the oldest record is overwritten. Intended
// for tests and development; production deployments should use SQLite.
type MemoryStorage struct {
	records []*audit.Record
	head    int // index of the oldest record
	size    int
	mu      sync.RWMutex
}

// NewMemoryStorage creates an in-memory storage backend with the default
// capacity.
func NewMemoryStorage() *MemoryStorage {
	return NewMemoryStorageWithCapacity(DefaultMemoryCapacity)
}

// NewMemoryStorageWithCapacity creates an in-memory storage backend that
// retains at most capacity records.
func NewMemoryStorageWithCapacity(capacity int) *MemoryStorage {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStorage{
		records: make([]*audit.Record, capacity),
	}
}

// Store persists an audit record, overwriting the oldest record when the
// ring is full.
func (s *MemoryStorage) Store(ctx context.Context, record *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy to avoid mutation by the caller
	recordCopy := *record

	if s.size == len(s.records) {
		s.records[s.head] = &recordCopy
		s.head = (s.head + 1) % len(s.records)
		return nil
	}

	s.records[(s.head+s.size)%len(s.records)] = &recordCopy
	s.size++
	return nil
}

// Query retrieves audit records matching the query filters, newest first.
func (s *MemoryStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	s.mu.RLock()

	var results []*audit.Record
	for i := 0; i < s.size; i++ {
		record := s.records[(s.head+i)%len(s.records)]
		if matchesQuery(record, query) {
			recordCopy := *record
			results = append(results, &recordCopy)
		}
	}

	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Timestamp.After(results[j].Timestamp)
	})

	// Apply pagination
	start := query.Offset
	if start > len(results) {
		return []*audit.Record{}, nil
	}

	end := len(results)
	if query.Limit > 0 && start+query.Limit < end {
		end = start + query.Limit
	}

	return results[start:end], nil
}

// Count returns the number of audit records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for i := 0; i < s.size; i++ {
		if matchesQuery(s.records[(s.head+i)%len(s.records)], query) {
			count++
		}
	}

	return count, nil
}

// Delete removes audit records matching the query filters and returns the
// number removed.
func (s *MemoryStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var survivors []*audit.Record
	var deleted int64
	for i := 0; i < s.size; i++ {
		record := s.records[(s.head+i)%len(s.records)]
		if matchesQuery(record, query) {
			deleted++
			continue
		}
		survivors = append(survivors, record)
	}

	clear(s.records)
	copy(s.records, survivors)
	s.head = 0
	s.size = len(survivors)

	return deleted, nil
}

// Close releases resources held by the storage backend.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.records)
	s.head = 0
	s.size = 0
	return nil
}

// matchesQuery checks if a record matches the query filters.
func matchesQuery(record *audit.Record, query *audit.Query) bool {
	if query.StartTime != nil && record.Timestamp.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && record.Timestamp.After(*query.EndTime) {
		return false
	}

	if query.Supplier != "" && record.Supplier != query.Supplier {
		return false
	}
	if query.Operation != "" && record.Operation != query.Operation {
		return false
	}
	if query.Kind != "" && record.ErrorKind != query.Kind {
		return false
	}
	if query.Model != "" && record.Model != query.Model {
		return false
	}

	switch query.Status {
	case "":
	case "success":
		if !record.Succeeded() {
			return false
		}
	case "error":
		if record.Succeeded() {
			return false
		}
	}

	return true
}

// Clear removes all records from storage (for testing).
func (s *MemoryStorage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.records)
	s.head = 0
	s.size = 0
}

// GetByID retrieves a single audit record by ID (for testing).
func (s *MemoryStorage) GetByID(id string) *audit.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := 0; i < s.size; i++ {
		record := s.records[(s.head+i)%len(s.records)]
		if record.ID == id {
			recordCopy := *record
			return &recordCopy
		}
	}
	return nil
}

// Size returns the number of records in storage (for testing).
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.size
}
