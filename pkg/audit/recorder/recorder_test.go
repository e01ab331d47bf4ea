package recorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"styx-hq/charon/pkg/audit"
	"styx-hq/charon/pkg/audit/storage"
)

// waitForRecords polls the store until it holds want records or the
// deadline passes.
func waitForRecords(t *testing.T, store *storage.MemoryStorage, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if store.Size() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Expected %d stored records, got %d", want, store.Size())
}

// TestRecorder_Record tests that an operation becomes a complete record.
func TestRecorder_Record(t *testing.T) {
	store := storage.NewMemoryStorage()
	recorder := NewRecorder(store, DefaultConfig())
	defer recorder.Close()

	ctx := context.Background()

	op := &Operation{
		RequestID:      "req-123",
		Supplier:       "openai",
		Operation:      audit.OpChat,
		Model:          "gpt-4o",
		TargetURL:      "https://api.example.com/v1?api_key=sk-secret",
		UpstreamStatus: 200,
		Duration:       150 * time.Millisecond,
		RequestBody:    []byte(`{"model":"gpt-4o"}`),
		ResponseBody:   []byte(`{"id":"chatcmpl-1"}`),
	}

	if err := recorder.Record(ctx, op); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	waitForRecords(t, store, 1)

	results, err := store.Query(ctx, &audit.Query{})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	record := results[0]

	if record.ID == "" {
		t.Error("Expected record ID to be assigned")
	}
	if record.Timestamp.IsZero() {
		t.Error("Expected record timestamp to be assigned")
	}
	if record.RequestID != "req-123" {
		t.Errorf("RequestID = %s, want req-123", record.RequestID)
	}
	if record.Supplier != "openai" {
		t.Errorf("Supplier = %s, want openai", record.Supplier)
	}
	if record.Operation != audit.OpChat {
		t.Errorf("Operation = %s, want %s", record.Operation, audit.OpChat)
	}
	if record.Model != "gpt-4o" {
		t.Errorf("Model = %s, want gpt-4o", record.Model)
	}
	if record.TargetURL != "https://api.example.com/v1?api_key=REDACTED" {
		t.Errorf("TargetURL not redacted: %s", record.TargetURL)
	}
	if record.UpstreamStatus != 200 {
		t.Errorf("UpstreamStatus = %d, want 200", record.UpstreamStatus)
	}
	if record.DurationMS != 150 {
		t.Errorf("DurationMS = %d, want 150", record.DurationMS)
	}
	if record.RequestBytes != int64(len(op.RequestBody)) {
		t.Errorf("RequestBytes = %d, want %d", record.RequestBytes, len(op.RequestBody))
	}
	if record.ResponseBytes != int64(len(op.ResponseBody)) {
		t.Errorf("ResponseBytes = %d, want %d", record.ResponseBytes, len(op.ResponseBody))
	}
	if len(record.RequestHash) != 64 {
		t.Errorf("RequestHash length = %d, want 64", len(record.RequestHash))
	}
	if len(record.ResponseHash) != 64 {
		t.Errorf("ResponseHash length = %d, want 64", len(record.ResponseHash))
	}
	if !record.Succeeded() {
		t.Error("Expected record to report success")
	}
}

// TestRecorder_InlineSupplier tests that an empty supplier is recorded as
// the inline label.
func TestRecorder_InlineSupplier(t *testing.T) {
	store := storage.NewMemoryStorage()
	recorder := NewRecorder(store, DefaultConfig())
	defer recorder.Close()

	op := &Operation{
		RequestID: "req-1",
		Operation: audit.OpChat,
		TargetURL: "https://api.example.com/v1",
	}
	if err := recorder.Record(context.Background(), op); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	waitForRecords(t, store, 1)

	results, _ := store.Query(context.Background(), &audit.Query{})
	if results[0].Supplier != audit.SupplierInline {
		t.Errorf("Supplier = %s, want %s", results[0].Supplier, audit.SupplierInline)
	}
}

// TestRecorder_StreamByteCount tests that streamed operations record the
// relayed byte count without a response hash.
func TestRecorder_StreamByteCount(t *testing.T) {
	store := storage.NewMemoryStorage()
	recorder := NewRecorder(store, DefaultConfig())
	defer recorder.Close()

	op := &Operation{
		RequestID:     "req-1",
		Supplier:      "openai",
		Operation:     audit.OpChatStream,
		TargetURL:     "https://api.example.com/v1",
		ResponseBytes: 4096,
		Stream:        true,
	}
	if err := recorder.Record(context.Background(), op); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	waitForRecords(t, store, 1)

	results, _ := store.Query(context.Background(), &audit.Query{})
	record := results[0]

	if record.ResponseBytes != 4096 {
		t.Errorf("ResponseBytes = %d, want 4096", record.ResponseBytes)
	}
	if record.ResponseHash != "" {
		t.Errorf("Expected empty ResponseHash for stream, got %s", record.ResponseHash)
	}
	if !record.Stream {
		t.Error("Expected Stream to be true")
	}
}

// TestRecorder_HashingDisabled tests that hashes are skipped when disabled.
func TestRecorder_HashingDisabled(t *testing.T) {
	store := storage.NewMemoryStorage()
	config := DefaultConfig()
	config.HashBodies = false

	recorder := NewRecorder(store, config)
	defer recorder.Close()

	op := &Operation{
		RequestID:   "req-1",
		Operation:   audit.OpChat,
		TargetURL:   "https://api.example.com/v1",
		RequestBody: []byte(`{"model":"gpt-4o"}`),
	}
	if err := recorder.Record(context.Background(), op); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	waitForRecords(t, store, 1)

	results, _ := store.Query(context.Background(), &audit.Query{})
	record := results[0]

	if record.RequestHash != "" {
		t.Errorf("Expected empty RequestHash, got %s", record.RequestHash)
	}
	if record.RequestBytes != int64(len(op.RequestBody)) {
		t.Errorf("RequestBytes = %d, want %d", record.RequestBytes, len(op.RequestBody))
	}
}

// TestRecorder_Disabled tests that recording can be disabled.
func TestRecorder_Disabled(t *testing.T) {
	store := storage.NewMemoryStorage()
	config := DefaultConfig()
	config.Enabled = false

	recorder := NewRecorder(store, config)
	defer recorder.Close()

	op := &Operation{
		RequestID: "req-1",
		Operation: audit.OpChat,
		TargetURL: "https://api.example.com/v1",
	}
	if err := recorder.Record(context.Background(), op); err != nil {
		t.Fatalf("Record() should not fail when disabled: %v", err)
	}

	// Give an erroneous write a chance to land
	time.Sleep(50 * time.Millisecond)

	if store.Size() != 0 {
		t.Errorf("Expected 0 stored records when disabled, got %d", store.Size())
	}
}

// TestRecorder_GracefulShutdown tests that Close() drains pending records.
func TestRecorder_GracefulShutdown(t *testing.T) {
	store := storage.NewMemoryStorage()
	config := DefaultConfig()
	config.Buffer = 100

	recorder := NewRecorder(store, config)

	for i := 0; i < 10; i++ {
		op := &Operation{
			RequestID: "req-1",
			Supplier:  "openai",
			Operation: audit.OpChat,
			TargetURL: "https://api.example.com/v1",
		}
		if err := recorder.Record(context.Background(), op); err != nil {
			t.Fatalf("Record() failed: %v", err)
		}
	}

	// Close immediately (should drain channel)
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if store.Size() != 10 {
		t.Errorf("Expected 10 stored records after graceful shutdown, got %d", store.Size())
	}

	// Second Close is a no-op
	if err := recorder.Close(); err != nil {
		t.Errorf("Second Close() failed: %v", err)
	}
}

// blockingStorage blocks Store until the gate closes, to back up the
// recorder's channel in tests.
type blockingStorage struct {
	*storage.MemoryStorage
	gate chan struct{}
}

func (s *blockingStorage) Store(ctx context.Context, record *audit.Record) error {
	<-s.gate
	return s.MemoryStorage.Store(ctx, record)
}

// TestRecorder_DropsWhenFull tests that a full channel drops the record
// after WriteTimeout instead of blocking the caller forever.
func TestRecorder_DropsWhenFull(t *testing.T) {
	blocked := &blockingStorage{
		MemoryStorage: storage.NewMemoryStorage(),
		gate:          make(chan struct{}),
	}

	config := DefaultConfig()
	config.Buffer = 1
	config.WriteTimeout = 50 * time.Millisecond

	recorder := NewRecorder(blocked, config)
	defer recorder.Close()

	op := &Operation{
		RequestID: "req-1",
		Operation: audit.OpChat,
		TargetURL: "https://api.example.com/v1",
	}

	// First record is picked up by the worker and blocks in Store.
	if err := recorder.Record(context.Background(), op); err != nil {
		t.Fatalf("Record() #1 failed: %v", err)
	}
	// Give the worker time to pick it up, then fill the buffer.
	time.Sleep(20 * time.Millisecond)
	if err := recorder.Record(context.Background(), op); err != nil {
		t.Fatalf("Record() #2 failed: %v", err)
	}

	// Third record finds the channel full and must be dropped.
	err := recorder.Record(context.Background(), op)
	if err == nil {
		t.Fatal("Record() #3 should fail when the channel is full")
	}

	var recErr *audit.RecorderError
	if !errors.As(err, &recErr) {
		t.Errorf("Expected RecorderError, got %T: %v", err, err)
	}

	close(blocked.gate)
}
