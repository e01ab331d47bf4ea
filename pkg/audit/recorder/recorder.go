package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"styx-hq/charon/pkg/audit"
)

// Config contains configuration for the audit recorder.
type Config struct {
	// Enabled enables audit recording.
	Enabled bool

	// Buffer is the size of the async write channel buffer.
	// Default: 1000
	Buffer int

	// WriteTimeout bounds both the wait for a full channel on enqueue and
	// the storage write itself.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// HashBodies enables SHA-256 hashing of request and response bodies.
	// The hashes land in the record; the bodies never do.
	// Default: true
	HashBodies bool
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		Buffer:       1000,
		WriteTimeout: 5 * time.Second,
		HashBodies:   true,
	}
}

// Operation describes one finished relay call for the audit trail.
// Bodies are used only for byte counts and optional hashes.
type Operation struct {
	// RequestID is the proxy request id.
	RequestID string

	// Supplier is the registry name, or empty for an inline target.
	Supplier string

	// Operation is one of the audit.Op* labels.
	Operation string

	// Model is the requested model, when the operation has one.
	Model string

	// TargetURL is the upstream base URL before redaction.
	TargetURL string

	// UpstreamStatus is the HTTP status from upstream, 0 when never reached.
	UpstreamStatus int

	// ErrorKind is the relay error kind, empty on success.
	ErrorKind string

	// Duration is the wall time of the whole operation.
	Duration time.Duration

	// RequestBody is the caller's request body.
	RequestBody []byte

	// ResponseBody is the upstream response body, for buffered operations.
	ResponseBody []byte

	// ResponseBytes is the relayed byte count for operations that do not
	// retain a body (streaming). Ignored when ResponseBody is set.
	ResponseBytes int64

	// Stream reports whether the response was relayed as SSE.
	Stream bool
}

// Recorder writes audit records for relay operations.
// Records are written asynchronously to keep storage latency off the
// request path.
type Recorder struct {
	storage    audit.Storage
	config     *Config
	recordChan chan *audit.Record
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger
}

// NewRecorder creates a new audit recorder with the provided storage
// backend and configuration.
func NewRecorder(storage audit.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *audit.Record, config.Buffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "audit.recorder"),
	}

	// Start background worker to drain the channel
	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder initialized",
		"buffer", config.Buffer,
		"write_timeout", config.WriteTimeout,
		"hash_bodies", config.HashBodies,
	)

	return r
}

// Record builds an audit record for the operation and enqueues it for
// async writing. It blocks at most WriteTimeout when the channel is full,
// then drops the record and reports the drop as an error.
func (r *Recorder) Record(ctx context.Context, op *Operation) error {
	if !r.config.Enabled {
		return nil
	}

	record := r.buildRecord(op)

	select {
	case r.recordChan <- record:
		return nil
	case <-time.After(r.config.WriteTimeout):
		r.logger.Error("audit channel full, dropping record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"channel_capacity", r.config.Buffer,
		)
		return audit.NewRecorderError(record.ID, context.DeadlineExceeded)
	case <-r.done:
		r.logger.Warn("recorder shutting down, dropping record",
			"record_id", record.ID,
			"request_id", record.RequestID,
		)
		return audit.NewRecorderError(record.ID, context.Canceled)
	}
}

// Close gracefully shuts down the recorder by draining the async channel
// and waiting for all pending writes to complete.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down audit recorder")

		close(r.done)
		r.wg.Wait()

		r.logger.Info("audit recorder shut down complete")
	})
	return nil
}

// buildRecord converts an operation into a storable audit record.
func (r *Recorder) buildRecord(op *Operation) *audit.Record {
	supplier := op.Supplier
	if supplier == "" {
		supplier = audit.SupplierInline
	}

	responseBytes := op.ResponseBytes
	if op.ResponseBody != nil {
		responseBytes = int64(len(op.ResponseBody))
	}

	record := &audit.Record{
		ID:             uuid.New().String(),
		RequestID:      op.RequestID,
		Timestamp:      time.Now(),
		Supplier:       supplier,
		Operation:      op.Operation,
		Model:          op.Model,
		TargetURL:      RedactURL(op.TargetURL),
		UpstreamStatus: op.UpstreamStatus,
		ErrorKind:      op.ErrorKind,
		DurationMS:     op.Duration.Milliseconds(),
		RequestBytes:   int64(len(op.RequestBody)),
		ResponseBytes:  responseBytes,
		Stream:         op.Stream,
	}

	if r.config.HashBodies {
		record.RequestHash = HashContent(op.RequestBody)
		record.ResponseHash = HashContent(op.ResponseBody)
	}

	return record
}

// worker is the background goroutine that drains the record channel and
// writes records to storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			// Drain remaining records from the channel before exit
			r.logger.Info("draining audit channel before shutdown",
				"pending_count", len(r.recordChan),
			)

			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					r.logger.Info("audit channel drained")
					return
				}
			}
		}
	}
}

// writeRecord writes a single audit record to storage.
func (r *Recorder) writeRecord(record *audit.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
		return
	}

	duration := time.Since(start)

	r.logger.Debug("audit record written",
		"record_id", record.ID,
		"request_id", record.RequestID,
		"operation", record.Operation,
		"supplier", record.Supplier,
		"duration_ms", duration.Milliseconds(),
	)

	// Warn if the write was slow
	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow audit write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}
