package config

import "time"

// Config is the root configuration structure for Charon.
// It contains all configuration sections for the HTTP server, the upstream
// relay, the supplier registry, remote imports, the audit trail, and
// telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and request size limits.
	Server ServerConfig `yaml:"server"`

	// Relay contains timeout and transport settings for upstream calls.
	Relay RelayConfig `yaml:"relay"`

	// Registry contains configuration for the supplier registry file.
	Registry RegistryConfig `yaml:"registry"`

	// Imports contains configuration for the remote card import flow.
	Imports ImportsConfig `yaml:"imports"`

	// Audit contains configuration for the audit trail including storage
	// backend selection, the async recorder, and retention.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// ListenAddress is the address the server listens on.
	// Default: "127.0.0.1:8117"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading an entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Zero disables the timeout. The default is zero because a write
	// timeout would cut off long-lived SSE streams; per-call budgets are
	// enforced by the relay section instead.
	// Default: 0 (disabled)
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum duration to wait for the next request
	// on a keep-alive connection.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is how long a graceful shutdown may take before
	// in-flight connections are dropped.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes caps request bodies on the JSON endpoints.
	// Default: 10485760 (10MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORS contains cross-origin resource sharing configuration.
	CORS CORSConfig `yaml:"cors"`

	// TLS contains TLS configuration for the listener.
	TLS TLSConfig `yaml:"tls"`
}

// CORSConfig contains CORS configuration for the HTTP server.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins. Use ["*"] to allow all.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed request headers.
	// Default: ["Authorization", "Content-Type", "X-Request-ID", "X-Charon-Version"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is a list of headers exposed to browser clients.
	// Default: ["X-Request-ID"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the preflight cache lifetime in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`

	// AllowCredentials controls whether credentials are allowed.
	// Default: false
	AllowCredentials bool `yaml:"allow_credentials"`
}

// TLSConfig contains TLS configuration for the HTTP listener.
type TLSConfig struct {
	// Enabled controls whether the server listens with TLS.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the PEM certificate file.
	// Required when Enabled is true.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM private key file.
	// Required when Enabled is true.
	KeyFile string `yaml:"key_file"`
}

// RelayConfig contains timeout budgets and transport settings for calls to
// upstream chat endpoints.
type RelayConfig struct {
	// ConnectTimeout bounds connection establishment (dial + TLS).
	// Default: 10s
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// ChatTimeout bounds a whole buffered chat completion call.
	// Default: 60s
	ChatTimeout time.Duration `yaml:"chat_timeout"`

	// ModelsTimeout bounds a model list call.
	// Default: 10s
	ModelsTimeout time.Duration `yaml:"models_timeout"`

	// StreamReadTimeout is the maximum gap between stream chunks before
	// the stream is abandoned with a timeout error.
	// Default: 60s
	StreamReadTimeout time.Duration `yaml:"stream_read_timeout"`

	// UserAgent is sent on upstream requests when non-empty.
	// Default: "charon"
	UserAgent string `yaml:"user_agent"`
}

// RegistryConfig contains configuration for the supplier registry.
// An empty path disables the registry; requests must then carry inline
// targets.
type RegistryConfig struct {
	// Path is the path to the supplier registry YAML file.
	// Default: "" (registry disabled)
	Path string `yaml:"path"`

	// Watch enables hot reload when the registry file changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce is the quiet period between a file event and the reload.
	// Default: 250ms
	Debounce time.Duration `yaml:"debounce"`
}

// ImportsConfig contains configuration for the remote card import flow.
type ImportsConfig struct {
	// MinClientVersion is the lowest client build allowed to import.
	// Empty disables the version gate.
	// Default: "" (gate disabled)
	MinClientVersion string `yaml:"min_client_version"`

	// MaxCardBytes caps card payload size.
	// Default: 1048576 (1MB)
	MaxCardBytes int64 `yaml:"max_card_bytes"`

	// Backend selects the pending store implementation.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// MaxPending is the maximum number of cards held in the pending store.
	// The oldest cards are evicted when the limit is reached.
	// Default: 100
	MaxPending int `yaml:"max_pending"`

	// TTL is how long a card may stay pending before it expires.
	// Default: 1h
	TTL time.Duration `yaml:"ttl"`

	// CleanupInterval is how often expired cards are removed.
	// Default: 1m
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	// SQLite contains settings for the sqlite pending store backend.
	SQLite ImportsSQLiteConfig `yaml:"sqlite"`
}

// ImportsSQLiteConfig contains sqlite settings for the pending store.
type ImportsSQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/imports.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// AuditConfig contains configuration for the audit trail.
type AuditConfig struct {
	// Enabled controls whether relay operations are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the audit storage implementation.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains settings for the sqlite audit backend.
	SQLite AuditSQLiteConfig `yaml:"sqlite"`

	// Recorder contains settings for the async audit recorder.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains settings for pruning old audit records.
	Retention RetentionConfig `yaml:"retention"`

	// Query contains limits for audit queries.
	Query QueryConfig `yaml:"query"`

	// Export contains settings for audit exports.
	Export ExportConfig `yaml:"export"`
}

// AuditSQLiteConfig contains sqlite settings for audit storage.
type AuditSQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains settings for the async audit recorder.
type RecorderConfig struct {
	// AsyncBuffer is the size of the async write channel.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds both the wait for a full channel on enqueue and
	// the storage write itself.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// HashBodies enables SHA-256 hashing of request and response bodies.
	// The hashes land in the record; the bodies never do.
	// Default: true
	HashBodies bool `yaml:"hash_bodies"`
}

// RetentionConfig contains settings for pruning the audit trail.
type RetentionConfig struct {
	// Days is the number of days to retain audit records.
	// Zero disables age-based pruning.
	// Default: 90
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression for scheduled pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxRecords is the maximum number of records to keep.
	// Zero means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// ArchiveBeforeDelete enables archiving records to JSON before deletion.
	// Default: false
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is the directory for archived records.
	// Default: "data/archives/"
	ArchivePath string `yaml:"archive_path"`
}

// QueryConfig contains limits for audit queries.
type QueryConfig struct {
	// DefaultLimit is the number of records returned when no limit is given.
	// Default: 100
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit is the largest limit a query may request.
	// Default: 10000
	MaxLimit int `yaml:"max_limit"`

	// Timeout bounds a single query.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// ExportConfig contains settings for audit exports.
type ExportConfig struct {
	// JSONPretty enables indented JSON output.
	// Default: true
	JSONPretty bool `yaml:"json_pretty"`

	// CSVIncludeHeader emits a header row in CSV output.
	// Default: true
	CSVIncludeHeader bool `yaml:"csv_include_header"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Health contains health endpoint configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets enables automatic credential redaction in log output.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`

	// RedactPatterns contains custom redaction patterns applied on top of
	// the built-in credential patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "styx"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "charon"
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets defines histogram buckets for request
	// duration in seconds.
	// Default: [0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// VersionPath is the path for the version information endpoint.
	// Default: "/version"
	VersionPath string `yaml:"version_path"`
}
