package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8117"
	DefaultReadTimeout     = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxBodyBytes    = int64(10 * 1024 * 1024)

	// CORS defaults
	DefaultCORSMaxAge = 3600 // 1 hour

	// Relay defaults
	DefaultConnectTimeout    = 10 * time.Second
	DefaultChatTimeout       = 60 * time.Second
	DefaultModelsTimeout     = 10 * time.Second
	DefaultStreamReadTimeout = 60 * time.Second
	DefaultUserAgent         = "charon"

	// Registry defaults
	DefaultRegistryDebounce = 250 * time.Millisecond

	// Import defaults
	DefaultImportsMaxCardBytes    = int64(1048576) // 1MB
	DefaultImportsBackend         = "memory"
	DefaultImportsMaxPending      = 100
	DefaultImportsTTL             = time.Hour
	DefaultImportsCleanupInterval = time.Minute
	DefaultImportsSQLitePath      = "data/imports.db"
	DefaultImportsBusyTimeout     = 5 * time.Second

	// Audit defaults
	DefaultAuditBackend              = "sqlite"
	DefaultAuditSQLitePath           = "data/audit.db"
	DefaultAuditSQLiteMaxOpenConns   = 10
	DefaultAuditSQLiteMaxIdleConns   = 5
	DefaultAuditSQLiteBusyTimeout    = 5 * time.Second
	DefaultAuditRecorderAsyncBuffer  = 1000
	DefaultAuditRecorderWriteTimeout = 5 * time.Second
	DefaultAuditRetentionDays        = 90
	DefaultAuditRetentionSchedule    = "0 3 * * *"
	DefaultAuditRetentionArchivePath = "data/archives/"
	DefaultAuditQueryDefaultLimit    = 100
	DefaultAuditQueryMaxLimit        = 10000
	DefaultAuditQueryTimeout         = 30 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "styx"
	DefaultMetricsSubsystem = "charon"
	DefaultLivenessPath     = "/health"
	DefaultReadinessPath    = "/ready"
	DefaultVersionPath      = "/version"
)

// DefaultConfig returns a configuration with every default applied,
// including the booleans that default to true. Loading a file starts from
// this value, so an explicit `enabled: false` in YAML survives; ApplyDefaults
// alone never touches booleans.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)

	cfg.Server.CORS.Enabled = true
	cfg.Audit.Enabled = true
	cfg.Audit.SQLite.WALMode = true
	cfg.Audit.Recorder.HashBodies = true
	cfg.Audit.Retention.Days = DefaultAuditRetentionDays
	cfg.Audit.Export.JSONPretty = true
	cfg.Audit.Export.CSVIncludeHeader = true
	cfg.Telemetry.Logging.RedactSecrets = true
	cfg.Telemetry.Metrics.Enabled = true

	return cfg
}

// ApplyDefaults fills zero-valued fields with defaults. It only sets fields
// where the zero value is never a meaningful setting, so it is idempotent
// and safe to call on a partially populated configuration. Fields where
// zero carries meaning (server write timeout, retention days, retention max
// records) and booleans are left alone; DefaultConfig seeds those.
func ApplyDefaults(cfg *Config) {
	// Server defaults. WriteTimeout stays zero: a write deadline would
	// sever SSE streams mid-flight.
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}

	// CORS defaults
	if len(cfg.Server.CORS.AllowedOrigins) == 0 {
		cfg.Server.CORS.AllowedOrigins = []string{"*"}
	}
	if len(cfg.Server.CORS.AllowedMethods) == 0 {
		cfg.Server.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.Server.CORS.AllowedHeaders) == 0 {
		cfg.Server.CORS.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID", "X-Charon-Version"}
	}
	if len(cfg.Server.CORS.ExposedHeaders) == 0 {
		cfg.Server.CORS.ExposedHeaders = []string{"X-Request-ID"}
	}
	if cfg.Server.CORS.MaxAge == 0 {
		cfg.Server.CORS.MaxAge = DefaultCORSMaxAge
	}

	// Relay defaults
	if cfg.Relay.ConnectTimeout == 0 {
		cfg.Relay.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.Relay.ChatTimeout == 0 {
		cfg.Relay.ChatTimeout = DefaultChatTimeout
	}
	if cfg.Relay.ModelsTimeout == 0 {
		cfg.Relay.ModelsTimeout = DefaultModelsTimeout
	}
	if cfg.Relay.StreamReadTimeout == 0 {
		cfg.Relay.StreamReadTimeout = DefaultStreamReadTimeout
	}
	if cfg.Relay.UserAgent == "" {
		cfg.Relay.UserAgent = DefaultUserAgent
	}

	// Registry defaults. Path stays empty: an empty path means no registry.
	if cfg.Registry.Debounce == 0 {
		cfg.Registry.Debounce = DefaultRegistryDebounce
	}

	// Import defaults
	if cfg.Imports.MaxCardBytes == 0 {
		cfg.Imports.MaxCardBytes = DefaultImportsMaxCardBytes
	}
	if cfg.Imports.Backend == "" {
		cfg.Imports.Backend = DefaultImportsBackend
	}
	if cfg.Imports.MaxPending == 0 {
		cfg.Imports.MaxPending = DefaultImportsMaxPending
	}
	if cfg.Imports.TTL == 0 {
		cfg.Imports.TTL = DefaultImportsTTL
	}
	if cfg.Imports.CleanupInterval == 0 {
		cfg.Imports.CleanupInterval = DefaultImportsCleanupInterval
	}
	if cfg.Imports.SQLite.Path == "" {
		cfg.Imports.SQLite.Path = DefaultImportsSQLitePath
	}
	if cfg.Imports.SQLite.BusyTimeout == 0 {
		cfg.Imports.SQLite.BusyTimeout = DefaultImportsBusyTimeout
	}

	// Audit defaults
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultAuditSQLitePath
	}
	if cfg.Audit.SQLite.MaxOpenConns == 0 {
		cfg.Audit.SQLite.MaxOpenConns = DefaultAuditSQLiteMaxOpenConns
	}
	if cfg.Audit.SQLite.MaxIdleConns == 0 {
		cfg.Audit.SQLite.MaxIdleConns = DefaultAuditSQLiteMaxIdleConns
	}
	if cfg.Audit.SQLite.BusyTimeout == 0 {
		cfg.Audit.SQLite.BusyTimeout = DefaultAuditSQLiteBusyTimeout
	}
	if cfg.Audit.Recorder.AsyncBuffer == 0 {
		cfg.Audit.Recorder.AsyncBuffer = DefaultAuditRecorderAsyncBuffer
	}
	if cfg.Audit.Recorder.WriteTimeout == 0 {
		cfg.Audit.Recorder.WriteTimeout = DefaultAuditRecorderWriteTimeout
	}
	if cfg.Audit.Retention.PruneSchedule == "" {
		cfg.Audit.Retention.PruneSchedule = DefaultAuditRetentionSchedule
	}
	if cfg.Audit.Retention.ArchivePath == "" {
		cfg.Audit.Retention.ArchivePath = DefaultAuditRetentionArchivePath
	}
	if cfg.Audit.Query.DefaultLimit == 0 {
		cfg.Audit.Query.DefaultLimit = DefaultAuditQueryDefaultLimit
	}
	if cfg.Audit.Query.MaxLimit == 0 {
		cfg.Audit.Query.MaxLimit = DefaultAuditQueryMaxLimit
	}
	if cfg.Audit.Query.Timeout == 0 {
		cfg.Audit.Query.Timeout = DefaultAuditQueryTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.RequestDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.RequestDurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0}
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Telemetry.Health.VersionPath == "" {
		cfg.Telemetry.Health.VersionPath = DefaultVersionPath
	}
}
