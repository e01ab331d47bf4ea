package config

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestConfig_YAMLMapping(t *testing.T) {
	doc := `
server:
  listen_address: "0.0.0.0:9090"
  read_timeout: "45s"
  write_timeout: "10s"
  idle_timeout: "60s"
  shutdown_timeout: "5s"
  max_header_bytes: 2097152
  max_body_bytes: 5242880
  cors:
    enabled: true
    allowed_origins: ["https://app.example.com"]
    max_age: 600
    allow_credentials: true
  tls:
    enabled: true
    cert_file: "certs/server.pem"
    key_file: "certs/server.key"

relay:
  connect_timeout: "5s"
  chat_timeout: "90s"
  models_timeout: "15s"
  stream_read_timeout: "30s"
  user_agent: "charon-test"

registry:
  path: "suppliers.yaml"
  watch: true
  debounce: "500ms"

imports:
  min_client_version: "1.4.0"
  max_card_bytes: 262144
  backend: "sqlite"
  max_pending: 50
  ttl: "30m"
  cleanup_interval: "10s"
  sqlite:
    path: "tmp/imports.db"
    busy_timeout: "2s"

audit:
  enabled: true
  backend: "sqlite"
  sqlite:
    path: "tmp/audit.db"
    max_open_conns: 4
    max_idle_conns: 2
    wal_mode: true
    busy_timeout: "3s"
  recorder:
    async_buffer: 256
    write_timeout: "2s"
    hash_bodies: true
  retention:
    days: 30
    prune_schedule: "0 4 * * *"
    max_records: 50000
    archive_before_delete: true
    archive_path: "tmp/archives/"
  query:
    default_limit: 25
    max_limit: 500
    timeout: "10s"
  export:
    json_pretty: false
    csv_include_header: false

telemetry:
  logging:
    level: "debug"
    format: "text"
    add_source: true
    redact_secrets: true
    redact_patterns:
      - name: "session token"
        pattern: "sess-[0-9a-f]+"
        replacement: "sess-REDACTED"
  metrics:
    enabled: true
    path: "/internal/metrics"
    namespace: "styx"
    subsystem: "charon"
    request_duration_buckets: [0.1, 1.0, 10.0]
  health:
    liveness_path: "/healthz"
    readiness_path: "/readyz"
    version_path: "/buildinfo"
`

	var cfg Config
	if err := yaml.Unmarshal([]byte(doc), &cfg); err != nil {
		t.Fatalf("failed to unmarshal config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("listen address = %q, want %q", cfg.Server.ListenAddress, "0.0.0.0:9090")
	}
	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Errorf("read timeout = %v, want %v", cfg.Server.ReadTimeout, 45*time.Second)
	}
	if cfg.Server.WriteTimeout != 10*time.Second {
		t.Errorf("write timeout = %v, want %v", cfg.Server.WriteTimeout, 10*time.Second)
	}
	if cfg.Server.MaxBodyBytes != 5242880 {
		t.Errorf("max body bytes = %d, want %d", cfg.Server.MaxBodyBytes, 5242880)
	}
	if len(cfg.Server.CORS.AllowedOrigins) != 1 || cfg.Server.CORS.AllowedOrigins[0] != "https://app.example.com" {
		t.Errorf("allowed origins = %v, want [https://app.example.com]", cfg.Server.CORS.AllowedOrigins)
	}
	if !cfg.Server.CORS.AllowCredentials {
		t.Error("allow_credentials not mapped")
	}
	if !cfg.Server.TLS.Enabled || cfg.Server.TLS.CertFile != "certs/server.pem" || cfg.Server.TLS.KeyFile != "certs/server.key" {
		t.Errorf("tls = %+v, want enabled with cert and key", cfg.Server.TLS)
	}

	if cfg.Relay.ConnectTimeout != 5*time.Second {
		t.Errorf("connect timeout = %v, want %v", cfg.Relay.ConnectTimeout, 5*time.Second)
	}
	if cfg.Relay.ChatTimeout != 90*time.Second {
		t.Errorf("chat timeout = %v, want %v", cfg.Relay.ChatTimeout, 90*time.Second)
	}
	if cfg.Relay.UserAgent != "charon-test" {
		t.Errorf("user agent = %q, want %q", cfg.Relay.UserAgent, "charon-test")
	}

	if cfg.Registry.Path != "suppliers.yaml" || !cfg.Registry.Watch {
		t.Errorf("registry = %+v, want path with watch", cfg.Registry)
	}
	if cfg.Registry.Debounce != 500*time.Millisecond {
		t.Errorf("debounce = %v, want %v", cfg.Registry.Debounce, 500*time.Millisecond)
	}

	if cfg.Imports.MinClientVersion != "1.4.0" {
		t.Errorf("min client version = %q, want %q", cfg.Imports.MinClientVersion, "1.4.0")
	}
	if cfg.Imports.MaxCardBytes != 262144 {
		t.Errorf("max card bytes = %d, want %d", cfg.Imports.MaxCardBytes, 262144)
	}
	if cfg.Imports.Backend != "sqlite" || cfg.Imports.SQLite.Path != "tmp/imports.db" {
		t.Errorf("imports backend = %q path = %q, want sqlite with path", cfg.Imports.Backend, cfg.Imports.SQLite.Path)
	}
	if cfg.Imports.TTL != 30*time.Minute {
		t.Errorf("ttl = %v, want %v", cfg.Imports.TTL, 30*time.Minute)
	}

	if !cfg.Audit.Enabled || cfg.Audit.Backend != "sqlite" {
		t.Errorf("audit = enabled %v backend %q, want enabled sqlite", cfg.Audit.Enabled, cfg.Audit.Backend)
	}
	if cfg.Audit.SQLite.MaxOpenConns != 4 || cfg.Audit.SQLite.MaxIdleConns != 2 {
		t.Errorf("sqlite pool = %d/%d, want 4/2", cfg.Audit.SQLite.MaxOpenConns, cfg.Audit.SQLite.MaxIdleConns)
	}
	if cfg.Audit.Recorder.AsyncBuffer != 256 || cfg.Audit.Recorder.WriteTimeout != 2*time.Second {
		t.Errorf("recorder = %+v, want buffer 256 timeout 2s", cfg.Audit.Recorder)
	}
	if cfg.Audit.Retention.Days != 30 || cfg.Audit.Retention.MaxRecords != 50000 {
		t.Errorf("retention = %+v, want 30 days 50000 records", cfg.Audit.Retention)
	}
	if !cfg.Audit.Retention.ArchiveBeforeDelete || cfg.Audit.Retention.ArchivePath != "tmp/archives/" {
		t.Errorf("archive settings = %+v, want archiving to tmp/archives/", cfg.Audit.Retention)
	}
	if cfg.Audit.Query.DefaultLimit != 25 || cfg.Audit.Query.MaxLimit != 500 {
		t.Errorf("query limits = %d/%d, want 25/500", cfg.Audit.Query.DefaultLimit, cfg.Audit.Query.MaxLimit)
	}
	if cfg.Audit.Export.JSONPretty || cfg.Audit.Export.CSVIncludeHeader {
		t.Errorf("export = %+v, want both disabled", cfg.Audit.Export)
	}

	if cfg.Telemetry.Logging.Level != "debug" || cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("logging = %+v, want debug/text", cfg.Telemetry.Logging)
	}
	if !cfg.Telemetry.Logging.AddSource {
		t.Error("add_source not mapped")
	}
	if len(cfg.Telemetry.Logging.RedactPatterns) != 1 {
		t.Fatalf("redact patterns = %d, want 1", len(cfg.Telemetry.Logging.RedactPatterns))
	}
	pattern := cfg.Telemetry.Logging.RedactPatterns[0]
	if pattern.Name != "session token" || pattern.Pattern != "sess-[0-9a-f]+" || pattern.Replacement != "sess-REDACTED" {
		t.Errorf("redact pattern = %+v, not mapped", pattern)
	}
	if cfg.Telemetry.Metrics.Path != "/internal/metrics" {
		t.Errorf("metrics path = %q, want %q", cfg.Telemetry.Metrics.Path, "/internal/metrics")
	}
	if len(cfg.Telemetry.Metrics.RequestDurationBuckets) != 3 {
		t.Errorf("duration buckets = %v, want 3 entries", cfg.Telemetry.Metrics.RequestDurationBuckets)
	}
	if cfg.Telemetry.Health.LivenessPath != "/healthz" || cfg.Telemetry.Health.ReadinessPath != "/readyz" || cfg.Telemetry.Health.VersionPath != "/buildinfo" {
		t.Errorf("health paths = %+v, not mapped", cfg.Telemetry.Health)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("listen address = %q, want %q", cfg.Server.ListenAddress, DefaultListenAddress)
	}
	if cfg.Server.WriteTimeout != 0 {
		t.Errorf("write timeout = %v, want 0 (disabled for streaming)", cfg.Server.WriteTimeout)
	}

	// Booleans that default to true are seeded here, not in ApplyDefaults.
	if !cfg.Server.CORS.Enabled {
		t.Error("CORS should default to enabled")
	}
	if !cfg.Audit.Enabled {
		t.Error("audit should default to enabled")
	}
	if !cfg.Audit.SQLite.WALMode {
		t.Error("WAL mode should default to enabled")
	}
	if !cfg.Audit.Recorder.HashBodies {
		t.Error("body hashing should default to enabled")
	}
	if !cfg.Audit.Export.JSONPretty || !cfg.Audit.Export.CSVIncludeHeader {
		t.Errorf("export = %+v, want pretty JSON and CSV header by default", cfg.Audit.Export)
	}
	if !cfg.Telemetry.Logging.RedactSecrets {
		t.Error("secret redaction should default to enabled")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("metrics should default to enabled")
	}

	if cfg.Audit.Retention.Days != DefaultAuditRetentionDays {
		t.Errorf("retention days = %d, want %d", cfg.Audit.Retention.Days, DefaultAuditRetentionDays)
	}
}

func TestDefaultConfig_IndependentInstances(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()

	a.Server.ListenAddress = "0.0.0.0:1"
	a.Server.CORS.AllowedOrigins[0] = "https://mutated.example.com"

	if b.Server.ListenAddress != DefaultListenAddress {
		t.Error("instances share scalar state")
	}
	if b.Server.CORS.AllowedOrigins[0] != "*" {
		t.Error("instances share slice state")
	}
}
