// Package config provides configuration management for Charon.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("charon.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("charon.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CHARON_SECTION_FIELD.
// For example:
//
//   - CHARON_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - CHARON_AUDIT_SQLITE_PATH overrides audit.sqlite.path
//   - CHARON_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
// For application-wide configuration access, use the singleton pattern:
//
//	// At application startup
//	if err := config.Initialize("charon.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Anywhere in the application
//	cfg := config.GetConfig()
//	fmt.Println(cfg.Server.ListenAddress)
//
// For testing, prefer dependency injection with explicit Config instances
// rather than the global singleton.
//
// # Validation
//
// All configuration is validated automatically during loading. Validation includes:
//
//   - Required field checks (e.g., a SQLite path when the backend is sqlite)
//   - Range validation (e.g., timeouts must be non-negative)
//   - Format validation (e.g., custom redaction patterns must compile)
//   - Logical validation (e.g., registry watch requires a registry path)
//
// Validation errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - server.tls.cert_file: TLS certificate file is required when TLS is enabled
//	  - audit.backend: invalid backend "postgres": must be 'sqlite' or 'memory'
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	server:
//	  listen_address: "127.0.0.1:8117"
//
//	registry:
//	  path: "suppliers.yaml"
//	  watch: true
//
//	audit:
//	  enabled: true
//	  backend: "sqlite"
//	  sqlite:
//	    path: "data/audit.db"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
//
// # Thread Safety
//
// All configuration access is thread-safe. The singleton pattern uses read-write
// locks to allow concurrent reads while protecting against concurrent writes during
// reload operations.
package config
