package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// global holds the process-wide configuration. It is nil until
// Initialize or SetConfig stores one; readers always see a complete
// snapshot, never a half-written struct.
var global atomic.Pointer[Config]

// initOnce keeps Initialize first-wins so later calls cannot replace
// the configuration the daemon started with.
var initOnce sync.Once

// Initialize loads the configuration from path with CHARON_ environment
// overrides applied and stores it as the process-wide instance. Only the
// first call loads anything; subsequent calls are ignored.
func Initialize(path string) error {
	var initErr error
	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		global.Store(cfg)
	})
	return initErr
}

// GetConfig returns the process-wide configuration, nil before a
// successful Initialize. Safe for concurrent use.
func GetConfig() *Config {
	return global.Load()
}

// SetConfig replaces the process-wide configuration directly, bypassing
// loading and validation. Intended for tests.
func SetConfig(cfg *Config) {
	global.Store(cfg)
}

// ReloadConfig loads the configuration from path and replaces the
// process-wide instance. On a load or validation failure the previous
// configuration stays in place.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	global.Store(cfg)
	return nil
}

// MustGetConfig returns the process-wide configuration, panicking when
// Initialize has not run. For code paths that only execute after a
// successful startup; everything else should prefer GetConfig.
func MustGetConfig() *Config {
	cfg := global.Load()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}

// resetGlobal clears the singleton so each test starts from a clean
// slate.
func resetGlobal() {
	global.Store(nil)
	initOnce = sync.Once{}
}
