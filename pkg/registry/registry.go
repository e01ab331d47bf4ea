package registry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"styx-hq/charon/pkg/relay"
)

// Supplier is one named upstream entry in the registry file. Exactly one of
// APIKey and APIKeyEnv must be set; APIKeyEnv is resolved from the
// environment at load time so the file itself can stay free of secrets.
type Supplier struct {
	Name      string `yaml:"name"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
}

// Target returns the relay target for this supplier with the credential
// already resolved.
func (s Supplier) Target() relay.Target {
	return relay.Target{BaseURL: s.BaseURL, APIKey: s.APIKey}
}

// resolve validates the entry and resolves the credential. The returned
// copy carries the normalized base URL and the final API key.
func (s Supplier) resolve() (Supplier, error) {
	if s.Name == "" {
		return s, fmt.Errorf("supplier name must not be empty")
	}

	normalized, err := relay.NormalizeBaseURL(s.BaseURL)
	if err != nil {
		return s, fmt.Errorf("supplier %q: %w", s.Name, err)
	}
	s.BaseURL = normalized

	if s.APIKey == "" && s.APIKeyEnv != "" {
		s.APIKey = os.Getenv(s.APIKeyEnv)
		if s.APIKey == "" {
			return s, fmt.Errorf("supplier %q: environment variable %s is unset or empty", s.Name, s.APIKeyEnv)
		}
	}
	if s.APIKey == "" {
		return s, fmt.Errorf("supplier %q: api_key or api_key_env must be set", s.Name)
	}

	return s, nil
}

// registryFile is the on-disk shape of the supplier registry.
type registryFile struct {
	Suppliers []Supplier `yaml:"suppliers"`
}

// Registry holds the named upstream targets loaded from a YAML file. All
// reads go through an immutable snapshot; reloads replace the snapshot
// atomically and a reload that fails validation keeps the previous one.
type Registry struct {
	path   string
	logger *slog.Logger

	mu        sync.RWMutex
	suppliers map[string]Supplier
	lastLoad  time.Time
	lastErr   error

	watchMu     sync.Mutex
	watcher     *FileWatcher
	watchCancel context.CancelFunc
}

// New creates a registry backed by the YAML file at path. An empty path
// disables the registry: Load succeeds with zero entries and Resolve never
// matches.
func New(path string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		path:      path,
		logger:    logger,
		suppliers: make(map[string]Supplier),
	}
}

// Enabled reports whether a registry file is configured.
func (r *Registry) Enabled() bool {
	return r.path != ""
}

// Load reads and validates the registry file, replacing the current
// snapshot. Unlike Reload it is meant for startup, where a broken file
// should fail loudly.
func (r *Registry) Load() error {
	return r.load("load")
}

// Reload re-reads the registry file. On any failure the previous snapshot
// stays in effect and the error is recorded for LastLoadError.
func (r *Registry) Reload() error {
	return r.load("reload")
}

func (r *Registry) load(op string) error {
	if !r.Enabled() {
		return nil
	}

	startTime := time.Now()

	suppliers, err := loadFile(r.path)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		r.lastErr = err
		r.logger.Error("supplier registry "+op+" failed, keeping previous entries",
			"path", r.path,
			"error", err,
			"duration_ms", time.Since(startTime).Milliseconds(),
		)
		return err
	}

	r.suppliers = suppliers
	r.lastLoad = time.Now()
	r.lastErr = nil

	r.logger.Info("supplier registry "+op+"ed",
		"path", r.path,
		"count", len(suppliers),
		"duration_ms", time.Since(startTime).Milliseconds(),
	)

	return nil
}

// loadFile parses and validates the whole file before anything is applied,
// so a single bad entry rejects the file.
func loadFile(path string) (map[string]Supplier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse registry file: %w", err)
	}

	suppliers := make(map[string]Supplier, len(file.Suppliers))
	for _, entry := range file.Suppliers {
		resolved, err := entry.resolve()
		if err != nil {
			return nil, err
		}
		if _, exists := suppliers[resolved.Name]; exists {
			return nil, fmt.Errorf("duplicate supplier name %q", resolved.Name)
		}
		suppliers[resolved.Name] = resolved
	}

	return suppliers, nil
}

// Resolve returns the relay target for a named supplier.
func (r *Registry) Resolve(name string) (relay.Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	supplier, ok := r.suppliers[name]
	if !ok {
		return relay.Target{}, false
	}
	return supplier.Target(), true
}

// Names returns the sorted supplier names in the current snapshot.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.suppliers))
	for name := range r.suppliers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of suppliers in the current snapshot.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.suppliers)
}

// LastLoadTime returns when a snapshot was last applied.
func (r *Registry) LastLoadTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastLoad
}

// LastLoadError returns the error from the most recent load attempt, nil
// after a successful one.
func (r *Registry) LastLoadError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// Ready reports whether the registry is usable: disabled registries are
// vacuously ready, enabled ones need at least one successful load.
func (r *Registry) Ready() bool {
	if !r.Enabled() {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.lastLoad.IsZero()
}

// Watch starts hot reloading: file change events, debounced, trigger
// Reload. It returns once the watcher is running; Close stops it.
func (r *Registry) Watch(ctx context.Context, debounce time.Duration) error {
	if !r.Enabled() {
		return nil
	}

	r.watchMu.Lock()
	defer r.watchMu.Unlock()

	if r.watcher != nil {
		return fmt.Errorf("registry watcher already running")
	}

	watcher, err := NewFileWatcher(r.path, debounce, r.logger)
	if err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	r.watcher = watcher
	r.watchCancel = cancel

	go func() {
		if err := watcher.Watch(watchCtx, func() error { return r.Reload() }); err != nil {
			r.logger.Error("supplier registry watcher exited", "error", err)
		}
	}()

	return nil
}

// Close stops the registry watcher if one is running.
func (r *Registry) Close() error {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()

	if r.watcher == nil {
		return nil
	}

	r.watchCancel()
	err := r.watcher.Stop()
	r.watcher = nil
	r.watchCancel = nil
	return err
}
