// Package server assembles Charon's HTTP surface and manages its lifecycle.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"styx-hq/charon/pkg/audit"
	"styx-hq/charon/pkg/config"
	"styx-hq/charon/pkg/imports"
	"styx-hq/charon/pkg/proxy/handlers"
	"styx-hq/charon/pkg/proxy/middleware"
	"styx-hq/charon/pkg/proxy/types"
	"styx-hq/charon/pkg/telemetry/metrics"
)

// Registry is the supplier registry surface the server wires into its
// handlers: target resolution for the relay endpoints, status for the
// readiness probe. *registry.Registry implements it.
type Registry interface {
	handlers.TargetResolver
	handlers.RegistryStatus
}

// Deps carries the components the server serves. Relay is required;
// every other field may be nil, which leaves that concern unwired: no
// supplier names, no audit trail, no import endpoints, no metrics.
type Deps struct {
	// Relay performs upstream calls for the chat and supplier endpoints.
	Relay handlers.Relayer

	// Registry resolves named suppliers and reports readiness.
	Registry Registry

	// Recorder receives one audit operation per relay call.
	Recorder handlers.AuditRecorder

	// AuditStore answers the readiness probe's storage check.
	AuditStore audit.Storage

	// ImportStore stages remote card imports until a client collects them.
	ImportStore imports.Store

	// Metrics instruments the relay handlers and serves the Prometheus
	// endpoint.
	Metrics *metrics.Collector

	// Version is reported by the version endpoint.
	Version types.VersionInfo
}

// Server is Charon's HTTP front: the relay endpoints, the import
// surface, and the operational probes behind one middleware chain.
type Server struct {
	cfg          *config.Config
	deps         Deps
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	stopOnce     sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a new relay server.
func NewServer(cfg *config.Config, deps Deps) *Server {
	return &Server{
		cfg:          cfg,
		deps:         deps,
		shutdownChan: make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	handler := s.setupRoutes()

	// WriteTimeout stays at the configured value, zero by default: a
	// fixed write deadline would cut long SSE relays mid-stream.
	s.httpServer = &http.Server{
		Addr:           s.cfg.Server.ListenAddress,
		Handler:        handler,
		ReadTimeout:    s.cfg.Server.ReadTimeout,
		WriteTimeout:   s.cfg.Server.WriteTimeout,
		IdleTimeout:    s.cfg.Server.IdleTimeout,
		MaxHeaderBytes: s.cfg.Server.MaxHeaderBytes,
	}

	// Configure TLS if enabled
	if s.cfg.Server.TLS.Enabled {
		tlsConfig, err := s.configureTLS()
		if err != nil {
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		s.httpServer.TLSConfig = tlsConfig
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting relay server",
			"address", s.cfg.Server.ListenAddress,
			"tls_enabled", s.cfg.Server.TLS.Enabled,
		)

		var err error
		if s.cfg.Server.TLS.Enabled {
			err = s.httpServer.ListenAndServeTLS(
				s.cfg.Server.TLS.CertFile,
				s.cfg.Server.TLS.KeyFile,
			)
		} else {
			err = s.httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Set up signal handlers
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Stop requests shutdown from another goroutine. Start returns once the
// graceful shutdown completes.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.shutdownChan) })
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.cfg.Server.ShutdownTimeout.String())

		// Create shutdown context with timeout
		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
		defer cancel()

		// Shutdown HTTP server
		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("relay server stopped")
	})

	return shutdownErr
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	relayDeps := handlers.Deps{
		Relay:        s.deps.Relay,
		Registry:     s.deps.Registry,
		Recorder:     s.deps.Recorder,
		Metrics:      s.deps.Metrics,
		MaxBodyBytes: s.cfg.Server.MaxBodyBytes,
	}

	// Relay endpoints
	mux.Handle("/v1/relay/chat", handlers.NewChatHandler(relayDeps))
	mux.Handle("/v1/suppliers/models", handlers.NewModelsHandler(relayDeps))
	mux.Handle("/v1/suppliers/test-connection", handlers.NewTestConnectionHandler(relayDeps))

	// Import surface
	if s.deps.ImportStore != nil {
		importHandler := handlers.NewImportHandler(handlers.ImportConfig{
			Store:            s.deps.ImportStore,
			MinClientVersion: s.cfg.Imports.MinClientVersion,
			MaxBodyBytes:     s.cfg.Imports.MaxCardBytes,
		})
		mux.Handle("/v1/import/remote", importHandler)
		mux.Handle("/v1/import/remote/pending", handlers.NewPendingListHandler(s.deps.ImportStore))
		mux.Handle(handlers.PendingCardPathPrefix, handlers.NewPendingCardHandler(s.deps.ImportStore))
	}

	// Operational probes
	health := s.cfg.Telemetry.Health
	if health.LivenessPath != "" {
		mux.Handle(health.LivenessPath, handlers.NewHealthHandler())
	}
	if health.ReadinessPath != "" {
		mux.Handle(health.ReadinessPath, handlers.NewReadyHandler(s.deps.Registry, s.deps.AuditStore))
	}
	if health.VersionPath != "" {
		mux.Handle(health.VersionPath, handlers.NewVersionHandler(s.deps.Version))
	}

	if s.cfg.Telemetry.Metrics.Enabled && s.deps.Metrics != nil {
		mux.Handle(s.cfg.Telemetry.Metrics.Path, s.deps.Metrics.Handler())
	}

	// Apply middleware chain
	var handler http.Handler = mux

	// CORS middleware
	handler = middleware.CORSMiddleware(s.convertCORSConfig())(handler)

	// Request ID middleware
	handler = middleware.RequestIDMiddleware(handler)

	// Logging middleware
	handler = middleware.LoggingMiddleware(handler)

	// Recovery middleware (outermost)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// configureTLS configures TLS settings.
func (s *Server) configureTLS() (*tls.Config, error) {
	if s.cfg.Server.TLS.CertFile == "" {
		return nil, fmt.Errorf("TLS cert file not specified")
	}

	if s.cfg.Server.TLS.KeyFile == "" {
		return nil, fmt.Errorf("TLS key file not specified")
	}

	// Check if files exist
	if _, err := os.Stat(s.cfg.Server.TLS.CertFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("TLS cert file not found: %s", s.cfg.Server.TLS.CertFile)
	}

	if _, err := os.Stat(s.cfg.Server.TLS.KeyFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("TLS key file not found: %s", s.cfg.Server.TLS.KeyFile)
	}

	// Create TLS config
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS13,
		CipherSuites: []uint16{
			tls.TLS_AES_128_GCM_SHA256,
			tls.TLS_AES_256_GCM_SHA384,
			tls.TLS_CHACHA20_POLY1305_SHA256,
		},
		PreferServerCipherSuites: true,
	}

	return tlsConfig, nil
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler. It exists so tests can
// drive the full route and middleware stack through httptest without
// binding a listener.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// convertCORSConfig converts config.CORSConfig to middleware.CORSConfig.
func (s *Server) convertCORSConfig() *middleware.CORSConfig {
	return &middleware.CORSConfig{
		Enabled:          s.cfg.Server.CORS.Enabled,
		AllowedOrigins:   s.cfg.Server.CORS.AllowedOrigins,
		AllowedMethods:   s.cfg.Server.CORS.AllowedMethods,
		AllowedHeaders:   s.cfg.Server.CORS.AllowedHeaders,
		ExposedHeaders:   s.cfg.Server.CORS.ExposedHeaders,
		MaxAge:           s.cfg.Server.CORS.MaxAge,
		AllowCredentials: s.cfg.Server.CORS.AllowCredentials,
	}
}
