package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"styx-hq/charon/pkg/audit"
	"styx-hq/charon/pkg/audit/recorder"
	"styx-hq/charon/pkg/audit/retention"
	"styx-hq/charon/pkg/audit/storage"
	"styx-hq/charon/pkg/cli"
	"styx-hq/charon/pkg/config"
	"styx-hq/charon/pkg/imports"
	"styx-hq/charon/pkg/registry"
	"styx-hq/charon/pkg/relay"
	"styx-hq/charon/pkg/server"
	"styx-hq/charon/pkg/telemetry/logging"
	"styx-hq/charon/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Charon relay server",
	Long: `Start the Charon relay server with the specified configuration.

The server listens on the configured address (loopback by default) and
relays chat requests to caller-chosen OpenAI-compatible endpoints.

Examples:
  # Start with default config
  charon run

  # Start with custom config
  charon run --config /etc/charon/charon.yaml

  # Override listen address
  charon run --listen 127.0.0.1:9117

  # Validate config without starting the server
  charon run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	// Install the process logger. Redaction and context fields apply to
	// every slog.Default user from here on.
	logger, err := logging.New(logging.Config{
		Level:          cfg.Telemetry.Logging.Level,
		Format:         cfg.Telemetry.Logging.Format,
		AddSource:      cfg.Telemetry.Logging.AddSource,
		RedactSecrets:  cfg.Telemetry.Logging.RedactSecrets,
		RedactPatterns: cfg.Telemetry.Logging.RedactPatterns,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	logger.Install()

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	printBanner(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := server.Deps{
		Version: buildInfo(),
	}

	// Relay client
	deps.Relay = relay.New(relay.Options{
		Timeouts: relay.Timeouts{
			Connect:    cfg.Relay.ConnectTimeout,
			Chat:       cfg.Relay.ChatTimeout,
			Models:     cfg.Relay.ModelsTimeout,
			StreamRead: cfg.Relay.StreamReadTimeout,
		},
		UserAgent: cfg.Relay.UserAgent,
	})

	// Metrics collector
	if cfg.Telemetry.Metrics.Enabled {
		deps.Metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	}

	// Supplier registry. A failed initial load is not fatal: the service
	// still serves inline targets, readiness reports the gap, and the
	// watcher picks up the file once it parses again.
	if cfg.Registry.Path != "" {
		slog.Info("loading supplier registry", "path", cfg.Registry.Path)
		reg := registry.New(cfg.Registry.Path, slog.Default())
		if err := reg.Load(); err != nil {
			slog.Warn("initial registry load failed", "path", cfg.Registry.Path, "error", err)
		}
		if cfg.Registry.Watch {
			if err := reg.Watch(ctx, cfg.Registry.Debounce); err != nil {
				slog.Warn("registry watch failed to start", "error", err)
			}
		}
		defer reg.Close()
		deps.Registry = reg

		fmt.Printf("✓ Supplier registry loaded (%d suppliers)\n", reg.Len())
	}

	// Audit trail
	if cfg.Audit.Enabled {
		slog.Info("initializing audit trail", "backend", cfg.Audit.Backend)

		var auditStore audit.Storage
		switch cfg.Audit.Backend {
		case "sqlite":
			auditStore, err = storage.NewSQLiteStorage(&storage.SQLiteConfig{
				Path:         cfg.Audit.SQLite.Path,
				MaxOpenConns: cfg.Audit.SQLite.MaxOpenConns,
				MaxIdleConns: cfg.Audit.SQLite.MaxIdleConns,
				WALMode:      cfg.Audit.SQLite.WALMode,
				BusyTimeout:  cfg.Audit.SQLite.BusyTimeout,
			})
			if err != nil {
				return cli.NewCommandError("run", fmt.Errorf("failed to create SQLite storage: %w", err))
			}
		case "memory":
			auditStore = storage.NewMemoryStorage()
		default:
			return fmt.Errorf("unsupported audit backend: %s", cfg.Audit.Backend)
		}
		defer auditStore.Close()

		auditRecorder := recorder.NewRecorder(auditStore, &recorder.Config{
			Enabled:      true,
			Buffer:       cfg.Audit.Recorder.AsyncBuffer,
			WriteTimeout: cfg.Audit.Recorder.WriteTimeout,
			HashBodies:   cfg.Audit.Recorder.HashBodies,
		})
		defer auditRecorder.Close()

		deps.AuditStore = auditStore
		deps.Recorder = auditRecorder

		// Start the retention scheduler if a schedule is configured
		if cfg.Audit.Retention.PruneSchedule != "" {
			pruner := retention.NewPruner(auditStore, &retention.Config{
				RetentionDays:       cfg.Audit.Retention.Days,
				PruneSchedule:       cfg.Audit.Retention.PruneSchedule,
				MaxRecords:          cfg.Audit.Retention.MaxRecords,
				ArchiveBeforeDelete: cfg.Audit.Retention.ArchiveBeforeDelete,
				ArchivePath:         cfg.Audit.Retention.ArchivePath,
			})
			if err := pruner.Start(ctx); err != nil {
				slog.Warn("failed to start retention scheduler", "error", err)
			} else {
				defer pruner.Stop()
				if next := pruner.NextPruning(); next != nil {
					slog.Debug("audit retention scheduler started", "next_pruning", next)
				}
			}
		}

		fmt.Println("✓ Audit trail initialized")
	}

	// Import store
	var importStore imports.Store
	switch cfg.Imports.Backend {
	case "sqlite":
		importStore, err = imports.NewSQLiteStoreWithConfig(imports.SQLiteStoreConfig{
			Path:            cfg.Imports.SQLite.Path,
			MaxEntries:      cfg.Imports.MaxPending,
			TTL:             cfg.Imports.TTL,
			CleanupInterval: cfg.Imports.CleanupInterval,
			BusyTimeout:     cfg.Imports.SQLite.BusyTimeout,
		})
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to create import store: %w", err))
		}
	default:
		importStore = imports.NewMemoryStoreWithConfig(imports.MemoryStoreConfig{
			MaxEntries:      cfg.Imports.MaxPending,
			TTL:             cfg.Imports.TTL,
			CleanupInterval: cfg.Imports.CleanupInterval,
		})
	}
	defer importStore.Close()
	deps.ImportStore = importStore

	// Create HTTP server
	slog.Info("creating HTTP server")
	srv := server.NewServer(cfg, deps)

	// Start server in background goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Give the listener a beat to come up; bind failures surface on errChan.
	time.Sleep(100 * time.Millisecond)

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Health.LivenessPath)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for shutdown signal or server error
	sigChan := cli.ShutdownChannel()

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
			return cli.NewCommandError("run", err)
		}

		fmt.Println("✓ Server stopped")
		return nil
	}
}

func printBanner(cfg *config.Config) {
	fmt.Printf("Charon v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	if cfg.Registry.Path != "" {
		slog.Debug("registry configured", "path", cfg.Registry.Path, "watch", cfg.Registry.Watch)
	}
	if cfg.Audit.Enabled {
		slog.Debug("audit enabled", "backend", cfg.Audit.Backend)
	}
	slog.Debug("import store configured", "backend", cfg.Imports.Backend)
}
