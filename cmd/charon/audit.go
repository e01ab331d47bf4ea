package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"styx-hq/charon/pkg/audit"
	"styx-hq/charon/pkg/audit/export"
	"styx-hq/charon/pkg/audit/storage"
	"styx-hq/charon/pkg/cli"
	"styx-hq/charon/pkg/config"
)

var auditFlags struct {
	backend   string
	timeRange string
	supplier  string
	operation string
	model     string
	status    string
	kind      string
	limit     int
	offset    int
	format    string
	output    string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit trail",
	Long: `Query and export audit records of relay operations.

Audit records capture where each relay call went and how it ended:
supplier, operation, upstream status, error kind, duration, and body
byte counts. Request and response contents are never stored.

Subcommands:
  list    - Query audit records with filters
  export  - Export audit records to JSON or CSV

Examples:
  # List the most recent records
  charon audit list

  # Filter by supplier and error kind
  charon audit list --supplier openrouter --kind TIMEOUT

  # Export a day of records to CSV
  charon audit export --time-range "2026-08-01T00:00:00Z/2026-08-02T00:00:00Z" --format csv --output audit.csv`,
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "Query audit records",
	Long: `Query audit records with various filters.

Time Range Format:
  RFC3339 interval format: "start/end"
  Example: "2026-08-01T00:00:00Z/2026-08-02T00:00:00Z"

Examples:
  # Query a specific time range
  charon audit list --time-range "2026-08-01T00:00:00Z/2026-08-02T00:00:00Z"

  # Filter by supplier and operation
  charon audit list --supplier openrouter --operation chat_stream

  # Only failed operations
  charon audit list --status error

  # JSON output
  charon audit list --format json`,
	RunE: listAuditRecords,
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit records",
	Long: `Export audit records to JSON or CSV.

The JSON exporter writes an array of records; the CSV exporter writes
one row per record. Formatting follows the audit.export section of the
configuration (indentation, header row).

Examples:
  # Export everything to a JSON file
  charon audit export --format json --output audit.json

  # Export one supplier's failures to CSV on stdout
  charon audit export --supplier openrouter --status error --format csv`,
	RunE: exportAuditRecords,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd, auditExportCmd)

	for _, cmd := range []*cobra.Command{auditListCmd, auditExportCmd} {
		cmd.Flags().StringVar(&auditFlags.backend, "backend", "", "backend: sqlite, memory (uses config if not specified)")
		cmd.Flags().StringVar(&auditFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
		cmd.Flags().StringVar(&auditFlags.supplier, "supplier", "", "filter by supplier label")
		cmd.Flags().StringVar(&auditFlags.operation, "operation", "", "filter by operation (chat, chat_stream, models, test_connection)")
		cmd.Flags().StringVar(&auditFlags.model, "model", "", "filter by model")
		cmd.Flags().StringVar(&auditFlags.status, "status", "", "filter by outcome (success, error)")
		cmd.Flags().StringVar(&auditFlags.kind, "kind", "", "filter by error kind")
		cmd.Flags().IntVar(&auditFlags.limit, "limit", 0, "max results (uses config default if not specified)")
		cmd.Flags().IntVar(&auditFlags.offset, "offset", 0, "pagination offset")
		cmd.Flags().StringVarP(&auditFlags.output, "output", "o", "", "output file (default: stdout)")
	}

	auditListCmd.Flags().StringVar(&auditFlags.format, "format", "text", "output format: text, json")
	auditExportCmd.Flags().StringVar(&auditFlags.format, "format", "json", "export format: json, csv")
}

func listAuditRecords(cmd *cobra.Command, args []string) error {
	cfg, store, err := openAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	query, err := buildAuditQuery(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := queryContext(cfg)
	defer cancel()

	records, err := store.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("audit", fmt.Errorf("query failed: %w", err))
	}

	output, cleanup, err := openOutput()
	if err != nil {
		return err
	}
	defer cleanup()

	switch auditFlags.format {
	case "json":
		return outputAuditJSON(output, records)
	case "text":
		return outputAuditText(output, records, query)
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json)", auditFlags.format)
	}
}

func exportAuditRecords(cmd *cobra.Command, args []string) error {
	cfg, store, err := openAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	query, err := buildAuditQuery(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := queryContext(cfg)
	defer cancel()

	records, err := store.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("audit", fmt.Errorf("query failed: %w", err))
	}

	var exporter audit.Exporter
	switch auditFlags.format {
	case "json":
		exporter = export.NewJSONExporter(cfg.Audit.Export.JSONPretty)
	case "csv":
		exporter = export.NewCSVExporter(cfg.Audit.Export.CSVIncludeHeader)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: json, csv)", auditFlags.format)
	}

	output, cleanup, err := openOutput()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := exporter.Export(ctx, records, output); err != nil {
		return cli.NewCommandError("audit", fmt.Errorf("export failed: %w", err))
	}

	if auditFlags.output != "" {
		fmt.Printf("✓ Exported %d records to %s\n", len(records), auditFlags.output)
	}
	return nil
}

// openAuditStore loads the configuration and opens the audit storage
// backend named by the --backend flag or the config.
func openAuditStore() (*config.Config, audit.Storage, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	backendType := auditFlags.backend
	if backendType == "" {
		backendType = cfg.Audit.Backend
	}

	switch backendType {
	case "sqlite":
		store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.Audit.SQLite.Path,
			MaxOpenConns: cfg.Audit.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.Audit.SQLite.MaxIdleConns,
			WALMode:      cfg.Audit.SQLite.WALMode,
			BusyTimeout:  cfg.Audit.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, nil, cli.NewCommandError("audit", fmt.Errorf("failed to create SQLite storage: %w", err))
		}
		return cfg, store, nil
	case "memory":
		return cfg, storage.NewMemoryStorage(), nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend: %s (supported: sqlite, memory)", backendType)
	}
}

// buildAuditQuery assembles the storage query from the shared flags.
// Limits follow the audit.query section: the config default stands in
// for an unset --limit, and the configured maximum caps both.
func buildAuditQuery(cfg *config.Config) (*audit.Query, error) {
	query := &audit.Query{
		Supplier:  auditFlags.supplier,
		Operation: auditFlags.operation,
		Model:     auditFlags.model,
		Status:    auditFlags.status,
		Kind:      auditFlags.kind,
		Limit:     auditFlags.limit,
		Offset:    auditFlags.offset,
	}

	if query.Limit <= 0 {
		query.Limit = cfg.Audit.Query.DefaultLimit
	}
	if max := cfg.Audit.Query.MaxLimit; max > 0 && query.Limit > max {
		query.Limit = max
	}

	if auditFlags.timeRange != "" {
		parts := strings.Split(auditFlags.timeRange, "/")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid time range format (expected: start/end)")
		}

		startTime, err := time.Parse(time.RFC3339, parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid start time: %w", err)
		}
		query.StartTime = &startTime

		endTime, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid end time: %w", err)
		}
		query.EndTime = &endTime
	}

	return query, nil
}

// queryContext bounds CLI queries with the configured audit query timeout.
// Ctrl+C cancels an in-flight query through the signal context.
func queryContext(cfg *config.Config) (context.Context, context.CancelFunc) {
	base, stop := cli.SignalContext(context.Background())
	if cfg.Audit.Query.Timeout > 0 {
		ctx, cancel := context.WithTimeout(base, cfg.Audit.Query.Timeout)
		return ctx, func() {
			cancel()
			stop()
		}
	}
	return base, stop
}

// openOutput opens the --output file, or hands back stdout with a no-op
// cleanup.
func openOutput() (*os.File, func(), error) {
	if auditFlags.output == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(auditFlags.output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func outputAuditText(output *os.File, records []*audit.Record, query *audit.Query) error {
	if query.StartTime != nil && query.EndTime != nil {
		fmt.Fprintf(output, "Time range: %s to %s\n",
			query.StartTime.Format(time.RFC3339),
			query.EndTime.Format(time.RFC3339))
	}
	fmt.Fprintf(output, "Total records: %d\n", len(records))
	fmt.Fprintln(output)

	if len(records) == 0 {
		fmt.Fprintln(output, "No records found.")
		return nil
	}

	for i, record := range records {
		if i > 0 {
			fmt.Fprintln(output)
		}

		fmt.Fprintf(output, "Record ID: %s\n", record.ID)
		fmt.Fprintf(output, "Timestamp: %s\n", record.Timestamp.Format(time.RFC3339))
		fmt.Fprintf(output, "Supplier: %s\n", record.Supplier)
		fmt.Fprintf(output, "Operation: %s\n", record.Operation)
		if record.Model != "" {
			fmt.Fprintf(output, "Model: %s\n", record.Model)
		}
		fmt.Fprintf(output, "Target: %s\n", record.TargetURL)
		if record.Succeeded() {
			fmt.Fprintf(output, "Outcome: success (upstream %d)\n", record.UpstreamStatus)
		} else {
			fmt.Fprintf(output, "Outcome: %s (upstream %d)\n", record.ErrorKind, record.UpstreamStatus)
		}
		fmt.Fprintf(output, "Duration: %dms\n", record.DurationMS)
		fmt.Fprintf(output, "Bytes: %d in, %d out\n", record.RequestBytes, record.ResponseBytes)
		if record.Stream {
			fmt.Fprintf(output, "Stream: yes\n")
		}

		// Show limited output for large result sets
		if i >= 9 && len(records) > 10 {
			remaining := len(records) - 10
			fmt.Fprintln(output)
			fmt.Fprintf(output, "... and %d more records\n", remaining)
			fmt.Fprintf(output, "Use --limit and --offset for pagination.\n")
			break
		}
	}

	return nil
}

func outputAuditJSON(output *os.File, records []*audit.Record) error {
	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")

	result := map[string]interface{}{
		"total_records": len(records),
		"records":       records,
	}

	return encoder.Encode(result)
}
