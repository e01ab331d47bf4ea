package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"styx-hq/charon/pkg/audit"
)

// CSVExporter exports audit records to CSV format.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{
		IncludeHeader: includeHeader,
	}
}

// Export writes audit records to the provided writer in CSV format.
func (e *CSVExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	for _, record := range records {
		if err := writer.Write(recordToRow(record)); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return audit.NewExportError("csv", len(records), err)
	}

	return nil
}

// headerRow returns the CSV header row.
func headerRow() []string {
	return []string{
		"id", "request_id", "timestamp",
		"supplier", "operation", "model", "target_url",
		"upstream_status", "error_kind", "duration_ms",
		"request_bytes", "response_bytes", "request_hash", "response_hash",
		"stream",
	}
}

// recordToRow converts an audit record to a CSV row.
func recordToRow(record *audit.Record) []string {
	timestamp := ""
	if !record.Timestamp.IsZero() {
		timestamp = record.Timestamp.Format(time.RFC3339)
	}

	return []string{
		record.ID,
		record.RequestID,
		timestamp,
		record.Supplier,
		record.Operation,
		record.Model,
		record.TargetURL,
		strconv.Itoa(record.UpstreamStatus),
		record.ErrorKind,
		strconv.FormatInt(record.DurationMS, 10),
		strconv.FormatInt(record.RequestBytes, 10),
		strconv.FormatInt(record.ResponseBytes, 10),
		record.RequestHash,
		record.ResponseHash,
		strconv.FormatBool(record.Stream),
	}
}
