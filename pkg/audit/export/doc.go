// Package export converts audit records to interchange formats.
//
// JSONExporter writes records as a JSON array, CSVExporter as CSV rows with
// an optional header. Both implement audit.Exporter and are used by the
// audit export CLI command and the retention archiver.
package export
