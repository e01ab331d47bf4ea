// Package audit defines the audit trail for relay operations.
//
// Every relay call (buffered chat, streaming chat, model listing,
// connection test) produces one Record describing where the request went
// and how it ended: supplier label, operation, model, upstream status,
// error kind, duration and body byte counts. Records never contain
// message content or API keys; bodies are reduced to sizes and optional
// SHA-256 hashes, and target URLs are stored with credentials redacted.
//
// The package is split the same way the subsystem runs:
//
//   - audit (this package): the Record type, query filters, the Storage
//     and Exporter interfaces, and typed errors.
//   - audit/recorder: asynchronous recording off the request path.
//   - audit/storage: SQLite and in-memory storage backends.
//   - audit/retention: scheduled pruning by age and record count.
//   - audit/export: JSON and CSV exporters for the CLI.
package audit
