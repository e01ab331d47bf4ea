// Package recorder builds audit records from finished relay operations and
// writes them to storage asynchronously.
//
// Callers hand the recorder an Operation summary; the recorder assigns the
// record id and timestamp, redacts the target URL, hashes bodies when
// configured, and enqueues the record on a bounded channel drained by a
// background worker. A full channel drops the record after WriteTimeout
// rather than stalling the request path.
//
// Bodies and API keys never reach storage. The recorder keeps byte counts
// and optional SHA-256 hashes only.
package recorder
