// Charon is a local relay for OpenAI-compatible chat APIs.
//
// It accepts chat requests from local clients, forwards them to a
// caller-chosen upstream endpoint, and returns the upstream's answer
// either buffered or as a live SSE stream, providing:
//   - Endpoint normalization with loopback rejection
//   - Buffered and streaming chat relay with a closed error vocabulary
//   - Model listing and connection testing for candidate suppliers
//   - A named supplier registry with hot reload
//   - Remote card import staging for local clients
//   - A privacy-preserving audit trail (byte counts and hashes, never bodies)
//
// Usage:
//
//	# Start server with default configuration
//	charon run
//
//	# Start with custom configuration file
//	charon run --config /path/to/charon.yaml
//
//	# Show version information
//	charon version
//
//	# Validate the configuration and supplier registry
//	charon validate
//
//	# Inspect the audit trail
//	charon audit list --time-range "2026-08-01T00:00:00Z/2026-08-02T00:00:00Z"
//
//	# Export audit records
//	charon audit export --format csv --output audit.csv
package main

func main() {
	Execute()
}
