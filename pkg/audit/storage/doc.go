// Package storage provides audit trail storage backends.
//
// Two backends implement audit.Storage: MemoryStorage keeps a bounded ring
// of records for tests and development, and SQLiteStorage persists records
// to a SQLite database with WAL mode for production use.
package storage
