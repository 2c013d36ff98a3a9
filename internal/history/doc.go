// Package history keeps a SQLite ledger of finished transfers for the CLI.
//
// The ledger is append-only and purely informational: the sync engine's
// in-memory queue remains the system of record while the daemon runs, and
// nothing is replayed from the database after a restart.
package history
