// Package sqlite provides the durable implementation of driven.KeyValueStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Saved citations are stored as JSON values keyed by
// engagement.
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.attest/data/attest.db
//
// # Thread Safety
//
// All operations are thread-safe. SQLite runs in WAL mode with a busy timeout.
package sqlite
