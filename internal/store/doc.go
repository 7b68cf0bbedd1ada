// Package store is the relational storage adapter, backed by SQLite.
//
// A Store owns one database file and provides:
//   - Table: a storage port over a caller-created table, compiling query
//     descriptors through querysql
//   - counter operations for the sequence generator, including a single
//     atomic increment-or-insert statement
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Every connection registers a REGEXP function using Go regexp (RE2) syntax.
// It is false for NULL and non-text values.
//
// Column values map to Go as int64, float64, string or nil. Columns declared
// BOOLEAN read back as bool; columns declared JSON hold canonical JSON text
// and read back as []any or map[string]any.
package store
