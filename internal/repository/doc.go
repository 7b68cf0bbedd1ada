// Package repository executes query descriptors against pluggable storage.
//
// A Collection couples a Compiler (descriptor → backend-native query) with a
// Port (run compiled queries, counts, updates, deletes, inserts). The
// Executor owns the semantics that must not vary between engines:
//
//   - soft-delete overlay applied to every filter, including updates
//   - count-before-content paging; content skipped when total <= offset
//   - partial counts summed, nil partials treated as zero
//   - single-item misses returned as ok=false, never as errors
//   - delete-by-query resolved with FindAll, then deleted one record at a time
//
// Engines: internal/store (SQLite) and internal/docstore (sharded memdb).
package repository
