// Package docstore is the document adapter: a sharded in-memory engine built
// on hashicorp/go-memdb.
//
// Documents are schemaless maps addressed by dotted field paths ("a.b").
// Queries scan every shard, so counts come back as one partial per shard; a
// shard holding no documents of the collection reports a nil partial.
//
// Results are ordered by the requested sort keys and then by identity, with
// SQLite's cross-type ordering (NULL < numeric < text), so the same query
// returns the same sequence here and in internal/store.
package docstore
