// Package ir holds the value model shared by queries, adapters and the
// harness: a closed set of operand types, conversion to and from plain Go
// values, and RFC 8785 canonical JSON.
//
// Canonical JSON is the only text form used for query fingerprints, stored
// nested documents and golden snapshots. ir imports no other internal
// package.
package ir
