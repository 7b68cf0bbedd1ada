package repository

import (
	"context"

	"github.com/roach88/repokit/internal/queryir"
)

// Record is the entity shape used for filtering and storage: field name to
// plain Go value (string, int64, float64, bool, nil, nested maps/slices).
type Record map[string]any

// Compiled is an opaque backend-specific artifact produced by a Compiler.
// The executor never inspects it.
type Compiled any

// Compiler translates query descriptors into backend-native queries.
//
// Filters handed to a Compiler are already validated, overlaid with the
// soft-delete restriction and lowered (no Range nodes).
type Compiler interface {
	// CompileFind compiles filter, projection and sort. limit <= 0 means no
	// limit; offset 0 means from the first match.
	CompileFind(q queryir.Query, limit, offset int64) (Compiled, error)

	// CompileCount compiles the filter only.
	CompileCount(filter []queryir.Predicate) (Compiled, error)

	// CompileUpdate compiles a filtered mutation.
	CompileUpdate(filter []queryir.Predicate, m Mutation) (Compiled, error)
}

// Port is the storage capability the executor requires from an engine.
type Port interface {
	// ExecuteFind returns matching records in store order, or sort order when
	// the compiled query carries one.
	ExecuteFind(ctx context.Context, c Compiled) ([]Record, error)

	// ExecuteCount returns one or more partial counts. Multi-shard engines
	// return one per shard; a nil entry counts as zero.
	ExecuteCount(ctx context.Context, c Compiled) ([]*int64, error)

	// ExecuteUpdate applies a compiled mutation and returns the affected count.
	ExecuteUpdate(ctx context.Context, c Compiled) (int64, error)

	// ExecuteDelete removes the record with the given identity. Deleting a
	// missing record is not an error.
	ExecuteDelete(ctx context.Context, id any) error

	// ExecuteInsert stores records and returns them as stored, including any
	// identity the engine assigned.
	ExecuteInsert(ctx context.Context, records []Record) ([]Record, error)

	// ExecuteReplace overwrites each stored record that shares an identity
	// with one of records and returns how many were replaced. Unknown
	// identities are skipped. Either every replacement applies or none does.
	ExecuteReplace(ctx context.Context, records []Record) (int64, error)
}

// Collection is one named set of records on one engine.
type Collection interface {
	Compiler
	Port

	// Name identifies the collection in logs.
	Name() string

	// IDField names the identity field of every record.
	IDField() string
}
