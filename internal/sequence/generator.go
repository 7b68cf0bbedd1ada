// Package sequence generates strictly increasing integers per sequence name.
//
// The generator holds no values in memory. Every call is a round trip to the
// counter store, whose atomic primitives provide mutual exclusion across
// processes sharing the same backing store.
//
// State per sequence name:
//
//	Unknown ──next──▶ Initializing ──create ok──▶ Active
//	                        │
//	                        └─create conflict──▶ retry increment once ──▶ Active
//
// Stores implementing AtomicCounters skip Initializing entirely: the first
// increment inserts the record.
package sequence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/repokit/internal/repoerr"
)

// Counters is the minimal counter store.
type Counters interface {
	// Increment adds delta and returns the new value.
	// Returns NOT_FOUND when the sequence does not exist.
	Increment(ctx context.Context, name string, delta int64) (int64, error)

	// Create inserts the sequence with an initial value.
	// Returns CONCURRENCY_CONFLICT when the sequence already exists.
	Create(ctx context.Context, name string, initial int64) error

	// Current reads the value. Returns NOT_FOUND when absent.
	Current(ctx context.Context, name string) (int64, error)
}

// AtomicCounters stores can increment-or-insert in one operation.
type AtomicCounters interface {
	Counters

	// IncrementOrInsert returns initial when the sequence was absent and the
	// incremented value otherwise.
	IncrementOrInsert(ctx context.Context, name string, delta, initial int64) (int64, error)
}

// Generator hands out sequence values.
type Generator struct {
	store  Counters
	atomic AtomicCounters
	logger *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// New creates a generator over store. If store implements AtomicCounters
// the compound operation is used.
func New(store Counters, opts ...Option) *Generator {
	g := &Generator{store: store, logger: slog.Default()}
	if a, ok := store.(AtomicCounters); ok {
		g.atomic = a
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Atomic reports whether the generator uses the compound increment-or-insert.
func (g *Generator) Atomic() bool {
	return g.atomic != nil
}

func validName(name string) error {
	if name == "" {
		return repoerr.Validation("name", "sequence name must not be empty")
	}
	return nil
}

// Next returns the next value of the named sequence. The first call for an
// unknown name returns 1.
func (g *Generator) Next(ctx context.Context, name string) (int64, error) {
	if err := validName(name); err != nil {
		return 0, err
	}
	if g.atomic != nil {
		v, err := g.atomic.IncrementOrInsert(ctx, name, 1, 1)
		if err != nil {
			return 0, repoerr.Storage("sequence.next", err)
		}
		if v == 1 {
			g.logger.InfoContext(ctx, "sequence initialized", "sequence", name)
		}
		return v, nil
	}

	v, err := g.store.Increment(ctx, name, 1)
	if err == nil {
		return v, nil
	}
	if !repoerr.IsNotFound(err) {
		return 0, repoerr.Storage("sequence.next", err)
	}

	g.logger.InfoContext(ctx, "sequence initializing", "sequence", name)
	err = g.store.Create(ctx, name, 1)
	if err == nil {
		g.logger.InfoContext(ctx, "sequence active", "sequence", name)
		return 1, nil
	}
	if !repoerr.IsConflict(err) {
		return 0, repoerr.Storage("sequence.next", err)
	}

	g.logger.WarnContext(ctx, "sequence creation lost race, retrying increment", "sequence", name)
	v, err = g.store.Increment(ctx, name, 1)
	if err != nil {
		return 0, &repoerr.Error{
			Code:    repoerr.CodeStorageFailure,
			Op:      "sequence.next",
			Message: fmt.Sprintf("retry after creation conflict on %q failed", name),
			Err:     err,
		}
	}
	return v, nil
}

// Ensure guarantees a record exists for name without incrementing an
// existing one. A newly created sequence starts at 1, so the next call to
// Next returns 2.
func (g *Generator) Ensure(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	err := g.store.Create(ctx, name, 1)
	switch {
	case err == nil:
		g.logger.InfoContext(ctx, "sequence ensured", "sequence", name)
		return nil
	case repoerr.IsConflict(err):
		return nil
	default:
		return repoerr.Storage("sequence.ensure", err)
	}
}

// Current returns the last value handed out. ok is false for an unknown
// sequence.
func (g *Generator) Current(ctx context.Context, name string) (v int64, ok bool, err error) {
	if err := validName(name); err != nil {
		return 0, false, err
	}
	v, err = g.store.Current(ctx, name)
	switch {
	case err == nil:
		return v, true, nil
	case repoerr.IsNotFound(err):
		return 0, false, nil
	default:
		return 0, false, repoerr.Storage("sequence.current", err)
	}
}
