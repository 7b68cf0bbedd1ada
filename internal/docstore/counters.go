package docstore

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-memdb"

	"github.com/roach88/repokit/internal/repoerr"
)

// Counters live in the shard chosen by the sequence name. Every operation
// runs in one write transaction on that shard, so increments never interleave.

func (s *Store) counterTxn(name string) *memdb.Txn {
	return s.shardFor(name).Txn(true)
}

func findSequence(txn *memdb.Txn, name string) (*sequence, error) {
	raw, err := txn.First(tableSequences, indexID, name)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return raw.(*sequence), nil
}

// Increment adds delta to an existing sequence and returns the new value.
// Returns NOT_FOUND when the sequence does not exist.
func (s *Store) Increment(ctx context.Context, name string, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	txn := s.counterTxn(name)
	defer txn.Abort()

	seq, err := findSequence(txn, name)
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", name, err)
	}
	if seq == nil {
		return 0, repoerr.NotFound("sequence.increment", fmt.Sprintf("no sequence %q", name))
	}
	next := &sequence{name: name, value: seq.value + delta}
	if err := txn.Insert(tableSequences, next); err != nil {
		return 0, fmt.Errorf("increment %s: %w", name, err)
	}
	txn.Commit()
	return next.value, nil
}

// Create inserts a sequence with the initial value. Returns
// CONCURRENCY_CONFLICT when the sequence already exists.
func (s *Store) Create(ctx context.Context, name string, initial int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := s.counterTxn(name)
	defer txn.Abort()

	seq, err := findSequence(txn, name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if seq != nil {
		return repoerr.Conflict("sequence.create", fmt.Sprintf("sequence %q already exists", name), nil)
	}
	if err := txn.Insert(tableSequences, &sequence{name: name, value: initial}); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	txn.Commit()
	return nil
}

// Current returns the value of a sequence without changing it.
func (s *Store) Current(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	txn := s.shardFor(name).Txn(false)
	defer txn.Abort()

	seq, err := findSequence(txn, name)
	if err != nil {
		return 0, fmt.Errorf("current %s: %w", name, err)
	}
	if seq == nil {
		return 0, repoerr.NotFound("sequence.current", fmt.Sprintf("no sequence %q", name))
	}
	return seq.value, nil
}

// IncrementOrInsert adds delta to the sequence, creating it with the initial
// value when absent, in one transaction.
func (s *Store) IncrementOrInsert(ctx context.Context, name string, delta, initial int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	txn := s.counterTxn(name)
	defer txn.Abort()

	seq, err := findSequence(txn, name)
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", name, err)
	}
	next := &sequence{name: name, value: initial}
	if seq != nil {
		next.value = seq.value + delta
	}
	if err := txn.Insert(tableSequences, next); err != nil {
		return 0, fmt.Errorf("increment %s: %w", name, err)
	}
	txn.Commit()
	return next.value, nil
}
