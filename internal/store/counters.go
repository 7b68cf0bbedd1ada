package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/repokit/internal/repoerr"
)

// Increment adds delta to an existing sequence and returns the new value.
// Returns a NOT_FOUND error when the sequence does not exist.
func (s *Store) Increment(ctx context.Context, name string, delta int64) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE sequences SET value = value + ?
		WHERE name = ?
		RETURNING value
	`, delta, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, repoerr.NotFound("sequence.increment", fmt.Sprintf("no sequence %q", name))
	}
	if err != nil {
		return 0, fmt.Errorf("increment sequence %s: %w", name, err)
	}
	return v, nil
}

// Create inserts a sequence with the given initial value.
// Returns a CONCURRENCY_CONFLICT error when it already exists.
func (s *Store) Create(ctx context.Context, name string, initial int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sequences (name, value) VALUES (?, ?)
	`, name, initial)
	if isUniqueViolation(err) {
		return repoerr.Conflict("sequence.create", fmt.Sprintf("sequence %q already exists", name), err)
	}
	if err != nil {
		return fmt.Errorf("create sequence %s: %w", name, err)
	}
	return nil
}

// Current returns the value of a sequence without changing it.
func (s *Store) Current(ctx context.Context, name string) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM sequences WHERE name = ?
	`, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, repoerr.NotFound("sequence.current", fmt.Sprintf("no sequence %q", name))
	}
	if err != nil {
		return 0, fmt.Errorf("read sequence %s: %w", name, err)
	}
	return v, nil
}

// IncrementOrInsert adds delta to a sequence, creating it with initial when
// absent, in a single statement.
func (s *Store) IncrementOrInsert(ctx context.Context, name string, delta, initial int64) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sequences (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = value + ?
		RETURNING value
	`, name, initial, delta).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("increment sequence %s: %w", name, err)
	}
	return v, nil
}
