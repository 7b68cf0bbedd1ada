// Package testutil provides deterministic test doubles for the executor and
// the sequence generator.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/repokit/internal/repoerr"
)

// Counters is an in-memory counter store without a compound
// increment-or-insert, so the generator must take the create-then-retry
// path. Each method is individually atomic, like a table with a unique key.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Counters struct {
	mu     sync.Mutex
	values map[string]int64
	calls  []string

	incrementErrs []error

	// BeforeCreate, if set, runs before each Create without the lock held.
	// Tests use it to let a competing caller win the creation race.
	BeforeCreate func(name string)
}

// NewCounters creates an empty store.
func NewCounters() *Counters {
	return &Counters{values: map[string]int64{}}
}

// FailIncrement queues errors returned by the next Increment calls, in order.
func (c *Counters) FailIncrement(errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.incrementErrs = append(c.incrementErrs, errs...)
}

// Set stores a value directly.
func (c *Counters) Set(name string, v int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = v
}

// Calls returns the operations performed, e.g. "increment order_no".
func (c *Counters) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *Counters) Increment(ctx context.Context, name string, delta int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "increment "+name)
	if len(c.incrementErrs) > 0 {
		err := c.incrementErrs[0]
		c.incrementErrs = c.incrementErrs[1:]
		return 0, err
	}
	v, ok := c.values[name]
	if !ok {
		return 0, repoerr.NotFound("sequence.increment", fmt.Sprintf("no sequence %q", name))
	}
	v += delta
	c.values[name] = v
	return v, nil
}

func (c *Counters) Create(ctx context.Context, name string, initial int64) error {
	if c.BeforeCreate != nil {
		c.BeforeCreate(name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "create "+name)
	if _, ok := c.values[name]; ok {
		return repoerr.Conflict("sequence.create", fmt.Sprintf("sequence %q already exists", name), nil)
	}
	c.values[name] = initial
	return nil
}

func (c *Counters) Current(ctx context.Context, name string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "current "+name)
	v, ok := c.values[name]
	if !ok {
		return 0, repoerr.NotFound("sequence.current", fmt.Sprintf("no sequence %q", name))
	}
	return v, nil
}
