package testutil

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/roach88/repokit/internal/queryir"
	"github.com/roach88/repokit/internal/repository"
)

// SeededRand returns a deterministic random source for FindOnePickRandom.
func SeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// Recording wraps a collection and records every call the executor makes,
// so tests can assert on round trips (e.g. count before find).
//
// Thread-safety: safe for concurrent use if the wrapped collection is.
type Recording struct {
	repository.Collection

	mu    sync.Mutex
	calls []string
	fail  map[string]failure

	// Partials, if set, replaces the partial counts returned by ExecuteCount.
	Partials []*int64
}

// NewRecording wraps c.
func NewRecording(c repository.Collection) *Recording {
	return &Recording{Collection: c, fail: map[string]failure{}}
}

type failure struct {
	after int
	err   error
}

// Fail makes the named operation ("find", "count", "update", "delete",
// "insert", "replace") return err from now on.
func (r *Recording) Fail(op string, err error) {
	r.FailAfter(op, 0, err)
}

// FailAfter lets the named operation succeed n more times, then return err.
func (r *Recording) FailAfter(op string, n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[op] = failure{after: n, err: err}
}

// Calls returns recorded operations in order, e.g. "count", "find limit=1 offset=3".
func (r *Recording) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Reset clears recorded calls.
func (r *Recording) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Recording) record(op, call string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	f, ok := r.fail[op]
	if !ok {
		return nil
	}
	if f.after > 0 {
		f.after--
		r.fail[op] = f
		return nil
	}
	return f.err
}

// CompileFind records the limit and offset so find calls can be told apart.
func (r *Recording) CompileFind(q queryir.Query, limit, offset int64) (repository.Compiled, error) {
	c, err := r.Collection.CompileFind(q, limit, offset)
	if err != nil {
		return nil, err
	}
	return compiledFind{inner: c, limit: limit, offset: offset}, nil
}

type compiledFind struct {
	inner         repository.Compiled
	limit, offset int64
}

func (r *Recording) ExecuteFind(ctx context.Context, c repository.Compiled) ([]repository.Record, error) {
	cf := c.(compiledFind)
	if err := r.record("find", fmt.Sprintf("find limit=%d offset=%d", cf.limit, cf.offset)); err != nil {
		return nil, err
	}
	return r.Collection.ExecuteFind(ctx, cf.inner)
}

func (r *Recording) ExecuteCount(ctx context.Context, c repository.Compiled) ([]*int64, error) {
	if err := r.record("count", "count"); err != nil {
		return nil, err
	}
	if r.Partials != nil {
		return r.Partials, nil
	}
	return r.Collection.ExecuteCount(ctx, c)
}

func (r *Recording) ExecuteUpdate(ctx context.Context, c repository.Compiled) (int64, error) {
	if err := r.record("update", "update"); err != nil {
		return 0, err
	}
	return r.Collection.ExecuteUpdate(ctx, c)
}

func (r *Recording) ExecuteDelete(ctx context.Context, id any) error {
	if err := r.record("delete", fmt.Sprintf("delete %v", id)); err != nil {
		return err
	}
	return r.Collection.ExecuteDelete(ctx, id)
}

func (r *Recording) ExecuteInsert(ctx context.Context, records []repository.Record) ([]repository.Record, error) {
	if err := r.record("insert", fmt.Sprintf("insert %d", len(records))); err != nil {
		return nil, err
	}
	return r.Collection.ExecuteInsert(ctx, records)
}

func (r *Recording) ExecuteReplace(ctx context.Context, records []repository.Record) (int64, error) {
	if err := r.record("replace", fmt.Sprintf("replace %d", len(records))); err != nil {
		return 0, err
	}
	return r.Collection.ExecuteReplace(ctx, records)
}
