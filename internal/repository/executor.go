package repository

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"github.com/roach88/repokit/internal/queryir"
	"github.com/roach88/repokit/internal/repoerr"
	"github.com/roach88/repokit/internal/softdelete"
)

// Executor runs query descriptors against one collection.
//
// Every filter passes through the same pipeline before compilation:
// Validate, soft-delete overlay, Lower. Validation failures never reach the
// port. Port failures surface as STORAGE_FAILURE with no retry.
//
// Executor is safe for concurrent use if the collection is.
type Executor[T any] struct {
	coll   Collection
	mapper Mapper[T]
	policy softdelete.Policy
	rng    *rand.Rand
	logger *slog.Logger
}

// Option configures an Executor.
type Option func(*options)

type options struct {
	policy softdelete.Policy
	rng    *rand.Rand
	logger *slog.Logger
}

// WithPolicy sets the soft-delete policy. Default: disabled.
func WithPolicy(p softdelete.Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithRand sets the random source used by FindOnePickRandom.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rng = r }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates an executor that maps records through mapper.
func New[T any](coll Collection, mapper Mapper[T], opts ...Option) *Executor[T] {
	o := options{policy: softdelete.Disabled()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Executor[T]{
		coll:   coll,
		mapper: mapper,
		policy: o.policy,
		rng:    o.rng,
		logger: o.logger.With("collection", coll.Name()),
	}
}

// NewRecords creates an executor returning raw records.
func NewRecords(coll Collection, opts ...Option) *Executor[Record] {
	return New[Record](coll, RecordMapper{IDField: coll.IDField()}, opts...)
}

// Policy returns the soft-delete policy fixed at construction.
func (e *Executor[T]) Policy() softdelete.Policy {
	return e.policy
}

// prepare validates q and returns it overlaid and lowered.
func (e *Executor[T]) prepare(ctx context.Context, op string, q queryir.Query) (queryir.Query, error) {
	if err := queryir.Validate(q); err != nil {
		return queryir.Query{}, err
	}
	q = queryir.LowerQuery(e.policy.ApplyQuery(q))
	if e.logger.Enabled(ctx, slog.LevelDebug) {
		fp, _ := queryir.Fingerprint(q)
		e.logger.DebugContext(ctx, "executing query", "op", op, "fingerprint", fp)
	}
	return q, nil
}

// storageErr wraps and logs a port failure.
func (e *Executor[T]) storageErr(ctx context.Context, op string, err error) error {
	err = repoerr.Storage(op, err)
	e.logger.ErrorContext(ctx, "storage operation failed", "op", op, "error", err)
	return err
}

// compileErr keeps taxonomy codes and reports anything else as VALIDATION.
func compileErr(op string, err error) error {
	if repoerr.CodeOf(err) != "" {
		return err
	}
	return &repoerr.Error{Code: repoerr.CodeValidation, Op: op, Err: err}
}

func (e *Executor[T]) find(ctx context.Context, op string, q queryir.Query, limit, offset int64) ([]T, error) {
	c, err := e.coll.CompileFind(q, limit, offset)
	if err != nil {
		return nil, compileErr(op, err)
	}
	records, err := e.coll.ExecuteFind(ctx, c)
	if err != nil {
		return nil, e.storageErr(ctx, op, err)
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		v, err := e.mapper.Decode(r)
		if err != nil {
			return nil, &repoerr.Error{Code: repoerr.CodeValidation, Op: op, Message: "decode record", Err: err}
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *Executor[T]) count(ctx context.Context, op string, q queryir.Query) (int64, error) {
	c, err := e.coll.CompileCount(q.Filter)
	if err != nil {
		return 0, compileErr(op, err)
	}
	partials, err := e.coll.ExecuteCount(ctx, c)
	if err != nil {
		return 0, e.storageErr(ctx, op, err)
	}
	return SumPartials(partials), nil
}

// SumPartials adds partial counts, treating nil entries as zero.
func SumPartials(partials []*int64) int64 {
	var total int64
	for _, p := range partials {
		if p != nil {
			total += *p
		}
	}
	return total
}

// FindAll returns every match in store order, or sort order when q sorts.
// Any page request on q is ignored; use FindPage for paging.
func (e *Executor[T]) FindAll(ctx context.Context, q queryir.Query) ([]T, error) {
	q.Page = nil
	pq, err := e.prepare(ctx, "find_all", q)
	if err != nil {
		return nil, err
	}
	return e.find(ctx, "find_all", pq, 0, 0)
}

// FindOne returns the first match. ok is false when nothing matches.
func (e *Executor[T]) FindOne(ctx context.Context, q queryir.Query) (v T, ok bool, err error) {
	q.Page = nil
	pq, err := e.prepare(ctx, "find_one", q)
	if err != nil {
		return v, false, err
	}
	items, err := e.find(ctx, "find_one", pq, 1, 0)
	if err != nil || len(items) == 0 {
		return v, false, err
	}
	return items[0], true, nil
}

// FindOnePickRandom returns one match chosen uniformly at random: it counts
// the matches, draws an offset in [0, count) and fetches that single record.
func (e *Executor[T]) FindOnePickRandom(ctx context.Context, q queryir.Query) (v T, ok bool, err error) {
	q.Page = nil
	pq, err := e.prepare(ctx, "find_random", q)
	if err != nil {
		return v, false, err
	}
	total, err := e.count(ctx, "find_random", pq)
	if err != nil || total == 0 {
		return v, false, err
	}
	offset := e.rng.Int64N(total)
	items, err := e.find(ctx, "find_random", pq, 1, offset)
	if err != nil || len(items) == 0 {
		return v, false, err
	}
	return items[0], true, nil
}

// FindPage returns one page of matches and the total across all pages.
//
// req overrides any page request on q. With neither, every match is
// returned and Total is the content length. Otherwise the total is counted
// first and content is fetched only when total > offset.
func (e *Executor[T]) FindPage(ctx context.Context, q queryir.Query, req *queryir.PageRequest) (Page[T], error) {
	if req == nil {
		req = q.Page
	}
	q.Page = req
	pq, err := e.prepare(ctx, "find_page", q)
	if err != nil {
		return Page[T]{}, err
	}

	if req == nil {
		items, err := e.find(ctx, "find_page", pq, 0, 0)
		if err != nil {
			return Page[T]{}, err
		}
		return Page[T]{Content: items, Total: int64(len(items))}, nil
	}

	total, err := e.count(ctx, "find_page", pq)
	if err != nil {
		return Page[T]{}, err
	}
	page := Page[T]{Content: []T{}, Total: total, Request: req}
	if total <= req.Offset() {
		return page, nil
	}
	items, err := e.find(ctx, "find_page", pq, int64(req.Size), req.Offset())
	if err != nil {
		return Page[T]{}, err
	}
	page.Content = items
	return page, nil
}

// Count returns the number of matches. Projection, sort and paging are
// ignored.
func (e *Executor[T]) Count(ctx context.Context, q queryir.Query) (int64, error) {
	pq, err := e.prepare(ctx, "count", queryir.Query{Filter: q.Filter})
	if err != nil {
		return 0, err
	}
	return e.count(ctx, "count", pq)
}

// Exists reports whether anything matches.
func (e *Executor[T]) Exists(ctx context.Context, q queryir.Query) (bool, error) {
	n, err := e.Count(ctx, q)
	return n > 0, err
}

// FindByID returns the record whose identity field equals id.
func (e *Executor[T]) FindByID(ctx context.Context, id any) (v T, ok bool, err error) {
	q, err := queryir.NewBuilder().Is(e.coll.IDField(), id).Build()
	if err != nil {
		return v, false, err
	}
	return e.FindOne(ctx, q)
}

// Update applies m to every match and returns the affected count.
// The soft-delete overlay restricts the update like any other filter.
func (e *Executor[T]) Update(ctx context.Context, q queryir.Query, m Mutation) (int64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	pq, err := e.prepare(ctx, "update", queryir.Query{Filter: q.Filter})
	if err != nil {
		return 0, err
	}
	c, err := e.coll.CompileUpdate(pq.Filter, m)
	if err != nil {
		return 0, compileErr("update", err)
	}
	n, err := e.coll.ExecuteUpdate(ctx, c)
	if err != nil {
		return 0, e.storageErr(ctx, "update", err)
	}
	return n, nil
}

// Insert stores entities and returns them as stored.
func (e *Executor[T]) Insert(ctx context.Context, entities ...T) ([]T, error) {
	records := make([]Record, len(entities))
	for i, ent := range entities {
		r, err := e.mapper.Encode(ent)
		if err != nil {
			return nil, &repoerr.Error{Code: repoerr.CodeValidation, Op: "insert", Message: "encode entity", Err: err}
		}
		records[i] = r
	}
	stored, err := e.coll.ExecuteInsert(ctx, records)
	if err != nil {
		return nil, e.storageErr(ctx, "insert", err)
	}
	out := make([]T, len(stored))
	for i, r := range stored {
		v, err := e.mapper.Decode(r)
		if err != nil {
			return nil, &repoerr.Error{Code: repoerr.CodeValidation, Op: "insert", Message: "decode record", Err: err}
		}
		out[i] = v
	}
	e.logger.DebugContext(ctx, "inserted records", "count", len(out))
	return out, nil
}

// UpdateEntities replaces each stored entity that shares an identity with
// one of entities and returns how many were replaced. Fields an entity does
// not carry are cleared. Entities whose identity is not stored are skipped,
// and the soft-delete overlay does not apply: the identity alone selects
// the record.
func (e *Executor[T]) UpdateEntities(ctx context.Context, entities ...T) (int64, error) {
	records := make([]Record, len(entities))
	for i, ent := range entities {
		r, err := e.mapper.Encode(ent)
		if err != nil {
			return 0, &repoerr.Error{Code: repoerr.CodeValidation, Op: "update_entities", Message: "encode entity", Err: err}
		}
		if id, ok := r[e.coll.IDField()]; !ok || id == nil {
			return 0, repoerr.Validation(e.coll.IDField(), "identity must not be null")
		}
		records[i] = r
	}
	if len(records) == 0 {
		return 0, nil
	}
	n, err := e.coll.ExecuteReplace(ctx, records)
	if err != nil {
		return 0, e.storageErr(ctx, "update_entities", err)
	}
	e.logger.DebugContext(ctx, "replaced records", "count", n)
	return n, nil
}

// Delete removes records by identity, one at a time. It stops at the first
// failure; records deleted before it stay deleted.
func (e *Executor[T]) Delete(ctx context.Context, ids ...any) error {
	for _, id := range ids {
		if id == nil {
			return repoerr.Validation(e.coll.IDField(), "identity must not be null")
		}
		if err := e.coll.ExecuteDelete(ctx, id); err != nil {
			return e.storageErr(ctx, "delete", err)
		}
	}
	return nil
}

// DeleteEntities removes each entity by its identity.
func (e *Executor[T]) DeleteEntities(ctx context.Context, entities ...T) error {
	ids := make([]any, len(entities))
	for i, ent := range entities {
		id, err := e.mapper.Identity(ent)
		if err != nil {
			return err
		}
		ids[i] = id
	}
	return e.Delete(ctx, ids...)
}

// DeleteWhere resolves matches with FindAll and deletes them one by one,
// returning how many were deleted before any failure.
func (e *Executor[T]) DeleteWhere(ctx context.Context, q queryir.Query) (int64, error) {
	matches, err := e.FindAll(ctx, queryir.Query{Filter: q.Filter, Sort: q.Sort})
	if err != nil {
		return 0, err
	}
	var deleted int64
	for _, ent := range matches {
		if err := e.DeleteEntities(ctx, ent); err != nil {
			return deleted, err
		}
		deleted++
	}
	e.logger.DebugContext(ctx, "deleted matches", "count", deleted)
	return deleted, nil
}
