package docstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"

	"github.com/roach88/repokit/internal/ir"
	"github.com/roach88/repokit/internal/queryir"
	"github.com/roach88/repokit/internal/repository"
)

// Collection implements repository.Collection over a Store.
type Collection struct {
	store   *Store
	name    string
	idField string
}

var _ repository.Collection = (*Collection)(nil)

func (c *Collection) Name() string    { return c.name }
func (c *Collection) IDField() string { return c.idField }

func (c *Collection) CompileFind(q queryir.Query, limit, offset int64) (repository.Compiled, error) {
	match, err := compileFilter(q.Filter)
	if err != nil {
		return nil, err
	}
	return &findQuery{
		match:   match,
		include: q.Projection.Include,
		exclude: q.Projection.Exclude,
		sort:    q.Sort,
		limit:   limit,
		offset:  offset,
	}, nil
}

func (c *Collection) CompileCount(filter []queryir.Predicate) (repository.Compiled, error) {
	match, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}
	return &countQuery{match: match}, nil
}

func (c *Collection) CompileUpdate(filter []queryir.Predicate, m repository.Mutation) (repository.Compiled, error) {
	for _, a := range slices.Concat(m.Set, m.Inc) {
		if a.Field == c.idField {
			return nil, fmt.Errorf("identity field %q cannot be updated", c.idField)
		}
	}
	match, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}
	return &updateQuery{match: match, mutation: m}, nil
}

// scan returns the documents of this collection on one shard that match.
func (c *Collection) scan(txn *memdb.Txn, match matcher) ([]*document, error) {
	it, err := txn.Get(tableDocuments, indexCollection, c.name)
	if err != nil {
		return nil, err
	}
	var out []*document
	for raw := it.Next(); raw != nil; raw = it.Next() {
		doc := raw.(*document)
		if match(doc.body) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (c *Collection) ExecuteFind(ctx context.Context, compiled repository.Compiled) ([]repository.Record, error) {
	q, ok := compiled.(*findQuery)
	if !ok {
		return nil, fmt.Errorf("docstore: unexpected compiled query %T", compiled)
	}

	var bodies []map[string]any
	for _, db := range c.store.shards {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		txn := db.Txn(false)
		docs, err := c.scan(txn, q.match)
		txn.Abort()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.name, err)
		}
		for _, d := range docs {
			bodies = append(bodies, d.body)
		}
	}

	slices.SortStableFunc(bodies, c.order(q.sort))

	if q.offset > 0 {
		if q.offset >= int64(len(bodies)) {
			bodies = nil
		} else {
			bodies = bodies[q.offset:]
		}
	}
	if q.limit > 0 && q.limit < int64(len(bodies)) {
		bodies = bodies[:q.limit]
	}

	out := make([]repository.Record, len(bodies))
	for i, b := range bodies {
		out[i] = c.project(b, q.include, q.exclude)
	}
	return out, nil
}

// order sorts by the requested keys, then by identity ascending so results
// are deterministic across shard layouts.
func (c *Collection) order(keys []queryir.SortField) func(a, b map[string]any) int {
	return func(a, b map[string]any) int {
		for _, k := range keys {
			av, _ := lookup(a, k.Field)
			bv, _ := lookup(b, k.Field)
			r := compareValues(av, bv)
			if k.Direction == queryir.Desc {
				r = -r
			}
			if r != 0 {
				return r
			}
		}
		return compareValues(a[c.idField], b[c.idField])
	}
}

func (c *Collection) project(body map[string]any, include, exclude []string) repository.Record {
	if len(include) > 0 {
		out := map[string]any{}
		for _, path := range append([]string{c.idField}, include...) {
			if v, ok := lookup(body, path); ok {
				assign(out, path, copyValue(v))
			}
		}
		return out
	}
	out := copyValue(body).(map[string]any)
	for _, path := range exclude {
		remove(out, path)
	}
	return out
}

func (c *Collection) ExecuteCount(ctx context.Context, compiled repository.Compiled) ([]*int64, error) {
	q, ok := compiled.(*countQuery)
	if !ok {
		return nil, fmt.Errorf("docstore: unexpected compiled count %T", compiled)
	}

	partials := make([]*int64, len(c.store.shards))
	for i, db := range c.store.shards {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		txn := db.Txn(false)
		present, err := txn.First(tableDocuments, indexCollection, c.name)
		if err != nil {
			txn.Abort()
			return nil, fmt.Errorf("count %s: %w", c.name, err)
		}
		if present == nil {
			// shard holds nothing for this collection
			txn.Abort()
			continue
		}
		docs, err := c.scan(txn, q.match)
		txn.Abort()
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", c.name, err)
		}
		n := int64(len(docs))
		partials[i] = &n
	}
	return partials, nil
}

func (c *Collection) ExecuteUpdate(ctx context.Context, compiled repository.Compiled) (int64, error) {
	q, ok := compiled.(*updateQuery)
	if !ok {
		return 0, fmt.Errorf("docstore: unexpected compiled update %T", compiled)
	}

	var affected int64
	for _, db := range c.store.shards {
		if err := ctx.Err(); err != nil {
			return affected, err
		}
		n, err := c.updateShard(db, q)
		if err != nil {
			return affected, err
		}
		affected += n
	}
	return affected, nil
}

func (c *Collection) updateShard(db *memdb.MemDB, q *updateQuery) (int64, error) {
	txn := db.Txn(true)
	defer txn.Abort()

	docs, err := c.scan(txn, q.match)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", c.name, err)
	}
	for _, d := range docs {
		body := copyValue(d.body).(map[string]any)
		if err := applyMutation(body, q.mutation); err != nil {
			return 0, fmt.Errorf("update %s: %w", c.name, err)
		}
		if err := txn.Insert(tableDocuments, &document{collection: c.name, key: d.key, body: body}); err != nil {
			return 0, fmt.Errorf("update %s: %w", c.name, err)
		}
	}
	txn.Commit()
	return int64(len(docs)), nil
}

// applyMutation applies Set then Inc. Incrementing an absent field sets it
// to the delta.
func applyMutation(body map[string]any, m repository.Mutation) error {
	for _, a := range m.Set {
		assign(body, a.Field, ir.ToGo(a.Value))
	}
	for _, a := range m.Inc {
		delta := ir.ToGo(a.Value)
		cur, ok := lookup(body, a.Field)
		if !ok {
			assign(body, a.Field, delta)
			continue
		}
		sum, err := addNumbers(cur, delta)
		if err != nil {
			return fmt.Errorf("increment %q: %w", a.Field, err)
		}
		assign(body, a.Field, sum)
	}
	return nil
}

func addNumbers(a, b any) (any, error) {
	ai, aInt := a.(int64)
	bi, bInt := b.(int64)
	if aInt && bInt {
		return ai + bi, nil
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return nil, fmt.Errorf("cannot add %T and %T", a, b)
	}
	return af + bf, nil
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case int64:
		return float64(val), true
	case float64:
		return val, true
	}
	return 0, false
}

func (c *Collection) ExecuteDelete(ctx context.Context, id any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := identityKey(id)
	if err != nil {
		return err
	}

	txn := c.store.shardFor(key).Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableDocuments, indexID, c.name, key)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", c.name, key, err)
	}
	if raw == nil {
		return nil
	}
	if err := txn.Delete(tableDocuments, raw); err != nil {
		return fmt.Errorf("delete %s/%s: %w", c.name, key, err)
	}
	txn.Commit()
	return nil
}

// ExecuteInsert stores records, assigning a UUID identity to records that
// have none. Write transactions are opened on every shard involved, in shard
// order, and committed only after all records are staged, so a duplicate
// identity on any shard stores nothing.
func (c *Collection) ExecuteInsert(ctx context.Context, records []repository.Record) ([]repository.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs := make([]*document, len(records))
	for i, r := range records {
		body, err := normalize(r)
		if err != nil {
			return nil, fmt.Errorf("insert %s: record %d: %w", c.name, i, err)
		}
		if v, ok := body[c.idField]; !ok || v == nil {
			body[c.idField] = uuid.NewString()
		}
		key, err := identityKey(body[c.idField])
		if err != nil {
			return nil, fmt.Errorf("insert %s: record %d: %w", c.name, i, err)
		}
		docs[i] = &document{collection: c.name, key: key, body: body}
	}

	err := c.store.writeAll(keysOf(docs), func(txn func(key string) *memdb.Txn) error {
		for _, doc := range docs {
			tx := txn(doc.key)
			existing, err := tx.First(tableDocuments, indexID, c.name, doc.key)
			if err != nil {
				return fmt.Errorf("insert %s/%s: %w", c.name, doc.key, err)
			}
			if existing != nil {
				return fmt.Errorf("insert %s: duplicate identity %s", c.name, doc.key)
			}
			if err := tx.Insert(tableDocuments, doc); err != nil {
				return fmt.Errorf("insert %s/%s: %w", c.name, doc.key, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]repository.Record, len(docs))
	for i, d := range docs {
		out[i] = copyValue(d.body).(map[string]any)
	}
	return out, nil
}

// ExecuteReplace swaps the stored body of every record whose identity is
// present for the given record. Records with an unknown identity are
// skipped. Like ExecuteInsert it is all or nothing across shards.
func (c *Collection) ExecuteReplace(ctx context.Context, records []repository.Record) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	docs := make([]*document, len(records))
	for i, r := range records {
		body, err := normalize(r)
		if err != nil {
			return 0, fmt.Errorf("replace %s: record %d: %w", c.name, i, err)
		}
		key, err := identityKey(body[c.idField])
		if err != nil {
			return 0, fmt.Errorf("replace %s: record %d: %w", c.name, i, err)
		}
		docs[i] = &document{collection: c.name, key: key, body: body}
	}

	var replaced int64
	err := c.store.writeAll(keysOf(docs), func(txn func(key string) *memdb.Txn) error {
		for _, doc := range docs {
			tx := txn(doc.key)
			existing, err := tx.First(tableDocuments, indexID, c.name, doc.key)
			if err != nil {
				return fmt.Errorf("replace %s/%s: %w", c.name, doc.key, err)
			}
			if existing == nil {
				continue
			}
			if err := tx.Insert(tableDocuments, doc); err != nil {
				return fmt.Errorf("replace %s/%s: %w", c.name, doc.key, err)
			}
			replaced++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return replaced, nil
}

func keysOf(docs []*document) []string {
	keys := make([]string, len(docs))
	for i, d := range docs {
		keys[i] = d.key
	}
	return keys
}
