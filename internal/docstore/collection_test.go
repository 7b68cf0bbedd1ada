package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repokit/internal/ir"
	"github.com/roach88/repokit/internal/queryir"
	"github.com/roach88/repokit/internal/repository"
)

func setupCollection(t *testing.T, shards int) *Collection {
	t.Helper()
	s, err := New(shards)
	require.NoError(t, err)
	c, err := s.Collection("users", "id")
	require.NoError(t, err)
	return c
}

func seed(t *testing.T, c *Collection, records ...repository.Record) {
	t.Helper()
	_, err := c.ExecuteInsert(context.Background(), records)
	require.NoError(t, err)
}

func find(t *testing.T, c *Collection, q queryir.Query, limit, offset int64) []repository.Record {
	t.Helper()
	compiled, err := c.CompileFind(q, limit, offset)
	require.NoError(t, err)
	out, err := c.ExecuteFind(context.Background(), compiled)
	require.NoError(t, err)
	return out
}

func ids(records []repository.Record) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = r["id"]
	}
	return out
}

func TestNew_RejectsZeroShards(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)
}

func TestExecuteInsert_NormalizesAndAssignsIdentity(t *testing.T) {
	c := setupCollection(t, 2)

	stored, err := c.ExecuteInsert(context.Background(), []repository.Record{
		{"id": 1, "age": int32(30)},
		{"name": "anon"},
	})
	require.NoError(t, err)

	require.Len(t, stored, 2)
	assert.Equal(t, repository.Record{"id": int64(1), "age": int64(30)}, stored[0])
	assert.IsType(t, "", stored[1]["id"])
	assert.NotEmpty(t, stored[1]["id"])
}

func TestExecuteInsert_DuplicateIdentity(t *testing.T) {
	c := setupCollection(t, 1)
	seed(t, c, repository.Record{"id": "a"})

	_, err := c.ExecuteInsert(context.Background(), []repository.Record{{"id": "a"}})
	assert.ErrorContains(t, err, "duplicate identity")
}

func TestExecuteInsert_AllOrNothingAcrossShards(t *testing.T) {
	c := setupCollection(t, 4)
	seed(t, c, repository.Record{"id": 7})

	batch := []repository.Record{{"id": 1}, {"id": 2}, {"id": 3}, {"id": 4}, {"id": 5}, {"id": 6}, {"id": 7}}
	shards := map[int]bool{}
	for _, r := range batch {
		key, err := identityKey(r["id"])
		require.NoError(t, err)
		shards[c.store.shardIndex(key)] = true
	}
	require.Greater(t, len(shards), 1)

	_, err := c.ExecuteInsert(context.Background(), batch)
	assert.ErrorContains(t, err, "duplicate identity")
	assert.Equal(t, []any{int64(7)}, ids(find(t, c, queryir.Query{}, 0, 0)))
}

func TestExecuteInsert_DuplicateWithinBatch(t *testing.T) {
	c := setupCollection(t, 2)

	_, err := c.ExecuteInsert(context.Background(), []repository.Record{{"id": "x"}, {"id": "y"}, {"id": "x"}})
	assert.ErrorContains(t, err, "duplicate identity")
	assert.Empty(t, find(t, c, queryir.Query{}, 0, 0))
}

func TestExecuteReplace(t *testing.T) {
	c := setupCollection(t, 3)
	seed(t, c,
		repository.Record{"id": 1, "name": "ann", "age": 31},
		repository.Record{"id": 2, "name": "bob", "age": 17},
	)

	n, err := c.ExecuteReplace(context.Background(), []repository.Record{
		{"id": 1, "name": "ann", "tags": []any{"ops"}},
		{"id": 9, "name": "ghost"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Equal(t, []repository.Record{
		{"id": int64(1), "name": "ann", "tags": []any{"ops"}},
		{"id": int64(2), "name": "bob", "age": int64(17)},
	}, find(t, c, queryir.Query{}, 0, 0))
}

func TestExecuteReplace_RequiresIdentity(t *testing.T) {
	c := setupCollection(t, 1)

	_, err := c.ExecuteReplace(context.Background(), []repository.Record{{"name": "no id"}})
	assert.ErrorContains(t, err, "identity")
}

func TestExecuteFind_OrdersByIdentityAcrossShards(t *testing.T) {
	c := setupCollection(t, 4)
	seed(t, c,
		repository.Record{"id": int64(5)},
		repository.Record{"id": int64(3)},
		repository.Record{"id": int64(9)},
		repository.Record{"id": int64(1)},
	)

	assert.Equal(t, []any{int64(1), int64(3), int64(5), int64(9)}, ids(find(t, c, queryir.Query{}, 0, 0)))
	assert.Equal(t, []any{int64(3), int64(5)}, ids(find(t, c, queryir.Query{}, 2, 1)))
	assert.Empty(t, find(t, c, queryir.Query{}, 2, 10))
}

func TestExecuteFind_SortThenIdentity(t *testing.T) {
	c := setupCollection(t, 3)
	seed(t, c,
		repository.Record{"id": "a", "age": 30},
		repository.Record{"id": "b", "age": 20},
		repository.Record{"id": "c", "age": 30},
		repository.Record{"id": "d"},
	)

	asc := find(t, c, queryir.Query{Sort: []queryir.SortField{{Field: "age", Direction: queryir.Asc}}}, 0, 0)
	assert.Equal(t, []any{"d", "b", "a", "c"}, ids(asc))

	desc := find(t, c, queryir.Query{Sort: []queryir.SortField{{Field: "age", Direction: queryir.Desc}}}, 0, 0)
	assert.Equal(t, []any{"a", "c", "b", "d"}, ids(desc))
}

func TestExecuteFind_Projection(t *testing.T) {
	c := setupCollection(t, 1)
	seed(t, c, repository.Record{"id": "a", "name": "ann", "secret": "x", "address": map[string]any{"city": "Oslo", "zip": "0150"}})

	included := find(t, c, queryir.Query{Projection: queryir.Projection{Include: []string{"name", "address.city"}}}, 0, 0)
	assert.Equal(t, []repository.Record{{"id": "a", "name": "ann", "address": map[string]any{"city": "Oslo"}}}, included)

	excluded := find(t, c, queryir.Query{Projection: queryir.Projection{Exclude: []string{"secret", "address.zip"}}}, 0, 0)
	assert.Equal(t, []repository.Record{{"id": "a", "name": "ann", "address": map[string]any{"city": "Oslo"}}}, excluded)
}

func TestExecuteFind_ResultsAreCopies(t *testing.T) {
	c := setupCollection(t, 1)
	seed(t, c, repository.Record{"id": "a", "tags": []any{"x"}})

	first := find(t, c, queryir.Query{}, 0, 0)
	first[0]["tags"].([]any)[0] = "mutated"

	again := find(t, c, queryir.Query{}, 0, 0)
	assert.Equal(t, []any{"x"}, again[0]["tags"])
}

func TestExecuteCount_PartialPerShard(t *testing.T) {
	c := setupCollection(t, 8)
	seed(t, c, repository.Record{"id": "only", "age": 1})

	compiled, err := c.CompileCount(nil)
	require.NoError(t, err)
	partials, err := c.ExecuteCount(context.Background(), compiled)
	require.NoError(t, err)

	require.Len(t, partials, 8)
	nonNil := 0
	for _, p := range partials {
		if p != nil {
			nonNil++
			assert.Equal(t, int64(1), *p)
		}
	}
	assert.Equal(t, 1, nonNil)
	assert.Equal(t, int64(1), repository.SumPartials(partials))
}

func TestExecuteCount_IsolatesCollections(t *testing.T) {
	s, err := New(2)
	require.NoError(t, err)
	users, err := s.Collection("users", "id")
	require.NoError(t, err)
	orders, err := s.Collection("orders", "id")
	require.NoError(t, err)
	seed(t, users, repository.Record{"id": 1}, repository.Record{"id": 2})
	seed(t, orders, repository.Record{"id": 1})

	compiled, err := orders.CompileCount(nil)
	require.NoError(t, err)
	partials, err := orders.ExecuteCount(context.Background(), compiled)
	require.NoError(t, err)
	assert.Equal(t, int64(1), repository.SumPartials(partials))
}

func TestExecuteUpdate(t *testing.T) {
	c := setupCollection(t, 2)
	seed(t, c,
		repository.Record{"id": "a", "status": "new", "visits": 1},
		repository.Record{"id": "b", "status": "new"},
		repository.Record{"id": "c", "status": "done", "visits": 5},
	)

	m := repository.Mutation{}.
		SetField("status", ir.IRString("seen")).
		IncField("visits", ir.IRInt(2))
	compiled, err := c.CompileUpdate([]queryir.Predicate{queryir.Equals{Field: "status", Value: ir.IRString("new")}}, m)
	require.NoError(t, err)

	n, err := c.ExecuteUpdate(context.Background(), compiled)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all := find(t, c, queryir.Query{}, 0, 0)
	assert.Equal(t, []repository.Record{
		{"id": "a", "status": "seen", "visits": int64(3)},
		{"id": "b", "status": "seen", "visits": int64(2)},
		{"id": "c", "status": "done", "visits": int64(5)},
	}, all)
}

func TestCompileUpdate_RejectsIdentityField(t *testing.T) {
	c := setupCollection(t, 1)
	_, err := c.CompileUpdate(nil, repository.Mutation{}.SetField("id", ir.IRString("x")))
	assert.Error(t, err)
}

func TestExecuteDelete(t *testing.T) {
	c := setupCollection(t, 2)
	seed(t, c, repository.Record{"id": 7}, repository.Record{"id": 8})

	require.NoError(t, c.ExecuteDelete(context.Background(), 7.0))
	require.NoError(t, c.ExecuteDelete(context.Background(), int64(99)))

	assert.Equal(t, []any{int64(8)}, ids(find(t, c, queryir.Query{}, 0, 0)))
}

func TestExecute_HonorsCancellation(t *testing.T) {
	c := setupCollection(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	compiled, err := c.CompileFind(queryir.Query{}, 0, 0)
	require.NoError(t, err)
	_, err = c.ExecuteFind(ctx, compiled)
	assert.ErrorIs(t, err, context.Canceled)
}
