package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repokit/internal/ir"
	"github.com/roach88/repokit/internal/queryir"
	"github.com/roach88/repokit/internal/repoerr"
	"github.com/roach88/repokit/internal/repository"
)

func users() Compiler {
	return Compiler{Table: "users", IDField: "id", Columns: []string{"id", "name", "age", "password"}}
}

func TestPredicate_Leaves(t *testing.T) {
	tests := []struct {
		name     string
		pred     queryir.Predicate
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "equals text",
			pred:     queryir.Equals{Field: "status", Value: ir.IRString("active")},
			wantSQL:  `(typeof("status") = 'text' AND "status" = ?)`,
			wantArgs: []any{"active"},
		},
		{
			name:     "equals bool binds numeric",
			pred:     queryir.Equals{Field: "deleted", Value: ir.IRBool(false)},
			wantSQL:  `(typeof("deleted") IN ('integer','real') AND "deleted" = ?)`,
			wantArgs: []any{false},
		},
		{
			name:     "not equals",
			pred:     queryir.NotEquals{Field: "age", Value: ir.IRInt(3)},
			wantSQL:  `(NOT (typeof("age") IN ('integer','real') AND "age" = ?))`,
			wantArgs: []any{int64(3)},
		},
		{
			name:     "in single kind",
			pred:     queryir.In{Field: "tag", Values: []ir.IRValue{ir.IRString("a"), ir.IRString("b")}},
			wantSQL:  `(typeof("tag") = 'text' AND "tag" IN (?,?))`,
			wantArgs: []any{"a", "b"},
		},
		{
			name:    "empty in",
			pred:    queryir.In{Field: "tag"},
			wantSQL: `(1=0)`,
		},
		{
			name:    "empty not in",
			pred:    queryir.NotIn{Field: "tag"},
			wantSQL: `(NOT (1=0))`,
		},
		{
			name:     "regex",
			pred:     queryir.Regex{Field: "name", Pattern: "^a"},
			wantSQL:  `("name" REGEXP ?)`,
			wantArgs: []any{"^a"},
		},
		{
			name:     "compare",
			pred:     queryir.Compare{Field: "age", Op: queryir.OpGte, Value: ir.IRFloat(1.5)},
			wantSQL:  `(typeof("age") IN ('integer','real') AND "age" >= ?)`,
			wantArgs: []any{1.5},
		},
		{
			name:    "exists",
			pred:    queryir.Exists{Field: "email", Exists: true},
			wantSQL: `("email" IS NOT NULL)`,
		},
		{
			name:    "not exists",
			pred:    queryir.Exists{Field: "email"},
			wantSQL: `("email" IS NULL)`,
		},
		{
			name:    "quoted identifier",
			pred:    queryir.Exists{Field: `we"ird`, Exists: true},
			wantSQL: `("we""ird" IS NOT NULL)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Predicate(tt.pred)
			require.NoError(t, err)
			sql, args, err := s.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			if len(tt.wantArgs) == 0 {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestPredicate_MixedKindIn(t *testing.T) {
	s, err := Predicate(queryir.In{Field: "tag", Values: []ir.IRValue{ir.IRString("a"), ir.IRInt(1)}})
	require.NoError(t, err)

	sql, args, err := s.ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		`((typeof("tag") = 'text' AND "tag" IN (?)) OR (typeof("tag") IN ('integer','real') AND "tag" IN (?)))`,
		sql)
	assert.Equal(t, []any{"a", int64(1)}, args)
}

func TestPredicate_Composites(t *testing.T) {
	nor := queryir.Nor{Predicates: []queryir.Predicate{
		queryir.Exists{Field: "a", Exists: true},
		queryir.Not{Predicate: queryir.Exists{Field: "b"}},
	}}

	s, err := Predicate(nor)
	require.NoError(t, err)
	sql, _, err := s.ToSql()
	require.NoError(t, err)
	assert.Equal(t, `(NOT (("a" IS NOT NULL) OR (NOT ("b" IS NULL))))`, sql)
}

func TestPredicate_Rejects(t *testing.T) {
	_, err := Predicate(queryir.Equals{Field: "address.city", Value: ir.IRString("x")})
	assert.True(t, repoerr.IsValidation(err))

	_, err = Predicate(queryir.Range{Field: "age", Lo: ir.IRInt(1), Hi: ir.IRInt(2)})
	assert.ErrorContains(t, err, "unsupported predicate type")

	_, err = Predicate(queryir.Compare{Field: "age", Op: "between", Value: ir.IRInt(1)})
	assert.ErrorContains(t, err, "unknown comparison operator")
}

func TestFilter_Empty(t *testing.T) {
	s, err := Filter(nil)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestFind(t *testing.T) {
	q, err := queryir.NewBuilder().
		Is("status", "active").
		Sort(queryir.SortField{Field: "age", Direction: queryir.Desc}).
		Build()
	require.NoError(t, err)

	st, err := users().Find(q, 10, 20)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT * FROM "users" WHERE (typeof("status") = 'text' AND "status" = ?) ORDER BY "age" DESC, "id" ASC LIMIT 10 OFFSET 20`,
		st.SQL)
	assert.Equal(t, []any{"active"}, st.Args)
	assert.NotContains(t, st.SQL, "active")
}

func TestFind_AlwaysOrdersByIdentity(t *testing.T) {
	st, err := users().Find(queryir.Query{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users" ORDER BY "id" ASC`, st.SQL)
}

func TestFind_OffsetWithoutLimit(t *testing.T) {
	st, err := users().Find(queryir.Query{}, 0, 5)
	require.NoError(t, err)
	assert.Contains(t, st.SQL, "LIMIT -1 OFFSET ?")
	assert.Equal(t, []any{int64(5)}, st.Args)
}

func TestFind_Projection(t *testing.T) {
	include, err := queryir.NewBuilder().Include("name", "name").Build()
	require.NoError(t, err)
	st, err := users().Find(include, 0, 0)
	require.NoError(t, err)
	assert.Contains(t, st.SQL, `SELECT "id", "name" FROM`)

	exclude, err := queryir.NewBuilder().Exclude("password").Build()
	require.NoError(t, err)
	st, err = users().Find(exclude, 0, 0)
	require.NoError(t, err)
	assert.Contains(t, st.SQL, `SELECT "id", "name", "age" FROM`)

	_, err = Compiler{Table: "t", IDField: "id"}.Find(exclude, 0, 0)
	assert.ErrorContains(t, err, "column list unknown")

	everything, err := queryir.NewBuilder().Exclude("id", "name", "age", "password").Build()
	require.NoError(t, err)
	_, err = users().Find(everything, 0, 0)
	assert.True(t, repoerr.IsValidation(err))
}

func TestCount(t *testing.T) {
	st, err := users().Count([]queryir.Predicate{
		queryir.Exists{Field: "email", Exists: true},
		queryir.Compare{Field: "age", Op: queryir.OpLt, Value: ir.IRInt(30)},
	})
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT COUNT(*) FROM "users" WHERE (("email" IS NOT NULL) AND (typeof("age") IN ('integer','real') AND "age" < ?))`,
		st.SQL)
	assert.Equal(t, []any{int64(30)}, st.Args)
}

func TestUpdate(t *testing.T) {
	m := repository.Mutation{}.
		SetField("name", ir.IRString("ann")).
		IncField("visits", ir.IRInt(1))

	st, err := users().Update([]queryir.Predicate{queryir.Equals{Field: "id", Value: ir.IRInt(7)}}, m)
	require.NoError(t, err)

	assert.Equal(t,
		`UPDATE "users" SET "name" = ?, "visits" = COALESCE("visits", 0) + ? WHERE (typeof("id") IN ('integer','real') AND "id" = ?)`,
		st.SQL)
	assert.Equal(t, []any{"ann", int64(1), int64(7)}, st.Args)
}

func TestUpdate_RejectsIdentity(t *testing.T) {
	_, err := users().Update(nil, repository.Mutation{}.SetField("id", ir.IRInt(1)))
	assert.True(t, repoerr.IsValidation(err))
}

func TestDelete(t *testing.T) {
	st, err := users().Delete("k1")
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "users" WHERE "id" = ?`, st.SQL)
	assert.Equal(t, []any{"k1"}, st.Args)
}

func TestInsert(t *testing.T) {
	st, err := users().Insert(map[string]any{"name": "ann", "id": int64(1), "age": int64(31)})
	require.NoError(t, err)

	assert.Contains(t, st.SQL, `INSERT INTO "users"`)
	assert.Contains(t, st.SQL, `RETURNING "id"`)
	assert.Equal(t, []any{int64(31), int64(1), "ann"}, st.Args)

	_, err = users().Insert(map[string]any{})
	assert.True(t, repoerr.IsValidation(err))
}

func TestReplace(t *testing.T) {
	st, err := users().Replace(map[string]any{"id": int64(7), "name": "ann", "age": int64(31)})
	require.NoError(t, err)

	assert.Equal(t, `UPDATE "users" SET "name" = ?, "age" = ?, "password" = ? WHERE "id" = ?`, st.SQL)
	assert.Equal(t, []any{"ann", int64(31), nil, int64(7)}, st.Args)
}

func TestReplace_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		record map[string]any
	}{
		{"no identity", map[string]any{"name": "ann"}},
		{"null identity", map[string]any{"id": nil, "name": "ann"}},
		{"unknown column", map[string]any{"id": int64(1), "email": "a@example.com"}},
		{"nested path", map[string]any{"id": int64(1), "address.city": "Oslo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := users().Replace(tt.record)
			assert.True(t, repoerr.IsValidation(err))
		})
	}
}
