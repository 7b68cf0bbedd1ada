package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repokit/internal/ir"
	"github.com/roach88/repokit/internal/queryir"
)

func TestCompilePredicate(t *testing.T) {
	body := map[string]any{
		"name":    "annabel",
		"age":     int64(30),
		"score":   2.5,
		"active":  true,
		"deleted": false,
		"nick":    nil,
		"address": map[string]any{"city": "Oslo"},
	}

	tests := []struct {
		name string
		pred queryir.Predicate
		want bool
	}{
		{"eq string", queryir.Equals{Field: "name", Value: ir.IRString("annabel")}, true},
		{"eq int vs float", queryir.Equals{Field: "age", Value: ir.IRFloat(30)}, true},
		{"eq bool", queryir.Equals{Field: "active", Value: ir.IRBool(true)}, true},
		{"eq kind mismatch", queryir.Equals{Field: "age", Value: ir.IRString("30")}, false},
		{"eq missing", queryir.Equals{Field: "missing", Value: ir.IRInt(1)}, false},
		{"eq nested path", queryir.Equals{Field: "address.city", Value: ir.IRString("Oslo")}, true},
		{"ne differs", queryir.NotEquals{Field: "name", Value: ir.IRString("bob")}, true},
		{"ne same", queryir.NotEquals{Field: "name", Value: ir.IRString("annabel")}, false},
		{"ne absent matches", queryir.NotEquals{Field: "missing", Value: ir.IRInt(1)}, true},
		{"ne null matches", queryir.NotEquals{Field: "nick", Value: ir.IRString("x")}, true},
		{"in hit", queryir.In{Field: "age", Values: []ir.IRValue{ir.IRInt(1), ir.IRInt(30)}}, true},
		{"in empty", queryir.In{Field: "age", Values: []ir.IRValue{}}, false},
		{"nin absent matches", queryir.NotIn{Field: "missing", Values: []ir.IRValue{ir.IRInt(1)}}, true},
		{"nin hit", queryir.NotIn{Field: "age", Values: []ir.IRValue{ir.IRInt(30)}}, false},
		{"regex unanchored", queryir.Regex{Field: "name", Pattern: "nab"}, true},
		{"regex anchored miss", queryir.Regex{Field: "name", Pattern: "^nab"}, false},
		{"regex non-string", queryir.Regex{Field: "age", Pattern: "3"}, false},
		{"gt", queryir.Compare{Field: "age", Op: queryir.OpGt, Value: ir.IRInt(29)}, true},
		{"gte equal", queryir.Compare{Field: "score", Op: queryir.OpGte, Value: ir.IRFloat(2.5)}, true},
		{"lt mixed numeric", queryir.Compare{Field: "score", Op: queryir.OpLt, Value: ir.IRInt(3)}, true},
		{"lte miss", queryir.Compare{Field: "age", Op: queryir.OpLte, Value: ir.IRInt(29)}, false},
		{"compare string", queryir.Compare{Field: "name", Op: queryir.OpGt, Value: ir.IRString("ann")}, true},
		{"compare kind mismatch", queryir.Compare{Field: "name", Op: queryir.OpGt, Value: ir.IRInt(0)}, false},
		{"exists", queryir.Exists{Field: "age", Exists: true}, true},
		{"exists null", queryir.Exists{Field: "nick", Exists: true}, false},
		{"not exists absent", queryir.Exists{Field: "missing", Exists: false}, true},
		{"not", queryir.Not{Predicate: queryir.Equals{Field: "deleted", Value: ir.IRBool(true)}}, true},
		{"not on absent", queryir.Not{Predicate: queryir.Equals{Field: "missing", Value: ir.IRBool(true)}}, true},
		{"and", queryir.And{Predicates: []queryir.Predicate{
			queryir.Exists{Field: "age", Exists: true},
			queryir.Equals{Field: "name", Value: ir.IRString("x")},
		}}, false},
		{"or", queryir.Or{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "name", Value: ir.IRString("x")},
			queryir.Exists{Field: "age", Exists: true},
		}}, true},
		{"nor", queryir.Nor{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "name", Value: ir.IRString("x")},
			queryir.Exists{Field: "age", Exists: true},
		}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := compilePredicate(tt.pred)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m(body))
		})
	}
}

func TestCompilePredicate_RejectsUnlowered(t *testing.T) {
	_, err := compilePredicate(queryir.Range{Field: "a", Lo: ir.IRInt(1), Hi: ir.IRInt(2)})
	assert.Error(t, err)
}

func TestCompileFilter_EmptyMatchesAll(t *testing.T) {
	m, err := compileFilter(nil)
	require.NoError(t, err)
	assert.True(t, m(map[string]any{}))
}

func TestCompareValues_SQLiteOrdering(t *testing.T) {
	ordered := []any{nil, false, int64(1), 1.5, int64(2), "", "a", "b"}
	for i := 0; i < len(ordered)-1; i++ {
		assert.Negative(t, compareValues(ordered[i], ordered[i+1]), "%v < %v", ordered[i], ordered[i+1])
		assert.Positive(t, compareValues(ordered[i+1], ordered[i]))
	}
	assert.Zero(t, compareValues(int64(2), 2.0))
}
