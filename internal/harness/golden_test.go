package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repokit/internal/repository"
)

func TestSnapshot_DropsNullFields(t *testing.T) {
	r := NewResult("snap", SQLite)
	r.Records = []repository.Record{
		{"id": int64(2), "email": nil, "name": "bob"},
		{"id": int64(1), "tags": []any{"a"}},
	}
	r.Total = 7

	data, err := r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t,
		`{"records":[{"id":2,"name":"bob"},{"id":1,"tags":["a"]}],"scenario":"snap","total":7}`,
		string(data))
}

func TestSnapshot_Error(t *testing.T) {
	r := NewResult("snap", Memory)
	r.ErrorCode = "VALIDATION"

	data, err := r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, `{"error":"VALIDATION","scenario":"snap"}`, string(data))
}

func TestSnapshot_SameAcrossBackends(t *testing.T) {
	a := NewResult("same", Memory)
	b := NewResult("same", SQLite)
	a.Records = []repository.Record{{"id": int64(1), "name": "ann"}}
	b.Records = []repository.Record{{"id": int64(1), "name": "ann", "email": nil}}

	sa, err := a.Snapshot()
	require.NoError(t, err)
	sb, err := b.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, sa, sb)
}
