package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repokit/internal/repository"
)

func TestNormalizeRecord_NestedValuesBecomeCanonicalJSON(t *testing.T) {
	plain, err := plainRecord(repository.Record{
		"n":    int32(3),
		"tags": []string{"b", "a"},
		"meta": map[string]any{"z": 1, "a": "x"},
	})
	require.NoError(t, err)

	row, err := normalizeRecord(plain)
	require.NoError(t, err)

	assert.Equal(t, int64(3), row["n"])
	assert.Equal(t, `["b","a"]`, row["tags"])
	assert.Equal(t, `{"a":"x","z":1}`, row["meta"])
}

func TestPlainRecord_RejectsUnsupportedValues(t *testing.T) {
	_, err := plainRecord(repository.Record{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestDecodeColumn(t *testing.T) {
	tests := []struct {
		name     string
		declType string
		in       any
		want     any
	}{
		{"bytes become text", "", []byte("abc"), "abc"},
		{"boolean from integer", "BOOLEAN", int64(1), true},
		{"boolean lower case", "bool", int64(0), false},
		{"json array", "JSON", `[1,"x"]`, []any{int64(1), "x"}},
		{"json object", "json", `{"a":true}`, map[string]any{"a": true}},
		{"null json", "JSON", nil, nil},
		{"untyped passthrough", "", 2.5, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeColumn(tt.declType, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeColumn_InvalidJSON(t *testing.T) {
	_, err := decodeColumn("JSON", "{not json")
	assert.Error(t, err)
}
