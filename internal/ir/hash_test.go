package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	a, err := MarshalCanonical(IRObject{"op": IRString("eq"), "field": IRString("age"), "value": IRInt(30)})
	require.NoError(t, err)
	b, err := MarshalCanonical(map[string]any{"value": 30, "field": "age", "op": "eq"})
	require.NoError(t, err)

	fa := Fingerprint(DomainQuery, a)
	assert.Equal(t, fa, Fingerprint(DomainQuery, b))
	assert.Len(t, fa, 64)
	assert.NotEqual(t, fa, Fingerprint("other/v1", a))
}
