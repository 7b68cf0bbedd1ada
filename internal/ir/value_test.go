package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortedKeys(t *testing.T) {
	obj := IRObject{"zebra": IRInt(1), "apple": IRInt(2), "Apple": IRInt(3), "app": IRInt(4)}
	assert.Equal(t, []string{"Apple", "app", "apple", "zebra"}, obj.SortedKeys())

	// U+10000 is the surrogate pair D800 DC00, which sorts before U+E000.
	obj = IRObject{"\ue000": IRInt(1), "\U00010000": IRInt(2)}
	assert.Equal(t, []string{"\U00010000", "\ue000"}, obj.SortedKeys())
}

func TestNewIRObjectFromPairs(t *testing.T) {
	obj := NewIRObjectFromPairs(O("op", IRString("eq")), O("value", IRInt(5)), O("value", IRInt(6)))
	assert.Equal(t, IRObject{"op": IRString("eq"), "value": IRInt(6)}, obj)
}

func TestUnmarshalIRValue(t *testing.T) {
	tests := []struct {
		input string
		want  IRValue
	}{
		{`42`, IRInt(42)},
		{`-7`, IRInt(-7)},
		{`3.25`, IRFloat(3.25)},
		{`1e3`, IRFloat(1000)},
		{`92233720368547758070`, IRFloat(92233720368547758070)},
		{`"28"`, IRString("28")},
		{`["admin",{"level":2}]`, IRArray{IRString("admin"), IRObject{"level": IRInt(2)}}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := UnmarshalIRValue([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalIRValueRejects(t *testing.T) {
	for _, input := range []string{`null`, `{"email":null}`, `[1,null]`, `{"a":1} {"b":2}`, `{`} {
		t.Run(input, func(t *testing.T) {
			_, err := UnmarshalIRValue([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestCanonicalRoundTrip(t *testing.T) {
	stored := IRObject{
		"tags":    IRArray{IRString("admin"), IRString("ops")},
		"address": IRObject{"city": IRString("Oslo"), "zip": IRInt(150)},
		"score":   IRFloat(0.1),
	}
	data, err := MarshalCanonical(stored)
	require.NoError(t, err)

	got, err := UnmarshalIRValue(data)
	require.NoError(t, err)
	assert.Equal(t, stored, got)
}
