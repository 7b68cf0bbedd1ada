package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"string", IRString("ann"), `"ann"`},
		{"empty string", "", `""`},
		{"int", IRInt(-31), "-31"},
		{"min int64", IRInt(math.MinInt64), "-9223372036854775808"},
		{"go int", 42, "42"},
		{"bool", IRBool(false), "false"},
		{"empty array", IRArray{}, "[]"},
		{"empty object", IRObject{}, "{}"},
		{"keys sorted", IRObject{"size": IRInt(10), "index": IRInt(0)}, `{"index":0,"size":10}`},
		{"nested keys sorted", map[string]any{
			"op":    "and",
			"preds": []any{map[string]any{"value": 18, "op": "gte", "field": "age"}},
		}, `{"op":"and","preds":[{"field":"age","op":"gte","value":18}]}`},
		{"typed slice", []string{"admin", "ops"}, `["admin","ops"]`},
		{"html not escaped", IRString("<a href='x'>&</a>"), `"<a href='x'>&</a>"`},
		{"control escaped", IRString("a\tb\x01"), `"a\tb\u0001"`},
		{"quote and backslash", IRString(`say "hi" \ bye`), `"say \"hi\" \\ bye"`},
		{"line separators literal", IRString("a\u2028b\u2029c"), "\"a\u2028b\u2029c\""},
		{"backslash-u2028 text kept", IRString(`\u2028`), `"\\u2028"`},
		{"mixed literal and separator", IRString("\\u2028 \u2028"), "\"\\\\u2028 \u2028\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonicalFloats(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{3.14, "3.14"},
		{2, "2"},
		{-0.5, "-0.5"},
		{0.000001, "0.000001"},
		{1e-7, "1e-7"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{1.5e300, "1.5e+300"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := MarshalCanonical(IRFloat(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}

	got, err := MarshalCanonical(float32(0.5))
	require.NoError(t, err)
	assert.Equal(t, "0.5", string(got))
}

func TestMarshalCanonicalRejects(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, "null"},
		{"IRNull", IRNull{}, "null"},
		{"null inside record", map[string]any{"email": nil}, "null"},
		{"infinity", IRFloat(math.Inf(-1)), "non-finite"},
		{"nan", math.NaN(), "non-finite"},
		{"channel", make(chan int), "unsupported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalCanonical(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMarshalCanonicalNFC(t *testing.T) {
	composed, decomposed := "caf\u00e9", "cafe\u0301"

	a, err := MarshalCanonical(IRObject{composed: IRString(composed)})
	require.NoError(t, err)
	b, err := MarshalCanonical(IRObject{decomposed: IRString(decomposed)})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestMarshalCanonicalStableAcrossMapOrder(t *testing.T) {
	record := func() map[string]any {
		return map[string]any{"id": 5, "name": "eve", "age": 52, "tags": []any{"admin", "ops"}, "deleted": false}
	}
	first, err := MarshalCanonical(record())
	require.NoError(t, err)
	for range 20 {
		again, err := MarshalCanonical(record())
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
	assert.Equal(t, `{"age":52,"deleted":false,"id":5,"name":"eve","tags":["admin","ops"]}`, string(first))
}

func FuzzMarshalCanonicalIdempotent(f *testing.F) {
	f.Add(`{"field":"age","op":"gte","value":18}`)
	f.Add(`{"op":"or","preds":[{"field":"name","op":"eq","value":"ann"}]}`)
	f.Add(`[1,2.5,"x",true]`)
	f.Add(`"café"`)
	f.Add(`1e21`)

	f.Fuzz(func(t *testing.T, input string) {
		v, err := UnmarshalIRValue([]byte(input))
		if err != nil {
			t.Skip()
		}
		first, err := MarshalCanonical(v)
		if err != nil {
			t.Skip()
		}
		v2, err := UnmarshalIRValue(first)
		require.NoError(t, err)
		second, err := MarshalCanonical(v2)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}
