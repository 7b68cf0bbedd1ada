package docstore

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/roach88/repokit/internal/ir"
	"github.com/roach88/repokit/internal/repository"
)

// document is one stored record. key is the canonical JSON of the identity
// value so that 42 and 42.0 address the same document.
type document struct {
	collection string
	key        string
	body       map[string]any
}

type sequence struct {
	name  string
	value int64
}

// identityKey returns the canonical text of an identity value.
func identityKey(id any) (string, error) {
	v, err := ir.FromGo(id)
	if err != nil {
		return "", fmt.Errorf("identity: %w", err)
	}
	switch v.(type) {
	case ir.IRString, ir.IRInt, ir.IRFloat, ir.IRBool:
	default:
		return "", fmt.Errorf("identity must be a scalar, got %T", id)
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("identity: %w", err)
	}
	return string(data), nil
}

// normalize converts a record to the stored value set: string, int64,
// float64, bool, nil, []any and map[string]any. The result shares nothing
// with the input.
func normalize(r repository.Record) (map[string]any, error) {
	v, err := ir.FromGo(map[string]any(r))
	if err != nil {
		return nil, err
	}
	return ir.ToGo(v).(map[string]any), nil
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = copyValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = copyValue(elem)
		}
		return out
	default:
		return v
	}
}

// lookup resolves a dotted path. Absent and null both report ok=false.
func lookup(body map[string]any, path string) (any, bool) {
	var cur any = body
	for part := range strings.SplitSeq(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

// assign sets a dotted path, creating intermediate objects.
func assign(body map[string]any, path string, v any) {
	parts := strings.Split(path, ".")
	cur := body
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

// remove deletes a dotted path if present.
func remove(body map[string]any, path string) {
	parts := strings.Split(path, ".")
	cur := body
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}

// Value classes follow SQLite's cross-type ordering so that both engines
// sort mixed columns identically: NULL < numeric < text < everything else.
const (
	classNull = iota
	classNumeric
	classText
	classOther
)

func class(v any) int {
	switch v.(type) {
	case nil:
		return classNull
	case int64, float64, bool:
		return classNumeric
	case string:
		return classText
	default:
		return classOther
	}
}

func numeric(v any) (i int64, f float64, isInt bool) {
	switch val := v.(type) {
	case int64:
		return val, float64(val), true
	case float64:
		return 0, val, false
	case bool:
		if val {
			return 1, 1, true
		}
		return 0, 0, true
	}
	return 0, 0, false
}

// compareValues is a total order over stored values.
func compareValues(a, b any) int {
	ca, cb := class(a), class(b)
	if ca != cb {
		return cmp.Compare(ca, cb)
	}
	switch ca {
	case classNumeric:
		ai, af, aInt := numeric(a)
		bi, bf, bInt := numeric(b)
		if aInt && bInt {
			return cmp.Compare(ai, bi)
		}
		return cmp.Compare(af, bf)
	case classText:
		return strings.Compare(a.(string), b.(string))
	default:
		return 0
	}
}

// sameClass reports whether an ordering predicate may compare a with b.
func sameClass(a, b any) bool {
	c := class(a)
	return c == class(b) && (c == classNumeric || c == classText)
}
