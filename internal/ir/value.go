package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf16"
)

// IRValue is an operand or stored value. The set is closed: IRNull,
// IRString, IRInt, IRFloat, IRBool, IRArray and IRObject.
type IRValue interface {
	irValue()
}

// IRNull is an explicit null. It compares only through existence
// predicates and never appears in canonical JSON.
type IRNull struct{}

func (IRNull) irValue() {}

type IRString string

func (IRString) irValue() {}

type IRInt int64

func (IRInt) irValue() {}

// IRFloat is always finite; NaN and infinities are rejected on the way in.
type IRFloat float64

func (IRFloat) irValue() {}

type IRBool bool

func (IRBool) irValue() {}

type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject is a nested document. Iterate with SortedKeys for a stable order.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// IRPair is one member of an object under construction.
type IRPair struct {
	Key   string
	Value IRValue
}

// O builds an IRPair.
func O(key string, value IRValue) IRPair {
	return IRPair{Key: key, Value: value}
}

// NewIRObjectFromPairs builds an object; later pairs win on duplicate keys.
func NewIRObjectFromPairs(pairs ...IRPair) IRObject {
	obj := make(IRObject, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// SortedKeys returns the keys ordered by UTF-16 code units, which differs
// from byte order for characters outside the BMP.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
	})
	return keys
}

// UnmarshalIRValue decodes JSON text. Integral numbers that fit in int64
// become IRInt, other numbers IRFloat. Null is rejected at any depth, the
// same as MarshalCanonical, so stored documents round-trip exactly.
func UnmarshalIRValue(data []byte) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return decoded(raw)
}

func decoded(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is not a storable value")
	case bool:
		return IRBool(val), nil
	case string:
		return IRString(val), nil
	case json.Number:
		return number(val)
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			e, err := decoded(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			e, err := decoded(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = e
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func number(n json.Number) (IRValue, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return IRInt(i), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number %q", s)
	}
	return IRFloat(f), nil
}
