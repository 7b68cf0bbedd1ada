package store

import (
	"fmt"
	"strings"

	"github.com/roach88/repokit/internal/ir"
	"github.com/roach88/repokit/internal/repository"
)

// plainRecord returns a copy of r holding only string, int64, float64,
// bool, nil, []any and map[string]any values.
func plainRecord(r repository.Record) (repository.Record, error) {
	v, err := ir.FromGo(map[string]any(r))
	if err != nil {
		return nil, err
	}
	return repository.Record(ir.ToGo(v).(map[string]any)), nil
}

// normalizeRecord converts a plain record to driver values. Nested arrays
// and objects become canonical JSON TEXT so equal values are stored
// byte-identically.
func normalizeRecord(r repository.Record) (map[string]any, error) {
	out := make(map[string]any, len(r))
	for k, v := range r {
		switch v.(type) {
		case []any, map[string]any:
			data, err := ir.MarshalCanonical(v)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", k, err)
			}
			out[k] = string(data)
		default:
			out[k] = v
		}
	}
	return out, nil
}

// decodeColumn maps a scanned driver value back to a record value using the
// column's declared type.
func decodeColumn(declType string, v any) (any, error) {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	switch strings.ToUpper(declType) {
	case "BOOLEAN", "BOOL":
		if n, ok := v.(int64); ok {
			return n != 0, nil
		}
	case "JSON":
		s, ok := v.(string)
		if !ok {
			break
		}
		val, err := ir.UnmarshalIRValue([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("unmarshal json column: %w", err)
		}
		return ir.ToGo(val), nil
	}
	return v, nil
}
