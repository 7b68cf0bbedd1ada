package repository

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/repokit/internal/repoerr"
)

// Mapper converts between stored records and the caller's output type.
type Mapper[T any] interface {
	Decode(Record) (T, error)
	Encode(T) (Record, error)
	Identity(T) (any, error)
}

// RecordMapper is the identity mapper for Record.
type RecordMapper struct {
	IDField string
}

func (RecordMapper) Decode(r Record) (Record, error) { return r, nil }

func (RecordMapper) Encode(r Record) (Record, error) { return r, nil }

func (m RecordMapper) Identity(r Record) (any, error) {
	id, ok := r[m.IDField]
	if !ok || id == nil {
		return nil, repoerr.Validation(m.IDField, "record has no identity")
	}
	return id, nil
}

// JSONMapper maps structs through their JSON encoding. Field names in
// queries are the JSON names.
type JSONMapper[T any] struct {
	IDField string
}

func (m JSONMapper[T]) Decode(r Record) (T, error) {
	var out T
	data, err := json.Marshal(r)
	if err != nil {
		return out, fmt.Errorf("decode record: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode record: %w", err)
	}
	return out, nil
}

func (m JSONMapper[T]) Encode(v T) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode entity: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("encode entity: %w", err)
	}
	return Record(normalizeNumbers(raw).(map[string]any)), nil
}

func (m JSONMapper[T]) Identity(v T) (any, error) {
	r, err := m.Encode(v)
	if err != nil {
		return nil, err
	}
	return RecordMapper(m).Identity(r)
}

// normalizeNumbers replaces json.Number with int64 where integral, float64
// otherwise.
func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, elem := range val {
			val[k] = normalizeNumbers(elem)
		}
		return val
	case []any:
		for i, elem := range val {
			val[i] = normalizeNumbers(elem)
		}
		return val
	default:
		return v
	}
}
