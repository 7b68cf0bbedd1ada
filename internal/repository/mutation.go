package repository

import (
	"github.com/roach88/repokit/internal/ir"
	"github.com/roach88/repokit/internal/repoerr"
)

// Assignment pairs a field with an operand.
type Assignment struct {
	Field string
	Value ir.IRValue
}

// Mutation describes an update: Set assigns values, Inc adds numeric deltas.
// Assignments apply in order.
type Mutation struct {
	Set []Assignment
	Inc []Assignment
}

// SetField returns a copy of m that also assigns value to field.
func (m Mutation) SetField(field string, value ir.IRValue) Mutation {
	m.Set = append(m.Set[:len(m.Set):len(m.Set)], Assignment{Field: field, Value: value})
	return m
}

// IncField returns a copy of m that also adds delta to field.
func (m Mutation) IncField(field string, delta ir.IRValue) Mutation {
	m.Inc = append(m.Inc[:len(m.Inc):len(m.Inc)], Assignment{Field: field, Value: delta})
	return m
}

// Validate rejects empty mutations, empty field names, null set values and
// non-numeric deltas. A field may be assigned only once across Set and Inc.
func (m Mutation) Validate() error {
	if len(m.Set) == 0 && len(m.Inc) == 0 {
		return repoerr.Validation("", "mutation has no assignments")
	}
	seen := make(map[string]bool, len(m.Set)+len(m.Inc))
	check := func(a Assignment) error {
		if a.Field == "" {
			return repoerr.Validation("", "mutation field must not be empty")
		}
		if seen[a.Field] {
			return repoerr.Validation(a.Field, "field assigned more than once")
		}
		seen[a.Field] = true
		return nil
	}
	for _, a := range m.Set {
		if err := check(a); err != nil {
			return err
		}
		switch a.Value.(type) {
		case ir.IRString, ir.IRInt, ir.IRFloat, ir.IRBool:
		default:
			return repoerr.Validation(a.Field, "set value must be a string, number or bool, got %T", a.Value)
		}
	}
	for _, a := range m.Inc {
		if err := check(a); err != nil {
			return err
		}
		switch a.Value.(type) {
		case ir.IRInt, ir.IRFloat:
		default:
			return repoerr.Validation(a.Field, "increment must be numeric, got %T", a.Value)
		}
	}
	return nil
}
