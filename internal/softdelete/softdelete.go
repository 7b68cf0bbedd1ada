// Package softdelete implements the soft-delete overlay: a fixed policy that
// restricts every generated filter to records not marked deleted.
package softdelete

import (
	"github.com/roach88/repokit/internal/ir"
	"github.com/roach88/repokit/internal/queryir"
)

// DefaultField is the field consulted when a policy names none.
const DefaultField = "deleted"

// Policy is the immutable soft-delete configuration of one executor.
type Policy struct {
	Enabled         bool
	Field           string
	NotDeletedValue ir.IRValue
}

// Default returns the enabled policy on field "deleted" with sentinel false.
func Default() Policy {
	return Policy{Enabled: true, Field: DefaultField, NotDeletedValue: ir.IRBool(false)}
}

// Disabled returns a policy that never rewrites filters.
func Disabled() Policy {
	return Policy{}
}

// Restriction returns the predicate the overlay adds: Field = NotDeletedValue.
func (p Policy) Restriction() queryir.Predicate {
	return queryir.Equals{Field: p.field(), Value: p.sentinel()}
}

// Apply returns filter with the overlay ANDed in. The overlay is skipped when
// the policy is disabled or any predicate, at any depth, already tests the
// soft-delete field. The input slice is never modified.
func (p Policy) Apply(filter []queryir.Predicate) []queryir.Predicate {
	out := make([]queryir.Predicate, len(filter), len(filter)+1)
	copy(out, filter)
	if !p.Enabled || queryir.References(filter, p.field()) {
		return out
	}
	return append(out, p.Restriction())
}

// ApplyQuery returns a copy of q with the overlay applied to its filter.
func (p Policy) ApplyQuery(q queryir.Query) queryir.Query {
	q.Filter = p.Apply(q.Filter)
	return q
}

func (p Policy) field() string {
	if p.Field == "" {
		return DefaultField
	}
	return p.Field
}

func (p Policy) sentinel() ir.IRValue {
	if p.NotDeletedValue == nil {
		return ir.IRBool(false)
	}
	return p.NotDeletedValue
}
