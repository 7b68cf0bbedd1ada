package queryir

import (
	"fmt"
	"slices"

	"github.com/roach88/repokit/internal/ir"
	"github.com/roach88/repokit/internal/repoerr"
)

// Builder accumulates a query descriptor fluently.
//
// Builder is a value type: every method returns a new Builder that shares
// nothing mutable with its receiver. The zero value is an empty builder.
//
//	q, err := queryir.NewBuilder().
//		Is("status", "active").
//		Gte("age", 18).
//		Or(queryir.Cond().Is("role", "admin"), queryir.Cond().Like("name", "ann")).
//		Sort(queryir.SortField{Field: "age", Direction: queryir.Desc}).
//		Page(0, 20).
//		Build()
type Builder struct {
	preds   []Predicate
	include []string
	exclude []string
	sort    []SortField
	page    *PageRequest
	err     error
}

// NewBuilder returns an empty builder.
func NewBuilder() Builder {
	return Builder{}
}

// Cond returns an empty builder for composing Or/Nor branches.
func Cond() Builder {
	return Builder{}
}

// with appends a predicate without disturbing the receiver's backing array.
func (b Builder) with(p Predicate) Builder {
	b.preds = append(slices.Clip(b.preds), p)
	return b
}

// fail records the first conversion error.
func (b Builder) fail(field string, err error) Builder {
	if b.err == nil {
		b.err = repoerr.Validation(field, "invalid operand: %v", err)
	}
	return b
}

// Is adds field = value.
func (b Builder) Is(field string, value any) Builder {
	v, err := ir.FromGo(value)
	if err != nil {
		return b.fail(field, err)
	}
	return b.with(Equals{Field: field, Value: v})
}

// NotEquals adds field <> value. Records without the field also match.
func (b Builder) NotEquals(field string, value any) Builder {
	v, err := ir.FromGo(value)
	if err != nil {
		return b.fail(field, err)
	}
	return b.with(NotEquals{Field: field, Value: v})
}

// In adds a membership test. A single slice argument is expanded.
func (b Builder) In(field string, values ...any) Builder {
	vs, err := operandList(values)
	if err != nil {
		return b.fail(field, err)
	}
	return b.with(In{Field: field, Values: vs})
}

// NotIn adds a negated membership test. A single slice argument is expanded.
func (b Builder) NotIn(field string, values ...any) Builder {
	vs, err := operandList(values)
	if err != nil {
		return b.fail(field, err)
	}
	return b.with(NotIn{Field: field, Values: vs})
}

// Regex adds an unanchored regular expression match.
func (b Builder) Regex(field, pattern string) Builder {
	return b.with(Regex{Field: field, Pattern: pattern})
}

// Like matches values containing value: ".*value.*".
func (b Builder) Like(field, value string) Builder {
	return b.Regex(field, ".*"+value+".*")
}

// LeftLike matches ".*value".
func (b Builder) LeftLike(field, value string) Builder {
	return b.Regex(field, ".*"+value)
}

// RightLike matches "value.*".
func (b Builder) RightLike(field, value string) Builder {
	return b.Regex(field, value+".*")
}

func (b Builder) compare(field string, op CompareOp, value any) Builder {
	v, err := ir.FromGo(value)
	if err != nil {
		return b.fail(field, err)
	}
	return b.with(Compare{Field: field, Op: op, Value: v})
}

// Gt adds field > value.
func (b Builder) Gt(field string, value any) Builder { return b.compare(field, OpGt, value) }

// Gte adds field >= value.
func (b Builder) Gte(field string, value any) Builder { return b.compare(field, OpGte, value) }

// Lt adds field < value.
func (b Builder) Lt(field string, value any) Builder { return b.compare(field, OpLt, value) }

// Lte adds field <= value.
func (b Builder) Lte(field string, value any) Builder { return b.compare(field, OpLte, value) }

// Between adds lo <= field <= hi.
func (b Builder) Between(field string, lo, hi any) Builder {
	l, err := ir.FromGo(lo)
	if err != nil {
		return b.fail(field, err)
	}
	h, err := ir.FromGo(hi)
	if err != nil {
		return b.fail(field, err)
	}
	return b.with(Range{Field: field, Lo: l, Hi: h})
}

// Exists adds a presence (exists=true) or absence (exists=false) test.
func (b Builder) Exists(field string, exists bool) Builder {
	return b.with(Exists{Field: field, Exists: exists})
}

// Not adds NOT (field = true).
func (b Builder) Not(field string) Builder {
	return b.with(Not{Predicate: Equals{Field: field, Value: ir.IRBool(true)}})
}

// Negate adds NOT p.
func (b Builder) Negate(p Predicate) Builder {
	return b.with(Not{Predicate: p})
}

// Where adds raw predicates to the top-level conjunction.
func (b Builder) Where(preds ...Predicate) Builder {
	for _, p := range preds {
		b = b.with(p)
	}
	return b
}

// And adds each branch's conditions to the top-level conjunction.
func (b Builder) And(branches ...Builder) Builder {
	for _, br := range branches {
		if br.err != nil {
			return b.propagate(br.err)
		}
		b = b.Where(br.preds...)
	}
	return b
}

// Or adds a disjunction with one child per branch. A branch holding several
// conditions contributes their conjunction; a branch with none makes Build
// fail with VALIDATION.
func (b Builder) Or(branches ...Builder) Builder {
	children, err := branchPredicates("or", branches)
	if err != nil {
		return b.propagate(err)
	}
	return b.with(Or{Predicates: children})
}

// Nor adds a negated disjunction with one child per branch.
func (b Builder) Nor(branches ...Builder) Builder {
	children, err := branchPredicates("nor", branches)
	if err != nil {
		return b.propagate(err)
	}
	return b.with(Nor{Predicates: children})
}

func (b Builder) propagate(err error) Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Include restricts the returned fields.
func (b Builder) Include(fields ...string) Builder {
	b.include = append(slices.Clip(b.include), fields...)
	return b
}

// Exclude removes fields from the result.
func (b Builder) Exclude(fields ...string) Builder {
	b.exclude = append(slices.Clip(b.exclude), fields...)
	return b
}

// Sort appends sort keys. Earlier keys take precedence.
func (b Builder) Sort(fields ...SortField) Builder {
	b.sort = append(slices.Clip(b.sort), fields...)
	return b
}

// Page sets the page request. Index is zero-based.
func (b Builder) Page(index, size int) Builder {
	b.page = NewPageRequest(index, size)
	return b
}

// Build produces the immutable query descriptor.
//
// Returns a VALIDATION error if any operand failed conversion or the
// assembled query fails Validate.
func (b Builder) Build() (Query, error) {
	if b.err != nil {
		return Query{}, b.err
	}
	q := Query{
		Filter: slices.Clone(b.preds),
		Projection: Projection{
			Include: slices.Clone(b.include),
			Exclude: slices.Clone(b.exclude),
		},
		Sort: slices.Clone(b.sort),
	}
	if b.page != nil {
		p := *b.page
		q.Page = &p
	}
	if err := Validate(q); err != nil {
		return Query{}, err
	}
	return q, nil
}

// Predicates returns a copy of the accumulated conditions.
func (b Builder) Predicates() []Predicate {
	return slices.Clone(b.preds)
}

// branchPredicates turns each branch into one child. A branch without
// conditions is rejected.
func branchPredicates(op string, branches []Builder) ([]Predicate, error) {
	children := make([]Predicate, 0, len(branches))
	for i, br := range branches {
		if br.err != nil {
			return nil, br.err
		}
		c := Conjunction(br.preds)
		if c == nil {
			return nil, repoerr.Validation("", "%s branch %d has no conditions", op, i)
		}
		children = append(children, c)
	}
	return children, nil
}

// operandList converts variadic operands, expanding a lone slice argument.
func operandList(values []any) ([]ir.IRValue, error) {
	if len(values) == 1 {
		v, err := ir.FromGo(values[0])
		if err != nil {
			return nil, err
		}
		if arr, ok := v.(ir.IRArray); ok {
			return []ir.IRValue(arr), nil
		}
		return []ir.IRValue{v}, nil
	}
	out := make([]ir.IRValue, len(values))
	for i, raw := range values {
		v, err := ir.FromGo(raw)
		if err != nil {
			return nil, fmt.Errorf("values[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
