package queryir

import (
	"math"

	"github.com/roach88/repokit/internal/ir"
)

// Predicate represents a filter condition in the QueryIR.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in backend compilers.
//
// Leaf predicates carry a field name and operand value(s):
//   - Equals, NotEquals: field = value, field <> value
//   - In, NotIn: field membership in a value list
//   - Regex: field matches a regular expression (unanchored search)
//   - Compare: field >, >=, <, <= value
//   - Range: lo <= field <= hi (lowered to two Compare nodes by Lower)
//   - Exists: field present (and non-null) or absent
//
// Composite predicates carry ordered children:
//   - And, Or, Nor: conjunction, disjunction, negated disjunction
//   - Not: negation of exactly one child
//
// Predicates are plain values. Backends switch on the value types; pointer
// forms are not part of the model.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Equals represents a field-equals-literal predicate.
//
//	<field> = <value>
type Equals struct {
	Field string
	Value ir.IRValue
}

func (Equals) predicateNode() {}

// NotEquals matches records whose field differs from the value or is absent.
//
//	<field> IS NULL OR <field> <> <value>
type NotEquals struct {
	Field string
	Value ir.IRValue
}

func (NotEquals) predicateNode() {}

// In matches records whose field equals any of the values.
// An empty value list matches nothing.
type In struct {
	Field  string
	Values []ir.IRValue
}

func (In) predicateNode() {}

// NotIn matches records whose field equals none of the values, including
// records where the field is absent. An empty value list matches everything.
type NotIn struct {
	Field  string
	Values []ir.IRValue
}

func (NotIn) predicateNode() {}

// Regex matches records whose string field contains a match for Pattern.
// Patterns use RE2 syntax on every backend.
type Regex struct {
	Field   string
	Pattern string
}

func (Regex) predicateNode() {}

// CompareOp is an ordering operator.
type CompareOp string

const (
	OpGt  CompareOp = "gt"
	OpGte CompareOp = "gte"
	OpLt  CompareOp = "lt"
	OpLte CompareOp = "lte"
)

// Compare represents an ordered comparison against a literal.
//
//	<field> <op> <value>
//
// Numbers compare numerically across int and float; strings compare
// bytewise. Mixed kinds never match.
type Compare struct {
	Field string
	Op    CompareOp
	Value ir.IRValue
}

func (Compare) predicateNode() {}

// Range represents an inclusive range on one field.
//
//	<lo> <= <field> AND <field> <= <hi>
//
// Range is sugar: Lower rewrites it to And{Compare gte, Compare lte}, and
// every backend compiles the lowered form.
type Range struct {
	Field string
	Lo    ir.IRValue
	Hi    ir.IRValue
}

func (Range) predicateNode() {}

// Exists matches records where the field is present and non-null
// (Exists=true) or absent/null (Exists=false).
type Exists struct {
	Field  string
	Exists bool
}

func (Exists) predicateNode() {}

// Not negates a single child predicate.
type Not struct {
	Predicate Predicate
}

func (Not) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// Composite nodes must be non-empty; Validate rejects an empty And.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or represents a disjunction of predicates (at least one must be true).
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Nor matches when none of its children is true.
type Nor struct {
	Predicates []Predicate
}

func (Nor) predicateNode() {}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortField orders results by one field.
type SortField struct {
	Field     string
	Direction Direction
}

// Projection selects which fields a query returns.
//
// A field appears in at most one of Include/Exclude; Build and Validate
// reject a conflict. When both are empty every field is returned. When
// Include is set, only those fields are returned; otherwise Exclude fields
// are removed from the full set.
type Projection struct {
	Include []string
	Exclude []string
}

// IsZero reports whether the projection selects all fields.
func (p Projection) IsZero() bool {
	return len(p.Include) == 0 && len(p.Exclude) == 0
}

// PageRequest asks for one page of results. Index is zero-based.
type PageRequest struct {
	Index int
	Size  int
}

// NewPageRequest creates a page request.
func NewPageRequest(index, size int) *PageRequest {
	return &PageRequest{Index: index, Size: size}
}

// Offset returns the number of records preceding the page, saturating at
// math.MaxInt64.
func (p PageRequest) Offset() int64 {
	if p.Index <= 0 || p.Size <= 0 {
		return 0
	}
	if int64(p.Index) > math.MaxInt64/int64(p.Size) {
		return math.MaxInt64
	}
	return int64(p.Index) * int64(p.Size)
}

// Query is the immutable query descriptor: an implicitly AND-combined
// filter, an optional projection, an optional sort order and an optional
// page request.
//
// Semantics:
//
//	SELECT <projection> FROM <collection>
//	WHERE <filter[0]> AND <filter[1]> ...
//	ORDER BY <sort> LIMIT <page.size> OFFSET <page.offset>
//
// An empty filter matches every record.
type Query struct {
	Filter     []Predicate
	Projection Projection
	Sort       []SortField
	Page       *PageRequest
}

// Where returns the filter as a single predicate: nil when the filter is
// empty, the predicate itself when there is one, an And otherwise.
func (q Query) Where() Predicate {
	return Conjunction(q.Filter)
}

// Conjunction combines predicates with AND, returning nil for none.
func Conjunction(preds []Predicate) Predicate {
	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	default:
		return And{Predicates: append([]Predicate(nil), preds...)}
	}
}
