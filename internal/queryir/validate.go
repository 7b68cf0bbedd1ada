package queryir

import (
	"errors"
	"math"
	"regexp"

	"github.com/roach88/repokit/internal/ir"
	"github.com/roach88/repokit/internal/repoerr"
)

// Validate checks that a query descriptor is well formed.
//
// Rules:
//  1. Every leaf names a non-empty field
//  2. Operands are non-null scalars (string, number, bool)
//  3. Regex patterns compile (RE2)
//  4. Composite nodes are non-empty; Not has exactly one child
//  5. Sort keys name a field and use asc or desc
//  6. Page index >= 0, page size > 0, and the page offset fits in int64
//  7. No field is both included and excluded
//
// All problems are reported together. Each is a *repoerr.Error with code
// VALIDATION, so repoerr.IsValidation holds for the joined result.
//
// Validate is a pure function with no side effects.
func Validate(q Query) error {
	v := &validator{}
	for _, p := range q.Filter {
		v.validatePredicate(p)
	}
	v.validateProjection(q.Projection)
	v.validateSort(q.Sort)
	if q.Page != nil {
		v.validatePage(*q.Page)
	}
	return v.err()
}

// ValidatePredicate checks a single predicate tree.
func ValidatePredicate(p Predicate) error {
	v := &validator{}
	v.validatePredicate(p)
	return v.err()
}

// validator accumulates problems during traversal.
type validator struct {
	problems []error
}

func (v *validator) add(field, format string, args ...any) {
	v.problems = append(v.problems, repoerr.Validation(field, format, args...))
}

func (v *validator) err() error {
	if len(v.problems) == 1 {
		return v.problems[0]
	}
	return errors.Join(v.problems...)
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		v.add("", "nil predicate")
	case Equals:
		v.field(pred.Field)
		v.operand(pred.Field, pred.Value)
	case NotEquals:
		v.field(pred.Field)
		v.operand(pred.Field, pred.Value)
	case In:
		v.field(pred.Field)
		for _, val := range pred.Values {
			v.operand(pred.Field, val)
		}
	case NotIn:
		v.field(pred.Field)
		for _, val := range pred.Values {
			v.operand(pred.Field, val)
		}
	case Regex:
		v.field(pred.Field)
		if _, err := regexp.Compile(pred.Pattern); err != nil {
			v.add(pred.Field, "invalid regex %q: %v", pred.Pattern, err)
		}
	case Compare:
		v.field(pred.Field)
		switch pred.Op {
		case OpGt, OpGte, OpLt, OpLte:
		default:
			v.add(pred.Field, "unknown comparison operator %q", pred.Op)
		}
		v.operand(pred.Field, pred.Value)
	case Range:
		v.field(pred.Field)
		v.operand(pred.Field, pred.Lo)
		v.operand(pred.Field, pred.Hi)
	case Exists:
		v.field(pred.Field)
	case Not:
		if pred.Predicate == nil {
			v.add("", "not requires exactly one child predicate")
			return
		}
		v.validatePredicate(pred.Predicate)
	case And:
		v.composite("and", pred.Predicates)
	case Or:
		v.composite("or", pred.Predicates)
	case Nor:
		v.composite("nor", pred.Predicates)
	default:
		v.add("", "unsupported predicate type %T", p)
	}
}

func (v *validator) composite(op string, children []Predicate) {
	if len(children) == 0 {
		v.add("", "%s requires at least one child predicate", op)
		return
	}
	for _, c := range children {
		v.validatePredicate(c)
	}
}

func (v *validator) field(name string) {
	if name == "" {
		v.add("", "predicate field must not be empty")
	}
}

func (v *validator) operand(field string, val ir.IRValue) {
	switch val.(type) {
	case ir.IRString, ir.IRInt, ir.IRFloat, ir.IRBool:
	case nil, ir.IRNull:
		v.add(field, "null operand; use an existence predicate to match absent fields")
	default:
		v.add(field, "operand must be a string, number or bool, got %T", val)
	}
}

func (v *validator) validateProjection(p Projection) {
	included := make(map[string]bool, len(p.Include))
	for _, f := range p.Include {
		if f == "" {
			v.add("", "projection field must not be empty")
		}
		included[f] = true
	}
	for _, f := range p.Exclude {
		if f == "" {
			v.add("", "projection field must not be empty")
		}
		if included[f] {
			v.add(f, "field is both included and excluded")
		}
	}
}

func (v *validator) validateSort(sort []SortField) {
	for _, s := range sort {
		if s.Field == "" {
			v.add("", "sort field must not be empty")
		}
		if s.Direction != Asc && s.Direction != Desc {
			v.add(s.Field, "sort direction must be asc or desc, got %q", s.Direction)
		}
	}
}

func (v *validator) validatePage(p PageRequest) {
	if p.Index < 0 {
		v.add("page", "page index must not be negative, got %d", p.Index)
	}
	if p.Size <= 0 {
		v.add("size", "page size must be positive, got %d", p.Size)
		return
	}
	if p.Index > 0 && int64(p.Index) > math.MaxInt64/int64(p.Size) {
		v.add("page", "page %d of size %d starts beyond the largest offset", p.Index, p.Size)
	}
}
