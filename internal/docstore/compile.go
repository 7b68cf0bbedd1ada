package docstore

import (
	"fmt"
	"regexp"

	"github.com/roach88/repokit/internal/ir"
	"github.com/roach88/repokit/internal/queryir"
	"github.com/roach88/repokit/internal/repository"
)

// matcher reports whether a document body satisfies a compiled filter.
type matcher func(body map[string]any) bool

type findQuery struct {
	match   matcher
	include []string
	exclude []string
	sort    []queryir.SortField
	limit   int64
	offset  int64
}

type countQuery struct {
	match matcher
}

type updateQuery struct {
	match    matcher
	mutation repository.Mutation
}

// compileFilter compiles an implicitly AND-combined filter. An empty filter
// matches every document.
func compileFilter(filter []queryir.Predicate) (matcher, error) {
	parts, err := compileAll(filter)
	if err != nil {
		return nil, err
	}
	return allOf(parts), nil
}

func compileAll(preds []queryir.Predicate) ([]matcher, error) {
	out := make([]matcher, len(preds))
	for i, p := range preds {
		m, err := compilePredicate(p)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

func allOf(parts []matcher) matcher {
	return func(body map[string]any) bool {
		for _, m := range parts {
			if !m(body) {
				return false
			}
		}
		return true
	}
}

func anyOf(parts []matcher) matcher {
	return func(body map[string]any) bool {
		for _, m := range parts {
			if m(body) {
				return true
			}
		}
		return false
	}
}

// compilePredicate compiles one lowered predicate.
func compilePredicate(p queryir.Predicate) (matcher, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return equalTo(pred.Field, ir.ToGo(pred.Value)), nil

	case queryir.NotEquals:
		eq := equalTo(pred.Field, ir.ToGo(pred.Value))
		return func(body map[string]any) bool { return !eq(body) }, nil

	case queryir.In:
		return memberOf(pred.Field, pred.Values), nil

	case queryir.NotIn:
		in := memberOf(pred.Field, pred.Values)
		return func(body map[string]any) bool { return !in(body) }, nil

	case queryir.Regex:
		re, err := regexp.Compile(pred.Pattern)
		if err != nil {
			return nil, fmt.Errorf("regex %q: %w", pred.Pattern, err)
		}
		field := pred.Field
		return func(body map[string]any) bool {
			v, ok := lookup(body, field)
			s, isString := v.(string)
			return ok && isString && re.MatchString(s)
		}, nil

	case queryir.Compare:
		return compareTo(pred.Field, pred.Op, ir.ToGo(pred.Value))

	case queryir.Exists:
		field, want := pred.Field, pred.Exists
		return func(body map[string]any) bool {
			_, ok := lookup(body, field)
			return ok == want
		}, nil

	case queryir.Not:
		inner, err := compilePredicate(pred.Predicate)
		if err != nil {
			return nil, err
		}
		return func(body map[string]any) bool { return !inner(body) }, nil

	case queryir.And:
		parts, err := compileAll(pred.Predicates)
		if err != nil {
			return nil, err
		}
		return allOf(parts), nil

	case queryir.Or:
		parts, err := compileAll(pred.Predicates)
		if err != nil {
			return nil, err
		}
		return anyOf(parts), nil

	case queryir.Nor:
		parts, err := compileAll(pred.Predicates)
		if err != nil {
			return nil, err
		}
		or := anyOf(parts)
		return func(body map[string]any) bool { return !or(body) }, nil

	default:
		// Range must be lowered before compilation
		return nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func equalTo(field string, want any) matcher {
	return func(body map[string]any) bool {
		v, ok := lookup(body, field)
		return ok && sameClass(v, want) && compareValues(v, want) == 0
	}
}

func memberOf(field string, values []ir.IRValue) matcher {
	wants := make([]any, len(values))
	for i, v := range values {
		wants[i] = ir.ToGo(v)
	}
	return func(body map[string]any) bool {
		v, ok := lookup(body, field)
		if !ok {
			return false
		}
		for _, want := range wants {
			if sameClass(v, want) && compareValues(v, want) == 0 {
				return true
			}
		}
		return false
	}
}

func compareTo(field string, op queryir.CompareOp, want any) (matcher, error) {
	var accept func(int) bool
	switch op {
	case queryir.OpGt:
		accept = func(c int) bool { return c > 0 }
	case queryir.OpGte:
		accept = func(c int) bool { return c >= 0 }
	case queryir.OpLt:
		accept = func(c int) bool { return c < 0 }
	case queryir.OpLte:
		accept = func(c int) bool { return c <= 0 }
	default:
		return nil, fmt.Errorf("unknown comparison operator %q", op)
	}
	return func(body map[string]any) bool {
		v, ok := lookup(body, field)
		return ok && sameClass(v, want) && accept(compareValues(v, want))
	}, nil
}
