package querysql

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/repokit/internal/ir"
	"github.com/roach88/repokit/internal/queryir"
)

// Leaf predicates compile to two-valued SQL: a row with a NULL or missing
// value yields false rather than NULL, so NOT and NOR select the same rows
// the document adapter does. Comparisons are gated on typeof() so a text
// column never matches a numeric operand and vice versa.

const (
	textGate    = "typeof(%s) = 'text'"
	numericGate = "typeof(%s) IN ('integer','real')"
)

// Filter compiles an implicitly AND-combined filter.
// An empty filter compiles to nil (no WHERE clause).
func Filter(filter []queryir.Predicate) (sq.Sqlizer, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	if len(filter) == 1 {
		return Predicate(filter[0])
	}
	parts, err := compileAll(filter)
	if err != nil {
		return nil, err
	}
	return sq.And(parts), nil
}

// Predicate compiles one lowered predicate.
func Predicate(p queryir.Predicate) (sq.Sqlizer, error) {
	if f := queryir.FieldOf(p); f != "" {
		if err := checkColumn(f); err != nil {
			return nil, err
		}
	}

	switch pred := p.(type) {
	case queryir.Equals:
		return equals(pred.Field, pred.Value), nil

	case queryir.NotEquals:
		return negation{equals(pred.Field, pred.Value)}, nil

	case queryir.In:
		return in(pred.Field, pred.Values), nil

	case queryir.NotIn:
		return negation{in(pred.Field, pred.Values)}, nil

	case queryir.Regex:
		return sq.Expr("("+Quote(pred.Field)+" REGEXP ?)", pred.Pattern), nil

	case queryir.Compare:
		op, ok := compareOps[pred.Op]
		if !ok {
			return nil, fmt.Errorf("unknown comparison operator %q", pred.Op)
		}
		col := Quote(pred.Field)
		return sq.Expr("("+gate(col, pred.Value)+" AND "+col+" "+op+" ?)", ir.ToGo(pred.Value)), nil

	case queryir.Exists:
		if pred.Exists {
			return sq.Expr("(" + Quote(pred.Field) + " IS NOT NULL)"), nil
		}
		return sq.Expr("(" + Quote(pred.Field) + " IS NULL)"), nil

	case queryir.Not:
		inner, err := Predicate(pred.Predicate)
		if err != nil {
			return nil, err
		}
		return negation{inner}, nil

	case queryir.And:
		parts, err := compileAll(pred.Predicates)
		if err != nil {
			return nil, err
		}
		return sq.And(parts), nil

	case queryir.Or:
		parts, err := compileAll(pred.Predicates)
		if err != nil {
			return nil, err
		}
		return sq.Or(parts), nil

	case queryir.Nor:
		parts, err := compileAll(pred.Predicates)
		if err != nil {
			return nil, err
		}
		return negation{sq.Or(parts)}, nil

	default:
		// Range must be lowered first
		return nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

var compareOps = map[queryir.CompareOp]string{
	queryir.OpGt:  ">",
	queryir.OpGte: ">=",
	queryir.OpLt:  "<",
	queryir.OpLte: "<=",
}

func compileAll(preds []queryir.Predicate) ([]sq.Sqlizer, error) {
	out := make([]sq.Sqlizer, len(preds))
	for i, p := range preds {
		s, err := Predicate(p)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func gate(col string, v ir.IRValue) string {
	if _, ok := v.(ir.IRString); ok {
		return fmt.Sprintf(textGate, col)
	}
	return fmt.Sprintf(numericGate, col)
}

func equals(field string, v ir.IRValue) sq.Sqlizer {
	col := Quote(field)
	return sq.Expr("("+gate(col, v)+" AND "+col+" = ?)", ir.ToGo(v))
}

// in groups operands by kind so each group shares one typeof gate.
func in(field string, values []ir.IRValue) sq.Sqlizer {
	if len(values) == 0 {
		return sq.Expr("(1=0)")
	}
	col := Quote(field)
	var texts, numbers []any
	for _, v := range values {
		if _, ok := v.(ir.IRString); ok {
			texts = append(texts, ir.ToGo(v))
		} else {
			numbers = append(numbers, ir.ToGo(v))
		}
	}

	var groups sq.Or
	if len(texts) > 0 {
		groups = append(groups, membership(fmt.Sprintf(textGate, col), col, texts))
	}
	if len(numbers) > 0 {
		groups = append(groups, membership(fmt.Sprintf(numericGate, col), col, numbers))
	}
	if len(groups) == 1 {
		return groups[0]
	}
	return groups
}

func membership(gate, col string, args []any) sq.Sqlizer {
	marks := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")
	return sq.Expr("("+gate+" AND "+col+" IN ("+marks+"))", args...)
}

// negation wraps a two-valued condition in NOT.
type negation struct {
	inner sq.Sqlizer
}

func (n negation) ToSql() (string, []any, error) {
	sql, args, err := n.inner.ToSql()
	if err != nil {
		return "", nil, err
	}
	return "(NOT " + sql + ")", args, nil
}
