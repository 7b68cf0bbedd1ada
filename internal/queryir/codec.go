package queryir

import (
	"fmt"

	"github.com/roach88/repokit/internal/ir"
	"github.com/roach88/repokit/internal/repoerr"
)

// Wire form, one object per node:
//
//	{"field":"age","op":"eq","value":30}
//	{"field":"tag","op":"in","values":["a","b"]}
//	{"field":"name","op":"regex","pattern":"^an"}
//	{"field":"age","hi":65,"lo":18,"op":"range"}
//	{"exists":false,"field":"deleted","op":"exists"}
//	{"op":"not","pred":{...}}
//	{"op":"or","preds":[{...},{...}]}
//
// A query is {"exclude":[...],"filter":[...],"include":[...],
// "page":{"index":0,"size":20},"sort":[{"dir":"asc","field":"age"}]} with
// empty parts omitted.

// Predicate op names on the wire. Compare uses its CompareOp directly.
const (
	opEq     = "eq"
	opNe     = "ne"
	opIn     = "in"
	opNin    = "nin"
	opRegex  = "regex"
	opRange  = "range"
	opExists = "exists"
	opNot    = "not"
	opAnd    = "and"
	opOr     = "or"
	opNor    = "nor"
)

// EncodePredicate converts a predicate tree to its IRObject wire form.
func EncodePredicate(p Predicate) (ir.IRObject, error) {
	switch pred := p.(type) {
	case Equals:
		return leaf(opEq, pred.Field, ir.O("value", pred.Value)), nil
	case NotEquals:
		return leaf(opNe, pred.Field, ir.O("value", pred.Value)), nil
	case In:
		return leaf(opIn, pred.Field, ir.O("values", ir.IRArray(pred.Values))), nil
	case NotIn:
		return leaf(opNin, pred.Field, ir.O("values", ir.IRArray(pred.Values))), nil
	case Regex:
		return leaf(opRegex, pred.Field, ir.O("pattern", ir.IRString(pred.Pattern))), nil
	case Compare:
		return leaf(string(pred.Op), pred.Field, ir.O("value", pred.Value)), nil
	case Range:
		obj := leaf(opRange, pred.Field, ir.O("lo", pred.Lo))
		obj["hi"] = pred.Hi
		return obj, nil
	case Exists:
		return leaf(opExists, pred.Field, ir.O("exists", ir.IRBool(pred.Exists))), nil
	case Not:
		child, err := EncodePredicate(pred.Predicate)
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		return ir.NewIRObjectFromPairs(ir.O("op", ir.IRString(opNot)), ir.O("pred", child)), nil
	case And:
		return encodeComposite(opAnd, pred.Predicates)
	case Or:
		return encodeComposite(opOr, pred.Predicates)
	case Nor:
		return encodeComposite(opNor, pred.Predicates)
	default:
		return nil, fmt.Errorf("unsupported predicate type %T", p)
	}
}

func leaf(op, field string, operand ir.IRPair) ir.IRObject {
	return ir.NewIRObjectFromPairs(
		ir.O("op", ir.IRString(op)),
		ir.O("field", ir.IRString(field)),
		operand,
	)
}

func encodeComposite(op string, children []Predicate) (ir.IRObject, error) {
	arr, err := encodeList(children)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ir.NewIRObjectFromPairs(ir.O("op", ir.IRString(op)), ir.O("preds", arr)), nil
}

func encodeList(preds []Predicate) (ir.IRArray, error) {
	arr := make(ir.IRArray, len(preds))
	for i, c := range preds {
		obj, err := EncodePredicate(c)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		arr[i] = obj
	}
	return arr, nil
}

// EncodeQuery converts a query descriptor to its IRObject wire form.
func EncodeQuery(q Query) (ir.IRObject, error) {
	obj := ir.IRObject{}
	if len(q.Filter) > 0 {
		arr, err := encodeList(q.Filter)
		if err != nil {
			return nil, fmt.Errorf("filter%w", err)
		}
		obj["filter"] = arr
	}
	if len(q.Projection.Include) > 0 {
		obj["include"] = stringArray(q.Projection.Include)
	}
	if len(q.Projection.Exclude) > 0 {
		obj["exclude"] = stringArray(q.Projection.Exclude)
	}
	if len(q.Sort) > 0 {
		arr := make(ir.IRArray, len(q.Sort))
		for i, s := range q.Sort {
			arr[i] = ir.NewIRObjectFromPairs(
				ir.O("field", ir.IRString(s.Field)),
				ir.O("dir", ir.IRString(s.Direction)),
			)
		}
		obj["sort"] = arr
	}
	if q.Page != nil {
		obj["page"] = ir.NewIRObjectFromPairs(
			ir.O("index", ir.IRInt(q.Page.Index)),
			ir.O("size", ir.IRInt(q.Page.Size)),
		)
	}
	return obj, nil
}

func stringArray(ss []string) ir.IRArray {
	arr := make(ir.IRArray, len(ss))
	for i, s := range ss {
		arr[i] = ir.IRString(s)
	}
	return arr
}

// MarshalPredicate returns the canonical JSON text of a predicate tree.
func MarshalPredicate(p Predicate) ([]byte, error) {
	obj, err := EncodePredicate(p)
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(obj)
}

// MarshalQuery returns the canonical JSON text of a query descriptor.
// Equal descriptors always produce identical bytes.
func MarshalQuery(q Query) ([]byte, error) {
	obj, err := EncodeQuery(q)
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(obj)
}

// Fingerprint returns a stable content hash of a query descriptor.
func Fingerprint(q Query) (string, error) {
	data, err := MarshalQuery(q)
	if err != nil {
		return "", err
	}
	return ir.Fingerprint(ir.DomainQuery, data), nil
}

// UnmarshalPredicate parses and validates a predicate from JSON.
func UnmarshalPredicate(data []byte) (Predicate, error) {
	v, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return nil, repoerr.Validation("", "decode predicate: %v", err)
	}
	p, err := DecodePredicate(v)
	if err != nil {
		return nil, err
	}
	if err := ValidatePredicate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// UnmarshalQuery parses and validates a query descriptor from JSON.
func UnmarshalQuery(data []byte) (Query, error) {
	v, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return Query{}, repoerr.Validation("", "decode query: %v", err)
	}
	q, err := DecodeQuery(v)
	if err != nil {
		return Query{}, err
	}
	if err := Validate(q); err != nil {
		return Query{}, err
	}
	return q, nil
}

// DecodeQuery converts the IRObject wire form back into a query descriptor.
// The result is not validated.
func DecodeQuery(v ir.IRValue) (Query, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return Query{}, repoerr.Validation("", "query must be an object, got %T", v)
	}
	var q Query
	for _, key := range obj.SortedKeys() {
		val := obj[key]
		switch key {
		case "filter":
			preds, err := decodeList(key, val)
			if err != nil {
				return Query{}, err
			}
			q.Filter = preds
		case "include", "exclude":
			ss, err := decodeStrings(key, val)
			if err != nil {
				return Query{}, err
			}
			if key == "include" {
				q.Projection.Include = ss
			} else {
				q.Projection.Exclude = ss
			}
		case "sort":
			arr, ok := val.(ir.IRArray)
			if !ok {
				return Query{}, repoerr.Validation("sort", "sort must be an array")
			}
			for _, elem := range arr {
				so, ok := elem.(ir.IRObject)
				if !ok {
					return Query{}, repoerr.Validation("sort", "sort key must be an object")
				}
				field, _ := so["field"].(ir.IRString)
				dir, _ := so["dir"].(ir.IRString)
				q.Sort = append(q.Sort, SortField{Field: string(field), Direction: Direction(dir)})
			}
		case "page":
			po, ok := val.(ir.IRObject)
			if !ok {
				return Query{}, repoerr.Validation("page", "page must be an object")
			}
			index, iok := po["index"].(ir.IRInt)
			size, sok := po["size"].(ir.IRInt)
			if !iok || !sok {
				return Query{}, repoerr.Validation("page", "page requires integer index and size")
			}
			q.Page = NewPageRequest(int(index), int(size))
		default:
			return Query{}, repoerr.Validation(key, "unknown query key")
		}
	}
	return q, nil
}

// DecodePredicate converts the IRObject wire form back into a predicate.
// The result is not validated.
func DecodePredicate(v ir.IRValue) (Predicate, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, repoerr.Validation("", "predicate must be an object, got %T", v)
	}
	op, _ := obj["op"].(ir.IRString)
	field, _ := obj["field"].(ir.IRString)
	f := string(field)

	switch string(op) {
	case opEq:
		return Equals{Field: f, Value: obj["value"]}, nil
	case opNe:
		return NotEquals{Field: f, Value: obj["value"]}, nil
	case opIn, opNin:
		arr, ok := obj["values"].(ir.IRArray)
		if !ok {
			return nil, repoerr.Validation(f, "%s requires a values array", op)
		}
		if string(op) == opIn {
			return In{Field: f, Values: []ir.IRValue(arr)}, nil
		}
		return NotIn{Field: f, Values: []ir.IRValue(arr)}, nil
	case opRegex:
		pattern, ok := obj["pattern"].(ir.IRString)
		if !ok {
			return nil, repoerr.Validation(f, "regex requires a string pattern")
		}
		return Regex{Field: f, Pattern: string(pattern)}, nil
	case string(OpGt), string(OpGte), string(OpLt), string(OpLte):
		return Compare{Field: f, Op: CompareOp(op), Value: obj["value"]}, nil
	case opRange:
		return Range{Field: f, Lo: obj["lo"], Hi: obj["hi"]}, nil
	case opExists:
		exists, ok := obj["exists"].(ir.IRBool)
		if !ok {
			return nil, repoerr.Validation(f, "exists requires a bool")
		}
		return Exists{Field: f, Exists: bool(exists)}, nil
	case opNot:
		child, err := DecodePredicate(obj["pred"])
		if err != nil {
			return nil, err
		}
		return Not{Predicate: child}, nil
	case opAnd, opOr, opNor:
		children, err := decodeList(string(op), obj["preds"])
		if err != nil {
			return nil, err
		}
		switch string(op) {
		case opAnd:
			return And{Predicates: children}, nil
		case opOr:
			return Or{Predicates: children}, nil
		default:
			return Nor{Predicates: children}, nil
		}
	default:
		return nil, repoerr.Validation(f, "unknown predicate op %q", op)
	}
}

func decodeList(key string, v ir.IRValue) ([]Predicate, error) {
	arr, ok := v.(ir.IRArray)
	if !ok {
		return nil, repoerr.Validation("", "%s must be an array of predicates", key)
	}
	out := make([]Predicate, len(arr))
	for i, elem := range arr {
		p, err := DecodePredicate(elem)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func decodeStrings(key string, v ir.IRValue) ([]string, error) {
	arr, ok := v.(ir.IRArray)
	if !ok {
		return nil, repoerr.Validation("", "%s must be an array of strings", key)
	}
	out := make([]string, len(arr))
	for i, elem := range arr {
		s, ok := elem.(ir.IRString)
		if !ok {
			return nil, repoerr.Validation("", "%s[%d] must be a string", key, i)
		}
		out[i] = string(s)
	}
	return out, nil
}
