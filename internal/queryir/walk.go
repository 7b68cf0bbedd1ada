package queryir

// Walk visits p and its descendants depth-first, parents before children.
// Returning false from fn stops the walk.
func Walk(p Predicate, fn func(Predicate) bool) bool {
	if p == nil {
		return true
	}
	if !fn(p) {
		return false
	}
	switch pred := p.(type) {
	case Not:
		return Walk(pred.Predicate, fn)
	case And:
		return walkAll(pred.Predicates, fn)
	case Or:
		return walkAll(pred.Predicates, fn)
	case Nor:
		return walkAll(pred.Predicates, fn)
	}
	return true
}

func walkAll(preds []Predicate, fn func(Predicate) bool) bool {
	for _, c := range preds {
		if !Walk(c, fn) {
			return false
		}
	}
	return true
}

// FieldOf returns the field a leaf predicate tests, or "" for composites.
func FieldOf(p Predicate) string {
	switch pred := p.(type) {
	case Equals:
		return pred.Field
	case NotEquals:
		return pred.Field
	case In:
		return pred.Field
	case NotIn:
		return pred.Field
	case Regex:
		return pred.Field
	case Compare:
		return pred.Field
	case Range:
		return pred.Field
	case Exists:
		return pred.Field
	}
	return ""
}

// References reports whether any predicate in preds, at any depth, tests field.
func References(preds []Predicate, field string) bool {
	found := false
	for _, p := range preds {
		Walk(p, func(n Predicate) bool {
			if FieldOf(n) == field {
				found = true
			}
			return !found
		})
		if found {
			return true
		}
	}
	return false
}

// Lower rewrites sugar nodes into the core node set. Range becomes
// And{Compare gte, Compare lte}; everything else is rebuilt unchanged.
// The input is not modified.
func Lower(p Predicate) Predicate {
	switch pred := p.(type) {
	case Range:
		return And{Predicates: []Predicate{
			Compare{Field: pred.Field, Op: OpGte, Value: pred.Lo},
			Compare{Field: pred.Field, Op: OpLte, Value: pred.Hi},
		}}
	case Not:
		return Not{Predicate: Lower(pred.Predicate)}
	case And:
		return And{Predicates: lowerAll(pred.Predicates)}
	case Or:
		return Or{Predicates: lowerAll(pred.Predicates)}
	case Nor:
		return Nor{Predicates: lowerAll(pred.Predicates)}
	default:
		return p
	}
}

func lowerAll(preds []Predicate) []Predicate {
	out := make([]Predicate, len(preds))
	for i, c := range preds {
		out[i] = Lower(c)
	}
	return out
}

// LowerQuery returns a copy of q with every filter predicate lowered.
func LowerQuery(q Query) Query {
	q.Filter = lowerAll(q.Filter)
	return q
}
