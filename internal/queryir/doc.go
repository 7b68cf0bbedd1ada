// Package queryir provides the storage-agnostic query descriptor: a
// predicate tree, a projection, a sort order and an optional page request.
//
// ARCHITECTURE:
//
// The descriptor sits between callers and backend compilers:
//
//	[Builder] → [Query] → [softdelete overlay] → [querysql compiler] → SQLite
//	                                           → [docstore compiler] → memdb shards
//
// Callers never write backend syntax. Every backend compiles the same
// predicate tree and must agree on the result set for the same data.
//
// PREDICATES:
//
//   - Leaf: Equals, NotEquals, In, NotIn, Regex, Compare, Range, Exists
//   - Composite: And, Or, Nor (ordered, non-empty), Not (exactly one child)
//
// Range is sugar. Lower rewrites it to And{Compare gte, Compare lte} so that
// compilers only see the core node set.
//
// SEALED INTERFACES:
//
// Predicate is a sealed interface using the marker method pattern. Only
// types in this package implement it, which keeps backend type switches
// exhaustive:
//
//	switch p := pred.(type) {
//	case queryir.Equals:
//	    // field = value
//	case queryir.Or:
//	    // (a OR b)
//	default:
//	    // unsupported predicate
//	}
//
// BUILDER:
//
// Builder is an immutable value. Every method returns a new Builder and
// leaves the receiver untouched, so a partially built query can be shared
// and extended along several paths. Operand conversion errors are deferred
// to Build, which also runs Validate.
//
// CANONICAL FORM:
//
// MarshalQuery and MarshalPredicate produce RFC 8785 canonical JSON via
// ir.MarshalCanonical. The text is stable across runs and is used for
// fingerprints, golden files and the CLI.
//
// Operand values are ir.IRValue. Floats are allowed (IRFloat) but must be
// finite; null operands are rejected, use Exists{Exists: false} instead.
package queryir
