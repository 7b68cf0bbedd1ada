// Package harness runs conformance scenarios against every storage backend.
//
// A scenario seeds a collection, optionally mutates it and runs one query
// through the repository executor. The same scenario runs against the
// in-memory document store and the SQLite adapter; both must satisfy the
// scenario's expectations and produce the same canonical snapshot, which is
// compared with a golden file.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	collection: users          # default "records"
//	id_field: id               # default "id"
//	seed:
//	  - {id: 1, name: ann, age: 31}
//	steps:
//	  - update:
//	      query: {filter: [{field: age, op: lt, value: 30}]}
//	      set: {status: young}
//	      inc: {visits: 1}
//	    affected: 1
//	  - delete_where: {filter: [{field: age, op: gt, value: 90}]}
//	soft_delete: {field: deleted, not_deleted_value: false}
//	query:
//	  filter: [{field: age, op: gte, value: 18}]
//	  sort: [{field: age, dir: desc}]
//	  include: [name]
//	page: {index: 0, size: 10}
//	expect:
//	  ids: [1]
//	  total: 1
//	  error: VALIDATION        # instead of ids/total
//
// Queries use the descriptor wire form of package queryir.
//
// # SQLite Tables
//
// The SQLite backend creates one untyped column per field that appears in
// the seed, insert or update data. A query may only name those fields;
// anything else is a storage failure on SQLite while the document store
// simply finds no value.
package harness
