// Package querysql compiles query descriptors into parameterized SQLite
// statements built with squirrel.
//
// Operands are never interpolated. Field names map one-to-one onto columns;
// dotted paths are rejected. Regex predicates compile to the REGEXP operator,
// which the store package registers on every connection.
package querysql
