// Package query defines the predicate language for store deletes.
//
// Predicates are a sealed tree of equality tests joined by AND. The same tree
// compiles to a parameterized SQL WHERE clause for the SQL backends and
// evaluates directly against ir records for in-memory stores.
//
// The fragment is deliberately small: no OR, no NULL comparison, no functions.
// Every field a predicate names must belong to the closed field list of the
// log it targets, which is checked by Validate before compilation.
package query
