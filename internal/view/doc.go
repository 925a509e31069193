// Package view derives the current group state from the four stores.
//
// Aggregate is a pure function: the same Snapshot always produces an equal
// DerivedView. The With* and Without* functions build optimistic views from
// an existing one without touching the stores; they never mutate their input.
//
// Ranking is a stable sort by total weight, descending, over nominations in
// the order they were first observed. Ties are never broken by any other key.
package view
