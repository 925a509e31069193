// Package engine implements the mutation protocol and reconciliation channel
// around the derived view.
//
// ARCHITECTURE:
//
// Versioned view cell:
// The current DerivedView lives in a single cell. Every publication is
// stamped with the next generation from the engine Clock, and observers
// receive each new generation through Subscribe. A publication can be made
// conditional on the generation it was computed from, so a refresh that
// started before an optimistic apply never overwrites it.
//
// Mutation protocol:
// Optimistic verbs (Nominate, WithdrawNomination, Score, RetractScore,
// ResetAllScores) check the eligibility rules, publish the view as if the
// write had succeeded, submit the write, then either queue a refresh
// (success) or restore the pre-apply view (failure). Privileged verbs and
// Propose are not optimistic: they publish only after the store confirms.
// Verbs are serialized; at most one is in flight.
//
// Reconciliation channel:
// Run is a single-writer loop over a FIFO queue of store change
// notifications, verb settlements, refresh requests and barriers. A
// notification that arrives while a verb is in flight is not acted on; it
// sets a pending flag that is replayed as one refresh when the verb settles.
//
// A refresh re-reads a snapshot from the store and re-aggregates. The
// authoritative result always wins over optimistic state, even when it
// breaks a consistency rule; such results are published with an
// AGGREGATION_INCONSISTENCY error attached.
package engine
