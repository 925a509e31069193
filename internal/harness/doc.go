// Package harness runs shortlist conformance scenarios.
//
// A scenario seeds a candidate registry, drives a real engine through a
// sequence of verbs and asserts on the resulting view.
//
// # Scenario Format
//
//	name: continuity
//	description: "A withdrawn nomination's scores survive renomination"
//	viewer: carol
//	group:
//	  admins: [alice]
//	candidates:
//	  - { id: dune, title: Dune }
//	steps:
//	  - { action: nominate, actor: alice, candidate: dune }
//	  - { action: score, actor: bob, candidate: dune, weight: 2 }
//	  - { action: withdraw, actor: alice }
//	  - { action: score, actor: carol, candidate: dune, weight: 1, expect: denied, reason: not_nominated }
//	assertions:
//	  - { type: ranking, candidates: [] }
//	  - { type: total, candidate: dune, total: 2 }
//
// Each step records an outcome (ok, denied or store_failure) and the
// ranking once the engine has settled. A step fails the scenario when its
// outcome differs from expect, which defaults to ok. The fail_next_write
// action makes the next store write fail.
//
// # Assertion Types
//
//   - ranking: the exact ranked candidate order
//   - total: a candidate's total weight
//   - used: the exact set of scheduled candidates
//   - active_nomination: an actor's active nomination, empty for none
//   - used_weights: the weights an actor has spent
//   - can: an eligibility predicate (nominate, score, withdraw, retract_score, reset)
//   - upcoming: the next scheduling on or after today, empty for none
//
// # Deterministic Testing
//
// Every run uses an in-memory SQLite store, a deterministic clock and a
// sequential id generator. After the last step the harness re-aggregates
// the store and fails the scenario if the live view disagrees, so every
// scenario also checks that optimistic updates match re-aggregation.
// Golden files hold canonical JSON without timestamps or record ids.
package harness
