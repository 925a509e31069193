// Package store provides the SQLite-backed event log store.
//
// The store holds four logs:
//   - candidates: the candidate registry, soft deleted via retracted_at
//   - nominations: append-only, rows removed by explicit deletes
//   - scores: append-only, rows removed by explicit deletes
//   - schedulings: append-only, never deleted in normal operation
//
// # Ordering
//
// Every table carries a seq INTEGER assigned on insert. Reads use
// ORDER BY seq ASC, id ASC COLLATE BINARY so a snapshot always lists rows in
// the order they were first written, which is the order the ranking falls
// back to on ties.
//
// # Change notifications
//
// Each committed write is announced to Subscribe channels after the
// transaction commits. Delivery is best effort: a subscriber whose buffer is
// full misses the notification and catches up on its next refresh.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
