// Package pgstore is the PostgreSQL event log store.
//
// It stores the same four logs as the SQLite store and satisfies the same
// port. Every write transaction also issues pg_notify on the
// shortlist_changes channel, so any process holding a LISTEN connection
// learns about writes made by other clients. Subscribe keeps one dedicated
// pool connection listening and reconnects when it drops.
package pgstore
