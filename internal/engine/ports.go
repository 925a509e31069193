package engine

import (
	"context"

	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/query"
)

// Store is the event log store the engine reads and writes.
// Implemented by store.Store (SQLite) and pgstore.Store (PostgreSQL).
type Store interface {
	Append(ctx context.Context, rec ir.Record) (ir.Record, error)
	DeleteWhere(ctx context.Context, kind ir.LogKind, p query.Predicate) (int64, error)
	SetRetracted(ctx context.Context, id ir.CandidateID, retracted bool) error
	Snapshot(ctx context.Context) (ir.Snapshot, error)
	Subscribe(ctx context.Context) (<-chan ir.Change, error)
}

// Policy is the group's authorization and registry policy.
// Implemented by policy.Policy.
type Policy interface {
	IsPrivileged(actor ir.ActorID) bool
	AllowsCategory(category string) bool
	DefaultScheduleTime() string
}
