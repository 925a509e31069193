package pgstore

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// Channel is the NOTIFY channel every write announces itself on.
const Channel = "shortlist_changes"

// reconnectDelay is how long Subscribe waits before re-establishing a
// dropped LISTEN connection.
const reconnectDelay = 5 * time.Second

// Store is the PostgreSQL event log store.
type Store struct {
	pool      *pgxpool.Pool
	now       func() time.Time
	ids       store.IDGenerator
	logger    *slog.Logger
	reconnect time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithNow sets the clock used for created_at and retracted_at.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the generator for row ids.
func WithIDGenerator(g store.IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// WithLogger sets the logger for rejected rows and LISTEN reconnects.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open connects to databaseURL and creates the schema if needed.
func Open(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	pool, err := NewPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	s, err := New(ctx, pool, opts...)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool and creates the schema if needed.
// The Store does not take ownership of pool until Close is called.
func New(ctx context.Context, pool *pgxpool.Pool, opts ...Option) (*Store, error) {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		pool:      pool,
		now:       func() time.Time { return time.Now().UTC() },
		ids:       store.UUIDv7Generator{},
		logger:    slog.Default(),
		reconnect: reconnectDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Pool returns the underlying pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// inTx runs fn in a write transaction and announces the change on Channel
// before committing, so listeners are only notified of committed writes.
// announce reports whether fn changed anything worth announcing.
func (s *Store) inTx(ctx context.Context, kind ir.LogKind, op ir.ChangeOp, fn func(tx pgx.Tx) (announce bool, err error)) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	announce, err := fn(tx)
	if err != nil {
		return err
	}
	if announce {
		if _, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", Channel, formatPayload(kind, op)); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
