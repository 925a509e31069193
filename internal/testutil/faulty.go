package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/query"
)

// ErrInjected is the default failure returned by FaultyStore.
var ErrInjected = errors.New("injected store failure")

// Store is the event log store contract FaultyStore wraps.
// It matches engine.Store.
type Store interface {
	Append(ctx context.Context, rec ir.Record) (ir.Record, error)
	DeleteWhere(ctx context.Context, kind ir.LogKind, p query.Predicate) (int64, error)
	SetRetracted(ctx context.Context, id ir.CandidateID, retracted bool) error
	Snapshot(ctx context.Context) (ir.Snapshot, error)
	Subscribe(ctx context.Context) (<-chan ir.Change, error)
}

// FaultyStore wraps a Store and injects failures and stalls into writes.
// Reads and subscriptions pass through unless FailNextSnapshot is armed.
//
// Thread-safety: All methods are safe for concurrent use.
type FaultyStore struct {
	inner Store

	mu           sync.Mutex
	failWrites   []error
	failSnapshot error
	gate         *gate
	writes       int
}

type gate struct {
	entered chan struct{}
	release chan struct{}
}

// NewFaultyStore wraps inner.
func NewFaultyStore(inner Store) *FaultyStore {
	return &FaultyStore{inner: inner}
}

// FailNext makes the next write fail with err (ErrInjected if nil) without
// reaching the wrapped store. Calls queue up.
func (f *FaultyStore) FailNext(err error) {
	if err == nil {
		err = ErrInjected
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrites = append(f.failWrites, err)
}

// FailNextSnapshot makes the next Snapshot fail with err (ErrInjected if nil).
func (f *FaultyStore) FailNextSnapshot(err error) {
	if err == nil {
		err = ErrInjected
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSnapshot = err
}

// Block stalls the next write until release is called. entered is closed
// once the write has started waiting. A stalled write also gives up when
// its context is done.
func (f *FaultyStore) Block() (entered <-chan struct{}, release func()) {
	g := &gate{entered: make(chan struct{}), release: make(chan struct{})}
	f.mu.Lock()
	f.gate = g
	f.mu.Unlock()

	var once sync.Once
	return g.entered, func() { once.Do(func() { close(g.release) }) }
}

// Writes returns the number of writes attempted, including failed ones.
func (f *FaultyStore) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// before runs the armed fault for one write.
func (f *FaultyStore) before(ctx context.Context) error {
	f.mu.Lock()
	f.writes++
	g := f.gate
	f.gate = nil
	var err error
	if len(f.failWrites) > 0 {
		err = f.failWrites[0]
		f.failWrites = f.failWrites[1:]
	}
	f.mu.Unlock()

	if g != nil {
		close(g.entered)
		select {
		case <-g.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *FaultyStore) Append(ctx context.Context, rec ir.Record) (ir.Record, error) {
	if err := f.before(ctx); err != nil {
		return nil, err
	}
	return f.inner.Append(ctx, rec)
}

func (f *FaultyStore) DeleteWhere(ctx context.Context, kind ir.LogKind, p query.Predicate) (int64, error) {
	if err := f.before(ctx); err != nil {
		return 0, err
	}
	return f.inner.DeleteWhere(ctx, kind, p)
}

func (f *FaultyStore) SetRetracted(ctx context.Context, id ir.CandidateID, retracted bool) error {
	if err := f.before(ctx); err != nil {
		return err
	}
	return f.inner.SetRetracted(ctx, id, retracted)
}

func (f *FaultyStore) Snapshot(ctx context.Context) (ir.Snapshot, error) {
	f.mu.Lock()
	err := f.failSnapshot
	f.failSnapshot = nil
	f.mu.Unlock()
	if err != nil {
		return ir.Snapshot{}, err
	}
	return f.inner.Snapshot(ctx)
}

func (f *FaultyStore) Subscribe(ctx context.Context) (<-chan ir.Change, error) {
	return f.inner.Subscribe(ctx)
}
