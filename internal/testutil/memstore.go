package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/query"
	"github.com/roach88/shortlist/internal/store"
)

// MemStore is an in-memory event log store with the same contract as
// store.Store: ids and seqs are assigned on append, deletes are evaluated
// with query.Matches, and every committed write is announced to
// subscribers. It needs no cgo, so engine tests use it.
//
// Thread-safety: All methods are safe for concurrent use.
type MemStore struct {
	mu   sync.Mutex
	seq  int64
	now  func() time.Time
	ids  store.IDGenerator
	snap ir.Snapshot
	subs map[chan ir.Change]struct{}
}

// NewMemStore creates an empty store. Ids are "row-1", "row-2", ... and
// timestamps come from now.
func NewMemStore(now func() time.Time) *MemStore {
	return &MemStore{
		now:  now,
		ids:  store.NewSequenceGenerator("row"),
		subs: make(map[chan ir.Change]struct{}),
	}
}

// Append validates rec, assigns id (unless set), seq and created_at, and
// stores it.
func (m *MemStore) Append(ctx context.Context, rec ir.Record) (ir.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("append: nil record")
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("append %s: %w", rec.Kind(), err)
	}

	m.mu.Lock()
	m.seq++
	seq, now := m.seq, m.now().UTC()
	var stored ir.Record
	switch r := rec.(type) {
	case ir.CandidateItem:
		if r.ID == "" {
			r.ID = ir.CandidateID(m.ids.Generate())
		}
		r.CreatedAt, r.Seq = now, seq
		m.snap.Candidates = append(m.snap.Candidates, r)
		stored = r
	case ir.NominationRecord:
		if r.ID == "" {
			r.ID = m.ids.Generate()
		}
		r.CreatedAt, r.Seq = now, seq
		m.snap.Nominations = append(m.snap.Nominations, r)
		stored = r
	case ir.ScoreRecord:
		if r.ID == "" {
			r.ID = m.ids.Generate()
		}
		r.CreatedAt, r.Seq = now, seq
		m.snap.Scores = append(m.snap.Scores, r)
		stored = r
	case ir.SchedulingRecord:
		if r.ID == "" {
			r.ID = m.ids.Generate()
		}
		r.CreatedAt, r.Seq = now, seq
		m.snap.Schedulings = append(m.snap.Schedulings, r)
		stored = r
	default:
		m.mu.Unlock()
		return nil, fmt.Errorf("append: unsupported record %T", rec)
	}
	m.mu.Unlock()

	m.announce(rec.Kind(), ir.OpInsert)
	return stored, nil
}

// DeleteWhere removes every row of kind matching p.
func (m *MemStore) DeleteWhere(ctx context.Context, kind ir.LogKind, p query.Predicate) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := query.Validate(kind, p); err != nil {
		return 0, fmt.Errorf("delete %s: %w", kind, err)
	}

	m.mu.Lock()
	var n int64
	match := func(rec ir.Record) bool {
		ok, _ := query.Matches(rec, p)
		if ok {
			n++
		}
		return ok
	}
	switch kind {
	case ir.LogCandidates:
		m.snap.Candidates = slices.DeleteFunc(m.snap.Candidates, func(r ir.CandidateItem) bool { return match(r) })
	case ir.LogNominations:
		m.snap.Nominations = slices.DeleteFunc(m.snap.Nominations, func(r ir.NominationRecord) bool { return match(r) })
	case ir.LogScores:
		m.snap.Scores = slices.DeleteFunc(m.snap.Scores, func(r ir.ScoreRecord) bool { return match(r) })
	case ir.LogSchedulings:
		m.snap.Schedulings = slices.DeleteFunc(m.snap.Schedulings, func(r ir.SchedulingRecord) bool { return match(r) })
	}
	m.mu.Unlock()

	if n > 0 {
		m.announce(kind, ir.OpDelete)
	}
	return n, nil
}

// SetRetracted soft deletes or restores a candidate.
func (m *MemStore) SetRetracted(ctx context.Context, id ir.CandidateID, retracted bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	i := slices.IndexFunc(m.snap.Candidates, func(c ir.CandidateItem) bool { return c.ID == id })
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("set retracted %s: %w", id, store.ErrNotFound)
	}
	m.snap.Candidates[i].RetractedAt = nil
	if retracted {
		at := m.now().UTC()
		m.snap.Candidates[i].RetractedAt = &at
	}
	m.mu.Unlock()

	m.announce(ir.LogCandidates, ir.OpUpdate)
	return nil
}

// Snapshot returns a copy of the four logs.
func (m *MemStore) Snapshot(ctx context.Context) (ir.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return ir.Snapshot{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := ir.Snapshot{
		Candidates:  append([]ir.CandidateItem{}, m.snap.Candidates...),
		Nominations: append([]ir.NominationRecord{}, m.snap.Nominations...),
		Scores:      append([]ir.ScoreRecord{}, m.snap.Scores...),
		Schedulings: append([]ir.SchedulingRecord{}, m.snap.Schedulings...),
	}
	for i, c := range out.Candidates {
		if c.RetractedAt != nil {
			at := *c.RetractedAt
			out.Candidates[i].RetractedAt = &at
		}
	}
	return out, nil
}

// Subscribe returns a channel of change notifications, closed when ctx is
// done.
func (m *MemStore) Subscribe(ctx context.Context) (<-chan ir.Change, error) {
	ch := make(chan ir.Change, 64)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, ch)
		m.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

// Subscribers returns the number of live subscriptions.
func (m *MemStore) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *MemStore) announce(kind ir.LogKind, op ir.ChangeOp) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := ir.Change{Log: kind, Op: op, At: m.now().UTC()}
	for ch := range m.subs {
		select {
		case ch <- c:
		default:
		}
	}
}
