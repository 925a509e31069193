package engine

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/metrics"
	"github.com/roach88/shortlist/internal/testutil"
	"github.com/roach88/shortlist/internal/view"
)

// testPolicy is a fixed group policy.
type testPolicy struct {
	admins      []ir.ActorID
	categories  []string
	defaultTime string
}

func (p testPolicy) IsPrivileged(a ir.ActorID) bool { return slices.Contains(p.admins, a) }

func (p testPolicy) AllowsCategory(c string) bool {
	return len(p.categories) == 0 || slices.Contains(p.categories, c)
}

func (p testPolicy) DefaultScheduleTime() string { return p.defaultTime }

var adminAlice = testPolicy{admins: []ir.ActorID{"alice"}, defaultTime: "19:00"}

// fixture wires an engine to an in-memory store behind a FaultyStore.
// Today is 2026-01-05 for both the engine and the store.
type fixture struct {
	t       *testing.T
	clock   *testutil.DeterministicClock
	mem     *testutil.MemStore
	faulty  *testutil.FaultyStore
	metrics *metrics.Collector
	eng     *Engine
}

func newFixture(t *testing.T, viewer ir.ActorID, opts ...Option) *fixture {
	t.Helper()
	clock := testutil.NewDeterministicClock(time.Time{}, time.Second)
	mem := testutil.NewMemStore(clock.Now)
	faulty := testutil.NewFaultyStore(mem)
	m := metrics.New(prometheus.NewRegistry())

	base := []Option{WithNow(clock.Now), WithMetrics(m), WithPolicy(adminAlice)}
	return &fixture{
		t:       t,
		clock:   clock,
		mem:     mem,
		faulty:  faulty,
		metrics: m,
		eng:     New(faulty, viewer, append(base, opts...)...),
	}
}

// candidate writes a registry item straight to the store.
func (f *fixture) candidate(title string) ir.CandidateID {
	f.t.Helper()
	rec, err := f.mem.Append(context.Background(), ir.CandidateItem{Title: title, ProposedBy: "alice"})
	require.NoError(f.t, err)
	return rec.(ir.CandidateItem).ID
}

// write appends a record as another client would.
func (f *fixture) write(rec ir.Record) {
	f.t.Helper()
	_, err := f.mem.Append(context.Background(), rec)
	require.NoError(f.t, err)
}

func (f *fixture) load() {
	f.t.Helper()
	require.NoError(f.t, f.eng.Load(context.Background()))
}

// run starts the reconciliation loop and waits until it is subscribed to
// the store. The loop stops when the test ends.
func (f *fixture) run() {
	f.t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.eng.Run(ctx)
	}()
	f.t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(f.t, func() bool { return f.mem.Subscribers() > 0 }, time.Second, time.Millisecond)
}

func (f *fixture) settle() {
	f.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(f.t, f.eng.Settle(ctx))
}

// reaggregate derives the view straight from the store for comparison.
func (f *fixture) reaggregate() *view.DerivedView {
	f.t.Helper()
	snap, err := f.mem.Snapshot(context.Background())
	require.NoError(f.t, err)
	v := f.eng.View()
	return view.Aggregate(view.Inputs{Snapshot: snap, Viewer: f.eng.Viewer(), Today: v.Today})
}

func rankedIDs(v *view.DerivedView) []ir.CandidateID {
	out := make([]ir.CandidateID, len(v.Ranked))
	for i, r := range v.Ranked {
		out[i] = r.CandidateID
	}
	return out
}

func fingerprint(t *testing.T, v *view.DerivedView) string {
	t.Helper()
	fp, err := view.Fingerprint(v)
	require.NoError(t, err)
	return fp
}
