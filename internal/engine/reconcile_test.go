package engine

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/metrics"
	tu "github.com/roach88/shortlist/internal/testutil"
)

// hookStore runs onSnapshot once, just before the next snapshot is read.
type hookStore struct {
	*tu.MemStore
	onSnapshot func()
}

func (h *hookStore) Snapshot(ctx context.Context) (ir.Snapshot, error) {
	if fn := h.onSnapshot; fn != nil {
		h.onSnapshot = nil
		fn()
	}
	return h.MemStore.Snapshot(ctx)
}

func TestRunLoadsOnStart(t *testing.T) {
	f := newFixture(t, "alice")
	f.candidate("Book 1")
	f.run()

	require.Eventually(t, func() bool { return f.eng.View() != nil }, time.Second, time.Millisecond)
	assert.Len(t, f.eng.View().Registry, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Refreshes.WithLabelValues("load")))
}

func TestNotificationTriggersRefresh(t *testing.T) {
	f := newFixture(t, "alice")
	f.load()
	f.run()

	id := f.candidate("Book 1")
	require.Eventually(t, func() bool {
		_, ok := f.eng.View().Candidates[id]
		return ok
	}, time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, testutil.ToFloat64(f.metrics.Refreshes.WithLabelValues("notification")), 1.0)
}

func TestManualRefresh(t *testing.T) {
	f := newFixture(t, "alice")
	f.load()
	f.run()

	gen := f.eng.Generation()
	require.True(t, f.eng.RequestRefresh())
	f.settle()
	assert.Greater(t, f.eng.Generation(), gen)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Refreshes.WithLabelValues("manual")))
}

func TestInconsistentDataIsPublishedWithError(t *testing.T) {
	f := newFixture(t, "alice")
	a := f.candidate("Book A")
	b := f.candidate("Book B")
	// Two active nominations by one actor: the rules forbid it, the store does not.
	f.write(ir.NominationRecord{ActorID: "xena", CandidateID: a})
	f.write(ir.NominationRecord{ActorID: "xena", CandidateID: b})

	updates, cancel := f.eng.Subscribe(4)
	defer cancel()
	f.load()

	u := <-updates
	assert.Equal(t, SourceRefresh, u.Source)
	require.Error(t, u.Err)
	assert.True(t, IsAggregationInconsistency(u.Err))
	assert.Equal(t, []ir.CandidateID{b}, rankedIDs(u.View), "authoritative data still wins")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AggregationInconsistent))
}

func TestRefreshFailureKeepsView(t *testing.T) {
	f := newFixture(t, "alice")
	f.candidate("Book 1")
	f.load()
	gen := f.eng.Generation()

	updates, cancel := f.eng.Subscribe(4)
	defer cancel()

	f.faulty.FailNextSnapshot(nil)
	err := f.eng.Load(context.Background())
	require.ErrorIs(t, err, tu.ErrInjected)
	assert.Equal(t, gen, f.eng.Generation())

	u := <-updates
	assert.True(t, IsStoreFailure(u.Err))
	assert.Len(t, u.View.Registry, 1)
}

func TestSupersededRefreshIsRequeued(t *testing.T) {
	ctx := context.Background()
	hs := &hookStore{MemStore: tu.NewMemStore(tu.NewDeterministicClock(time.Time{}, 0).Now)}
	m := metrics.New(prometheus.NewRegistry())
	e := New(hs, "alice", WithMetrics(m))
	require.NoError(t, e.Load(ctx))

	hs.onSnapshot = func() {
		v, _ := e.cell.current()
		e.cell.publish(v, SourceOptimistic, nil)
	}
	require.NoError(t, e.runRefresh(ctx, "notification"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshesSuperseded))
	ev, ok := e.queue.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, EventTypeRefresh, ev.Type)
	assert.Equal(t, "superseded", ev.Trigger)
}

func TestSupersededRefreshWhileInFlightSetsPending(t *testing.T) {
	ctx := context.Background()
	hs := &hookStore{MemStore: tu.NewMemStore(tu.NewDeterministicClock(time.Time{}, 0).Now)}
	e := New(hs, "alice")
	require.NoError(t, e.Load(ctx))

	hs.onSnapshot = func() {
		v, _ := e.cell.current()
		e.inFlight.Store(true)
		e.cell.publish(v, SourceOptimistic, nil)
	}
	require.NoError(t, e.runRefresh(ctx, "notification"))

	assert.True(t, e.pending)
	assert.Equal(t, 0, e.queue.Len())
}

func TestPendingRefreshReplayedOnSettle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice")
	f.load()
	gen := f.eng.Generation()

	f.eng.inFlight.Store(true)
	require.NoError(t, f.eng.processEvent(ctx, Event{Type: EventTypeChange}))
	require.NoError(t, f.eng.processEvent(ctx, Event{Type: EventTypeRefresh, Trigger: "manual"}))
	assert.True(t, f.eng.pending)
	assert.Equal(t, gen, f.eng.Generation())
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.NotificationsDeferred))

	f.eng.inFlight.Store(false)
	require.NoError(t, f.eng.processEvent(ctx, Event{Type: EventTypeSettled, Verb: "score"}))
	assert.False(t, f.eng.pending)
	assert.Equal(t, gen+1, f.eng.Generation(), "one refresh for both deferred triggers")
}

func TestSettleWithoutRefreshIsQuiet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice")
	f.load()
	gen := f.eng.Generation()

	require.NoError(t, f.eng.processEvent(ctx, Event{Type: EventTypeSettled, Verb: "score"}))
	assert.Equal(t, gen, f.eng.Generation())
}

func TestRunStopsOnContext(t *testing.T) {
	f := newFixture(t, "alice")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.eng.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
	assert.ErrorIs(t, f.eng.Settle(context.Background()), ErrStopped)
	assert.False(t, f.eng.RequestRefresh())
}

func TestStopEndsRun(t *testing.T) {
	f := newFixture(t, "alice")
	done := make(chan error, 1)
	go func() { done <- f.eng.Run(context.Background()) }()
	require.Eventually(t, func() bool { return f.mem.Subscribers() > 0 }, time.Second, time.Millisecond)

	f.eng.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}
