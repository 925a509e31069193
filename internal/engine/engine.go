package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/metrics"
	"github.com/roach88/shortlist/internal/view"
)

// DefaultSubmitTimeout bounds a single store write.
const DefaultSubmitTimeout = 10 * time.Second

var (
	// ErrNotLoaded is returned by verbs called before the first view was
	// published.
	ErrNotLoaded = errors.New("engine: view not loaded")

	// ErrStopped is returned once Run has exited.
	ErrStopped = errors.New("engine: stopped")
)

// Engine owns the derived view for one viewer.
//
// Thread-safety model:
//   - verbs, View(), Subscribe(), Load(), Settle(), RequestRefresh(): safe
//     from any goroutine
//   - Run(): must be called from exactly one goroutine
//
// Verbs are serialized by mutMu. The pending flag is owned by the Run
// goroutine; inFlight is shared and atomic.
type Engine struct {
	store         Store
	policy        Policy
	viewer        ir.ActorID
	logger        *slog.Logger
	metrics       *metrics.Collector
	now           func() time.Time
	submitTimeout time.Duration

	cell  *viewCell
	queue *eventQueue

	mutMu    sync.Mutex
	inFlight atomic.Bool

	// pending records a notification deferred while a verb was in flight.
	// Run goroutine only.
	pending bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithPolicy sets the group policy. Without one nobody is privileged and
// any category is allowed.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithNow sets the wall clock used for "today" and optimistic timestamps.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSubmitTimeout bounds each store write.
//
// Default: 10s (DefaultSubmitTimeout)
func WithSubmitTimeout(d time.Duration) Option {
	return func(e *Engine) { e.submitTimeout = d }
}

// New creates an Engine showing the view of viewer.
// Call Load (or Run) before using verbs.
func New(s Store, viewer ir.ActorID, opts ...Option) *Engine {
	e := &Engine{
		store:         s,
		viewer:        viewer,
		logger:        slog.Default(),
		now:           time.Now,
		submitTimeout: DefaultSubmitTimeout,
		queue:         newEventQueue(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.cell = newViewCell(NewClock(), e.metrics.Generation)
	return e
}

// Viewer returns the actor whose view the engine maintains.
func (e *Engine) Viewer() ir.ActorID { return e.viewer }

// View returns a copy of the current view, or nil before the first load.
func (e *Engine) View() *view.DerivedView {
	v, _ := e.cell.current()
	return v.Clone()
}

// Generation returns the generation of the current view.
func (e *Engine) Generation() int64 {
	_, gen := e.cell.current()
	return gen
}

// Subscribe returns a channel of view publications and a cancel function.
// The channel holds up to buffer updates; a slow reader loses older updates
// but always receives the newest one.
func (e *Engine) Subscribe(buffer int) (<-chan Update, func()) {
	return e.cell.subscribe(buffer)
}

// Load reads the stores and publishes the first view.
// It may also be called at any time to force a synchronous refresh.
func (e *Engine) Load(ctx context.Context) error {
	err := e.refresh(ctx, "load")
	if errors.Is(err, errSuperseded) || errors.Is(err, errInFlight) {
		// A verb owns or replaced the view; its settle refreshes.
		return nil
	}
	return err
}

// RequestRefresh asks the Run loop to re-read the stores.
// Returns false if the engine has stopped.
func (e *Engine) RequestRefresh() bool {
	return e.queue.Enqueue(Event{Type: EventTypeRefresh, Trigger: "manual"})
}

// Settle blocks until every event queued before the call, and any refresh
// they cause, has been processed by Run.
func (e *Engine) Settle(ctx context.Context) error {
	done := make(chan struct{})
	if !e.queue.Enqueue(Event{Type: EventTypeBarrier, Done: done}) {
		return ErrStopped
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Run starts the reconciliation loop.
// Blocks until ctx is cancelled or Stop() is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// ERROR HANDLING: a failed refresh is logged and reported to subscribers;
// the loop continues with the last good view.
func (e *Engine) Run(ctx context.Context) error {
	changes, err := e.store.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to store: %w", err)
	}
	go e.forward(ctx, changes)

	if v, _ := e.cell.current(); v == nil {
		e.queue.Enqueue(Event{Type: EventTypeRefresh, Trigger: "load"})
	}

	e.logger.Info("engine starting", "viewer", e.viewer)

	for {
		event, ok := e.queue.TryDequeue()
		if ok {
			if err := e.processEvent(ctx, event); err != nil {
				logEventError(e.logger, event, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.Len() == 0 && e.queue.IsClosed() {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the engine.
// Closes the event queue, which will cause Run() to return.
func (e *Engine) Stop() {
	e.queue.Close()
}

// forward moves store notifications onto the event queue.
func (e *Engine) forward(ctx context.Context, changes <-chan ir.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			if !e.queue.Enqueue(Event{Type: EventTypeChange, Change: c}) {
				return
			}
		}
	}
}

func logEventError(logger *slog.Logger, ev Event, err error) {
	attrs := []any{"type", ev.Type, "error", err}
	switch ev.Type {
	case EventTypeChange:
		attrs = append(attrs, "log", ev.Change.Log, "op", ev.Change.Op)
	case EventTypeSettled:
		attrs = append(attrs, "verb", ev.Verb)
	case EventTypeRefresh:
		attrs = append(attrs, "trigger", ev.Trigger)
	}
	logger.Error("event processing failed", attrs...)
}
