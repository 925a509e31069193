package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/view"
)

// errSuperseded means a refresh lost the compare-and-swap to a newer
// publication.
var errSuperseded = errors.New("refresh superseded")

// errInFlight means a verb owned the view when the refresh started.
var errInFlight = errors.New("verb in flight")

// processEvent routes an event to the appropriate handler.
// CRITICAL: Called only from Run() goroutine.
func (e *Engine) processEvent(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventTypeChange:
		return e.reconcile(ctx, "notification")

	case EventTypeRefresh:
		return e.reconcile(ctx, ev.Trigger)

	case EventTypeSettled:
		if !ev.Refresh && !e.pending {
			return nil
		}
		e.pending = false
		return e.runRefresh(ctx, "settled")

	case EventTypeBarrier:
		// A refresh re-queued behind this barrier must finish first.
		if e.queue.HasWork() {
			e.queue.Enqueue(ev)
			return nil
		}
		close(ev.Done)
		return nil

	default:
		return fmt.Errorf("unknown event type: %d", ev.Type)
	}
}

// reconcile refreshes now, or defers the refresh until the in-flight verb
// settles.
func (e *Engine) reconcile(ctx context.Context, trigger string) error {
	if e.inFlight.Load() {
		e.deferRefresh(trigger)
		return nil
	}
	return e.runRefresh(ctx, trigger)
}

func (e *Engine) deferRefresh(trigger string) {
	if !e.pending {
		e.logger.Debug("refresh deferred while a verb is in flight", "trigger", trigger)
	}
	e.pending = true
	e.metrics.Deferred()
}

// runRefresh refreshes, defers a refresh that found a verb in flight and
// re-requests one that lost to a newer publication.
func (e *Engine) runRefresh(ctx context.Context, trigger string) error {
	err := e.refresh(ctx, trigger)
	if errors.Is(err, errInFlight) {
		e.deferRefresh(trigger)
		return nil
	}
	if !errors.Is(err, errSuperseded) {
		return err
	}
	if e.inFlight.Load() {
		e.pending = true
		return nil
	}
	e.queue.Enqueue(Event{Type: EventTypeRefresh, Trigger: "superseded"})
	return nil
}

// refresh reads a snapshot and publishes the aggregated view, unless
// something was published after the read started.
func (e *Engine) refresh(ctx context.Context, trigger string) error {
	_, start := e.cell.current()
	// Verbs raise inFlight before publishing, so an optimistic view at or
	// below start is visible here until its verb settles.
	if e.inFlight.Load() {
		return errInFlight
	}

	snap, err := e.store.Snapshot(ctx)
	if err != nil {
		err = fmt.Errorf("refresh (%s): %w", trigger, err)
		e.logger.Warn("refresh failed", "trigger", trigger, "error", err)
		e.cell.report(SourceRefresh, storeFailure(trigger, err))
		return err
	}

	next := view.Aggregate(view.Inputs{
		Snapshot: snap,
		Viewer:   e.viewer,
		Today:    e.now().Format(ir.DateLayout),
	})

	var problem error
	violations := append(view.Audit(snap), view.Check(next)...)
	if len(violations) > 0 {
		e.metrics.Inconsistent()
		problem = inconsistency(trigger, violations)
		e.logger.Warn("aggregation inconsistency",
			"trigger", trigger,
			"violations", len(violations),
			"first", violations[0].String(),
		)
	}

	gen, ok := e.cell.publishIf(start, next, SourceRefresh, problem)
	if !ok {
		e.metrics.Superseded()
		e.logger.Debug("refresh superseded", "trigger", trigger, "started_at", start, "current", gen)
		return errSuperseded
	}

	e.metrics.Refresh(trigger)
	e.logger.Debug("view refreshed",
		"trigger", trigger,
		"generation", gen,
		"rows", snap.Len(),
		"ranked", len(next.Ranked),
	)
	return nil
}

func inconsistency(op string, violations []view.Violation) *Error {
	msgs := make([]string, len(violations))
	for i, v := range violations {
		msgs[i] = v.String()
	}
	return &Error{
		Code:    CodeAggregationInconsistency,
		Op:      op,
		Message: strings.Join(msgs, "; "),
		Details: map[string]string{"violations": strconv.Itoa(len(violations))},
	}
}
