package engine

import (
	"context"
	"errors"

	"github.com/roach88/shortlist/internal/rules"
	"github.com/roach88/shortlist/internal/view"
)

// optimisticVerb describes one optimistic mutation.
type optimisticVerb struct {
	name  string
	check func(*view.DerivedView) *rules.Denial
	apply func(*view.DerivedView) *view.DerivedView
	write func(context.Context) error

	// refreshOnFailure requests a refresh even when the write failed.
	refreshOnFailure bool
}

// runOptimistic publishes the predicted view, submits the write and resolves.
//
// Protocol:
//  1. Check eligibility against the current view; denials publish nothing.
//  2. Publish apply(before) and mark the verb in flight.
//  3. Submit. On failure restore before, unless something newer was
//     published meanwhile.
//  4. Clear in-flight and post a settle event so Run replays any deferred
//     notification and, on success, refreshes.
func (e *Engine) runOptimistic(ctx context.Context, verb optimisticVerb) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mutMu.Lock()
	defer e.mutMu.Unlock()

	before, _ := e.cell.current()
	if before == nil {
		return ErrNotLoaded
	}
	if d := verb.check(before); d != nil {
		return validationError(verb.name, d)
	}

	e.inFlight.Store(true)
	gen := e.cell.publish(verb.apply(before), SourceOptimistic, nil)
	e.metrics.OptimisticApply(verb.name)
	e.logger.Debug("optimistic apply", "verb", verb.name, "generation", gen)

	if err := e.submit(ctx, verb.write); err != nil {
		if rolled, ok := e.cell.publishIf(gen, before, SourceRollback, nil); ok {
			e.metrics.Rollback(verb.name)
			e.logger.Warn("submit failed, rolled back",
				"verb", verb.name,
				"generation", rolled,
				"error", err,
			)
		} else {
			e.logger.Warn("submit failed, newer view kept",
				"verb", verb.name,
				"current", rolled,
				"error", err,
			)
		}
		e.settle(verb.name, verb.refreshOnFailure)
		return storeFailure(verb.name, err)
	}

	e.settle(verb.name, true)
	return nil
}

// confirmedVerb describes a mutation that is only shown once the store has
// accepted it.
type confirmedVerb struct {
	name  string
	check func(*view.DerivedView) *rules.Denial

	// write submits and returns how to fold the confirmed write into the view.
	// A *rules.Denial returned from write is reported as a validation error.
	write func(context.Context) (func(*view.DerivedView) *view.DerivedView, error)
}

// runConfirmed checks, submits, then publishes the confirmed change.
// Notifications arriving during the write are deferred as for optimistic
// verbs.
func (e *Engine) runConfirmed(ctx context.Context, verb confirmedVerb) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mutMu.Lock()
	defer e.mutMu.Unlock()

	before, _ := e.cell.current()
	if before == nil {
		return ErrNotLoaded
	}
	if d := verb.check(before); d != nil {
		return validationError(verb.name, d)
	}

	e.inFlight.Store(true)
	var apply func(*view.DerivedView) *view.DerivedView
	err := e.submit(ctx, func(ctx context.Context) error {
		var err error
		apply, err = verb.write(ctx)
		return err
	})
	if err != nil {
		e.settle(verb.name, false)
		var d *rules.Denial
		if errors.As(err, &d) {
			return validationError(verb.name, d)
		}
		e.logger.Warn("submit failed", "verb", verb.name, "error", err)
		return storeFailure(verb.name, err)
	}

	if gen, ok := e.cell.update(apply, SourceConfirmed); ok {
		e.logger.Debug("confirmed apply", "verb", verb.name, "generation", gen)
	}
	e.settle(verb.name, true)
	return nil
}

// submit runs write without the caller's cancellation, bounded by the
// submit timeout. The write always resolves, even if the caller has gone.
func (e *Engine) submit(ctx context.Context, write func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.submitTimeout)
	defer cancel()
	return write(ctx)
}

// settle clears the in-flight mark and hands resolution to the Run loop.
func (e *Engine) settle(verb string, refresh bool) {
	e.inFlight.Store(false)
	e.queue.Enqueue(Event{Type: EventTypeSettled, Verb: verb, Refresh: refresh})
}
