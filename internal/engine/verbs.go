package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/query"
	"github.com/roach88/shortlist/internal/rules"
	"github.com/roach88/shortlist/internal/view"
)

// pendingSeq orders an optimistic record after every stored one.
const pendingSeq int64 = math.MaxInt64

// Propose adds a candidate to the registry and returns the stored item.
// It is not optimistic: the item appears once the store has assigned its id.
func (e *Engine) Propose(ctx context.Context, actor ir.ActorID, draft ir.CandidateItem) (ir.CandidateItem, error) {
	draft.ProposedBy = actor
	draft.RetractedAt = nil

	var stored ir.CandidateItem
	err := e.runConfirmed(ctx, confirmedVerb{
		name: "propose",
		check: func(*view.DerivedView) *rules.Denial {
			return rules.CheckPropose(e.policy, actor, draft)
		},
		write: func(ctx context.Context) (func(*view.DerivedView) *view.DerivedView, error) {
			rec, err := e.store.Append(ctx, draft)
			if err != nil {
				return nil, err
			}
			stored = rec.(ir.CandidateItem)
			return func(v *view.DerivedView) *view.DerivedView {
				return view.WithCandidate(v, stored)
			}, nil
		},
	})
	return stored, err
}

// Nominate claims a candidate for the actor.
func (e *Engine) Nominate(ctx context.Context, actor ir.ActorID, c ir.CandidateID, note string) error {
	rec := ir.NominationRecord{
		ActorID:     actor,
		CandidateID: c,
		Note:        note,
		CreatedAt:   e.now().UTC(),
		Seq:         pendingSeq,
	}
	return e.runOptimistic(ctx, optimisticVerb{
		name: "nominate",
		check: func(v *view.DerivedView) *rules.Denial {
			return rules.CheckNominate(v, actor, c)
		},
		apply: func(v *view.DerivedView) *view.DerivedView {
			return view.WithNomination(v, rec)
		},
		write: func(ctx context.Context) error {
			_, err := e.store.Append(ctx, ir.NominationRecord{ActorID: actor, CandidateID: c, Note: note})
			return err
		},
	})
}

// WithdrawNomination removes the actor's active nomination.
func (e *Engine) WithdrawNomination(ctx context.Context, actor ir.ActorID) error {
	var target ir.CandidateID
	return e.runOptimistic(ctx, optimisticVerb{
		name: "withdraw",
		check: func(v *view.DerivedView) *rules.Denial {
			if d := rules.CheckWithdrawNomination(v, actor); d != nil {
				return d
			}
			n, _ := v.ActiveNominationOf(actor)
			target = n.CandidateID
			return nil
		},
		apply: func(v *view.DerivedView) *view.DerivedView {
			return view.WithoutNomination(v, actor)
		},
		write: func(ctx context.Context) error {
			_, err := e.store.DeleteWhere(ctx, ir.LogNominations, query.ByActorCandidate(actor, target))
			return err
		},
	})
}

// Score casts a weighted score on a nominated candidate.
func (e *Engine) Score(ctx context.Context, actor ir.ActorID, c ir.CandidateID, w ir.Weight) error {
	rec := ir.ScoreRecord{
		ActorID:     actor,
		CandidateID: c,
		Weight:      w,
		CreatedAt:   e.now().UTC(),
		Seq:         pendingSeq,
	}
	return e.runOptimistic(ctx, optimisticVerb{
		name: "score",
		check: func(v *view.DerivedView) *rules.Denial {
			return rules.CheckScore(v, actor, c, w)
		},
		apply: func(v *view.DerivedView) *view.DerivedView {
			return view.WithScore(v, rec)
		},
		write: func(ctx context.Context) error {
			_, err := e.store.Append(ctx, ir.ScoreRecord{ActorID: actor, CandidateID: c, Weight: w})
			return err
		},
	})
}

// RetractScore removes the actor's score on one candidate.
func (e *Engine) RetractScore(ctx context.Context, actor ir.ActorID, c ir.CandidateID) error {
	return e.runOptimistic(ctx, optimisticVerb{
		name: "retract",
		check: func(v *view.DerivedView) *rules.Denial {
			return rules.CheckRetractScore(v, actor, c)
		},
		apply: func(v *view.DerivedView) *view.DerivedView {
			return view.WithoutScore(v, actor, c)
		},
		write: func(ctx context.Context) error {
			_, err := e.store.DeleteWhere(ctx, ir.LogScores, query.ByActorCandidate(actor, c))
			return err
		},
	})
}

// ResetAllScores removes every score the actor holds in one step.
// The stores are re-read afterwards whether or not the delete succeeded.
func (e *Engine) ResetAllScores(ctx context.Context, actor ir.ActorID) error {
	return e.runOptimistic(ctx, optimisticVerb{
		name: "reset",
		check: func(v *view.DerivedView) *rules.Denial {
			return rules.CheckResetScores(v, actor)
		},
		apply: func(v *view.DerivedView) *view.DerivedView {
			return view.WithoutActorScores(v, actor)
		},
		write: func(ctx context.Context) error {
			_, err := e.store.DeleteWhere(ctx, ir.LogScores, query.ByActor(actor))
			return err
		},
		refreshOnFailure: true,
	})
}

// ConfirmSchedule commits a candidate to a date and retires it.
// Privileged. When clock is empty the policy's default time is used.
func (e *Engine) ConfirmSchedule(ctx context.Context, actor ir.ActorID, c ir.CandidateID, date, clock string) (ir.SchedulingRecord, error) {
	clock = e.scheduleTime(clock)
	return e.schedule(ctx, "schedule", func(v *view.DerivedView) (ir.CandidateID, *rules.Denial) {
		return c, rules.CheckConfirmSchedule(v, e.policy, actor, c, date, clock)
	}, date, clock)
}

// ContinueSchedule schedules the most recently scheduled candidate again on
// a new date. Privileged.
func (e *Engine) ContinueSchedule(ctx context.Context, actor ir.ActorID, date, clock string) (ir.SchedulingRecord, error) {
	clock = e.scheduleTime(clock)
	return e.schedule(ctx, "continue", func(v *view.DerivedView) (ir.CandidateID, *rules.Denial) {
		if d := rules.CheckContinueSchedule(v, e.policy, actor, date, clock); d != nil {
			return "", d
		}
		return v.Latest.CandidateID, nil
	}, date, clock)
}

func (e *Engine) schedule(ctx context.Context, name string, pick func(*view.DerivedView) (ir.CandidateID, *rules.Denial), date, clock string) (ir.SchedulingRecord, error) {
	var (
		target ir.CandidateID
		stored ir.SchedulingRecord
	)
	err := e.runConfirmed(ctx, confirmedVerb{
		name: name,
		check: func(v *view.DerivedView) *rules.Denial {
			c, d := pick(v)
			target = c
			return d
		},
		write: func(ctx context.Context) (func(*view.DerivedView) *view.DerivedView, error) {
			rec, err := e.store.Append(ctx, ir.SchedulingRecord{
				CandidateID:   target,
				ScheduledDate: date,
				ScheduledTime: clock,
			})
			if err != nil {
				return nil, err
			}
			stored = rec.(ir.SchedulingRecord)
			return func(v *view.DerivedView) *view.DerivedView {
				return view.WithScheduling(v, stored)
			}, nil
		},
	})
	return stored, err
}

func (e *Engine) scheduleTime(clock string) string {
	if clock == "" && e.policy != nil {
		return e.policy.DefaultScheduleTime()
	}
	return clock
}

// RetractCandidate soft deletes a candidate. Privileged.
func (e *Engine) RetractCandidate(ctx context.Context, actor ir.ActorID, c ir.CandidateID) error {
	return e.setRetracted(ctx, actor, c, true)
}

// RestoreCandidate undoes RetractCandidate. Privileged.
func (e *Engine) RestoreCandidate(ctx context.Context, actor ir.ActorID, c ir.CandidateID) error {
	return e.setRetracted(ctx, actor, c, false)
}

func (e *Engine) setRetracted(ctx context.Context, actor ir.ActorID, c ir.CandidateID, retract bool) error {
	name := "restore_candidate"
	if retract {
		name = "retract_candidate"
	}
	var item ir.CandidateItem
	return e.runConfirmed(ctx, confirmedVerb{
		name: name,
		check: func(v *view.DerivedView) *rules.Denial {
			item = v.Candidates[c]
			return rules.CheckRetractCandidate(v, e.policy, actor, c, retract)
		},
		write: func(ctx context.Context) (func(*view.DerivedView) *view.DerivedView, error) {
			if err := e.store.SetRetracted(ctx, c, retract); err != nil {
				return nil, err
			}
			item.RetractedAt = nil
			if retract {
				at := e.now().UTC()
				item.RetractedAt = &at
			}
			return func(v *view.DerivedView) *view.DerivedView {
				return view.WithCandidate(v, item)
			}, nil
		},
	})
}

// PurgeCandidate hard deletes a candidate that was never scheduled and is not
// nominated. Privileged.
func (e *Engine) PurgeCandidate(ctx context.Context, actor ir.ActorID, c ir.CandidateID) error {
	return e.runConfirmed(ctx, confirmedVerb{
		name: "purge",
		check: func(v *view.DerivedView) *rules.Denial {
			return rules.CheckPurgeCandidate(v, e.policy, actor, c)
		},
		write: func(ctx context.Context) (func(*view.DerivedView) *view.DerivedView, error) {
			n, err := e.store.DeleteWhere(ctx, ir.LogCandidates, query.ByID(string(c)))
			if err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, &rules.Denial{
					Rule:      "purge",
					Reason:    rules.ReasonUnknownCandidate,
					Actor:     actor,
					Candidate: c,
					Message:   fmt.Sprintf("candidate %s does not exist", c),
				}
			}
			return func(v *view.DerivedView) *view.DerivedView {
				return view.WithoutCandidate(v, c)
			}, nil
		},
	})
}

// ResetEveryonesScores deletes every score in the group. Privileged.
func (e *Engine) ResetEveryonesScores(ctx context.Context, actor ir.ActorID) error {
	return e.runConfirmed(ctx, confirmedVerb{
		name: "reset_everyone",
		check: func(*view.DerivedView) *rules.Denial {
			return rules.CheckPrivileged(e.policy, "reset_everyone", actor)
		},
		write: func(ctx context.Context) (func(*view.DerivedView) *view.DerivedView, error) {
			if _, err := e.store.DeleteWhere(ctx, ir.LogScores, query.True{}); err != nil {
				return nil, err
			}
			return view.WithoutAnyScores, nil
		},
	})
}
