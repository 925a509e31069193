package view

import (
	"slices"

	"github.com/roach88/shortlist/internal/ir"
)

// WithNomination returns v with rec as the actor's active nomination.
// Any nomination the actor already held is replaced.
func WithNomination(v *DerivedView, rec ir.NominationRecord) *DerivedView {
	next := v.Clone()
	next.dropNomination(rec.ActorID)
	next.Nominations[rec.CandidateID] = rec
	next.NominationOrder = append(next.NominationOrder, rec.CandidateID)
	next.rederive()
	return next
}

// WithoutNomination returns v with the actor's active nomination removed.
func WithoutNomination(v *DerivedView, actor ir.ActorID) *DerivedView {
	next := v.Clone()
	next.dropNomination(actor)
	next.rederive()
	return next
}

// WithScore returns v with rec added to the candidate's active scores.
func WithScore(v *DerivedView, rec ir.ScoreRecord) *DerivedView {
	next := v.Clone()
	next.Scores[rec.CandidateID] = append(next.Scores[rec.CandidateID], rec)
	next.rederive()
	return next
}

// WithoutScore returns v with the actor's scores on one candidate removed.
func WithoutScore(v *DerivedView, actor ir.ActorID, c ir.CandidateID) *DerivedView {
	next := v.Clone()
	next.dropScores(func(s ir.ScoreRecord) bool {
		return s.ActorID == actor && s.CandidateID == c
	})
	next.rederive()
	return next
}

// WithoutActorScores returns v with every active score by actor removed in a
// single step.
func WithoutActorScores(v *DerivedView, actor ir.ActorID) *DerivedView {
	next := v.Clone()
	next.dropScores(func(s ir.ScoreRecord) bool { return s.ActorID == actor })
	next.rederive()
	return next
}

// WithoutAnyScores returns v with no active scores at all.
func WithoutAnyScores(v *DerivedView) *DerivedView {
	next := v.Clone()
	next.dropScores(func(ir.ScoreRecord) bool { return true })
	next.rederive()
	return next
}

func (v *DerivedView) dropNomination(actor ir.ActorID) {
	prev, ok := v.ActiveNominationOf(actor)
	if !ok {
		return
	}
	delete(v.Nominations, prev.CandidateID)
	v.NominationOrder = slices.DeleteFunc(v.NominationOrder, func(c ir.CandidateID) bool {
		return c == prev.CandidateID
	})
}

func (v *DerivedView) dropScores(match func(ir.ScoreRecord) bool) {
	for c, ss := range v.Scores {
		kept := slices.DeleteFunc(ss, match)
		if len(kept) == 0 {
			delete(v.Scores, c)
			continue
		}
		v.Scores[c] = kept
	}
}

// The functions below apply writes the store has already confirmed. They
// let a confirmed change show up before the next full refresh.

// WithCandidate returns v with item added to, or replaced in, the registry.
func WithCandidate(v *DerivedView, item ir.CandidateItem) *DerivedView {
	next := v.Clone()
	if _, ok := next.Candidates[item.ID]; !ok {
		next.Registry = append(next.Registry, item.ID)
	}
	next.Candidates[item.ID] = item
	next.rederive()
	return next
}

// WithoutCandidate returns v with the candidate removed from the registry.
func WithoutCandidate(v *DerivedView, c ir.CandidateID) *DerivedView {
	next := v.Clone()
	delete(next.Candidates, c)
	next.Registry = slices.DeleteFunc(next.Registry, func(id ir.CandidateID) bool { return id == c })
	next.rederive()
	return next
}

// WithScheduling returns v with rec recorded: its candidate becomes used and
// every nomination and score on it turns inert.
func WithScheduling(v *DerivedView, rec ir.SchedulingRecord) *DerivedView {
	next := v.Clone()
	next.Used[rec.CandidateID] = true
	if _, ok := next.Nominations[rec.CandidateID]; ok {
		delete(next.Nominations, rec.CandidateID)
		next.NominationOrder = slices.DeleteFunc(next.NominationOrder, func(c ir.CandidateID) bool {
			return c == rec.CandidateID
		})
	}
	delete(next.Scores, rec.CandidateID)

	latest := rec
	next.Latest = &latest
	if next.Today != "" && rec.ScheduledDate >= next.Today {
		up := next.Upcoming
		if up == nil || rec.ScheduledDate < up.ScheduledDate ||
			(rec.ScheduledDate == up.ScheduledDate && rec.ScheduledTime < up.ScheduledTime) {
			next.Upcoming = &latest
		}
	}
	next.rederive()
	return next
}
