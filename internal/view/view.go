package view

import (
	"maps"
	"reflect"
	"slices"

	"github.com/roach88/shortlist/internal/ir"
)

// Breakdown counts the scores behind a total.
type Breakdown struct {
	Ones int `json:"ones"`
	Twos int `json:"twos"`
}

// RankedCandidate is one row of the ranking.
type RankedCandidate struct {
	CandidateID ir.CandidateID `json:"candidate_id"`
	Title       string         `json:"title"`
	Nominator   ir.ActorID     `json:"nominator"`
	Note        string         `json:"note,omitempty"`
	TotalWeight int            `json:"total_weight"`
	Breakdown   Breakdown      `json:"breakdown"`
}

// ActorState is the viewer's own standing.
// ActiveCandidate is empty when the viewer holds no active nomination.
type ActorState struct {
	Actor           ir.ActorID                   `json:"actor"`
	ActiveCandidate ir.CandidateID               `json:"active_candidate,omitempty"`
	UsedWeights     []ir.Weight                  `json:"used_weights"`
	Scored          map[ir.CandidateID]ir.Weight `json:"scored"`
}

// HasNomination reports whether the actor holds an active nomination.
func (a ActorState) HasNomination() bool { return a.ActiveCandidate != "" }

// WeightUsed reports whether w is already spent on an active score.
func (a ActorState) WeightUsed(w ir.Weight) bool {
	return slices.Contains(a.UsedWeights, w)
}

// DerivedView is the computed state of the group for one viewer.
//
// A published DerivedView is never modified. Functions that change it return
// a new value.
type DerivedView struct {
	Viewer ir.ActorID
	Today  string

	// Used holds every candidate that appears in the scheduling log.
	Used map[ir.CandidateID]bool

	// Nominations maps each actively nominated candidate to its nomination.
	Nominations map[ir.CandidateID]ir.NominationRecord

	// NominationOrder lists the keys of Nominations in first-observed order.
	NominationOrder []ir.CandidateID

	// Scores holds every score on a non-used candidate, in first-observed order.
	Scores map[ir.CandidateID][]ir.ScoreRecord

	Ranked []RankedCandidate
	Actor  ActorState

	// Candidates indexes the registry; Registry keeps its order.
	Candidates map[ir.CandidateID]ir.CandidateItem
	Registry   []ir.CandidateID

	// Upcoming is the earliest scheduling on or after Today.
	Upcoming *ir.SchedulingRecord

	// Latest is the most recently recorded scheduling.
	Latest *ir.SchedulingRecord
}

// IsUsed reports whether the candidate has been scheduled.
func (v *DerivedView) IsUsed(c ir.CandidateID) bool {
	return v.Used[c]
}

// ActiveNominationOf returns the actor's active nomination, if any.
func (v *DerivedView) ActiveNominationOf(actor ir.ActorID) (ir.NominationRecord, bool) {
	for _, c := range v.NominationOrder {
		if n := v.Nominations[c]; n.ActorID == actor {
			return n, true
		}
	}
	return ir.NominationRecord{}, false
}

// ScoresBy returns the actor's active scores in first-observed order.
func (v *DerivedView) ScoresBy(actor ir.ActorID) []ir.ScoreRecord {
	var out []ir.ScoreRecord
	for _, c := range v.scoredCandidates() {
		for _, s := range v.Scores[c] {
			if s.ActorID == actor {
				out = append(out, s)
			}
		}
	}
	slices.SortStableFunc(out, func(a, b ir.ScoreRecord) int { return compareSeq(a.Seq, b.Seq) })
	return out
}

// ScoreOf returns the actor's active score on a candidate, if any.
func (v *DerivedView) ScoreOf(actor ir.ActorID, c ir.CandidateID) (ir.ScoreRecord, bool) {
	for _, s := range v.Scores[c] {
		if s.ActorID == actor {
			return s, true
		}
	}
	return ir.ScoreRecord{}, false
}

// UsedWeightsOf returns the distinct weights the actor has spent, ascending.
func (v *DerivedView) UsedWeightsOf(actor ir.ActorID) []ir.Weight {
	used := []ir.Weight{}
	for _, s := range v.ScoresBy(actor) {
		if !slices.Contains(used, s.Weight) {
			used = append(used, s.Weight)
		}
	}
	slices.Sort(used)
	return used
}

// TotalWeight sums the active scores on a candidate.
func (v *DerivedView) TotalWeight(c ir.CandidateID) int {
	total := 0
	for _, s := range v.Scores[c] {
		total += int(s.Weight)
	}
	return total
}

// Clone returns a deep copy. Nil maps and slices stay nil.
func (v *DerivedView) Clone() *DerivedView {
	if v == nil {
		return nil
	}
	out := *v
	out.Used = maps.Clone(v.Used)
	out.Nominations = maps.Clone(v.Nominations)
	out.NominationOrder = slices.Clone(v.NominationOrder)
	if v.Scores != nil {
		out.Scores = make(map[ir.CandidateID][]ir.ScoreRecord, len(v.Scores))
		for c, ss := range v.Scores {
			out.Scores[c] = slices.Clone(ss)
		}
	}
	out.Ranked = slices.Clone(v.Ranked)
	out.Actor.UsedWeights = slices.Clone(v.Actor.UsedWeights)
	out.Actor.Scored = maps.Clone(v.Actor.Scored)
	out.Candidates = maps.Clone(v.Candidates)
	out.Registry = slices.Clone(v.Registry)
	if v.Upcoming != nil {
		up := *v.Upcoming
		out.Upcoming = &up
	}
	if v.Latest != nil {
		last := *v.Latest
		out.Latest = &last
	}
	return &out
}

// Equal reports whether two views hold the same values.
func (v *DerivedView) Equal(other *DerivedView) bool {
	return reflect.DeepEqual(v, other)
}

// scoredCandidates returns the keys of Scores in a stable order.
func (v *DerivedView) scoredCandidates() []ir.CandidateID {
	keys := slices.Collect(maps.Keys(v.Scores))
	slices.Sort(keys)
	return keys
}

func compareSeq(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
