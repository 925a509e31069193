package view

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/shortlist/internal/ir"
)

// ViolationKind names a broken consistency rule.
type ViolationKind string

const (
	RetiredCandidateActive    ViolationKind = "retired_candidate_active"
	MultipleActiveNominations ViolationKind = "multiple_active_nominations"
	DuplicateWeight           ViolationKind = "duplicate_weight"
	SelfScore                 ViolationKind = "self_score"
	TotalMismatch             ViolationKind = "total_mismatch"
	RankingOrder              ViolationKind = "ranking_order"
	RankingMembership         ViolationKind = "ranking_membership"
)

// Violation describes one inconsistency found in a view or snapshot.
type Violation struct {
	Kind      ViolationKind  `json:"kind"`
	Actor     ir.ActorID     `json:"actor,omitempty"`
	Candidate ir.CandidateID `json:"candidate,omitempty"`
	Detail    string         `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Kind, v.Detail)
}

// Check verifies a derived view against the rules Aggregate guarantees:
// retired candidates are inert, totals match their records, and the ranking
// is a stable descending sort of the nominations.
func Check(v *DerivedView) []Violation {
	var out []Violation

	for _, c := range slices.Sorted(maps.Keys(v.Nominations)) {
		if v.Used[c] {
			out = append(out, Violation{Kind: RetiredCandidateActive, Candidate: c,
				Detail: fmt.Sprintf("retired candidate %s is actively nominated", c)})
		}
	}
	for _, c := range v.scoredCandidates() {
		if v.Used[c] {
			out = append(out, Violation{Kind: RetiredCandidateActive, Candidate: c,
				Detail: fmt.Sprintf("retired candidate %s holds active scores", c)})
		}
	}

	if len(v.Ranked) != len(v.NominationOrder) || len(v.Nominations) != len(v.NominationOrder) {
		out = append(out, Violation{Kind: RankingMembership,
			Detail: fmt.Sprintf("%d ranked, %d nominations, %d in order", len(v.Ranked), len(v.Nominations), len(v.NominationOrder))})
	}

	pos := make(map[ir.CandidateID]int, len(v.NominationOrder))
	for i, c := range v.NominationOrder {
		pos[c] = i
	}
	for i, r := range v.Ranked {
		if _, ok := v.Nominations[r.CandidateID]; !ok {
			out = append(out, Violation{Kind: RankingMembership, Candidate: r.CandidateID,
				Detail: fmt.Sprintf("ranked candidate %s is not nominated", r.CandidateID)})
		}
		if want := v.TotalWeight(r.CandidateID); r.TotalWeight != want {
			out = append(out, Violation{Kind: TotalMismatch, Candidate: r.CandidateID,
				Detail: fmt.Sprintf("total %d, records sum to %d", r.TotalWeight, want)})
		}
		if i == 0 {
			continue
		}
		prev := v.Ranked[i-1]
		if prev.TotalWeight < r.TotalWeight ||
			(prev.TotalWeight == r.TotalWeight && pos[prev.CandidateID] > pos[r.CandidateID]) {
			out = append(out, Violation{Kind: RankingOrder, Candidate: r.CandidateID,
				Detail: fmt.Sprintf("%s ranked after %s", r.CandidateID, prev.CandidateID)})
		}
	}
	return out
}

// Audit inspects raw store contents for states the eligibility rules forbid
// but the stores do not prevent: several active nominations by one actor,
// two active scores of the same weight, and scores on one's own nomination.
func Audit(snap ir.Snapshot) []Violation {
	used := make(map[ir.CandidateID]bool, len(snap.Schedulings))
	for _, s := range snap.Schedulings {
		used[s.CandidateID] = true
	}

	var out []Violation
	active := make(map[ir.ActorID][]ir.CandidateID)
	var actors []ir.ActorID
	for _, n := range snap.Nominations {
		if used[n.CandidateID] {
			continue
		}
		if _, seen := active[n.ActorID]; !seen {
			actors = append(actors, n.ActorID)
		}
		active[n.ActorID] = append(active[n.ActorID], n.CandidateID)
	}
	for _, a := range actors {
		if cs := active[a]; len(cs) > 1 {
			out = append(out, Violation{Kind: MultipleActiveNominations, Actor: a,
				Detail: fmt.Sprintf("%s holds %d active nominations", a, len(cs))})
		}
	}

	type actorWeight struct {
		actor  ir.ActorID
		weight ir.Weight
	}
	seen := make(map[actorWeight]bool)
	for _, s := range snap.Scores {
		if used[s.CandidateID] {
			continue
		}
		key := actorWeight{s.ActorID, s.Weight}
		if seen[key] {
			out = append(out, Violation{Kind: DuplicateWeight, Actor: s.ActorID, Candidate: s.CandidateID,
				Detail: fmt.Sprintf("%s holds more than one active weight-%d score", s.ActorID, s.Weight)})
		}
		seen[key] = true

		if cs := active[s.ActorID]; len(cs) > 0 && slices.Contains(cs, s.CandidateID) {
			out = append(out, Violation{Kind: SelfScore, Actor: s.ActorID, Candidate: s.CandidateID,
				Detail: fmt.Sprintf("%s scored their own nomination %s", s.ActorID, s.CandidateID)})
		}
	}
	return out
}
