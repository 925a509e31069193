package view

import (
	"slices"
	"sort"

	"github.com/roach88/shortlist/internal/ir"
)

// Inputs is everything Aggregate reads.
// Today is a YYYY-MM-DD date used only to pick the upcoming scheduling.
type Inputs struct {
	Snapshot ir.Snapshot
	Viewer   ir.ActorID
	Today    string
}

// Aggregate derives the current view from a consistent snapshot of the stores.
//
// Steps:
//  1. Used = every candidate in the scheduling log.
//  2. Nominations on used candidates are ignored; of the rest, each actor's
//     last nomination survives, and each candidate keeps its first surviving one.
//  3. Scores on used candidates are ignored; the rest are grouped by candidate.
//  4. Nominated candidates are ranked by total weight with a stable sort.
//  5. The viewer's own state is read off the filtered sets.
//
// The result depends only on in. It runs in time linear in the snapshot size
// apart from the final sort.
func Aggregate(in Inputs) *DerivedView {
	snap := in.Snapshot
	v := &DerivedView{
		Viewer:          in.Viewer,
		Today:           in.Today,
		Used:            make(map[ir.CandidateID]bool, len(snap.Schedulings)),
		Nominations:     make(map[ir.CandidateID]ir.NominationRecord),
		NominationOrder: []ir.CandidateID{},
		Scores:          make(map[ir.CandidateID][]ir.ScoreRecord),
		Candidates:      make(map[ir.CandidateID]ir.CandidateItem, len(snap.Candidates)),
		Registry:        make([]ir.CandidateID, 0, len(snap.Candidates)),
	}

	for _, c := range snap.Candidates {
		v.Candidates[c.ID] = c
		v.Registry = append(v.Registry, c.ID)
	}

	for i := range snap.Schedulings {
		s := snap.Schedulings[i]
		v.Used[s.CandidateID] = true
		v.Latest = &s
	}
	v.Upcoming = upcoming(snap.Schedulings, in.Today)

	// Last writer per actor. Normally at most one survives per actor anyway.
	latest := make(map[ir.ActorID]int)
	for i, n := range snap.Nominations {
		if v.Used[n.CandidateID] {
			continue
		}
		latest[n.ActorID] = i
	}
	for i, n := range snap.Nominations {
		if v.Used[n.CandidateID] || latest[n.ActorID] != i {
			continue
		}
		if _, taken := v.Nominations[n.CandidateID]; taken {
			continue
		}
		v.Nominations[n.CandidateID] = n
		v.NominationOrder = append(v.NominationOrder, n.CandidateID)
	}

	for _, s := range snap.Scores {
		if v.Used[s.CandidateID] {
			continue
		}
		v.Scores[s.CandidateID] = append(v.Scores[s.CandidateID], s)
	}

	v.rederive()
	return v
}

// rederive recomputes Ranked and Actor from the active sets.
func (v *DerivedView) rederive() {
	v.Ranked = rank(v)
	v.Actor = actorState(v, v.Viewer)
}

func rank(v *DerivedView) []RankedCandidate {
	ranked := make([]RankedCandidate, 0, len(v.NominationOrder))
	for _, c := range v.NominationOrder {
		n := v.Nominations[c]
		row := RankedCandidate{
			CandidateID: c,
			Title:       v.Candidates[c].Title,
			Nominator:   n.ActorID,
			Note:        n.Note,
		}
		for _, s := range v.Scores[c] {
			row.TotalWeight += int(s.Weight)
			switch s.Weight {
			case ir.WeightOne:
				row.Breakdown.Ones++
			case ir.WeightTwo:
				row.Breakdown.Twos++
			}
		}
		ranked = append(ranked, row)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalWeight > ranked[j].TotalWeight
	})
	return ranked
}

func actorState(v *DerivedView, actor ir.ActorID) ActorState {
	st := ActorState{
		Actor:       actor,
		UsedWeights: v.UsedWeightsOf(actor),
		Scored:      make(map[ir.CandidateID]ir.Weight),
	}
	if n, ok := v.ActiveNominationOf(actor); ok {
		st.ActiveCandidate = n.CandidateID
	}
	for _, s := range v.ScoresBy(actor) {
		st.Scored[s.CandidateID] = s.Weight
	}
	return st
}

// upcoming returns the earliest scheduling dated on or after today.
// Equal dates fall back to time of day, then to log order.
func upcoming(schedulings []ir.SchedulingRecord, today string) *ir.SchedulingRecord {
	if today == "" {
		return nil
	}
	var best *ir.SchedulingRecord
	for i := range schedulings {
		s := schedulings[i]
		if s.ScheduledDate < today {
			continue
		}
		if best == nil || s.ScheduledDate < best.ScheduledDate ||
			(s.ScheduledDate == best.ScheduledDate && s.ScheduledTime < best.ScheduledTime) {
			best = &s
		}
	}
	return best
}

// Browse returns the proposable pool: registry items that are neither used
// nor retracted, in registry order. An empty category matches everything.
func Browse(v *DerivedView, category string) []ir.CandidateItem {
	out := []ir.CandidateItem{}
	for _, id := range v.Registry {
		c := v.Candidates[id]
		if v.Used[id] || c.Retracted() {
			continue
		}
		if category != "" && c.Category != category {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Categories lists the distinct non-empty categories of the browse pool, sorted.
func Categories(v *DerivedView) []string {
	var out []string
	for _, c := range Browse(v, "") {
		if c.Category != "" && !slices.Contains(out, c.Category) {
			out = append(out, c.Category)
		}
	}
	slices.Sort(out)
	return out
}
