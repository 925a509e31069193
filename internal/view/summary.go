package view

import (
	"maps"
	"slices"

	"github.com/roach88/shortlist/internal/ir"
)

// Summary is the JSON projection of a view used by the CLI.
type Summary struct {
	Viewer   ir.ActorID           `json:"viewer"`
	Used     []ir.CandidateID     `json:"used"`
	Ranked   []RankedCandidate    `json:"ranked"`
	Actor    ActorState           `json:"actor"`
	Upcoming *ir.SchedulingRecord `json:"upcoming,omitempty"`
}

// Summarize projects v for display.
func Summarize(v *DerivedView) Summary {
	return Summary{
		Viewer:   v.Viewer,
		Used:     UsedIDs(v),
		Ranked:   slices.Clone(v.Ranked),
		Actor:    v.Actor,
		Upcoming: v.Upcoming,
	}
}

// UsedIDs returns the used candidates sorted by id.
func UsedIDs(v *DerivedView) []ir.CandidateID {
	ids := slices.Collect(maps.Keys(v.Used))
	slices.Sort(ids)
	if ids == nil {
		ids = []ir.CandidateID{}
	}
	return ids
}

// Canonical returns the order-sensitive content of v as a canonical JSON tree.
// Timestamps and titles are left out: two views with equal Canonical forms
// agree on every rule-relevant fact.
func Canonical(v *DerivedView) map[string]any {
	used := make([]any, 0, len(v.Used))
	for _, c := range UsedIDs(v) {
		used = append(used, string(c))
	}

	order := make([]any, len(v.NominationOrder))
	for i, c := range v.NominationOrder {
		order[i] = map[string]any{
			"candidate": string(c),
			"nominator": string(v.Nominations[c].ActorID),
		}
	}

	scores := make(map[string]any, len(v.Scores))
	for c, ss := range v.Scores {
		list := make([]any, len(ss))
		for i, s := range ss {
			list[i] = map[string]any{"actor": string(s.ActorID), "weight": int(s.Weight)}
		}
		scores[string(c)] = list
	}

	ranked := make([]any, len(v.Ranked))
	for i, r := range v.Ranked {
		ranked[i] = map[string]any{
			"candidate": string(r.CandidateID),
			"total":     r.TotalWeight,
			"ones":      r.Breakdown.Ones,
			"twos":      r.Breakdown.Twos,
		}
	}

	weights := make([]any, len(v.Actor.UsedWeights))
	for i, w := range v.Actor.UsedWeights {
		weights[i] = int(w)
	}

	return map[string]any{
		"viewer":      string(v.Viewer),
		"used":        used,
		"nominations": order,
		"scores":      scores,
		"ranked":      ranked,
		"actor": map[string]any{
			"active_candidate": string(v.Actor.ActiveCandidate),
			"used_weights":     weights,
		},
	}
}

// Fingerprint hashes Canonical(v). Aggregating the same snapshot twice must
// produce the same fingerprint.
func Fingerprint(v *DerivedView) (string, error) {
	return ir.Fingerprint(ir.DomainView, Canonical(v))
}
