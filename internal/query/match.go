package query

import (
	"fmt"

	"github.com/roach88/shortlist/internal/ir"
)

// Matches evaluates p against a record without a database.
func Matches(rec ir.Record, p Predicate) (bool, error) {
	if err := Validate(rec.Kind(), p); err != nil {
		return false, err
	}
	return matches(columns(rec), p), nil
}

func matches(cols map[string]any, p Predicate) bool {
	switch pred := p.(type) {
	case Eq:
		v, _ := normalize(pred.Value)
		return cols[pred.Field] == v
	case And:
		for _, sub := range pred.Predicates {
			if !matches(cols, sub) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// columns projects a record onto its filterable columns using the
// normalized value types.
func columns(rec ir.Record) map[string]any {
	switch r := rec.(type) {
	case ir.CandidateItem:
		return map[string]any{"id": string(r.ID), "proposed_by": string(r.ProposedBy), "category": r.Category}
	case ir.NominationRecord:
		return map[string]any{"id": r.ID, "actor_id": string(r.ActorID), "candidate_id": string(r.CandidateID)}
	case ir.ScoreRecord:
		return map[string]any{"id": r.ID, "actor_id": string(r.ActorID), "candidate_id": string(r.CandidateID), "weight": int64(r.Weight)}
	case ir.SchedulingRecord:
		return map[string]any{"id": r.ID, "candidate_id": string(r.CandidateID), "scheduled_date": r.ScheduledDate}
	default:
		panic(fmt.Sprintf("query: unknown record type %T", rec))
	}
}
