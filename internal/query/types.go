package query

import (
	"fmt"

	"github.com/roach88/shortlist/internal/ir"
)

// Predicate is a filter over the rows of one log.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Eq: field = value
//   - And: all predicates must be true
//   - True: matches every row
type Predicate interface {
	predicateNode()
}

// Eq matches rows whose field equals Value.
// Value must be a string, an int or one of the ir identifier types.
type Eq struct {
	Field string
	Value any
}

func (Eq) predicateNode() {}

// And matches rows that satisfy every predicate. An empty And matches nothing
// and is rejected by Validate; use True to target a whole log.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// True matches every row of a log.
type True struct{}

func (True) predicateNode() {}

// All joins predicates with AND.
func All(preds ...Predicate) And {
	return And{Predicates: preds}
}

// ByID matches a single row by its id.
func ByID(id string) Eq {
	return Eq{Field: "id", Value: id}
}

// ByActor matches every row written by actor.
func ByActor(actor ir.ActorID) Eq {
	return Eq{Field: "actor_id", Value: string(actor)}
}

// ByCandidate matches every row referencing candidate.
func ByCandidate(candidate ir.CandidateID) Eq {
	return Eq{Field: "candidate_id", Value: string(candidate)}
}

// ByActorCandidate matches the rows written by actor about candidate.
func ByActorCandidate(actor ir.ActorID, candidate ir.CandidateID) And {
	return All(ByActor(actor), ByCandidate(candidate))
}

// fields lists the filterable columns of each log.
var fields = map[ir.LogKind]map[string]bool{
	ir.LogCandidates:  {"id": true, "proposed_by": true, "category": true},
	ir.LogNominations: {"id": true, "actor_id": true, "candidate_id": true},
	ir.LogScores:      {"id": true, "actor_id": true, "candidate_id": true, "weight": true},
	ir.LogSchedulings: {"id": true, "candidate_id": true, "scheduled_date": true},
}

// Validate checks that p only names fields of kind and only compares
// supported value types.
func Validate(kind ir.LogKind, p Predicate) error {
	allowed, ok := fields[kind]
	if !ok {
		return fmt.Errorf("unknown log %q", kind)
	}
	return validate(allowed, kind, p)
}

func validate(allowed map[string]bool, kind ir.LogKind, p Predicate) error {
	switch pred := p.(type) {
	case nil:
		return fmt.Errorf("nil predicate")
	case Eq:
		if !allowed[pred.Field] {
			return fmt.Errorf("field %q is not filterable on %s", pred.Field, kind)
		}
		if _, err := normalize(pred.Value); err != nil {
			return fmt.Errorf("field %q: %w", pred.Field, err)
		}
		return nil
	case And:
		if len(pred.Predicates) == 0 {
			return fmt.Errorf("empty AND")
		}
		for i, sub := range pred.Predicates {
			if err := validate(allowed, kind, sub); err != nil {
				return fmt.Errorf("and[%d]: %w", i, err)
			}
		}
		return nil
	case True:
		return nil
	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// normalize maps supported values onto string or int64.
func normalize(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case ir.ActorID:
		return string(val), nil
	case ir.CandidateID:
		return string(val), nil
	case ir.Weight:
		return int64(val), nil
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case nil:
		return nil, fmt.Errorf("NULL comparison is not supported")
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
