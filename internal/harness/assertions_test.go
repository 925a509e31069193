package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/view"
)

func literal(name string) ir.CandidateID { return ir.CandidateID(name) }

func intPtr(n int) *int { return &n }
func boolPtr(b bool) *bool { return &b }

// sampleView: dune nominated by alice with bob's 2, emma nominated by bob,
// odyssey scheduled on 2026-01-10.
func sampleView() *view.DerivedView {
	return view.Aggregate(view.Inputs{
		Viewer: "bob",
		Today:  "2026-01-05",
		Snapshot: ir.Snapshot{
			Candidates: []ir.CandidateItem{
				{ID: "dune", Title: "Dune", ProposedBy: "alice"},
				{ID: "emma", Title: "Emma", ProposedBy: "bob"},
				{ID: "odyssey", Title: "Odyssey", ProposedBy: "carol"},
			},
			Nominations: []ir.NominationRecord{
				{ID: "n1", ActorID: "alice", CandidateID: "dune", Seq: 1},
				{ID: "n2", ActorID: "bob", CandidateID: "emma", Seq: 2},
			},
			Scores: []ir.ScoreRecord{
				{ID: "s1", ActorID: "bob", CandidateID: "dune", Weight: ir.WeightTwo, Seq: 3},
			},
			Schedulings: []ir.SchedulingRecord{
				{ID: "p1", CandidateID: "odyssey", ScheduledDate: "2026-01-10", Seq: 4},
			},
		},
	})
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	assertions := []Assertion{
		{Type: AssertRanking, Candidates: []string{"dune", "emma"}},
		{Type: AssertTotal, Candidate: "dune", Total: intPtr(2)},
		{Type: AssertUsed, Candidates: []string{"odyssey"}},
		{Type: AssertActiveNomination, Actor: "alice", Candidate: "dune"},
		{Type: AssertActiveNomination, Actor: "carol"},
		{Type: AssertUsedWeights, Actor: "bob", Weights: []int{2}},
		{Type: AssertCan, Verb: ActionScore, Actor: "bob", Candidate: "dune", Weight: 1, Allowed: boolPtr(false)},
		{Type: AssertCan, Verb: ActionScore, Actor: "carol", Candidate: "emma", Weight: 1, Allowed: boolPtr(true)},
		{Type: AssertCan, Verb: ActionNominate, Actor: "carol", Candidate: "odyssey", Allowed: boolPtr(false)},
		{Type: AssertCan, Verb: ActionWithdraw, Actor: "bob", Allowed: boolPtr(true)},
		{Type: AssertCan, Verb: ActionRetractScore, Actor: "bob", Candidate: "dune", Allowed: boolPtr(true)},
		{Type: AssertCan, Verb: ActionReset, Actor: "carol", Allowed: boolPtr(false)},
		{Type: AssertUpcoming, Candidate: "odyssey", Date: "2026-01-10"},
	}
	assert.Empty(t, EvaluateAssertions(sampleView(), assertions, literal))
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{"ranking", Assertion{Type: AssertRanking, Candidates: []string{"emma", "dune"}}, "ranking [emma dune]"},
		{"total", Assertion{Type: AssertTotal, Candidate: "emma", Total: intPtr(3)}, "emma total 0"},
		{"used", Assertion{Type: AssertUsed}, "used [odyssey]"},
		{"active nomination", Assertion{Type: AssertActiveNomination, Actor: "bob"}, `bob nominating "emma"`},
		{"used weights", Assertion{Type: AssertUsedWeights, Actor: "bob", Weights: []int{1, 2}}, "bob used weights [2]"},
		{"can", Assertion{Type: AssertCan, Verb: ActionScore, Actor: "alice", Candidate: "dune", Weight: 1, Allowed: boolPtr(true)}, "Actual: false"},
		{"no upcoming", Assertion{Type: AssertUpcoming}, "odyssey on 2026-01-10"},
		{"upcoming date", Assertion{Type: AssertUpcoming, Candidate: "odyssey", Date: "2026-01-11"}, "Expected: odyssey on 2026-01-11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleView(), []Assertion{tt.assertion}, literal)
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], "assertions[0]: Assertion failed: "+tt.assertion.Type)
			assert.Contains(t, errs[0], tt.want)
		})
	}
}

func TestEvaluateAssertions_ResolvesAliases(t *testing.T) {
	aliases := map[string]ir.CandidateID{"book-a": "dune"}
	resolve := func(name string) ir.CandidateID {
		if id, ok := aliases[name]; ok {
			return id
		}
		return ir.CandidateID(name)
	}
	errs := EvaluateAssertions(sampleView(), []Assertion{
		{Type: AssertRanking, Candidates: []string{"book-a", "emma"}},
		{Type: AssertTotal, Candidate: "book-a", Total: intPtr(2)},
	}, resolve)
	assert.Empty(t, errs)
}

func TestAssertionError_IncludesRanking(t *testing.T) {
	err := &AssertionError{Type: AssertTotal, Expected: "a", Actual: "b", Ranking: []string{"dune", "emma"}}
	assert.Contains(t, err.Error(), "Ranking: dune, emma")
}
