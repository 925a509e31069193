package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/rules"
	"github.com/roach88/shortlist/internal/view"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Ranking  []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Ranking) > 0 {
		fmt.Fprintf(&buf, "  Ranking: %s\n", strings.Join(e.Ranking, ", "))
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against v and returns the
// failure messages. resolve maps scenario names to candidate ids.
func EvaluateAssertions(v *view.DerivedView, assertions []Assertion, resolve func(string) ir.CandidateID) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(v, a, resolve); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s", i, err.Error()))
		}
	}
	return errs
}

func evaluate(v *view.DerivedView, a Assertion, resolve func(string) ir.CandidateID) *AssertionError {
	fail := func(expected, actual string) *AssertionError {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Ranking: rankingOf(v)}
	}
	actor := ir.ActorID(a.Actor)
	c := resolve(a.Candidate)

	switch a.Type {
	case AssertRanking:
		want := resolveAll(a.Candidates, resolve)
		if got := rankingOf(v); !slices.Equal(got, want) {
			return fail(fmt.Sprintf("ranking %v", want), fmt.Sprintf("ranking %v", got))
		}

	case AssertTotal:
		if got := v.TotalWeight(c); got != *a.Total {
			return fail(fmt.Sprintf("%s total %d", c, *a.Total), fmt.Sprintf("%s total %d", c, got))
		}

	case AssertUsed:
		want := resolveAll(a.Candidates, resolve)
		slices.Sort(want)
		got := make([]string, 0, len(v.Used))
		for _, id := range view.UsedIDs(v) {
			got = append(got, string(id))
		}
		if !slices.Equal(got, want) {
			return fail(fmt.Sprintf("used %v", want), fmt.Sprintf("used %v", got))
		}

	case AssertActiveNomination:
		n, ok := v.ActiveNominationOf(actor)
		got := ir.CandidateID("")
		if ok {
			got = n.CandidateID
		}
		if a.Candidate == "" {
			c = ""
		}
		if got != c {
			return fail(fmt.Sprintf("%s nominating %q", actor, c), fmt.Sprintf("%s nominating %q", actor, got))
		}

	case AssertUsedWeights:
		got := make([]int, 0, 2)
		for _, w := range v.UsedWeightsOf(actor) {
			got = append(got, int(w))
		}
		want := slices.Clone(a.Weights)
		slices.Sort(got)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			return fail(fmt.Sprintf("%s used weights %v", actor, want), fmt.Sprintf("%s used weights %v", actor, got))
		}

	case AssertCan:
		got := can(v, a.Verb, actor, c, ir.Weight(a.Weight))
		if got != *a.Allowed {
			return fail(fmt.Sprintf("%s may %s %s: %t", actor, a.Verb, c, *a.Allowed), fmt.Sprintf("%t", got))
		}

	case AssertUpcoming:
		if a.Candidate == "" {
			if v.Upcoming != nil {
				return fail("no upcoming scheduling", fmt.Sprintf("%s on %s", v.Upcoming.CandidateID, v.Upcoming.ScheduledDate))
			}
			return nil
		}
		if v.Upcoming == nil {
			return fail(fmt.Sprintf("%s upcoming", c), "no upcoming scheduling")
		}
		if v.Upcoming.CandidateID != c || (a.Date != "" && v.Upcoming.ScheduledDate != a.Date) {
			return fail(fmt.Sprintf("%s on %s", c, a.Date), fmt.Sprintf("%s on %s", v.Upcoming.CandidateID, v.Upcoming.ScheduledDate))
		}

	default:
		return fail("known assertion type", a.Type)
	}
	return nil
}

// can answers the eligibility predicates the UI uses to enable controls.
func can(v *view.DerivedView, verb string, actor ir.ActorID, c ir.CandidateID, w ir.Weight) bool {
	switch verb {
	case ActionNominate:
		return rules.CanNominate(v, actor, c)
	case ActionScore:
		return rules.CanScore(v, actor, c, w)
	case ActionWithdraw:
		return rules.CanWithdrawNomination(v, actor)
	case ActionRetractScore:
		return rules.CanRetractScore(v, actor, c)
	case ActionReset:
		return rules.CanResetScores(v, actor)
	}
	return false
}

func resolveAll(names []string, resolve func(string) ir.CandidateID) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(resolve(n))
	}
	return out
}
