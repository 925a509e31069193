package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/shortlist/internal/ir"
)

// GoldenBytes renders a result as the canonical JSON stored in golden
// files: the trace plus the final view, with no timestamps or record ids.
func GoldenBytes(scenarioName string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, ev := range result.Trace {
		m := map[string]any{
			"step":    ev.Step,
			"action":  ev.Action,
			"outcome": ev.Outcome,
			"ranking": ev.Ranking,
		}
		if ev.Actor != "" {
			m["actor"] = ev.Actor
		}
		if len(ev.Args) > 0 {
			m["args"] = ev.Args
		}
		if ev.Reason != "" {
			m["reason"] = ev.Reason
		}
		trace[i] = m
	}

	snapshot := map[string]any{
		"scenario_name": scenarioName,
		"trace":         trace,
	}
	if result.Final != nil {
		snapshot["final"] = result.Final
	}
	return ir.MarshalCanonical(snapshot)
}

// RunWithGolden executes a scenario and compares its output against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := GoldenBytes(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
