package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: "One nomination"
viewer: alice
candidates:
  - { id: dune, title: Dune }
steps:
  - { action: nominate, actor: alice, candidate: dune }
assertions:
  - { type: ranking, candidates: [dune] }
`

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "minimal", scenario.Name)
	assert.Equal(t, "alice", scenario.Viewer)
	require.Len(t, scenario.Candidates, 1)
	assert.Equal(t, "dune", scenario.Candidates[0].ID)
	require.Len(t, scenario.Steps, 1)
	assert.Equal(t, ActionNominate, scenario.Steps[0].Action)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, []string{"dune"}, scenario.Assertions[0].Candidates)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(minimalScenario + "assertion: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Testdata(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	for _, p := range paths {
		_, err := LoadScenario(p)
		assert.NoError(t, err, p)
	}
}

func TestValidateScenario(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Scenario)
		wantErr string
	}{
		{"missing name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"missing description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"missing viewer", func(s *Scenario) { s.Viewer = "" }, "viewer is required"},
		{"bad today", func(s *Scenario) { s.Today = "01/05/2026" }, "today"},
		{"bad default time", func(s *Scenario) { s.Group.DefaultTime = "7pm" }, "default_time"},
		{"no steps", func(s *Scenario) { s.Steps = nil }, "steps list is required"},
		{"no assertions", func(s *Scenario) { s.Assertions = nil }, "assertions list is required"},
		{"candidate without id", func(s *Scenario) { s.Candidates[0].ID = "" }, "candidates[0]: id is required"},
		{"duplicate candidate", func(s *Scenario) {
			s.Candidates = append(s.Candidates, Candidate{ID: "dune", Title: "Dune again"})
		}, "duplicate id"},
		{"unknown action", func(s *Scenario) { s.Steps[0].Action = "vote" }, `unknown action "vote"`},
		{"missing actor", func(s *Scenario) { s.Steps[0].Actor = "" }, "actor is required"},
		{"nominate without candidate", func(s *Scenario) { s.Steps[0].Candidate = "" }, "candidate is required"},
		{"schedule without date", func(s *Scenario) {
			s.Steps[0] = Step{Action: ActionSchedule, Actor: "ada", Candidate: "dune"}
		}, "candidate and date are required"},
		{"reason without denial", func(s *Scenario) { s.Steps[0].Reason = "weight_used" }, "reason requires expect: denied"},
		{"unknown expect", func(s *Scenario) { s.Steps[0].Expect = "maybe" }, `unknown expect "maybe"`},
		{"unknown assertion", func(s *Scenario) { s.Assertions[0].Type = "trace_order" }, "unknown assertion type"},
		{"total without value", func(s *Scenario) {
			s.Assertions[0] = Assertion{Type: AssertTotal, Candidate: "dune"}
		}, "candidate and total are required"},
		{"can with unsupported verb", func(s *Scenario) {
			allowed := true
			s.Assertions[0] = Assertion{Type: AssertCan, Actor: "bob", Verb: ActionPurge, Allowed: &allowed}
		}, "unsupported verb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseScenario([]byte(minimalScenario))
			require.NoError(t, err)
			tt.mutate(s)
			err = validateScenario(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateScenario_FailNextWriteNeedsNoActor(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)
	s.Steps = append([]Step{{Action: ActionFailNextWrite}}, s.Steps...)
	assert.NoError(t, validateScenario(s))
}
