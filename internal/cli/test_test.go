package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../harness/testdata/scenarios"

const passingScenario = `name: quick
description: one nomination and one score
viewer: bob
steps:
  - action: propose
    actor: alice
    title: Dune
    as: dune
  - action: nominate
    actor: alice
    candidate: dune
  - action: score
    actor: bob
    candidate: dune
    weight: 2
assertions:
  - type: total
    candidate: dune
    total: 2
`

const failingScenario = `name: broken
description: expects a total that cannot happen
viewer: bob
steps:
  - action: propose
    actor: alice
    title: Dune
    as: dune
  - action: nominate
    actor: alice
    candidate: dune
assertions:
  - type: total
    candidate: dune
    total: 5
`

func writeScenario(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestTestCommandMissingArgs(t *testing.T) {
	clearEnv(t)
	_, stderr, code := runCLI(t, "test")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "accepts 1 arg(s)")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	clearEnv(t)
	_, stderr, code := runCLI(t, "test", "/nonexistent/scenarios")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	clearEnv(t)
	stdout, _, code := runCLI(t, "test", t.TempDir())
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "No scenarios found.")
}

func TestTestCommandShippedScenarios(t *testing.T) {
	clearEnv(t)
	stdout, stderr, code := runCLI(t, "test", scenariosDir)
	require.Equal(t, ExitSuccess, code, "stdout: %s\nstderr: %s", stdout, stderr)
	assert.Contains(t, stdout, "✓ lifecycle")
	assert.Contains(t, stdout, "✓ registry")
	assert.Contains(t, stdout, "✓ rollback")
	assert.Contains(t, stdout, "Test Summary: 3 passed, 0 failed, 3 total")
}

func TestTestCommandFilter(t *testing.T) {
	clearEnv(t)
	stdout, _, code := runCLI(t, "test", scenariosDir, "--filter", "roll*", "--format", "json")
	require.Equal(t, ExitSuccess, code)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "rollback", resp.Data.Scenarios[0].Name)
	assert.True(t, resp.Data.Scenarios[0].Pass)
}

func TestTestCommandInvalidFilter(t *testing.T) {
	clearEnv(t)
	_, stderr, code := runCLI(t, "test", scenariosDir, "--filter", "[")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "failed to find scenarios")
}

func TestTestCommandUpdateThenCompare(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	scenarios := filepath.Join(root, "scenarios")
	writeScenario(t, scenarios, "quick.yaml", passingScenario)

	stdout, _, code := runCLI(t, "test", scenarios, "--update")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "✓ quick (golden updated)")

	golden, err := os.ReadFile(filepath.Join(root, "golden", "quick.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"quick"`)

	stdout, _, code = runCLI(t, "test", scenarios)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "✓ quick\n")

	// A stale golden file fails the comparison.
	require.NoError(t, os.WriteFile(filepath.Join(root, "golden", "quick.golden"), []byte("{}"), 0o644))
	stdout, _, code = runCLI(t, "test", scenarios)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "trace does not match golden file")
}

func TestTestCommandGoldenDirFlag(t *testing.T) {
	clearEnv(t)
	goldenDir := filepath.Join(t.TempDir(), "elsewhere")

	_, _, code := runCLI(t, "test", scenariosDir, "--filter", "lifecycle", "--update", "--golden-dir", goldenDir)
	require.Equal(t, ExitSuccess, code)

	written, err := os.ReadFile(filepath.Join(goldenDir, "lifecycle.golden"))
	require.NoError(t, err)
	shipped, err := os.ReadFile("../harness/testdata/golden/lifecycle.golden")
	require.NoError(t, err)
	assert.Equal(t, string(shipped), string(written))
}

func TestTestCommandFailingScenario(t *testing.T) {
	clearEnv(t)
	scenarios := filepath.Join(t.TempDir(), "scenarios")
	writeScenario(t, scenarios, "broken.yaml", failingScenario)
	writeScenario(t, scenarios, "invalid.yaml", "name: invalid\n")

	stdout, _, code := runCLI(t, "test", scenarios, "--format", "json")
	assert.Equal(t, ExitFailure, code)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 2, resp.Data.Failed)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)

	byName := map[string]ScenarioResult{}
	for _, s := range resp.Data.Scenarios {
		byName[s.Name] = s
	}
	require.Contains(t, byName, "broken")
	assert.Contains(t, strings.Join(byName["broken"].Errors, "\n"), "id-1 total 5")
	require.Contains(t, byName, "invalid.yaml")
	assert.Contains(t, byName["invalid.yaml"].Errors[0], "failed to load scenario")
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a.yaml", "")
	writeScenario(t, dir, "b.yml", "")
	writeScenario(t, dir, "notes.txt", "")
	writeScenario(t, filepath.Join(dir, "nested"), "c.yaml", "")

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	files, err = findScenarioFiles(dir, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.yml")}, files)
}
