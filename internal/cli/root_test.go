package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rejectedCUE = `problem: looped: {
	dim: 1
	source: """
		v = x[1]
		v = x[1] * 2
		dx[1] = v
		"""
}
`

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeResponse unpacks the JSON envelope and the data payload.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	if data != nil && resp.Data != nil {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return CLIResponse{Status: resp.Status, Error: resp.Error}
}

func TestRootRejectsBadFormat(t *testing.T) {
	path := writeProblems(t, driftCUE)

	_, err := runCLI(t, "compile", path, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestCompileTextOutput(t *testing.T) {
	path := writeProblems(t, driftCUE)

	out, err := runCLI(t, "compile", path)
	require.NoError(t, err)
	assert.Contains(t, out, "problem: drift")
	assert.Contains(t, out, "key: ")
	assert.Contains(t, out, "plan:")
	assert.Contains(t, out, "eval:")
	assert.Contains(t, out, "dx[0] = copy p0")
}

func TestCompileJSONOutput(t *testing.T) {
	path := writeProblems(t, twoProblemsCUE)

	out, err := runCLI(t, "compile", path, "--problem", "sho", "--format", "json")
	require.NoError(t, err)

	var data struct {
		Problem string `json:"problem"`
		Key     string `json:"key"`
		Dim     int    `json:"dim"`
		Listing string `json:"listing"`
	}
	resp := decodeResponse(t, out, &data)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "sho", data.Problem)
	assert.Len(t, data.Key, 64)
	assert.Equal(t, 2, data.Dim)
	assert.Contains(t, data.Listing, "plan:")
}

func TestCompileRejectedSource(t *testing.T) {
	path := writeProblems(t, rejectedCUE)

	out, err := runCLI(t, "compile", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E103]")
}

func TestCompileMissingFile(t *testing.T) {
	out, err := runCLI(t, "compile", filepath.Join(t.TempDir(), "absent.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E201]")
}

func TestCompileAmbiguousProblem(t *testing.T) {
	path := writeProblems(t, twoProblemsCUE)

	out, err := runCLI(t, "compile", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "select one with --problem")
}

func TestRunTextOutput(t *testing.T) {
	path := writeProblems(t, driftCUE)

	out, err := runCLI(t, "run", path, "--x0", "1", "--t1", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "problem: drift")
	assert.Contains(t, out, "evaluator: specialized")
	assert.Contains(t, out, "steps: 1")
	assert.Contains(t, out, "t: 2")
	assert.Contains(t, out, "state: [2]")
}

func TestRunNoSpecialize(t *testing.T) {
	path := writeProblems(t, driftCUE)

	out, err := runCLI(t, "run", path, "--x0", "1", "--t1", "2", "--no-specialize")
	require.NoError(t, err)
	assert.Contains(t, out, "evaluator: generic")
	assert.Contains(t, out, "state: [2]")
}

func TestRunParamOverride(t *testing.T) {
	path := writeProblems(t, driftCUE)

	out, err := runCLI(t, "run", path, "--x0", "1", "--t1", "2", "--param", "a=1.5")
	require.NoError(t, err)
	assert.Contains(t, out, "state: [4]")
}

func TestRunMissingRequiredFlags(t *testing.T) {
	path := writeProblems(t, driftCUE)

	_, err := runCLI(t, "run", path, "--x0", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "t1")
}

func TestRunBadStateFlag(t *testing.T) {
	path := writeProblems(t, driftCUE)

	out, err := runCLI(t, "run", path, "--x0", "one,two", "--t1", "2")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "bad --x0")
}

func TestRunPersistsAndTraces(t *testing.T) {
	path := writeProblems(t, driftCUE)
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := runCLI(t, "run", path, "--x0", "1", "--t1", "2", "--db", db, "--format", "json")
	require.NoError(t, err)

	var data struct {
		RunID       string    `json:"run_id"`
		Steps       int       `json:"steps"`
		Specialized bool      `json:"specialized"`
		State       []float64 `json:"state"`
	}
	resp := decodeResponse(t, out, &data)
	assert.Equal(t, "ok", resp.Status)
	require.NotEmpty(t, data.RunID)
	assert.Equal(t, 1, data.Steps)
	assert.True(t, data.Specialized)
	assert.Equal(t, []float64{2}, data.State)

	listOut, err := runCLI(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, listOut, data.RunID)
	assert.Contains(t, listOut, "drift")

	oneOut, err := runCLI(t, "trace", "--db", db, "--run", data.RunID)
	require.NoError(t, err)
	assert.Contains(t, oneOut, "(drift, 1 steps)")
	assert.Contains(t, oneOut, "t=")
}

func TestTraceUnknownRun(t *testing.T) {
	path := writeProblems(t, driftCUE)
	db := filepath.Join(t.TempDir(), "runs.db")

	_, err := runCLI(t, "run", path, "--x0", "1", "--t1", "2", "--db", db)
	require.NoError(t, err)

	_, err = runCLI(t, "trace", "--db", db, "--run", "no-such-run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayMatchesStoredRun(t *testing.T) {
	path := writeProblems(t, driftCUE)
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := runCLI(t, "run", path, "--x0", "1", "--t1", "2", "--db", db, "--format", "json")
	require.NoError(t, err)
	var data struct {
		RunID string `json:"run_id"`
	}
	decodeResponse(t, out, &data)
	require.NotEmpty(t, data.RunID)

	replayOut, err := runCLI(t, "replay", path, "--db", db, "--run", data.RunID)
	require.NoError(t, err)
	assert.Contains(t, replayOut, "result: match")
	assert.Contains(t, replayOut, "max drift: 0.000e+00")
}

func TestReplayRejectsChangedRHS(t *testing.T) {
	path := writeProblems(t, driftCUE)
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := runCLI(t, "run", path, "--x0", "1", "--t1", "2", "--db", db, "--format", "json")
	require.NoError(t, err)
	var data struct {
		RunID string `json:"run_id"`
	}
	decodeResponse(t, out, &data)

	edited := writeProblems(t, `problem: drift: {
	dim: 1
	params: ["a"]
	values: a: 0.5
	source: "dx[1] = a + t"
}
`)
	replayOut, err := runCLI(t, "replay", edited, "--db", db, "--run", data.RunID)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, replayOut, "right-hand side changed")
}

func TestValidateReportsIssues(t *testing.T) {
	path := writeProblems(t, twoProblemsCUE+"\n"+rejectedCUE)

	out, err := runCLI(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "3 problems, 2 compile")
	assert.Contains(t, out, "looped: [E103]")

	_, err = runCLI(t, "validate", path, "--strict")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestValidateJSONOutput(t *testing.T) {
	path := writeProblems(t, rejectedCUE)

	out, err := runCLI(t, "validate", path, "--format", "json")
	require.NoError(t, err)

	var data struct {
		Problems int `json:"problems"`
		Valid    int `json:"valid"`
		Issues   []struct {
			Problem string `json:"problem"`
			Code    string `json:"code"`
		} `json:"issues"`
	}
	resp := decodeResponse(t, out, &data)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, data.Problems)
	assert.Equal(t, 0, data.Valid)
	require.Len(t, data.Issues, 1)
	assert.Equal(t, "looped", data.Issues[0].Problem)
	assert.Equal(t, "E103", data.Issues[0].Code)
}

func TestJetTextOutput(t *testing.T) {
	path := writeProblems(t, driftCUE)

	out, err := runCLI(t, "jet", path, "--x0", "1", "--order", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "evaluator: specialized")
	assert.Contains(t, out, "order: 3")
	assert.Contains(t, out, "x[1]: 1 0.5 0 0")
	assert.Contains(t, out, "dx[1]: 0.5 0 0 0")
}

func TestJetJSONOutput(t *testing.T) {
	path := writeProblems(t, driftCUE)

	out, err := runCLI(t, "jet", path, "--x0", "1", "--order", "2", "--no-specialize", "--format", "json")
	require.NoError(t, err)

	var data struct {
		Specialized bool        `json:"specialized"`
		Order       int         `json:"order"`
		X           [][]float64 `json:"x"`
		DX          [][]float64 `json:"dx"`
	}
	resp := decodeResponse(t, out, &data)
	assert.Equal(t, "ok", resp.Status)
	assert.False(t, data.Specialized)
	assert.Equal(t, 2, data.Order)
	require.Len(t, data.X, 1)
	assert.Equal(t, []float64{1, 0.5, 0}, data.X[0])
	assert.Equal(t, []float64{0.5, 0, 0}, data.DX[0])
}

func TestTestCommandRunsScenarios(t *testing.T) {
	dir := t.TempDir()
	problems := filepath.Join(dir, "problems.cue")
	require.NoError(t, writeFile(problems, driftCUE))
	scenario := filepath.Join(dir, "drift.yaml")
	require.NoError(t, writeFile(scenario, `
name: drift
problems: problems.cue
problem: drift
t0: 0
t1: 2
x0: [1]
assertions:
  - type: final_time
  - type: final_state
    state: [2.0]
    tolerance: 1e-12
`))

	out, err := runCLI(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS  drift")
	assert.Contains(t, out, "1 passed, 0 failed")
}

func TestTestCommandReportsFailure(t *testing.T) {
	dir := t.TempDir()
	problems := filepath.Join(dir, "problems.cue")
	require.NoError(t, writeFile(problems, driftCUE))
	scenario := filepath.Join(dir, "wrong.yaml")
	require.NoError(t, writeFile(scenario, `
name: wrong
problems: problems.cue
problem: drift
t0: 0
t1: 2
x0: [1]
assertions:
  - type: final_state
    state: [3.0]
    tolerance: 1e-12
`))

	out, err := runCLI(t, "test", scenario)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL  wrong")
	assert.Contains(t, out, "0 passed, 1 failed")
}

func TestTestCommandNoScenarios(t *testing.T) {
	out, err := runCLI(t, "test", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "no scenario files found")
}
