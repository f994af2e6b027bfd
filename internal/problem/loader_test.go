package problem

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pendulumCUE = `
problem: pendulum: {
	dim: 2
	params: ["omega2"]
	values: omega2: 1.5
	order:  25
	abstol: 1e-12
	source: """
		dx[1] = x[2]
		dx[2] = -(omega2 * sin(x[1]))
		"""
}
`

func loadErrCode(t *testing.T, data string) string {
	t.Helper()
	_, err := Load("test.cue", []byte(data))
	require.Error(t, err)
	var lerr *LoadError
	require.True(t, errors.As(err, &lerr), "want *LoadError, got %T: %v", err, err)
	return lerr.Code
}

func TestLoadPendulum(t *testing.T) {
	problems, err := Load("pendulum.cue", []byte(pendulumCUE))
	require.NoError(t, err)
	require.Len(t, problems, 1)

	p := problems[0]
	assert.Equal(t, "pendulum", p.Name)
	assert.Equal(t, 2, p.Dim)
	assert.Equal(t, []string{"omega2"}, p.Sig.Params)
	assert.Equal(t, map[string]float64{"omega2": 1.5}, p.Params)
	assert.Equal(t, 25, p.Order)
	assert.Equal(t, 1e-12, p.AbsTol)
	assert.Contains(t, p.Source, "dx[1] = x[2]")
	assert.Equal(t, "dx", p.Sig.Output)
	assert.Equal(t, "x", p.Sig.State)
	assert.Equal(t, "t", p.Sig.Time)
}

func TestLoadMultipleSortedByName(t *testing.T) {
	problems, err := Load("multi.cue", []byte(`
problem: sho:       {dim: 2, source: "dx[1] = x[2]\ndx[2] = -x[1]"}
problem: decay:     {dim: 1, source: "dx[1] = -x[1]"}
problem: logistic:  {dim: 1, source: "dx[1] = x[1] * (1 - x[1])"}
`))
	require.NoError(t, err)
	require.Len(t, problems, 3)
	assert.Equal(t, "decay", problems[0].Name)
	assert.Equal(t, "logistic", problems[1].Name)
	assert.Equal(t, "sho", problems[2].Name)
}

func TestLoadSignatureOverrides(t *testing.T) {
	problems, err := Load("custom.cue", []byte(`
problem: custom: {
	dim:    1
	output: "du"
	state:  "u"
	time:   "s"
	source: "du[1] = u[1] * s"
}
`))
	require.NoError(t, err)
	p := problems[0]
	assert.Equal(t, "du", p.Sig.Output)
	assert.Equal(t, "u", p.Sig.State)
	assert.Equal(t, "s", p.Sig.Time)
}

func TestLoadFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pendulum.cue")
	require.NoError(t, os.WriteFile(path, []byte(pendulumCUE), 0o644))

	problems, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, "pendulum", problems[0].Name)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.cue"))
	var lerr *LoadError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, ErrCodeNotFound, lerr.Code)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code string
	}{
		{"cue syntax", `problem: pendulum: {dim: `, ErrCodeBuildFailed},
		{"no problem field", `other: {dim: 1}`, ErrCodeNoProblems},
		{"empty problem map", `problem: {}`, ErrCodeNoProblems},
		{"missing dim", `problem: p: {source: "dx[1] = x[1]"}`, ErrCodeBadField},
		{"missing source", `problem: p: {dim: 1}`, ErrCodeBadField},
		{"dim wrong type", `problem: p: {dim: "two", source: "dx[1] = x[1]"}`, ErrCodeBadField},
		{"order wrong type", `problem: p: {dim: 1, source: "dx[1] = x[1]", order: "high"}`, ErrCodeBadField},
		{"params wrong type", `problem: p: {dim: 1, source: "dx[1] = x[1]", params: 3}`, ErrCodeBadField},
		{"value wrong type", `problem: p: {dim: 1, source: "dx[1] = x[1]", params: ["a"], values: a: "x"}`, ErrCodeBadField},
		{"zero dim", `problem: p: {dim: 0, source: "dx[1] = x[1]"}`, ErrCodeInvalid},
		{"undeclared value", `problem: p: {dim: 1, source: "dx[1] = x[1]", values: a: 1.0}`, ErrCodeInvalid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, loadErrCode(t, tc.data))
		})
	}
}

func TestLoadErrorRendersPosition(t *testing.T) {
	_, err := Load("bad.cue", []byte(`problem: p: {dim: 0, source: "dx[1] = x[1]"}`))
	var lerr *LoadError
	require.True(t, errors.As(err, &lerr))
	assert.Contains(t, lerr.Error(), "E205")
}
