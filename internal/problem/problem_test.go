package problem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vram0gh/taylorize/internal/ir"
)

func validProblem() *Problem {
	return &Problem{
		Name:   "decay",
		Sig:    ir.DefaultSignature([]string{"lambda"}),
		Dim:    1,
		Source: "dx[1] = -(lambda * x[1])",
		Params: map[string]float64{"lambda": 0.3},
	}
}

func TestValidateAccepts(t *testing.T) {
	assert.NoError(t, validProblem().Validate())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Problem)
		want   string
	}{
		{"no name", func(p *Problem) { p.Name = "" }, "no name"},
		{"zero dim", func(p *Problem) { p.Dim = 0 }, "dim"},
		{"empty source", func(p *Problem) { p.Source = "" }, "source is empty"},
		{"no output", func(p *Problem) { p.Sig.Output = "" }, "incomplete signature"},
		{"dup param", func(p *Problem) { p.Sig.Params = []string{"a", "a"} }, "duplicate parameter"},
		{"undeclared value", func(p *Problem) { p.Params = map[string]float64{"zz": 1} }, "undeclared parameter"},
		{"negative order", func(p *Problem) { p.Order = -1 }, "order"},
		{"negative abstol", func(p *Problem) { p.AbsTol = -1 }, "abstol"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := validProblem()
			tc.mutate(p)
			err := p.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestBindParams(t *testing.T) {
	p := validProblem()

	bound, err := p.BindParams(nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"lambda": 0.3}, bound)

	bound, err = p.BindParams(map[string]float64{"lambda": 1.7})
	require.NoError(t, err)
	assert.Equal(t, 1.7, bound["lambda"])
	assert.Equal(t, 0.3, p.Params["lambda"], "defaults must not be mutated")

	_, err = p.BindParams(map[string]float64{"zz": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `undeclared parameter "zz"`)
}

func TestBindParamsReportsMissing(t *testing.T) {
	p := validProblem()
	p.Sig.Params = []string{"lambda", "mu", "nu"}

	_, err := p.BindParams(map[string]float64{"mu": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unbound parameters [nu]")
}

func TestIdentityIgnoresParamValues(t *testing.T) {
	a := validProblem()
	b := validProblem()
	b.Params = map[string]float64{"lambda": 99}
	assert.Equal(t, a.Identity(), b.Identity())

	c := validProblem()
	c.Source = "dx[1] = lambda * x[1]"
	assert.NotEqual(t, a.Identity(), c.Identity())

	d := validProblem()
	d.Dim = 2
	assert.NotEqual(t, a.Identity(), d.Identity())
}
