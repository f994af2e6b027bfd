package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is one YAML-defined integration test case.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Problems is the path to the CUE problem file, relative to the
	// scenario file location.
	Problems string `yaml:"problems"`

	// Problem selects one problem from the file by name.
	Problem string `yaml:"problem"`

	// T0 and T1 delimit the integration span.
	T0 float64 `yaml:"t0"`
	T1 float64 `yaml:"t1"`

	// X0 is the initial state; its length must match the problem's dim.
	X0 []float64 `yaml:"x0"`

	// Order, AbsTol, and MaxSteps override the problem defaults when
	// nonzero.
	Order    int     `yaml:"order,omitempty"`
	AbsTol   float64 `yaml:"abstol,omitempty"`
	MaxSteps int     `yaml:"max_steps,omitempty"`

	// Params overrides individual problem parameter defaults.
	Params map[string]float64 `yaml:"params,omitempty"`

	// GenericOnly skips the compiled run, for sources outside the
	// compilable subset.
	GenericOnly bool `yaml:"generic_only,omitempty"`

	// Assertions validate the run results.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one property of a finished run.
type Assertion struct {
	// Type selects the check:
	//   - "final_state": final state equals State within Tolerance
	//   - "final_time": integration reached T1
	//   - "agreement": compiled and interpreted runs agree within
	//     Tolerance at every shared sample
	//   - "step_count": accepted steps lie in [Min, Max]
	//   - "conserved": Expr, evaluated on the state, stays within
	//     Tolerance of its initial value at every sample
	Type string `yaml:"type"`

	// State is the expected final state (final_state).
	State []float64 `yaml:"state,omitempty"`

	// Expr is a scalar expression over the state, time, and parameters
	// (conserved), e.g. "(x[2]*x[2])/2 - omega2*cos(x[1])".
	Expr string `yaml:"expr,omitempty"`

	// Tolerance bounds the allowed deviation where applicable.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Min and Max bound the step count (step_count). Zero Max means
	// unbounded above.
	Min int `yaml:"min,omitempty"`
	Max int `yaml:"max,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState = "final_state"
	AssertFinalTime  = "final_time"
	AssertAgreement  = "agreement"
	AssertStepCount  = "step_count"
	AssertConserved  = "conserved"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so field typos surface as load errors, and the problem file
// path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Problems != "" && !filepath.IsAbs(scenario.Problems) {
		scenario.Problems = filepath.Join(filepath.Dir(path), scenario.Problems)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Problems == "" {
		return fmt.Errorf("problems path is required")
	}
	if s.Problem == "" {
		return fmt.Errorf("problem name is required")
	}
	if len(s.X0) == 0 {
		return fmt.Errorf("x0 is required and must be non-empty")
	}
	if s.T0 == s.T1 {
		return fmt.Errorf("t0 and t1 must differ")
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case AssertFinalState:
			if len(a.State) == 0 {
				return fmt.Errorf("assertion %d: final_state requires state", i)
			}
		case AssertConserved:
			if a.Expr == "" {
				return fmt.Errorf("assertion %d: conserved requires expr", i)
			}
		case AssertFinalTime, AssertAgreement, AssertStepCount:
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i, a.Type)
		}
	}
	return nil
}
