package problem

import (
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/vram0gh/taylorize/internal/ir"
)

// Error codes for problem loading.
const (
	ErrCodeNotFound    = "E201" // file not found or unreadable
	ErrCodeBuildFailed = "E202" // CUE compile/build failed
	ErrCodeNoProblems  = "E203" // file defines no problems
	ErrCodeBadField    = "E204" // field missing or wrong type
	ErrCodeInvalid     = "E205" // structural validation failed
)

// LoadError is a problem-file loading failure with a stable code and, when
// available, a CUE source position.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadFile reads a CUE problem file and returns its problems sorted by
// name. The expected shape is:
//
//	problem: pendulum: {
//		dim: 2
//		params: ["omega2"]
//		values: omega2: 1.0
//		order:  25
//		abstol: 1e-20
//		source: """
//			dx[1] = x[2]
//			dx[2] = -(omega2 * sin(x[1]))
//			"""
//	}
//
// params, values, order, abstol, and the signature overrides (output,
// state, time) are optional; dim and source are required.
func LoadFile(path string) ([]*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}
	return Load(path, data)
}

// Load parses CUE problem definitions from raw bytes. The filename is used
// for positions only.
func Load(filename string, data []byte) ([]*Problem, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	problemsVal := value.LookupPath(cue.ParsePath("problem"))
	if !problemsVal.Exists() {
		return nil, &LoadError{Code: ErrCodeNoProblems, Message: fmt.Sprintf("no \"problem\" field in %s", filename), Pos: value.Pos()}
	}
	iter, err := problemsVal.Fields()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("iterating problems: %v", err), Pos: problemsVal.Pos()}
	}

	var problems []*Problem
	for iter.Next() {
		p, err := compileProblem(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		problems = append(problems, p)
	}
	if len(problems) == 0 {
		return nil, &LoadError{Code: ErrCodeNoProblems, Message: fmt.Sprintf("no problems defined in %s", filename), Pos: problemsVal.Pos()}
	}
	sort.Slice(problems, func(i, j int) bool { return problems[i].Name < problems[j].Name })
	return problems, nil
}

func compileProblem(name string, v cue.Value) (*Problem, error) {
	p := &Problem{Name: name}

	dim, err := requireInt(v, "dim")
	if err != nil {
		return nil, err
	}
	p.Dim = dim

	source, err := requireString(v, "source")
	if err != nil {
		return nil, err
	}
	p.Source = source

	params, err := optStringList(v, "params")
	if err != nil {
		return nil, err
	}
	p.Sig = ir.DefaultSignature(params)
	for field, dst := range map[string]*string{
		"output": &p.Sig.Output,
		"state":  &p.Sig.State,
		"time":   &p.Sig.Time,
	} {
		s, ok, err := optString(v, field)
		if err != nil {
			return nil, err
		}
		if ok {
			*dst = s
		}
	}

	valuesVal := v.LookupPath(cue.ParsePath("values"))
	if valuesVal.Exists() {
		p.Params = make(map[string]float64)
		viter, err := valuesVal.Fields()
		if err != nil {
			return nil, badField(valuesVal, "values", err)
		}
		for viter.Next() {
			f, err := viter.Value().Float64()
			if err != nil {
				return nil, badField(viter.Value(), "values."+viter.Label(), err)
			}
			p.Params[viter.Label()] = f
		}
	}

	orderVal := v.LookupPath(cue.ParsePath("order"))
	if orderVal.Exists() {
		n, err := orderVal.Int64()
		if err != nil {
			return nil, badField(orderVal, "order", err)
		}
		p.Order = int(n)
	}
	tolVal := v.LookupPath(cue.ParsePath("abstol"))
	if tolVal.Exists() {
		f, err := tolVal.Float64()
		if err != nil {
			return nil, badField(tolVal, "abstol", err)
		}
		p.AbsTol = f
	}

	if err := p.Validate(); err != nil {
		return nil, &LoadError{Code: ErrCodeInvalid, Message: err.Error(), Pos: v.Pos()}
	}
	return p, nil
}

func requireInt(v cue.Value, field string) (int, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &LoadError{Code: ErrCodeBadField, Message: field + " is required", Pos: v.Pos()}
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, badField(fv, field, err)
	}
	return int(n), nil
}

func requireString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &LoadError{Code: ErrCodeBadField, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", badField(fv, field, err)
	}
	return s, nil
}

func optString(v cue.Value, field string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, badField(fv, field, err)
	}
	return s, true, nil
}

func optStringList(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	liter, err := fv.List()
	if err != nil {
		return nil, badField(fv, field, err)
	}
	var out []string
	for liter.Next() {
		s, err := liter.Value().String()
		if err != nil {
			return nil, badField(liter.Value(), field, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func badField(v cue.Value, field string, err error) *LoadError {
	return &LoadError{Code: ErrCodeBadField, Message: fmt.Sprintf("%s: %v", field, err), Pos: v.Pos()}
}
