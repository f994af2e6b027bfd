package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vram0gh/taylorize/internal/compiler"
	"github.com/vram0gh/taylorize/internal/parser"
	"github.com/vram0gh/taylorize/internal/problem"
)

// loadProblem loads a CUE problem file and selects one problem. An empty
// name is allowed when the file defines exactly one problem.
func loadProblem(path, name string) (*problem.Problem, error) {
	problems, err := problem.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if name == "" {
		if len(problems) == 1 {
			return problems[0], nil
		}
		names := make([]string, len(problems))
		for i, p := range problems {
			names[i] = p.Name
		}
		return nil, fmt.Errorf("%s defines %d problems %v, select one with --problem", path, len(problems), names)
	}
	for _, p := range problems {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("problem %q not found in %s", name, path)
}

// parseStateFlag parses a comma-separated state vector, e.g. "1.3,0".
func parseStateFlag(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("state vector is empty")
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

// parseParamFlags parses repeated name=value parameter overrides.
func parseParamFlags(pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		name, val, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("parameter %q: want name=value", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		out[strings.TrimSpace(name)] = v
	}
	return out, nil
}

// errorCode extracts the stable code from typed errors for formatter
// output. Untyped errors report E001.
func errorCode(err error) string {
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Code
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return compileErr.Code
	}
	var loadErr *problem.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return "E001"
}
