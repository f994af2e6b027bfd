package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vram0gh/taylorize/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
}

// testScenarioOutput is the per-scenario JSON result.
type testScenarioOutput struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// testOutput is the JSON payload for the test command.
type testOutput struct {
	Scenarios []testScenarioOutput `json:"scenarios"`
	Passed    int                  `json:"passed"`
	Failed    int                  `json:"failed"`
}

// NewTestCommand creates the test command. It runs YAML scenarios and
// reports their assertion results.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario.yaml|dir>...",
		Short: "Run integration scenarios",
		Long: `Test runs one or more YAML scenarios. Directory arguments are searched
recursively for *.yaml files.

Each scenario integrates its problem with both evaluators and applies its
assertions; any failing assertion fails the scenario.

Example:
  taylorize test scenarios/pendulum.yaml
  taylorize test scenarios/ --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(opts, args, cmd)
		},
	}

	return cmd
}

func runTest(opts *TestOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	files, err := collectScenarioFiles(args)
	if err != nil {
		formatter.Error("E001", err.Error(), nil)
		return NewExitError(ExitCommandError, "failed to collect scenarios")
	}
	if len(files) == 0 {
		formatter.Error("E001", "no scenario files found", nil)
		return NewExitError(ExitCommandError, "no scenarios")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := testOutput{}
	for _, file := range files {
		scenario, err := harness.LoadScenario(file)
		if err != nil {
			out.Scenarios = append(out.Scenarios, testScenarioOutput{
				Name:   file,
				File:   file,
				Errors: []string{err.Error()},
			})
			out.Failed++
			continue
		}
		formatter.VerboseLog("running %s (%s)", scenario.Name, file)
		result, err := harness.Run(ctx, scenario)
		if err != nil {
			out.Scenarios = append(out.Scenarios, testScenarioOutput{
				Name:   scenario.Name,
				File:   file,
				Errors: []string{err.Error()},
			})
			out.Failed++
			continue
		}
		entry := testScenarioOutput{
			Name:   scenario.Name,
			File:   file,
			Pass:   result.Pass,
			Errors: result.Errors,
		}
		out.Scenarios = append(out.Scenarios, entry)
		if result.Pass {
			out.Passed++
		} else {
			out.Failed++
		}
	}

	if opts.Format == "json" {
		if err := formatter.Success(out); err != nil {
			return err
		}
	} else {
		var b strings.Builder
		for _, sc := range out.Scenarios {
			status := "PASS"
			if !sc.Pass {
				status = "FAIL"
			}
			fmt.Fprintf(&b, "%s  %s (%s)\n", status, sc.Name, sc.File)
			for _, msg := range sc.Errors {
				fmt.Fprintf(&b, "      %s\n", msg)
			}
		}
		fmt.Fprintf(&b, "%d passed, %d failed", out.Passed, out.Failed)
		if err := formatter.Success(b.String()); err != nil {
			return err
		}
	}

	if out.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenarios failed", out.Failed))
	}
	return nil
}

// collectScenarioFiles expands file and directory arguments into a sorted
// list of YAML scenario paths.
func collectScenarioFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}
