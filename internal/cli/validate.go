package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vram0gh/taylorize/internal/compiler"
	"github.com/vram0gh/taylorize/internal/problem"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Strict bool
}

// validateIssue is one problem-level validation outcome.
type validateIssue struct {
	Problem string `json:"problem"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// validateOutput is the JSON payload for validate.
type validateOutput struct {
	File     string          `json:"file"`
	Problems int             `json:"problems"`
	Valid    int             `json:"valid"`
	Issues   []validateIssue `json:"issues,omitempty"`
}

// NewValidateCommand creates the validate command. It loads every problem
// in a file and attempts to compile each right-hand side, reporting all
// diagnostics instead of stopping at the first.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <problem-file>",
		Short: "Check every problem in a file against the compilable subset",
		Long: `Validate loads a CUE problem file and compiles each right-hand side.

Problems outside the compilable subset are reported with their diagnostic
code; they can still be integrated with the generic evaluator unless
--strict is set.

Example:
  taylorize validate problems/all.cue
  taylorize validate problems/all.cue --strict --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail when any problem is outside the compilable subset")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	problems, err := problem.LoadFile(path)
	if err != nil {
		formatter.Error(errorCode(err), err.Error(), nil)
		return NewExitError(ExitCommandError, "failed to load problems")
	}

	out := validateOutput{File: path, Problems: len(problems)}
	for _, p := range problems {
		if _, err := compiler.Compile(p.Sig, p.Source, p.Dim); err != nil {
			out.Issues = append(out.Issues, validateIssue{
				Problem: p.Name,
				Code:    errorCode(err),
				Message: err.Error(),
			})
			continue
		}
		out.Valid++
	}

	if opts.Format == "json" {
		if err := formatter.Success(out); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d problems, %d compile\n", path, out.Problems, out.Valid)
		for _, issue := range out.Issues {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s: [%s] %s\n", issue.Problem, issue.Code, issue.Message)
		}
	}

	if opts.Strict && len(out.Issues) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d problems outside the compilable subset", len(out.Issues)))
	}
	return nil
}
