package cli

import (
	"github.com/spf13/cobra"

	"github.com/vram0gh/taylorize/internal/compiler"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Problem string
}

// compileOutput is the JSON payload for a successful compile.
type compileOutput struct {
	Problem string `json:"problem"`
	Key     string `json:"key"`
	Dim     int    `json:"dim"`
	Listing string `json:"listing"`
}

// NewCompileCommand creates the compile command. It specializes a
// problem's right-hand side and prints the identity key with the
// allocation plan and instruction listing.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <problem-file>",
		Short: "Compile a right-hand side and print its plan",
		Long: `Compile a problem's right-hand side into a specialized evaluator.

Prints the right-hand-side identity key, the buffer allocation plan, and
the per-order instruction listing.

Example:
  taylorize compile problems/pendulum.cue
  taylorize compile problems/many.cue --problem kepler --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Problem, "problem", "", "problem name (required when the file defines several)")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	p, err := loadProblem(path, opts.Problem)
	if err != nil {
		formatter.Error(errorCode(err), err.Error(), nil)
		return NewExitError(ExitCommandError, "failed to load problem")
	}

	spec, err := compiler.Compile(p.Sig, p.Source, p.Dim)
	if err != nil {
		formatter.Error(errorCode(err), err.Error(), nil)
		return NewExitError(ExitFailure, "compilation rejected")
	}

	if opts.Format == "json" {
		return formatter.Success(compileOutput{
			Problem: p.Name,
			Key:     spec.Key,
			Dim:     spec.Dim,
			Listing: spec.Listing(),
		})
	}
	formatter.VerboseLog("compiled %s from %s", p.Name, path)
	return formatter.Success("problem: " + p.Name + "\nkey: " + spec.Key + "\n" + spec.Listing())
}
