package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vram0gh/taylorize/internal/integrator"
	"github.com/vram0gh/taylorize/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Problem  string
	Database string
	RunID    string
}

// NewReplayCommand creates the replay command. It re-integrates a stored
// run from its recorded inputs and reports whether the result still
// matches, which catches both nondeterminism and behavioral drift after
// code changes.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <problem-file>",
		Short: "Re-run a stored integration and compare results",
		Long: `Replay re-integrates a persisted run with the current evaluator.

The problem file must contain the same right-hand side the run was
recorded with; a changed right-hand side is rejected by identity hash.
A diverging replay exits nonzero.

Example:
  taylorize replay problems/pendulum.cue --db runs.db --run 0196fd2e-...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Problem, "problem", "", "problem name (required when the file defines several)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database holding the run (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to replay (required)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
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

	st, err := store.Open(opts.Database)
	if err != nil {
		formatter.Error("E001", err.Error(), nil)
		return NewExitError(ExitCommandError, "failed to open database")
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	reg := integrator.NewRegistry()
	if _, err := reg.Specialize(p.Sig, p.Source, p.Dim); err != nil {
		slog.Warn("specialization rejected, replaying with generic evaluator",
			"problem", p.Name, "error", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	report, err := st.Replay(ctx, reg, p, opts.RunID)
	if err != nil {
		formatter.Error("E001", err.Error(), nil)
		return NewExitError(ExitCommandError, "replay failed")
	}

	if opts.Format == "json" {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		var b strings.Builder
		fmt.Fprintf(&b, "run: %s\n", report.RunID)
		fmt.Fprintf(&b, "problem: %s\n", report.Problem)
		fmt.Fprintf(&b, "steps: %d (stored %d)\n", report.Steps, report.StepsPrev)
		fmt.Fprintf(&b, "max drift: %.3e\n", report.MaxDrift)
		if report.Match {
			fmt.Fprintf(&b, "result: match")
		} else {
			fmt.Fprintf(&b, "result: DIVERGED\n")
			fmt.Fprintf(&b, "  now:    %s\n", formatState(report.State))
			fmt.Fprintf(&b, "  stored: %s", formatState(report.StatePrev))
		}
		if err := formatter.Success(b.String()); err != nil {
			return err
		}
	}

	if !report.Match {
		return NewExitError(ExitFailure, "replay diverged from stored run")
	}
	return nil
}
