package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vram0gh/taylorize/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Problem  string
	RunID    string
	Limit    int
}

// traceRunOutput summarizes a stored run for listings.
type traceRunOutput struct {
	ID          string    `json:"id"`
	Problem     string    `json:"problem"`
	Specialized bool      `json:"specialized"`
	Order       int       `json:"order"`
	Steps       int       `json:"steps"`
	T0          float64   `json:"t0"`
	T1          float64   `json:"t1"`
	TFinal      float64   `json:"t_final"`
	StateFinal  []float64 `json:"state_final"`
	CreatedAt   string    `json:"created_at"`
}

// NewTraceCommand creates the trace command: list stored runs, or dump one
// run's step-by-step trace.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect stored integration runs",
		Long: `Trace lists persisted runs, or with --run prints one run's samples.

Example:
  taylorize trace --db runs.db
  taylorize trace --db runs.db --problem pendulum --limit 5
  taylorize trace --db runs.db --run 0196fd2e-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database to inspect (required)")
	cmd.Flags().StringVar(&opts.Problem, "problem", "", "only list runs for this problem")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "print the sample trace of one run")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 = all)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
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

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.RunID != "" {
		return traceOne(ctx, st, opts.RunID, formatter, cmd)
	}
	return traceList(ctx, st, opts, formatter, cmd)
}

func traceOne(ctx context.Context, st *store.Store, runID string, formatter *OutputFormatter, cmd *cobra.Command) error {
	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		formatter.Error("E001", err.Error(), nil)
		return NewExitError(ExitCommandError, "run not found")
	}
	samples, err := st.ReadSamples(ctx, runID)
	if err != nil {
		formatter.Error("E001", err.Error(), nil)
		return NewExitError(ExitCommandError, "failed to read samples")
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"run":     summarizeRun(run),
			"samples": samples,
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "run %s (%s, %d steps)\n", run.ID, run.Problem, run.Steps)
	for _, sm := range samples {
		fmt.Fprintf(&b, "  %4d  t=%-14g %s\n", sm.Step, sm.T, formatState(sm.State))
	}
	return formatter.Success(strings.TrimRight(b.String(), "\n"))
}

func traceList(ctx context.Context, st *store.Store, opts *TraceOptions, formatter *OutputFormatter, cmd *cobra.Command) error {
	runs, err := st.ListRuns(ctx, opts.Problem, opts.Limit)
	if err != nil {
		formatter.Error("E001", err.Error(), nil)
		return NewExitError(ExitCommandError, "failed to list runs")
	}

	if formatter.Format == "json" {
		out := make([]traceRunOutput, len(runs))
		for i, run := range runs {
			out[i] = summarizeRun(run)
		}
		return formatter.Success(out)
	}

	if len(runs) == 0 {
		return formatter.Success("no runs stored")
	}
	var b strings.Builder
	for i, run := range runs {
		fmt.Fprintf(&b, "%s  %s  %s  order=%d steps=%d  t=[%g, %g]",
			run.ID, run.CreatedAt, run.Problem, run.Order, run.Steps, run.T0, run.T1)
		if i < len(runs)-1 {
			b.WriteByte('\n')
		}
	}
	return formatter.Success(b.String())
}

func summarizeRun(run *store.Run) traceRunOutput {
	return traceRunOutput{
		ID:          run.ID,
		Problem:     run.Problem,
		Specialized: run.Specialized,
		Order:       run.Order,
		Steps:       run.Steps,
		T0:          run.T0,
		T1:          run.T1,
		TFinal:      run.TFinal,
		StateFinal:  run.StateFinal,
		CreatedAt:   run.CreatedAt,
	}
}
