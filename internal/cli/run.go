package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vram0gh/taylorize/internal/integrator"
	"github.com/vram0gh/taylorize/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Problem      string
	X0           string
	T0, T1       float64
	Order        int
	AbsTol       float64
	MaxSteps     int
	Params       []string
	NoSpecialize bool
	Database     string
}

// runOutput is the JSON payload for a finished run.
type runOutput struct {
	Problem     string    `json:"problem"`
	Key         string    `json:"key"`
	Specialized bool      `json:"specialized"`
	Order       int       `json:"order"`
	Steps       int       `json:"steps"`
	T           float64   `json:"t"`
	State       []float64 `json:"state"`
	RunID       string    `json:"run_id,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <problem-file>",
		Short: "Integrate a problem over a time span",
		Long: `Integrate a problem from an initial condition.

The right-hand side is specialized first; if compilation rejects it (or
--no-specialize is set) the generic evaluator is used instead. With --db
the run and its full step trace are persisted.

Example:
  taylorize run problems/pendulum.cue --x0 1.3,0 --t1 10
  taylorize run problems/kepler.cue --problem kepler --x0 0.19,0,0,3.24 --t1 100 --db runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntegrate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Problem, "problem", "", "problem name (required when the file defines several)")
	cmd.Flags().StringVar(&opts.X0, "x0", "", "initial state, comma-separated (required)")
	cmd.Flags().Float64Var(&opts.T0, "t0", 0, "start time")
	cmd.Flags().Float64Var(&opts.T1, "t1", 0, "end time (required)")
	cmd.Flags().IntVar(&opts.Order, "order", 0, "Taylor expansion order (default from problem)")
	cmd.Flags().Float64Var(&opts.AbsTol, "abstol", 0, "absolute tolerance (default from problem)")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "maximum accepted steps")
	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "parameter override name=value (repeatable)")
	cmd.Flags().BoolVar(&opts.NoSpecialize, "no-specialize", false, "force the generic evaluator")
	cmd.Flags().StringVar(&opts.Database, "db", "", "persist the run trace to this SQLite database")
	_ = cmd.MarkFlagRequired("x0")
	_ = cmd.MarkFlagRequired("t1")

	return cmd
}

func runIntegrate(opts *RunOptions, path string, cmd *cobra.Command) error {
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
	x0, err := parseStateFlag(opts.X0)
	if err != nil {
		formatter.Error("E001", fmt.Sprintf("bad --x0: %v", err), nil)
		return NewExitError(ExitCommandError, "bad initial state")
	}
	params, err := parseParamFlags(opts.Params)
	if err != nil {
		formatter.Error("E001", fmt.Sprintf("bad --param: %v", err), nil)
		return NewExitError(ExitCommandError, "bad parameter override")
	}

	reg := integrator.NewRegistry()
	if !opts.NoSpecialize {
		if _, err := reg.Specialize(p.Sig, p.Source, p.Dim); err != nil {
			slog.Warn("specialization rejected, using generic evaluator",
				"problem", p.Name, "error", err)
		}
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	res, err := integrator.Solve(ctx, reg, p, opts.T0, opts.T1, x0, integrator.Options{
		Order:        opts.Order,
		AbsTol:       opts.AbsTol,
		MaxSteps:     opts.MaxSteps,
		Params:       params,
		NoSpecialize: opts.NoSpecialize,
	})
	if err != nil {
		formatter.Error("E001", err.Error(), nil)
		return NewExitError(ExitFailure, "integration failed")
	}

	var runID string
	if opts.Database != "" {
		bound, err := p.BindParams(params)
		if err != nil {
			formatter.Error("E001", err.Error(), nil)
			return NewExitError(ExitCommandError, "bad parameters")
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
		runID, err = st.WriteResult(ctx, res, opts.T0, opts.T1, x0, bound)
		if err != nil {
			formatter.Error("E001", err.Error(), nil)
			return NewExitError(ExitCommandError, "failed to persist run")
		}
		slog.Info("run persisted", "db", opts.Database, "run_id", runID)
	}

	if opts.Format == "json" {
		return formatter.Success(runOutput{
			Problem:     res.Problem,
			Key:         res.Key,
			Specialized: res.Specialized,
			Order:       res.Order,
			Steps:       res.Steps,
			T:           res.T,
			State:       res.State,
			RunID:       runID,
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "problem: %s\n", res.Problem)
	fmt.Fprintf(&b, "evaluator: %s\n", evaluatorName(res.Specialized))
	fmt.Fprintf(&b, "steps: %d\n", res.Steps)
	fmt.Fprintf(&b, "t: %v\n", res.T)
	fmt.Fprintf(&b, "state: %s", formatState(res.State))
	if runID != "" {
		fmt.Fprintf(&b, "\nrun: %s", runID)
	}
	return formatter.Success(b.String())
}

// signalContext derives a context cancelled on SIGINT/SIGTERM, inheriting
// the command's context when a test supplies one.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

func evaluatorName(specialized bool) string {
	if specialized {
		return "specialized"
	}
	return "generic"
}

func formatState(state []float64) string {
	parts := make([]string, len(state))
	for i, v := range state {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
