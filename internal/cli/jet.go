package cli

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vram0gh/taylorize/internal/integrator"
)

// JetOptions holds flags for the jet command.
type JetOptions struct {
	*RootOptions
	Problem      string
	X0           string
	T0           float64
	Order        int
	Params       []string
	NoSpecialize bool
}

// jetOutput is the JSON payload for the jet command.
type jetOutput struct {
	Problem     string      `json:"problem"`
	Specialized bool        `json:"specialized"`
	Order       int         `json:"order"`
	T0          float64     `json:"t0"`
	X           [][]float64 `json:"x"`
	DX          [][]float64 `json:"dx"`
}

// NewJetCommand creates the jet command. It expands the solution around a
// single point and prints the raw Taylor coefficients, which is the
// quickest way to inspect what an evaluator actually computes.
func NewJetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "jet <problem-file>",
		Short: "Print the Taylor coefficients at a single point",
		Long: `Expand the solution around one point and print the jet.

Each state component is listed with its coefficients in increasing order.

Example:
  taylorize jet problems/pendulum.cue --x0 1.3,0 --order 6`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJet(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Problem, "problem", "", "problem name (required when the file defines several)")
	cmd.Flags().StringVar(&opts.X0, "x0", "", "expansion point state, comma-separated (required)")
	cmd.Flags().Float64Var(&opts.T0, "t0", 0, "expansion point time")
	cmd.Flags().IntVar(&opts.Order, "order", 0, "expansion order (default from problem)")
	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "parameter override name=value (repeatable)")
	cmd.Flags().BoolVar(&opts.NoSpecialize, "no-specialize", false, "force the generic evaluator")
	_ = cmd.MarkFlagRequired("x0")

	return cmd
}

func runJet(opts *JetOptions, path string, cmd *cobra.Command) error {
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
		return NewExitError(ExitCommandError, "bad expansion point")
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

	order := opts.Order
	if order == 0 {
		order = p.Order
	}
	if order == 0 {
		order = integrator.DefaultOrder
	}

	jet, specialized, err := integrator.ExpandAt(reg, p, opts.T0, x0, order, params, opts.NoSpecialize)
	if err != nil {
		formatter.Error("E001", err.Error(), nil)
		return NewExitError(ExitFailure, "expansion failed")
	}

	if opts.Format == "json" {
		out := jetOutput{
			Problem:     p.Name,
			Specialized: specialized,
			Order:       order,
			T0:          opts.T0,
			X:           make([][]float64, len(jet.X)),
			DX:          make([][]float64, len(jet.DX)),
		}
		for i := range jet.X {
			out.X[i] = jet.X[i].Coeffs()
			out.DX[i] = jet.DX[i].Coeffs()
		}
		return formatter.Success(out)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "problem: %s\n", p.Name)
	fmt.Fprintf(&b, "evaluator: %s\n", evaluatorName(specialized))
	fmt.Fprintf(&b, "order: %d\n", order)
	for i, xi := range jet.X {
		fmt.Fprintf(&b, "%s[%d]: %s\n", p.Sig.State, i+1, formatCoeffs(xi.Coeffs()))
	}
	for i, di := range jet.DX {
		fmt.Fprintf(&b, "%s[%d]: %s", p.Sig.Output, i+1, formatCoeffs(di.Coeffs()))
		if i < len(jet.DX)-1 {
			b.WriteByte('\n')
		}
	}
	return formatter.Success(b.String())
}

func formatCoeffs(cs []float64) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = strconv.FormatFloat(c, 'g', 6, 64)
	}
	return strings.Join(parts, " ")
}
