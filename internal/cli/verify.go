package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	pkgio "github.com/matzehuels/hlsched/pkg/io"
	"github.com/matzehuels/hlsched/pkg/observability"
	"github.com/matzehuels/hlsched/pkg/resource"
	"github.com/matzehuels/hlsched/pkg/verify"
)

// verifyCommand creates the verify command.
func (c *CLI) verifyCommand() *cobra.Command {
	var (
		lib       string
		format    string
		resources string
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "verify <problem> <result>",
		Short: "Check a result file against its problem",
		Long: `Check a result file against its problem.

The result file holds the claimed latency and one "op start unit" line per
operation, as written by 'schedule --out'. Every dependency, the per-cycle unit
usage and the claimed latency are re-derived from the start cycles. The command
fails when any violation is found.

The unit limits come from the problem unless --resources overrides them.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := resource.ParseInventory(resources)
			if err != nil {
				return err
			}
			rep, err := c.runVerify(cmd.Context(), args[0], args[1], lib, format, inv)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if jsonOut {
				if err := pkgio.WriteJSON(w, rep); err != nil {
					return err
				}
			} else {
				printReport(w, rep)
			}
			return rep.Err()
		},
	}

	cmd.Flags().StringVar(&lib, "lib", "", "resource library file (TOML or legacy text)")
	cmd.Flags().StringVar(&format, "format", "", "problem format: json, yaml, hcl, dot (default: by extension)")
	cmd.Flags().StringVarP(&resources, "resources", "r", "", "override the unit inventory, e.g. ALU=2,MUL=1")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the report as JSON")

	return cmd
}

func (c *CLI) runVerify(ctx context.Context, problemPath, resultPath, libPath, format string, inv resource.Inventory) (*verify.Report, error) {
	lib, err := c.library(libPath)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	p, err := c.loadProblem(problemPath, format, lib)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", problemPath, err)
	}
	g, err := p.Graph(func(f string, args ...any) { c.Logger.Warnf(f, args...) })
	if err != nil {
		return nil, err
	}
	rf, err := pkgio.ImportResultText(resultPath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", resultPath, err)
	}
	if len(inv) == 0 {
		inv = p.Resources
	}

	rep := verify.Check(g, inv, rf.Starts(), rf.Latency)
	observability.Scheduler().OnVerify(ctx, p.Name, len(rep.Violations))
	c.Logger.Debug("verified", "problem", p.Name, "latency", rep.Latency, "violations", len(rep.Violations))
	return rep, nil
}

func printReport(w io.Writer, rep *verify.Report) {
	fmt.Fprintln(w, styleKeyCol.Render("Latency")+StyleNumber.Render(fmt.Sprint(rep.Latency)))
	fmt.Fprintln(w, styleKeyCol.Render("Critical path")+StyleNumber.Render(fmt.Sprint(rep.CriticalPath)))
	for _, t := range slices.Sorted(maps.Keys(rep.PeakUnits)) {
		fmt.Fprintln(w, styleKeyCol.Render("Peak "+string(t))+StyleNumber.Render(fmt.Sprint(rep.PeakUnits[t])))
	}
	if rep.OK() {
		fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" Schedule is feasible")
		return
	}
	fmt.Fprintln(w, styleIconError.Render(iconError)+fmt.Sprintf(" %d violation(s)", len(rep.Violations)))
	for _, v := range rep.Violations {
		fmt.Fprintln(w, "  "+StyleDim.Render(string(v.Kind))+" "+v.Message)
	}
}
