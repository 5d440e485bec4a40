package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/hlsched/pkg/errors"
	pkgio "github.com/matzehuels/hlsched/pkg/io"
	"github.com/matzehuels/hlsched/pkg/pipeline"
	"github.com/matzehuels/hlsched/pkg/report"
	"github.com/matzehuels/hlsched/pkg/resource"
	"github.com/matzehuels/hlsched/pkg/verify"
)

// scheduleOpts holds the flags shared by schedule and render.
type scheduleOpts struct {
	lib         string
	format      string
	resources   string
	priority    string
	maxIter     int
	cycleBudget int
	noCache     bool
	refresh     bool
	reduce      bool
	skipVerify  bool
	detailed    bool
}

func (o *scheduleOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.lib, "lib", "", "resource library file (TOML or legacy text)")
	cmd.Flags().StringVar(&o.format, "format", "", "problem format: json, yaml, hcl, dot (default: by extension)")
	cmd.Flags().StringVarP(&o.resources, "resources", "r", "", "override the unit inventory, e.g. ALU=2,MUL=1")
	cmd.Flags().StringVarP(&o.priority, "priority", "p", "", "priority function: force (default), linear, slack")
	cmd.Flags().IntVar(&o.maxIter, "max-iter", 0, "controller iteration budget (default 20)")
	cmd.Flags().IntVar(&o.cycleBudget, "cycle-budget", 0, "per-pass cycle budget as a multiple of the target (default 10)")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&o.refresh, "refresh", false, "ignore cached schedules")
	cmd.Flags().BoolVar(&o.reduce, "reduce", false, "drop transitively implied dependencies first")
}

// pipelineOptions merges the configured scheduler defaults with the flags.
func (c *CLI) pipelineOptions(o *scheduleOpts) (pipeline.Options, error) {
	sc := c.cfg().Scheduler
	opts := pipeline.Options{
		Priority:          sc.Priority,
		MaxIterations:     sc.MaxIterations,
		CycleBudgetFactor: sc.CycleBudgetFactor,
		Verify:            !o.skipVerify,
		Refresh:           o.refresh,
		Reduce:            o.reduce,
		Detailed:          o.detailed,
		Logger:            c.Logger,
	}
	if o.priority != "" {
		opts.Priority = o.priority
	}
	if o.maxIter > 0 {
		opts.MaxIterations = o.maxIter
	}
	if o.cycleBudget > 0 {
		opts.CycleBudgetFactor = o.cycleBudget
	}
	inv, err := resource.ParseInventory(o.resources)
	if err != nil {
		return opts, err
	}
	opts.Resources = inv
	return opts, nil
}

// scheduleCommand creates the schedule command.
func (c *CLI) scheduleCommand() *cobra.Command {
	var (
		o           scheduleOpts
		gantt       bool
		table       bool
		out         string
		jsonOut     bool
		svg         string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "schedule <problem>",
		Short: "Schedule a data-flow graph under resource limits",
		Long: `Schedule a data-flow graph under resource limits.

The problem is read from JSON, YAML, HCL or DOT (detected by extension). Every
operation gets a start cycle such that dependencies hold and no cycle uses more
units of a type than are available. The controller retargets the horizon until
the schedule length converges.

Schedules are cached locally; --refresh recomputes them.

Examples:
  hlsched schedule fir.dot --resources ALU=2,MUL=1 --gantt
  hlsched schedule hal.hcl --priority slack --out hal.result.txt
  hlsched schedule arf.json --interactive`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.pipelineOptions(&o)
			if err != nil {
				return err
			}
			if svg != "" {
				opts.Formats = []string{pipeline.FormatSVG}
			}
			res, err := c.runSchedule(cmd.Context(), args[0], &o, opts)
			if res == nil {
				return err
			}
			verifyErr := err
			lib, err := c.library(o.lib)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if jsonOut {
				if err := pkgio.WriteJSON(w, newScheduleOutput(res)); err != nil {
					return err
				}
			} else {
				if err := c.printSchedule(w, res, lib, gantt, table); err != nil {
					return err
				}
			}
			if out != "" {
				if err := writeResultFile(out, res, lib); err != nil {
					return err
				}
				printFile(out)
				printNextStep("Check it", fmt.Sprintf("%s verify %s %s", appName, args[0], out))
			}
			if svg != "" {
				if err := os.WriteFile(svg, res.Artifacts[pipeline.FormatSVG], 0o644); err != nil {
					return err
				}
				printFile(svg)
			}
			if interactive {
				if err := runBrowser(res); err != nil {
					return err
				}
			}
			return verifyErr
		},
	}

	o.register(cmd)
	cmd.Flags().BoolVar(&o.skipVerify, "no-verify", false, "skip re-checking the final schedule")
	cmd.Flags().BoolVar(&gantt, "gantt", false, "print a Gantt chart of the unit occupancy")
	cmd.Flags().BoolVar(&table, "table", false, "print the schedule as a table")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the result file (latency, units, op start unit)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the result as JSON")
	cmd.Flags().StringVar(&svg, "svg", "", "write the scheduled DFG as SVG")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse the controller iterations")

	return cmd
}

// runSchedule loads input and runs the pipeline. A schedule that fails
// verification is returned together with the error.
func (c *CLI) runSchedule(ctx context.Context, input string, o *scheduleOpts, opts pipeline.Options) (*pipeline.Result, error) {
	lib, err := c.library(o.lib)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	p, err := c.loadProblem(input, o.format, lib)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", input, err)
	}

	runner, err := c.newRunner(ctx, o.noCache)
	if err != nil {
		return nil, fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Scheduling %s...", p.Name))
	spinner.Start()
	res, err := runner.Execute(ctx, p, opts)
	if res == nil {
		spinner.StopWithError("Scheduling failed")
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	spinner.Stop()
	if err != nil {
		printWarning("Schedule failed verification")
		for _, v := range res.Verify.Violations {
			printDetail("%s", v)
		}
	}
	return res, err
}

func (c *CLI) printSchedule(w io.Writer, res *pipeline.Result, lib *resource.Library, gantt, table bool) error {
	s := report.NewSummary(res.Problem.Name, res.Graph, res.Schedule, res.Binding, res.Inventory, lib)
	if err := s.Write(w); err != nil {
		return err
	}
	printStats(res.Stats.Operations, res.Stats.Edges, res.CacheInfo.ScheduleHit)

	if gantt {
		fmt.Fprintln(w)
		fmt.Fprintln(w, report.Gantt(res.Graph, res.Schedule.Starts, res.Schedule.Latency, res.Binding,
			report.GanttOptions{Inventory: res.Inventory}))
	}
	if table {
		fmt.Fprintln(w)
		fmt.Fprintln(w, report.Table(res.Graph, res.Schedule.Starts, res.Binding, res.Schedule.Schedule))
	}
	return nil
}

// scheduleOutput is the --json form of a run.
type scheduleOutput struct {
	report.Summary
	ProblemHash string         `json:"problem_hash"`
	Starts      map[string]int `json:"starts"`
	Units       map[string]int `json:"units"`
	Verify      *verify.Report `json:"verify,omitempty"`
	Cached      bool           `json:"cached"`
}

func newScheduleOutput(res *pipeline.Result) scheduleOutput {
	return scheduleOutput{
		Summary:     report.NewSummary(res.Problem.Name, res.Graph, res.Schedule, res.Binding, res.Inventory, nil),
		ProblemHash: res.ProblemHash,
		Starts:      res.Schedule.Starts,
		Units:       res.Binding.Unit,
		Verify:      res.Verify,
		Cached:      res.CacheInfo.ScheduleHit,
	}
}

func writeResultFile(path string, res *pipeline.Result, lib *resource.Library) error {
	rf := report.ResultFile(res.Problem.Name, res.Graph, res.Schedule.Latency, res.Schedule.Starts, res.Binding, res.Inventory, lib)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", path)
	}
	if err := pkgio.WriteResultText(f, rf); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
