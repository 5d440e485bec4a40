package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/hlsched/pkg/bench"
	"github.com/matzehuels/hlsched/pkg/resource"
	"github.com/matzehuels/hlsched/pkg/sched"
	"github.com/matzehuels/hlsched/pkg/store"
)

// benchCommand creates the bench command.
func (c *CLI) benchCommand() *cobra.Command {
	var (
		constraints string
		scales      []float64
		variants    []string
		csvPath     string
		persist     bool
		lib         string
		resources   string
		maxIter     int
		parallel    int
		noCache     bool
	)

	cmd := &cobra.Command{
		Use:   "bench <dir>",
		Short: "Schedule a directory of DFGs across scales and priority variants",
		Long: `Schedule every problem file in a directory for each resource scale factor
and priority variant, and compare the latencies with target values.

Targets come from a constraints file, either TOML:

  [targets]
  hal = 6
  fir = 11

or the legacy "name latency" lines. A run PASSes when its latency is at most
the target, FAILs otherwise, and reports NO_DATA without a target.

Examples:
  hlsched bench dfgs/ --constraints targets.toml --scales 1,0.75,0.5
  hlsched bench dfgs/ --variants force,slack --csv results.csv --store`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			suite := bench.Suite{
				Dir:           args[0],
				Scales:        scales,
				MaxIterations: maxIter,
				Parallel:      parallel,
			}
			for _, v := range variants {
				mode, err := sched.ParsePriorityMode(v)
				if err != nil {
					return err
				}
				suite.Variants = append(suite.Variants, mode)
			}
			var err error
			if suite.Library, err = c.library(lib); err != nil {
				return fmt.Errorf("load library: %w", err)
			}
			if suite.Resources, err = resource.ParseInventory(resources); err != nil {
				return err
			}
			if constraints != "" {
				if suite.Targets, err = bench.LoadConstraints(constraints); err != nil {
					return err
				}
			}
			return c.runBench(cmd.Context(), cmd.OutOrStdout(), suite, csvPath, persist, noCache)
		},
	}

	cmd.Flags().StringVarP(&constraints, "constraints", "c", "", "target latencies (TOML [targets] or legacy text)")
	cmd.Flags().Float64SliceVar(&scales, "scales", []float64{1}, "resource scale factors")
	cmd.Flags().StringSliceVar(&variants, "variants", nil, "priority variants to compare (default: force)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "write the rows as CSV (- for stdout)")
	cmd.Flags().BoolVar(&persist, "store", false, "save every row to the configured run store")
	cmd.Flags().StringVar(&lib, "lib", "", "resource library file (TOML or legacy text)")
	cmd.Flags().StringVarP(&resources, "resources", "r", "", "inventory for every DFG before scaling, e.g. ALU=2,MUL=1")
	cmd.Flags().IntVar(&maxIter, "max-iter", 0, "controller iteration budget (default 20)")
	cmd.Flags().IntVarP(&parallel, "parallel", "j", bench.DefaultParallel, "DFGs scheduled at once")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runBench(ctx context.Context, w io.Writer, suite bench.Suite, csvPath string, persist, noCache bool) error {
	pr, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer pr.Close()

	var st store.Store
	if persist {
		sc, err := c.cfg().storeConfig()
		if err != nil {
			return err
		}
		if st, err = store.Open(ctx, sc, c.Logger); err != nil {
			return err
		}
		defer st.Close()
	}

	prog := newProgress(c.Logger)
	rows, err := bench.NewRunner(pr, st, c.Logger).Run(ctx, suite)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Ran %d schedules", len(rows)))

	if csvPath != "" {
		out, err := openOutput(csvPath)
		if err != nil {
			return err
		}
		defer out.Close()
		if err := bench.WriteCSV(out, rows); err != nil {
			return err
		}
		if csvPath == "-" {
			return nil
		}
		printFile(csvPath)
	}

	fmt.Fprintln(w, benchTable(rows))
	pass, fail, failed := tally(rows)
	printInfo("%d passed, %d failed, %d errors", pass, fail, failed)
	if persist {
		printDetail("Saved %d runs", len(rows))
	}
	return nil
}

func tally(rows []bench.Row) (pass, fail, failed int) {
	for _, r := range rows {
		switch r.Status {
		case store.StatusPass:
			pass++
		case store.StatusFail:
			fail++
		case store.StatusError:
			failed++
		}
	}
	return pass, fail, failed
}

func benchTable(rows []bench.Row) string {
	data := make([][]string, len(rows))
	for i, r := range rows {
		target, delta := "-", "-"
		if r.TargetLatency > 0 {
			target = strconv.Itoa(r.TargetLatency)
			delta = fmt.Sprintf("%+d", r.Delta)
		}
		data[i] = []string{
			r.DFG, r.Variant, strconv.FormatFloat(r.ScaleFactor, 'f', 2, 64),
			target, strconv.Itoa(r.ActualLatency), delta, string(r.Status),
			strconv.Itoa(r.FUsUsed), strconv.FormatFloat(r.RuntimeMS, 'f', 2, 64),
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("DFG", "Variant", "Scale", "Target", "Actual", "Delta", "Status", "FUs", "ms").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 6 {
				return cellStyle.Foreground(statusColor(rows[row].Status))
			}
			return cellStyle
		}).
		Render()
}

func statusColor(s store.Status) lipgloss.Color {
	switch s {
	case store.StatusPass:
		return colorGreen
	case store.StatusFail, store.StatusError:
		return colorRed
	default:
		return colorGray
	}
}
