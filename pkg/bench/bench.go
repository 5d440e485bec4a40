// Package bench schedules a directory of DFGs across resource scaling
// factors and priority variants and compares the latencies against
// target constraints.
package bench

import (
	"cmp"
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/hlsched/pkg/errors"
	pkgio "github.com/matzehuels/hlsched/pkg/io"
	"github.com/matzehuels/hlsched/pkg/pipeline"
	"github.com/matzehuels/hlsched/pkg/resource"
	"github.com/matzehuels/hlsched/pkg/sched"
	"github.com/matzehuels/hlsched/pkg/store"
)

// DefaultParallel is the number of DFGs scheduled at once.
const DefaultParallel = 4

// Row is the outcome of one (DFG, variant, scale) run.
type Row = store.Run

// Suite describes a benchmark.
type Suite struct {
	// Dir holds the problem files. Files with an unknown extension are
	// skipped.
	Dir string
	// Library resolves opcodes and supplies inventories for problems that
	// declare none. Nil means the default library.
	Library *resource.Library
	// Resources overrides every problem's inventory before scaling.
	Resources resource.Inventory
	// Scales multiplies every unit count; defaults to {1}.
	Scales []float64
	// Variants are the priority modes to compare; defaults to the default mode.
	Variants []sched.PriorityMode
	// Targets supplies the target latency per DFG name.
	Targets Constraints

	MaxIterations int
	Parallel      int
}

// Runner executes suites.
type Runner struct {
	Pipeline *pipeline.Runner
	// Store receives every row when non-nil.
	Store  store.Store
	Logger *log.Logger
}

// NewRunner creates a runner scheduling through p.
func NewRunner(p *pipeline.Runner, st store.Store, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	if p == nil {
		p = pipeline.NewRunner(nil, nil, logger)
	}
	return &Runner{Pipeline: p, Store: st, Logger: logger}
}

type job struct {
	dfg     string
	problem *pkgio.Problem
	variant sched.PriorityMode
	scale   float64
}

// Run schedules every problem in s.Dir for each scale and variant. A
// failing schedule becomes an ERROR row; loading errors and cancellation
// abort the suite. Rows are ordered by DFG, variant and descending scale.
func (r *Runner) Run(ctx context.Context, s Suite) ([]Row, error) {
	problems, err := loadDir(s.Dir, s.Library, r.Logger)
	if err != nil {
		return nil, err
	}
	scales := s.Scales
	if len(scales) == 0 {
		scales = []float64{1}
	}
	variants := s.Variants
	if len(variants) == 0 {
		variants = []sched.PriorityMode{sched.DefaultPriority}
	}
	parallel := s.Parallel
	if parallel <= 0 {
		parallel = DefaultParallel
	}

	var jobs []job
	for _, p := range problems {
		for _, v := range variants {
			for _, f := range scales {
				if f <= 0 {
					return nil, errors.New(errors.ErrCodeInvalidOption, "scale factor must be positive, got %v", f)
				}
				jobs = append(jobs, job{dfg: p.Name, problem: p, variant: v, scale: f})
			}
		}
	}
	r.Logger.Info("running benchmark", "dfgs", len(problems), "runs", len(jobs), "parallel", parallel)

	rows := make([]Row, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, j := range jobs {
		g.Go(func() error {
			row, err := r.runOne(gctx, s, j)
			if err != nil {
				return err
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(rows, func(a, b Row) int {
		if c := cmp.Compare(a.DFG, b.DFG); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Variant, b.Variant); c != 0 {
			return c
		}
		return cmp.Compare(b.ScaleFactor, a.ScaleFactor)
	})

	if r.Store != nil {
		for i := range rows {
			if err := r.Store.SaveRun(ctx, &rows[i]); err != nil {
				return rows, err
			}
		}
	}
	return rows, nil
}

func (r *Runner) runOne(ctx context.Context, s Suite, j job) (Row, error) {
	inv := j.problem.Resources
	if len(s.Resources) > 0 {
		inv = s.Resources
	}
	row := Row{
		DFG:           j.dfg,
		Variant:       string(j.variant),
		ScaleFactor:   j.scale,
		TargetLatency: s.Targets.Target(j.dfg),
	}

	start := time.Now()
	res, err := r.Pipeline.Execute(ctx, j.problem, pipeline.Options{
		Priority:      string(j.variant),
		MaxIterations: s.MaxIterations,
		Resources:     inv.Scale(j.scale),
		Verify:        true,
		Logger:        log.New(io.Discard),
	})
	row.RuntimeMS = float64(time.Since(start).Microseconds()) / 1000
	if ctx.Err() != nil {
		return row, ctx.Err()
	}
	if err != nil {
		r.Logger.Warn("run failed", "dfg", j.dfg, "variant", j.variant, "scale", j.scale, "err", err)
		row.Status = store.StatusError
		row.Error = errors.UserMessage(err)
		return row, nil
	}

	row.ActualLatency = res.Schedule.Latency
	for _, n := range res.Binding.Used {
		row.FUsUsed += n
	}
	row.Status = status(row.ActualLatency, row.TargetLatency)
	if row.TargetLatency > 0 {
		row.Delta = row.ActualLatency - row.TargetLatency
	}
	r.Logger.Debug("run done", "dfg", j.dfg, "variant", j.variant, "scale", j.scale,
		"latency", row.ActualLatency, "status", row.Status)
	return row, nil
}

func status(actual, target int) store.Status {
	switch {
	case target <= 0:
		return store.StatusNoData
	case actual <= target:
		return store.StatusPass
	default:
		return store.StatusFail
	}
}

// loadDir loads every problem file in dir, sorted by file name.
func loadDir(dir string, lib *resource.Library, logger *log.Logger) ([]*pkgio.Problem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read benchmark dir %s", dir)
	}
	var problems []*pkgio.Problem
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, err := pkgio.DetectFormat(path); err != nil {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		p, err := pkgio.Load(path, pkgio.LoadOptions{
			Library: lib,
			Warn: func(format string, args ...any) {
				logger.Warnf("%s: "+format, append([]any{name}, args...)...)
			},
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "load %s", e.Name())
		}
		p.Name = name
		problems = append(problems, p)
	}
	if len(problems) == 0 {
		return nil, errors.New(errors.ErrCodeNotFound, "no problem files in %s", dir)
	}
	return problems, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "%s does not exist", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", path)
	}
	return data, nil
}
