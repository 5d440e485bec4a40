package sched

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/errors"
	"github.com/matzehuels/hlsched/pkg/resource"
)

// Options configures [Run].
type Options struct {
	Priority          PriorityMode `json:"priority,omitempty"`
	MaxIterations     int          `json:"max_iterations,omitempty"`
	CycleBudgetFactor int          `json:"cycle_budget_factor,omitempty"`

	// Logger receives warnings and per-iteration debug lines. Nil discards them.
	Logger *log.Logger `json:"-"`
}

// Result is the outcome of a scheduling run.
type Result struct {
	// Latency is the achieved schedule length in cycles.
	Latency int `json:"latency"`
	// CriticalPath is the resource-unconstrained lower bound.
	CriticalPath int `json:"critical_path"`
	// InitialTarget is the first horizon the controller tried.
	InitialTarget int `json:"initial_target"`
	// State is the controller's terminal state.
	State State `json:"state"`
	// Iterations lists every controller step.
	Iterations []Iteration `json:"iterations"`
	// Starts maps every operation to its start cycle, anchors included.
	Starts map[string]int `json:"starts"`
	// Warnings collects non-fatal diagnostics, each reported once.
	Warnings []string `json:"warnings,omitempty"`

	Schedule *Schedule `json:"-"`
	Analysis *Analysis `json:"-"`
}

// GraphPass is the [Pass] of a real graph: horizon analysis, congestion,
// priorities and list scheduling for one target.
type GraphPass struct {
	Analysis  *Analysis
	Inventory resource.Inventory
	Mode      PriorityMode
	List      ListOptions
}

// Run schedules the graph against target.
func (p *GraphPass) Run(ctx context.Context, target int) (*Schedule, error) {
	h := NewHorizon(p.Analysis, target)
	c := ComputeCongestion(p.Analysis, h, p.Inventory)
	prio := Priorities(p.Analysis, h, c, p.Mode)
	s, err := ListSchedule(ctx, p.Analysis.Graph, p.Inventory, prio, p.List)
	if err != nil {
		return nil, err
	}
	s.Target = target
	s.Horizon = h
	s.Congestion = c
	return s, nil
}

// Run schedules a normalized graph under the given inventory.
//
// The graph is analyzed once; the controller then runs [GraphPass] from
// the initial target ASAP(SINK) - 1. Structural and pass failures are
// returned as errors. An exhausted iteration budget is not: the result
// then has State [StateBudgetExhausted] and an ITERATION_BUDGET_EXCEEDED
// warning.
func Run(ctx context.Context, g *dag.DAG, inv resource.Inventory, opts Options) (*Result, error) {
	mode := opts.Priority
	if mode == "" {
		mode = DefaultPriority
	}
	if !ValidPriorityModes[mode] {
		return nil, errors.New(errors.ErrCodeInvalidOption, "unknown priority mode %q", mode)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	a, err := Analyze(g)
	if err != nil {
		return nil, err
	}

	var warnings []string
	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		if slices.Contains(warnings, msg) {
			return
		}
		warnings = append(warnings, msg)
		logger.Warn(msg)
	}

	pass := &GraphPass{
		Analysis:  a,
		Inventory: inv,
		Mode:      mode,
		List:      ListOptions{CycleBudgetFactor: opts.CycleBudgetFactor, Warn: warn},
	}
	ctrl := &Controller{MaxIterations: opts.MaxIterations, Logger: logger}

	out, err := ctrl.Run(ctx, pass, a.InitialTarget())
	if err != nil {
		return nil, err
	}
	if out.State == StateBudgetExhausted {
		warn("%v", errors.New(errors.ErrCodeIterationBudgetExceeded,
			"no convergence within %d iterations, keeping latency %d", len(out.Iterations), out.Latency))
	}

	return &Result{
		Latency:       out.Latency,
		CriticalPath:  a.CriticalPath,
		InitialTarget: a.InitialTarget(),
		State:         out.State,
		Iterations:    out.Iterations,
		Starts:        out.Schedule.Starts(),
		Warnings:      warnings,
		Schedule:      out.Schedule,
		Analysis:      a,
	}, nil
}
