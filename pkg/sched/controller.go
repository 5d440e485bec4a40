package sched

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/hlsched/pkg/observability"
)

// DefaultMaxIterations is the controller's iteration budget.
const DefaultMaxIterations = 20

// historyLen is the number of recent latencies kept for oscillation
// detection: A, B, A needs three.
const historyLen = 3

// State is a state of the convergence controller.
type State string

const (
	// StateProbing: the pass result was accepted and becomes the next target.
	StateProbing State = "probing"
	// StateForcedRetarget: an oscillation was detected and the next pass
	// reruns the target that produced the better latency.
	StateForcedRetarget State = "forced-retarget"
	// StateConverged: the achieved latency equals the target.
	StateConverged State = "converged"
	// StateStable: the controller oscillates while already running the
	// best target, so it stops at the better latency.
	StateStable State = "stable"
	// StateBudgetExhausted: the iteration budget ran out; the last
	// accepted schedule is returned.
	StateBudgetExhausted State = "budget-exhausted"
)

// Terminal reports whether the controller stops in state s.
func (s State) Terminal() bool {
	return s == StateConverged || s == StateStable || s == StateBudgetExhausted
}

// Pass schedules the graph against one target horizon.
type Pass interface {
	Run(ctx context.Context, target int) (*Schedule, error)
}

// PassFunc adapts a function to the [Pass] interface.
type PassFunc func(ctx context.Context, target int) (*Schedule, error)

// Run calls f(ctx, target).
func (f PassFunc) Run(ctx context.Context, target int) (*Schedule, error) { return f(ctx, target) }

// Iteration records one controller step.
type Iteration struct {
	Number   int   `json:"iteration"`
	Target   int   `json:"target"`
	Achieved int   `json:"achieved"`
	State    State `json:"state"`
}

// Outcome is the result of a controller run.
type Outcome struct {
	// Schedule achieved Latency. For StateBudgetExhausted it is the last
	// accepted schedule.
	Schedule   *Schedule
	Latency    int
	State      State
	Iterations []Iteration
}

// Controller re-targets the horizon until the achieved latency is a fixed
// point or the sequence of latencies oscillates.
//
// Each iteration runs the pass at the current target and records which
// target first produced each achieved latency. Then:
//
//   - achieved == target: converged, stop.
//   - achieved equals the latency two iterations back (A, B, A): take the
//     smaller of A and B as optimum. If the current target is the one that
//     first produced it, stop; otherwise rerun that target next with a
//     fresh history, without accepting this pass.
//   - otherwise accept the pass and use its latency as the next target.
//
// The schedule returned on a stop is the one that first achieved the
// returned latency, so schedule and latency always agree.
type Controller struct {
	// MaxIterations bounds the number of passes. Zero selects
	// DefaultMaxIterations.
	MaxIterations int
	// Logger receives one debug line per iteration. Nil discards them.
	Logger *log.Logger
}

// Run drives pass from the initial target until a terminal state.
// Pass errors abort the run and are returned wrapped with the iteration
// and target.
func (c *Controller) Run(ctx context.Context, pass Pass, target int) (*Outcome, error) {
	maxIter := c.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	logger := c.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	origin := make(map[int]int)          // achieved latency -> first target producing it
	byLatency := make(map[int]*Schedule) // achieved latency -> first schedule achieving it
	history := make([]int, 0, historyLen)
	var accepted *Schedule
	out := &Outcome{}

	for it := 1; it <= maxIter; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := pass.Run(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("iteration %d (target %d): %w", it, target, err)
		}
		achieved := s.Latency
		if _, seen := origin[achieved]; !seen {
			origin[achieved] = target
			byLatency[achieved] = s
		}
		history = append(history, achieved)
		if len(history) > historyLen {
			history = history[1:]
		}

		step := Iteration{Number: it, Target: target, Achieved: achieved}
		next := target
		switch {
		case achieved == target:
			step.State = StateConverged
			out.Schedule, out.Latency = s, achieved

		case len(history) == historyLen && history[0] == achieved:
			optimum := min(achieved, history[1])
			if best := origin[optimum]; best != target {
				step.State = StateForcedRetarget
				next = best
				history = history[:0]
			} else {
				step.State = StateStable
				out.Schedule, out.Latency = byLatency[optimum], optimum
			}

		default:
			step.State = StateProbing
			accepted = s
			next = achieved
		}

		out.Iterations = append(out.Iterations, step)
		logger.Debug("scheduler iteration",
			"iteration", it,
			"target", target,
			"achieved", achieved,
			"state", step.State)
		observability.Scheduler().OnIteration(ctx, it, target, achieved, string(step.State))

		if step.State.Terminal() {
			out.State = step.State
			return out, nil
		}
		target = next
	}

	// The first iteration either converges or is accepted, so accepted is
	// set whenever the loop runs out.
	out.State = StateBudgetExhausted
	out.Schedule, out.Latency = accepted, accepted.Latency
	return out, nil
}
