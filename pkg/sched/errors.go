package sched

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/dag/transform"
	"github.com/matzehuels/hlsched/pkg/errors"
)

var errNotNormalized = stderrors.New("graph is not normalized")

// CycleError describes a graph that has no topological order.
type CycleError struct {
	// Sweep names the traversal that failed ("asap" or "down-length").
	Sweep string
	// Unresolved lists the operations the sweep never reached.
	Unresolved []string
	// Cycle is one concrete loop through the unresolved operations, first
	// and last element equal. It may be nil if no loop could be extracted.
	Cycle []string
}

func (e *CycleError) Error() string {
	msg := fmt.Sprintf("%s sweep left %d unresolved operations: %s",
		e.Sweep, len(e.Unresolved), strings.Join(e.Unresolved, ", "))
	if len(e.Cycle) > 0 {
		msg += " (cycle " + strings.Join(e.Cycle, " -> ") + ")"
	}
	return msg
}

func newCycleError(g *dag.DAG, sweep string, done []bool) error {
	var unresolved []string
	for i, ok := range done {
		if !ok {
			unresolved = append(unresolved, g.At(i).ID)
		}
	}
	cerr := &CycleError{Sweep: sweep, Unresolved: unresolved, Cycle: transform.FindCycle(g)}
	return errors.Wrap(errors.ErrCodeCycleDetected, cerr, "graph has a cycle")
}

// PassError describes a list-scheduling pass that could not finish.
type PassError struct {
	// Cycle is the simulation cycle at which the pass gave up.
	Cycle int
	// Starts holds the start cycles assigned before the failure.
	Starts map[string]int
	// Unscheduled lists operations that never started, in index order.
	Unscheduled []string
}

func (e *PassError) Error() string {
	return fmt.Sprintf("stopped at cycle %d with %d unscheduled operations: %s",
		e.Cycle, len(e.Unscheduled), strings.Join(e.Unscheduled, ", "))
}
