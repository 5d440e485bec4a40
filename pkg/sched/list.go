package sched

import (
	"cmp"
	"context"
	"slices"

	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/errors"
	"github.com/matzehuels/hlsched/pkg/resource"
)

// DefaultCycleBudgetFactor bounds a pass to factor × node count cycles.
const DefaultCycleBudgetFactor = 10

// Schedule is the outcome of one list-scheduling pass.
type Schedule struct {
	Graph *dag.DAG `json:"-"`

	// Target is the horizon the pass was run against.
	Target int `json:"target"`
	// Latency is start(SINK) - 1, the number of cycles the operations use.
	Latency int `json:"latency"`
	// Start holds the start cycle of every node by index, -1 if the node
	// was never started.
	Start []int `json:"-"`

	// Priority, Horizon and Congestion record the inputs of the pass.
	// They are nil for schedules not produced by a graph pass.
	Priority   []float64   `json:"-"`
	Horizon    *Horizon    `json:"-"`
	Congestion *Congestion `json:"-"`
}

// Starts returns the start cycle of every scheduled node keyed by ID.
func (s *Schedule) Starts() map[string]int {
	if s == nil || s.Graph == nil {
		return nil
	}
	return startMap(s.Graph, s.Start)
}

// StartOf returns the start cycle of the node with the given ID.
func (s *Schedule) StartOf(id string) (int, bool) {
	if s == nil || s.Graph == nil {
		return 0, false
	}
	i, ok := s.Graph.Index(id)
	if !ok || s.Start[i] < 0 {
		return 0, false
	}
	return s.Start[i], true
}

func startMap(g *dag.DAG, start []int) map[string]int {
	out := make(map[string]int, len(start))
	for i, c := range start {
		if c >= 0 {
			out[g.At(i).ID] = c
		}
	}
	return out
}

// ListOptions configures [ListSchedule].
type ListOptions struct {
	// CycleBudgetFactor bounds the simulation to factor × node count
	// cycles. Zero selects DefaultCycleBudgetFactor.
	CycleBudgetFactor int
	// Warn receives non-fatal diagnostics such as operations whose
	// resource type is undeclared. Nil discards them.
	Warn func(format string, args ...any)
}

const (
	opWaiting uint8 = iota
	opReady
	opRunning
	opDone
)

type inflight struct {
	node   int
	finish int
}

// listState is the mutable simulation state of one pass.
type listState struct {
	g      *dag.DAG
	prio   []float64
	start  []int
	state  []uint8
	unmet  []int // unfinished predecessors
	ready  []int
	active []inflight
	done   int
}

// ListSchedule simulates the datapath cycle by cycle and starts ready
// operations in priority order while units are free.
//
// SOURCE is finished at cycle 0 and the simulation begins at cycle 1. Each
// cycle first retires operations whose completion cycle has arrived and
// returns their units. Then zero-latency operations and the anchors are
// started and finished on the spot, repeatedly, until none is ready, so
// pass-through nodes never consume a cycle. Finally the remaining ready
// operations are taken in ascending priority order (ties by node index) and
// started while their type has a free unit. Operations of an undeclared
// type are reported once through opts.Warn and never start.
//
// The pass fails with SCHEDULER_STALLED if nothing is ready or running
// while work remains, and with RUNTIME_BUDGET_EXCEEDED once the cycle
// count passes the budget. Both carry a [*PassError].
func ListSchedule(ctx context.Context, g *dag.DAG, inv resource.Inventory, prio []float64, opts ListOptions) (*Schedule, error) {
	if !g.Normalized() {
		return nil, errNotNormalized
	}
	factor := opts.CycleBudgetFactor
	if factor <= 0 {
		factor = DefaultCycleBudgetFactor
	}
	warn := opts.Warn
	if warn == nil {
		warn = func(string, ...any) {}
	}

	n := g.NodeCount()
	s := &listState{
		g:     g,
		prio:  prio,
		start: make([]int, n),
		state: make([]uint8, n),
		unmet: make([]int, n),
	}
	for i := range n {
		s.start[i] = -1
		s.unmet[i] = g.InDegree(i)
	}
	avail := inv.Clone()
	warned := make([]bool, n)

	src := g.Source()
	s.start[src] = 0
	s.finish(src)

	budget := factor * n
	for cycle := 1; s.done < n; cycle++ {
		if cycle%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		// Retire.
		kept := s.active[:0]
		for _, f := range s.active {
			if cycle < f.finish {
				kept = append(kept, f)
				continue
			}
			node := g.At(f.node)
			if node.Latency > 0 && inv.Declared(node.Type) {
				avail[node.Type]++
			}
			s.finish(f.node)
		}
		s.active = kept

		if len(s.ready) == 0 && len(s.active) == 0 {
			return nil, errors.Wrap(errors.ErrCodeSchedulerStalled, s.passError(cycle),
				"nothing ready or running with %d of %d operations finished", s.done, n)
		}

		// Zero-latency flush.
		for {
			var instant []int
			for _, u := range s.ready {
				if isInstant(g.At(u)) {
					instant = append(instant, u)
				}
			}
			if len(instant) == 0 {
				break
			}
			s.sortByPriority(instant)
			for _, u := range instant {
				if s.state[u] != opReady {
					continue
				}
				s.start[u] = cycle
				s.finish(u)
			}
			s.compactReady()
		}
		if s.done == n {
			break
		}

		// Greedy assignment.
		candidates := slices.Clone(s.ready)
		s.sortByPriority(candidates)
		for _, u := range candidates {
			node := g.At(u)
			if !inv.Declared(node.Type) {
				if !warned[u] {
					warn("operation %s needs undeclared resource type %s", node.ID, node.Type)
					warned[u] = true
				}
				continue
			}
			if avail[node.Type] == 0 {
				continue
			}
			avail[node.Type]--
			s.start[u] = cycle
			s.state[u] = opRunning
			s.active = append(s.active, inflight{node: u, finish: cycle + node.Latency})
		}
		s.compactReady()

		if cycle+1 > budget {
			return nil, errors.Wrap(errors.ErrCodeRuntimeBudgetExceeded, s.passError(cycle+1),
				"no complete schedule within %d cycles", budget)
		}
	}

	return &Schedule{
		Graph:    g,
		Latency:  s.start[g.Sink()] - 1,
		Start:    s.start,
		Priority: prio,
	}, nil
}

// isInstant reports whether a node is started and finished in the same
// scheduling instant.
func isInstant(n *dag.Node) bool { return n.Latency == 0 || n.IsAnchor() }

// finish marks u done and moves every successor whose predecessors are
// all done to the ready list.
func (s *listState) finish(u int) {
	s.state[u] = opDone
	s.done++
	for _, v := range s.g.Successors(u) {
		s.unmet[v]--
		if s.unmet[v] == 0 && s.state[v] == opWaiting {
			s.state[v] = opReady
			s.ready = append(s.ready, v)
		}
	}
}

func (s *listState) compactReady() {
	s.ready = slices.DeleteFunc(s.ready, func(u int) bool { return s.state[u] != opReady })
}

func (s *listState) sortByPriority(nodes []int) {
	slices.SortFunc(nodes, func(a, b int) int {
		if c := cmp.Compare(s.priority(a), s.priority(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
}

func (s *listState) priority(u int) float64 {
	if u < len(s.prio) {
		return s.prio[u]
	}
	return inf
}

func (s *listState) passError(cycle int) *PassError {
	var unscheduled []string
	for i, c := range s.start {
		if c < 0 {
			unscheduled = append(unscheduled, s.g.At(i).ID)
		}
	}
	return &PassError{
		Cycle:       cycle,
		Starts:      startMap(s.g, s.start),
		Unscheduled: unscheduled,
	}
}
