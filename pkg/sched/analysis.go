package sched

import (
	"fmt"

	"github.com/matzehuels/hlsched/pkg/dag"
)

// Analysis holds the horizon-independent path bounds of a graph.
type Analysis struct {
	Graph *dag.DAG

	// ASAP is the earliest start cycle of each node. SOURCE is 0 and its
	// successors start no earlier than cycle 1.
	ASAP []int
	// DownLen is the longest path, in cycles, from a node's start to the
	// start of SINK.
	DownLen []int
	// CritSucc is the successor achieving DownLen, or -1.
	CritSucc []int
	// CriticalPath is the largest DownLen over real operations, 0 if the
	// graph has none. No schedule can be shorter.
	CriticalPath int
}

// Analyze runs the ASAP and down-length sweeps on a normalized graph.
// It returns a CYCLE_DETECTED error if either sweep cannot order every node.
func Analyze(g *dag.DAG) (*Analysis, error) {
	if !g.Normalized() {
		return nil, fmt.Errorf("analyze: %w", errNotNormalized)
	}
	a := &Analysis{Graph: g}
	var err error
	if a.ASAP, err = ComputeASAP(g); err != nil {
		return nil, err
	}
	if a.DownLen, a.CritSucc, a.CriticalPath, err = ComputeDownLength(g); err != nil {
		return nil, err
	}
	return a, nil
}

// InitialTarget returns the first horizon to schedule against:
// ASAP(SINK) - 1, the unconstrained schedule length.
func (a *Analysis) InitialTarget() int {
	return a.ASAP[a.Graph.Sink()] - 1
}

// ComputeASAP computes earliest start cycles with Kahn's algorithm seeded
// at SOURCE.
//
// SOURCE starts at 0 and counts as finished before cycle 1 whatever its
// latency; every other node starts at the latest finish of its
// predecessors.
func ComputeASAP(g *dag.DAG) ([]int, error) {
	n := g.NodeCount()
	asap := make([]int, n)
	indeg := make([]int, n)
	for i := range n {
		indeg[i] = g.InDegree(i)
	}
	done := make([]bool, n)

	queue := []int{g.Source()}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		done[u] = true

		finish := asap[u] + g.At(u).Latency
		if u == g.Source() {
			finish = 1
		}
		for _, v := range g.Successors(u) {
			asap[v] = max(asap[v], finish)
			indeg[v]--
			if indeg[v] == 0 {
				queue = append(queue, v)
			}
		}
	}

	if !all(done) {
		return nil, newCycleError(g, "asap", done)
	}
	return asap, nil
}

// ComputeDownLength computes the longest path from every node to SINK with
// a reverse Kahn sweep seeded at SINK.
//
// SINK's down-length is its own latency. A node u is finalized once all its
// successors are; its down-length is the maximum over successors v of
// DownLen(v) + latency(u), and the first successor in discovery order that
// reaches the maximum becomes its critical successor.
//
// The returned critical path is the maximum down-length over real
// operations.
func ComputeDownLength(g *dag.DAG) (down, critSucc []int, criticalPath int, err error) {
	n := g.NodeCount()
	down = make([]int, n)
	critSucc = make([]int, n)
	outdeg := make([]int, n)
	for i := range n {
		critSucc[i] = -1
		outdeg[i] = g.OutDegree(i)
	}
	done := make([]bool, n)

	sink := g.Sink()
	down[sink] = g.At(sink).Latency
	queue := []int{sink}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		done[v] = true

		if v != sink {
			lat := g.At(v).Latency
			best := -1
			for _, s := range g.Successors(v) {
				if cand := down[s] + lat; cand > best {
					best = cand
					critSucc[v] = s
				}
			}
			down[v] = max(best, lat)
		}

		for _, u := range g.Predecessors(v) {
			outdeg[u]--
			if outdeg[u] == 0 {
				queue = append(queue, u)
			}
		}
	}

	if !all(done) {
		return nil, nil, 0, newCycleError(g, "down-length", done)
	}

	for i, nd := range g.Nodes() {
		if !nd.IsAnchor() {
			criticalPath = max(criticalPath, down[i])
		}
	}
	return down, critSucc, criticalPath, nil
}

func all(b []bool) bool {
	for _, v := range b {
		if !v {
			return false
		}
	}
	return true
}
