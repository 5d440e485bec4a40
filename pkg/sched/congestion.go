package sched

import "github.com/matzehuels/hlsched/pkg/resource"

// Congestion holds the per-node congestion terms of one horizon.
type Congestion struct {
	// Local is the peak expected occupancy of the node's resource type over
	// its activity window, divided by the type's unit count.
	Local []float64
	// PathSum and PathLen accumulate Local along the critical-successor
	// chain from the node to SINK, both ends included.
	PathSum []float64
	PathLen []int
	// Cost is PathSum / PathLen: the average local congestion of the
	// node's critical chain.
	Cost []float64
}

// ComputeCongestion scores every node by how contended the resources on
// its critical chain are expected to be.
//
// The local term of u samples the distribution graph of u's type over
// [ASAP(u), ALAP(u)+latency(u)-1], restricted to [1, Target], and divides
// the peak by the unit count. Anchors and undeclared types score zero.
// Nodes are visited sinks first so each node can extend the running sum
// and length of its critical successor; averaging rather than summing
// keeps long, mostly idle tails from looking as congested as their worst
// node.
func ComputeCongestion(a *Analysis, h *Horizon, inv resource.Inventory) *Congestion {
	g := a.Graph
	n := g.NodeCount()
	c := &Congestion{
		Local:   make([]float64, n),
		PathSum: make([]float64, n),
		PathLen: make([]int, n),
		Cost:    make([]float64, n),
	}

	outdeg := make([]int, n)
	for i := range n {
		outdeg[i] = g.OutDegree(i)
	}

	queue := []int{g.Sink()}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]

		c.Local[u] = localCost(a, h, inv, u)
		c.PathSum[u] = c.Local[u]
		c.PathLen[u] = 1
		if v := a.CritSucc[u]; v >= 0 {
			c.PathSum[u] += c.PathSum[v]
			c.PathLen[u] += c.PathLen[v]
		}
		c.Cost[u] = c.PathSum[u] / float64(c.PathLen[u])

		for _, p := range g.Predecessors(u) {
			outdeg[p]--
			if outdeg[p] == 0 {
				queue = append(queue, p)
			}
		}
	}
	return c
}

func localCost(a *Analysis, h *Horizon, inv resource.Inventory, u int) float64 {
	node := a.Graph.At(u)
	if node.IsAnchor() || !inv.Declared(node.Type) {
		return 0
	}
	curve := h.DG[node.Type]

	var peak float64
	for m := a.ASAP[u]; m < h.ALAP[u]+node.Latency; m++ {
		if m > h.Target {
			break
		}
		if m < 1 {
			continue
		}
		peak = max(peak, curve[m])
	}
	return peak / float64(inv.Units(node.Type))
}
