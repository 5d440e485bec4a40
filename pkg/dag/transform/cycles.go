package transform

import "github.com/matzehuels/hlsched/pkg/dag"

// FindCycle returns the IDs along one directed cycle of g, starting and
// ending at the same node (for example [a b c a]), or nil if g is acyclic.
//
// The topological sweeps in the scheduler only learn which nodes never
// became ready; FindCycle turns that into a concrete loop a user can fix.
// Nodes are visited in index order, so the reported cycle is deterministic.
func FindCycle(g *dag.DAG) []string {
	const (
		white = iota
		gray
		black
	)

	n := g.NodeCount()
	color := make([]int, n)
	parent := make([]int, n)
	var cycle []string

	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range g.Successors(u) {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				cycle = []string{g.At(v).ID}
				for w := u; w != v; w = parent[w] {
					cycle = append(cycle, g.At(w).ID)
				}
				cycle = append(cycle, g.At(v).ID)
				reverse(cycle)
				return true
			}
		}
		color[u] = black
		return false
	}

	for u := range n {
		if color[u] == white {
			parent[u] = -1
			if dfs(u) {
				return cycle
			}
		}
	}
	return nil
}

// BackEdges returns the edges that close a cycle in a depth-first traversal
// of g. Removing them would make g acyclic. The result is empty for a DAG.
func BackEdges(g *dag.DAG) []dag.Edge {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, g.NodeCount())
	var back []dag.Edge

	var dfs func(u int)
	dfs = func(u int) {
		color[u] = gray
		for _, v := range g.Successors(u) {
			switch color[v] {
			case white:
				dfs(v)
			case gray:
				back = append(back, dag.Edge{From: g.At(u).ID, To: g.At(v).ID})
			}
		}
		color[u] = black
	}

	for u := range g.NodeCount() {
		if color[u] == white {
			dfs(u)
		}
	}
	return back
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
