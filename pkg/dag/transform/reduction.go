package transform

import "github.com/matzehuels/hlsched/pkg/dag"

// TransitiveReduction removes redundant dependencies from the graph and
// returns how many edges it removed.
//
// An edge (u, v) is redundant when v is also reachable from u through at
// least one intermediate node: if A→B, B→C and A→C all exist, A→C adds no
// ordering constraint and is removed. Latencies are non-negative, so every
// longest path survives the reduction and ASAP times and down-lengths are
// unchanged. Critical-successor ties may resolve differently because the
// successor lists get shorter.
//
// # Algorithm
//
// TransitiveReduction computes full reachability with one depth-first
// search per node, then removes every edge (u, v) where some other
// successor w of u reaches v.
//
// # Performance
//
// Time complexity is O(V·E) and space complexity O(V²) for the
// reachability matrix. Benchmark DFGs have at most a few thousand
// operations, which keeps the matrix in the low megabytes.
//
// # Cycles
//
// TransitiveReduction assumes an acyclic graph. On a cyclic graph every
// node of a cycle reaches itself and edges inside the cycle may be removed;
// run [FindCycle] first if the input is untrusted.
func TransitiveReduction(g *dag.DAG) int {
	n := g.NodeCount()
	if n == 0 {
		return 0
	}

	reachable := computeReachability(g)

	var redundant []dag.Edge
	for u := range n {
		succ := g.Successors(u)
		for _, v := range succ {
			for _, w := range succ {
				if w != v && reachable[w][v] {
					redundant = append(redundant, dag.Edge{From: g.At(u).ID, To: g.At(v).ID})
					break
				}
			}
		}
	}

	for _, e := range redundant {
		g.RemoveEdge(e.From, e.To)
	}
	return len(redundant)
}

func computeReachability(g *dag.DAG) [][]bool {
	n := g.NodeCount()
	reachable := make([][]bool, n)
	for i := range reachable {
		reachable[i] = make([]bool, n)
	}

	var dfs func(source, current int)
	dfs = func(source, current int) {
		for _, next := range g.Successors(current) {
			if reachable[source][next] {
				continue
			}
			reachable[source][next] = true
			dfs(source, next)
		}
	}

	for i := range n {
		dfs(i, i)
	}
	return reachable
}
