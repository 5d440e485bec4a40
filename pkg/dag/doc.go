// Package dag provides the data-flow graph that hlsched schedules.
//
// # Overview
//
// A data-flow graph (DFG) has one node per operation. Each node carries a
// latency in cycles and the resource type of the functional unit it needs.
// An edge u → v means v cannot start before u has finished.
//
// Nodes are stored in an arena and addressed by a stable integer index.
// Analyses in the sched package allocate plain slices indexed by
// [DAG.Index] for everything they compute, so a graph never carries state
// from one scheduling pass into the next.
//
// # Building a Graph
//
// [Build] is the usual entry point. It takes the operation and dependency
// lists a loader produced, drops dependencies it cannot honor (reporting
// each one through a warning callback) and normalizes the result:
//
//	g, err := dag.Build(nodes, edges, dag.BuildOptions{Warn: logger.Warnf})
//
// Graphs can also be assembled incrementally with [DAG.AddNode] and
// [DAG.AddEdge] and normalized afterwards with [DAG.Normalize].
//
// # Anchors
//
// A normalized graph has exactly one SOURCE and one SINK node, both of
// latency 0 unless the input supplied its own. SOURCE precedes every
// operation without predecessors and SINK follows every operation without
// successors, so each graph has a single entry and a single exit even when
// the input has several independent roots or leaves.
//
// # Concurrency
//
// Construction is not safe for concurrent use. Once normalized, a graph is
// only read, and the benchmark runner and HTTP server share normalized
// graphs between goroutines freely.
//
// # Related Packages
//
// The [transform] subpackage provides transitive reduction and cycle
// diagnostics.
//
// [transform]: github.com/matzehuels/hlsched/pkg/dag/transform
package dag
