// Package transform provides structural transformations and diagnostics for
// data-flow graphs.
//
// # Transitive Reduction
//
// [TransitiveReduction] removes dependencies implied by longer paths. The
// scheduler produces the same ASAP times and critical-path length on the
// reduced graph, and each analysis pass walks fewer edges. The pipeline
// applies it when the reduce option is set.
//
// # Cycle Diagnostics
//
// A cyclic dependency set has no schedule. When a topological sweep fails,
// [FindCycle] extracts one concrete loop so the error can name it, and
// [BackEdges] lists every edge that closes a loop in depth-first order.
package transform
