// Package sched implements iterative resource-constrained list scheduling
// for data-flow graphs.
//
// # Overview
//
// Given a normalized [dag.DAG] and a [resource.Inventory], [Run] assigns
// every operation a start cycle so that data dependencies hold, no resource
// type is over-subscribed in any cycle, and the total schedule length is as
// short as the heuristic can make it.
//
// # Phases
//
// A run is built from small, separately testable phases:
//
//  1. [Analyze]: two topological sweeps compute ASAP times and the longest
//     path from each operation to the sink (its down-length), together with
//     the successor on that path. This happens once per run.
//  2. [NewHorizon]: for a target horizon, ALAP times, mobility and the
//     per-type distribution graphs (expected occupancy per cycle).
//  3. [ComputeCongestion]: each operation's peak expected occupancy divided
//     by its unit count, averaged along its critical-successor chain.
//  4. [Priorities]: urgency and congestion combined into one scalar; lower
//     is scheduled first.
//  5. [ListSchedule]: a cycle-stepping simulation that retires finished
//     work, flushes zero-latency operations instantly and greedily assigns
//     free units.
//
// The [Controller] repeats phases 2 to 5 because the horizon they assume is
// itself an output of scheduling: each pass's achieved latency becomes the
// next target until the two agree or the sequence oscillates.
//
// # Pass-local State
//
// Nothing in this package writes to graph nodes. Every derived quantity
// lives in a slice indexed by node index and owned by the value that
// computed it ([Analysis], [Horizon], [Congestion], [Schedule]), so a pass
// can never observe a value left behind by an earlier pass.
//
// # Errors
//
// A cyclic graph fails [Analyze] with CYCLE_DETECTED and a [*CycleError]
// cause. A pass can fail with SCHEDULER_STALLED or RUNTIME_BUDGET_EXCEEDED;
// the cause is a [*PassError] carrying the partial schedule. Running out of
// controller iterations is not an error: the result reports
// [StateBudgetExhausted] and carries the last accepted schedule.
package sched
