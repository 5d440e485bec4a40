package sched

import "github.com/matzehuels/hlsched/pkg/dag"

// Horizon holds everything that depends on a target schedule length.
type Horizon struct {
	// Target is the horizon: the schedule length this pass aims for.
	Target int
	// ALAP is the latest start that still meets Target, never below ASAP.
	ALAP []int
	// Mobility is ALAP - ASAP.
	Mobility []int
	// DG maps each resource type used by a real operation to its
	// distribution graph. DG[t][m] is the expected number of type-t
	// operations active in cycle m, for m in [1, Target+1]; index 0 is
	// unused.
	DG map[dag.ResourceType][]float64
}

// NewHorizon computes ALAP times, mobility and distribution graphs of the
// analyzed graph for the given target.
func NewHorizon(a *Analysis, target int) *Horizon {
	h := &Horizon{Target: target}
	h.ALAP, h.Mobility = ComputeALAP(a, target)
	h.DG = ComputeDistributionGraphs(a, h.ALAP, target)
	return h
}

// ComputeALAP returns ALAP(u) = target - DownLen(u) + 1, clamped to at
// least ASAP(u), and the resulting mobility.
func ComputeALAP(a *Analysis, target int) (alap, mobility []int) {
	n := len(a.ASAP)
	alap = make([]int, n)
	mobility = make([]int, n)
	for i := range n {
		alap[i] = max(target-a.DownLen[i]+1, a.ASAP[i])
		mobility[i] = alap[i] - a.ASAP[i]
	}
	return alap, mobility
}

// ComputeDistributionGraphs builds the expected occupancy curve of every
// real resource type over cycles [1, target+1].
//
// An operation with mobility k may start in any of the k+1 cycles of
// [ASAP, ALAP], each with probability 1/(k+1). For every possible start it
// adds that probability to each cycle it would occupy, [start,
// start+latency-1], skipping cycles outside [1, target+1]. Types without a
// declared inventory still get a curve; the congestion step ignores them.
func ComputeDistributionGraphs(a *Analysis, alap []int, target int) map[dag.ResourceType][]float64 {
	g := a.Graph
	dg := make(map[dag.ResourceType][]float64)
	for _, t := range g.Types() {
		dg[t] = make([]float64, max(target+2, 1))
	}

	for i, n := range g.Nodes() {
		if n.IsAnchor() {
			continue
		}
		curve := dg[n.Type]
		lo, hi := a.ASAP[i], alap[i]
		p := 1.0 / float64(hi-lo+1)
		for start := lo; start <= hi; start++ {
			for m := start; m < start+n.Latency; m++ {
				if m > target+1 {
					break
				}
				if m < 1 {
					continue
				}
				curve[m] += p
			}
		}
	}
	return dg
}
