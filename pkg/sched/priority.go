package sched

import (
	"fmt"
	"math"
	"strings"
)

// PriorityMode selects the priority function used to rank ready operations.
type PriorityMode string

const (
	// PriorityForce ranks by squared normalized urgency times normalized
	// congestion: F = S_norm^2 * (C_norm + eps). Among equally congested
	// operations the least mobile is scheduled first.
	PriorityForce PriorityMode = "force"
	// PriorityLinear is PriorityForce without the square, so congestion
	// weighs as much as urgency.
	PriorityLinear PriorityMode = "linear"
	// PrioritySlack ranks by mobility alone: plain list scheduling.
	PrioritySlack PriorityMode = "slack"
)

// DefaultPriority is the priority mode used when none is given.
const DefaultPriority = PriorityForce

// ValidPriorityModes is the set of supported priority modes.
var ValidPriorityModes = map[PriorityMode]bool{
	PriorityForce:  true,
	PriorityLinear: true,
	PrioritySlack:  true,
}

// ParsePriorityMode parses a mode name case-insensitively. The empty
// string selects [DefaultPriority].
func ParsePriorityMode(s string) (PriorityMode, error) {
	if s == "" {
		return DefaultPriority, nil
	}
	m := PriorityMode(strings.ToLower(strings.TrimSpace(s)))
	if !ValidPriorityModes[m] {
		return "", fmt.Errorf("unknown priority mode %q (want force, linear or slack)", s)
	}
	return m, nil
}

// epsilon floors the normalizers and offsets the congestion term so that
// an operation with zero congestion still orders by urgency.
const epsilon = 0.0001

var inf = math.Inf(1)

// Priorities computes the priority of every node for one horizon. Lower
// values are scheduled first. Anchors get +Inf.
//
// S(u) = mobility+1 and C(u) = congestion cost are normalized by their
// maxima over real operations, each maximum starting at epsilon.
func Priorities(a *Analysis, h *Horizon, c *Congestion, mode PriorityMode) []float64 {
	g := a.Graph
	n := g.NodeCount()
	prio := make([]float64, n)

	sMax, cMax := epsilon, epsilon
	for i, node := range g.Nodes() {
		if node.IsAnchor() {
			continue
		}
		sMax = max(sMax, float64(h.Mobility[i]+1))
		cMax = max(cMax, c.Cost[i])
	}

	for i, node := range g.Nodes() {
		if node.IsAnchor() {
			prio[i] = inf
			continue
		}
		s := float64(h.Mobility[i]+1) / sMax
		cn := c.Cost[i] / cMax
		switch mode {
		case PriorityLinear:
			prio[i] = s * (cn + epsilon)
		case PrioritySlack:
			prio[i] = float64(h.Mobility[i])
		default:
			prio[i] = s * s * (cn + epsilon)
		}
	}
	return prio
}
