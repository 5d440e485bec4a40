// Package verify checks a schedule against its graph and resource
// inventory.
//
// [Check] never trusts the scheduler: it re-derives the latency from the
// start cycles and reports every dependency, resource and completeness
// problem it finds, so it can validate result files produced by other
// tools as well.
package verify

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/dag/transform"
	"github.com/matzehuels/hlsched/pkg/errors"
	"github.com/matzehuels/hlsched/pkg/resource"
	"github.com/matzehuels/hlsched/pkg/sched"
)

// Kind classifies a violation.
type Kind string

const (
	KindDependency  Kind = "dependency"
	KindResource    Kind = "resource"
	KindUnscheduled Kind = "unscheduled"
	KindUnknown     Kind = "unknown"
	KindRange       Kind = "range"
	KindLatency     Kind = "latency"
	KindHorizon     Kind = "horizon"
	KindCycle       Kind = "cycle"
)

// Violation is a single problem found in a schedule.
type Violation struct {
	Kind    Kind             `json:"kind"`
	Ops     []string         `json:"ops,omitempty"`
	Type    dag.ResourceType `json:"type,omitempty"`
	Cycle   int              `json:"cycle,omitempty"`
	Message string           `json:"message"`
}

func (v Violation) String() string { return v.Message }

// Report is the outcome of [Check].
type Report struct {
	// Latency is derived from the start cycles: the last cycle any
	// operation occupies.
	Latency int `json:"latency"`
	// Reported is the latency the schedule claimed, or -1 if none.
	Reported int `json:"reported"`
	// CriticalPath is the unconstrained lower bound of the graph.
	CriticalPath int `json:"critical_path"`
	// PeakUnits is the largest number of units of each type busy in any
	// one cycle.
	PeakUnits  map[dag.ResourceType]int `json:"peak_units"`
	Violations []Violation              `json:"violations,omitempty"`
}

// OK reports whether the schedule is feasible.
func (r *Report) OK() bool { return len(r.Violations) == 0 }

// Count returns the number of violations of kind k.
func (r *Report) Count(k Kind) int {
	n := 0
	for _, v := range r.Violations {
		if v.Kind == k {
			n++
		}
	}
	return n
}

// Err returns nil for a feasible schedule and an INFEASIBLE_SCHEDULE error
// summarizing the first violations otherwise.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	const shown = 3
	msgs := make([]string, 0, shown)
	for i, v := range r.Violations {
		if i == shown {
			msgs = append(msgs, fmt.Sprintf("and %d more", len(r.Violations)-shown))
			break
		}
		msgs = append(msgs, v.Message)
	}
	return errors.New(errors.ErrCodeInfeasibleSchedule, "%d violation(s): %s",
		len(r.Violations), strings.Join(msgs, "; "))
}

func (r *Report) add(v Violation) { r.Violations = append(r.Violations, v) }

// Check verifies starts against g and inv. reported is the latency the
// schedule claims; pass a negative value to skip that comparison.
//
// Anchors may be missing from starts and always finish when they start.
// Every other operation must have a start cycle of at least 1. Operations of a type without declared units
// are checked against zero units.
func Check(g *dag.DAG, inv resource.Inventory, starts map[string]int, reported int) *Report {
	r := &Report{Reported: reported, PeakUnits: map[dag.ResourceType]int{}}
	if reported < 0 {
		r.Reported = -1
	}

	for _, id := range slices.Sorted(maps.Keys(starts)) {
		if _, ok := g.Index(id); !ok {
			r.add(Violation{Kind: KindUnknown, Ops: []string{id},
				Message: fmt.Sprintf("start given for unknown operation %s", id)})
		}
	}

	for _, n := range g.Nodes() {
		s, ok := starts[n.ID]
		switch {
		case n.IsAnchor():
		case !ok:
			msg := fmt.Sprintf("operation %s is not scheduled", n.ID)
			if blocked := realOps(g, g.Children(n.ID)); len(blocked) > 0 {
				msg += fmt.Sprintf(" (consumed by %s)", strings.Join(blocked, ", "))
			}
			r.add(Violation{Kind: KindUnscheduled, Ops: []string{n.ID}, Message: msg})
		case s < 1:
			r.add(Violation{Kind: KindRange, Ops: []string{n.ID}, Cycle: s,
				Message: fmt.Sprintf("operation %s starts at cycle %d, before cycle 1", n.ID, s)})
		default:
			r.Latency = max(r.Latency, s+n.Latency-1)
		}
	}

	checkDependencies(r, g, starts)
	checkResources(r, g, inv, starts)

	if r.Reported >= 0 && r.Reported != r.Latency {
		r.add(Violation{Kind: KindLatency,
			Message: fmt.Sprintf("reported latency %d, start cycles give %d", r.Reported, r.Latency)})
	}

	if !g.Normalized() {
		return r
	}
	_, _, cp, err := sched.ComputeDownLength(g)
	if err != nil {
		back := transform.BackEdges(g)
		for _, e := range back {
			r.add(Violation{Kind: KindCycle, Ops: []string{e.From, e.To},
				Message: fmt.Sprintf("dependency %s -> %s closes a cycle", e.From, e.To)})
		}
		if len(back) == 0 {
			r.add(Violation{Kind: KindCycle, Message: err.Error()})
		}
		return r
	}
	r.CriticalPath = cp
	if r.Latency < cp {
		r.add(Violation{Kind: KindHorizon,
			Message: fmt.Sprintf("latency %d is below the critical path %d", r.Latency, cp)})
	}
	return r
}

func checkDependencies(r *Report, g *dag.DAG, starts map[string]int) {
	for _, v := range g.Nodes() {
		sv, ok := starts[v.ID]
		if !ok {
			continue
		}
		for _, from := range g.Parents(v.ID) {
			su, ok := starts[from]
			if !ok {
				continue
			}
			u, _ := g.Node(from)
			finish := su + u.Latency
			if u.IsAnchor() {
				finish = su
			}
			if sv < finish {
				r.add(Violation{Kind: KindDependency, Ops: []string{from, v.ID}, Cycle: sv,
					Message: fmt.Sprintf("%s starts at %d before %s finishes at %d", v.ID, sv, from, finish)})
			}
		}
	}
}

// realOps filters anchors out of ids.
func realOps(g *dag.DAG, ids []string) []string {
	var out []string
	for _, id := range ids {
		if n, ok := g.Node(id); ok && !n.IsAnchor() {
			out = append(out, id)
		}
	}
	return out
}

func checkResources(r *Report, g *dag.DAG, inv resource.Inventory, starts map[string]int) {
	type slot struct {
		t     dag.ResourceType
		cycle int
	}
	busy := make(map[slot][]string)
	horizon := 0
	for _, n := range g.Nodes() {
		s, ok := starts[n.ID]
		if !ok || n.IsAnchor() || n.Latency == 0 {
			continue
		}
		for c := s; c < s+n.Latency; c++ {
			k := slot{n.Type, c}
			busy[k] = append(busy[k], n.ID)
		}
		horizon = max(horizon, s+n.Latency)
	}

	for _, t := range g.Types() {
		if t.IsAnchor() {
			continue
		}
		units := inv.Units(t)
		for c := 0; c < horizon; c++ {
			ops := busy[slot{t, c}]
			if len(ops) == 0 {
				continue
			}
			r.PeakUnits[t] = max(r.PeakUnits[t], len(ops))
			if len(ops) > units {
				r.add(Violation{Kind: KindResource, Ops: ops, Type: t, Cycle: c,
					Message: fmt.Sprintf("cycle %d uses %d %s units, %d available", c, len(ops), t, units)})
			}
		}
	}
}
