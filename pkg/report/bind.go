// Package report presents schedules: unit binding, Gantt charts, tables,
// Graphviz diagrams, summaries and the text result file.
//
// The scheduler only decides start cycles. Which unit of a type runs an
// operation is re-derived here by [Bind] with a deterministic first-fit
// assignment, so every view of the same schedule agrees.
package report

import (
	"cmp"
	"slices"

	"github.com/matzehuels/hlsched/pkg/dag"
)

// Binding assigns operations to functional units.
type Binding struct {
	// Unit is the zero-based unit index within the operation's type.
	// Anchors and zero-latency operations take no unit and are absent.
	Unit map[string]int `json:"unit"`
	// Used is the number of units of each type the binding needs.
	Used map[dag.ResourceType]int `json:"used"`
}

// UnitOf returns the unit of id, or -1 if it has none.
func (b *Binding) UnitOf(id string) int {
	if u, ok := b.Unit[id]; ok {
		return u
	}
	return -1
}

// Bind assigns units first-fit in order of (start, node index): each
// operation takes the lowest-numbered unit of its type that is free at its
// start cycle. Operations missing from starts are skipped.
func Bind(g *dag.DAG, starts map[string]int) *Binding {
	type job struct {
		idx, start int
	}
	var jobs []job
	for i, n := range g.Nodes() {
		s, ok := starts[n.ID]
		if !ok || n.IsAnchor() || n.Latency == 0 {
			continue
		}
		jobs = append(jobs, job{i, s})
	}
	slices.SortFunc(jobs, func(a, b job) int {
		if c := cmp.Compare(a.start, b.start); c != 0 {
			return c
		}
		return cmp.Compare(a.idx, b.idx)
	})

	b := &Binding{Unit: make(map[string]int, len(jobs)), Used: map[dag.ResourceType]int{}}
	freeAt := make(map[dag.ResourceType][]int)
	for _, j := range jobs {
		n := g.At(j.idx)
		units := freeAt[n.Type]
		k := slices.IndexFunc(units, func(free int) bool { return free <= j.start })
		if k < 0 {
			k = len(units)
			units = append(units, 0)
		}
		units[k] = j.start + n.Latency
		freeAt[n.Type] = units
		b.Unit[n.ID] = k
	}
	for t, units := range freeAt {
		b.Used[t] = len(units)
	}
	return b
}

// OpsByType counts the operations of each type that occupy a unit.
func OpsByType(g *dag.DAG) map[dag.ResourceType]int {
	out := make(map[dag.ResourceType]int)
	for _, n := range g.Nodes() {
		if !n.IsAnchor() && n.Latency > 0 {
			out[n.Type]++
		}
	}
	return out
}
