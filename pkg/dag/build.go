package dag

import "fmt"

// WarnFunc receives diagnostics about input the builder recovered from,
// such as dependencies that reference unknown operations.
type WarnFunc func(format string, args ...any)

// BuildOptions configures [Build].
type BuildOptions struct {
	// Meta is stored as graph-level metadata.
	Meta Metadata
	// Warn is called for every dropped dependency. Nil discards warnings.
	Warn WarnFunc
}

// Build constructs a normalized graph from an operation list and a
// dependency list.
//
// Operations must have unique, non-empty IDs and non-negative latencies;
// violations are returned as errors. Dependencies are more forgiving: an
// edge with an unknown endpoint, a self loop, an edge into a SOURCE-typed
// node or out of a SINK-typed node is dropped and reported through
// opts.Warn. Duplicate edges collapse into one.
//
// After the explicit edges are wired the graph is normalized with
// [DAG.Normalize], so the result always has exactly one SOURCE and one SINK.
func Build(nodes []Node, edges []Edge, opts BuildOptions) (*DAG, error) {
	warn := opts.Warn
	if warn == nil {
		warn = func(string, ...any) {}
	}

	g := New(opts.Meta)
	for _, n := range nodes {
		if _, err := g.AddNode(n); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
	}

	for _, e := range edges {
		from, okF := g.Node(e.From)
		to, okT := g.Node(e.To)
		switch {
		case !okF || !okT:
			warn("invalid dependency %s -> %s: unknown operation", e.From, e.To)
			continue
		case e.From == e.To:
			warn("invalid dependency %s -> %s: self loop", e.From, e.To)
			continue
		case to.Type == TypeSource:
			warn("invalid dependency %s -> %s: SOURCE cannot have predecessors", e.From, e.To)
			continue
		case from.Type == TypeSink:
			warn("invalid dependency %s -> %s: SINK cannot have successors", e.From, e.To)
			continue
		}
		if err := g.AddEdge(e); err != nil {
			return nil, fmt.Errorf("edge %s->%s: %w", e.From, e.To, err)
		}
	}

	if err := g.Normalize(); err != nil {
		return nil, err
	}
	return g, nil
}

// Normalize gives the graph a single entry and a single exit.
//
// A node typed SOURCE (or SINK) is reused as the anchor; otherwise one is
// synthesized with latency 0 and the ID "SOURCE" (or "SINK"), suffixed with
// underscores if that ID is already taken by an operation. Every non-anchor
// node without predecessors then gets SOURCE as its predecessor and every
// non-anchor node without successors gets SINK as its successor. A graph
// with no operations at all is wired SOURCE → SINK.
//
// Normalize returns ErrMultipleAnchors if two nodes share an anchor type and
// ErrAnchorEdge if an existing anchor has an edge on its wrong side. Calling
// Normalize on a normalized graph is a no-op.
func (d *DAG) Normalize() error {
	if d.Normalized() {
		return nil
	}

	source, sink := -1, -1
	for i, n := range d.nodes {
		switch n.Type {
		case TypeSource:
			if source >= 0 {
				return fmt.Errorf("%w: %s and %s are both SOURCE", ErrMultipleAnchors, d.nodes[source].ID, n.ID)
			}
			source = i
		case TypeSink:
			if sink >= 0 {
				return fmt.Errorf("%w: %s and %s are both SINK", ErrMultipleAnchors, d.nodes[sink].ID, n.ID)
			}
			sink = i
		}
	}
	if source >= 0 && len(d.pred[source]) > 0 {
		return fmt.Errorf("%w: %s", ErrAnchorEdge, d.nodes[source].ID)
	}
	if sink >= 0 && len(d.succ[sink]) > 0 {
		return fmt.Errorf("%w: %s", ErrAnchorEdge, d.nodes[sink].ID)
	}

	if source < 0 {
		source = d.addAnchor("SOURCE", TypeSource)
	}
	if sink < 0 {
		sink = d.addAnchor("SINK", TypeSink)
	}

	for i, n := range d.nodes {
		if !n.IsAnchor() && len(d.pred[i]) == 0 {
			d.link(source, i)
		}
	}
	for i, n := range d.nodes {
		if !n.IsAnchor() && len(d.succ[i]) == 0 {
			d.link(i, sink)
		}
	}
	if len(d.succ[source]) == 0 {
		d.link(source, sink)
	}

	d.source, d.sink = source, sink
	return nil
}

func (d *DAG) addAnchor(id string, t ResourceType) int {
	for {
		if _, taken := d.index[id]; !taken {
			break
		}
		id += "_"
	}
	i, _ := d.AddNode(Node{ID: id, Type: t, Meta: Metadata{"synthetic": true}})
	return i
}
