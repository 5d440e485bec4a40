package dag

import (
	"errors"
	"slices"
	"strings"
)

var (
	// ErrInvalidNodeID is returned by [DAG.AddNode] when the node ID is empty.
	// All operations must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [DAG.AddNode] when a node with the
	// same ID already exists in the graph. Operation IDs must be unique.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrNegativeLatency is returned by [DAG.AddNode] for a latency below zero.
	ErrNegativeLatency = errors.New("latency must not be negative")

	// ErrUnknownSourceNode is returned by [DAG.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [DAG.AddEdge] when the To node
	// does not exist in the graph.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrSelfLoop is returned by [DAG.AddEdge] for an edge from a node to itself.
	ErrSelfLoop = errors.New("edge connects a node to itself")

	// ErrMultipleAnchors is returned by [DAG.Normalize] when more than one
	// node carries the SOURCE (or SINK) resource type.
	ErrMultipleAnchors = errors.New("more than one anchor node of the same type")

	// ErrAnchorEdge is returned by [DAG.Normalize] when SOURCE has a
	// predecessor or SINK has a successor.
	ErrAnchorEdge = errors.New("edge enters SOURCE or leaves SINK")

	// ErrGraphHasCycle is returned by [DAG.Validate] when a cycle is detected.
	// Cycles are detected using depth-first search with white/gray/black
	// coloring.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// Metadata stores arbitrary key-value pairs attached to nodes or the graph,
// such as the opcode a loader classified or the original DOT label.
type Metadata map[string]any

// ResourceType is the category of functional unit an operation needs.
// Two values are reserved for the synthetic entry and exit anchors.
type ResourceType string

const (
	// TypeSource marks the unique entry node of a normalized graph.
	TypeSource ResourceType = "SOURCE"
	// TypeSink marks the unique exit node of a normalized graph.
	TypeSink ResourceType = "SINK"
)

// IsAnchor reports whether t is SOURCE or SINK.
func (t ResourceType) IsAnchor() bool { return t == TypeSource || t == TypeSink }

// ParseResourceType canonicalizes a type key read from user input. Keys are
// case-insensitive and stored upper case.
func ParseResourceType(s string) ResourceType {
	return ResourceType(strings.ToUpper(strings.TrimSpace(s)))
}

// Node is an operation of the data-flow graph.
//
// ID, Latency and Type are immutable once the node is added to a [DAG].
// Scheduling results never live on the node: analyses keep them in arrays
// indexed by [DAG.Index].
type Node struct {
	ID      string       // Unique identifier
	Latency int          // Cycles the operation occupies its unit; 0 for pseudo operations
	Type    ResourceType // Functional unit category, or SOURCE/SINK
	Meta    Metadata     // Arbitrary key-value metadata (never nil after AddNode)
}

// IsAnchor reports whether the node is the SOURCE or SINK anchor.
func (n Node) IsAnchor() bool { return n.Type.IsAnchor() }

// IsPseudo reports whether the node takes no time. Pseudo operations are
// scheduled instantaneously and never consume a unit.
func (n Node) IsPseudo() bool { return n.Latency == 0 }

// Edge is a data dependency: To cannot start before From has finished.
type Edge struct {
	From string // Producer operation ID
	To   string // Consumer operation ID
}

// DAG is a data-flow graph stored as an arena of nodes with integer indices.
//
// Node indices are assigned in insertion order and never change, so they
// can key per-pass arrays. Predecessor and successor lists are de-duplicated
// and kept in discovery order, which is the only tie-break order analyses
// depend on.
//
// The zero value is not usable - use [New] or [Build].
// DAG is not safe for concurrent mutation; a normalized graph is read-only
// and may be shared by concurrent readers.
type DAG struct {
	nodes  []*Node
	index  map[string]int
	succ   [][]int
	pred   [][]int
	edges  []Edge
	source int
	sink   int
	meta   Metadata
}

// New creates an empty DAG with optional graph-level metadata.
// The metadata parameter can be nil, in which case an empty map is created.
func New(meta Metadata) *DAG {
	if meta == nil {
		meta = Metadata{}
	}
	return &DAG{
		index:  make(map[string]int),
		source: -1,
		sink:   -1,
		meta:   meta,
	}
}

// Meta returns the graph-level metadata map.
func (d *DAG) Meta() Metadata { return d.meta }

// AddNode appends an operation to the arena and returns its index.
// Returns ErrInvalidNodeID for an empty ID, ErrDuplicateNodeID if the ID is
// taken, or ErrNegativeLatency for a latency below zero.
func (d *DAG) AddNode(n Node) (int, error) {
	if n.ID == "" {
		return -1, ErrInvalidNodeID
	}
	if _, exists := d.index[n.ID]; exists {
		return -1, ErrDuplicateNodeID
	}
	if n.Latency < 0 {
		return -1, ErrNegativeLatency
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	i := len(d.nodes)
	node := n
	d.nodes = append(d.nodes, &node)
	d.index[n.ID] = i
	d.succ = append(d.succ, nil)
	d.pred = append(d.pred, nil)
	return i, nil
}

// AddEdge adds a dependency between two existing nodes.
// Returns ErrUnknownSourceNode or ErrUnknownTargetNode for missing
// endpoints and ErrSelfLoop for an edge from a node to itself. Adding an
// edge that already exists is a no-op: predecessors and successors are sets.
func (d *DAG) AddEdge(e Edge) error {
	from, ok := d.index[e.From]
	if !ok {
		return ErrUnknownSourceNode
	}
	to, ok := d.index[e.To]
	if !ok {
		return ErrUnknownTargetNode
	}
	if from == to {
		return ErrSelfLoop
	}
	d.link(from, to)
	return nil
}

func (d *DAG) link(from, to int) {
	if slices.Contains(d.succ[from], to) {
		return
	}
	d.succ[from] = append(d.succ[from], to)
	d.pred[to] = append(d.pred[to], from)
	d.edges = append(d.edges, Edge{From: d.nodes[from].ID, To: d.nodes[to].ID})
}

// RemoveEdge removes the edge from→to if it exists.
// No error is returned if the edge does not exist.
func (d *DAG) RemoveEdge(from, to string) {
	f, okF := d.index[from]
	t, okT := d.index[to]
	if !okF || !okT {
		return
	}
	d.edges = slices.DeleteFunc(d.edges, func(e Edge) bool { return e.From == from && e.To == to })
	d.succ[f] = slices.DeleteFunc(d.succ[f], func(i int) bool { return i == t })
	d.pred[t] = slices.DeleteFunc(d.pred[t], func(i int) bool { return i == f })
}

// Nodes returns all nodes in index order. The returned slice is a copy but
// its elements point at the graph's nodes.
func (d *DAG) Nodes() []*Node { return slices.Clone(d.nodes) }

// At returns the node stored at index i. It panics if i is out of range.
func (d *DAG) At(i int) *Node { return d.nodes[i] }

// Index returns the arena index of the node with the given ID.
func (d *DAG) Index(id string) (int, bool) {
	i, ok := d.index[id]
	return i, ok
}

// Node returns the node with the given ID and true, or nil and false if not found.
func (d *DAG) Node(id string) (*Node, bool) {
	i, ok := d.index[id]
	if !ok {
		return nil, false
	}
	return d.nodes[i], true
}

// Edges returns a copy of all edges in insertion order.
func (d *DAG) Edges() []Edge { return slices.Clone(d.edges) }

// NodeCount returns the number of nodes in the graph, anchors included.
func (d *DAG) NodeCount() int { return len(d.nodes) }

// EdgeCount returns the number of edges in the graph.
func (d *DAG) EdgeCount() int { return len(d.edges) }

// Successors returns the successor indices of node i in discovery order.
// The returned slice must not be modified.
func (d *DAG) Successors(i int) []int { return d.succ[i] }

// Predecessors returns the predecessor indices of node i in discovery order.
// The returned slice must not be modified.
func (d *DAG) Predecessors(i int) []int { return d.pred[i] }

// Children returns the IDs of the operations that consume id's result.
// Returns nil if the node has no successors or doesn't exist.
func (d *DAG) Children(id string) []string {
	i, ok := d.index[id]
	if !ok {
		return nil
	}
	return d.ids(d.succ[i])
}

// Parents returns the IDs of the operations id depends on.
// Returns nil if the node has no predecessors or doesn't exist.
func (d *DAG) Parents(id string) []string {
	i, ok := d.index[id]
	if !ok {
		return nil
	}
	return d.ids(d.pred[i])
}

func (d *DAG) ids(idx []int) []string {
	if len(idx) == 0 {
		return nil
	}
	out := make([]string, len(idx))
	for k, i := range idx {
		out[k] = d.nodes[i].ID
	}
	return out
}

// OutDegree returns the number of successors of node i.
func (d *DAG) OutDegree(i int) int { return len(d.succ[i]) }

// InDegree returns the number of predecessors of node i.
func (d *DAG) InDegree(i int) int { return len(d.pred[i]) }

// Source returns the index of the SOURCE anchor, or -1 before [DAG.Normalize].
func (d *DAG) Source() int { return d.source }

// Sink returns the index of the SINK anchor, or -1 before [DAG.Normalize].
func (d *DAG) Sink() int { return d.sink }

// Normalized reports whether the graph has been wired to its anchors.
func (d *DAG) Normalized() bool { return d.source >= 0 && d.sink >= 0 }

// Types returns the distinct resource types of real operations in order of
// first appearance. Anchors are excluded.
func (d *DAG) Types() []ResourceType {
	var types []ResourceType
	seen := make(map[ResourceType]bool)
	for _, n := range d.nodes {
		if n.IsAnchor() || seen[n.Type] {
			continue
		}
		seen[n.Type] = true
		types = append(types, n.Type)
	}
	return types
}

// Operations returns the number of non-anchor nodes.
func (d *DAG) Operations() int {
	count := 0
	for _, n := range d.nodes {
		if !n.IsAnchor() {
			count++
		}
	}
	return count
}

// Validate reports ErrGraphHasCycle if the graph contains a directed cycle.
//
// Cycle detection runs in O(N+E) time using depth-first search. The
// scheduler's topological sweeps detect cycles on their own; Validate exists
// for callers that want to reject a graph before scheduling it.
func (d *DAG) Validate() error {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(d.nodes))
	var hasCycle bool

	var dfs func(i int)
	dfs = func(i int) {
		color[i] = gray
		for _, child := range d.succ[i] {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				hasCycle = true
			}
			if hasCycle {
				return
			}
		}
		color[i] = black
	}

	for i := range d.nodes {
		if color[i] == white {
			dfs(i)
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}

// NodeIDs extracts the ID from each node in a slice.
// Returns a new slice containing the IDs in the same order as the input.
func NodeIDs(nodes []*Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
