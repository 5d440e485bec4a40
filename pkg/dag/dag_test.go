package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestAddNode(t *testing.T) {
	g := New(nil)

	i, err := g.AddNode(Node{ID: "a", Latency: 1, Type: "ALU"})
	if err != nil {
		t.Fatalf("AddNode() error = %v", err)
	}
	if i != 0 {
		t.Errorf("AddNode() index = %d, want 0", i)
	}

	tests := []struct {
		name string
		node Node
		want error
	}{
		{"empty id", Node{ID: ""}, ErrInvalidNodeID},
		{"duplicate", Node{ID: "a"}, ErrDuplicateNodeID},
		{"negative latency", Node{ID: "b", Latency: -1}, ErrNegativeLatency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := g.AddNode(tt.node); !errors.Is(err, tt.want) {
				t.Errorf("AddNode() error = %v, want %v", err, tt.want)
			}
		})
	}

	n, ok := g.Node("a")
	if !ok || n.Meta == nil {
		t.Errorf("Node(a) = %v, %v; want node with initialized meta", n, ok)
	}
}

func TestAddEdge(t *testing.T) {
	g := New(nil)
	_, _ = g.AddNode(Node{ID: "a", Latency: 1})
	_, _ = g.AddNode(Node{ID: "b", Latency: 1})

	if err := g.AddEdge(Edge{From: "x", To: "b"}); !errors.Is(err, ErrUnknownSourceNode) {
		t.Errorf("AddEdge(x->b) error = %v, want ErrUnknownSourceNode", err)
	}
	if err := g.AddEdge(Edge{From: "a", To: "x"}); !errors.Is(err, ErrUnknownTargetNode) {
		t.Errorf("AddEdge(a->x) error = %v, want ErrUnknownTargetNode", err)
	}
	if err := g.AddEdge(Edge{From: "a", To: "a"}); !errors.Is(err, ErrSelfLoop) {
		t.Errorf("AddEdge(a->a) error = %v, want ErrSelfLoop", err)
	}

	for range 3 {
		if err := g.AddEdge(Edge{From: "a", To: "b"}); err != nil {
			t.Fatalf("AddEdge(a->b) error = %v", err)
		}
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1 after duplicate edges", g.EdgeCount())
	}
	if got := g.Children("a"); !slices.Equal(got, []string{"b"}) {
		t.Errorf("Children(a) = %v, want [b]", got)
	}
	if got := g.Parents("b"); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Parents(b) = %v, want [a]", got)
	}
}

func TestRemoveEdge(t *testing.T) {
	g := New(nil)
	_, _ = g.AddNode(Node{ID: "a"})
	_, _ = g.AddNode(Node{ID: "b"})
	_ = g.AddEdge(Edge{From: "a", To: "b"})

	g.RemoveEdge("a", "b")
	g.RemoveEdge("a", "missing")

	if g.EdgeCount() != 0 {
		t.Errorf("EdgeCount() = %d, want 0", g.EdgeCount())
	}
	if g.OutDegree(0) != 0 || g.InDegree(1) != 0 {
		t.Errorf("degrees after RemoveEdge = %d/%d, want 0/0", g.OutDegree(0), g.InDegree(1))
	}
}

func TestNormalize_SynthesizesAnchors(t *testing.T) {
	g := New(nil)
	_, _ = g.AddNode(Node{ID: "a", Latency: 1, Type: "ALU"})
	_, _ = g.AddNode(Node{ID: "b", Latency: 1, Type: "ALU"})
	_, _ = g.AddNode(Node{ID: "c", Latency: 2, Type: "MUL"})
	_ = g.AddEdge(Edge{From: "a", To: "b"})

	if err := g.Normalize(); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	src, snk := g.At(g.Source()), g.At(g.Sink())
	if src.ID != "SOURCE" || src.Type != TypeSource || src.Latency != 0 {
		t.Errorf("source = %+v, want synthesized SOURCE", src)
	}
	if snk.ID != "SINK" || snk.Type != TypeSink || snk.Latency != 0 {
		t.Errorf("sink = %+v, want synthesized SINK", snk)
	}
	if got := g.Children("SOURCE"); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("Children(SOURCE) = %v, want [a c]", got)
	}
	if got := g.Parents("SINK"); !slices.Equal(got, []string{"b", "c"}) {
		t.Errorf("Parents(SINK) = %v, want [b c]", got)
	}
	if g.InDegree(g.Source()) != 0 || g.OutDegree(g.Sink()) != 0 {
		t.Error("anchors must have no edges on their outer side")
	}
}

func TestNormalize_ReusesAnchors(t *testing.T) {
	nodes := []Node{
		{ID: "s", Type: TypeSource},
		{ID: "A", Latency: 1, Type: "ALU"},
		{ID: "z", Type: TypeSink},
	}
	edges := []Edge{{From: "s", To: "A"}, {From: "A", To: "z"}}

	g, err := Build(nodes, edges, BuildOptions{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if g.NodeCount() != 3 {
		t.Errorf("NodeCount() = %d, want 3 (no synthesized anchors)", g.NodeCount())
	}
	if g.At(g.Source()).ID != "s" || g.At(g.Sink()).ID != "z" {
		t.Errorf("anchors = %s/%s, want s/z", g.At(g.Source()).ID, g.At(g.Sink()).ID)
	}
}

func TestNormalize_AnchorIDCollision(t *testing.T) {
	g, err := Build([]Node{{ID: "SOURCE", Latency: 1, Type: "ALU"}}, nil, BuildOptions{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := g.At(g.Source()).ID; got != "SOURCE_" {
		t.Errorf("synthesized source ID = %q, want SOURCE_", got)
	}
}

func TestNormalize_Empty(t *testing.T) {
	g, err := Build(nil, nil, BuildOptions{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := g.Children("SOURCE"); !slices.Equal(got, []string{"SINK"}) {
		t.Errorf("Children(SOURCE) = %v, want [SINK]", got)
	}
}

func TestNormalize_MultipleAnchors(t *testing.T) {
	nodes := []Node{{ID: "s1", Type: TypeSource}, {ID: "s2", Type: TypeSource}}
	if _, err := Build(nodes, nil, BuildOptions{}); !errors.Is(err, ErrMultipleAnchors) {
		t.Errorf("Build() error = %v, want ErrMultipleAnchors", err)
	}
}

func TestBuild_DropsInvalidDependencies(t *testing.T) {
	nodes := []Node{
		{ID: "s", Type: TypeSource},
		{ID: "a", Latency: 1, Type: "ALU"},
		{ID: "z", Type: TypeSink},
	}
	edges := []Edge{
		{From: "a", To: "ghost"},
		{From: "a", To: "a"},
		{From: "a", To: "s"},
		{From: "z", To: "a"},
	}

	var warnings int
	g, err := Build(nodes, edges, BuildOptions{Warn: func(string, ...any) { warnings++ }})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if warnings != 4 {
		t.Errorf("warnings = %d, want 4", warnings)
	}
	if g.EdgeCount() != 2 {
		t.Errorf("EdgeCount() = %d, want 2 (s->a, a->z)", g.EdgeCount())
	}
}

func TestBuild_DuplicateNode(t *testing.T) {
	nodes := []Node{{ID: "a"}, {ID: "a"}}
	if _, err := Build(nodes, nil, BuildOptions{}); !errors.Is(err, ErrDuplicateNodeID) {
		t.Errorf("Build() error = %v, want ErrDuplicateNodeID", err)
	}
}

func TestValidate(t *testing.T) {
	g := New(nil)
	for _, id := range []string{"a", "b", "c"} {
		_, _ = g.AddNode(Node{ID: id, Latency: 1})
	}
	_ = g.AddEdge(Edge{From: "a", To: "b"})
	_ = g.AddEdge(Edge{From: "b", To: "c"})

	if err := g.Validate(); err != nil {
		t.Errorf("Validate() on chain = %v, want nil", err)
	}

	_ = g.AddEdge(Edge{From: "c", To: "a"})
	if err := g.Validate(); !errors.Is(err, ErrGraphHasCycle) {
		t.Errorf("Validate() on cycle = %v, want ErrGraphHasCycle", err)
	}
}

func TestTypesAndOperations(t *testing.T) {
	g, _ := Build([]Node{
		{ID: "m", Latency: 2, Type: "MUL"},
		{ID: "a", Latency: 1, Type: "ALU"},
		{ID: "m2", Latency: 2, Type: "MUL"},
	}, nil, BuildOptions{})

	if got := g.Types(); !slices.Equal(got, []ResourceType{"MUL", "ALU"}) {
		t.Errorf("Types() = %v, want [MUL ALU]", got)
	}
	if got := g.Operations(); got != 3 {
		t.Errorf("Operations() = %d, want 3", got)
	}
}

func TestParseResourceType(t *testing.T) {
	tests := map[string]ResourceType{
		"alu":    "ALU",
		" Mul ":  "MUL",
		"source": TypeSource,
	}
	for in, want := range tests {
		if got := ParseResourceType(in); got != want {
			t.Errorf("ParseResourceType(%q) = %q, want %q", in, got, want)
		}
	}
}
