package report

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/resource"
	"github.com/matzehuels/hlsched/pkg/sched"
)

func contended(t *testing.T) *dag.DAG {
	t.Helper()
	g, err := dag.Build([]dag.Node{
		{ID: "a1", Latency: 1, Type: "ALU"},
		{ID: "a2", Latency: 1, Type: "ALU"},
		{ID: "m", Latency: 2, Type: "MUL"},
		{ID: "p", Latency: 0, Type: "ALU"},
	}, []dag.Edge{{From: "a1", To: "p"}}, dag.BuildOptions{Meta: dag.Metadata{"name": "demo"}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return g
}

func TestBind(t *testing.T) {
	g := contended(t)
	starts := map[string]int{"SOURCE": 0, "a1": 1, "a2": 1, "m": 1, "p": 2, "SINK": 3}
	b := Bind(g, starts)

	tests := []struct {
		id   string
		unit int
	}{
		{"a1", 0},
		{"a2", 1},
		{"m", 0},
		{"p", -1},
		{"SOURCE", -1},
	}
	for _, tt := range tests {
		if got := b.UnitOf(tt.id); got != tt.unit {
			t.Errorf("UnitOf(%s) = %d, want %d", tt.id, got, tt.unit)
		}
	}
	if b.Used["ALU"] != 2 || b.Used["MUL"] != 1 {
		t.Errorf("Used = %v, want ALU:2 MUL:1", b.Used)
	}
}

func TestBind_ReusesFreedUnit(t *testing.T) {
	g, err := dag.Build([]dag.Node{
		{ID: "x", Latency: 2, Type: "MUL"},
		{ID: "y", Latency: 2, Type: "MUL"},
		{ID: "z", Latency: 1, Type: "MUL"},
	}, nil, dag.BuildOptions{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	// x holds unit 0 for cycles 1-2, y starts on unit 1 at cycle 2, and z
	// at cycle 3 finds unit 0 free again.
	b := Bind(g, map[string]int{"x": 1, "y": 2, "z": 3})
	if b.UnitOf("y") != 1 || b.UnitOf("z") != 0 {
		t.Errorf("units y, z = %d, %d, want 1, 0", b.UnitOf("y"), b.UnitOf("z"))
	}
	if b.Used["MUL"] != 2 {
		t.Errorf("Used[MUL] = %d, want 2", b.Used["MUL"])
	}
}

func TestGantt(t *testing.T) {
	g := contended(t)
	starts := map[string]int{"a1": 1, "a2": 2, "m": 1, "p": 2}
	b := Bind(g, starts)
	out := Gantt(g, starts, 2, b, GanttOptions{Inventory: resource.Inventory{"ALU": 2, "MUL": 1}})

	for _, want := range []string{"C1", "C2", "ALU_1", "ALU_2", "MUL_1", "a1", "a2", "m"} {
		if !strings.Contains(out, want) {
			t.Errorf("Gantt() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "MUL_2") {
		t.Errorf("Gantt() has a row for an undeclared unit:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"add", 5, "add"},
		{"multiply", 5, "mult…"},
		{"ab", 1, "a"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestTable(t *testing.T) {
	g := contended(t)
	res, err := sched.Run(context.Background(), g, resource.Inventory{"ALU": 1, "MUL": 1}, sched.Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	b := Bind(g, res.Starts)

	out := Table(g, res.Starts, b, res.Schedule)
	for _, want := range []string{"Op", "Mobility", "Priority", "a1", "MUL_1"} {
		if !strings.Contains(out, want) {
			t.Errorf("Table() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "SOURCE") {
		t.Errorf("Table() lists an anchor:\n%s", out)
	}

	plain := Table(g, res.Starts, b, nil)
	if strings.Contains(plain, "Priority") {
		t.Errorf("Table() without detail has a priority column:\n%s", plain)
	}
}

func TestToDOT(t *testing.T) {
	g := contended(t)
	starts := map[string]int{"SOURCE": 0, "a1": 1, "a2": 2, "m": 1, "p": 2, "SINK": 3}
	dot := ToDOT(g, starts, Bind(g, starts), DOTOptions{Detailed: true})

	for _, want := range []string{
		`digraph "demo"`,
		`{ rank=same; "a1"; "m"; }`,
		`"a1" -> "p";`,
		"unit: ALU_1",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q:\n%s", want, dot)
		}
	}
}

func TestRenderSVG(t *testing.T) {
	g := contended(t)
	svg, err := RenderSVG(context.Background(), ToDOT(g, nil, nil, DOTOptions{}))
	if err != nil {
		t.Fatalf("RenderSVG() error = %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Errorf("RenderSVG() output is not SVG: %.80s", svg)
	}
}

func TestSummaryAndResultFile(t *testing.T) {
	g := contended(t)
	inv := resource.Inventory{"ALU": 1, "MUL": 1}
	res, err := sched.Run(context.Background(), g, inv, sched.Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	b := Bind(g, res.Starts)
	lib := resource.DefaultLibrary()

	s := NewSummary("demo", g, res, b, inv, lib)
	if s.FUsUsed != 2 {
		t.Errorf("FUsUsed = %d, want 2", s.FUsUsed)
	}
	// ALU: leakage 1 x 1 unit + dynamic 1 x 2 ops; MUL: 3 x 1 + 4 x 1.
	if s.Power != 10 {
		t.Errorf("Power = %v, want 10", s.Power)
	}
	var buf bytes.Buffer
	if err := s.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), "ALU 1/1") {
		t.Errorf("Write() missing unit usage:\n%s", buf.String())
	}

	rf := ResultFile("demo", g, res.Latency, res.Starts, b, inv, lib)
	if rf.Latency != res.Latency || len(rf.Ops) != g.NodeCount() {
		t.Errorf("ResultFile() = latency %d with %d ops, want %d with %d",
			rf.Latency, len(rf.Ops), res.Latency, g.NodeCount())
	}
	if len(rf.Units) != 2 || rf.Units[1].Type != "MUL" || rf.Units[1].Delay != 2 {
		t.Errorf("ResultFile().Units = %+v", rf.Units)
	}
}
