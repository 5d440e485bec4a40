package sched

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"testing"

	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/errors"
	"github.com/matzehuels/hlsched/pkg/resource"
)

func passAt(t *testing.T, g *dag.DAG, inv resource.Inventory, target int) *Schedule {
	t.Helper()
	a, err := Analyze(g)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	p := &GraphPass{Analysis: a, Inventory: inv, Mode: PriorityForce}
	s, err := p.Run(context.Background(), target)
	if err != nil {
		t.Fatalf("GraphPass.Run(%d) error = %v", target, err)
	}
	return s
}

func TestListSchedule_SingleContendedResource(t *testing.T) {
	g := contended(t)
	s := passAt(t, g, resource.Inventory{"ALU": 1, "MUL": 1}, 2)

	want := map[string]int{"SOURCE": 0, "a1": 1, "m": 1, "a2": 2, "SINK": 3}
	for id, c := range want {
		if got, _ := s.StartOf(id); got != c {
			t.Errorf("start(%s) = %d, want %d", id, got, c)
		}
	}
	if s.Latency != 2 {
		t.Errorf("Latency = %d, want 2", s.Latency)
	}
}

func TestListSchedule_ZeroLatencyFlush(t *testing.T) {
	g := build(t, []dag.Node{
		op("pass", 0, "ALU"),
		op("real", 1, "ALU"),
	}, [][2]string{{"pass", "real"}})
	s := passAt(t, g, resource.Inventory{"ALU": 1}, 1)

	passStart, _ := s.StartOf("pass")
	realStart, _ := s.StartOf("real")
	if passStart != 1 || realStart != 1 {
		t.Errorf("start(pass), start(real) = %d, %d, want 1, 1", passStart, realStart)
	}
	if s.Latency != 1 {
		t.Errorf("Latency = %d, want 1", s.Latency)
	}
}

func TestListSchedule_ZeroLatencyChain(t *testing.T) {
	// Pass-through nodes unlock each other within one cycle, and one that
	// waits for a real operation starts the cycle that operation retires.
	g := build(t, []dag.Node{
		op("p1", 0, "ALU"),
		op("p2", 0, "ALU"),
		op("x", 2, "MUL"),
		op("p3", 0, "ALU"),
		op("y", 1, "ALU"),
	}, [][2]string{{"p1", "p2"}, {"p2", "x"}, {"x", "p3"}, {"p3", "y"}})
	s := passAt(t, g, resource.Inventory{"ALU": 1, "MUL": 1}, 3)

	want := map[string]int{"p1": 1, "p2": 1, "x": 1, "p3": 3, "y": 3, "SINK": 4}
	for id, c := range want {
		if got, _ := s.StartOf(id); got != c {
			t.Errorf("start(%s) = %d, want %d", id, got, c)
		}
	}
}

func TestListSchedule_UnitReleasedOnRetire(t *testing.T) {
	g := build(t, []dag.Node{
		op("m1", 2, "MUL"),
		op("m2", 2, "MUL"),
		op("m3", 2, "MUL"),
	}, nil)
	s := passAt(t, g, resource.Inventory{"MUL": 1}, 2)

	var starts []int
	for _, id := range []string{"m1", "m2", "m3"} {
		c, _ := s.StartOf(id)
		starts = append(starts, c)
	}
	slices.Sort(starts)
	if want := []int{1, 3, 5}; !slices.Equal(starts, want) {
		t.Errorf("starts = %v, want %v", starts, want)
	}
	if s.Latency != 6 {
		t.Errorf("Latency = %d, want 6", s.Latency)
	}
}

func TestListSchedule_UndeclaredTypeExceedsBudget(t *testing.T) {
	g := build(t, []dag.Node{
		op("x", 1, "FPU"),
		op("y", 1, "ALU"),
	}, nil)

	var warnings []string
	opts := ListOptions{Warn: func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}}
	prio := make([]float64, g.NodeCount())
	_, err := ListSchedule(context.Background(), g, resource.Inventory{"ALU": 1}, prio, opts)

	if !errors.Is(err, errors.ErrCodeRuntimeBudgetExceeded) {
		t.Fatalf("ListSchedule() error = %v, want %s", err, errors.ErrCodeRuntimeBudgetExceeded)
	}
	var perr *PassError
	if !stderrors.As(err, &perr) {
		t.Fatalf("error %v does not carry a *PassError", err)
	}
	if want := []string{"x", "SINK"}; !slices.Equal(perr.Unscheduled, want) {
		t.Errorf("Unscheduled = %v, want %v", perr.Unscheduled, want)
	}
	if got := perr.Starts["y"]; got != 1 {
		t.Errorf("partial start(y) = %d, want 1", got)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want exactly one", warnings)
	}
}

func TestListSchedule_Stalled(t *testing.T) {
	// a and b wait on each other and never become ready.
	g := build(t, []dag.Node{
		op("a", 1, "ALU"), op("b", 1, "ALU"), op("c", 1, "ALU"),
	}, [][2]string{{"a", "b"}, {"b", "a"}})

	prio := make([]float64, g.NodeCount())
	_, err := ListSchedule(context.Background(), g, resource.Inventory{"ALU": 1}, prio, ListOptions{})

	if !errors.Is(err, errors.ErrCodeSchedulerStalled) {
		t.Fatalf("ListSchedule() error = %v, want %s", err, errors.ErrCodeSchedulerStalled)
	}
	var perr *PassError
	if !stderrors.As(err, &perr) {
		t.Fatalf("error %v does not carry a *PassError", err)
	}
	if want := []string{"a", "b"}; !slices.Equal(perr.Unscheduled, want) {
		t.Errorf("Unscheduled = %v, want %v", perr.Unscheduled, want)
	}
	if perr.Cycle != 3 {
		t.Errorf("Cycle = %d, want 3", perr.Cycle)
	}
}

func TestListSchedule_Cancelled(t *testing.T) {
	// 70 serial operations need more than 64 cycles, so the context is
	// checked at least once.
	var nodes []dag.Node
	var edges [][2]string
	for i := range 70 {
		nodes = append(nodes, op(fmt.Sprintf("n%d", i), 1, "ALU"))
		if i > 0 {
			edges = append(edges, [2]string{fmt.Sprintf("n%d", i-1), fmt.Sprintf("n%d", i)})
		}
	}
	g := build(t, nodes, edges)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	prio := make([]float64, g.NodeCount())
	_, err := ListSchedule(ctx, g, resource.Inventory{"ALU": 1}, prio, ListOptions{})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("ListSchedule() error = %v, want context.Canceled", err)
	}
}

func TestRun_Feasibility(t *testing.T) {
	tests := []struct {
		name string
		g    *dag.DAG
		inv  resource.Inventory
	}{
		{"contended", contended(t), resource.Inventory{"ALU": 1, "MUL": 1}},
		{"hal one unit each", hal(t), resource.Inventory{"ALU": 1, "MUL": 1}},
		{"hal two multipliers", hal(t), resource.Inventory{"ALU": 1, "MUL": 2}},
		{"hal unconstrained", hal(t), resource.Inventory{"ALU": 5, "MUL": 6}},
		{"wide", wide(t, 12), resource.Inventory{"ALU": 2, "MUL": 1}},
	}
	for _, tt := range tests {
		for mode := range ValidPriorityModes {
			t.Run(tt.name+"/"+string(mode), func(t *testing.T) {
				res, err := Run(context.Background(), tt.g, tt.inv, Options{Priority: mode})
				if err != nil {
					t.Fatalf("Run() error = %v", err)
				}
				checkFeasible(t, tt.g, tt.inv, res)
				if res.Latency < res.CriticalPath {
					t.Errorf("Latency = %d below critical path %d", res.Latency, res.CriticalPath)
				}
				if !res.State.Terminal() {
					t.Errorf("State = %s, want a terminal state", res.State)
				}
				if len(res.Iterations) > DefaultMaxIterations {
					t.Errorf("%d iterations, budget is %d", len(res.Iterations), DefaultMaxIterations)
				}
			})
		}
	}
}

func TestRun_UnconstrainedMeetsCriticalPath(t *testing.T) {
	g := hal(t)
	res, err := Run(context.Background(), g, resource.Inventory{"ALU": 5, "MUL": 6}, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Latency != 6 {
		t.Errorf("Latency = %d, want 6", res.Latency)
	}
	if res.State != StateConverged || len(res.Iterations) != 1 {
		t.Errorf("State = %s after %d iterations, want converged after 1", res.State, len(res.Iterations))
	}
}

func TestRun_EmptyGraph(t *testing.T) {
	g := build(t, nil, nil)
	res, err := Run(context.Background(), g, resource.Inventory{}, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Latency != 0 {
		t.Errorf("Latency = %d, want 0", res.Latency)
	}
	if got := res.Starts["SINK"]; got != 1 {
		t.Errorf("start(SINK) = %d, want 1", got)
	}
}

func TestRun_CycleIsFatal(t *testing.T) {
	g := build(t, []dag.Node{op("a", 1, "ALU"), op("b", 1, "ALU")},
		[][2]string{{"a", "b"}, {"b", "a"}})
	_, err := Run(context.Background(), g, resource.Inventory{"ALU": 1}, Options{})
	if !errors.Is(err, errors.ErrCodeCycleDetected) {
		t.Errorf("Run() error = %v, want %s", err, errors.ErrCodeCycleDetected)
	}
}

func TestRun_InvalidPriority(t *testing.T) {
	_, err := Run(context.Background(), contended(t), resource.Inventory{"ALU": 1, "MUL": 1}, Options{Priority: "fds"})
	if !errors.Is(err, errors.ErrCodeInvalidOption) {
		t.Errorf("Run() error = %v, want %s", err, errors.ErrCodeInvalidOption)
	}
}

// wide is n independent ALU operations feeding a reduction tree of
// multiplies.
func wide(t *testing.T, n int) *dag.DAG {
	var nodes []dag.Node
	var edges [][2]string
	for i := range n {
		nodes = append(nodes, op(fmt.Sprintf("a%d", i), 1, "ALU"))
	}
	for i := 0; i+1 < n; i += 2 {
		m := fmt.Sprintf("m%d", i/2)
		nodes = append(nodes, op(m, 2, "MUL"))
		edges = append(edges, [2]string{fmt.Sprintf("a%d", i), m}, [2]string{fmt.Sprintf("a%d", i+1), m})
	}
	return build(t, nodes, edges)
}

// checkFeasible asserts dependency and resource feasibility of a result.
func checkFeasible(t *testing.T, g *dag.DAG, inv resource.Inventory, res *Result) {
	t.Helper()
	for _, e := range g.Edges() {
		u, _ := g.Node(e.From)
		su, okU := res.Starts[e.From]
		sv, okV := res.Starts[e.To]
		if !okU || !okV {
			t.Errorf("edge %s->%s has an unscheduled endpoint", e.From, e.To)
			continue
		}
		if u.IsAnchor() {
			continue
		}
		if sv < su+u.Latency {
			t.Errorf("start(%s) = %d < start(%s)+lat = %d", e.To, sv, e.From, su+u.Latency)
		}
	}

	busy := make(map[dag.ResourceType]map[int]int)
	for _, n := range g.Nodes() {
		if n.IsAnchor() {
			continue
		}
		s := res.Starts[n.ID]
		for c := s; c < s+n.Latency; c++ {
			if busy[n.Type] == nil {
				busy[n.Type] = make(map[int]int)
			}
			busy[n.Type][c]++
			if busy[n.Type][c] > inv[n.Type] {
				t.Errorf("%s over-subscribed at cycle %d", n.Type, c)
			}
		}
	}

	if got := res.Starts[g.At(g.Sink()).ID] - 1; got != res.Latency {
		t.Errorf("start(SINK)-1 = %d, Latency = %d", got, res.Latency)
	}
}
