package sched

import (
	"context"
	stderrors "errors"
	"slices"
	"testing"

	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/resource"
)

// stub returns a pass whose achieved latency is looked up in next, and
// records the targets it was run against.
func stub(next func(target int) int, targets *[]int) Pass {
	return PassFunc(func(_ context.Context, target int) (*Schedule, error) {
		*targets = append(*targets, target)
		return &Schedule{Target: target, Latency: next(target)}, nil
	})
}

func states(out *Outcome) []State {
	s := make([]State, len(out.Iterations))
	for i, it := range out.Iterations {
		s[i] = it.State
	}
	return s
}

func TestController_Converges(t *testing.T) {
	var targets []int
	pass := stub(func(target int) int { return max(target, 4) }, &targets)

	out, err := (&Controller{}).Run(context.Background(), pass, 2)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.State != StateConverged {
		t.Errorf("State = %s, want %s", out.State, StateConverged)
	}
	if out.Latency != 4 || out.Schedule.Target != 4 {
		t.Errorf("Latency = %d from target %d, want 4 from 4", out.Latency, out.Schedule.Target)
	}
	if want := []int{2, 4}; !slices.Equal(targets, want) {
		t.Errorf("targets = %v, want %v", targets, want)
	}
}

func TestController_OscillationRecovery(t *testing.T) {
	// Target 7 achieves 6, target 6 achieves 7: the controller bounces
	// between the two and must settle on 6 with the schedule target 7
	// produced.
	achieves := map[int]int{5: 7, 7: 6, 6: 7}
	var targets []int
	pass := stub(func(target int) int { return achieves[target] }, &targets)

	out, err := (&Controller{}).Run(context.Background(), pass, 5)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if out.State != StateStable {
		t.Errorf("State = %s, want %s", out.State, StateStable)
	}
	if out.Latency != 6 {
		t.Errorf("Latency = %d, want 6", out.Latency)
	}
	if out.Schedule.Latency != 6 || out.Schedule.Target != 7 {
		t.Errorf("Schedule = latency %d from target %d, want latency 6 from target 7",
			out.Schedule.Latency, out.Schedule.Target)
	}

	wantTargets := []int{5, 7, 6, 7, 6, 7}
	if !slices.Equal(targets, wantTargets) {
		t.Errorf("targets = %v, want %v", targets, wantTargets)
	}
	wantStates := []State{
		StateProbing, StateProbing, StateForcedRetarget,
		StateProbing, StateProbing, StateStable,
	}
	if got := states(out); !slices.Equal(got, wantStates) {
		t.Errorf("states = %v, want %v", got, wantStates)
	}
}

func TestController_OscillationBetterLatencyFirst(t *testing.T) {
	// 3 -> 5 -> 4 -> 5: the A, B, A pattern appears while running target 5,
	// which first produced the better latency 4.
	achieves := map[int]int{3: 5, 5: 4, 4: 5}
	var targets []int
	pass := stub(func(target int) int { return achieves[target] }, &targets)

	out, err := (&Controller{}).Run(context.Background(), pass, 3)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// 3->5 accept, 5->4 accept, 4->5 oscillation: optimum 4 came from
	// target 5, current target is 4, so retarget to 5; 5->4 accept;
	// 4->5 accept; 5->4 oscillation at target 5: stop.
	if out.State != StateStable || out.Latency != 4 {
		t.Errorf("State, Latency = %s, %d, want %s, 4", out.State, out.Latency, StateStable)
	}
	if out.Schedule.Target != 5 {
		t.Errorf("Schedule.Target = %d, want 5", out.Schedule.Target)
	}
}

func TestController_BudgetExhausted(t *testing.T) {
	var targets []int
	pass := stub(func(target int) int { return target + 1 }, &targets)

	out, err := (&Controller{MaxIterations: 5}).Run(context.Background(), pass, 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.State != StateBudgetExhausted {
		t.Errorf("State = %s, want %s", out.State, StateBudgetExhausted)
	}
	if len(out.Iterations) != 5 {
		t.Errorf("len(Iterations) = %d, want 5", len(out.Iterations))
	}
	if out.Latency != 5 || out.Schedule.Target != 4 {
		t.Errorf("last accepted = latency %d from target %d, want 5 from 4", out.Latency, out.Schedule.Target)
	}
}

func TestController_PassErrorAborts(t *testing.T) {
	boom := stderrors.New("boom")
	pass := PassFunc(func(context.Context, int) (*Schedule, error) { return nil, boom })

	_, err := (&Controller{}).Run(context.Background(), pass, 1)
	if !stderrors.Is(err, boom) {
		t.Errorf("Run() error = %v, want wrapped %v", err, boom)
	}
}

func TestController_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var targets []int
	_, err := (&Controller{}).Run(ctx, stub(func(x int) int { return x }, &targets), 1)
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if len(targets) != 0 {
		t.Errorf("pass ran %d times after cancel", len(targets))
	}
}

func TestRun_BudgetExhaustedWarns(t *testing.T) {
	g := hal(t)
	// A single iteration can only converge if the first pass meets the
	// critical path, which one multiplier cannot.
	res, err := Run(context.Background(), g, resource.Inventory{"ALU": 1, "MUL": 1}, Options{MaxIterations: 1})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.State != StateBudgetExhausted {
		t.Fatalf("State = %s, want %s", res.State, StateBudgetExhausted)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("Warnings = %v, want one budget warning", res.Warnings)
	}
	checkFeasible(t, g, resource.Inventory{"ALU": 1, "MUL": 1}, res)
}

func TestRun_OscillatingGraph(t *testing.T) {
	// Two chains on one ALU: ld(3) -> st(1) and sh(2) -> mul(1). Target 4
	// achieves 7, target 7 achieves 6 by starting sh first, and target 6
	// falls back to 7, so the controller bounces between 6 and 7.
	g, err := dag.Build([]dag.Node{
		{ID: "ld", Latency: 3, Type: "ALU"},
		{ID: "st", Latency: 1, Type: "ALU"},
		{ID: "sh", Latency: 2, Type: "ALU"},
		{ID: "mul", Latency: 1, Type: "MUL"},
	}, []dag.Edge{{From: "ld", To: "st"}, {From: "sh", To: "mul"}}, dag.BuildOptions{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	res, err := Run(context.Background(), g, resource.Inventory{"ALU": 1, "MUL": 1}, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.State != StateStable {
		t.Fatalf("State = %s, want %s (iterations %+v)", res.State, StateStable, res.Iterations)
	}
	if res.Latency != 6 || res.Schedule.Latency != res.Latency {
		t.Errorf("Latency = %d, Schedule.Latency = %d, want 6 for both", res.Latency, res.Schedule.Latency)
	}
	if res.Schedule.Target != 7 {
		t.Errorf("Schedule.Target = %d, want 7", res.Schedule.Target)
	}
	wantTargets := []int{4, 7, 6, 7, 6, 7}
	var targets []int
	for _, it := range res.Iterations {
		targets = append(targets, it.Target)
	}
	if !slices.Equal(targets, wantTargets) {
		t.Errorf("targets = %v, want %v", targets, wantTargets)
	}
	want := map[string]int{"sh": 1, "ld": 3, "mul": 3, "st": 6}
	for id, c := range want {
		if res.Starts[id] != c {
			t.Errorf("start of %s = %d, want %d", id, res.Starts[id], c)
		}
	}
}
