package io

import (
	"fmt"
	"slices"
	"testing"

	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/errors"
	"github.com/matzehuels/hlsched/pkg/resource"
)

func collect(warnings *[]string) dag.WarnFunc {
	return func(format string, args ...any) {
		*warnings = append(*warnings, fmt.Sprintf(format, args...))
	}
}

func opByID(t *testing.T, p *Problem, id string) Operation {
	t.Helper()
	for _, op := range p.Operations {
		if op.ID == id {
			return op
		}
	}
	t.Fatalf("operation %s not found", id)
	return Operation{}
}

func TestResolve(t *testing.T) {
	p := &Problem{Operations: []Operation{
		{ID: "a", Opcode: "add"},
		{ID: "m", Opcode: "MUL", Latency: 5},
		{ID: "x", Opcode: "FOO", Latency: 3},
		{ID: "t", Type: "alu", Latency: 1},
	}}
	var warnings []string
	if err := p.Resolve(nil, collect(&warnings)); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	tests := []struct {
		id      string
		typ     string
		latency int
	}{
		{"a", "ALU", 1},
		{"m", "MUL", 5},
		{"x", TypeUnknown, 0},
		{"t", "ALU", 1},
	}
	for _, tt := range tests {
		op := opByID(t, p, tt.id)
		if op.Type != tt.typ || op.Latency != tt.latency {
			t.Errorf("%s = (%s, %d), want (%s, %d)", tt.id, op.Type, op.Latency, tt.typ, tt.latency)
		}
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want one for opcode FOO", warnings)
	}
	want := resource.DefaultLibrary().Inventory()
	if p.Resources.String() != want.String() {
		t.Errorf("Resources = %s, want library inventory %s", p.Resources, want)
	}
}

func TestResolve_KeepsDeclaredResources(t *testing.T) {
	p := &Problem{
		Operations: []Operation{{ID: "a", Type: "ALU", Latency: 1}},
		Resources:  resource.Inventory{"alu": 3},
	}
	if err := p.Resolve(nil, nil); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := p.Resources.String(); got != "ALU=3" {
		t.Errorf("Resources = %s, want ALU=3", got)
	}
}

func TestResolve_MissingType(t *testing.T) {
	p := &Problem{Operations: []Operation{{ID: "a", Latency: 1}}}
	err := p.Resolve(nil, nil)
	if !errors.Is(err, errors.ErrCodeInvalidOperation) {
		t.Errorf("Resolve() error = %v, want %s", err, errors.ErrCodeInvalidOperation)
	}
}

func TestProblemValidate(t *testing.T) {
	tests := []struct {
		name string
		p    Problem
		code errors.Code
	}{
		{
			name: "valid",
			p:    Problem{Operations: []Operation{{ID: "a", Type: "ALU", Latency: 1}}},
		},
		{
			name: "anchor type",
			p:    Problem{Operations: []Operation{{ID: "s", Type: "SOURCE"}}},
		},
		{
			name: "whitespace id",
			p:    Problem{Operations: []Operation{{ID: "a b", Type: "ALU"}}},
			code: errors.ErrCodeInvalidOperation,
		},
		{
			name: "negative latency",
			p:    Problem{Operations: []Operation{{ID: "a", Type: "ALU", Latency: -1}}},
			code: errors.ErrCodeInvalidOperation,
		},
		{
			name: "missing type",
			p:    Problem{Operations: []Operation{{ID: "a", Latency: 1}}},
			code: errors.ErrCodeInvalidOperation,
		},
		{
			name: "zero units",
			p: Problem{
				Operations: []Operation{{ID: "a", Type: "ALU", Latency: 1}},
				Resources:  resource.Inventory{"ALU": 0},
			},
			code: errors.ErrCodeInvalidResource,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.code == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("Validate() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestProblemGraph(t *testing.T) {
	p := &Problem{
		Name: "demo",
		Operations: []Operation{
			{ID: "a", Type: "ALU", Latency: 1},
			{ID: "m", Type: "MUL", Latency: 2, Opcode: "MUL"},
		},
		Dependencies: []Dependency{{From: "a", To: "m"}, {From: "a", To: "ghost"}},
	}
	var warnings []string
	g, err := p.Graph(collect(&warnings))
	if err != nil {
		t.Fatalf("Graph() error = %v", err)
	}

	if !g.Normalized() {
		t.Error("Graph() is not normalized")
	}
	if g.NodeCount() != 4 {
		t.Errorf("NodeCount() = %d, want 4", g.NodeCount())
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want one for ghost", warnings)
	}
	if got := g.Children("a"); !slices.Equal(got, []string{"m"}) {
		t.Errorf("Children(a) = %v, want [m]", got)
	}
	m, _ := g.Node("m")
	if m.Meta["opcode"] != "MUL" {
		t.Errorf("m opcode = %v, want MUL", m.Meta["opcode"])
	}
	if g.Meta()["name"] != "demo" {
		t.Errorf("graph name = %v, want demo", g.Meta()["name"])
	}
}

func TestProblemGraph_DuplicateID(t *testing.T) {
	p := &Problem{Operations: []Operation{
		{ID: "a", Type: "ALU", Latency: 1},
		{ID: "a", Type: "ALU", Latency: 1},
	}}
	_, err := p.Graph(nil)
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Graph() error = %v, want %s", err, errors.ErrCodeInvalidInput)
	}
}

func TestFromGraph(t *testing.T) {
	p := &Problem{
		Name: "demo",
		Operations: []Operation{
			{ID: "a", Type: "ALU", Latency: 1},
			{ID: "b", Type: "ALU", Latency: 1},
			{ID: "m", Type: "MUL", Latency: 2},
		},
		Dependencies: []Dependency{{From: "a", To: "m"}, {From: "b", To: "m"}},
		Resources:    resource.Inventory{"ALU": 1, "MUL": 1},
	}
	g, err := p.Graph(nil)
	if err != nil {
		t.Fatalf("Graph() error = %v", err)
	}

	back := FromGraph(g, p.Resources)
	if back.Name != "demo" {
		t.Errorf("Name = %q, want demo", back.Name)
	}
	if len(back.Operations) != 3 {
		t.Errorf("len(Operations) = %d, want 3 without synthetic anchors", len(back.Operations))
	}
	if !slices.Equal(back.Dependencies, p.Dependencies) {
		t.Errorf("Dependencies = %v, want %v", back.Dependencies, p.Dependencies)
	}
}
