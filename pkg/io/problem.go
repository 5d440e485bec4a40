package io

import (
	"fmt"
	"maps"

	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/errors"
	"github.com/matzehuels/hlsched/pkg/resource"
)

// TypeUnknown is assigned to operations whose resource class could not be
// determined. They load as zero-latency pseudo-operations.
const TypeUnknown = "UNKNOWN"

// Problem is the serializable form of a scheduling input.
type Problem struct {
	Name         string             `json:"name,omitempty" yaml:"name,omitempty"`
	Operations   []Operation        `json:"operations" yaml:"operations"`
	Dependencies []Dependency       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Resources    resource.Inventory `json:"resources,omitempty" yaml:"resources,omitempty"`
}

// Operation is one node of the data-flow graph.
//
// Type names the resource class directly. When Type is empty, Opcode is
// classified by [Problem.Resolve]; an opcode operation with latency 0 takes
// the delay of its class.
type Operation struct {
	ID      string       `json:"id" yaml:"id"`
	Latency int          `json:"latency,omitempty" yaml:"latency,omitempty"`
	Type    string       `json:"type,omitempty" yaml:"type,omitempty"`
	Opcode  string       `json:"opcode,omitempty" yaml:"opcode,omitempty"`
	Meta    dag.Metadata `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// Dependency states that To consumes the result of From.
type Dependency struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Resolve fills in what the problem file left to the library: the type and
// latency of opcode operations, and the resource inventory when none was
// declared. Opcodes the library does not know become [TypeUnknown]
// pseudo-operations and are reported through warn.
func (p *Problem) Resolve(lib *resource.Library, warn dag.WarnFunc) error {
	if lib == nil {
		lib = resource.DefaultLibrary()
	}
	if warn == nil {
		warn = func(string, ...any) {}
	}

	for i := range p.Operations {
		op := &p.Operations[i]
		if op.Type != "" {
			continue
		}
		if op.Opcode == "" {
			return errors.New(errors.ErrCodeInvalidOperation, "operation %s has neither type nor opcode", op.ID)
		}
		r, ok := lib.Classify(op.Opcode)
		if !ok {
			warn("operation %s: unknown opcode %q, loaded as %s with latency 0", op.ID, op.Opcode, TypeUnknown)
			op.Type, op.Latency = TypeUnknown, 0
			continue
		}
		op.Type = r.Name
		if op.Latency == 0 {
			op.Latency = r.Delay
		}
	}

	if len(p.Resources) == 0 {
		p.Resources = lib.Inventory()
	}
	p.canonicalize()
	return nil
}

// canonicalize upper-cases type names and inventory keys.
func (p *Problem) canonicalize() {
	for i := range p.Operations {
		if p.Operations[i].Type != "" {
			p.Operations[i].Type = string(dag.ParseResourceType(p.Operations[i].Type))
		}
	}
	if len(p.Resources) > 0 {
		p.Resources = p.Resources.Canonical()
	}
}

// Validate checks operation ids, latencies and types and the declared
// inventory. Dependencies are not checked here; [Problem.Graph] drops the
// invalid ones with a warning.
func (p *Problem) Validate() error {
	for _, op := range p.Operations {
		if err := errors.ValidateOperationID(op.ID); err != nil {
			return err
		}
		if err := errors.ValidateLatency(op.ID, op.Latency); err != nil {
			return err
		}
		if op.Type == "" {
			return errors.New(errors.ErrCodeInvalidOperation, "operation %s has no resource type", op.ID)
		}
		if t := dag.ParseResourceType(op.Type); !t.IsAnchor() {
			if err := errors.ValidateResourceType(op.Type); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidOperation, err, "operation %s", op.ID)
			}
		}
	}
	return p.Resources.Validate()
}

// Graph validates the problem and builds the normalized data-flow graph.
// Dropped dependencies are reported through warn.
func (p *Problem) Graph(warn dag.WarnFunc) (*dag.DAG, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	nodes := make([]dag.Node, len(p.Operations))
	for i, op := range p.Operations {
		meta := maps.Clone(op.Meta)
		if op.Opcode != "" {
			if meta == nil {
				meta = dag.Metadata{}
			}
			meta["opcode"] = op.Opcode
		}
		nodes[i] = dag.Node{
			ID:      op.ID,
			Latency: op.Latency,
			Type:    dag.ParseResourceType(op.Type),
			Meta:    meta,
		}
	}
	edges := make([]dag.Edge, len(p.Dependencies))
	for i, d := range p.Dependencies {
		edges[i] = dag.Edge{From: d.From, To: d.To}
	}

	var meta dag.Metadata
	if p.Name != "" {
		meta = dag.Metadata{"name": p.Name}
	}
	g, err := dag.Build(nodes, edges, dag.BuildOptions{Meta: meta, Warn: warn})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build graph")
	}
	return g, nil
}

// FromGraph converts a graph back into a problem. Anchors the normalizer
// synthesized are left out, together with their edges, so the result loads
// into an equivalent graph.
func FromGraph(g *dag.DAG, inv resource.Inventory) *Problem {
	p := &Problem{Resources: inv.Clone()}
	if name, ok := g.Meta()["name"].(string); ok {
		p.Name = name
	}

	synthetic := make(map[string]bool)
	for _, n := range g.Nodes() {
		if s, _ := n.Meta["synthetic"].(bool); s {
			synthetic[n.ID] = true
			continue
		}
		op := Operation{ID: n.ID, Latency: n.Latency, Type: string(n.Type)}
		if opcode, ok := n.Meta["opcode"].(string); ok {
			op.Opcode = opcode
		}
		p.Operations = append(p.Operations, op)
	}
	for _, e := range g.Edges() {
		if synthetic[e.From] || synthetic[e.To] {
			continue
		}
		p.Dependencies = append(p.Dependencies, Dependency{From: e.From, To: e.To})
	}
	return p
}

// String summarizes the problem for logs.
func (p *Problem) String() string {
	return fmt.Sprintf("%s: %d operations, %d dependencies, resources %s",
		p.displayName(), len(p.Operations), len(p.Dependencies), p.Resources)
}

func (p *Problem) displayName() string {
	if p.Name == "" {
		return "problem"
	}
	return p.Name
}
