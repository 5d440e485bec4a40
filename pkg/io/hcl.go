package io

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/errors"
	"github.com/matzehuels/hlsched/pkg/resource"
)

type hclFile struct {
	Name       string         `hcl:"name,optional"`
	Resources  []hclResource  `hcl:"resource,block"`
	Operations []hclOperation `hcl:"operation,block"`
}

type hclResource struct {
	Name    string         `hcl:"name,label"`
	Units   int            `hcl:"units"`
	Latency hcl.Expression `hcl:"latency,optional"`
}

type hclOperation struct {
	ID      string         `hcl:"id,label"`
	Type    string         `hcl:"type,optional"`
	Opcode  string         `hcl:"opcode,optional"`
	Latency hcl.Expression `hcl:"latency,optional"`
	After   []string       `hcl:"after,optional"`
}

// EvalContext exposes the library to HCL expressions as two objects keyed
// by resource type: lat (delay in cycles) and units (default unit count).
func EvalContext(lib *resource.Library) *hcl.EvalContext {
	lat := make(map[string]cty.Value, len(lib.Resources))
	units := make(map[string]cty.Value, len(lib.Resources))
	for _, r := range lib.Resources {
		name := string(r.Type())
		lat[name] = cty.NumberIntVal(int64(r.Delay))
		units[name] = cty.NumberIntVal(int64(r.Units))
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"lat":   objectVal(lat),
			"units": objectVal(units),
		},
	}
}

func objectVal(attrs map[string]cty.Value) cty.Value {
	if len(attrs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(attrs)
}

// ReadHCL decodes a problem from HCL source. filename is only used in
// diagnostics. lib provides the evaluation context and the delays of
// operations without an explicit latency; nil means
// [resource.DefaultLibrary].
//
// An operation's latency is, in order of preference: its own latency
// attribute, the latency attribute of its resource block, the library
// delay of its type. Opcode operations are left for [Problem.Resolve].
func ReadHCL(src []byte, filename string, lib *resource.Library) (*Problem, error) {
	if lib == nil {
		lib = resource.DefaultLibrary()
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, diags, "parse %s", filename)
	}

	ctx := EvalContext(lib)
	var cfg hclFile
	if diags := gohcl.DecodeBody(file.Body, ctx, &cfg); diags.HasErrors() {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, diags, "decode %s", filename)
	}

	p := &Problem{Name: cfg.Name}
	defaults := lib.Latencies()
	if len(cfg.Resources) > 0 {
		p.Resources = make(resource.Inventory, len(cfg.Resources))
	}
	for _, r := range cfg.Resources {
		t := dag.ParseResourceType(r.Name)
		p.Resources[t] = r.Units
		lat, ok, err := evalInt(r.Latency, ctx)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidResource, err, "resource %s: latency", r.Name)
		}
		if ok {
			defaults[t] = lat
		}
	}

	for _, o := range cfg.Operations {
		op := Operation{ID: o.ID, Type: o.Type, Opcode: o.Opcode}
		lat, ok, err := evalInt(o.Latency, ctx)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidOperation, err, "operation %s: latency", o.ID)
		}
		switch {
		case ok:
			op.Latency = lat
		case o.Type != "":
			t := dag.ParseResourceType(o.Type)
			d, known := defaults[t]
			if !known && !t.IsAnchor() {
				return nil, errors.New(errors.ErrCodeInvalidOperation,
					"operation %s: no latency given and type %s is not in the library", o.ID, t)
			}
			op.Latency = d
		}
		p.Operations = append(p.Operations, op)
		for _, from := range o.After {
			p.Dependencies = append(p.Dependencies, Dependency{From: from, To: o.ID})
		}
	}

	p.canonicalize()
	return p, nil
}

// ImportHCL reads an HCL problem file at path.
func ImportHCL(path string, lib *resource.Library) (*Problem, error) {
	src, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ReadHCL(src, path, lib)
}

// evalInt evaluates an optional attribute. ok is false when the attribute
// was omitted.
func evalInt(expr hcl.Expression, ctx *hcl.EvalContext) (n int, ok bool, err error) {
	if expr == nil {
		return 0, false, nil
	}
	v, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return 0, false, diags
	}
	if v.IsNull() {
		return 0, false, nil
	}
	if err := gocty.FromCtyValue(v, &n); err != nil {
		return 0, false, err
	}
	return n, true, nil
}
