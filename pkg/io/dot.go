package io

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/errors"
)

var (
	latRegex  = regexp.MustCompile(`(?i)Lat:\s*(\d+)`)
	typeRegex = regexp.MustCompile(`(?i)Type:\s*(\w+)`)
)

// emptyLabel is what Graphviz reports for a node without a label.
const emptyLabel = `\N`

// ReadDOT decodes a problem from a DOT digraph.
//
// Each node becomes an operation named after the node. Labels of the form
// "Lat: 2 Type: MUL" set latency and type directly; any other label is
// taken as an opcode for [Problem.Resolve]. Nodes named SOURCE or SINK
// (in any case) become the anchors. Nodes without a label, or with an
// annotated label missing its type, load as [TypeUnknown] with latency 0
// and are reported through warn. Edges become dependencies.
func ReadDOT(src []byte, warn dag.WarnFunc) (*Problem, error) {
	if warn == nil {
		warn = func(string, ...any) {}
	}

	g, err := graphviz.ParseBytes(src)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse dot")
	}
	defer g.Close()

	p := &Problem{}
	if name, err := g.Name(); err == nil {
		p.Name = name
	}

	n, err := g.FirstNode()
	for ; n != nil && err == nil; n, err = g.NextNode(n) {
		name, nerr := n.Name()
		if nerr != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, nerr, "read node name")
		}
		p.Operations = append(p.Operations, dotOperation(name, n.GetStr("label"), warn))

		e, eerr := g.FirstOut(n)
		for ; e != nil && eerr == nil; e, eerr = g.NextOut(e) {
			head, herr := e.Head()
			if herr != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFormat, herr, "edge from %s", name)
			}
			to, herr := head.Name()
			if herr != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFormat, herr, "edge from %s", name)
			}
			p.Dependencies = append(p.Dependencies, Dependency{From: name, To: to})
		}
		if eerr != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, eerr, "edges of %s", name)
		}
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "walk nodes")
	}

	p.canonicalize()
	return p, nil
}

// ImportDOT reads a DOT problem file at path.
func ImportDOT(path string, warn dag.WarnFunc) (*Problem, error) {
	src, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ReadDOT(src, warn)
}

func dotOperation(name, label string, warn dag.WarnFunc) Operation {
	op := Operation{ID: name}
	if t := dag.ParseResourceType(name); t.IsAnchor() {
		op.Type = string(t)
		return op
	}

	label = strings.TrimSpace(label)
	if label == emptyLabel || label == "" {
		warn("node %s has no label, loaded as %s with latency 0", name, TypeUnknown)
		op.Type = TypeUnknown
		return op
	}

	latMatch := latRegex.FindStringSubmatch(label)
	typeMatch := typeRegex.FindStringSubmatch(label)
	if latMatch == nil && typeMatch == nil {
		op.Opcode = label
		return op
	}

	if latMatch != nil {
		op.Latency, _ = strconv.Atoi(latMatch[1])
	}
	if typeMatch != nil {
		op.Type = typeMatch[1]
	} else {
		warn("node %s: label %q has no type, loaded as %s", name, label, TypeUnknown)
		op.Type = TypeUnknown
	}
	op.Meta = dag.Metadata{"label": label}
	return op
}
