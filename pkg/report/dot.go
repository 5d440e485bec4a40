package report

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/errors"
)

// DOTOptions configures [ToDOT].
type DOTOptions struct {
	// Detailed adds latency, unit and metadata lines to node labels.
	// When false, labels show the id, type and start cycle.
	Detailed bool
}

// fillColors holds light fills per resource type, in sorted type order.
var fillColors = []string{"#cfeee8", "#d6e6fb", "#fdf0c4", "#f8d4d0", "#d8f0d2", "#e6dcf6", "#fde0cc"}

// ToDOT converts a scheduled graph to Graphviz DOT. Nodes that start in the
// same cycle share a rank, so the diagram reads top to bottom in time.
// starts and b may be nil to draw the bare data-flow graph.
func ToDOT(g *dag.DAG, starts map[string]int, b *Binding, opts DOTOptions) string {
	var buf bytes.Buffer
	name := "G"
	if n, ok := g.Meta()["name"].(string); ok && n != "" {
		name = n
	}
	fmt.Fprintf(&buf, "digraph %q {\n", name)
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	colors := typeColors(g)
	for _, n := range g.Nodes() {
		label := fmtLabel(*n, starts, b, opts.Detailed)
		attrs := fmtAttrs(*n, label, colors)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	if len(starts) > 0 {
		buf.WriteString("\n")
		byCycle := make(map[int][]string)
		for _, n := range g.Nodes() {
			if s, ok := starts[n.ID]; ok {
				byCycle[s] = append(byCycle[s], strconv.Quote(n.ID))
			}
		}
		for _, c := range slices.Sorted(maps.Keys(byCycle)) {
			fmt.Fprintf(&buf, "  { rank=same; %s; }\n", strings.Join(byCycle[c], "; "))
		}
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func typeColors(g *dag.DAG) map[dag.ResourceType]string {
	types := g.Types()
	slices.Sort(types)
	out := make(map[dag.ResourceType]string, len(types))
	for i, t := range types {
		out[t] = fillColors[i%len(fillColors)]
	}
	return out
}

func fmtLabel(n dag.Node, starts map[string]int, b *Binding, detailed bool) string {
	lines := []string{n.ID}
	if !n.IsAnchor() {
		lines = append(lines, string(n.Type))
	}
	if s, ok := starts[n.ID]; ok {
		lines = append(lines, fmt.Sprintf("@%d", s))
	}
	if !detailed {
		return strings.Join(lines, "\n")
	}

	lines = append(lines, fmt.Sprintf("lat: %d", n.Latency))
	if b != nil {
		if u := b.UnitOf(n.ID); u >= 0 {
			lines = append(lines, "unit: "+unitName(n.Type, u))
		}
	}
	for _, k := range slices.Sorted(maps.Keys(n.Meta)) {
		lines = append(lines, fmt.Sprintf("%s: %v", k, n.Meta[k]))
	}
	return strings.Join(lines, "\n")
}

func fmtAttrs(n dag.Node, label string, colors map[dag.ResourceType]string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.IsAnchor():
		attrs = append(attrs, "shape=ellipse", "style=\"filled,dashed\"", "fillcolor=lightgrey")
	case n.IsPseudo():
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=white")
	default:
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", colors[n.Type]))
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// The result can be converted further with [ToPDF] or [ToPNG].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
