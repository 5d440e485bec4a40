package report

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/resource"
)

// DefaultCellWidth is the width of one cycle column in a Gantt chart.
const DefaultCellWidth = 6

var (
	colorDim    = lipgloss.Color("240")
	colorGray   = lipgloss.Color("245")
	colorHeader = lipgloss.Color("36")

	// Busy cells cycle through this palette, one color per resource type.
	typePalette = []lipgloss.Color{"36", "75", "220", "167", "35", "141", "209"}

	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(colorHeader)
	styleLabel  = lipgloss.NewStyle().Foreground(colorGray)
	styleIdle   = lipgloss.NewStyle().Foreground(colorDim)
	styleRule   = lipgloss.NewStyle().Foreground(colorDim)
)

// GanttOptions configures [Gantt].
type GanttOptions struct {
	// CellWidth is the width of a cycle column. Zero selects
	// DefaultCellWidth.
	CellWidth int
	// Inventory adds idle rows for declared units the binding leaves unused.
	Inventory resource.Inventory
}

// Gantt draws one row per functional unit and one column per cycle from 1
// to latency. Busy cells show the id of the running operation, truncated
// to fit.
func Gantt(g *dag.DAG, starts map[string]int, latency int, b *Binding, opts GanttOptions) string {
	width := opts.CellWidth
	if width <= 0 {
		width = DefaultCellWidth
	}

	rows := ganttRows(g, b, opts.Inventory)
	grid := make(map[string][]string, len(rows))
	for _, r := range rows {
		grid[r.name] = make([]string, latency+1)
	}
	for _, n := range g.Nodes() {
		u, ok := b.Unit[n.ID]
		if !ok {
			continue
		}
		cells := grid[unitName(n.Type, u)]
		s := starts[n.ID]
		for c := s; c < s+n.Latency && c <= latency; c++ {
			if c >= 1 {
				cells[c] = n.ID
			}
		}
	}

	labelWidth := 0
	for _, r := range rows {
		labelWidth = max(labelWidth, len(r.name))
	}
	labelWidth += 2

	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", labelWidth))
	for c := 1; c <= latency; c++ {
		sb.WriteString(styleHeader.Width(width).Render(fmt.Sprintf("C%d", c)))
	}
	sb.WriteString("\n")
	rule := styleRule.Render(strings.Repeat("─", labelWidth+latency*width))
	sb.WriteString(rule + "\n")

	for i, r := range rows {
		if i > 0 && rows[i-1].t != r.t {
			sb.WriteString(rule + "\n")
		}
		sb.WriteString(styleLabel.Width(labelWidth).Render(r.name))
		busy := lipgloss.NewStyle().Bold(true).Foreground(r.color)
		for c := 1; c <= latency; c++ {
			id := grid[r.name][c]
			if id == "" {
				sb.WriteString(styleIdle.Width(width).Render("·"))
				continue
			}
			sb.WriteString(busy.Width(width).Render(truncate(id, width-1)))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(rule + "\n")
	return sb.String()
}

type ganttRow struct {
	name  string
	t     dag.ResourceType
	color lipgloss.Color
}

func ganttRows(g *dag.DAG, b *Binding, inv resource.Inventory) []ganttRow {
	counts := make(map[dag.ResourceType]int)
	for t, n := range b.Used {
		counts[t] = n
	}
	for t, n := range inv {
		counts[t] = max(counts[t], n)
	}
	for _, t := range g.Types() {
		if _, ok := counts[t]; !ok {
			counts[t] = 0
		}
	}

	types := make([]dag.ResourceType, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	slices.Sort(types)

	var rows []ganttRow
	for i, t := range types {
		color := typePalette[i%len(typePalette)]
		for u := range counts[t] {
			rows = append(rows, ganttRow{name: unitName(t, u), t: t, color: color})
		}
	}
	return rows
}

func unitName(t dag.ResourceType, unit int) string {
	return fmt.Sprintf("%s_%d", t, unit+1)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
