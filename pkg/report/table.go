package report

import (
	"cmp"
	"math"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/sched"
)

// Table lists the scheduled operations ordered by start cycle: type,
// latency, start and end cycle, bound unit and, when detail is non-nil,
// the mobility and priority of the final pass. Anchors are omitted.
func Table(g *dag.DAG, starts map[string]int, b *Binding, detail *sched.Schedule) string {
	type row struct {
		idx   int
		start int
	}
	var order []row
	for i, n := range g.Nodes() {
		if n.IsAnchor() {
			continue
		}
		s, ok := starts[n.ID]
		if !ok {
			s = -1
		}
		order = append(order, row{i, s})
	}
	slices.SortFunc(order, func(a, b row) int {
		if c := cmp.Compare(a.start, b.start); c != 0 {
			return c
		}
		return cmp.Compare(a.idx, b.idx)
	})

	headers := []string{"Op", "Type", "Lat", "Start", "End", "Unit"}
	if detail != nil {
		headers = append(headers, "Mobility", "Priority")
	}

	rows := make([][]string, 0, len(order))
	for _, r := range order {
		n := g.At(r.idx)
		cells := []string{n.ID, string(n.Type), strconv.Itoa(n.Latency), "-", "-", "-"}
		if r.start >= 0 {
			cells[3] = strconv.Itoa(r.start)
			cells[4] = strconv.Itoa(r.start + max(n.Latency, 1) - 1)
		}
		if u := b.UnitOf(n.ID); u >= 0 {
			cells[5] = unitName(n.Type, u)
		}
		if detail != nil {
			cells = append(cells, mobility(detail, r.idx), priority(detail, r.idx))
		}
		rows = append(rows, cells)
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})
	return t.Render()
}

func mobility(s *sched.Schedule, i int) string {
	if s.Horizon == nil || i >= len(s.Horizon.Mobility) {
		return "-"
	}
	return strconv.Itoa(s.Horizon.Mobility[i])
}

func priority(s *sched.Schedule, i int) string {
	if i >= len(s.Priority) {
		return "-"
	}
	p := s.Priority[i]
	if math.IsInf(p, 1) {
		return "∞"
	}
	return strconv.FormatFloat(p, 'f', 4, 64)
}
