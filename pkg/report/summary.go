package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/hlsched/pkg/dag"
	pkgio "github.com/matzehuels/hlsched/pkg/io"
	"github.com/matzehuels/hlsched/pkg/resource"
	"github.com/matzehuels/hlsched/pkg/sched"
)

// Summary condenses a scheduling run.
type Summary struct {
	Name          string                   `json:"name"`
	Operations    int                      `json:"operations"`
	Latency       int                      `json:"latency"`
	CriticalPath  int                      `json:"critical_path"`
	InitialTarget int                      `json:"initial_target"`
	Iterations    int                      `json:"iterations"`
	State         sched.State              `json:"state"`
	Limits        resource.Inventory       `json:"limits"`
	Used          map[dag.ResourceType]int `json:"used"`
	FUsUsed       int                      `json:"fus_used"`
	Power         float64                  `json:"power"`
	Warnings      []string                 `json:"warnings,omitempty"`
}

// NewSummary builds the summary of res. lib may be nil, in which case
// power is reported as zero.
func NewSummary(name string, g *dag.DAG, res *sched.Result, b *Binding, inv resource.Inventory, lib *resource.Library) Summary {
	s := Summary{
		Name:          name,
		Operations:    g.Operations(),
		Latency:       res.Latency,
		CriticalPath:  res.CriticalPath,
		InitialTarget: res.InitialTarget,
		Iterations:    len(res.Iterations),
		State:         res.State,
		Limits:        inv.Clone(),
		Used:          b.Used,
		Warnings:      res.Warnings,
	}
	for _, n := range b.Used {
		s.FUsUsed += n
	}
	if lib != nil {
		s.Power = lib.Power(b.Used, OpsByType(g))
	}
	return s
}

var (
	styleKey   = lipgloss.NewStyle().Foreground(colorGray).Width(16)
	styleValue = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	styleNum   = lipgloss.NewStyle().Foreground(colorHeader)
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

// Write prints the summary as aligned key/value lines.
func (s Summary) Write(w io.Writer) error {
	lines := []string{
		kv("Problem", styleValue.Render(s.Name)),
		kv("Operations", styleNum.Render(fmt.Sprint(s.Operations))),
		kv("Latency", styleNum.Render(fmt.Sprint(s.Latency))),
		kv("Critical path", styleNum.Render(fmt.Sprint(s.CriticalPath))),
		kv("Iterations", fmt.Sprintf("%s %s", styleNum.Render(fmt.Sprint(s.Iterations)), styleKey.UnsetWidth().Render("("+string(s.State)+")"))),
		kv("Units", styleValue.Render(s.units())),
	}
	if s.Power > 0 {
		lines = append(lines, kv("Power", styleNum.Render(fmt.Sprintf("%.2f", s.Power))))
	}
	for _, warn := range s.Warnings {
		lines = append(lines, styleWarn.Render("! "+warn))
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func (s Summary) units() string {
	types := make([]dag.ResourceType, 0, len(s.Used)+len(s.Limits))
	for t := range s.Used {
		types = append(types, t)
	}
	for t := range s.Limits {
		if _, ok := s.Used[t]; !ok {
			types = append(types, t)
		}
	}
	slices.Sort(types)

	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = fmt.Sprintf("%s %d/%d", t, s.Used[t], s.Limits[t])
	}
	return strings.Join(parts, "  ")
}

func kv(key, value string) string {
	return styleKey.Render(key) + value
}

// ResultFile assembles the text result of a run: one unit line per type
// with its limit, used count and library delay, and one line per node in
// graph order.
func ResultFile(name string, g *dag.DAG, latency int, starts map[string]int, b *Binding, inv resource.Inventory, lib *resource.Library) *pkgio.ResultFile {
	rf := &pkgio.ResultFile{Name: name, Latency: latency}

	delays := map[dag.ResourceType]int{}
	if lib != nil {
		delays = lib.Latencies()
	}
	types := g.Types()
	for _, t := range inv.Types() {
		if !slices.Contains(types, t) {
			types = append(types, t)
		}
	}
	slices.Sort(types)
	for _, t := range types {
		rf.Units = append(rf.Units, pkgio.UnitUsage{Type: t, Limit: inv.Units(t), Used: b.Used[t], Delay: delays[t]})
	}

	for _, n := range g.Nodes() {
		s, ok := starts[n.ID]
		if !ok {
			continue
		}
		rf.Ops = append(rf.Ops, pkgio.OpResult{ID: n.ID, Start: s, Unit: b.UnitOf(n.ID)})
	}
	return rf
}
