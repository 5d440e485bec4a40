package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/hlsched/pkg/pipeline"
	"github.com/matzehuels/hlsched/pkg/report"
	"github.com/matzehuels/hlsched/pkg/sched"
)

var (
	browserTabStyle    = lipgloss.NewStyle().Foreground(colorDim).Padding(0, 1)
	browserActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Padding(0, 1)
	browserDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
)

type browserView int

const (
	viewIterations browserView = iota
	viewGantt
	viewTable
)

var browserViews = []string{"Iterations", "Gantt", "Schedule"}

// BrowserModel is the bubbletea model of the interactive result browser:
// the controller's iterations, the Gantt chart and the schedule table of
// the final pass.
type BrowserModel struct {
	Name       string
	Iterations []sched.Iteration
	Latency    int
	State      sched.State

	Tab    browserView
	Cursor int
	Height int
	Offset int

	gantt string
	table string
}

// NewBrowserModel creates a browser for res.
func NewBrowserModel(res *pipeline.Result) BrowserModel {
	s := res.Schedule
	return BrowserModel{
		Name:       res.Problem.Name,
		Iterations: s.Iterations,
		Latency:    s.Latency,
		State:      s.State,
		Height:     15,
		gantt:      report.Gantt(res.Graph, s.Starts, s.Latency, res.Binding, report.GanttOptions{Inventory: res.Inventory}),
		table:      report.Table(res.Graph, s.Starts, res.Binding, s.Schedule),
	}
}

func (m BrowserModel) Init() tea.Cmd {
	return nil
}

func (m BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "right", "l":
			m.Tab = (m.Tab + 1) % browserView(len(browserViews))
		case "shift+tab", "left", "h":
			m.Tab = (m.Tab + browserView(len(browserViews)) - 1) % browserView(len(browserViews))
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Iterations)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-10, 5)
	}
	return m, nil
}

func (m BrowserModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Name))
	b.WriteString(browserDimStyle.Render(fmt.Sprintf("  latency %d · %s", m.Latency, m.State)))
	b.WriteString("\n\n")

	tabs := make([]string, len(browserViews))
	for i, name := range browserViews {
		if browserView(i) == m.Tab {
			tabs[i] = browserActiveStyle.Render(name)
		} else {
			tabs[i] = browserTabStyle.Render(name)
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n\n")

	switch m.Tab {
	case viewIterations:
		b.WriteString(m.iterationTable())
		b.WriteString("\n\n")
		b.WriteString(m.iterationDetail())
	case viewGantt:
		b.WriteString(m.gantt)
	case viewTable:
		b.WriteString(m.table)
	}

	b.WriteString("\n\n")
	b.WriteString(browserDimStyle.Render("⇥ switch view  ↑/↓ select iteration  q quit"))
	return b.String()
}

func (m BrowserModel) iterationTable() string {
	end := min(m.Offset+m.Height, len(m.Iterations))
	rows := make([][]string, 0, end-m.Offset)
	for i := m.Offset; i < end; i++ {
		it := m.Iterations[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{
			cursor, strconv.Itoa(it.Number), strconv.Itoa(it.Target), strconv.Itoa(it.Achieved), string(it.State),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "#", "Target", "Achieved", "State").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			style := lipgloss.NewStyle().Padding(0, 1)
			idx := m.Offset + row
			if idx == m.Cursor {
				style = style.Bold(true).Foreground(colorCyan)
			} else if idx < len(m.Iterations) && m.Iterations[idx].State.Terminal() {
				style = style.Foreground(colorGreen)
			}
			return style
		}).
		Render()
}

func (m BrowserModel) iterationDetail() string {
	if len(m.Iterations) == 0 {
		return browserDimStyle.Render("no iterations recorded")
	}
	it := m.Iterations[m.Cursor]
	var verdict string
	switch {
	case it.Achieved == it.Target:
		verdict = "met its target"
	case it.Achieved < it.Target:
		verdict = fmt.Sprintf("beat its target by %d", it.Target-it.Achieved)
	default:
		verdict = fmt.Sprintf("missed its target by %d", it.Achieved-it.Target)
	}
	return fmt.Sprintf("Pass %d %s; controller state %s",
		it.Number, verdict, StyleHighlight.Render(string(it.State)))
}

// runBrowser opens the browser on the terminal.
func runBrowser(res *pipeline.Result) error {
	_, err := tea.NewProgram(NewBrowserModel(res), tea.WithAltScreen()).Run()
	return err
}
