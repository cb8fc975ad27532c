package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/plife/internal/clock"
	"github.com/san-kum/plife/internal/experiment"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

// typeColors cycles for worlds with more types than entries.
var typeColors = []lipgloss.Style{
	lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("82")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("213")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
}

const (
	refreshInterval = 33 * time.Millisecond
	historyLen      = 120
	countStep       = 50
)

// Sim is what the dashboard drives. *experiment.Experiment satisfies it.
// Every method must be safe to call from the UI goroutine while the loop
// worker is running.
type Sim interface {
	State() *experiment.State
	Stats() clock.Stats
	Paused() bool
	TogglePause() bool
	RegenerateMatrix()
	Respawn()
	AddParticles(delta int)
	SetTypes(n int)
}

type model struct {
	sim     Sim
	title   string
	history []float64
	stats   clock.Stats
	types   int

	width  int
	height int
}

// New returns the dashboard model. title is shown in the status line.
func New(sim Sim, title string) tea.Model {
	return model{
		sim:     sim,
		title:   title,
		history: make([]float64, 0, historyLen),
		types:   sim.State().Types,
		width:   80,
		height:  30,
	}
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd { return tick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		m.stats = m.sim.Stats()
		m.history = append(m.history, m.stats.AverageMillis)
		if len(m.history) > historyLen {
			m.history = m.history[1:]
		}
		return m, tick()
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case " ":
		m.sim.TogglePause()
	case "r":
		m.sim.RegenerateMatrix()
	case "p":
		m.sim.Respawn()
	case "+", "=":
		m.sim.AddParticles(countStep)
	case "-", "_":
		m.sim.AddParticles(-countStep)
	case "t":
		m.types++
		m.sim.SetTypes(m.types)
	case "T":
		if m.types > 1 {
			m.types--
			m.sim.SetTypes(m.types)
		}
	}
	return m, nil
}

func (m model) View() string {
	st := m.sim.State()
	cw := m.width - 6
	ch := m.height - 16
	if cw < 20 {
		cw = 20
	}
	if ch < 8 {
		ch = 8
	}

	var b strings.Builder

	statusIcon := green.Render("●")
	statusText := green.Render("running")
	if m.sim.Paused() {
		statusIcon = yellow.Render("○")
		statusText = yellow.Render("paused")
	}
	b.WriteString(fmt.Sprintf("\n   %s %s  %s\n", statusIcon, cyan.Render(m.title), statusText))
	b.WriteString(fmt.Sprintf("   %s %s  %s %s  %s %s  %s %s\n",
		dim.Render("particles"), white.Render(fmt.Sprint(len(st.Particles))),
		dim.Render("types"), white.Render(fmt.Sprint(st.Types)),
		dim.Render("steps"), white.Render(fmt.Sprint(st.Steps)),
		dim.Render("t"), white.Render(fmt.Sprintf("%.1fs", st.Time))))
	b.WriteString(fmt.Sprintf("   %s %s  %s %s  %s %s\n\n",
		dim.Render("fps"), white.Render(fmt.Sprintf("%.0f", m.stats.AverageRate)),
		dim.Render("frame"), white.Render(fmt.Sprintf("%.2f±%.2fms", m.stats.AverageMillis, m.stats.StdDevMillis)),
		dim.Render("energy"), white.Render(fmt.Sprintf("%.4f", st.Energy))))

	b.WriteString(dimmer.Render("   ┌"+strings.Repeat("─", cw)+"┐") + "\n")
	for _, row := range renderCanvas(st, cw, ch) {
		b.WriteString(dimmer.Render("   │") + row + dimmer.Render("│") + "\n")
	}
	b.WriteString(dimmer.Render("   └"+strings.Repeat("─", cw)+"┘") + "\n")

	if len(m.history) > 1 {
		graph := asciigraph.Plot(m.history,
			asciigraph.Height(4),
			asciigraph.Width(cw-10),
			asciigraph.Caption("frame ms"))
		b.WriteString(indent(graph, "   ") + "\n")
	}

	b.WriteString("\n" + dim.Render("   space pause  r matrix  p respawn  +/- particles  t/T types  q quit") + "\n")
	return b.String()
}

// renderCanvas maps [-1, 1]² onto a w×h character grid. A cell shows the type
// of the last particle drawn into it.
func renderCanvas(st *experiment.State, w, h int) []string {
	cells := make([][]int, h)
	for i := range cells {
		cells[i] = make([]int, w)
		for j := range cells[i] {
			cells[i][j] = -1
		}
	}
	for _, p := range st.Particles {
		x := cell(p.Pos.X, w)
		y := cell(p.Pos.Y, h)
		cells[y][x] = p.Type
	}

	rows := make([]string, h)
	for i, line := range cells {
		var sb strings.Builder
		for _, typ := range line {
			if typ < 0 {
				sb.WriteByte(' ')
				continue
			}
			sb.WriteString(typeColors[typ%len(typeColors)].Render("•"))
		}
		rows[i] = sb.String()
	}
	return rows
}

func cell(v float64, n int) int {
	i := int(math.Floor((v + 1) / 2 * float64(n)))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// Run shows the dashboard until the user quits. The caller starts and stops
// the loop.
func Run(sim Sim, title string) error {
	p := tea.NewProgram(New(sim, title), tea.WithAltScreen())
	_, err := p.Run()
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
