package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/bohan-zhang/sawyer/pkg/sawyer"
	"github.com/bohan-zhang/sawyer/pkg/watch"
)

type MonitorCommand struct {
	Config   string `long:"config" default:"sawyer.json" description:"Robot config file"`
	LogLevel string `long:"log-level" default:"warn" description:"Log level"`
	Hz       int    `long:"hz" default:"10" description:"Polling frequency"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Joint colors - distinct colors for each joint
var jointColors = map[sawyer.JointName]string{
	sawyer.RightJ0: "196", // red
	sawyer.RightJ1: "208", // orange
	sawyer.RightJ2: "226", // yellow
	sawyer.RightJ3: "46",  // green
	sawyer.RightJ4: "51",  // cyan
	sawyer.RightJ5: "201", // magenta
	sawyer.RightJ6: "99",  // purple
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	unsafeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

type monitorModel struct {
	watcher  *watch.Watcher
	chart    *streamlinechart.Model
	width    int
	height   int
	logs     []string
	quitting bool
	unsafe   bool
}

func (m *monitorModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the watcher
type stateMsg watch.State
type logMsg string
type watchErrMsg struct{ err error }

func waitForState(w *watch.Watcher) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-w.States())
	}
}

func waitForLog(w *watch.Watcher) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-w.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *monitorModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *monitorModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialMonitorModel(w *watch.Watcher) monitorModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-3.2, 3.2),
	)

	// Set up data set styles for each joint
	for _, name := range sawyer.ArmJoints() {
		color := jointColors[name]
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		chart.SetDataSetStyles(string(name), runes.ThinLineStyle, style)
	}

	return monitorModel{
		watcher: w,
		chart:   &chart,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.watcher),
		waitForLog(m.watcher),
	)
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		state := watch.State(msg)
		if state.Angles != nil {
			for name, pos := range state.Angles {
				m.chart.PushDataSet(string(name), pos)
			}
			m.chart.DrawAll()
			m.unsafe = !state.Safe
		}
		return m, waitForState(m.watcher)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.watcher)

	case watchErrMsg:
		m.addLog(fmt.Sprintf("Watcher stopped: %v", msg.err))
		return m, nil
	}

	return m, nil
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Monitor stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("Sawyer Monitor"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.watcher.Hz()))
	if m.unsafe {
		sb.WriteString("  " + unsafeStyle.Render("STATE INVALID"))
	}
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9"))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	var items []string
	for _, name := range sawyer.ArmJoints() {
		color := jointColors[name]
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
		item := colorStyle.Render("━━") + " " + string(name)
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}

func (c *MonitorCommand) Execute(args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	robot, conn, err := connectRobot(ctx, c.Config, c.LogLevel)
	if err != nil {
		return err
	}
	defer conn.Close()

	watcher := watch.New(robot, c.Hz)

	p := tea.NewProgram(initialMonitorModel(watcher), tea.WithAltScreen())

	// The alt screen belongs to bubbletea while the program runs, so
	// watcher failures are delivered as messages, never printed.
	go func() {
		if err := watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.Send(watchErrMsg{err})
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run monitor: %w", err)
	}
	return nil
}
