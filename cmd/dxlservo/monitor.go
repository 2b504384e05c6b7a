package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/dxlservo/pkg/monitor"
	"github.com/gwillem/dxlservo/pkg/servo"
	"github.com/gwillem/dxlservo/pkg/telemetry"
)

type MonitorCommand struct {
	Hz     int    `long:"hz" default:"20" description:"Polling frequency"`
	Record string `short:"r" long:"record" description:"Append readings to this CBOR file"`
	Hold   bool   `long:"hold" description:"Enable torque while monitoring"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Joint colors, assigned in config order
var jointColors = []string{"196", "208", "226", "46", "51", "201", "99", "255"}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type monitorModel struct {
	ctrl      *monitor.Controller
	chart     *streamlinechart.Model
	joints    []string
	width     int      // terminal width
	height    int      // terminal height
	logs      []string // last N log messages
	latest    monitor.State
	recording string
	quitting  bool
}

func (m *monitorModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg monitor.State
type logMsg string

func waitForState(ctrl *monitor.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *monitor.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *monitorModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize-1, 10)
	return width, height
}

func (m *monitorModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func jointColor(i int) string {
	return jointColors[i%len(jointColors)]
}

func initialMonitorModel(ctrl *monitor.Controller, joints []string, recording string) monitorModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-100, 100),
	)
	for i, name := range joints {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColor(i)))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}
	return monitorModel{
		ctrl:      ctrl,
		chart:     &chart,
		joints:    joints,
		recording: recording,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
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
		state := monitor.State(msg)
		for name, pos := range state.Positions() {
			m.chart.PushDataSet(name, pos)
		}
		m.chart.DrawAll()
		m.latest = state
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Monitoring stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("dxlservo monitor"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.ctrl.Hz()))
	if m.recording != "" {
		sb.WriteString(statusStyle.Render("  recording " + m.recording))
	}
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend with latest readings
	sb.WriteString(m.renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20)).
		Foreground(lipgloss.Color("9")) // bright red

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

func (m monitorModel) renderLegend() string {
	readings := make(map[string]monitor.JointState, len(m.latest.Joints))
	for _, js := range m.latest.Joints {
		readings[js.Name] = js
	}

	var items []string
	for i, name := range m.joints {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColor(i))).Bold(true)
		item := colorStyle.Render("━━") + " " + name
		if js, ok := readings[name]; ok {
			if js.Err != nil {
				item += errorStyle.Render(" err")
			} else {
				item += statusStyle.Render(fmt.Sprintf(" %.1f° %d°C", js.Snapshot.Angle, js.Snapshot.Temperature))
			}
		}
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}

func (c *MonitorCommand) Execute(args []string) error {
	var ctrl *monitor.Controller
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, err := openRig(ctx, func(n servo.Notice) {
		if ctrl != nil {
			ctrl.Notice(n)
		}
	})
	if err != nil {
		return err
	}

	var rec *telemetry.Recorder
	if c.Record != "" {
		if rec, err = telemetry.NewRecorder(c.Record); err != nil {
			return fmt.Errorf("open recording: %w", err)
		}
		defer rec.Close()
	}

	ctrl, err = monitor.NewController(monitor.Config{
		Rig:      r,
		Hz:       c.Hz,
		Hold:     c.Hold,
		Recorder: rec,
	})
	if err != nil {
		log.Fatalf("Failed to create controller: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ctrl.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Controller error: %v", err)
		}
	}()

	var names []string
	for _, j := range r.Joints() {
		names = append(names, j.Name)
	}
	recording := ""
	if rec != nil {
		recording = rec.ID().String()
	}

	p := tea.NewProgram(initialMonitorModel(ctrl, names, recording), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}

	cancel()
	<-done
	return r.Close(context.Background())
}
