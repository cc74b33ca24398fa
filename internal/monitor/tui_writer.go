package monitor

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"geotification/internal/geofence"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// regionMsg announces a registered region.
type regionMsg struct{ event geofence.Event }

// transitionMsg flips a region's inside state.
type transitionMsg struct {
	event geofence.Event
	line  string
}

// positionMsg carries the latest accepted fix.
type positionMsg struct{ event geofence.Event }

const maxLogLines = 500

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	insideStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// TUIWriter renders geofence events using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. Quitting
// the TUI interrupts the process so the monitor shuts down with it.
func NewTUIWriter(session string) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(session), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// WriteEvent implements EventWriter.
func (w *TUIWriter) WriteEvent(e geofence.Event) error {
	ts := e.Timestamp.Format(time.RFC3339)
	switch e.Type {
	case geofence.EventRegionAdded:
		w.program.Send(regionMsg{event: e})
		w.program.Send(logMsg{line: fmt.Sprintf("%s[%s]%s %sREGION%s %s r=%.0fm",
			colorGray, ts, colorReset, colorCyan, colorReset, e.Identifier, e.RadiusM)})
	case geofence.EventEnter:
		w.program.Send(transitionMsg{event: e, line: fmt.Sprintf("%s[%s]%s %sENTER%s %s",
			colorGray, ts, colorReset, colorGreen, colorReset, e.Identifier)})
	case geofence.EventExit:
		w.program.Send(transitionMsg{event: e, line: fmt.Sprintf("%s[%s]%s %sEXIT%s %s",
			colorGray, ts, colorReset, colorRed, colorReset, e.Identifier)})
	case geofence.EventPositionChanged:
		w.program.Send(positionMsg{event: e})
	default:
		w.program.Send(logMsg{line: fmt.Sprintf("[%s] %s %s", ts, e.Type, e.Identifier)})
	}
	return nil
}

// WriteEvents outputs multiple events.
func (w *TUIWriter) WriteEvents(events []geofence.Event) error {
	for _, e := range events {
		_ = w.WriteEvent(e)
	}
	return nil
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	session    string
	table      table.Model
	vp         viewport.Model
	regions    []geofence.Event
	inside     map[string]bool
	logs       []string
	position   *geofence.Event
	enters     int
	exits      int
	wrap       bool
	autoscroll bool
	height     int
}

func newTUIModel(session string) tuiModel {
	cols := []table.Column{
		{Title: "Region", Width: 22},
		{Title: "Lat", Width: 11},
		{Title: "Lon", Width: 11},
		{Title: "Radius", Width: 8},
		{Title: "State", Width: 8},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(1))
	return tuiModel{
		session:    session,
		table:      t,
		vp:         viewport.New(0, 0),
		inside:     make(map[string]bool),
		autoscroll: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.vp.Width = msg.Width
		m.table.SetWidth(msg.Width)
		m.height = msg.Height
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
		default:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	case regionMsg:
		m.regions = append(m.regions, msg.event)
		m.refreshTable()
		m.updateViewportHeight()
	case transitionMsg:
		m.inside[msg.event.Identifier] = msg.event.Type == geofence.EventEnter
		if msg.event.Type == geofence.EventEnter {
			m.enters++
		} else {
			m.exits++
		}
		m.refreshTable()
		m.appendLog(msg.line)
	case positionMsg:
		e := msg.event
		m.position = &e
	case logMsg:
		m.appendLog(msg.line)
	}
	return m, nil
}

func (m *tuiModel) appendLog(line string) {
	m.logs = append(m.logs, line)
	if over := len(m.logs) - maxLogLines; over > 0 {
		m.logs = m.logs[over:]
	}
	m.refreshViewport()
}

func (m *tuiModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.regions))
	for _, r := range m.regions {
		state := "outside"
		if m.inside[r.Identifier] {
			state = "inside"
		}
		rows = append(rows, table.Row{
			r.Identifier,
			fmt.Sprintf("%.5f", r.Lat),
			fmt.Sprintf("%.5f", r.Lon),
			fmt.Sprintf("%.0fm", r.RadiusM),
			state,
		})
	}
	m.table.SetRows(rows)
	m.table.SetHeight(len(rows) + 1)
}

func (m *tuiModel) updateViewportHeight() {
	h := m.height - lipgloss.Height(m.renderHeader()) - lipgloss.Height(m.table.View()) - lipgloss.Height(m.renderBottom()) - 3
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	divider := strings.Repeat("─", m.vp.Width)
	return strings.Join([]string{
		m.renderHeader(),
		m.table.View(),
		divider,
		m.vp.View(),
		divider,
		m.renderBottom(),
	}, "\n")
}

func (m tuiModel) renderHeader() string {
	inside := 0
	for _, v := range m.inside {
		if v {
			inside++
		}
	}
	pos := mutedStyle.Render("no fix yet")
	if m.position != nil {
		pos = fmt.Sprintf("%.5f, %.5f", m.position.Lat, m.position.Lon)
	}
	return fmt.Sprintf("%s  %s\nposition %s  regions %d  %s  enter %d  exit %d",
		titleStyle.Render("geotification"), mutedStyle.Render(m.session),
		pos, len(m.regions), insideStyle.Render(fmt.Sprintf("inside %d", inside)), m.enters, m.exits)
}

func (m tuiModel) renderBottom() string {
	wrap, scroll := "off", "off"
	if m.wrap {
		wrap = "on"
	}
	if m.autoscroll {
		scroll = "on"
	}
	return mutedStyle.Render(fmt.Sprintf("q quit · w wrap (%s) · s autoscroll (%s) · ↑/↓ scroll", wrap, scroll))
}
