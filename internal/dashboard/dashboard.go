// Package dashboard renders the control panel TUI: host header, service
// cards, resource gauges with history sparklines, and a scrollable log pane.
// The model only consumes messages; it never calls into the pollers.
package dashboard

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/viewport"
	"go.uber.org/zap"

	"github.com/chatstack/chatpanel/internal/config"
	"github.com/chatstack/chatpanel/internal/models"
)

// maxLogLines bounds the in-memory log pane history.
const maxLogLines = 500

// actionTimeout bounds one start/stop action issued from the keyboard.
const actionTimeout = 2 * time.Minute

// Controller is the subset of the launcher the dashboard drives.
type Controller interface {
	StartSystemd(ctx context.Context) error
	StartEverything(ctx context.Context) error
	StopAll(ctx context.Context) error
}

// Messages delivered by the bus pump.
type (
	// ResourceMsg carries a new resource snapshot.
	ResourceMsg models.ResourceSnapshot
	// ServiceMsg carries one reconciled service record.
	ServiceMsg models.ServiceRecord
	// LogsMsg carries a fetched journal chunk.
	LogsMsg models.LogChunk
	// LaunchMsg carries a launcher lifecycle event.
	LaunchMsg models.LaunchEvent
)

// actionDoneMsg reports completion of a keyboard-initiated action.
type actionDoneMsg struct {
	name string
	err  error
}

// Model is the bubbletea model for the panel.
type Model struct {
	cfg    *config.Config
	ctrl   Controller
	logger *zap.Logger
	host   models.HostInfo

	// openURL is swappable in tests; defaults to xdg-open.
	openURL func(url string) error

	order    []string
	records  map[string]models.ServiceRecord
	snapshot models.ResourceSnapshot

	inFlight map[string]bool
	busy     bool
	status   string

	logLines  []string
	logs      viewport.Model
	focusLogs bool

	width  int
	height int
	styles styles
}

// New builds the dashboard model. Service cards follow config order, units
// first, then the external processes.
func New(cfg *config.Config, ctrl Controller, host models.HostInfo, logger *zap.Logger) *Model {
	order := make([]string, 0, len(cfg.Services.SystemdUnits)+len(cfg.Services.External))
	order = append(order, cfg.Services.SystemdUnits...)
	for _, p := range cfg.Services.External {
		order = append(order, p.Name)
	}

	vp := viewport.New(80, 10)

	return &Model{
		cfg:      cfg,
		ctrl:     ctrl,
		logger:   logger,
		host:     host,
		openURL:  openBrowser,
		order:    order,
		records:  make(map[string]models.ServiceRecord),
		inFlight: make(map[string]bool),
		logs:     vp,
		styles:   newStyles(),
	}
}

// Init implements tea.Model.
func (*Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logs.Width = max(20, msg.Width-4)
		m.logs.Height = max(4, msg.Height-m.fixedRows())
		return m, nil

	case ResourceMsg:
		m.snapshot = models.ResourceSnapshot(msg)
		return m, nil

	case ServiceMsg:
		m.records[msg.Name] = models.ServiceRecord(msg)
		return m, nil

	case LogsMsg:
		m.appendLog(fmt.Sprintf("--- %s journal ---", msg.Service))
		for _, line := range msg.Lines {
			m.appendLog(line)
		}
		return m, nil

	case LaunchMsg:
		m.handleLaunch(models.LaunchEvent(msg))
		return m, nil

	case actionDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.name, msg.err)
		} else {
			m.status = msg.name + " done"
		}
		return m, nil
	}

	if m.focusLogs {
		var cmd tea.Cmd
		m.logs, cmd = m.logs.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit

	case "tab":
		m.focusLogs = !m.focusLogs
		return m, nil

	case "s":
		if m.startBlocked() {
			return m, nil
		}
		m.busy = true
		m.status = "starting systemd services..."
		return m, m.actionCmd("start systemd", m.ctrl.StartSystemd)

	case "e":
		if m.startBlocked() {
			return m, nil
		}
		m.busy = true
		m.status = "starting everything..."
		return m, m.actionCmd("start everything", m.ctrl.StartEverything)

	case "x":
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.status = "stopping all services..."
		return m, m.actionCmd("stop all", m.ctrl.StopAll)

	case "o":
		url := m.cfg.Panel.ChatURL
		if err := m.openURL(url); err != nil {
			m.status = fmt.Sprintf("open %s failed: %v", url, err)
		} else {
			m.status = "opened " + url
		}
		return m, nil
	}

	if m.focusLogs {
		var cmd tea.Cmd
		m.logs, cmd = m.logs.Update(msg)
		return m, cmd
	}
	return m, nil
}

// startBlocked reports whether start actions are currently refused: a
// keyboard action is running or a launch is still in flight.
func (m *Model) startBlocked() bool {
	if m.busy {
		return true
	}
	for _, v := range m.inFlight {
		if v {
			return true
		}
	}
	return false
}

func (m *Model) handleLaunch(ev models.LaunchEvent) {
	switch ev.Type {
	case models.LaunchStarted:
		m.inFlight[ev.Service] = true
		m.appendLog(fmt.Sprintf("[%s] started", ev.Service))
	case models.LaunchFinished:
		delete(m.inFlight, ev.Service)
		m.appendLog(fmt.Sprintf("[%s] exited with code %d", ev.Service, ev.ExitCode))
	case models.LaunchOutput:
		m.appendLog(fmt.Sprintf("[%s] %s", ev.Service, ev.Line))
	case models.LaunchNotice:
		m.status = ev.Line
		m.appendLog(ev.Line)
	}
}

func (m *Model) appendLog(line string) {
	m.logLines = append(m.logLines, line)
	if len(m.logLines) > maxLogLines {
		m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
	}
	m.logs.SetContent(joinLines(m.logLines))
	if !m.focusLogs {
		m.logs.GotoBottom()
	}
}

func (m *Model) actionCmd(name string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{name: name, err: fn(ctx)}
	}
}

// openBrowser hands the URL to the desktop.
func openBrowser(url string) error {
	return exec.Command("xdg-open", url).Start()
}
