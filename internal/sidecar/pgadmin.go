// Package sidecar supervises the optional pgAdmin process used for browsing
// the RAG database. pgAdmin is a convenience, not a tracked service: if it
// is not installed the feature is disabled with a single notice and the
// panel carries on.
package sidecar

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chatstack/chatpanel/internal/config"
	"github.com/chatstack/chatpanel/internal/launcher"
	"github.com/chatstack/chatpanel/internal/models"
)

// defaultURL is assumed when pgAdmin never prints a usable address.
const defaultURL = "http://127.0.0.1:5050"

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// Manager runs pgAdmin and watches its output for the served URL.
type Manager struct {
	cfg    config.SidecarConfig
	grace  time.Duration
	logger *zap.Logger

	onStatus func(running bool, url string)
	onOutput func(line string)

	mu      sync.Mutex
	runner  *launcher.Runner
	url     string
	noticed bool
}

// NewManager creates a pgAdmin manager.
func NewManager(cfg config.SidecarConfig, grace time.Duration, logger *zap.Logger) *Manager {
	return &Manager{cfg: cfg, grace: grace, logger: logger}
}

// OnStatus sets the callback invoked when pgAdmin comes up (with its URL)
// or goes down.
func (m *Manager) OnStatus(fn func(running bool, url string)) { m.onStatus = fn }

// OnOutput sets the callback receiving pgAdmin's output lines and notices.
func (m *Manager) OnOutput(fn func(line string)) { m.onOutput = fn }

// URL returns the detected pgAdmin URL, or empty when it is not running.
func (m *Manager) URL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.url
}

// Running reports whether pgAdmin is currently up.
func (m *Manager) Running() bool {
	m.mu.Lock()
	r := m.runner
	m.mu.Unlock()
	return r != nil && r.Running()
}

// Start launches pgAdmin. A missing installation disables the feature: one
// notice line, no error escalation beyond the returned value.
func (m *Manager) Start() error {
	if !m.cfg.Enabled {
		return nil
	}

	m.mu.Lock()
	if m.runner != nil && m.runner.Running() {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	dir := config.ExpandHome(m.cfg.Dir)
	script := filepath.Join(dir, m.cfg.Command)
	if _, err := os.Stat(script); err != nil {
		m.notice(fmt.Sprintf("pgAdmin not found at %s; install it to browse the RAG database", script))
		return fmt.Errorf("pgadmin not installed: %s", script)
	}

	runner := launcher.NewRunner("pgadmin", m.cfg.Command, dir, m.grace, m.logger)
	runner.OnEvent(m.handle)

	m.mu.Lock()
	m.runner = runner
	m.url = ""
	m.mu.Unlock()

	return runner.Start()
}

// Stop applies the graceful-then-forceful stop to pgAdmin.
func (m *Manager) Stop() {
	m.mu.Lock()
	r := m.runner
	m.mu.Unlock()
	if r != nil {
		r.Stop()
	}
}

func (m *Manager) handle(ev models.LaunchEvent) {
	switch ev.Type {
	case models.LaunchOutput:
		if m.onOutput != nil {
			m.onOutput(ev.Line)
		}
		m.detectURL(ev.Line)
	case models.LaunchFinished:
		m.mu.Lock()
		m.url = ""
		m.mu.Unlock()
		if m.onStatus != nil {
			m.onStatus(false, "")
		}
	}
}

// detectURL looks for the served address in a startup line.
func (m *Manager) detectURL(line string) {
	lower := strings.ToLower(line)
	if !strings.Contains(line, "127.0.0.1") && !strings.Contains(lower, "localhost") {
		return
	}

	url := defaultURL
	if match := urlPattern.FindString(line); match != "" {
		url = strings.TrimRight(match, "/")
	}

	m.mu.Lock()
	first := m.url == ""
	m.url = url
	m.mu.Unlock()

	if first && m.onStatus != nil {
		m.onStatus(true, url)
	}
}

// notice reports a missing installation exactly once.
func (m *Manager) notice(message string) {
	m.mu.Lock()
	seen := m.noticed
	m.noticed = true
	m.mu.Unlock()
	if seen {
		return
	}
	m.logger.Warn(message)
	if m.onOutput != nil {
		m.onOutput(message)
	}
}
