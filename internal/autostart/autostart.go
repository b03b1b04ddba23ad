// Package autostart installs the panel as an XDG desktop autostart entry,
// so it comes up with the user's session. This is a per-user desktop entry,
// not a systemd unit: the panel is an interactive application, and the
// services it manages have their own units.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const entryName = "chatpanel.desktop"

// entryTemplate is the desktop entry written during installation. The
// placeholder {execPath} is replaced with the actual binary path.
const entryTemplate = `[Desktop Entry]
Type=Application
Name=LibreChat Control Panel
Comment=Service control panel for the local LibreChat stack
Exec={execPath} run
Terminal=true
X-GNOME-Autostart-enabled=true
`

// Manager installs and removes the login autostart entry.
type Manager struct {
	dir string
}

// New returns a Manager writing under the user's XDG autostart directory.
func New() (*Manager, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolving config directory: %w", err)
	}
	return &Manager{dir: filepath.Join(base, "autostart")}, nil
}

// NewAt returns a Manager writing entries under dir.
func NewAt(dir string) *Manager {
	return &Manager{dir: dir}
}

// EntryPath returns the path of the managed desktop entry.
func (m *Manager) EntryPath() string {
	return filepath.Join(m.dir, entryName)
}

// IsInstalled checks whether the desktop entry exists.
func (m *Manager) IsInstalled() (bool, error) {
	_, err := os.Stat(m.EntryPath())
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking desktop entry: %w", err)
	}
	return true, nil
}

// Install writes the desktop entry pointing at execPath.
func (m *Manager) Install(execPath string) error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("creating autostart directory: %w", err)
	}

	entry := strings.ReplaceAll(entryTemplate, "{execPath}", execPath)
	if err := os.WriteFile(m.EntryPath(), []byte(entry), 0644); err != nil {
		return fmt.Errorf("writing desktop entry: %w", err)
	}
	return nil
}

// Uninstall removes the desktop entry. Removing an absent entry is not an
// error.
func (m *Manager) Uninstall() error {
	if err := os.Remove(m.EntryPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing desktop entry: %w", err)
	}
	return nil
}
