package autostart

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_InstallUninstall(t *testing.T) {
	m := NewAt(t.TempDir())

	installed, err := m.IsInstalled()
	require.NoError(t, err)
	assert.False(t, installed)

	require.NoError(t, m.Install("/usr/local/bin/chatpanel"))

	installed, err = m.IsInstalled()
	require.NoError(t, err)
	assert.True(t, installed)

	data, err := os.ReadFile(m.EntryPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "Exec=/usr/local/bin/chatpanel run")
	assert.Contains(t, string(data), "[Desktop Entry]")

	require.NoError(t, m.Uninstall())
	installed, err = m.IsInstalled()
	require.NoError(t, err)
	assert.False(t, installed)
}

func TestManager_UninstallAbsentEntry(t *testing.T) {
	m := NewAt(t.TempDir())
	assert.NoError(t, m.Uninstall())
}

func TestManager_InstallCreatesDirectory(t *testing.T) {
	dir := t.TempDir() + "/nested/autostart"
	m := NewAt(dir)
	require.NoError(t, m.Install("/usr/bin/chatpanel"))

	installed, err := m.IsInstalled()
	require.NoError(t, err)
	assert.True(t, installed)
}
