package setup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatstack/chatpanel/internal/config"
)

func TestRun_NonInteractive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	err := Run("test", Options{
		ChatURL:      "http://localhost:9090",
		LibreChatDir: "/opt/librechat",
		RAGDir:       "/opt/rag",
		Autostart:    "no",
		ConfigPath:   path,
		Input:        strings.NewReader(""),
	})
	require.NoError(t, err)

	cfg, err := config.LoadLayered(config.CLIOverrides{}, nil, path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9090", cfg.Panel.ChatURL)
	for _, ext := range cfg.Services.External {
		if ext.Name == "librechat" {
			assert.Equal(t, "/opt/librechat", ext.Dir)
		} else {
			assert.Equal(t, "/opt/rag", ext.Dir)
		}
	}
}

func TestRun_InteractiveDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	// Empty answers accept every default.
	err := Run("test", Options{
		ConfigPath: path,
		Input:      strings.NewReader("\n\n\n\n"),
	})
	require.NoError(t, err)

	cfg, err := config.LoadLayered(config.CLIOverrides{}, nil, path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Panel.ChatURL, cfg.Panel.ChatURL)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "systemd_units")
}

func TestRun_AutostartInstalled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	var installed string
	err := Run("test", Options{
		ChatURL:      "http://localhost:3080",
		LibreChatDir: "/opt/librechat",
		RAGDir:       "/opt/rag",
		Autostart:    "yes",
		ConfigPath:   path,
		Input:        strings.NewReader(""),
		InstallAutostart: func(execPath string) error {
			installed = execPath
			return nil
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, installed)
}
