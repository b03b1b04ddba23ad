//go:build linux || darwin

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	return []string{
		UserConfigPath(),
		"/etc/chatpanel/config.yaml",
	}
}

// UserConfigPath is where setup writes the per-user configuration.
func UserConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "chatpanel", "config.yaml")
}
