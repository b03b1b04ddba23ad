package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadLayered_CLIOverridesEverything(t *testing.T) {
	embedded := []byte("panel:\n  chat_url: \"http://embedded:3080\"\nlogging:\n  level: \"warn\"")
	t.Setenv("CHATPANEL_CHAT_URL", "http://env:3080")
	cli := CLIOverrides{ChatURL: "http://cli:3080", LogLevel: "debug"}

	cfg, err := LoadLayered(cli, embedded, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Panel.ChatURL != "http://cli:3080" {
		t.Errorf("ChatURL = %q, want CLI override", cfg.Panel.ChatURL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want CLI override", cfg.Logging.Level)
	}
}

func TestLoadLayered_EnvOverridesEmbed(t *testing.T) {
	embedded := []byte("panel:\n  chat_url: \"http://embedded:3080\"")
	t.Setenv("CHATPANEL_CHAT_URL", "http://env:3080")

	cfg, err := LoadLayered(CLIOverrides{}, embedded, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Panel.ChatURL != "http://env:3080" {
		t.Errorf("ChatURL = %q, want env override", cfg.Panel.ChatURL)
	}
}

func TestLoadLayered_DefaultsWhenEmpty(t *testing.T) {
	cfg, err := LoadLayered(CLIOverrides{}, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Monitor.SampleInterval.Duration.Seconds() != 1 {
		t.Errorf("SampleInterval = %v, want 1s default", cfg.Monitor.SampleInterval.Duration)
	}
	if cfg.Monitor.ReconcileInterval.Duration.Seconds() != 2 {
		t.Errorf("ReconcileInterval = %v, want 2s default", cfg.Monitor.ReconcileInterval.Duration)
	}
	if cfg.Monitor.HistorySize != 60 {
		t.Errorf("HistorySize = %d, want 60 default", cfg.Monitor.HistorySize)
	}
	if len(cfg.Services.SystemdUnits) != 4 {
		t.Errorf("SystemdUnits = %v, want 4 default units", cfg.Services.SystemdUnits)
	}
	if len(cfg.Services.External) != 2 {
		t.Errorf("External = %v, want 2 default processes", cfg.Services.External)
	}
}

func TestLoadLayered_ExternalFileOverridesEmbed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("monitor:\n  journal_lines: 25"), 0640); err != nil {
		t.Fatal(err)
	}
	embedded := []byte("monitor:\n  journal_lines: 5")

	cfg, err := LoadLayered(CLIOverrides{}, embedded, path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Monitor.JournalLines != 25 {
		t.Errorf("JournalLines = %d, want file override 25", cfg.Monitor.JournalLines)
	}
}

func TestValidate_RejectsMarkerlessExternal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Services.External[0].Marker = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for missing marker")
	}
}

func TestValidate_RejectsZeroPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Services.External[1].Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for zero port")
	}
}

func TestWriteConfig_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Panel.ChatURL = "http://test:3080"

	if err := WriteConfig(cfg, path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("config file is empty")
	}
}
