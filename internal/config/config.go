// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: CLI flags > environment variables > config file > embedded > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "1s", "2s", "5m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all panel configuration.
type Config struct {
	Monitor  MonitorConfig  `yaml:"monitor"`
	Services ServicesConfig `yaml:"services"`
	Panel    PanelConfig    `yaml:"panel"`
	LogStore LogStoreConfig `yaml:"logstore"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// MonitorConfig holds poller intervals and history sizing.
type MonitorConfig struct {
	SampleInterval    Duration `yaml:"sample_interval"`
	ReconcileInterval Duration `yaml:"reconcile_interval"`
	QueryTimeout      Duration `yaml:"query_timeout"`
	HistorySize       int      `yaml:"history_size"`
	JournalLines      int      `yaml:"journal_lines"`
}

// ExternalProcess describes a panel-launched process identified by the TCP
// port it listens on plus a command-line marker that disambiguates it from
// unrelated processes bound to the same port.
type ExternalProcess struct {
	Name    string `yaml:"name"`
	Port    uint32 `yaml:"port"`
	Marker  string `yaml:"marker"`
	Dir     string `yaml:"dir"`     // working directory; "~" expands to $HOME
	Command string `yaml:"command"` // run via bash -lc
}

// ServicesConfig holds the fixed tracked-service set.
type ServicesConfig struct {
	SystemdUnits []string          `yaml:"systemd_units"`
	External     []ExternalProcess `yaml:"external"`
}

// PanelConfig holds dashboard preferences.
type PanelConfig struct {
	ChatURL   string        `yaml:"chat_url"`
	StopGrace Duration      `yaml:"stop_grace"`
	PgAdmin   SidecarConfig `yaml:"pgadmin"`
}

// SidecarConfig describes the optional pgAdmin side process.
type SidecarConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Command string `yaml:"command"`
}

// LogStoreConfig holds on-disk log persistence settings.
type LogStoreConfig struct {
	Dir       string `yaml:"dir"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration. The tracked-service set
// mirrors a standard LibreChat deployment: four systemd units plus the two
// manually launched backends.
func DefaultConfig() *Config {
	return &Config{
		Monitor: MonitorConfig{
			SampleInterval:    Duration{1 * time.Second},
			ReconcileInterval: Duration{2 * time.Second},
			QueryTimeout:      Duration{2 * time.Second},
			HistorySize:       60,
			JournalLines:      10,
		},
		Services: ServicesConfig{
			SystemdUnits: []string{"mongodb", "postgresql", "meilisearch", "ollama"},
			External: []ExternalProcess{
				{
					Name:    "librechat",
					Port:    3080,
					Marker:  "node",
					Dir:     "~/.local/src/LibreChat",
					Command: "source ~/.nvm/nvm.sh && npm run backend",
				},
				{
					Name:    "rag_api",
					Port:    8000,
					Marker:  "uvicorn",
					Dir:     "~/.local/src/rag_api",
					Command: "source venv/bin/activate && uvicorn main:app --host 0.0.0.0 --port 8000",
				},
			},
		},
		Panel: PanelConfig{
			ChatURL:   "http://localhost:3080",
			StopGrace: Duration{5 * time.Second},
			PgAdmin: SidecarConfig{
				Enabled: true,
				Dir:     "~/.local/src/pgadmin",
				Command: "bin/pgadmin4",
			},
		},
		LogStore: LogStoreConfig{
			Dir:       "~/.local/state/chatpanel/logs",
			MaxSizeMB: 20,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// CLIOverrides holds values from command-line flags.
// Empty strings are treated as "not set" and skipped.
type CLIOverrides struct {
	ChatURL  string
	LogLevel string
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > external YAML file > embedded bytes > defaults.
//
// An optional configPath argument controls external-file discovery:
//   - omitted        → auto-discover via Locate()
//   - explicit value → use that path ("" means no external file)
func LoadLayered(cli CLIOverrides, embedded []byte, configPath ...string) (*Config, error) {
	cfg := DefaultConfig()

	// Layer 1: embedded config (lowest priority data layer)
	if len(embedded) > 0 {
		if err := yaml.Unmarshal(embedded, cfg); err != nil {
			return nil, fmt.Errorf("parsing embedded config: %w", err)
		}
	}

	// Layer 2: external YAML file
	var filePath string
	if len(configPath) > 0 {
		filePath = configPath[0]
	} else {
		filePath = Locate()
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
			}
		}
	}

	// Layer 3: environment variables
	applyEnvOverrides(cfg)

	// Layer 4: CLI flags (highest priority)
	if cli.ChatURL != "" {
		cfg.Panel.ChatURL = cli.ChatURL
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}

	return cfg, nil
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv("CHATPANEL_CHAT_URL"); url != "" {
		cfg.Panel.ChatURL = url
	}
	if level := os.Getenv("CHATPANEL_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if dir := os.Getenv("CHATPANEL_LOG_DIR"); dir != "" {
		cfg.LogStore.Dir = dir
	}
}

// Validate checks that the configuration is usable: all tracked services
// must be named, external processes need a port and a marker, and the
// history size must be positive.
func (c *Config) Validate() error {
	if c.Monitor.HistorySize <= 0 {
		return fmt.Errorf("monitor history size must be positive")
	}
	if c.Monitor.SampleInterval.Duration <= 0 || c.Monitor.ReconcileInterval.Duration <= 0 {
		return fmt.Errorf("monitor intervals must be positive")
	}
	for _, u := range c.Services.SystemdUnits {
		if u == "" {
			return fmt.Errorf("systemd unit name must not be empty")
		}
	}
	for _, e := range c.Services.External {
		if e.Name == "" {
			return fmt.Errorf("external process name must not be empty")
		}
		if e.Port == 0 {
			return fmt.Errorf("external process %s: port is required", e.Name)
		}
		if e.Marker == "" {
			return fmt.Errorf("external process %s: command-line marker is required", e.Name)
		}
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || (len(path) >= 2 && path[0] == '~' && path[1] == '/') {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
