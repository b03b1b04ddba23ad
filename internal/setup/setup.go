// Package setup implements the first-run wizard. It asks where LibreChat
// and the RAG API live, writes the per-user config, and optionally installs
// the login autostart entry.
package setup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chatstack/chatpanel/internal/autostart"
	"github.com/chatstack/chatpanel/internal/config"
)

// Options holds the CLI flags passed to `chatpanel setup`. Empty values are
// prompted for interactively.
type Options struct {
	ChatURL      string
	LibreChatDir string
	RAGDir       string
	Autostart    string // "yes", "no", or "" (interactive)

	// ConfigPath overrides the write target; tests use it.
	ConfigPath string
	// Input overrides stdin; tests use it.
	Input io.Reader
	// InstallAutostart overrides the desktop-entry installer; tests use it.
	InstallAutostart func(execPath string) error
}

// Run executes the setup wizard. If all Options are provided it runs
// non-interactively.
func Run(version string, opts Options) error {
	fmt.Printf("\nchatpanel setup %s\n", version)
	fmt.Println(strings.Repeat("─", 30))
	fmt.Println()

	in := opts.Input
	if in == nil {
		in = os.Stdin
	}
	reader := bufio.NewReader(in)

	cfg := config.DefaultConfig()

	url, err := resolveValue(opts.ChatURL, "LibreChat URL", cfg.Panel.ChatURL, reader)
	if err != nil {
		return err
	}
	cfg.Panel.ChatURL = url

	for i := range cfg.Services.External {
		ext := &cfg.Services.External[i]
		label := fmt.Sprintf("%s directory", ext.Name)
		dir := opts.LibreChatDir
		if ext.Name != "librechat" {
			dir = opts.RAGDir
		}
		resolved, err := resolveValue(dir, label, ext.Dir, reader)
		if err != nil {
			return err
		}
		ext.Dir = resolved
	}

	path := opts.ConfigPath
	if path == "" {
		path = config.UserConfigPath()
	}
	if err := config.WriteConfig(cfg, path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Printf("  ✓ Written config → %s\n", path)

	enable, err := resolveValue(opts.Autostart, "Start panel at login? (yes/no)", "no", reader)
	if err != nil {
		return err
	}
	if strings.HasPrefix(strings.ToLower(enable), "y") {
		install := opts.InstallAutostart
		if install == nil {
			mgr, err := autostart.New()
			if err != nil {
				return err
			}
			install = mgr.Install
		}
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolving executable path: %w", err)
		}
		if err := install(exe); err != nil {
			return fmt.Errorf("installing autostart entry: %w", err)
		}
		fmt.Println("  ✓ Autostart enabled")
	}

	fmt.Println("\nDone. Run `chatpanel run` to open the panel.")
	return nil
}

// resolveValue returns the flag value if set, otherwise prompts for one,
// falling back to the default on an empty answer.
func resolveValue(flagValue, prompt, fallback string, reader *bufio.Reader) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	if fallback != "" {
		fmt.Printf("%s [%s]: ", prompt, fallback)
	} else {
		fmt.Printf("%s: ", prompt)
	}

	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return fallback, nil
	}
	return line, nil
}
