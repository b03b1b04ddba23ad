// Package main is the entry point for the LibreChat control panel. It wires
// the resource sampler, the service reconciler, and the launch supervisor
// together and serves them through a terminal dashboard or headless monitor.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chatstack/chatpanel/internal/autostart"
	"github.com/chatstack/chatpanel/internal/config"
	"github.com/chatstack/chatpanel/internal/setup"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	var (
		configPath string
		chatURL    string
		logLevel   string
	)

	root := &cobra.Command{
		Use:          "chatpanel",
		Short:        "Control panel for a local LibreChat stack",
		Long: `chatpanel supervises the services a local LibreChat installation needs:
the systemd units (MongoDB, PostgreSQL, Meilisearch, Ollama), the LibreChat
backend, and the RAG API. It samples host resources, reconciles service
state, and can start or stop the whole stack in dependency order.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")
	root.PersistentFlags().StringVar(&chatURL, "chat-url", "", "LibreChat URL override")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	load := func() (*config.Config, error) {
		cli := config.CLIOverrides{ChatURL: chatURL, LogLevel: logLevel}
		path := configPath
		if path == "" {
			path = config.Locate()
		}
		if path != "" {
			return config.LoadLayered(cli, embeddedConfig, path)
		}
		return config.LoadLayered(cli, embeddedConfig)
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the interactive dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runPanel(cfg, true)
		},
	}

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the pollers headless and log records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runPanel(cfg, false)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the chatpanel version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("chatpanel %s\n", version)
		},
	}

	root.AddCommand(runCmd, monitorCmd, setupCmd(), autostartCmd(), versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupCmd() *cobra.Command {
	var opts setup.Options

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "First-run wizard: write the config and optionally enable autostart",
		RunE: func(cmd *cobra.Command, args []string) error {
			return setup.Run(version, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ChatURL, "chat-url", "", "LibreChat URL")
	cmd.Flags().StringVar(&opts.LibreChatDir, "librechat-dir", "", "LibreChat checkout directory")
	cmd.Flags().StringVar(&opts.RAGDir, "rag-dir", "", "RAG API directory")
	cmd.Flags().StringVar(&opts.Autostart, "autostart", "", "enable login autostart (yes/no)")

	return cmd
}

func autostartCmd() *cobra.Command {
	var enable, disable, status bool

	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Manage login autostart for the panel",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := autostart.New()
			if err != nil {
				return err
			}

			switch {
			case enable:
				exe, err := os.Executable()
				if err != nil {
					return fmt.Errorf("resolving executable path: %w", err)
				}
				if err := mgr.Install(exe); err != nil {
					return err
				}
				fmt.Printf("autostart enabled: %s\n", mgr.EntryPath())
				return nil

			case disable:
				if err := mgr.Uninstall(); err != nil {
					return err
				}
				fmt.Println("autostart disabled")
				return nil

			case status:
				installed, err := mgr.IsInstalled()
				if err != nil {
					return err
				}
				if installed {
					fmt.Printf("autostart enabled: %s\n", mgr.EntryPath())
				} else {
					fmt.Println("autostart disabled")
				}
				return nil
			}

			return cmd.Help()
		},
	}

	cmd.Flags().BoolVar(&enable, "enable", false, "install the autostart entry")
	cmd.Flags().BoolVar(&disable, "disable", false, "remove the autostart entry")
	cmd.Flags().BoolVar(&status, "status", false, "report whether autostart is enabled")

	return cmd
}
