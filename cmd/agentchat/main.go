// Command agentchat runs chat turns against external coding-assistant CLIs
// and streams their output.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bazelment/yoloswe/agentchat/orchestrator"
	"github.com/bazelment/yoloswe/agentchat/tool"
)

var (
	configPath    string
	workspaceRoot string
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "agentchat",
	Short: "Chat with coding-assistant CLIs",
	Long: `Agentchat launches coding-assistant CLIs (codex, claude, cursor or any
configured command), streams their output as it is produced, and carries
each tool's conversation thread across the turns of a session.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Tool catalog file (default: <user config dir>/agentchat/tools.yaml)")
	rootCmd.PersistentFlags().StringVar(&workspaceRoot, "workspace-root", "", "Directory holding per-session workspaces (overrides the config file)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger creates a structured logger with the configured verbosity.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// configDir returns the directory holding agentchat's files.
func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "agentchat")
}

// resolveConfigPath returns the catalog path from flags or the default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return filepath.Join(configDir(), "tools.yaml")
}

// engine bundles what every subcommand that runs turns needs.
type engine struct {
	cfg      *tool.Config
	settings *tool.Settings
	exec     *orchestrator.Executor
	logger   *slog.Logger
}

// loadEngine reads the catalog and settings and builds an executor.
func loadEngine(logger *slog.Logger) (*engine, error) {
	path := resolveConfigPath()
	cfg, err := tool.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("tool catalog %s: %w", path, err)
	}

	settingsPath := cfg.SettingsFile
	if settingsPath == "" {
		settingsPath = filepath.Join(filepath.Dir(path), "settings.yaml")
	}
	settings, err := tool.OpenSettings(settingsPath, logger)
	if err != nil {
		return nil, fmt.Errorf("settings %s: %w", settingsPath, err)
	}

	root := workspaceRoot
	if root == "" {
		root = cfg.WorkspaceRoot
	}
	if root == "" {
		root = filepath.Join(configDir(), "workspaces")
	}

	exec := orchestrator.New(reg,
		orchestrator.WithLogger(logger),
		orchestrator.WithEnv(settings),
		orchestrator.WithWorkspaces(orchestrator.DirWorkspaces{Root: root}),
		orchestrator.WithMaxConcurrent(cfg.MaxConcurrent),
	)
	logger.Debug("engine ready", "config", path, "settings", settingsPath, "workspaces", root, "tools", len(reg.List()))
	return &engine{cfg: cfg, settings: settings, exec: exec, logger: logger}, nil
}
