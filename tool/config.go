package tool

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk agentchat configuration.
type Config struct {
	WorkspaceRoot string       `yaml:"workspace_root,omitempty" json:"workspace_root,omitempty" jsonschema:"description=Directory holding one workspace per chat session"`
	SettingsFile  string       `yaml:"settings_file,omitempty" json:"settings_file,omitempty" jsonschema:"description=YAML file with per-tool environment overrides"`
	Tools         []Descriptor `yaml:"tools" json:"tools"`
	MaxConcurrent int          `yaml:"max_concurrent,omitempty" json:"max_concurrent,omitempty" jsonschema:"minimum=0,description=Simultaneous tool invocations across all sessions"`
}

// DefaultMaxConcurrent bounds simultaneous tool invocations when the config
// does not say otherwise.
const DefaultMaxConcurrent = 4

// BuiltinTools returns the catalog used when no config file exists.
func BuiltinTools() []Descriptor {
	return []Descriptor{
		{
			ID:             "codex",
			DisplayName:    "Codex",
			Command:        "codex",
			TimeoutSeconds: 900,
			Enabled:        true,
		},
		{
			ID:             "claude",
			DisplayName:    "Claude Code",
			Command:        "claude",
			TimeoutSeconds: 900,
			Enabled:        true,
		},
		{
			ID:                "claude-live",
			DisplayName:       "Claude Code (persistent)",
			Command:           "claude",
			Adapter:           "claude",
			PersistentArgs:    "-p --input-format stream-json --output-format stream-json --verbose",
			Persistent:        true,
			TimeoutSeconds:    900,
			IdleWindowSeconds: DefaultIdleWindow.Seconds(),
			Enabled:           true,
		},
		{
			ID:             "cursor",
			DisplayName:    "Cursor Agent",
			Command:        "agent",
			TimeoutSeconds: 900,
			Enabled:        true,
		},
	}
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Tools:         BuiltinTools(),
		MaxConcurrent: DefaultMaxConcurrent,
	}
}

// LoadConfig reads a YAML config file. A missing file yields DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if len(cfg.Tools) == 0 {
		cfg.Tools = BuiltinTools()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	return &cfg, nil
}

// Registry builds a tool registry from the config.
func (c *Config) Registry() (*Registry, error) {
	return NewRegistry(c.Tools...)
}
