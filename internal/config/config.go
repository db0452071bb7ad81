package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	DefaultModel             = "claude-sonnet-4-20250514"
	DefaultMaxTokens         = 8192
	DefaultMaxToolIterations = 25
	DefaultExecTimeoutSec    = 120
	DefaultCommandTimeoutSec = 5
)

type Config struct {
	Agent    AgentConfig    `json:"agent"`
	Provider ProviderConfig `json:"provider"`
	Tools    ToolsConfig    `json:"tools"`
}

type AgentConfig struct {
	Workspace         string `json:"workspace"`
	Model             string `json:"model"`
	MaxTokens         int    `json:"maxTokens"`
	MaxToolIterations int    `json:"maxToolIterations"`
	CommandsDir       string `json:"commandsDir,omitempty"`
}

type ProviderConfig struct {
	Type    string `json:"type,omitempty"` // "anthropic" (default) or "openai"
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseUrl,omitempty"`
}

type ToolsConfig struct {
	ExecTimeout       int  `json:"execTimeout"`    // seconds, Bash tool
	CommandTimeout    int  `json:"commandTimeout"` // seconds, dynamic command markers
	AutoApprove       bool `json:"autoApprove"`    // skip permission prompts
	RestrictWorkspace bool `json:"restrictToWorkspace"`
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".openagent")
	return &Config{
		Agent: AgentConfig{
			Workspace:         filepath.Join(base, "workspace"),
			Model:             DefaultModel,
			MaxTokens:         DefaultMaxTokens,
			MaxToolIterations: DefaultMaxToolIterations,
			CommandsDir:       filepath.Join(base, "commands"),
		},
		Provider: ProviderConfig{},
		Tools: ToolsConfig{
			ExecTimeout:       DefaultExecTimeoutSec,
			CommandTimeout:    DefaultCommandTimeoutSec,
			RestrictWorkspace: true,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".openagent")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// LoadConfig reads the config file, falling back to defaults when it is
// absent, then applies environment overrides.
func LoadConfig() (*Config, error) {
	return loadConfigFrom(ConfigPath())
}

func loadConfigFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if key := os.Getenv("OPENAGENT_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
		if cfg.Provider.Type == "" {
			cfg.Provider.Type = "openai"
		}
	}
	if url := os.Getenv("OPENAGENT_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if url := os.Getenv("ANTHROPIC_BASE_URL"); url != "" && cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = url
	}
	if model := os.Getenv("OPENAGENT_MODEL"); model != "" {
		cfg.Agent.Model = model
	}
	if dir := os.Getenv("OPENAGENT_WORKSPACE"); dir != "" {
		cfg.Agent.Workspace = dir
	}
	if dir := os.Getenv("OPENAGENT_COMMANDS_DIR"); dir != "" {
		cfg.Agent.CommandsDir = dir
	}

	return cfg, nil
}

// SaveConfig writes the config for later editing.
func SaveConfig(cfg *Config) error {
	if err := os.MkdirAll(ConfigDir(), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(ConfigPath(), data, 0o600)
}
