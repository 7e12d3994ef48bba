// Package config handles gait configuration loading for the CLI.
//
// Configuration is a single YAML file resolved through a fixed search
// order. Values left out of the file keep the defaults from [Default];
// the engine and buffer packages never read YAML themselves and are
// configured with explicit structs by the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from --config) is checked first.
// Then: ./gait.yaml, ~/.config/gait/config.yaml, /etc/gait/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"gait.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "gait", "config.yaml"))
	}

	paths = append(paths, "/etc/gait/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all gait configuration.
type Config struct {
	Provider   ProviderConfig `yaml:"provider"`
	Engine     EngineConfig   `yaml:"engine"`
	Buffer     BufferConfig   `yaml:"buffer"`
	Prompts    PromptsConfig  `yaml:"prompts"`
	ProgressDB string         `yaml:"progress_db"`
	LogLevel   string         `yaml:"log_level"`
}

// ProviderConfig defines the model provider connection.
type ProviderConfig struct {
	// Name selects the backend (openai, anthropic, ollama, ...).
	Name string `yaml:"name"`
	// Model overrides the provider's default model.
	Model string `yaml:"model"`
	// APIKey is the provider credential. If empty, the provider's
	// usual environment variable is consulted instead.
	APIKey      string  `yaml:"api_key"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// EngineConfig tunes the run loop.
type EngineConfig struct {
	MaxSteps                int    `yaml:"max_steps"`
	DuplicateThreshold      int    `yaml:"duplicate_threshold"`
	AccuracyMonitorInterval int    `yaml:"accuracy_monitor_interval"`
	StepReviewInterval      int    `yaml:"step_review_interval"`
	AutomaticRecovery       bool   `yaml:"automatic_recovery"`
	AdaptivePlanning        bool   `yaml:"adaptive_planning"`
	// ToolChoice is the tool-calling policy: none, auto, or required.
	ToolChoice string `yaml:"tool_choice"`
}

// BufferConfig bounds the conversation buffer.
type BufferConfig struct {
	MaxTurns          int `yaml:"max_turns"`
	ContextCharBudget int `yaml:"context_char_budget"`
	SafetyMargin      int `yaml:"safety_margin"`
}

// PromptsConfig overrides the agent's standing prompts.
type PromptsConfig struct {
	System   string `yaml:"system"`
	NextStep string `yaml:"next_step"`
}

// Load reads configuration from a YAML file. Fields absent from the
// file keep their [Default] values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:        "openai",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Engine: EngineConfig{
			MaxSteps:                100,
			DuplicateThreshold:      3,
			AccuracyMonitorInterval: 10,
			StepReviewInterval:      5,
			AutomaticRecovery:       true,
			AdaptivePlanning:        true,
			ToolChoice:              "auto",
		},
		Buffer: BufferConfig{
			MaxTurns:          100,
			ContextCharBudget: 32768,
			SafetyMargin:      500,
		},
		Prompts: PromptsConfig{
			System:   "You are an agent that can execute tool calls",
			NextStep: "If you want to stop interaction, use `terminate` tool/function call.",
		},
		LogLevel: "info",
	}
}

// Validate checks the enumerated fields.
func (c *Config) Validate() error {
	switch c.Engine.ToolChoice {
	case "", "none", "auto", "required":
	default:
		return fmt.Errorf("unknown tool_choice %q (valid: none, auto, required)", c.Engine.ToolChoice)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
