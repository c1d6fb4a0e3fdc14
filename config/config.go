// Package config loads and validates the chatLangGraph configuration. A
// Config is an explicit value passed into constructors at wiring time and is
// immutable after load; there is no ambient global lookup.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/asim800/chatLangGraph/core"
	"github.com/asim800/chatLangGraph/experiment"
	"github.com/asim800/chatLangGraph/scoring"
)

// ModelConfig selects and tunes the generation collaborator.
type ModelConfig struct {
	Provider    string        `yaml:"provider"` // "openai", "anthropic", "mock"
	Name        string        `yaml:"name"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int64         `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ConversationConfig tunes orchestration behavior.
type ConversationConfig struct {
	// ContextWindow bounds the tail of prior messages handed to the model.
	ContextWindow int `yaml:"context_window"`
	// SystemPrompt is the default instruction when no per-session prompt or
	// experiment variant overrides it.
	SystemPrompt string `yaml:"system_prompt"`
	// PromptVariants holds named alternative instructions referenced by
	// experiment variants or manual selection.
	PromptVariants map[string]string `yaml:"prompt_variants"`
}

// StorageConfig locates the durable interaction store.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig tunes the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// Config aggregates every tunable of the system.
type Config struct {
	Model            ModelConfig             `yaml:"model"`
	Conversation     ConversationConfig      `yaml:"conversation"`
	Storage          StorageConfig           `yaml:"storage"`
	Scoring          scoring.Config          `yaml:"scoring"`
	Experiments      []experiment.Experiment `yaml:"experiments"`
	ActiveExperiment string                  `yaml:"active_experiment"`
	Logging          LoggingConfig           `yaml:"logging"`
}

// Default returns the baseline configuration used when a field is absent
// from the loaded file.
func Default() Config {
	return Config{
		Model: ModelConfig{
			Provider:    "openai",
			Temperature: 0.7,
			MaxTokens:   4096,
			Timeout:     60 * time.Second,
		},
		Conversation: ConversationConfig{
			ContextWindow: 10,
			SystemPrompt:  "You are a helpful, engaging AI assistant focused on creating meaningful conversations with users.",
		},
		Storage: StorageConfig{Path: "interactions"},
		Scoring: scoring.DefaultConfig(),
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: read %s: %v", core.ErrConfig, path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse %s: %v", core.ErrConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field sanity. Experiment traffic splits are also
// re-validated at assignment time, where the orchestrator can fall back to
// no-experiment behavior.
func (c Config) Validate() error {
	if c.Conversation.ContextWindow < 1 {
		return fmt.Errorf("%w: context_window must be at least 1", core.ErrConfig)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be between 0 and 2", core.ErrConfig)
	}
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	for _, exp := range c.Experiments {
		if err := exp.Validate(); err != nil {
			return err
		}
	}
	if c.ActiveExperiment != "" {
		found := false
		for _, exp := range c.Experiments {
			if exp.Name == c.ActiveExperiment {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: active_experiment %q is not defined", core.ErrConfig, c.ActiveExperiment)
		}
	}
	return nil
}
