package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/asim800/chatLangGraph/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
conversation:
  context_window: 4
  system_prompt: "Be brief."
storage:
  path: /tmp/chat-data
active_experiment: greeting-style
experiments:
  - name: greeting-style
    variants:
      - name: control
        weight: 0.5
      - name: friendly
        weight: 0.5
        prompt: "Be warm and friendly."
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Conversation.ContextWindow)
	assert.Equal(t, "Be brief.", cfg.Conversation.SystemPrompt)
	assert.Equal(t, "/tmp/chat-data", cfg.Storage.Path)
	assert.Equal(t, "greeting-style", cfg.ActiveExperiment)
	require.Len(t, cfg.Experiments, 1)

	// Untouched defaults survive.
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.InDelta(t, 1.0, cfg.Scoring.Weights.Length+cfg.Scoring.Weights.Quality+
		cfg.Scoring.Weights.UserEngagement+cfg.Scoring.Weights.Flow+cfg.Scoring.Weights.Stickiness, 0.001)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestValidate_BadTrafficSplit(t *testing.T) {
	path := writeConfig(t, `
experiments:
  - name: broken
    variants:
      - name: a
        weight: 0.5
      - name: b
        weight: 0.4
`)
	_, err := Load(path)
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestValidate_UnknownActiveExperiment(t *testing.T) {
	cfg := Default()
	cfg.ActiveExperiment = "ghost"
	assert.ErrorIs(t, cfg.Validate(), core.ErrConfig)
}

func TestValidate_ContextWindow(t *testing.T) {
	cfg := Default()
	cfg.Conversation.ContextWindow = 0
	assert.ErrorIs(t, cfg.Validate(), core.ErrConfig)
}
