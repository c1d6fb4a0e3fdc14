package chatlanggraph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asim800/chatLangGraph/config"
	"github.com/asim800/chatLangGraph/core"
	"github.com/asim800/chatLangGraph/experiment"
	"github.com/asim800/chatLangGraph/model"
	"github.com/asim800/chatLangGraph/scoring"
)

func TestNew_Defaults(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	res, err := c.Send(context.Background(), "hello", "user-1", "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.SessionID)
	assert.NotEmpty(t, res.Response)
}

func TestChat_MultiTurnConversation(t *testing.T) {
	mdl := model.NewMockModel("test")
	mdl.AddResponse("what is Go?", "Go is a programming language.")

	c, err := New(func(o *Options) {
		o.Model = mdl
		o.SystemPrompt = "Be concise."
	})
	require.NoError(t, err)
	ctx := context.Background()

	res1, err := c.Send(ctx, "what is Go?", "user-1", "")
	require.NoError(t, err)
	assert.Equal(t, "Go is a programming language.", res1.Response)

	res2, err := c.Send(ctx, "tell me more", "user-1", res1.SessionID)
	require.NoError(t, err)
	assert.Equal(t, res1.SessionID, res2.SessionID)

	history, err := c.History(ctx, "user-1", res1.SessionID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 4)

	sessions, err := c.Sessions(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{res1.SessionID}, sessions)
}

func TestChat_WithExperiment(t *testing.T) {
	c, err := New(func(o *Options) {
		o.Experiments = []experiment.Experiment{{
			Name: "greeting-style",
			Variants: []experiment.Variant{
				{Name: "control", Weight: 0.5},
				{Name: "friendly", Weight: 0.5, Prompt: "Be warm and friendly."},
			},
		}}
		o.ActiveExperiment = "greeting-style"
	})
	require.NoError(t, err)

	res, err := c.Send(context.Background(), "hi", "user-1", "")
	require.NoError(t, err)

	sess, err := c.Store().GetSession(context.Background(), "user-1", res.SessionID)
	require.NoError(t, err)
	variant, ok := sess.Context["experiment_variant"].(string)
	require.True(t, ok)
	assert.Contains(t, []string{"control", "friendly"}, variant)
}

func TestNew_InvalidExperiment(t *testing.T) {
	_, err := New(func(o *Options) {
		o.Experiments = []experiment.Experiment{{
			Name:     "broken",
			Variants: []experiment.Variant{{Name: "a", Weight: 0.3}},
		}}
	})
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestNew_InvalidScoringWeights(t *testing.T) {
	_, err := New(func(o *Options) {
		cfg := scoring.DefaultConfig()
		cfg.Weights.Length = 0.9
		o.ScoringConfig = cfg
	})
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestChat_Evaluate(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	res, err := c.Send(ctx, "hello there", "user-1", "")
	require.NoError(t, err)
	_, err = c.Send(ctx, "and another", "user-1", res.SessionID)
	require.NoError(t, err)

	summary, err := c.Evaluate(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalInteractions)

	report, err := c.EngagementMetrics(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalInteractions)
	assert.Equal(t, 1, report.UniqueUsers)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Model.Provider = "mock"
	cfg.Model.Name = "test"
	cfg.Storage.Path = t.TempDir()

	c, err := NewFromConfig(cfg)
	require.NoError(t, err)

	res, err := c.Send(context.Background(), "hello", "user-1", "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Response)

	// The configured store is durable; a fresh handle sees the session.
	sessions, err := c.Sessions(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestNewFromConfig_UnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Model.Provider = "carrier-pigeon"
	cfg.Storage.Path = t.TempDir()

	_, err := NewFromConfig(cfg)
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestChat_SetSystemPrompt(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.SetSystemPrompt(ctx, "sess-1", "Answer in French."))
	prompt, err := c.Store().GetSystemPrompt(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "Answer in French.", prompt)
}
