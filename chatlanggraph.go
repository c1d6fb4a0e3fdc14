// Package chatlanggraph provides a high-level facade over the conversation
// orchestrator and its collaborators (store, scorer, experiment assigner,
// model). Most applications interact with this package by:
//  1. Creating a Chat via New() (optionally overriding the in-memory defaults)
//  2. Calling Send() per user message, reusing the returned session id
//  3. Running Evaluate() offline over the recorded interactions
//
// The facade delegates per-turn work to orchestrator.Orchestrator while
// keeping setup ergonomics concise. All defaults are safe for local
// development and testing; production deployments supply a FileStore path, a
// real model adapter and a structured logger.
package chatlanggraph

import (
	"context"
	"fmt"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/asim800/chatLangGraph/config"
	"github.com/asim800/chatLangGraph/core"
	"github.com/asim800/chatLangGraph/evaluation"
	"github.com/asim800/chatLangGraph/experiment"
	"github.com/asim800/chatLangGraph/logging"
	"github.com/asim800/chatLangGraph/model"
	"github.com/asim800/chatLangGraph/model/anthropic"
	"github.com/asim800/chatLangGraph/model/openai"
	"github.com/asim800/chatLangGraph/orchestrator"
	"github.com/asim800/chatLangGraph/scoring"
	"github.com/asim800/chatLangGraph/store"
)

// Options configures the Chat instance.
type Options struct {
	// Store persists sessions and interaction records. Defaults to an
	// in-memory store; pass a FileStore for durability.
	Store core.Store

	// Model generates assistant responses. Defaults to a mock model suited
	// only for tests and demos.
	Model model.Model

	// ScoringConfig tunes the engagement scorer. Defaults preserve the
	// baseline weights.
	ScoringConfig scoring.Config
	// CustomMetrics extends the scorer beyond the built-in five.
	CustomMetrics []scoring.Metric

	// Experiments and ActiveExperiment enable deterministic A/B variant
	// assignment of system instructions.
	Experiments      []experiment.Experiment
	ActiveExperiment string

	// SystemPrompt is the default instruction when no stored prompt or
	// variant overrides it.
	SystemPrompt string
	// ContextWindow bounds the history handed to the model per turn.
	ContextWindow int
	// GenerationTimeout caps a single model call. Zero disables the cap.
	GenerationTimeout time.Duration

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Result is the outcome of one conversational turn.
type Result = orchestrator.Result

// Chat is the high-level facade aggregating the orchestrator and its
// collaborators. Safe for concurrent use.
type Chat struct {
	opts  Options
	orch  *orchestrator.Orchestrator
	store core.Store
	eval  *evaluation.Evaluator
}

// New creates a Chat with optional overrides. Any unset collaborator is
// initialized with an in-memory or mock implementation.
func New(optFns ...func(o *Options)) (*Chat, error) {
	opts := Options{
		ScoringConfig: scoring.DefaultConfig(),
		ContextWindow: 10,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Store == nil {
		opts.Store = store.NewInMemoryStore()
	}
	if opts.Model == nil {
		opts.Model = model.NewMockModel("mock")
	}

	scorer, err := scoring.NewScorer(opts.ScoringConfig, opts.CustomMetrics...)
	if err != nil {
		return nil, err
	}

	var assigner *experiment.Assigner
	if len(opts.Experiments) > 0 {
		for _, exp := range opts.Experiments {
			if err := exp.Validate(); err != nil {
				return nil, err
			}
		}
		assigner = experiment.NewAssigner(opts.Experiments...)
	}

	orch, err := orchestrator.New(opts.Store, opts.Model, func(o *orchestrator.Options) {
		o.Scorer = scorer
		o.Assigner = assigner
		o.ExperimentName = opts.ActiveExperiment
		o.SystemPrompt = opts.SystemPrompt
		o.ContextWindow = opts.ContextWindow
		o.GenerationTimeout = opts.GenerationTimeout
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	return &Chat{
		opts:  opts,
		orch:  orch,
		store: opts.Store,
		eval:  evaluation.NewEvaluator(opts.Store, scorer),
	}, nil
}

// NewFromConfig wires a Chat from a validated configuration: file store at
// the configured path, model adapter by provider name, scorer weights,
// experiment definitions and structured logging. Further overrides can be
// layered via optFns.
func NewFromConfig(cfg config.Config, optFns ...func(o *Options)) (*Chat, error) {
	fileStore, err := store.NewFileStore(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	var mdl model.Model
	switch cfg.Model.Provider {
	case "openai":
		mdl = openai.NewModel(func(o *openai.Options) {
			if cfg.Model.Name != "" {
				o.Model = cfg.Model.Name
			}
			o.Temperature = cfg.Model.Temperature
			o.MaxCompletionTokens = cfg.Model.MaxTokens
		})
	case "anthropic":
		mdl = anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Model.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Model.Name)
			}
			o.Temperature = cfg.Model.Temperature
			o.MaxTokens = cfg.Model.MaxTokens
		})
	case "mock":
		mdl = model.NewMockModel(cfg.Model.Name)
	default:
		return nil, fmt.Errorf("%w: unknown model provider %q", core.ErrConfig, cfg.Model.Provider)
	}

	level := logging.LogLevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = logging.LogLevelDebug
	case "warn":
		level = logging.LogLevelWarn
	case "error":
		level = logging.LogLevelError
	}
	loggerCfg := logging.DefaultLoggerConfig()
	loggerCfg.Level = level
	loggerCfg.Format = cfg.Logging.Format

	return New(append([]func(o *Options){func(o *Options) {
		o.Store = fileStore
		o.Model = mdl
		o.ScoringConfig = cfg.Scoring
		o.Experiments = cfg.Experiments
		o.ActiveExperiment = cfg.ActiveExperiment
		o.SystemPrompt = cfg.Conversation.SystemPrompt
		o.ContextWindow = cfg.Conversation.ContextWindow
		o.GenerationTimeout = cfg.Model.Timeout
		o.Logger = logging.NewLogger(loggerCfg).WithComponent("chat")
	}}, optFns...)...)
}

// Send processes one user message within a session. An empty sessionID starts
// a new session; reuse Result.SessionID to continue it.
func (c *Chat) Send(ctx context.Context, message, userID, sessionID string) (*Result, error) {
	return c.orch.Invoke(ctx, message, userID, sessionID)
}

// Orchestrator exposes the underlying pipeline for stage insertion.
func (c *Chat) Orchestrator() *orchestrator.Orchestrator { return c.orch }

// Store exposes the underlying store for history queries and exports.
func (c *Chat) Store() core.Store { return c.store }

// History returns the most recent limit messages of a session (limit <= 0
// returns all).
func (c *Chat) History(ctx context.Context, userID, sessionID string, limit int) ([]core.Message, error) {
	return c.store.GetHistory(ctx, userID, sessionID, limit)
}

// Sessions lists a user's session ids, most recently updated first.
func (c *Chat) Sessions(ctx context.Context, userID string) ([]string, error) {
	return c.store.ListSessions(ctx, userID)
}

// SetSystemPrompt pins a per-session instruction that overrides the default
// on subsequent turns.
func (c *Chat) SetSystemPrompt(ctx context.Context, sessionID, prompt string) error {
	return c.store.StoreSystemPrompt(ctx, sessionID, prompt)
}

// Evaluate re-scores the interactions recorded at or after since (zero time
// means all) and returns summary statistics with improvement suggestions.
func (c *Chat) Evaluate(ctx context.Context, since time.Time) (*evaluation.Summary, error) {
	return c.eval.Evaluate(ctx, since)
}

// EngagementMetrics aggregates recorded engagement signals, optionally
// restricted to one user.
func (c *Chat) EngagementMetrics(ctx context.Context, userID string) (*evaluation.EngagementReport, error) {
	return c.eval.EngagementMetrics(ctx, userID)
}
