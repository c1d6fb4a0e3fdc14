// Package orchestrator drives the per-turn conversation pipeline. Each
// invocation runs a fixed sequence of named stages
// (received -> context_built -> response_generated -> scored -> persisted);
// derived orchestrators extend the flow by inserting additional stages
// between context build and generation without touching the store or scorer
// contracts. The pipeline is composed of stage values rather than an
// inheritance chain, so variants swap or add behavior by construction.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/asim800/chatLangGraph/core"
	"github.com/asim800/chatLangGraph/experiment"
	"github.com/asim800/chatLangGraph/logging"
	"github.com/asim800/chatLangGraph/model"
	"github.com/asim800/chatLangGraph/scoring"
)

// Stage names of the default pipeline, in execution order.
const (
	StageReceived          = "received"
	StageContextBuilt      = "context_built"
	StageResponseGenerated = "response_generated"
	StageScored            = "scored"
	StagePersisted         = "persisted"
)

// DegradedResponse is the marker substituted when the generation collaborator
// fails or times out. The turn is still scored and persisted so the
// conversation record stays complete.
const DegradedResponse = "I'm sorry, I'm having trouble generating a response right now. Please try again in a moment."

// contextVariantKey caches the assigned experiment variant in the session's
// context map for the lifetime of the session.
const (
	contextVariantKey       = "experiment_variant"
	contextVariantPromptKey = "experiment_variant_prompt"
)

// TurnState is the mutable state threaded through the stages of one
// invocation. Custom stages may read and amend it; the store is only touched
// by the persistence stage.
type TurnState struct {
	UserID    string
	SessionID string
	// NewSession is true when no stored session existed for SessionID.
	NewSession bool
	// Session is the stored snapshot (nil until loaded; replaced by the
	// post-append snapshot after persistence).
	Session     *core.Session
	UserMessage core.Message
	// Window is the bounded history handed to the model, ending with the new
	// user message.
	Window []core.Message
	// Instructions is the effective system instruction for this turn.
	Instructions string
	// Variant is the resolved experiment variant, if any.
	Variant  *experiment.Variant
	Response core.Message
	// Degraded is set when the response was substituted after an upstream
	// failure; UpstreamErr carries the cause.
	Degraded    bool
	UpstreamErr error
	Score       float64
	Breakdown   map[string]float64

	input         string
	priorSessions int
	lastSessionAt time.Time
}

// Stage is one named step of the pipeline.
type Stage struct {
	Name string
	Run  func(ctx context.Context, st *TurnState) error
}

// Result is returned to the caller once the pipeline reaches its terminal
// state. UpstreamErr is non-nil for degraded turns so callers can react, even
// though the invocation itself succeeded.
type Result struct {
	Response        string
	SessionID       string
	MessageID       string
	EngagementScore float64
	Degraded        bool
	UpstreamErr     error
}

// Options configures an Orchestrator.
type Options struct {
	// Scorer computes the per-turn engagement score. Defaults to the
	// default-weighted scorer.
	Scorer *scoring.Scorer
	// Assigner and ExperimentName enable variant-specific instructions. Both
	// must be set for assignment to run.
	Assigner       *experiment.Assigner
	ExperimentName string
	// SystemPrompt is the default instruction when neither a stored
	// per-session prompt nor an experiment variant overrides it.
	SystemPrompt string
	// ContextWindow bounds the history tail handed to the model.
	ContextWindow int
	// GenerationTimeout caps a single model call. Zero disables the cap.
	GenerationTimeout time.Duration
	// StrictExperiments makes an invalid experiment configuration fail the
	// invocation instead of falling back to no-experiment behavior.
	StrictExperiments bool
	// Logger receives structured diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Orchestrator coordinates one conversational turn per Invoke call. Safe for
// concurrent use; per-session write serialization is the store's concern.
type Orchestrator struct {
	store  core.Store
	model  model.Model
	opts   Options
	stages []Stage
}

// New wires an orchestrator with the default five-stage pipeline.
func New(store core.Store, mdl model.Model, optFns ...func(o *Options)) (*Orchestrator, error) {
	opts := Options{
		ContextWindow: 10,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Scorer == nil {
		scorer, err := scoring.NewScorer(scoring.DefaultConfig())
		if err != nil {
			return nil, err
		}
		opts.Scorer = scorer
	}
	if opts.ContextWindow < 1 {
		return nil, fmt.Errorf("%w: context window must be at least 1", core.ErrConfig)
	}

	o := &Orchestrator{store: store, model: mdl, opts: opts}
	o.stages = []Stage{
		{Name: StageReceived, Run: o.receive},
		{Name: StageContextBuilt, Run: o.buildContext},
		{Name: StageResponseGenerated, Run: o.generateResponse},
		{Name: StageScored, Run: o.scoreTurn},
		{Name: StagePersisted, Run: o.persistTurn},
	}
	return o, nil
}

// InsertStageAfter adds a custom stage immediately after the named one.
// Stage names must be unique within the pipeline.
func (o *Orchestrator) InsertStageAfter(after string, stage Stage) error {
	for _, s := range o.stages {
		if s.Name == stage.Name {
			return fmt.Errorf("%w: duplicate stage %q", core.ErrConfig, stage.Name)
		}
	}
	for i, s := range o.stages {
		if s.Name == after {
			o.stages = append(o.stages[:i+1], append([]Stage{stage}, o.stages[i+1:]...)...)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown stage %q", core.ErrConfig, after)
}

// Stages returns the pipeline's stage names in execution order.
func (o *Orchestrator) Stages() []string {
	names := make([]string, len(o.stages))
	for i, s := range o.stages {
		names[i] = s.Name
	}
	return names
}

// Invoke processes one turn: it resolves the session, builds context, calls
// the generation collaborator, scores the exchange and persists it. A fresh
// session id is minted when sessionID is empty. An upstream failure degrades
// the response but does not fail the invocation; a persistence failure does.
func (o *Orchestrator) Invoke(ctx context.Context, message, userID, sessionID string) (*Result, error) {
	start := time.Now()

	if sessionID == "" {
		sessionID = core.NewID()
	}
	st := &TurnState{
		UserID:    userID,
		SessionID: sessionID,
		input:     message,
	}

	for _, stage := range o.stages {
		if err := stage.Run(ctx, st); err != nil {
			o.opts.Logger.Error("turn.stage.failed",
				"stage", stage.Name, "session_id", st.SessionID, "error", err)
			return nil, err
		}
	}

	o.opts.Logger.Info("turn.completed",
		"session_id", st.SessionID,
		"user_id", st.UserID,
		"engagement_score", st.Score,
		"degraded", st.Degraded,
		"duration_ms", time.Since(start).Milliseconds())

	return &Result{
		Response:        st.Response.Content,
		SessionID:       st.SessionID,
		MessageID:       st.Response.ID,
		EngagementScore: st.Score,
		Degraded:        st.Degraded,
		UpstreamErr:     st.UpstreamErr,
	}, nil
}

// receive validates the incoming turn and mints the user message. The turn
// enters the pipeline here on every invocation.
func (o *Orchestrator) receive(_ context.Context, st *TurnState) error {
	if strings.TrimSpace(st.input) == "" {
		return fmt.Errorf("%w: empty message", core.ErrConfig)
	}
	if st.UserID == "" {
		return fmt.Errorf("%w: empty user id", core.ErrConfig)
	}
	st.UserMessage = core.NewUserMessage(st.input)
	return nil
}

// buildContext resolves the session, the bounded history window, the
// effective instructions and the experiment variant.
func (o *Orchestrator) buildContext(ctx context.Context, st *TurnState) error {
	sess, err := o.store.GetSession(ctx, st.UserID, st.SessionID)
	switch {
	case err == nil:
		st.Session = sess
	case errors.Is(err, core.ErrNotFound):
		st.NewSession = true
		st.Session = &core.Session{
			UserID:   st.UserID,
			ID:       st.SessionID,
			Messages: []core.Message{},
			Context:  map[string]any{},
		}
	default:
		return err
	}

	st.Window = append(st.Session.Tail(o.opts.ContextWindow), st.UserMessage)

	st.Instructions = o.opts.SystemPrompt
	if stored, err := o.store.GetSystemPrompt(ctx, st.SessionID); err == nil {
		st.Instructions = stored
	} else if !errors.Is(err, core.ErrNotFound) {
		return err
	}

	if err := o.resolveVariant(st); err != nil {
		return err
	}

	o.collectUserStats(ctx, st)
	return nil
}

// resolveVariant applies the experiment assignment, reusing the variant
// cached in the session context when present. An invalid traffic split falls
// back to no-experiment behavior unless StrictExperiments is set; an unknown
// experiment name always fails the invocation.
func (o *Orchestrator) resolveVariant(st *TurnState) error {
	if o.opts.Assigner == nil || o.opts.ExperimentName == "" {
		return nil
	}

	if name, ok := st.Session.Context[contextVariantKey].(string); ok {
		v := experiment.Variant{Name: name}
		if prompt, ok := st.Session.Context[contextVariantPromptKey].(string); ok {
			v.Prompt = prompt
		}
		st.Variant = &v
		if v.Prompt != "" {
			st.Instructions = v.Prompt
		}
		return nil
	}

	v, err := o.opts.Assigner.Assign(st.UserID, o.opts.ExperimentName)
	switch {
	case err == nil:
		st.Variant = &v
		if v.Prompt != "" {
			st.Instructions = v.Prompt
		}
	case errors.Is(err, core.ErrConfig):
		if o.opts.StrictExperiments {
			return err
		}
		o.opts.Logger.Warn("experiment.assignment.skipped",
			"experiment", o.opts.ExperimentName, "error", err)
	default:
		return err
	}
	return nil
}

// collectUserStats gathers the return-visit signals consumed by the
// stickiness metric. Failures here only flatten that metric, so they are
// logged and ignored.
func (o *Orchestrator) collectUserStats(ctx context.Context, st *TurnState) {
	ids, err := o.store.ListSessions(ctx, st.UserID)
	if err != nil {
		o.opts.Logger.Debug("turn.user_stats.unavailable", "user_id", st.UserID, "error", err)
		return
	}
	for _, id := range ids {
		if id == st.SessionID {
			continue
		}
		st.priorSessions++
		if st.lastSessionAt.IsZero() {
			if prev, err := o.store.GetSession(ctx, st.UserID, id); err == nil {
				st.lastSessionAt = prev.LastUpdated
			}
		}
	}
}

// generateResponse calls the generation collaborator. The per-session store
// lock is never held here; a failure or timeout substitutes the degraded
// marker and the pipeline continues.
func (o *Orchestrator) generateResponse(ctx context.Context, st *TurnState) error {
	genCtx := ctx
	if o.opts.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, o.opts.GenerationTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := o.model.Generate(genCtx, model.Request{
		Instructions: st.Instructions,
		Messages:     st.Window,
	})
	if err != nil {
		st.Degraded = true
		st.UpstreamErr = fmt.Errorf("%w: %v", core.ErrUpstream, err)
		st.Response = core.NewAssistantMessage(DegradedResponse)
		o.opts.Logger.Warn("turn.generation.degraded",
			"session_id", st.SessionID,
			"model", o.model.Info().Name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return nil
	}

	st.Response = core.NewAssistantMessage(resp.Text)
	return nil
}

// scoreTurn computes the engagement score over the full updated history. The
// scorer substitutes the neutral default internally for unscorable input, so
// this stage cannot fail the turn.
func (o *Orchestrator) scoreTurn(_ context.Context, st *TurnState) error {
	history := append(st.Session.Tail(0), st.UserMessage, st.Response)
	st.Score, st.Breakdown = o.opts.Scorer.ScoreDetailed(scoring.Input{
		Messages:          history,
		Now:               st.Response.Timestamp,
		PriorSessionCount: st.priorSessions,
		LastSessionAt:     st.lastSessionAt,
	})
	return nil
}

// persistTurn appends the exchange and the interaction snapshot. A storage
// fault fails the invocation; a turn that cannot be persisted is never
// reported as successful.
func (o *Orchestrator) persistTurn(ctx context.Context, st *TurnState) error {
	turnContext := map[string]any{}
	for k, v := range st.Session.Context {
		turnContext[k] = v
	}
	if st.Variant != nil {
		turnContext[contextVariantKey] = st.Variant.Name
		if st.Variant.Prompt != "" {
			turnContext[contextVariantPromptKey] = st.Variant.Prompt
		}
	}

	turn := core.Turn{
		UserID:           st.UserID,
		SessionID:        st.SessionID,
		UserMessage:      st.UserMessage,
		AssistantMessage: st.Response,
		EngagementScore:  st.Score,
		Context:          turnContext,
		Degraded:         st.Degraded,
	}
	if st.UpstreamErr != nil {
		turn.UpstreamError = st.UpstreamErr.Error()
	}

	sess, err := o.store.AppendTurn(ctx, turn)
	if err != nil {
		return err
	}
	st.Session = sess
	return nil
}
