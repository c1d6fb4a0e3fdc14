// Package model defines the generation collaborator contract consumed by the
// orchestrator. The interface is intentionally opaque: it accepts a message
// history plus system instructions and returns text, and it may fail. Retry
// policy is the implementation's concern, never the orchestrator's.
package model

import (
	"context"
	"fmt"
	"time"

	"github.com/asim800/chatLangGraph/core"
)

// Request captures the normalized model input produced by the orchestrator's
// context-building stage.
type Request struct {
	// Instructions is the effective system instruction (variant-specific when
	// an experiment is assigned).
	Instructions string
	// Messages is the contextual conversation history in append order.
	Messages []core.Message
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the completed generation result.
type Response struct {
	Text  string      `json:"text"`
	Usage *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the minimal interface required to drive generation. Generate
// blocks until completion or ctx expiry; implementations must honor ctx so
// the orchestrator can enforce per-call timeouts.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
type MockModel struct {
	info      Info
	responses map[string]string
	err       error
	latency   time.Duration
}

// NewMockModel constructs a MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// FailWith makes every Generate call return err.
func (m *MockModel) FailWith(err error) { m.err = err }

// SetLatency delays Generate, letting tests exercise timeout handling.
func (m *MockModel) SetLatency(d time.Duration) { m.latency = d }

// Generate implements Model; echoes a canned or derived completion keyed by
// the last user message.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if m.latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.latency):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	var input string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == core.RoleUser {
			input = req.Messages[i].Content
			break
		}
	}
	text := m.responses[input]
	if text == "" {
		text = fmt.Sprintf("Mock response to: %s", input)
	}
	return &Response{Text: text}, nil
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
