package core

import "time"

// Turn captures one completed exchange handed to the store: the user message,
// the assistant response and the metadata computed for them. AppendTurn
// persists the messages into the session and writes the Interaction snapshot
// in a single durable operation.
type Turn struct {
	UserID           string
	SessionID        string
	UserMessage      Message
	AssistantMessage Message
	EngagementScore  float64
	Context          map[string]any
	// Degraded marks a turn whose response was substituted after an upstream
	// generation failure; UpstreamError carries the failure text.
	Degraded      bool
	UpstreamError string
}

// Interaction is an immutable snapshot of one completed turn, written once
// per turn and never mutated. Used for offline evaluation and export.
type Interaction struct {
	ID              string         `json:"interaction_id"`
	UserID          string         `json:"user_id"`
	SessionID       string         `json:"session_id"`
	Messages        []Message      `json:"messages"`
	EngagementScore float64        `json:"engagement_score"`
	Context         map[string]any `json:"context,omitempty"`
	Degraded        bool           `json:"degraded,omitempty"`
	Error           string         `json:"error,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

// NewInteraction builds the snapshot for a turn with a fresh id.
func NewInteraction(turn Turn) Interaction {
	return Interaction{
		ID:              NewID(),
		UserID:          turn.UserID,
		SessionID:       turn.SessionID,
		Messages:        []Message{turn.UserMessage, turn.AssistantMessage},
		EngagementScore: turn.EngagementScore,
		Context:         turn.Context,
		Degraded:        turn.Degraded,
		Error:           turn.UpstreamError,
		Timestamp:       time.Now().UTC(),
	}
}
