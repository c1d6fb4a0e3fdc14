package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message. It is a closed variant; values
// outside the four constants below are rejected on decode so every consumer
// can switch over it exhaustively.
type Role string

const (
	// RoleUser marks a message authored by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks a message produced by the generation collaborator.
	RoleAssistant Role = "assistant"
	// RoleTool marks the result of a tool invocation.
	RoleTool Role = "tool"
	// RoleSystem marks system instructions injected into the context.
	RoleSystem Role = "system"
)

// Valid reports whether r is one of the closed set of roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleTool, RoleSystem:
		return true
	}
	return false
}

// UnmarshalJSON validates the role on decode so corrupt records surface as
// errors instead of leaking free-form strings into the domain.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if !Role(s).Valid() {
		return fmt.Errorf("invalid role %q", s)
	}
	*r = Role(s)
	return nil
}

// ToolCall carries optional tool-invocation metadata attached to a message.
// ID correlates a tool result back to the call that produced it.
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// Message is one utterance in a session. Immutable once written; ordering
// within a session is the append order.
type Message struct {
	ID        string    `json:"message_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ToolCall  *ToolCall `json:"tool_call,omitempty"`
}

// NewID generates a new unique identifier for messages, sessions and
// interaction records.
func NewID() string { return uuid.NewString() }

// NewMessage creates a message with a fresh id and a UTC timestamp.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserMessage is a convenience wrapper for a user-authored message.
func NewUserMessage(content string) Message { return NewMessage(RoleUser, content) }

// NewAssistantMessage is a convenience wrapper for an assistant message.
func NewAssistantMessage(content string) Message { return NewMessage(RoleAssistant, content) }

// NewToolMessage records a tool result correlated to the originating call.
func NewToolMessage(name, callID, content string) Message {
	m := NewMessage(RoleTool, content)
	m.ToolCall = &ToolCall{ID: callID, Name: name}
	return m
}
