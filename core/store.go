package core

import (
	"context"
	"time"
)

// InteractionCursor lazily streams exported interaction records. Next returns
// false once the sequence is exhausted or a read fault occurred; callers must
// then check Err. Obtaining a fresh cursor restarts the sequence.
type InteractionCursor interface {
	Next() (Interaction, bool)
	Err() error
}

// Store persists sessions, per-turn interaction snapshots and per-session
// system prompts. Implementations must serialize writers per session (no
// process-wide lock) and guarantee that a completed AppendTurn is durable
// before it returns: records are written with a temp-file-then-atomic-replace
// discipline so a crash mid-write never leaves a partially visible document.
type Store interface {
	// AppendTurn creates the session if absent and appends the turn's user and
	// assistant messages in order, updating last_engagement_score and
	// message_count, then writes the turn's Interaction snapshot. Fails with
	// ErrStorage on a write fault or when sessionID exists under a different
	// user. Store operations do not observe caller cancellation once a write
	// has begun; ctx gates only the acquisition phase.
	AppendTurn(ctx context.Context, turn Turn) (*Session, error)

	// GetSession returns a copy of the stored session, or ErrNotFound.
	GetSession(ctx context.Context, userID, sessionID string) (*Session, error)

	// GetHistory returns the most recent limit messages, or the full history
	// when limit <= 0. Fails with ErrNotFound if the session does not exist.
	GetHistory(ctx context.Context, userID, sessionID string, limit int) ([]Message, error)

	// ListSessions returns the session ids recorded for a user, most recently
	// updated first.
	ListSessions(ctx context.Context, userID string) ([]string, error)

	// StoreSystemPrompt associates a system instruction with a session for
	// reuse across turns.
	StoreSystemPrompt(ctx context.Context, sessionID, prompt string) error

	// GetSystemPrompt returns the most recent instruction stored for the
	// session, or ErrNotFound when none exists.
	GetSystemPrompt(ctx context.Context, sessionID string) (string, error)

	// ExportInteractions streams interaction records with timestamps at or
	// after since (zero time means all), without loading the corpus at once.
	ExportInteractions(ctx context.Context, since time.Time) (InteractionCursor, error)

	// DeleteSession removes a session and its system prompt. Idempotent; it
	// succeeds even if the session does not exist.
	DeleteSession(ctx context.Context, userID, sessionID string) error
}
