package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/asim800/chatLangGraph/core"
)

// InMemoryStore is a volatile core.Store keeping sessions in a process-local
// map. It is safe for concurrent access and best suited for tests or
// ephemeral demo runs. Each returned session is cloned to prevent external
// mutation of internal state.
type InMemoryStore struct {
	mu           sync.RWMutex
	sessions     map[string]*core.Session
	interactions []core.Interaction
	prompts      map[string]string
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: map[string]*core.Session{},
		prompts:  map[string]string{},
	}
}

// AppendTurn implements core.Store.
func (s *InMemoryStore) AppendTurn(_ context.Context, turn core.Turn) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[turn.SessionID]
	if ok {
		if sess.UserID != turn.UserID {
			return nil, fmt.Errorf("%w: session %s already owned by another user", core.ErrStorage, turn.SessionID)
		}
	} else {
		sess = &core.Session{
			UserID:   turn.UserID,
			ID:       turn.SessionID,
			Messages: []core.Message{},
			Context:  map[string]any{},
		}
		s.sessions[turn.SessionID] = sess
	}

	sess.Append(turn.UserMessage, turn.AssistantMessage)
	sess.LastEngagementScore = turn.EngagementScore
	for k, v := range turn.Context {
		sess.Context[k] = v
	}

	s.interactions = append(s.interactions, core.NewInteraction(turn))

	return sess.Clone(), nil
}

// GetSession implements core.Store.
func (s *InMemoryStore) GetSession(_ context.Context, userID, sessionID string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.UserID != userID {
		return nil, fmt.Errorf("%w: session %s", core.ErrNotFound, sessionID)
	}
	return sess.Clone(), nil
}

// GetHistory implements core.Store.
func (s *InMemoryStore) GetHistory(ctx context.Context, userID, sessionID string, limit int) ([]core.Message, error) {
	sess, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Tail(limit), nil
}

// ListSessions implements core.Store, most recently updated first.
func (s *InMemoryStore) ListSessions(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []*core.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			found = append(found, sess)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].LastUpdated.After(found[j].LastUpdated) })

	ids := make([]string, len(found))
	for i, sess := range found {
		ids[i] = sess.ID
	}
	return ids, nil
}

// StoreSystemPrompt implements core.Store.
func (s *InMemoryStore) StoreSystemPrompt(_ context.Context, sessionID, prompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts[sessionID] = prompt
	return nil
}

// GetSystemPrompt implements core.Store.
func (s *InMemoryStore) GetSystemPrompt(_ context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prompt, ok := s.prompts[sessionID]
	if !ok {
		return "", fmt.Errorf("%w: system prompt for session %s", core.ErrNotFound, sessionID)
	}
	return prompt, nil
}

// ExportInteractions implements core.Store over a snapshot of the records.
func (s *InMemoryStore) ExportInteractions(_ context.Context, since time.Time) (core.InteractionCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]core.Interaction, 0, len(s.interactions))
	for _, rec := range s.interactions {
		if !since.IsZero() && rec.Timestamp.Before(since) {
			continue
		}
		snapshot = append(snapshot, rec)
	}
	return &sliceCursor{records: snapshot}, nil
}

// DeleteSession implements core.Store; idempotent.
func (s *InMemoryStore) DeleteSession(_ context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok && sess.UserID == userID {
		delete(s.sessions, sessionID)
	}
	delete(s.prompts, sessionID)
	return nil
}

type sliceCursor struct {
	records []core.Interaction
}

func (c *sliceCursor) Next() (core.Interaction, bool) {
	if len(c.records) == 0 {
		return core.Interaction{}, false
	}
	rec := c.records[0]
	c.records = c.records[1:]
	return rec, true
}

func (c *sliceCursor) Err() error { return nil }
