package core

import "time"

// Session is the unit of conversational continuity between one user and the
// system. The store serializes writers per session, so Session itself is a
// plain value; callers that hand it across goroutines should Clone first.
//
// Contract:
//   - MessageCount always equals len(Messages)
//   - Message timestamps are monotonically non-decreasing in append order
//   - LastEngagementScore is the score from the most recent scorer run
type Session struct {
	UserID              string         `json:"user_id"`
	ID                  string         `json:"session_id"`
	Messages            []Message      `json:"messages"`
	Context             map[string]any `json:"context,omitempty"`
	LastEngagementScore float64        `json:"last_engagement_score"`
	MessageCount        int            `json:"message_count"`
	LastUpdated         time.Time      `json:"last_updated"`
}

// NewSession creates an empty session for the given user with a fresh id.
func NewSession(userID string) *Session {
	return &Session{
		UserID:      userID,
		ID:          NewID(),
		Messages:    []Message{},
		Context:     map[string]any{},
		LastUpdated: time.Now().UTC(),
	}
}

// Append adds messages in order, keeping MessageCount and LastUpdated in sync.
func (s *Session) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
	s.MessageCount = len(s.Messages)
	s.LastUpdated = time.Now().UTC()
}

// Tail returns the most recent n messages, or all of them when n <= 0 or the
// history is shorter than n. The returned slice is a copy.
func (s *Session) Tail(n int) []Message {
	msgs := s.Messages
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	clone := &Session{
		UserID:              s.UserID,
		ID:                  s.ID,
		Messages:            make([]Message, len(s.Messages)),
		Context:             make(map[string]any, len(s.Context)),
		LastEngagementScore: s.LastEngagementScore,
		MessageCount:        s.MessageCount,
		LastUpdated:         s.LastUpdated,
	}
	copy(clone.Messages, s.Messages)
	for k, v := range s.Context {
		clone.Context[k] = v
	}
	return clone
}
