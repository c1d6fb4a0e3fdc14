package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/asim800/chatLangGraph/core"
	"github.com/asim800/chatLangGraph/logging"
)

const (
	conversationsDir = "conversations"
	interactionsDir  = "interactions"
	systemPromptsDir = "system_prompts"
)

// FileStore is a durable core.Store keeping one JSON document per session,
// one per interaction snapshot and one per session system prompt.
//
// Concurrency: writers are serialized per session via a keyed mutex; turns
// for different sessions proceed in parallel. Reads go straight to disk, so
// they observe only fully renamed documents.
type FileStore struct {
	root   string
	logger logging.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Options configures the FileStore.
type Options struct {
	// Logger receives structured diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// NewFileStore creates the backing directories under root and returns a
// ready-to-use store.
func NewFileStore(root string, optFns ...func(o *Options)) (*FileStore, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	for _, dir := range []string{conversationsDir, interactionsDir, systemPromptsDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", core.ErrStorage, dir, err)
		}
	}

	return &FileStore{
		root:   root,
		logger: opts.Logger,
		locks:  map[string]*sync.Mutex{},
	}, nil
}

// sessionLock returns the mutex guarding a single session's read-modify-write
// cycle, creating it lazily.
func (s *FileStore) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

func (s *FileStore) conversationPath(userID, sessionID string) string {
	return filepath.Join(s.root, conversationsDir, fmt.Sprintf("%s_%s.json", userID, sessionID))
}

func (s *FileStore) promptPath(sessionID string) string {
	return filepath.Join(s.root, systemPromptsDir, sessionID+".json")
}

// AppendTurn implements core.Store. The session lock is held only around the
// read-modify-write of the stored documents, never around generation.
func (s *FileStore) AppendTurn(ctx context.Context, turn core.Turn) (*core.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: append_turn: %v", core.ErrStorage, err)
	}

	lock := s.sessionLock(turn.SessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.readSession(turn.UserID, turn.SessionID)
	switch {
	case err == nil:
	case isNotFound(err):
		// First turn for this session. Guard against the id being owned by a
		// different user before creating it.
		if owner, ownerErr := s.sessionOwner(turn.SessionID); ownerErr == nil && owner != turn.UserID {
			return nil, fmt.Errorf("%w: session %s already owned by another user", core.ErrStorage, turn.SessionID)
		}
		sess = &core.Session{
			UserID:   turn.UserID,
			ID:       turn.SessionID,
			Messages: []core.Message{},
			Context:  map[string]any{},
		}
	default:
		return nil, err
	}

	sess.Append(turn.UserMessage, turn.AssistantMessage)
	sess.LastEngagementScore = turn.EngagementScore
	for k, v := range turn.Context {
		sess.Context[k] = v
	}

	if err := s.writeJSON(s.conversationPath(turn.UserID, turn.SessionID), sess); err != nil {
		return nil, err
	}

	rec := core.NewInteraction(turn)
	recPath := filepath.Join(s.root, interactionsDir,
		fmt.Sprintf("%s_%s_%s.json", rec.UserID, rec.SessionID, rec.ID))
	if err := s.writeJSON(recPath, rec); err != nil {
		return nil, err
	}

	s.logger.Debug("store.turn.appended",
		"session_id", turn.SessionID, "message_count", sess.MessageCount, "degraded", turn.Degraded)

	return sess.Clone(), nil
}

// sessionOwner scans the conversations directory for an existing document for
// sessionID and returns its owning user id.
func (s *FileStore) sessionOwner(sessionID string) (string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, conversationsDir))
	if err != nil {
		return "", fmt.Errorf("%w: list conversations: %v", core.ErrStorage, err)
	}
	suffix := "_" + sessionID + ".json"
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), suffix) {
			return strings.TrimSuffix(e.Name(), suffix), nil
		}
	}
	return "", core.ErrNotFound
}

// GetSession implements core.Store.
func (s *FileStore) GetSession(_ context.Context, userID, sessionID string) (*core.Session, error) {
	return s.readSession(userID, sessionID)
}

// GetHistory implements core.Store.
func (s *FileStore) GetHistory(ctx context.Context, userID, sessionID string, limit int) ([]core.Message, error) {
	sess, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Tail(limit), nil
}

// ListSessions implements core.Store, most recently updated first.
func (s *FileStore) ListSessions(_ context.Context, userID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, conversationsDir))
	if err != nil {
		return nil, fmt.Errorf("%w: list conversations: %v", core.ErrStorage, err)
	}

	type entry struct {
		id  string
		mod time.Time
	}
	var found []entry
	prefix := userID + "_"
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json")
		found = append(found, entry{id: id, mod: info.ModTime()})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].mod.After(found[j].mod) })

	ids := make([]string, len(found))
	for i, e := range found {
		ids[i] = e.id
	}
	return ids, nil
}

// systemPromptDoc is the on-disk representation of a session's instruction.
type systemPromptDoc struct {
	SessionID    string    `json:"session_id"`
	SystemPrompt string    `json:"system_prompt"`
	Timestamp    time.Time `json:"timestamp"`
}

// StoreSystemPrompt implements core.Store; the latest prompt wins.
func (s *FileStore) StoreSystemPrompt(_ context.Context, sessionID, prompt string) error {
	doc := systemPromptDoc{SessionID: sessionID, SystemPrompt: prompt, Timestamp: time.Now().UTC()}
	return s.writeJSON(s.promptPath(sessionID), doc)
}

// GetSystemPrompt implements core.Store.
func (s *FileStore) GetSystemPrompt(_ context.Context, sessionID string) (string, error) {
	data, err := os.ReadFile(s.promptPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: system prompt for session %s", core.ErrNotFound, sessionID)
		}
		return "", fmt.Errorf("%w: read system prompt: %v", core.ErrStorage, err)
	}
	var doc systemPromptDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("%w: decode system prompt: %v", core.ErrStorage, err)
	}
	return doc.SystemPrompt, nil
}

// DeleteSession implements core.Store. Interaction snapshots are analytic
// records and survive session deletion.
func (s *FileStore) DeleteSession(_ context.Context, userID, sessionID string) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	for _, path := range []string{s.conversationPath(userID, sessionID), s.promptPath(sessionID)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: delete %s: %v", core.ErrStorage, filepath.Base(path), err)
		}
	}
	return nil
}

func (s *FileStore) readSession(userID, sessionID string) (*core.Session, error) {
	data, err := os.ReadFile(s.conversationPath(userID, sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: session %s", core.ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("%w: read session %s: %v", core.ErrStorage, sessionID, err)
	}

	var sess core.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: decode session %s: %v", core.ErrStorage, sessionID, err)
	}
	if sess.Context == nil {
		sess.Context = map[string]any{}
	}
	return &sess, nil
}

// writeJSON persists a document with write-to-temp, fsync, atomic rename so a
// crash mid-write never leaves a truncated file under the final name.
func (s *FileStore) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", core.ErrStorage, filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrStorage, filepath.Base(path), err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", core.ErrStorage, filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", core.ErrStorage, filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", core.ErrStorage, filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", core.ErrStorage, filepath.Base(path), err)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
