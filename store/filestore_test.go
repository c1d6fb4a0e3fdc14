package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asim800/chatLangGraph/core"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func testTurn(userID, sessionID, userText, assistantText string) core.Turn {
	return core.Turn{
		UserID:           userID,
		SessionID:        sessionID,
		UserMessage:      core.NewUserMessage(userText),
		AssistantMessage: core.NewAssistantMessage(assistantText),
		EngagementScore:  0.5,
	}
}

func TestFileStore_AppendAndGet(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	sess, err := s.AppendTurn(ctx, testTurn("alice", "s1", "hello", "hi!"))
	require.NoError(t, err)
	assert.Equal(t, 2, sess.MessageCount)

	got, err := s.GetSession(ctx, "alice", "s1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserID)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "hello", got.Messages[0].Content)
	assert.Equal(t, "hi!", got.Messages[1].Content)
	assert.Equal(t, 0.5, got.LastEngagementScore)
}

func TestFileStore_GetSession_NotFound(t *testing.T) {
	s := newTestFileStore(t)
	_, err := s.GetSession(context.Background(), "alice", "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestFileStore_CrossUserSessionCollision(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	_, err := s.AppendTurn(ctx, testTurn("alice", "shared", "hi", "hello"))
	require.NoError(t, err)

	_, err = s.AppendTurn(ctx, testTurn("bob", "shared", "hi", "hello"))
	assert.ErrorIs(t, err, core.ErrStorage)

	// Alice's session is untouched.
	sess, err := s.GetSession(ctx, "alice", "shared")
	require.NoError(t, err)
	assert.Equal(t, 2, sess.MessageCount)
}

func TestFileStore_HistoryOrderAndLimit(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	const turns = 6
	for i := 0; i < turns; i++ {
		_, err := s.AppendTurn(ctx, testTurn("alice", "s1",
			fmt.Sprintf("user %d", i), fmt.Sprintf("assistant %d", i)))
		require.NoError(t, err)
	}

	all, err := s.GetHistory(ctx, "alice", "s1", 0)
	require.NoError(t, err)
	require.Len(t, all, 2*turns)
	for i := 0; i < turns; i++ {
		assert.Equal(t, fmt.Sprintf("user %d", i), all[2*i].Content)
		assert.Equal(t, fmt.Sprintf("assistant %d", i), all[2*i+1].Content)
	}

	tail, err := s.GetHistory(ctx, "alice", "s1", 3)
	require.NoError(t, err)
	require.Len(t, tail, 3)
	assert.Equal(t, "assistant 5", tail[2].Content)
}

func TestFileStore_ConcurrentDistinctSessions(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.AppendTurn(ctx, testTurn("alice", fmt.Sprintf("s%d", i), "hi", "hello"))
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
	}
	ids, err := s.ListSessions(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, ids, n)
}

func TestFileStore_ConcurrentSameSession_NoLostTurns(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AppendTurn(ctx, testTurn("alice", "s1",
				fmt.Sprintf("user %d", i), fmt.Sprintf("assistant %d", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	sess, err := s.GetSession(ctx, "alice", "s1")
	require.NoError(t, err)
	assert.Equal(t, 2*n, sess.MessageCount)
	assert.Len(t, sess.Messages, 2*n)
}

func TestFileStore_ListSessions_MostRecentFirst(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	for _, id := range []string{"first", "second", "third"} {
		_, err := s.AppendTurn(ctx, testTurn("alice", id, "hi", "hello"))
		require.NoError(t, err)
		// ModTime granularity on some filesystems is coarse.
		time.Sleep(10 * time.Millisecond)
	}
	_, err := s.AppendTurn(ctx, testTurn("bob", "other", "hi", "hello"))
	require.NoError(t, err)

	ids, err := s.ListSessions(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, ids)
}

func TestFileStore_SystemPrompts(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	_, err := s.GetSystemPrompt(ctx, "s1")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, s.StoreSystemPrompt(ctx, "s1", "Be brief."))
	prompt, err := s.GetSystemPrompt(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", prompt)

	// The latest prompt wins.
	require.NoError(t, s.StoreSystemPrompt(ctx, "s1", "Be verbose."))
	prompt, err = s.GetSystemPrompt(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Be verbose.", prompt)
}

func TestFileStore_ExportInteractions(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.AppendTurn(ctx, testTurn("alice", "s1", fmt.Sprintf("q%d", i), "a"))
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err := s.AppendTurn(ctx, testTurn("bob", "s2", fmt.Sprintf("q%d", i), "a"))
		require.NoError(t, err)
	}

	cur, err := s.ExportInteractions(ctx, time.Time{})
	require.NoError(t, err)

	var count int
	sessions := map[string]int{}
	for rec, ok := cur.Next(); ok; rec, ok = cur.Next() {
		count++
		sessions[rec.SessionID]++
		require.Len(t, rec.Messages, 2)
	}
	require.NoError(t, cur.Err())
	assert.Equal(t, 5, count)
	assert.Equal(t, 3, sessions["s1"])
	assert.Equal(t, 2, sessions["s2"])
}

func TestFileStore_ExportSinceFilter(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	_, err := s.AppendTurn(ctx, testTurn("alice", "s1", "old", "a"))
	require.NoError(t, err)

	cutoff := time.Now().UTC().Add(time.Hour)
	cur, err := s.ExportInteractions(ctx, cutoff)
	require.NoError(t, err)
	_, ok := cur.Next()
	assert.False(t, ok)
	assert.NoError(t, cur.Err())
}

func TestFileStore_ExportCancellation(t *testing.T) {
	s := newTestFileStore(t)

	_, err := s.AppendTurn(context.Background(), testTurn("alice", "s1", "hi", "a"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cur, err := s.ExportInteractions(ctx, time.Time{})
	require.NoError(t, err)
	cancel()

	_, ok := cur.Next()
	assert.False(t, ok)
	assert.ErrorIs(t, cur.Err(), core.ErrStorage)
}

func TestFileStore_DeleteSession(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	_, err := s.AppendTurn(ctx, testTurn("alice", "s1", "hi", "hello"))
	require.NoError(t, err)
	require.NoError(t, s.StoreSystemPrompt(ctx, "s1", "Be brief."))

	require.NoError(t, s.DeleteSession(ctx, "alice", "s1"))
	_, err = s.GetSession(ctx, "alice", "s1")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.GetSystemPrompt(ctx, "s1")
	assert.ErrorIs(t, err, core.ErrNotFound)

	// Idempotent.
	require.NoError(t, s.DeleteSession(ctx, "alice", "s1"))

	// Interaction snapshots survive deletion.
	cur, err := s.ExportInteractions(ctx, time.Time{})
	require.NoError(t, err)
	_, ok := cur.Next()
	assert.True(t, ok)
}

func TestFileStore_NoTempFilesLeftBehind(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileStore(root)
	require.NoError(t, err)

	_, err = s.AppendTurn(context.Background(), testTurn("alice", "s1", "hi", "hello"))
	require.NoError(t, err)

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			assert.False(t, strings.HasPrefix(d.Name(), ".tmp-"), "leftover temp file %s", path)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestFileStore_ReopenSeesData(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	s1, err := NewFileStore(root)
	require.NoError(t, err)
	_, err = s1.AppendTurn(ctx, testTurn("alice", "s1", "hi", "hello"))
	require.NoError(t, err)

	s2, err := NewFileStore(root)
	require.NoError(t, err)
	sess, err := s2.GetSession(ctx, "alice", "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, sess.MessageCount)
}
