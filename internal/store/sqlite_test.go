package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Star2578/AINA/internal/model/chat"
)

func newTestStore(t *testing.T) *TranscriptStore {
	t.Helper()
	s, err := NewTranscriptStore(filepath.Join(t.TempDir(), "aina.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestArchiveAndReadTranscript(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := chat.Session{ID: "s1", Model: "tinyllama", CreatedAt: time.Now().UTC()}
	base := time.Now().UTC()
	user := chat.Turn{ID: "t1", SessionID: "s1", Role: chat.RoleUser, Text: "สวัสดี", CreatedAt: base}
	assistant := chat.Turn{
		ID: "t2", SessionID: "s1", Role: chat.RoleAssistant, Text: "สวัสดีค่ะ",
		Emotion: "idle", Confidence: 0.9, CreatedAt: base.Add(time.Second),
	}

	require.NoError(t, s.ArchiveTurns(ctx, session, user, assistant))

	turns, err := s.Transcript(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, chat.RoleUser, turns[0].Role)
	require.Equal(t, "สวัสดี", turns[0].Text)
	require.Empty(t, turns[0].Emotion)
	require.Equal(t, "idle", turns[1].Emotion)
	require.InDelta(t, 0.9, turns[1].Confidence, 1e-9)
}

func TestArchiveSessionIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := chat.Session{ID: "s1", Model: "tinyllama", CreatedAt: time.Now().UTC()}
	turnA := chat.Turn{ID: "a", SessionID: "s1", Role: chat.RoleUser, Text: "x", CreatedAt: time.Now().UTC()}
	turnB := chat.Turn{ID: "b", SessionID: "s1", Role: chat.RoleAssistant, Text: "y", CreatedAt: time.Now().UTC()}

	require.NoError(t, s.ArchiveTurns(ctx, session, turnA))
	require.NoError(t, s.ArchiveTurns(ctx, session, turnB))

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, "tinyllama", sessions[0].Model)
}

func TestTranscriptEmptySession(t *testing.T) {
	s := newTestStore(t)

	turns, err := s.Transcript(context.Background(), "unknown")
	require.NoError(t, err)
	require.Empty(t, turns)
}
