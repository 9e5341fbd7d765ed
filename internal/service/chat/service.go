package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Star2578/AINA/internal/model/chat"
	"github.com/google/uuid"
)

var (
	ErrModelRequired   = errors.New("model identifier is required")
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidRole     = errors.New("turn role must be user or assistant")
	ErrTurnNotLast     = errors.New("turn is not the last in the session")
)

// Service owns session records and their append-only turn history. It is the
// single writer surface for conversation state; exclusivity of one active
// turn per session is enforced by the dispatch controller above it, not here.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	turns    map[string][]chat.Turn
}

// NewService bootstraps the in-memory session service.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]chat.Session),
		turns:    make(map[string][]chat.Turn),
	}
}

// CreateSession provisions a session bound to a generation model.
func (s *Service) CreateSession(_ context.Context, model string) (chat.Session, error) {
	if model == "" {
		return chat.Session{}, ErrModelRequired
	}

	session := chat.Session{
		ID:        uuid.NewString(),
		Model:     model,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.turns[session.ID] = make([]chat.Turn, 0, 16)
	s.mu.Unlock()

	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// AppendTurn adds a turn to the end of the session history and stamps it with
// an ID and UTC timestamp. History is strictly append-only; the returned turn
// carries the ID needed for a later rollback.
func (s *Service) AppendTurn(_ context.Context, turn chat.Turn) (chat.Turn, error) {
	if !turn.Role.Valid() {
		return chat.Turn{}, ErrInvalidRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[turn.SessionID]; !ok {
		return chat.Turn{}, ErrSessionNotFound
	}

	turn.ID = uuid.NewString()
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], turn)
	return turn, nil
}

// RollbackTurn removes a just-appended turn. Only the last turn of the
// session may be rolled back; anything earlier is immutable history.
func (s *Service) RollbackTurn(_ context.Context, sessionID, turnID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, ok := s.turns[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if len(turns) == 0 || turns[len(turns)-1].ID != turnID {
		return ErrTurnNotLast
	}

	s.turns[sessionID] = turns[:len(turns)-1]
	return nil
}

// History returns a defensive copy of the session's ordered turns.
func (s *Service) History(_ context.Context, sessionID string) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns, ok := s.turns[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Turn, len(turns))
	copy(copied, turns)
	return copied, nil
}

// TurnCount reports the current history length.
func (s *Service) TurnCount(_ context.Context, sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns, ok := s.turns[sessionID]
	if !ok {
		return 0, ErrSessionNotFound
	}
	return len(turns), nil
}

// Reset clears the session history and re-arms the generation model. This is
// the only boundary where a model change takes effect: stale history is never
// replayed against a newly selected model. Resetting an already empty
// session is a no-op.
func (s *Service) Reset(_ context.Context, sessionID, model string) (chat.Session, error) {
	if model == "" {
		return chat.Session{}, ErrModelRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}

	session.Model = model
	s.sessions[sessionID] = session
	s.turns[sessionID] = s.turns[sessionID][:0]
	return session, nil
}

// BuildRequest packages the most recent turns into a generation request.
// Order and role labels are preserved exactly as appended. A limit below one
// means the full history.
func (s *Service) BuildRequest(_ context.Context, sessionID string, limit int) (chat.ChatRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.ChatRequest{}, ErrSessionNotFound
	}

	turns := s.turns[sessionID]
	start := 0
	if limit > 0 && len(turns) > limit {
		start = len(turns) - limit
	}

	messages := make([]chat.ChatMessage, 0, len(turns)-start)
	for _, turn := range turns[start:] {
		messages = append(messages, chat.ChatMessage{Role: turn.Role, Text: turn.Text})
	}

	return chat.ChatRequest{Model: session.Model, Messages: messages}, nil
}
