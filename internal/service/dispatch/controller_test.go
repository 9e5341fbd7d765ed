package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Star2578/AINA/internal/analysis/emotion"
	"github.com/Star2578/AINA/internal/model/chat"
	"github.com/Star2578/AINA/internal/model/emote"
	"github.com/Star2578/AINA/internal/service/classify"
	chatservice "github.com/Star2578/AINA/internal/service/chat"
)

type fakeClassifier struct {
	mu     sync.Mutex
	result classify.Result
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(_ context.Context, text string) (classify.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if strings.TrimSpace(text) == "" {
		return classify.Result{}, classify.ErrInvalidInput
	}
	if f.err != nil {
		return classify.Result{}, f.err
	}
	return f.result, nil
}

type fakeGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
	block chan struct{}
	calls int
}

func (f *fakeGenerator) GenerateReply(ctx context.Context, _ chat.ChatRequest) (string, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeGenerator) StreamReply(ctx context.Context, req chat.ChatRequest) (*schema.StreamReader[*schema.Message], error) {
	reply, err := f.GenerateReply(ctx, req)
	if err != nil {
		return nil, err
	}

	chunks := make([]*schema.Message, 0, len(reply))
	for _, r := range reply {
		chunks = append(chunks, schema.AssistantMessage(string(r), nil))
	}
	return schema.StreamReaderFromArray(chunks), nil
}

type recordingSink struct {
	mu     sync.Mutex
	deltas []string
}

func (s *recordingSink) OnDelta(delta string) {
	s.mu.Lock()
	s.deltas = append(s.deltas, delta)
	s.mu.Unlock()
}

func newTestController(t *testing.T, cls *fakeClassifier, gen *fakeGenerator, opts ...Option) (*Controller, *chatservice.Service, chat.Session) {
	t.Helper()

	registry, err := emote.NewRegistry(emote.Seed())
	require.NoError(t, err)

	sessions := chatservice.NewService()
	session, err := sessions.CreateSession(context.Background(), "tinyllama")
	require.NoError(t, err)

	ctrl := NewController(cls, gen, sessions, registry, zap.NewNop(), opts...)
	return ctrl, sessions, session
}

func TestHandleTurnThaiHappyPath(t *testing.T) {
	cls := &fakeClassifier{result: classify.Result{Label: emotion.Idle, Confidence: 0.92}}
	gen := &fakeGenerator{reply: "ดีใจด้วยนะ!"}
	ctrl, sessions, session := newTestController(t, cls, gen)

	result, err := ctrl.HandleTurn(context.Background(), session.ID, "ฉันมีความสุขมาก")
	require.NoError(t, err)
	require.Equal(t, emotion.Idle, result.Emotion)
	require.InDelta(t, 0.92, result.Confidence, 1e-9)
	require.Equal(t, "ดีใจด้วยนะ!", result.Reply)
	require.Equal(t, "assets/emotes/idle.webm", result.Emote.Asset)

	history, err := sessions.History(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, chat.RoleUser, history[0].Role)
	require.Equal(t, chat.RoleAssistant, history[1].Role)
	require.Equal(t, string(emotion.Idle), history[1].Emotion)
	require.Equal(t, StateIdle, ctrl.State(session.ID))
}

func TestHandleTurnInvalidInput(t *testing.T) {
	cls := &fakeClassifier{}
	gen := &fakeGenerator{reply: "x"}
	ctrl, _, session := newTestController(t, cls, gen)

	_, err := ctrl.HandleTurn(context.Background(), session.ID, "   ")
	require.Equal(t, ErrorInvalidInput, CodeOf(err))
	require.Zero(t, cls.calls, "classifier must not be invoked for empty input")
	require.Zero(t, gen.calls)
	require.Equal(t, StateIdle, ctrl.State(session.ID))
}

func TestHandleTurnUnknownSession(t *testing.T) {
	ctrl, _, _ := newTestController(t, &fakeClassifier{}, &fakeGenerator{})

	_, err := ctrl.HandleTurn(context.Background(), "missing", "สวัสดี")
	require.ErrorIs(t, err, chatservice.ErrSessionNotFound)
}

func TestHandleTurnUnknownLabelSkipsGeneration(t *testing.T) {
	cls := &fakeClassifier{err: &classify.UnknownLabelError{Label: "Confused"}}
	gen := &fakeGenerator{reply: "x"}
	ctrl, sessions, session := newTestController(t, cls, gen)

	_, err := ctrl.HandleTurn(context.Background(), session.ID, "งง")
	require.Equal(t, ErrorUnknownLabel, CodeOf(err))
	require.Zero(t, gen.calls, "generation must not run after a failed classification")

	history, _ := sessions.History(context.Background(), session.ID)
	require.Empty(t, history, "history must be unchanged")
}

func TestHandleTurnClassifierUnavailable(t *testing.T) {
	cls := &fakeClassifier{err: classify.ErrUnavailable}
	gen := &fakeGenerator{reply: "x"}
	ctrl, sessions, session := newTestController(t, cls, gen)

	_, err := ctrl.HandleTurn(context.Background(), session.ID, "สวัสดี")
	require.Equal(t, ErrorClassifierUnavailable, CodeOf(err))
	require.Zero(t, gen.calls)

	history, _ := sessions.History(context.Background(), session.ID)
	require.Empty(t, history)
}

func TestHandleTurnGenerationFailureRollsBack(t *testing.T) {
	cls := &fakeClassifier{result: classify.Result{Label: emotion.Sad, Confidence: 0.8}}
	gen := &fakeGenerator{err: errors.New("ollama unreachable")}
	ctrl, sessions, session := newTestController(t, cls, gen)

	_, err := ctrl.HandleTurn(context.Background(), session.ID, "เศร้าจัง")
	require.Equal(t, ErrorGeneratorUnavailable, CodeOf(err))

	history, _ := sessions.History(context.Background(), session.ID)
	require.Empty(t, history, "no orphan user turn after generation failure")
	require.Equal(t, StateIdle, ctrl.State(session.ID))
}

func TestHandleTurnCancellationRollsBack(t *testing.T) {
	cls := &fakeClassifier{result: classify.Result{Label: emotion.Idle, Confidence: 0.6}}
	gen := &fakeGenerator{reply: "x", block: make(chan struct{})}
	ctrl, sessions, session := newTestController(t, cls, gen)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := ctrl.HandleTurn(ctx, session.ID, "สวัสดี")
		errCh <- err
	}()

	// Wait for the turn to reach generation, then cancel it mid-flight.
	require.Eventually(t, func() bool {
		return ctrl.State(session.ID) == StateGenerating
	}, time.Second, 5*time.Millisecond)
	cancel()

	err := <-errCh
	require.ErrorIs(t, err, context.Canceled)

	history, _ := sessions.History(context.Background(), session.ID)
	require.Empty(t, history, "cancelled turn must leave history untouched")
	require.Equal(t, StateIdle, ctrl.State(session.ID))
}

func TestHandleTurnSessionBusy(t *testing.T) {
	cls := &fakeClassifier{result: classify.Result{Label: emotion.Idle, Confidence: 0.6}}
	gen := &fakeGenerator{reply: "ok", block: make(chan struct{})}
	ctrl, _, session := newTestController(t, cls, gen)

	errCh := make(chan error, 1)
	go func() {
		_, err := ctrl.HandleTurn(context.Background(), session.ID, "first")
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		return ctrl.State(session.ID) == StateGenerating
	}, time.Second, 5*time.Millisecond)

	_, err := ctrl.HandleTurn(context.Background(), session.ID, "second")
	require.Equal(t, ErrorSessionBusy, CodeOf(err))

	close(gen.block)
	require.NoError(t, <-errCh)
}

func TestHandleTurnStreamForwardsDeltas(t *testing.T) {
	cls := &fakeClassifier{result: classify.Result{Label: emotion.Surprise, Confidence: 0.75}}
	gen := &fakeGenerator{reply: "ว้าว"}
	ctrl, _, session := newTestController(t, cls, gen)

	sink := &recordingSink{}
	result, err := ctrl.HandleTurnStream(context.Background(), session.ID, "ทายสิว่าเกิดอะไรขึ้น!", sink)
	require.NoError(t, err)
	require.Equal(t, "ว้าว", result.Reply)
	require.Equal(t, emotion.Surprise, result.Emotion)
	require.Equal(t, "ว้าว", strings.Join(sink.deltas, ""))
}

func TestHandleTurnSequentialTurnsGrowHistory(t *testing.T) {
	cls := &fakeClassifier{result: classify.Result{Label: emotion.Idle, Confidence: 0.5}}
	gen := &fakeGenerator{reply: "ok"}
	ctrl, sessions, session := newTestController(t, cls, gen)

	const turns = 3
	for i := 0; i < turns; i++ {
		_, err := ctrl.HandleTurn(context.Background(), session.ID, "สวัสดี")
		require.NoError(t, err)
	}

	history, _ := sessions.History(context.Background(), session.ID)
	require.Len(t, history, 2*turns)
}

type recordingPublisher struct {
	mu       sync.Mutex
	results  []TurnResult
	failures []string
}

func (p *recordingPublisher) PublishResult(result TurnResult) {
	p.mu.Lock()
	p.results = append(p.results, result)
	p.mu.Unlock()
}

func (p *recordingPublisher) PublishFailure(sessionID string, _ error) {
	p.mu.Lock()
	p.failures = append(p.failures, sessionID)
	p.mu.Unlock()
}

func TestHandleTurnPublishesResult(t *testing.T) {
	cls := &fakeClassifier{result: classify.Result{Label: emotion.Smirk, Confidence: 0.66}}
	gen := &fakeGenerator{reply: "แหม"}
	pub := &recordingPublisher{}
	ctrl, _, session := newTestController(t, cls, gen, WithPublisher(pub))

	_, err := ctrl.HandleTurn(context.Background(), session.ID, "แกล้งทายดูสิ")
	require.NoError(t, err)
	require.Len(t, pub.results, 1)
	require.Equal(t, emotion.Smirk, pub.results[0].Emotion)
	require.Empty(t, pub.failures)
}

func TestHandleTurnPublishesFailure(t *testing.T) {
	cls := &fakeClassifier{err: classify.ErrUnavailable}
	pub := &recordingPublisher{}
	ctrl, _, session := newTestController(t, cls, &fakeGenerator{}, WithPublisher(pub))

	_, err := ctrl.HandleTurn(context.Background(), session.ID, "สวัสดี")
	require.Error(t, err)
	require.Equal(t, []string{session.ID}, pub.failures)
}
