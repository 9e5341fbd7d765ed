package dispatch

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/Star2578/AINA/internal/analysis/emotion"
	"github.com/Star2578/AINA/internal/model/chat"
	"github.com/Star2578/AINA/internal/model/emote"
	"github.com/Star2578/AINA/internal/service/classify"
	chatservice "github.com/Star2578/AINA/internal/service/chat"
)

// TurnState tracks where a session's active turn currently is.
type TurnState string

const (
	StateIdle        TurnState = "idle"
	StateClassifying TurnState = "classifying"
	StateGenerating  TurnState = "generating"
	StateReady       TurnState = "ready"
	StateFailed      TurnState = "failed"
)

// TurnResult is the combined outcome of one completed user turn: the reply
// text plus the classified emotion and its display asset. A turn is
// all-or-nothing; no partial result is ever emitted.
type TurnResult struct {
	SessionID  string        `json:"sessionId"`
	Reply      string        `json:"reply"`
	Emotion    emotion.Label `json:"emotion"`
	Confidence float64       `json:"confidence"`
	Emote      emote.Emote   `json:"emote"`
}

// Generator is the external chat-generation capability.
type Generator interface {
	GenerateReply(ctx context.Context, req chat.ChatRequest) (string, error)
	StreamReply(ctx context.Context, req chat.ChatRequest) (*schema.StreamReader[*schema.Message], error)
}

// Archiver persists completed turns. Archive failures are logged, never
// surfaced: the transcript store is an observer of the pipeline, not a part
// of it.
type Archiver interface {
	ArchiveTurns(ctx context.Context, session chat.Session, turns ...chat.Turn) error
}

// Publisher pushes completed results and failure indicators to rendering
// surfaces. Fire-and-forget.
type Publisher interface {
	PublishResult(result TurnResult)
	PublishFailure(sessionID string, err error)
}

// EventSink receives generation deltas while a streamed turn is in flight.
type EventSink interface {
	OnDelta(delta string)
}

// Controller orchestrates one user turn: classify, append, generate, merge.
// It enforces a single active turn per session; the session service below it
// never sees concurrent appends for the same session.
type Controller struct {
	classifier classify.Classifier
	generator  Generator
	sessions   *chatservice.Service
	registry   *emote.Registry
	logger     *zap.Logger

	classifyTimeout time.Duration
	generateTimeout time.Duration
	historyLimit    int

	archiver  Archiver
	publisher Publisher

	mu     sync.Mutex
	states map[string]TurnState
}

// Option customizes the controller.
type Option func(*Controller)

// WithArchiver attaches a transcript archiver.
func WithArchiver(a Archiver) Option {
	return func(c *Controller) { c.archiver = a }
}

// WithPublisher attaches a rendering-surface publisher.
func WithPublisher(p Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// WithTimeouts bounds the classify and generate calls. Zero keeps the
// defaults.
func WithTimeouts(classifyTimeout, generateTimeout time.Duration) Option {
	return func(c *Controller) {
		if classifyTimeout > 0 {
			c.classifyTimeout = classifyTimeout
		}
		if generateTimeout > 0 {
			c.generateTimeout = generateTimeout
		}
	}
}

// WithHistoryLimit caps the turns packed into a generation request.
func WithHistoryLimit(limit int) Option {
	return func(c *Controller) {
		if limit > 0 {
			c.historyLimit = limit
		}
	}
}

// NewController wires the dispatch pipeline.
func NewController(classifier classify.Classifier, generator Generator, sessions *chatservice.Service, registry *emote.Registry, logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Controller{
		classifier:      classifier,
		generator:       generator,
		sessions:        sessions,
		registry:        registry,
		logger:          logger.Named("dispatch"),
		classifyTimeout: 10 * time.Second,
		generateTimeout: 60 * time.Second,
		historyLimit:    10,
		states:          make(map[string]TurnState),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State reports the session's current turn state.
func (c *Controller) State(sessionID string) TurnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if state, ok := c.states[sessionID]; ok {
		return state
	}
	return StateIdle
}

// HandleTurn runs one user turn to completion and returns its result.
func (c *Controller) HandleTurn(ctx context.Context, sessionID, text string) (TurnResult, error) {
	return c.runTurn(ctx, sessionID, text, nil)
}

// HandleTurnStream behaves like HandleTurn but forwards generation deltas to
// the sink before returning the final result. The state machine, ordering
// and rollback rules are identical.
func (c *Controller) HandleTurnStream(ctx context.Context, sessionID, text string, sink EventSink) (TurnResult, error) {
	return c.runTurn(ctx, sessionID, text, sink)
}

func (c *Controller) runTurn(ctx context.Context, sessionID, text string, sink EventSink) (TurnResult, error) {
	if strings.TrimSpace(text) == "" {
		err := newError(ErrorInvalidInput, "text is empty or whitespace", classify.ErrInvalidInput)
		if c.publisher != nil {
			c.publisher.PublishFailure(sessionID, err)
		}
		return TurnResult{}, err
	}

	session, err := c.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return TurnResult{}, err
	}

	if !c.acquire(sessionID) {
		return TurnResult{}, newError(ErrorSessionBusy, "a turn is already in flight for this session", nil)
	}
	defer c.release(sessionID)

	c.setState(sessionID, StateClassifying)
	classification, err := c.classify(ctx, text)
	if err != nil {
		// Fail fast: no generation call is made for an unclassifiable turn.
		return TurnResult{}, c.fail(sessionID, err)
	}

	userTurn, err := c.sessions.AppendTurn(ctx, chat.Turn{
		SessionID: sessionID,
		Role:      chat.RoleUser,
		Text:      text,
	})
	if err != nil {
		return TurnResult{}, c.fail(sessionID, err)
	}

	c.setState(sessionID, StateGenerating)
	reply, err := c.generate(ctx, sessionID, sink)
	if err != nil {
		// A turn is all-or-nothing: the orphan user turn is rolled back so
		// history length is exactly what it was before the call.
		if rbErr := c.sessions.RollbackTurn(ctx, sessionID, userTurn.ID); rbErr != nil {
			c.logger.Error("rollback after generation failure", zap.String("session", sessionID), zap.Error(rbErr))
		}
		return TurnResult{}, c.fail(sessionID, err)
	}

	assistantTurn, err := c.sessions.AppendTurn(ctx, chat.Turn{
		SessionID:  sessionID,
		Role:       chat.RoleAssistant,
		Text:       reply,
		Emotion:    string(classification.Label),
		Confidence: classification.Confidence,
	})
	if err != nil {
		if rbErr := c.sessions.RollbackTurn(ctx, sessionID, userTurn.ID); rbErr != nil {
			c.logger.Error("rollback after assistant append failure", zap.String("session", sessionID), zap.Error(rbErr))
		}
		return TurnResult{}, c.fail(sessionID, err)
	}

	// The registry is total over the closed label set, so the lookup always
	// succeeds for a validated classification.
	asset, _ := c.registry.Lookup(classification.Label)

	result := TurnResult{
		SessionID:  sessionID,
		Reply:      reply,
		Emotion:    classification.Label,
		Confidence: classification.Confidence,
		Emote:      asset,
	}

	c.archive(session, userTurn, assistantTurn)
	if c.publisher != nil {
		c.publisher.PublishResult(result)
	}

	c.setState(sessionID, StateReady)
	c.logger.Info("turn completed",
		zap.String("session", sessionID),
		zap.String("emotion", string(result.Emotion)),
		zap.Float64("confidence", result.Confidence))
	return result, nil
}

func (c *Controller) classify(ctx context.Context, text string) (classify.Result, error) {
	classifyCtx, cancel := context.WithTimeout(ctx, c.classifyTimeout)
	defer cancel()

	result, err := c.classifier.Classify(classifyCtx, text)
	if err == nil {
		return result, nil
	}

	var unknown *classify.UnknownLabelError
	switch {
	case errors.Is(err, classify.ErrInvalidInput):
		return classify.Result{}, newError(ErrorInvalidInput, "classifier rejected input", err)
	case errors.As(err, &unknown):
		return classify.Result{}, newError(ErrorUnknownLabel, "label outside the closed emotion set", err)
	case ctx.Err() != nil:
		return classify.Result{}, ctx.Err()
	default:
		return classify.Result{}, newError(ErrorClassifierUnavailable, "classification capability failed", err)
	}
}

func (c *Controller) generate(ctx context.Context, sessionID string, sink EventSink) (string, error) {
	req, err := c.sessions.BuildRequest(ctx, sessionID, c.historyLimit)
	if err != nil {
		return "", err
	}

	genCtx, cancel := context.WithTimeout(ctx, c.generateTimeout)
	defer cancel()

	var reply string
	if sink != nil {
		reply, err = c.streamReply(genCtx, req, sink)
	} else {
		reply, err = c.generator.GenerateReply(genCtx, req)
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", newError(ErrorGeneratorUnavailable, "generation capability failed", err)
	}
	return reply, nil
}

func (c *Controller) streamReply(ctx context.Context, req chat.ChatRequest, sink EventSink) (string, error) {
	stream, err := c.generator.StreamReply(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var builder strings.Builder
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if msg.Content == "" {
			continue
		}
		builder.WriteString(msg.Content)
		sink.OnDelta(msg.Content)
	}
	return strings.TrimSpace(builder.String()), nil
}

// archive saves a completed turn pair when a transcript store is configured.
// Failures never fail the turn.
func (c *Controller) archive(session chat.Session, turns ...chat.Turn) {
	if c.archiver == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.archiver.ArchiveTurns(ctx, session, turns...); err != nil {
		c.logger.Warn("transcript archive failed", zap.String("session", session.ID), zap.Error(err))
	}
}

// fail records the failed transition, notifies surfaces, and hands the error
// back to the caller. The deferred release returns the session to idle.
func (c *Controller) fail(sessionID string, err error) error {
	c.setState(sessionID, StateFailed)
	if c.publisher != nil {
		c.publisher.PublishFailure(sessionID, err)
	}
	c.logger.Warn("turn failed", zap.String("session", sessionID), zap.Error(err))
	return err
}

func (c *Controller) acquire(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if state, ok := c.states[sessionID]; ok && state != StateIdle {
		return false
	}
	c.states[sessionID] = StateClassifying
	return true
}

func (c *Controller) release(sessionID string) {
	c.mu.Lock()
	delete(c.states, sessionID)
	c.mu.Unlock()
}

func (c *Controller) setState(sessionID string, state TurnState) {
	c.mu.Lock()
	c.states[sessionID] = state
	c.mu.Unlock()
}
