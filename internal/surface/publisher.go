package surface

import (
	"go.uber.org/zap"

	"github.com/Star2578/AINA/internal/service/dispatch"
)

// Event is the envelope pushed to rendering surfaces.
type Event struct {
	Type      string               `json:"type"`
	SessionID string               `json:"sessionId"`
	Result    *dispatch.TurnResult `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
	Code      string               `json:"code,omitempty"`
}

// Publisher adapts the hub to the dispatch controller's publisher hook.
type Publisher struct {
	hub    *Hub
	logger *zap.Logger
}

// NewPublisher creates the hub-backed publisher.
func NewPublisher(hub *Hub, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{hub: hub, logger: logger.Named("surface")}
}

// PublishResult pushes a completed turn to watching surfaces.
func (p *Publisher) PublishResult(result dispatch.TurnResult) {
	event := Event{Type: "turn.result", SessionID: result.SessionID, Result: &result}
	if err := p.hub.BroadcastJSON(result.SessionID, event); err != nil {
		p.logger.Warn("broadcast turn result", zap.Error(err))
	}
}

// PublishFailure pushes an error indicator; failed turns show no emote.
func (p *Publisher) PublishFailure(sessionID string, err error) {
	event := Event{
		Type:      "turn.failed",
		SessionID: sessionID,
		Error:     err.Error(),
		Code:      string(dispatch.CodeOf(err)),
	}
	if bErr := p.hub.BroadcastJSON(sessionID, event); bErr != nil {
		p.logger.Warn("broadcast turn failure", zap.Error(bErr))
	}
}
