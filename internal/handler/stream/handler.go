package stream

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Star2578/AINA/internal/service/dispatch"
	"github.com/Star2578/AINA/pkg/utils"
)

// Handler streams a turn over Server-Sent Events: generation deltas as they
// arrive, then the merged result. A failed turn ends with an error event and
// no emote.
type Handler struct {
	controller *dispatch.Controller
	logger     *zap.Logger
}

// New creates the stream handler.
func New(controller *dispatch.Controller, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{controller: controller, logger: logger.Named("stream")}
}

// RegisterRoutes mounts the streaming turn endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/stream", h.handleStream)
}

// StreamResponse is one streamed event frame.
type StreamResponse struct {
	Event     string               `json:"event"`
	Content   string               `json:"content,omitempty"`
	SessionID string               `json:"sessionId,omitempty"`
	Result    *dispatch.TurnResult `json:"result,omitempty"`
	Code      string               `json:"code,omitempty"`
	Finished  bool                 `json:"finished,omitempty"`
	Error     string               `json:"error,omitempty"`
}

type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	session string
}

func (s *sseSink) OnDelta(delta string) {
	utils.SendSSEChunk(s.w, s.flusher, StreamResponse{
		Event:     "delta",
		SessionID: s.session,
		Content:   delta,
	})
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	message := r.URL.Query().Get("message")

	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	utils.SendSSEChunk(w, flusher, StreamResponse{Event: "start", SessionID: sessionID})

	sink := &sseSink{w: w, flusher: flusher, session: sessionID}
	result, err := h.controller.HandleTurnStream(r.Context(), sessionID, message, sink)
	if err != nil {
		h.logger.Warn("streamed turn failed", zap.String("session", sessionID), zap.Error(err))
		utils.SendSSEChunk(w, flusher, StreamResponse{
			Event:     "error",
			SessionID: sessionID,
			Error:     err.Error(),
			Code:      string(dispatch.CodeOf(err)),
			Finished:  true,
		})
		return
	}

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   result.Reply,
	})
	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "emotion",
		SessionID: sessionID,
		Result:    &result,
	})
	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})
}
