package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Star2578/AINA/internal/config"
	"github.com/Star2578/AINA/internal/model/chat"
	chatservice "github.com/Star2578/AINA/internal/service/chat"
	"github.com/Star2578/AINA/internal/service/dispatch"
	"github.com/Star2578/AINA/pkg/utils"
)

// TranscriptReader serves archived conversations when a transcript store is
// configured.
type TranscriptReader interface {
	Sessions(ctx context.Context) ([]chat.Session, error)
	Transcript(ctx context.Context, sessionID string) ([]chat.Turn, error)
}

// Handler exposes session lifecycle and the synchronous turn endpoint.
type Handler struct {
	sessions    *chatservice.Service
	controller  *dispatch.Controller
	settings    *config.Settings
	transcripts TranscriptReader
	logger      *zap.Logger
}

// New creates the session handler. transcripts may be nil when archiving is
// disabled.
func New(sessions *chatservice.Service, controller *dispatch.Controller, settings *config.Settings, transcripts TranscriptReader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sessions:    sessions,
		controller:  controller,
		settings:    settings,
		transcripts: transcripts,
		logger:      logger.Named("session"),
	}
}

// RegisterRoutes mounts the session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Post("/sessions/{sessionID}/reset", h.handleResetSession)
	r.Get("/sessions/{sessionID}/turns", h.handleListTurns)
	r.Post("/sessions/{sessionID}/turns", h.handleTurn)
	r.Get("/transcripts", h.handleListTranscripts)
	r.Get("/transcripts/{sessionID}", h.handleTranscript)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Model string `json:"model"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	model := payload.Model
	if model == "" {
		model = h.settings.Model()
	}

	session, err := h.sessions.CreateSession(r.Context(), model)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("session created", zap.String("session", session.ID), zap.String("model", session.Model))
	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	turnCount, err := h.sessions.TurnCount(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"session":   session,
		"state":     h.controller.State(sessionID),
		"turnCount": turnCount,
	})
}

func (h *Handler) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Model string `json:"model"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	model := payload.Model
	if model == "" {
		model = h.settings.Model()
	}

	session, err := h.sessions.Reset(r.Context(), sessionID, model)
	if err != nil {
		if errors.Is(err, chatservice.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("session reset", zap.String("session", session.ID), zap.String("model", session.Model))
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleListTurns(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	history, err := h.sessions.History(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, history)
}

func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.controller.HandleTurn(r.Context(), sessionID, payload.Text)
	if err != nil {
		respondTurnError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListTranscripts(w http.ResponseWriter, r *http.Request) {
	if h.transcripts == nil {
		utils.RespondError(w, http.StatusNotFound, "transcript archive is not configured")
		return
	}

	sessions, err := h.transcripts.Sessions(r.Context())
	if err != nil {
		h.logger.Error("list archived sessions", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to list transcripts")
		return
	}

	utils.RespondJSON(w, http.StatusOK, sessions)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if h.transcripts == nil {
		utils.RespondError(w, http.StatusNotFound, "transcript archive is not configured")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	turns, err := h.transcripts.Transcript(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("read transcript", zap.String("session", sessionID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to read transcript")
		return
	}

	utils.RespondJSON(w, http.StatusOK, turns)
}

// respondTurnError maps dispatch error codes onto HTTP statuses.
func respondTurnError(w http.ResponseWriter, err error) {
	if errors.Is(err, chatservice.ErrSessionNotFound) {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	code := dispatch.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case dispatch.ErrorInvalidInput:
		status = http.StatusBadRequest
	case dispatch.ErrorSessionBusy:
		status = http.StatusConflict
	case dispatch.ErrorUnknownLabel:
		status = http.StatusUnprocessableEntity
	case dispatch.ErrorClassifierUnavailable, dispatch.ErrorGeneratorUnavailable:
		status = http.StatusServiceUnavailable
	}

	utils.RespondCodedError(w, status, string(code), err.Error())
}
