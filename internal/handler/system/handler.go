package system

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Star2578/AINA/internal/config"
	"github.com/Star2578/AINA/pkg/utils"
)

// Handler exposes the configuration surface and the health probe.
type Handler struct {
	cfg      *config.Config
	settings *config.Settings
	logger   *zap.Logger
}

// New creates the system handler.
func New(cfg *config.Config, settings *config.Settings, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{cfg: cfg, settings: settings, logger: logger.Named("system")}
}

// RegisterRoutes mounts the config and health routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/config", h.handleGetConfig)
	r.Put("/config/model", h.handleSetModel)
	r.Get("/healthz", h.handleHealth)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"provider":           h.cfg.LLM.Provider,
		"model":              h.settings.Model(),
		"historyLimit":       h.cfg.LLM.HistoryLimit,
		"stream":             h.cfg.LLM.Stream,
		"classifierProvider": h.cfg.Classifier.Provider,
		"transcriptArchive":  h.cfg.Transcript.Enabled(),
	})
}

// handleSetModel selects the model for sessions created or reset afterwards.
// Live sessions keep their model until an explicit reset; that boundary is
// the documented operational contract, not an oversight.
func (h *Handler) handleSetModel(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.settings.SetModel(payload.Model); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("generation model selected", zap.String("model", payload.Model))
	utils.RespondJSON(w, http.StatusOK, map[string]string{"model": payload.Model})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
