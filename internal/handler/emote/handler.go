package emote

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Star2578/AINA/internal/analysis/emotion"
	"github.com/Star2578/AINA/internal/model/emote"
	"github.com/Star2578/AINA/pkg/utils"
)

// Handler serves the emote registry to rendering clients.
type Handler struct {
	registry *emote.Registry
}

// New creates the emote handler.
func New(registry *emote.Registry) *Handler {
	return &Handler{registry: registry}
}

// RegisterRoutes mounts the emote routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/emotes", h.handleList)
	r.Get("/emotes/{label}", h.handleGet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.registry.All())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	label, ok := emotion.ParseLabel(chi.URLParam(r, "label"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "unknown emotion label")
		return
	}

	entry, ok := h.registry.Lookup(label)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "unknown emotion label")
		return
	}

	utils.RespondJSON(w, http.StatusOK, entry)
}
