package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Star2578/AINA/internal/config"
	emoteHandler "github.com/Star2578/AINA/internal/handler/emote"
	sessionHandler "github.com/Star2578/AINA/internal/handler/session"
	streamHandler "github.com/Star2578/AINA/internal/handler/stream"
	surfaceHandler "github.com/Star2578/AINA/internal/handler/surface"
	systemHandler "github.com/Star2578/AINA/internal/handler/system"
	middlewarePkg "github.com/Star2578/AINA/internal/middleware"
	emoteModel "github.com/Star2578/AINA/internal/model/emote"
	chatService "github.com/Star2578/AINA/internal/service/chat"
	"github.com/Star2578/AINA/internal/service/dispatch"
	"github.com/Star2578/AINA/internal/surface"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config      *config.Config
	Settings    *config.Settings
	Sessions    *chatService.Service
	Controller  *dispatch.Controller
	Registry    *emoteModel.Registry
	Hub         *surface.Hub
	Transcripts sessionHandler.TranscriptReader
	Logger      *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	sessions := sessionHandler.New(deps.Sessions, deps.Controller, deps.Settings, deps.Transcripts, deps.Logger)
	streams := streamHandler.New(deps.Controller, deps.Logger)
	emotes := emoteHandler.New(deps.Registry)
	system := systemHandler.New(deps.Config, deps.Settings, deps.Logger)
	surfaces := surfaceHandler.New(deps.Hub, deps.Logger)

	r.Route("/api", func(api chi.Router) {
		sessions.RegisterRoutes(api)
		streams.RegisterRoutes(api)
		emotes.RegisterRoutes(api)
		system.RegisterRoutes(api)
		surfaces.RegisterRoutes(api)
	})

	return r
}
