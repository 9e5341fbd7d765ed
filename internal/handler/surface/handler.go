package surface

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Star2578/AINA/internal/surface"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Handler upgrades rendering surfaces onto the event hub. The daemon only
// pushes; the sole inbound message is an optional session bind.
type Handler struct {
	hub      *surface.Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New creates the surface handler.
func New(hub *surface.Hub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		hub:    hub,
		logger: logger.Named("surface"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The renderer connects from a local window, not a browser origin.
				return true
			},
		},
	}
}

// RegisterRoutes mounts the surface feed.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/surface/ws", h.handleSurface)
}

type inboundMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

func (h *Handler) handleSurface(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := h.hub.NewConnection(ws)
	if sessionID := r.URL.Query().Get("sessionId"); sessionID != "" {
		conn.SessionID = sessionID
	}
	h.hub.Register(conn)

	go h.writePump(conn)
	h.readPump(conn)
}

func (h *Handler) readPump(conn *surface.Connection) {
	defer func() {
		h.hub.Unregister(conn)
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(4096)
	conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.Conn.SetPongHandler(func(string) error {
		return conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("surface read failed", zap.String("connection", conn.ID), zap.Error(err))
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "bind" {
			h.hub.BindSession(conn, msg.SessionID)
		}
	}
}

func (h *Handler) writePump(conn *surface.Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
