// Package surface fans completed turn results out to rendering clients.
package surface

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Connection is one attached rendering surface. A connection may bind to a
// single session; unbound connections receive every event, which suits the
// common one-window desktop renderer.
type Connection struct {
	ID        string
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte
}

// Hub manages surface connections and the fire-and-forget event broadcast.
type Hub struct {
	logger *zap.Logger

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *sessionEvent

	mu          sync.RWMutex
	connections map[string]*Connection
}

type sessionEvent struct {
	sessionID string
	data      []byte
}

// NewHub creates the surface hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:      logger.Named("surface"),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *sessionEvent, 256),
		connections: make(map[string]*Connection),
	}
}

// Run pumps registrations and broadcasts until the channels close. Intended
// to run as a single goroutine for the lifetime of the daemon.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			h.mu.Unlock()
			h.logger.Info("surface attached", zap.String("connection", conn.ID))

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				close(conn.Send)
			}
			h.mu.Unlock()
			h.logger.Info("surface detached", zap.String("connection", conn.ID))

		case event := <-h.broadcast:
			h.mu.RLock()
			for _, conn := range h.connections {
				if conn.SessionID != "" && conn.SessionID != event.sessionID {
					continue
				}
				select {
				case conn.Send <- event.data:
				default:
					// Slow consumer; drop it rather than stall the turn.
					h.logger.Warn("surface buffer full, dropping connection", zap.String("connection", conn.ID))
					go h.Unregister(conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NewConnection wraps an upgraded websocket for hub management.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ID:   uuid.NewString(),
		Conn: ws,
		Send: make(chan []byte, 256),
	}
}

// Register attaches a connection to the hub.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister detaches a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BindSession scopes a connection to one session's events.
func (h *Hub) BindSession(conn *Connection, sessionID string) {
	h.mu.Lock()
	conn.SessionID = sessionID
	h.mu.Unlock()
}

// Broadcast delivers an event to every surface watching the session.
func (h *Hub) Broadcast(sessionID string, data []byte) {
	h.broadcast <- &sessionEvent{sessionID: sessionID, data: data}
}

// BroadcastJSON marshals and broadcasts an event payload.
func (h *Hub) BroadcastJSON(sessionID string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(sessionID, data)
	return nil
}

// ConnectionCount reports the number of attached surfaces.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}
