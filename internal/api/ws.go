package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is one message on the websocket feed.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Hub fans engine events out to connected media surfaces. Slow consumers
// drop events rather than stall the engine; the feed carries current
// state, not history.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The engine binds to loopback; the surface is same-host.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*hubClient]struct{}),
	}
}

// Handle upgrades the request and pumps events until the peer leaves.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, 32)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("surface connected", "clients", count)

	go c.writePump()

	// Inbound frames are ignored; reading still services close frames.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(c)
}

func (c *hubClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Broadcast sends one typed event to every connected surface.
func (h *Hub) Broadcast(event string, payload interface{}) {
	msg, err := json.Marshal(Event{Type: event, Payload: payload})
	if err != nil {
		h.logger.Error("event marshal failed", "event", event, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Buffer full; the consumer catches up from the next event.
		}
	}
}

// ClientCount reports connected surfaces.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every surface and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) drop(c *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()
	c.conn.Close()
	h.logger.Info("surface disconnected", "clients", count)
}

// HubSurface relays synchronizer commands over the websocket feed so the
// connected preview element executes them.
type HubSurface struct {
	hub *Hub
}

func NewHubSurface(hub *Hub) *HubSurface {
	return &HubSurface{hub: hub}
}

func (s *HubSurface) Load(mediaRef string) {
	s.hub.Broadcast("surface.load", map[string]string{"media_ref": mediaRef})
}

func (s *HubSurface) Play() {
	s.hub.Broadcast("surface.play", nil)
}

func (s *HubSurface) Pause() {
	s.hub.Broadcast("surface.pause", nil)
}

func (s *HubSurface) Seek(localTime float64) {
	s.hub.Broadcast("surface.seek", map[string]float64{"local_time": localTime})
}

func (s *HubSurface) SetMuted(muted bool) {
	s.hub.Broadcast("surface.muted", map[string]bool{"muted": muted})
}
