package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Progress events carry no secrets; the dashboard may live on another origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub broadcasts pipeline stage events to connected WebSocket clients. It
// implements contracts.Notifier; a slow client loses events instead of
// stalling the pipeline.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]bool
	logger  *logger.Logger
}

type client struct {
	conn *websocket.Conn
	send chan contracts.StageEvent
}

// NewHub creates an empty hub. A nil logger is replaced with a no-op one;
// SetLogger swaps in the real logger once configuration is loaded.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewNop()
	}
	return &Hub{
		clients: make(map[*client]bool),
		logger:  log,
	}
}

// SetLogger replaces the hub's logger. Safe before serving traffic.
func (h *Hub) SetLogger(log *logger.Logger) {
	if log != nil {
		h.logger = log
	}
}

// Notify fans the event out to every client without blocking.
func (h *Hub) Notify(event contracts.StageEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- event:
		default:
			// Slow consumer; drop the event for this client.
		}
	}
}

// HandleWS upgrades the connection and streams stage events until the
// client disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan contracts.StageEvent, 16)}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	h.logger.WithField("remote", r.RemoteAddr).Debug("WebSocket client connected")

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	for event := range c.send {
		if err := c.conn.WriteJSON(event); err != nil {
			h.remove(c)
			return
		}
	}
}

// readLoop drains client frames so pings and close frames are processed.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
	}
}
