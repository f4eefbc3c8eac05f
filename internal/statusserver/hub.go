// Package statusserver implements the introspection/status server (C13):
// an HTTP+WebSocket endpoint that exposes live task-graph counters and
// broadcasts eventbus notifications to connected dashboards.
// The hub shape (register/unregister/broadcast channels drained by one
// goroutine) is this codebase's WebSocket hub, generalized from a fixed
// dashboard payload to an arbitrary JSON-able broadcast message.
package statusserver

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/flame2-go/flame2/internal/logx"
)

const websocketBufferSize = 256

// client is one connected WebSocket dashboard.
type client struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte
}

// hub manages connected clients and broadcast fan-out, mirroring this
// codebase's dashboard hub.
type hub struct {
	mu         sync.RWMutex
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	log        *logx.Logger
}

func newHub() *hub {
	return &hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, websocketBufferSize),
		log:        logx.New("statusserver"),
	}
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *hub) broadcastJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Errorf("marshal broadcast payload: %v", err)
		return
	}
	h.broadcast <- data
}

func (h *hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
