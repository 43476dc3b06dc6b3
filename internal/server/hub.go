package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the stats page may be served from anywhere
	},
}

// Message is one websocket message.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub fans messages out to the connected websocket clients. Writes to
// the clients are serialized by the hub's lock.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	log     *log.Logger
}

// NewHub creates an empty hub.
func NewHub(l *log.Logger) *Hub {
	if l == nil {
		l = log.Default()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		log:     l,
	}
}

// Add registers a connection.
func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	h.log.Debug("websocket client connected", "clients", len(h.clients))
}

// Remove unregisters and closes a connection.
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(conn)
}

func (h *Hub) remove(conn *websocket.Conn) {
	if !h.clients[conn] {
		return
	}
	delete(h.clients, conn)
	conn.Close()
	h.log.Debug("websocket client disconnected", "clients", len(h.clients))
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends msg to every client, dropping clients that fail.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("websocket marshal", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("websocket write", "err", err)
			h.remove(conn)
		}
	}
}

// Send sends msg to a single registered client.
func (h *Hub) Send(conn *websocket.Conn, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[conn] {
		return nil
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.remove(conn)
		return err
	}
	return nil
}

// BroadcastLog sends a log line to all clients.
func (h *Hub) BroadcastLog(level, message string) {
	h.Broadcast(Message{
		Type: "log",
		Payload: map[string]string{
			"level":   level,
			"message": message,
		},
	})
}
