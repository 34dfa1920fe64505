package ws

import (
	"log"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/gorilla/websocket"
)

// Hub tracks which users hold an open websocket connection and pushes JSON
// messages to them. It satisfies the notification service's
// ConnectionRegistry port. One connection per user: a new connection for the
// same user replaces (and closes) the previous one.
type Hub struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]*websocket.Conn
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[uuid.UUID]*websocket.Conn),
	}
}

func (h *Hub) Register(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	old, replaced := h.conns[userID]
	h.conns[userID] = conn
	h.mu.Unlock()

	if replaced {
		old.Close()
	}
	log.Printf("ws: user %s connected", userID)
}

// Unregister drops the mapping only if it still points at conn, so a stale
// goroutine cannot evict a newer connection.
func (h *Hub) Unregister(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	if h.conns[userID] == conn {
		delete(h.conns, userID)
	}
	h.mu.Unlock()

	conn.Close()
	log.Printf("ws: user %s disconnected", userID)
}

func (h *Hub) IsConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[userID]
	return ok
}

func (h *Hub) Push(userID uuid.UUID, message interface{}) error {
	h.mu.RLock()
	conn, ok := h.conns[userID]
	h.mu.RUnlock()

	if !ok {
		return nil
	}
	return conn.WriteJSON(message)
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
