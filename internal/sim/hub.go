package sim

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kaber420/mikroisp-manager-sub000/internal/client"
)

type pushClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newPushClient(conn *websocket.Conn) *pushClient {
	c := &pushClient{
		conn: conn,
		send: make(chan []byte, 16),
	}
	go c.writePump()
	return c
}

func (c *pushClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *pushClient) close() {
	close(c.send)
}

// Hub fans push notifications out to every connected /ws client.
type Hub struct {
	mu      sync.Mutex
	clients map[*pushClient]bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*pushClient]bool)}
}

func (h *Hub) Add(conn *websocket.Conn) *pushClient {
	c := newPushClient(conn)
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	return c
}

func (h *Hub) Remove(c *pushClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

// Broadcast sends one notification to all clients. Slow clients drop the
// message instead of blocking the hub.
func (h *Hub) Broadcast(msg client.NotifyMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// RefreshLoop emits a periodic refresh notification until ctx is cancelled,
// standing in for the manager noticing new poller data.
func (h *Hub) RefreshLoop(ctx context.Context, deviceID string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Broadcast(client.NotifyMessage{Type: client.NotifyRefresh, DeviceID: deviceID})
		}
	}
}

func (h *Hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
