// Package wire streams console events to connected UIs over WebSocket.
// The hub subscribes to the event bus and fans every event out to all
// open connections; clients only ever send pings.
package wire

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/terrasense/agriops/internal/event"
)

// writeTimeout bounds each per-connection send so one stalled client
// cannot hold up the bus consumer.
const writeTimeout = 5 * time.Second

// ServerMessage is the envelope for all server-to-client messages.
type ServerMessage struct {
	Type  string             `json:"type"` // "event", "pong"
	Event *event.DomainEvent `json:"event,omitempty"`
}

// ClientMessage is the envelope for client-to-server messages.
type ClientMessage struct {
	Type string `json:"type"` // "ping"
}

// Hub tracks open connections and implements the event bus Handler
// interface, so it can be subscribed like any other consumer.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]struct{})}
}

// HandleEvent fans one console event out to every open connection.
// A failed write drops that connection; the bus never sees the error.
func (h *Hub) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	msg := ServerMessage{Type: "event", Event: &evt}
	for _, c := range conns {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := wsjson.Write(wctx, c, msg)
		cancel()
		if err != nil {
			log.Printf("wire: dropping connection after write error: %v", err)
			h.remove(c)
			c.Close(websocket.StatusInternalError, "write failed")
		}
	}
	return nil
}

func (h *Hub) add(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *Hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

// ServeHTTP upgrades to WebSocket and keeps the connection registered
// until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("wire: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	h.add(conn)
	defer h.remove(conn)

	ctx := r.Context()
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Printf("wire: connection closed: %v", websocket.CloseStatus(err))
			}
			return
		}
		if msg.Type == "ping" {
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			_ = wsjson.Write(wctx, conn, ServerMessage{Type: "pong"})
			cancel()
		}
	}
}
