package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"
)

// Hub fans notification payloads out to every connected WebSocket
// client. Clients are write-only listeners; inbound frames are drained
// and discarded. A client that cannot be written to is dropped.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	log   *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{conns: make(map[*websocket.Conn]struct{}), log: logger}
}

// Handler serves the WebSocket endpoint. The handler blocks for the
// lifetime of each connection and unregisters it on disconnect.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(func(ws *websocket.Conn) {
		h.add(ws)
		defer h.remove(ws)
		for {
			var discard string
			if err := websocket.Message.Receive(ws, &discard); err != nil {
				return
			}
		}
	})
}

// Broadcast writes the payload to every connected client. It satisfies
// relay.Handler so the hub can sit at the end of the relay's delivery
// loop; per-client write failures drop the client and never surface.
func (h *Hub) Broadcast(ctx context.Context, payload []byte) error {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for ws := range h.conns {
		conns = append(conns, ws)
	}
	h.mu.Unlock()

	for _, ws := range conns {
		if err := websocket.Message.Send(ws, string(payload)); err != nil {
			h.log.Warn("websocket client dropped", "error", err)
			h.remove(ws)
			_ = ws.Close()
		}
	}
	return nil
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) add(ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[ws] = struct{}{}
}

func (h *Hub) remove(ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, ws)
}
