package adminserver

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// progressEvent is one message pushed to a connected operator console.
type progressEvent struct {
	Event   string `json:"event"` // "done" or "error", sent once when a run ends
	Message string `json:"message,omitempty"`
}

// progressHub fans one index run's outcome out to every connected
// websocket client, generalizing the dashboard's single-session chat
// socket into a broadcast-to-many stream.
type progressHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newProgressHub() *progressHub {
	return &progressHub{conns: make(map[*websocket.Conn]struct{})}
}

func (h *progressHub) subscribe(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// The operator console only receives; drain and discard anything it
	// sends until it disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *progressHub) broadcast(ev progressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		if err := conn.WriteJSON(ev); err != nil {
			log.Printf("adminserver: websocket write: %v", err)
		}
	}
}
