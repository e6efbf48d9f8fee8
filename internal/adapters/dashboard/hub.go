package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSMessage is a JSON message sent to WebSocket clients.
type WSMessage struct {
	Type string `json:"type"`
	At   int64  `json:"at"` // unix millis
	Data any    `json:"data"`
}

// WSHub manages WebSocket connections and broadcasts messages to all
// connected clients.
type WSHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	done       chan struct{}

	onConnect    func()
	onDisconnect func()
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:      make(map[*websocket.Conn]bool),
		broadcast:    make(chan []byte, 64),
		register:     make(chan *websocket.Conn),
		unregister:   make(chan *websocket.Conn),
		done:         make(chan struct{}),
		onConnect:    func() {},
		onDisconnect: func() {},
	}
}

// Clients returns the number of connected clients.
func (h *WSHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run is the hub's event loop. It closes every client when ctx is done.
// All writes to client connections happen here, pings included.
func (h *WSHub) Run(ctx context.Context) {
	defer close(h.done)
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
				h.onDisconnect()
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.onConnect()
			slog.Debug("ws client connected", "total", total)

		case conn := <-h.unregister:
			h.drop(conn)

		case msg := <-h.broadcast:
			h.writeAll(websocket.TextMessage, msg)

		case <-ping.C:
			// Ping to keep connections alive through proxies.
			h.writeAll(websocket.PingMessage, nil)
		}
	}
}

func (h *WSHub) writeAll(messageType int, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(messageType, msg); err != nil {
			conn.Close()
			delete(h.clients, conn)
			h.onDisconnect()
		}
	}
}

func (h *WSHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
		h.onDisconnect()
	}
}

// Broadcast sends a message to all connected clients. It never blocks.
func (h *WSHub) Broadcast(msgType string, data any) {
	payload, err := json.Marshal(WSMessage{Type: msgType, At: time.Now().UnixMilli(), Data: data})
	if err != nil {
		slog.Warn("ws: marshal failed", "type", msgType, "err", err)
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		// Drop if buffer full to avoid blocking the publisher.
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // dashboard is served to local operators only
	},
}

// HandleWS handles WebSocket upgrade requests at GET /api/ws.
// first, when non-nil, is written before the client joins the broadcast set.
func (h *WSHub) HandleWS(first func() WSMessage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("ws upgrade failed", "err", err)
			return
		}

		if first != nil {
			if err := conn.WriteJSON(first()); err != nil {
				conn.Close()
				return
			}
		}

		select {
		case h.register <- conn:
		case <-h.done:
			conn.Close()
			return
		}

		// Read pump: keep connection alive and detect disconnects.
		go func() {
			defer func() {
				select {
				case h.unregister <- conn:
				case <-h.done:
				}
			}()
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			conn.SetPongHandler(func(string) error {
				conn.SetReadDeadline(time.Now().Add(60 * time.Second))
				return nil
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					break
				}
			}
		}()
	}
}
