package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/trunkwave/trunkwave/pkg/logger"
)

// WsEvent is the JSON payload pushed to connected UI clients: either a
// single Event or a full UiSnapshot, tagged by Type.
type WsEvent struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func (e *WsEvent) marshal() ([]byte, error) {
	return json.Marshal(e)
}

type wsClient struct {
	id       string
	conn     *websocket.Conn
	messages chan []byte
}

// Hub fans UiSnapshot/Event pushes out to every connected UI websocket
// client.
type Hub struct {
	clients    map[*wsClient]bool
	broadcast  chan WsEvent
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
	log        *logger.Logger
	mu         sync.RWMutex
}

// NewHub returns a Hub; call Run in its own goroutine to start it.
func NewHub(log *logger.Logger) *Hub {
	if log != nil {
		log = log.WithComponent("telemetry")
	}
	return &Hub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan WsEvent, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run drives the hub's event loop until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
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
				close(c.messages)
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			data, err := ev.marshal()
			if err != nil {
				if h.log != nil {
					h.log.Error("marshal ws event failed", logger.String("err", err.Error()))
				}
				continue
			}
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.messages <- data:
				default:
					if h.log != nil {
						h.log.Warn("client buffer full, dropping", logger.String("client", c.id))
					}
				}
			}
			h.mu.RUnlock()

		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.messages)
			}
			h.clients = make(map[*wsClient]bool)
			h.mu.Unlock()
			close(h.done)
			return
		}
	}
}

// Broadcast queues ev for delivery to every connected client.
func (h *Hub) Broadcast(ev WsEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- ev:
	default:
		if h.log != nil {
			h.log.Warn("broadcast channel full, dropping", logger.String("type", ev.Type))
		}
	}
}

// PublishSnapshot is a convenience wrapper broadcasting snap as a
// "snapshot" WsEvent.
func (h *Hub) PublishSnapshot(snap UiSnapshot) {
	h.Broadcast(WsEvent{Type: "snapshot", Data: snap})
}

// PublishEvent is a convenience wrapper broadcasting e as an "event"
// WsEvent.
func (h *Hub) PublishEvent(e Event) {
	h.Broadcast(WsEvent{Type: "event", Data: e})
}

// ClientCount returns the number of connected websocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler returns an http.Handler upgrading each request to a websocket
// connection registered with the hub.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, "websocket upgrade failed", http.StatusBadRequest)
			return
		}
		c := &wsClient{id: r.RemoteAddr, conn: conn, messages: make(chan []byte, 256)}
		h.register <- c

		go func() {
			defer func() {
				select {
				case h.unregister <- c:
				case <-h.done:
				}
				_ = c.conn.Close()
			}()
			c.conn.SetReadLimit(1024)
			for {
				if _, _, err := c.conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		go func() {
			for msg := range c.messages {
				_ = c.conn.WriteMessage(websocket.TextMessage, msg)
			}
		}()
	})
}
