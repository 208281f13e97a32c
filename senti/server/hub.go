package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Message is the envelope for everything pushed over /ws
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	TypeStatus     = "status"
	TypePrediction = "prediction"
)

const (
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans status changes and predictions out to connected browsers
type Hub struct {
	logger     zerolog.Logger
	mu         sync.RWMutex
	clients    map[*client]struct{}
	closed     bool
	broadcast  chan []byte
	unregister chan *client
	done       chan struct{}
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:     logger.With().Str("component", "ws").Logger(),
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan []byte, 256),
		unregister: make(chan *client, 8),
		done:       make(chan struct{}),
	}
}

// Run is the hub event loop; it returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			h.closed = true
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// slow client, drop
				}
			}
			h.mu.RUnlock()
		}
	}
}

func encode(msg Message) ([]byte, error) {
	msg.Timestamp = time.Now()
	return json.Marshal(msg)
}

// Broadcast queues msg for every client without blocking
func (h *Hub) Broadcast(msg Message) {
	b, err := encode(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("encode message")
		return
	}
	select {
	case h.broadcast <- b:
	default:
		h.logger.Warn().Str("type", msg.Type).Msg("broadcast queue full, dropping message")
	}
}

// ServeWS upgrades the request and registers the client. greeting is built
// after registration so no broadcast issued after it can be missed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, greeting func() Message) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("upgrade")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 64)}
	if !h.add(c, greeting) {
		conn.Close()
		return
	}
	go h.writePump(c)
	go h.readPump(c)
}

// add registers c and queues the greeting while broadcasts are held off
func (h *Hub) add(c *client, greeting func() Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if greeting != nil {
		msg := greeting()
		if b, err := encode(msg); err == nil {
			c.send <- b
		} else {
			h.logger.Error().Err(err).Str("type", msg.Type).Msg("encode greeting")
		}
	}
	return true
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
