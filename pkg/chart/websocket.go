package chart

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raykavin/perfscope/pkg/logger"
)

// Message types pushed to the page
const (
	MessageView = "view"
	MessageSize = "size"
	MessageSeek = "seek"
)

// SeekPayload tells the page where a seek moved the play-head
type SeekPayload struct {
	Seconds float64 `json:"seconds"`
}

const (
	writeTimeout  = 10 * time.Second
	broadcastSize = 100
)

// Message represents a message sent over WebSocket
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

// Hub keeps the WebSocket connections of every open page and fans view
// updates out to them
type Hub struct {
	sync.RWMutex
	clients       map[*websocket.Conn]*client
	upgrader      websocket.Upgrader
	broadcastChan chan Message
	done          chan struct{}
	closeOnce     sync.Once
	initial       func() any
	log           logger.Logger
}

// NewHub creates a hub. New connections first receive the payload returned
// by initial.
func NewHub(log logger.Logger, initial func() any) *Hub {
	hub := &Hub{
		clients: make(map[*websocket.Conn]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		broadcastChan: make(chan Message, broadcastSize),
		done:          make(chan struct{}),
		initial:       initial,
		log:           log,
	}

	go hub.handleBroadcasts()

	return hub
}

// Clients returns the number of connected pages
func (h *Hub) Clients() int {
	h.RLock()
	defer h.RUnlock()
	return len(h.clients)
}

// Broadcast queues a message for every client. When the queue is full the
// message is dropped; the next update carries the full view anyway.
func (h *Hub) Broadcast(messageType string, payload any) {
	select {
	case <-h.done:
	case h.broadcastChan <- Message{Type: messageType, Payload: payload}:
	default:
		h.log.Warn("websocket queue full, dropping update")
	}
}

// handleBroadcasts processes messages from the broadcast channel
func (h *Hub) handleBroadcasts() {
	for {
		select {
		case <-h.done:
			return
		case msg := <-h.broadcastChan:
			h.RLock()
			clients := make([]*client, 0, len(h.clients))
			for _, c := range h.clients {
				clients = append(clients, c)
			}
			h.RUnlock()

			for _, c := range clients {
				if err := c.write(msg); err != nil {
					h.log.WithError(err).Debug("failed to send websocket message")
					// the reader notices the closed connection and unregisters it
					c.conn.Close()
				}
			}
		}
	}
}

// HandleWebSocket upgrades a page connection and registers it
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "chart closed", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("failed to upgrade connection to websocket")
		return
	}

	c := &client{conn: conn}

	h.Lock()
	h.clients[conn] = c
	count := len(h.clients)
	h.Unlock()

	h.log.WithField("clients", count).Debug("websocket client connected")

	if h.initial != nil {
		if err := c.write(Message{Type: MessageView, Payload: h.initial()}); err != nil {
			h.log.WithError(err).Debug("failed to send initial view")
		}
	}

	go h.handleClient(c)
}

// handleClient reads until the page goes away
func (h *Hub) handleClient(c *client) {
	defer func() {
		h.Lock()
		delete(h.clients, c.conn)
		count := len(h.clients)
		h.Unlock()

		c.conn.Close()
		h.log.WithField("clients", count).Debug("websocket client disconnected")
	}()

	// Pages only listen, reading is needed to notice disconnects
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithError(err).Debug("websocket read error")
			}
			return
		}
	}
}

// Close stops broadcasting and disconnects every client
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)

		h.Lock()
		defer h.Unlock()
		for conn := range h.clients {
			conn.Close()
		}
	})
}
