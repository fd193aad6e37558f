package eventws

import (
	"context"
	"encoding/json"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/saeid-a/CounselBack/internal/services"
	"go.uber.org/zap"
)

const (
	eventBufferSize  = 64
	clientBufferSize = 32
)

// Hub fans appointment events out to the connected sessions of each
// recipient. All client bookkeeping happens on the Run goroutine.
type Hub struct {
	clients    map[int64]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	events     chan services.Event
	done       chan struct{}
	logger     *zap.Logger
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	send   chan []byte
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan services.Event, eventBufferSize),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, clientBufferSize),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for userID, set := range h.clients {
				for client := range set {
					close(client.send)
				}
				delete(h.clients, userID)
			}
			return
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, client.userID)
			}
		case event := <-h.events:
			h.deliver(event)
		}
	}
}

// Register returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues an event without blocking the caller. Events are dropped
// when the queue is full; the feed is advisory and clients re-read state
// over HTTP.
func (h *Hub) Publish(event services.Event) {
	select {
	case h.events <- event:
	default:
		h.logger.Warn("event feed queue full, dropping event",
			zap.String("type", event.Type),
			zap.Int64("appointment_id", event.AppointmentID),
		)
	}
}

func (h *Hub) deliver(event services.Event) {
	encoded, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("encode event", zap.Error(err))
		return
	}

	seen := make(map[int64]struct{}, len(event.Recipients))
	for _, userID := range event.Recipients {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		h.sendToUser(userID, encoded)
	}
}

func (h *Hub) sendToUser(userID int64, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- payload:
		default:
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

// ReadPump drains the connection until the peer goes away. The feed is
// push-only, so incoming frames are ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
