package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"creamery/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // schedule boards are served from other origins
	},
}

// Message is one schedule event pushed to connected boards
type Message struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub fans schedule events out to the websocket clients of each owner
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	log     *logger.Logger
}

// Client is one connected schedule board
type Client struct {
	id    string
	owner string
	conn  *websocket.Conn
	send  chan []byte
	hub   *Hub
	once  sync.Once
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{clients: make(map[*Client]bool), log: log.With("component", "realtime")}
}

// Publish sends an event to every client of owner. Slow clients drop the
// message rather than block the publisher.
func (h *Hub) Publish(owner, eventType string, payload interface{}) {
	data, err := json.Marshal(Message{Type: eventType, Payload: payload, Timestamp: time.Now().UTC()})
	if err != nil {
		h.log.Error("marshaling event", "type", eventType, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.owner != owner {
			continue
		}
		select {
		case client.send <- data:
		default:
			h.log.Warn("client buffer full, dropping event", "client_id", client.id, "type", eventType)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request and streams owner's events until the client leaves
func (h *Hub) Serve(c *gin.Context, owner string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		id:    uuid.NewString(),
		owner: owner,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		hub:   h,
	}
	h.register(client)

	go client.writePump()
	go client.readPump()
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.unregister(client)
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	h.log.Debug("client connected", "client_id", client.id, "owner", client.owner)
}

func (h *Hub) unregister(client *Client) {
	client.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, client)
		close(client.send)
		h.mu.Unlock()
		h.log.Debug("client disconnected", "client_id", client.id, "owner", client.owner)
	})
}

// readPump discards client input and notices when the connection goes away
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read error", "client_id", c.id, "error", err)
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
