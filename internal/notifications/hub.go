// Package notifications pushes marketplace events to connected dashboards
// over WebSocket.
package notifications

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event is the wire format pushed to subscribers.
type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type connection struct {
	id   string
	conn *websocket.Conn
	send chan Event
}

// Hub fans marketplace events out to every connected client. It implements
// the marketplace Notifier interface.
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	register   chan *connection
	unregister chan *connection
	broadcast  chan Event
	stop       chan struct{}
	once       sync.Once
}

func NewHub(logger *zap.Logger) *Hub {
	h := &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		register:   make(chan *connection),
		unregister: make(chan *connection),
		broadcast:  make(chan Event, 256),
		stop:       make(chan struct{}),
	}
	go h.run()
	return h
}

// Broadcast queues an event for all subscribers. Slow or full hubs drop the
// event rather than block the caller.
func (h *Hub) Broadcast(event string, payload interface{}) {
	evt := Event{Type: event, Payload: payload, Timestamp: time.Now().UTC()}
	select {
	case h.broadcast <- evt:
	default:
		h.logger.Warn("event dropped, broadcast queue full", zap.String("type", event))
	}
}

// Close shuts the hub down and disconnects all clients.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.stop) })
}

// RegisterRoutes mounts the subscription endpoint.
func (h *Hub) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/events", h.serve)
}

func (h *Hub) serve(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := &connection{
		id:   uuid.New().String(),
		conn: ws,
		send: make(chan Event, 64),
	}
	h.register <- conn

	go h.writePump(conn)
	h.readPump(conn)
}

func (h *Hub) run() {
	conns := make(map[*connection]bool)
	for {
		select {
		case c := <-h.register:
			conns[c] = true
		case c := <-h.unregister:
			if conns[c] {
				delete(conns, c)
				close(c.send)
			}
		case evt := <-h.broadcast:
			for c := range conns {
				select {
				case c.send <- evt:
				default:
					// Slow consumer, cut it loose.
					delete(conns, c)
					close(c.send)
				}
			}
		case <-h.stop:
			for c := range conns {
				close(c.send)
			}
			return
		}
	}
}

func (h *Hub) readPump(c *connection) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket read ended", zap.String("conn", c.id), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
