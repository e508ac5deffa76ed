package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// FrameType labels a broadcast frame (§6: "{type: agent_update|trade_update|
// regime_change|alert, ...}").
type FrameType string

const (
	FrameAgentUpdate FrameType = "agent_update"
	FrameTradeUpdate FrameType = "trade_update"
	FrameRegimeChange FrameType = "regime_change"
	FrameAlert       FrameType = "alert"
)

// Frame is one broadcast message pushed to every connected client.
type Frame struct {
	Type FrameType   `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans Frame broadcasts out to every connected client, grounded on the
// standard gorilla/websocket hub shape: one writer goroutine per client fed
// by a buffered channel, so a slow reader never blocks the broadcaster.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]bool
	publish chan Frame
}

type client struct {
	conn *websocket.Conn
	send chan Frame
}

// NewHub constructs an idle Hub; call Run to start the broadcast loop.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]bool), publish: make(chan Frame, 64)}
}

// Run drains the publish channel and fans frames out to every client. Call
// once, in its own goroutine, for the Hub's lifetime.
func (h *Hub) Run() {
	for frame := range h.publish {
		h.mu.Lock()
		for c := range h.clients {
			select {
			case c.send <- frame:
			default:
				// client too slow to keep up; drop it rather than block the hub
				close(c.send)
				delete(h.clients, c)
			}
		}
		h.mu.Unlock()
	}
}

// Broadcast enqueues frame for delivery to every connected client.
func (h *Hub) Broadcast(typ FrameType, data interface{}) {
	h.publish <- Frame{Type: typ, Data: data}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// handleWebsocket upgrades /ws and pumps heartbeat ping/pong plus broadcast
// frames (§6).
func (s *Server) handleWebsocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	cl := &client{conn: conn, send: make(chan Frame, 16)}
	s.Hub.register(cl)

	go cl.writePump()
	cl.readPump(s.Hub)
}

// readPump drains client->server frames (ping/pong) until the socket closes.
func (c *client) readPump(hub *Hub) {
	defer func() {
		hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump serializes Frame values to the socket and pings every 30s.
func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			raw, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
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
