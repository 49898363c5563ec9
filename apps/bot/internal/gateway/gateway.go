package gateway

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nerts-lite/apps/bot/internal/codec"
)

const (
	readLimit  = 4096
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 8192,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StateSource hands out the current spectator view.
type StateSource interface {
	View() codec.View
}

// Connection is one spectator websocket. Spectators only read; anything
// they send is discarded.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Gateway *Gateway
}

// Gateway fans spectator frames out to every connected websocket.
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	nextConnID  uint64

	source StateSource
	log    *zap.Logger
}

func New(source StateSource, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		connections: make(map[string]*Connection),
		source:      source,
		log:         log.Named("gateway"),
	}
}

func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("upgrade failed", zap.Error(err))
		return
	}

	c := &Connection{
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
		Gateway: g,
	}
	// late joiners get the current board straight away
	if g.source != nil {
		c.Send <- codec.EncodeFrame(g.source.View())
	}

	g.mu.Lock()
	g.nextConnID++
	c.ID = fmt.Sprintf("conn_%d", g.nextConnID)
	g.connections[c.ID] = c
	total := len(g.connections)
	g.mu.Unlock()

	g.log.Info("spectator connected", zap.String("conn", c.ID), zap.Int("total", total))

	go c.readPump()
	go c.writePump()
}

func (c *Connection) readPump() {
	defer func() {
		c.Gateway.removeConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(readLimit)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Gateway.log.Debug("spectator read failed", zap.String("conn", c.ID), zap.Error(err))
			}
			return
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.connections[c.ID]; !ok {
		return
	}
	delete(g.connections, c.ID)
	close(c.Send)
	g.log.Info("spectator disconnected", zap.String("conn", c.ID), zap.Int("total", len(g.connections)))
}

// Publish encodes a view and broadcasts it.
func (g *Gateway) Publish(v codec.View) {
	if g.Count() == 0 {
		return
	}
	g.Broadcast(codec.EncodeFrame(v))
}

// Broadcast sends a message to all connections, dropping it for any
// spectator whose buffer is full.
func (g *Gateway) Broadcast(message []byte) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.connections {
		select {
		case c.Send <- message:
		default:
		}
	}
}

func (g *Gateway) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.connections)
}

// Close disconnects every spectator.
func (g *Gateway) Close() {
	g.mu.Lock()
	conns := make([]*Connection, 0, len(g.connections))
	for _, c := range g.connections {
		conns = append(conns, c)
	}
	g.mu.Unlock()
	for _, c := range conns {
		g.removeConnection(c)
	}
}
