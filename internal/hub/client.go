package hub

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client is one WebSocket session. Outbound frames go through a
// buffered send channel drained by WritePump so a slow peer never
// blocks a broadcast.
type Client struct {
	ID          string
	Participant string

	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once

	// memberMu serializes membership changes for this connection; the
	// Registry locks it across a whole Join or Leave.
	memberMu sync.Mutex
	roomID   string
}

// NewClient wraps an upgraded connection. participant is the display
// name supplied at join time; identity is verified upstream.
func NewClient(conn *websocket.Conn, participant string) *Client {
	return &Client{
		ID:          uuid.New().String(),
		Participant: participant,
		conn:        conn,
		send:        make(chan []byte, 256),
	}
}

// Room returns the room this connection is currently a member of, or
// "" if none.
func (c *Client) Room() string {
	c.memberMu.Lock()
	defer c.memberMu.Unlock()
	return c.roomID
}

// Queue enqueues payload for delivery. It reports false when the send
// buffer is full, which callers treat as a failed delivery.
func (c *Client) Queue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Close shuts down the outbound side. Safe to call more than once and
// from any goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// WritePump drains the send channel onto the socket and keeps the
// connection alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("Failed to write to connection %s: %v", c.ID, err)
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

// ReadLoop pulls frames off the socket and hands them to onMessage.
// It returns when the connection errors or closes; the caller owns the
// teardown that follows.
func (c *Client) ReadLoop(maxMessageBytes int64, onMessage func(data []byte)) {
	if maxMessageBytes > 0 {
		c.conn.SetReadLimit(maxMessageBytes)
	}
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error on connection %s: %v", c.ID, err)
			}
			return
		}
		onMessage(data)
	}
}
