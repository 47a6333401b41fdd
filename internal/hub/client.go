package hub

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxFrame   = 64 << 10
)

// Client is a single WebSocket subscriber of a room.
type Client struct {
	roomID uint
	conn   *websocket.Conn
	send   chan []byte

	// OnMessage is invoked for every inbound chat frame. The handler
	// wiring the client is responsible for persistence and broadcast.
	OnMessage func(content string)
}

// NewClient wraps an upgraded WebSocket connection for a room.
func NewClient(roomID uint, conn *websocket.Conn) *Client {
	return &Client{
		roomID: roomID,
		conn:   conn,
		send:   make(chan []byte, 256),
	}
}

type inboundFrame struct {
	Content string `json:"content"`
}

// ReadPump consumes inbound frames until the connection drops, then
// unsubscribes the client. It must run on the connection's goroutine.
func (c *Client) ReadPump(h *Hub) {
	defer func() {
		h.Unsubscribe(c.roomID, c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxFrame)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var in inboundFrame
		if err := json.Unmarshal(data, &in); err != nil || in.Content == "" {
			continue
		}
		if c.OnMessage != nil {
			c.OnMessage(in.Content)
		}
	}
}

// WritePump flushes outbound frames and keeps the connection alive
// with pings. It exits when the send channel is closed.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
