package ws

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 32
)

// Client is one live websocket connection bound to an authenticated user.
// Inbound frames are ignored (messages are sent over HTTP); the connection
// exists to receive deliveries and to signal presence.
type Client struct {
	userID int64
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	logger *logrus.Logger
}

func NewClient(userID int64, conn *websocket.Conn, hub *Hub, logger *logrus.Logger) *Client {
	return &Client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		hub:    hub,
		logger: logger,
	}
}

// Attach registers the client with the hub.
func (c *Client) Attach() {
	c.hub.register(c)
}

// Detach removes the client from the hub and closes the connection.
func (c *Client) Detach() {
	c.hub.unregister(c)
	_ = c.conn.Close()
}

// ReadPump drains inbound frames to keep pong handling alive. It blocks
// until the peer disconnects or the connection errors.
func (c *Client) ReadPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && c.logger != nil {
				c.logger.WithField("user_id", c.userID).WithError(err).Debug("websocket read error")
			}
			return
		}
	}
}

// WritePump flushes queued deliveries and keepalive pings until the send
// channel closes or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
