package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client represents one authenticated websocket connection.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	// OnFrame receives each inbound frame. Set by the handler before the
	// pumps start.
	OnFrame func(c *Client, frame []byte)
	// OnClose runs once when the connection goes away.
	OnClose func(c *Client)
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 64),
	}
}

// ReadPump reads frames from the connection until it drops.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
		if c.OnClose != nil {
			c.OnClose(c)
		}
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.log.Warn("websocket read error", zap.String("user_id", c.UserID), zap.Error(err))
			}
			break
		}

		if c.OnFrame != nil {
			c.OnFrame(c, frame)
		}
	}
}

// WritePump sends queued frames and keeps the connection alive with pings.
func (c *Client) WritePump(m *Manager) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				m.log.Warn("websocket write error", zap.String("user_id", c.UserID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
