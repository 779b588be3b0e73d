package ws

import (
	"encoding/json"
	"sync"
	"time"

	"blindbox/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
)

type Client struct {
	AccountID int64
	Conn      *websocket.Conn
	Send      chan []byte

	hub   *Hub
	types map[string]struct{}

	quit     chan struct{}
	quitOnce sync.Once
}

// NewClient creates a client. An empty types list subscribes to every event type.
func NewClient(accountID int64, conn *websocket.Conn, hub *Hub, types []string) *Client {
	c := &Client{
		AccountID: accountID,
		Conn:      conn,
		Send:      make(chan []byte, 64),
		hub:       hub,
		quit:      make(chan struct{}),
	}
	if len(types) > 0 {
		c.types = make(map[string]struct{}, len(types))
		for _, t := range types {
			c.types[t] = struct{}{}
		}
	}
	return c
}

func (c *Client) wants(eventType string) bool {
	if c.types == nil {
		return true
	}
	_, ok := c.types[eventType]
	return ok
}

// stop ends the write pump. Send is never closed, so late writers cannot panic.
func (c *Client) stop() {
	c.quitOnce.Do(func() { close(c.quit) })
}

// Run registers the client and blocks until the connection closes.
func (c *Client) Run() {
	go c.writePump()

	c.reply(Message{Type: MsgReady})
	select {
	case c.hub.register <- c:
	case <-c.hub.done:
		c.stop()
		return
	}

	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.stop()
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(1024)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read error", "account", c.AccountID, "error", err)
			}
			return
		}

		var in Message
		if err := json.Unmarshal(raw, &in); err != nil || in.Type != MsgPing {
			c.reply(Message{Type: MsgError, Error: "unsupported message"})
			continue
		}
		c.reply(Message{Type: MsgPong})
	}
}

func (c *Client) reply(m Message) {
	b, _ := json.Marshal(m)
	select {
	case c.Send <- b:
	case <-c.quit:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case <-c.quit:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws write error", "account", c.AccountID, "error", err)
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
