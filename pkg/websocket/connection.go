package websocket

import (
	"net/http"
	"sync"
	"time"

	"ride-backend/pkg/auth"
	"ride-backend/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Period of sending ping messages
	pingPeriod = (pongWait * 9) / 10

	// Max inbound message size
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Connection wraps a gorilla websocket connection with a buffered send
// channel and a write pump, so callers can push messages without blocking.
type Connection struct {
	conn      *websocket.Conn
	log       logger.Logger
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	Claims    *auth.AppClaims
}

// Upgrade upgrades an HTTP request to a websocket connection and starts the
// write pump.
func Upgrade(w http.ResponseWriter, r *http.Request, log logger.Logger, claims *auth.AppClaims) (*Connection, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	c := &Connection{
		conn:   ws,
		log:    log,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
		Claims: claims,
	}
	go c.writePump()
	return c, nil
}

// Send queues a raw message for delivery. Messages are dropped when the
// connection is closed or the peer's buffer is full, never blocking the caller.
func (c *Connection) Send(message []byte) {
	select {
	case <-c.done:
	case c.send <- message:
	default:
		c.log.Debug("websocket_send_dropped", "Send buffer full, dropping message")
	}
}

// ReadPump reads messages until the connection dies. onMessage may be nil for
// receive-only clients; onClose always runs exactly once.
func (c *Connection) ReadPump(onMessage func(p []byte), onClose func()) {
	defer func() {
		c.Close()
		if onClose != nil {
			onClose()
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, p, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Error("websocket_read", err)
			}
			return
		}
		if onMessage != nil {
			onMessage(p)
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Error("websocket_write", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}

// Close tears the connection down. Safe to call multiple times.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
