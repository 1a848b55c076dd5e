package server

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Inbound messages are tiny control envelopes.
	maxMessageSize = 4096
	sendBufferSize = 256
)

var (
	errClientClosed = errors.New("viewer connection closed")
	errSlowConsumer = errors.New("viewer send buffer full")
)

// client is one viewer connection. It implements registry.Sender.
type client struct {
	id     string
	userID string
	conn   *websocket.Conn
	server *Server
	logger *zap.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// Send encodes msg and queues it for the write pump. A viewer that cannot
// keep up is disconnected.
func (c *client) Send(msg any) error {
	data, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn("Viewer is not keeping up, disconnecting.")
		c.closeLocked()
		return errSlowConsumer
	}
}

func (c *client) close() {
	c.mu.Lock()
	c.closeLocked()
	c.mu.Unlock()
}

func (c *client) closeLocked() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump handles inbound control messages until the connection drops.
func (c *client) readPump() {
	defer func() {
		c.server.ctrl.Disconnect(c.userID, c)
		c.close()
		c.conn.Close()
		c.server.forget(c)
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("Websocket read ended", zap.Error(err))
			}
			return
		}
		msg, err := decodeClientMessage(data)
		if err != nil {
			c.logger.Warn("Ignoring malformed message", zap.Error(err))
			continue
		}
		c.logger.Debug("Received message", zap.String("type", msg.Type))
		switch msg.Type {
		case service.TypeStart:
			if err := c.server.ctrl.Start(c.userID); err != nil {
				c.logger.Error("Failed to start session", zap.Error(err))
			}
		case service.TypeStop:
			c.server.ctrl.Stop(c.userID)
		default:
			c.logger.Warn("Ignoring unknown message type", zap.String("type", msg.Type))
		}
	}
}

// writePump drains the send buffer onto the connection and keeps it alive
// with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One frame per message; viewers parse each frame as a single JSON value.
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
