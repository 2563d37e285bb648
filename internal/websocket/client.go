package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"recall-be/internal/pkg/logger"
	"recall-be/pkg/recall/engine"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 90 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

var (
	ErrClientClosed   = errors.New("client connection closed")
	ErrSendBufferFull = errors.New("client send buffer full")
)

// Client is a middleman between the websocket connection and one live session.
// It is the session's engine.Transport.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	key     string
	session *engine.Session
	logger  logger.ILogger

	// Buffered channel of outbound frames.
	send chan []byte

	closeOnce   sync.Once
	closed      chan struct{}
	closeReason engine.CloseReason
	writerDone  chan struct{}
}

func newClient(hub *Hub, conn *websocket.Conn, key string, log logger.ILogger) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		key:        key,
		logger:     log,
		send:       make(chan []byte, sendBufferSize),
		closed:     make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

func (c *Client) SessionKey() string { return c.key }

// Terminate asks the attached session to shut down.
func (c *Client) Terminate(reason engine.CloseReason) {
	if c.session != nil {
		c.session.Close(reason)
	}
}

// Send queues a frame for the write pump. It never blocks.
func (c *Client) Send(msg engine.OutboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-c.closed:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close flushes queued frames and closes the socket with a close frame
// carrying reason.
func (c *Client) Close(reason engine.CloseReason) error {
	c.closeOnce.Do(func() {
		c.closeReason = reason
		close(c.closed)
	})
	return nil
}

// readPump pumps frames from the websocket connection to the session.
func (c *Client) readPump() {
	defer func() {
		c.session.Disconnect()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("Client", "Unexpected close", map[string]interface{}{"session_id": c.key, "error": err})
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if err := c.session.Deliver(raw); err != nil {
			return
		}
	}
}

// writePump pumps frames from the session to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.writerDone)
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				c.logger.Debug("Client", "Write failed", map[string]interface{}{"session_id": c.key, "error": err})
				c.session.Disconnect()
				return
			}
		case <-c.closed:
			c.flush()
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(closeCode(c.closeReason), string(c.closeReason)))
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.session.Disconnect()
				return
			}
		}
	}
}

func (c *Client) write(message []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	if _, err := w.Write(message); err != nil {
		return err
	}
	return w.Close()
}

// flush writes whatever is still queued, typically the closing frame.
func (c *Client) flush() {
	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				return
			}
		default:
			return
		}
	}
}

func closeCode(reason engine.CloseReason) int {
	switch reason {
	case engine.CloseCompleted, engine.CloseAbandoned, engine.CloseClientDisconnect:
		return websocket.CloseNormalClosure
	case engine.CloseShutdown, engine.CloseSuperseded, engine.CloseIdle:
		return websocket.CloseGoingAway
	case engine.CloseTooManyErrors:
		return websocket.ClosePolicyViolation
	default:
		return websocket.CloseInternalServerErr
	}
}
