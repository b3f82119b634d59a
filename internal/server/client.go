package server

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"echolink/internal/signaling"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}

	errConnClosed     = errors.New("connection closed")
	errSendBufferFull = errors.New("send buffer full")
)

// Client is one live websocket connection for one user. It implements
// signaling.Connection, so the registry and router never see the transport.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	userID uuid.UUID
	router *signaling.Router
	logger WebSocketLogger

	// heartbeat, when set, is invoked on every pong so the presence TTL
	// tracks connection liveness.
	heartbeat func()

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, userID uuid.UUID, router *signaling.Router, logger WebSocketLogger) *Client {
	return &Client{
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		userID: userID,
		router: router,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Send enqueues a payload for the write pump. It never blocks: a full buffer
// or a closed connection reports an error so the caller can treat this peer
// as dead instead of waiting on it.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		return errSendBufferFull
	}
}

// Close shuts the connection down. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
	return nil
}

// readPump processes the inbound stream sequentially, which is what gives
// per-sender FIFO ordering on the relay path. It returns when the connection
// drops; the caller owns disconnect cleanup.
func (c *Client) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if c.heartbeat != nil {
			c.heartbeat()
		}
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket unexpected close", c.userID, err)
			}
			return
		}

		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
		if len(message) == 0 {
			continue
		}
		c.router.HandleMessage(context.Background(), c.userID, message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
