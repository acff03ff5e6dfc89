package server

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/chanrelay/internal/relay"
)

// Client is one websocket connection. It owns the connection's relay
// session and is the relay.Sink that events are pushed through.
type Client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
	addr    string
	cfg     Config
	logger  *slog.Logger
	session *relay.Session

	mu     sync.RWMutex
	closed bool
}

// NewClient wraps conn in a Client with a fresh anonymous session on r.
// The connection's read limit is taken from cfg.
func NewClient(conn *websocket.Conn, hub *Hub, r *relay.Relay, addr string, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	id := uuid.NewString()
	c := &Client{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, cfg.SendBufferSize),
		hub:    hub,
		addr:   addr,
		cfg:    cfg,
		logger: logger.With("conn", id, "remote", addr),
	}
	c.session = r.NewSession(c, c.logger)
	return c
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// TrySend queues frame for the write pump without blocking. It reports
// false when the client is closed or its queue is full.
func (c *Client) TrySend(frame []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// closeSend marks the client closed and closes its queue, which makes the
// write pump send a close frame and exit. Only the first call has effect.
func (c *Client) closeSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	c.closed = true
	close(c.send)
	return true
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
		c.logger.Warn("set initial read deadline", "err", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
			c.logger.Warn("set read deadline in pong handler", "err", err)
		}
		return nil
	})
}

// logReadError reports why the read loop ended.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Info("frame exceeded maximum size", "limit", c.cfg.MaxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		c.logger.Info("client disconnected")
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.logger.Info("connection closed", "err", err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.logger.Warn("unexpected websocket close", "err", err)
	default:
		c.logger.Info("websocket read ended", "err", err)
	}
}

// readPump feeds every inbound frame to the session, one at a time, until
// the connection fails. Binary frames are handed over unchanged; the
// decoder rejects the ones that are not UTF-8.
func (c *Client) readPump() {
	defer func() {
		c.session.Close()
		c.hub.Unregister(c)
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		c.session.Handle(frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when
// the pump should stop.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case frame, ok := <-c.send:
		if !ok {
			return c.writeCloseMessage()
		}
		return c.writeFrame(frame)
	case <-ticker.C:
		return c.writePing()
	}
}

func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.logger.Warn("close connection", "err", err)
	}
}

func (c *Client) writeCloseMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return false
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteMessage(websocket.CloseMessage, msg); err != nil && !isExpectedCloseError(err) {
		c.logger.Warn("write close message", "err", err)
	}
	return false
}

// writeFrame writes exactly one event as one text frame.
func (c *Client) writeFrame(frame []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		c.logger.Warn("set write deadline", "err", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("write frame", "err", err)
		}
		return false
	}
	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		c.logger.Warn("set write deadline for ping", "err", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("write ping", "err", err)
		}
		return false
	}
	return true
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
