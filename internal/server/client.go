// Package server manages individual WebSocket connections, handling read and
// write pumps, rate limiting, and the exactly-once cleanup sequence for each
// connection.
package server

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	sendBufferSize = 256

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client represents one live WebSocket connection. It runs through the states
// anonymous, named (after a successful login), and closed; there is no
// transition back, and the cleanup sequence runs exactly once regardless of
// how the connection terminates.
type Client struct {
	id   string
	conn *websocket.Conn
	hub  *Hub
	addr string

	send chan []byte
	mu   sync.Mutex
	// closed guards send: once set, nothing may enqueue and the channel is shut.
	closed      bool
	cleanupOnce sync.Once

	logger         zerolog.Logger
	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
}

// newClient creates a Client for an upgraded connection. The send channel is
// buffered so broadcast fan-out can enqueue without blocking; a full buffer
// counts as a failed delivery.
func newClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	id := uuid.NewString()
	return &Client{
		id:             id,
		conn:           conn,
		hub:            hub,
		addr:           addr,
		send:           make(chan []byte, sendBufferSize),
		logger:         hub.logger.With().Str("client_id", id).Str("remote_addr", addr).Logger(),
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
	}
}

// ID returns the connection's opaque identifier.
func (c *Client) ID() string {
	return c.id
}

// FallbackName derives the display name used when a login carries no
// username. It is deterministic for the lifetime of the connection.
func (c *Client) FallbackName() string {
	return "User_" + strings.ReplaceAll(c.id, "-", "")[:8]
}

// trySend enqueues a payload for the write pump without blocking. It reports
// false when the client is closed or its send buffer is full.
func (c *Client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend marks the client closed and shuts its send channel, waking the
// write pump. Safe to call more than once.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// cleanup runs the terminal sequence for this connection: remove it from the
// registry capturing its name, and announce the departure if it had logged
// in. The registry removal happens before the broadcast, so the departure
// announcement can never be routed back to the dead connection.
func (c *Client) cleanup() {
	c.cleanupOnce.Do(func() {
		name, named := c.hub.registry.Unregister(c)
		c.closeSend()

		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Debug().Err(err).Msg("error closing connection during cleanup")
		}

		connectionsActive.Dec()

		if named {
			c.hub.broadcaster.Deliver(nil, Delivery{Target: ToAll, Msg: c.hub.router.userLeft(name)})
		}

		c.logger.Info().
			Str("username", name).
			Int("total_clients", c.hub.registry.Len()).
			Msg("client disconnected")
	})
}

// setupReadConnection configures read deadlines and the pong handler.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Warn().Err(err).Msg("error setting initial read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Warn().Err(err).Msg("error setting read deadline in pong handler")
		}
		return nil
	})
}

// handleReadError logs the read failure at an appropriate level. Every read
// failure terminates the read loop; only reporting differs.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn().Int64("max_message_size", c.maxMessageSize).Msg("message exceeded maximum size")
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.logger.Debug().Err(err).Msg("client disconnected")
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.logger.Debug().Err(err).Msg("connection closed")
	default:
		c.logger.Warn().Err(err).Msg("websocket read error")
	}
}

// checkRateLimit reports whether the next frame may be processed.
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		rateLimitedFrames.Inc()
		c.logger.Warn().
			Int("burst", c.rateLimit.Burst).
			Dur("refill_interval", c.rateLimit.RefillInterval).
			Msg("rate limit exceeded; discarding frame")
		return false
	}
	return true
}

// processMessage decodes one raw frame, routes it, and executes the resulting
// deliveries. A failure while processing a single frame is reported to the
// sender as an error message and never terminates the connection.
func (c *Client) processMessage(raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("recovered while processing message")
			c.hub.broadcaster.Deliver(c, Delivery{Target: ToSender, Msg: c.hub.router.errorMessage(fmt.Sprint(r))})
		}
	}()

	msg := DecodeInbound(raw)
	messagesReceived.WithLabelValues(inboundLabel(msg)).Inc()

	for _, d := range c.hub.router.Route(c, msg) {
		c.hub.broadcaster.Deliver(c, d)
	}
}

// readPump reads frames until the connection terminates, then runs cleanup.
// Closing the connection from either side unblocks the pending read.
func (c *Client) readPump() {
	defer c.cleanup()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			break
		}

		if !c.checkRateLimit() {
			continue
		}

		c.processMessage(raw)
	}
}

// writePump drains the send channel to the connection and keeps it alive with
// periodic pings. It stops when the send channel closes or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Debug().Err(err).Msg("error closing connection in write pump")
		}
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !c.writeMessage(payload, ok) {
				return
			}
		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeMessage writes one outbound payload, draining any further queued
// payloads into the same frame batch. Returns false when the pump should stop.
func (c *Client) writeMessage(payload []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Warn().Err(err).Msg("error setting write deadline")
		return false
	}

	if !ok {
		// Send channel closed: tell the peer we are going away.
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			c.logger.Debug().Err(err).Msg("error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn().Err(err).Msg("error writing message")
		}
		return false
	}

	queued := len(c.send)
	for i := 0; i < queued; i++ {
		next, open := <-c.send
		if !open {
			// Channel closed mid-drain: still tell the peer we are going away.
			if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
				c.logger.Debug().Err(err).Msg("error writing close message")
			}
			return false
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, next); err != nil {
			if !isExpectedCloseError(err) {
				c.logger.Warn().Err(err).Msg("error writing queued message")
			}
			return false
		}
	}

	return true
}

// writePing sends a keepalive ping. Returns false when the pump should stop.
func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Warn().Err(err).Msg("error setting write deadline for ping")
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Debug().Err(err).Msg("error writing ping message")
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
