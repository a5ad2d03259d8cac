// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/DevEmmy/eventfi-backend-v2/internal/chat"
	"github.com/DevEmmy/eventfi-backend-v2/internal/logging"
	"github.com/DevEmmy/eventfi-backend-v2/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

// clientIDCounter gives clients a stable delivery order.
var clientIDCounter atomic.Uint64

// ClientOptions tunes a single connection.
type ClientOptions struct {
	SendBuffer int

	// InboundRate and InboundBurst size the token bucket applied to inbound
	// frames. A zero rate disables the guard.
	InboundRate  float64
	InboundBurst int
}

// Client is one authenticated websocket connection.
type Client struct {
	id     uint64
	userID string
	conn   *websocket.Conn
	send   chan []byte

	done      chan struct{}
	closeOnce sync.Once

	limiter *rate.Limiter

	typingMu    sync.Mutex
	typingTimer *time.Timer
}

// NewClient wraps conn for userID.
func NewClient(conn *websocket.Conn, userID string, opts ClientOptions) *Client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	c := &Client{
		id:     clientIDCounter.Add(1),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, opts.SendBuffer),
		done:   make(chan struct{}),
	}
	if opts.InboundRate > 0 {
		burst := opts.InboundBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.InboundRate), burst)
	}
	return c
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// UserID returns the authenticated user.
func (c *Client) UserID() string {
	return c.userID
}

// Done is closed when the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// enqueue queues a frame for writing. A full queue closes the client.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return false
	default:
		metrics.WSErrors.WithLabelValues("slow_consumer").Inc()
		c.close()
		return false
	}
}

// sendFrame encodes and queues a frame for this client only.
func (c *Client) sendFrame(event string, data interface{}) {
	frame, err := MarshalFrame(event, data)
	if err != nil {
		logging.Error().Err(err).Str("event", event).Msg("failed to marshal websocket frame")
		return
	}
	c.enqueue(frame)
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// allow reports whether an inbound frame fits the flood guard.
func (c *Client) allow() bool {
	return c.limiter == nil || c.limiter.Allow()
}

// startTyping arms or re-arms the typing timer; expire runs once the
// timer fires without being re-armed or stopped.
func (c *Client) startTyping(d time.Duration, expire func()) {
	c.typingMu.Lock()
	defer c.typingMu.Unlock()

	if c.typingTimer != nil {
		c.typingTimer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		c.typingMu.Lock()
		if c.typingTimer != t {
			c.typingMu.Unlock()
			return
		}
		c.typingTimer = nil
		c.typingMu.Unlock()
		expire()
	})
	c.typingTimer = t
}

// stopTyping disarms the typing timer. It reports whether the client was
// typing, in which case the caller owns the typing:stop notification.
func (c *Client) stopTyping() bool {
	c.typingMu.Lock()
	defer c.typingMu.Unlock()

	if c.typingTimer == nil {
		return false
	}
	c.typingTimer.Stop()
	c.typingTimer = nil
	return true
}

// readPump reads frames until the connection fails or the client is
// closed, passing each admitted frame to handle. It runs on the caller's
// goroutine so a connection's frames are handled one at a time.
func (c *Client) readPump(handle func(*Client, Frame)) {
	defer func() {
		c.close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				metrics.WSErrors.WithLabelValues("read").Inc()
				logging.Warn().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close error")
			}
			return
		}

		select {
		case <-c.done:
			return
		default:
		}

		if !c.allow() {
			metrics.WSErrors.WithLabelValues("rate_limited").Inc()
			c.sendFrame(EventError, ErrorPayload{Code: chat.CodeRateLimited, Message: "too many frames, slow down"})
			continue
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Event == "" {
			metrics.WSErrors.WithLabelValues("malformed").Inc()
			c.sendFrame(EventError, ErrorPayload{Code: chat.CodeValidation, Message: "malformed frame"})
			continue
		}
		metrics.WSMessagesReceived.WithLabelValues(eventLabel(frame.Event)).Inc()
		handle(c, frame)
	}
}

// writePump writes queued frames and keepalive pings. Closing the client
// sends a close frame and ends the loop.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				return
			}
			metrics.WSMessagesSent.Inc()

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
