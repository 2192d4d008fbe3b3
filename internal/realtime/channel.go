// Package realtime implements the push-event subscription to the
// execution service over a websocket transport. Delivery is ordered per
// connection only: after a reconnect the same event may arrive again and
// ordering across the reconnect is not guaranteed, so handlers must be
// idempotent. Disconnects are silent to subscribers; callers that need a
// result within a bounded window must fall back to polling.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	appErr "ojcli/pkg/errors"
	"ojcli/pkg/utils/logger"
)

const (
	defaultHandshakeTimeout = 5 * time.Second
	reconnectBaseDelay      = 500 * time.Millisecond
	reconnectMaxDelay       = 15 * time.Second
)

// Handler consumes one pushed event payload.
type Handler func(payload json.RawMessage)

// frame is the wire envelope for both directions.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Channel is a websocket-backed event subscription.
type Channel struct {
	url    string
	dialer *websocket.Dialer

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closed    bool
	userID    string
	nextSubID int
	handlers  map[string]map[int]Handler
}

// New creates a channel for the given websocket URL (ws:// or wss://).
func New(url string) *Channel {
	return &Channel{
		url:      url,
		dialer:   &websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout},
		handlers: make(map[string]map[int]Handler),
	}
}

// Connect establishes the transport if not already connected. Safe to call
// repeatedly; a live connection is left untouched.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return appErr.New(appErr.ChannelClosed)
	}
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return appErr.Wrap(err, appErr.ChannelConnectFailed).WithMessagef("dial %s failed: %v", c.url, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return appErr.New(appErr.ChannelClosed)
	}
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// RegisterIdentity associates the connection with a logical subscriber.
// The identity is remembered and re-sent automatically after reconnects.
func (c *Channel) RegisterIdentity(ctx context.Context, userID string) error {
	c.mu.Lock()
	c.userID = userID
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		if err := c.Connect(ctx); err != nil {
			return err
		}
		c.mu.Lock()
		conn = c.conn
		c.mu.Unlock()
	}
	return c.sendRegister(conn, userID)
}

func (c *Channel) sendRegister(conn *websocket.Conn, userID string) error {
	data, err := json.Marshal(RegisterPayload{UserID: userID})
	if err != nil {
		return appErr.Wrap(err, appErr.ChannelRegisterFailed)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if conn == nil {
		return appErr.New(appErr.ChannelRegisterFailed).WithMessage("no live connection")
	}
	if err := conn.WriteJSON(frame{Event: EventRegister, Data: data}); err != nil {
		return appErr.Wrap(err, appErr.ChannelRegisterFailed)
	}
	return nil
}

// OnEvent subscribes a handler to the named event and returns a
// subscription id for Off.
func (c *Channel) OnEvent(name string, h Handler) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	if c.handlers[name] == nil {
		c.handlers[name] = make(map[int]Handler)
	}
	c.handlers[name][c.nextSubID] = h
	return c.nextSubID
}

// Off removes a subscription created by OnEvent.
func (c *Channel) Off(name string, subID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if subs, ok := c.handlers[name]; ok {
		delete(subs, subID)
	}
}

// Close tears the channel down permanently.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// readLoop pumps frames off one connection and reconnects on failure.
// Handlers run on this goroutine; delivery order holds per connection.
func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			c.mu.Lock()
			stillCurrent := c.conn == conn
			closed := c.closed
			if stillCurrent {
				c.connected = false
				c.conn = nil
			}
			c.mu.Unlock()
			_ = conn.Close()
			if closed || !stillCurrent {
				return
			}
			logger.Warn(context.Background(), "push channel disconnected", zap.Error(err))
			c.reconnect()
			return
		}
		c.dispatch(f)
	}
}

func (c *Channel) dispatch(f frame) {
	c.mu.Lock()
	subs := make([]Handler, 0, len(c.handlers[f.Event]))
	for _, h := range c.handlers[f.Event] {
		subs = append(subs, h)
	}
	c.mu.Unlock()
	for _, h := range subs {
		h(f.Data)
	}
}

// reconnect dials again with exponential backoff and re-registers the
// stored identity. Gives up only when the channel is closed.
func (c *Channel) reconnect() {
	delay := reconnectBaseDelay
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		time.Sleep(delay)
		if delay < reconnectMaxDelay {
			delay *= 2
			if delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
		}

		conn, _, err := c.dialer.Dial(c.url, nil)
		if err != nil {
			logger.Warn(context.Background(), "push channel reconnect failed", zap.Error(err))
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.connected = true
		userID := c.userID
		c.mu.Unlock()

		if userID != "" {
			if err := c.sendRegister(conn, userID); err != nil {
				logger.Warn(context.Background(), "push channel re-register failed", zap.Error(err))
			}
		}
		go c.readLoop(conn)
		return
	}
}
