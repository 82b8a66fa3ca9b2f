package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout     = 10 * time.Second
	wsReadLimit      = 4096
	clientSendBuffer = 64
	maxConnLifetime  = 4 * time.Hour
	pingInterval     = 30 * time.Second
	pingTimeout      = 10 * time.Second
	maxMissedPongs   = int32(2)
)

// eventFilter is the set of event types a client asked for; nil means all.
type eventFilter map[string]struct{}

// Client is one subscriber connection managed by the Hub.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	remote      string
	send        chan []byte
	log         *logrus.Entry
	connectedAt time.Time

	filter atomic.Pointer[eventFilter]

	mu     sync.Mutex // guards send against close
	closed bool
}

// NewClient creates a Client for conn. remote identifies the peer in logs.
func NewClient(hub *Hub, conn *websocket.Conn, remote string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		remote:      remote,
		send:        make(chan []byte, clientSendBuffer),
		log:         hub.log.WithField("client", remote),
		connectedAt: time.Now(),
	}
}

// trySend queues msg without blocking. It returns false when the buffer is
// full or the client is closed. A nil msg is ignored.
func (c *Client) trySend(msg []byte) bool {
	if msg == nil {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel exactly once.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// wants reports whether events of kind pass the client's filter. Control
// frames are never filtered.
func (c *Client) wants(kind string) bool {
	if _, ok := filterable[kind]; !ok {
		return true
	}
	f := c.filter.Load()
	if f == nil {
		return true
	}
	_, ok := (*f)[kind]
	return ok
}

// ReadPump reads subscribe messages until the connection closes.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.CloseNow() //nolint:errcheck // best-effort close on teardown
	}()

	c.conn.SetReadLimit(wsReadLimit)

	for {
		_, msgBytes, err := c.conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				c.log.WithField("status", status).Debug("subscriber closed connection")
			}

			return
		}

		c.handleMessage(msgBytes)
	}
}

// handleMessage applies a subscribe message: it installs the event filter,
// then, for a non-zero LastEventID, replays what the client missed or tells
// it to reset.
func (c *Client) handleMessage(msgBytes []byte) {
	var msg SubscribeMsg
	if err := json.Unmarshal(msgBytes, &msg); err != nil || msg.Type != "subscribe" {
		return
	}

	if len(msg.Events) > 0 {
		f := make(eventFilter, len(msg.Events))
		for _, kind := range msg.Events {
			if _, ok := filterable[kind]; ok {
				f[kind] = struct{}{}
			}
		}
		c.filter.Store(&f)
	}

	if msg.LastEventID == 0 {
		return
	}

	if c.hub.ReplayEvents(c, msg.LastEventID) {
		return
	}

	resetMsg, err := json.Marshal(ResetMsg{
		Type:   eventReset,
		Reason: "requested events no longer available, re-read /api/v1/health",
	})
	if err != nil {
		return
	}
	c.trySend(resetMsg)
}

// sendPing sends a WebSocket ping and tracks missed pongs.
// Returns true if the connection should be closed.
func (c *Client) sendPing(ctx context.Context, missedPongs *atomic.Int32) bool {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := c.conn.Ping(pingCtx)
	cancel()

	if err == nil {
		missedPongs.Store(0)
		return false
	}

	if missedPongs.Add(1) >= maxMissedPongs {
		c.log.Debug("closing: consecutive missed pongs")
		return true
	}

	return false
}

// WritePump writes queued frames to the connection, pings the peer and
// enforces a maximum connection lifetime.
func (c *Client) WritePump(ctx context.Context) {
	defer c.conn.CloseNow() //nolint:errcheck // best-effort close on teardown

	lifetimeTimer := time.NewTimer(time.Until(c.connectedAt.Add(maxConnLifetime)))
	defer lifetimeTimer.Stop()

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	var missedPongs atomic.Int32

	for {
		select {
		case <-ctx.Done():
			return
		case <-pingTicker.C:
			if c.sendPing(ctx, &missedPongs) {
				return
			}
		case msg, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusGoingAway, "subscription ended") //nolint:errcheck // best-effort
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()

			if err != nil {
				c.log.WithError(err).Debug("write failed")
				return
			}
		case <-lifetimeTimer.C:
			c.log.Info("closing subscription: max connection lifetime exceeded")
			c.conn.Close(websocket.StatusNormalClosure, "max connection lifetime exceeded") //nolint:errcheck // best-effort
			return
		}
	}
}
