// Package ws streams taxonomy events to WebSocket subscribers.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jenezis/harmonizer/internal/metrics"
	"github.com/jenezis/harmonizer/internal/service"
	"github.com/jenezis/harmonizer/internal/taxonomy"
)

// Hub channel buffer sizes.
const (
	broadcastBuffer = 256
	registerBuffer  = 64
)

const (
	// maxClients caps concurrent subscribers.
	maxClients = 1000
	// maxBroadcastPayload is the largest event frame the hub will send.
	maxBroadcastPayload = 4096
	// drainTimeout is how long the hub waits for clients to flush after shutdown.
	drainTimeout = 3 * time.Second
)

// StatusFunc reports the installed taxonomy snapshot for welcome frames.
type StatusFunc func() taxonomy.Stats

// frame is an encoded message plus the event type used for filtering.
type frame struct {
	kind string
	data []byte
}

// Hub fans taxonomy events out to subscribers. All client map mutations
// happen exclusively in the Run goroutine.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan frame
	shutdown   chan struct{} // signals Run to begin graceful drain
	done       chan struct{} // closed when Run has finished draining
	count      atomic.Int64
	seq        atomic.Uint64
	log        *logrus.Logger
	buffer     *EventBuffer
	status     StatusFunc
}

// NewHub creates a Hub. status may be nil, in which case welcome frames
// carry no cache state.
func NewHub(log *logrus.Logger, status StatusFunc) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client, registerBuffer),
		unregister: make(chan *Client, registerBuffer),
		broadcast:  make(chan frame, broadcastBuffer),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		log:        log,
		buffer:     NewEventBuffer(defaultBufferMaxLen, defaultBufferMaxAge),
		status:     status,
	}
}

// Run starts the hub event loop. It exits when Shutdown is called or the
// context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.drainClients()

			return
		case <-h.shutdown:
			h.drainClients()

			return

		case client := <-h.register:
			if len(h.clients) >= maxClients {
				h.log.WithField("client", client.remote).Warn("subscriber limit reached, dropping client")
				client.closeSend()
				continue
			}
			h.clients[client] = struct{}{}
			h.setCount()
			client.trySend(h.welcome())
			h.log.WithFields(logrus.Fields{"client": client.remote, "total": len(h.clients)}).Info("subscriber connected")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}
			h.setCount()
			h.log.WithFields(logrus.Fields{"client": client.remote, "total": len(h.clients)}).Info("subscriber disconnected")

		case f := <-h.broadcast:
			for client := range h.clients {
				if !client.wants(f.kind) {
					continue
				}
				if !client.trySend(f.data) {
					// Slow consumer; it will reconnect and replay.
					client.closeSend()
					delete(h.clients, client)
				}
			}
			h.setCount()
		}
	}
}

func (h *Hub) setCount() {
	h.count.Store(int64(len(h.clients)))
	metrics.WSConnections.Set(float64(len(h.clients)))
}

// welcome encodes the greeting for a new subscriber.
func (h *Hub) welcome() []byte {
	msg := WelcomeMsg{Type: eventWelcome, LastEventID: h.seq.Load()}
	if h.status != nil {
		st := h.status()
		msg.Cache = &st
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Error("encoding welcome frame")
		return nil
	}

	return data
}

// enqueue hands a frame to Run. Frames over 4 KB are dropped with a warning.
func (h *Hub) enqueue(f frame) {
	if len(f.data) > maxBroadcastPayload {
		h.log.WithFields(logrus.Fields{
			"event":        f.kind,
			"payload_size": len(f.data),
			"max_size":     maxBroadcastPayload,
		}).Warn("dropping oversized event")
		return
	}
	select {
	case h.broadcast <- f:
	default:
		h.log.WithField("event", f.kind).Warn("broadcast channel full, dropping event")
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	default:
		h.log.Warn("register channel full, dropping client")
		c.closeSend()
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	default:
		// Run loop already exited; client cleanup happened in Run shutdown.
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// BroadcastEvent assigns a sequence ID, stores the event for replay, and
// broadcasts it.
func (h *Hub) BroadcastEvent(eventType string, data json.RawMessage) {
	evt := Event{
		Type: eventType,
		ID:   h.seq.Add(1),
		Data: data,
		Time: time.Now().UTC(),
	}

	msg, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).Error("encoding event")
		return
	}

	h.buffer.Append(&evt)
	h.enqueue(frame{kind: eventType, data: msg})
}

// TaxonomyReloaded implements service.ReloadNotifier. Failed reloads are
// published under their own type so dashboards can subscribe to just those.
func (h *Hub) TaxonomyReloaded(ev service.ReloadEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).Error("encoding reload event")
		return
	}

	kind := EventTaxonomyReloaded
	if !ev.OK {
		kind = EventTaxonomyReloadFailed
	}
	h.BroadcastEvent(kind, data)
}

// Shutdown sends a shutdown frame to every client, waits for their write
// pumps to flush, then closes all connections. It blocks until the drain
// finishes or times out.
func (h *Hub) Shutdown() {
	close(h.shutdown)
	<-h.done
}

// drainClients sends a shutdown frame to every client and waits for buffers to flush.
func (h *Hub) drainClients() {
	if len(h.clients) == 0 {
		return
	}

	h.log.WithField("clients", len(h.clients)).Info("draining subscribers")

	shutdownMsg := []byte(`{"type":"` + eventShutdown + `","message":"server shutting down"}`)
	for client := range h.clients {
		client.trySend(shutdownMsg)
	}

	deadline := time.After(drainTimeout)
	ticker := time.NewTicker(50 * time.Millisecond) //nolint:mnd // poll interval
	defer ticker.Stop()

drain:
	for {
		allDrained := true

		for client := range h.clients {
			if len(client.send) > 0 {
				allDrained = false

				break
			}
		}

		if allDrained {
			break
		}

		select {
		case <-deadline:
			h.log.Warn("subscriber drain timeout, closing remaining clients")

			break drain
		case <-ticker.C:
		}
	}

	for client := range h.clients {
		client.closeSend()
		delete(h.clients, client)
	}

	h.setCount()
}

// ReplayEvents sends the buffered events after lastEventID that the client
// subscribed to. It returns false if the requested ID has already been
// evicted.
func (h *Hub) ReplayEvents(client *Client, lastEventID uint64) bool {
	oldest := h.buffer.OldestID()
	if oldest > 0 && lastEventID > 0 && lastEventID < oldest-1 {
		return false
	}

	for _, evt := range h.buffer.Since(lastEventID) {
		if !client.wants(evt.Type) {
			continue
		}
		msg, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		if !client.trySend(msg) {
			return true // channel full, stop replay
		}
	}
	return true
}
