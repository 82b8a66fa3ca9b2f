package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

type subscribeMessage struct {
	Type        string   `json:"type"`
	LastEventID uint64   `json:"last_event_id"`
	Events      []string `json:"events,omitempty"`
}

// AdminService handles authenticated operations.
type AdminService struct {
	c *Client
}

// Reload rebuilds the server's taxonomy cache from its store. A failed
// reload is reported as a 503 *APIError.
func (s *AdminService) Reload(ctx context.Context) (*ReloadResponse, error) {
	var resp ReloadResponse
	if err := s.c.post(ctx, "/api/v1/admin/reload", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Subscribe opens the event stream and calls fn for every message until ctx
// is cancelled, the server closes the stream or fn returns an error. The
// first message is always a welcome carrying the current event ID; pass it
// back as LastEventID on reconnect to replay what was missed. When replay is
// impossible fn receives a reset event.
func (s *AdminService) Subscribe(ctx context.Context, opts SubscribeOptions, fn func(Event) error) error {
	dial := &websocket.DialOptions{HTTPHeader: http.Header{}}
	dial.HTTPHeader.Set("User-Agent", s.c.userAgent)
	if s.c.apiKey != "" {
		dial.HTTPHeader.Set("Authorization", "Bearer "+s.c.apiKey)
	}

	conn, resp, err := websocket.Dial(ctx, s.c.baseURL+"/api/v1/events", dial)
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 {
			return &APIError{
				StatusCode: resp.StatusCode,
				Code:       "unknown",
				Message:    err.Error(),
				RequestID:  resp.Header.Get(requestIDHeader),
			}
		}
		return fmt.Errorf("dialing events: %w", err)
	}
	defer conn.CloseNow() //nolint:errcheck

	if opts.LastEventID > 0 || len(opts.Events) > 0 {
		sub := subscribeMessage{Type: "subscribe", LastEventID: opts.LastEventID, Events: opts.Events}
		if err := wsjson.Write(ctx, conn, sub); err != nil {
			return fmt.Errorf("sending subscribe: %w", err)
		}
	}

	for {
		var ev Event
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			if st := websocket.CloseStatus(err); st == websocket.StatusNormalClosure || st == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("reading event: %w", err)
		}
		if err := fn(ev); err != nil {
			conn.Close(websocket.StatusNormalClosure, "") //nolint:errcheck
			return err
		}
	}
}
