package ws

import (
	"encoding/json"
	"time"

	"github.com/jenezis/harmonizer/internal/taxonomy"
)

// Event types pushed to clients. Only the taxonomy events are buffered for
// replay and can be filtered; control frames always reach every client.
const (
	EventTaxonomyReloaded     = "taxonomy.reloaded"
	EventTaxonomyReloadFailed = "taxonomy.reload_failed"

	eventWelcome  = "welcome"
	eventShutdown = "shutdown"
	eventReset    = "reset"
)

// filterable lists the event types a subscriber may select.
var filterable = map[string]struct{}{
	EventTaxonomyReloaded:     {},
	EventTaxonomyReloadFailed: {},
}

// Event is a buffered, replayable notification.
type Event struct {
	Type string          `json:"type"`
	ID   uint64          `json:"id"`
	Data json.RawMessage `json:"data,omitempty"`
	Time time.Time       `json:"time"`
}

// SubscribeMsg is sent by the client to pick event types and to request
// replay of everything after LastEventID. An empty Events list selects all.
type SubscribeMsg struct {
	Type        string   `json:"type"`
	LastEventID uint64   `json:"last_event_id"`
	Events      []string `json:"events,omitempty"`
}

// WelcomeMsg is the first frame on every connection. LastEventID lets a new
// subscriber resume from here on its next reconnect.
type WelcomeMsg struct {
	Type        string          `json:"type"`
	LastEventID uint64          `json:"last_event_id"`
	Cache       *taxonomy.Stats `json:"cache,omitempty"`
}

// ResetMsg tells the client that replay is impossible and it should
// re-read current state (e.g. GET /api/v1/health).
type ResetMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}
