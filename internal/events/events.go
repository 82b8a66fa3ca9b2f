// Package events connects taxonomy reloads to a NATS bus: reload requests
// arrive on one subject and every reload outcome is published on another.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/jenezis/harmonizer/internal/service"
	"github.com/jenezis/harmonizer/internal/taxonomy"
)

// Subjects.
const (
	SubjectReload   = "taxonomy.reload"
	SubjectReloaded = "taxonomy.reloaded"
)

const replyReloadTimeout = 90 * time.Second

// Publisher is the subset of *nats.Conn used for outgoing messages.
type Publisher interface {
	Publish(subj string, data []byte) error
}

// Reloader runs a reload synchronously.
type Reloader interface {
	Reload(ctx context.Context, trigger string) (taxonomy.Stats, error)
}

// Trigger schedules an asynchronous reload.
type Trigger interface {
	Enqueue(source string)
}

// Connect dials NATS with reconnect logging. It retries forever after the
// first successful connection.
func Connect(url string, log *logrus.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("harmonizer"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.WithField("url", c.ConnectedUrlRedacted()).Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	return nc, nil
}

// Bridge handles reload requests from NATS and publishes reload outcomes.
type Bridge struct {
	pub      Publisher
	reloader Reloader
	trigger  Trigger
	log      *logrus.Logger
}

// NewBridge creates a Bridge. Fire-and-forget requests go to trigger;
// request/reply calls run reloader inline so the reply carries the result.
func NewBridge(pub Publisher, reloader Reloader, trigger Trigger, log *logrus.Logger) *Bridge {
	return &Bridge{pub: pub, reloader: reloader, trigger: trigger, log: log}
}

// Subscribe registers the reload handler on nc.
func (b *Bridge) Subscribe(nc *nats.Conn) (*nats.Subscription, error) {
	sub, err := nc.Subscribe(SubjectReload, b.handleReload)
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", SubjectReload, err)
	}

	b.log.WithField("subject", SubjectReload).Info("listening for taxonomy reload requests")

	return sub, nil
}

func (b *Bridge) handleReload(msg *nats.Msg) {
	if msg.Reply == "" {
		b.trigger.Enqueue(service.TriggerNATS)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), replyReloadTimeout)
	defer cancel()

	stats, err := b.reloader.Reload(ctx, service.TriggerNATS)

	reply := struct {
		OK    bool           `json:"ok"`
		Stats taxonomy.Stats `json:"stats"`
		Error string         `json:"error,omitempty"`
	}{OK: err == nil, Stats: stats}
	if err != nil {
		reply.Error = err.Error()
	}

	data, err := json.Marshal(reply)
	if err != nil {
		b.log.WithError(err).Error("encoding reload reply")
		return
	}

	if err := b.pub.Publish(msg.Reply, data); err != nil {
		b.log.WithError(err).Warn("publishing reload reply")
	}
}

// TaxonomyReloaded publishes ev on SubjectReloaded.
func (b *Bridge) TaxonomyReloaded(ev service.ReloadEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		b.log.WithError(err).Error("encoding reload event")
		return
	}

	if err := b.pub.Publish(SubjectReloaded, data); err != nil {
		b.log.WithError(err).WithField("subject", SubjectReloaded).Warn("publishing reload event")
	}
}
