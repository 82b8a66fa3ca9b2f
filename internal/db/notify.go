package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/jenezis/harmonizer/internal/dbpool"
)

// validChannel matches safe PostgreSQL LISTEN channel names.
var validChannel = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ListenChannel is the channel the taxonomy triggers notify on.
const ListenChannel = "taxonomy_changes"

const (
	initialBackoff    = 1 * time.Second
	maxBackoff        = 30 * time.Second
	backoffMultiplier = 2
)

// ReloadTrigger schedules a taxonomy reload. Enqueue must not block.
type ReloadTrigger interface {
	Enqueue(source string)
}

// NotifyBridge subscribes to PostgreSQL LISTEN/NOTIFY on the
// taxonomy_changes channel and turns each notification into a reload request.
type NotifyBridge struct {
	log     *logrus.Logger
	pool    *dbpool.Pool
	trigger ReloadTrigger
	channel string
}

// NewNotifyBridge creates a NotifyBridge wired to the given pool and trigger.
func NewNotifyBridge(log *logrus.Logger, pool *dbpool.Pool, trigger ReloadTrigger) *NotifyBridge {
	return &NotifyBridge{
		log:     log,
		pool:    pool,
		trigger: trigger,
		channel: ListenChannel,
	}
}

// Start launches the LISTEN/NOTIFY loop in a background goroutine.
// It verifies the database is reachable before returning; the background
// goroutine handles reconnection for later failures.
func (b *NotifyBridge) Start(ctx context.Context) error {
	if !validChannel.MatchString(b.channel) {
		return fmt.Errorf("notify bridge: invalid channel name %q", b.channel)
	}

	if err := b.pool.Ping(ctx); err != nil {
		return fmt.Errorf("notify bridge: database not reachable: %w", err)
	}

	go b.listen(ctx)

	return nil
}

// listen acquires a connection, subscribes, and processes notifications
// until the context is cancelled, reconnecting with backoff.
func (b *NotifyBridge) listen(ctx context.Context) {
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		err := b.subscribeAndForward(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}

		b.log.WithError(err).WithField("retry_in", backoff).
			Warn("notify bridge connection lost, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		// Changes made while disconnected were never notified.
		b.trigger.Enqueue("pg_notify_reconnect")

		backoff = nextBackoff(backoff)
	}
}

func (b *NotifyBridge) subscribeAndForward(ctx context.Context) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	// LISTEN takes the channel inline, not as a parameter.
	sanitizedChannel := pgx.Identifier{b.channel}.Sanitize()
	if _, err := conn.Exec(ctx, "LISTEN "+sanitizedChannel); err != nil {
		return fmt.Errorf("executing LISTEN: %w", err)
	}

	b.log.WithField("channel", b.channel).Info("notify bridge listening")

	for {
		// Periodic deadline so cancellation is observed on an idle connection.
		if err := conn.Conn().PgConn().Conn().SetReadDeadline(time.Now().Add(2 * time.Minute)); err != nil {
			return fmt.Errorf("setting read deadline: %w", err)
		}

		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			return fmt.Errorf("waiting for notification: %w", err)
		}

		b.handleNotification(notification)
	}
}

// handleNotification requests a reload for one change notification. The
// payload is informational only.
func (b *NotifyBridge) handleNotification(n *pgconn.Notification) {
	var payload struct {
		Table string `json:"table"`
		Op    string `json:"op"`
	}
	if err := json.Unmarshal([]byte(n.Payload), &payload); err != nil {
		b.log.WithField("payload", n.Payload).Debug("unparseable taxonomy notification")
	}

	b.log.WithFields(logrus.Fields{
		"channel": n.Channel,
		"pid":     n.PID,
		"table":   payload.Table,
		"op":      payload.Op,
	}).Debug("taxonomy change notification received")

	b.trigger.Enqueue("pg_notify")
}

// nextBackoff doubles the current backoff with ±25% jitter, capped at
// maxBackoff.
func nextBackoff(current time.Duration) time.Duration {
	next := current * backoffMultiplier
	if next > maxBackoff {
		next = maxBackoff
	}

	jitter := float64(next) * (0.75 + rand.Float64()*0.5) //nolint:gosec // jitter doesn't need crypto rand.

	return time.Duration(jitter)
}
