// Package service coordinates taxonomy reloads: it runs the cache load and
// fans the outcome out to every registered notifier.
package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jenezis/harmonizer/internal/taxonomy"
)

// Reload trigger sources.
const (
	TriggerStartup = "startup"
	TriggerAdmin   = "admin"
	TriggerNATS    = "nats"
)

// Loader rebuilds the taxonomy snapshot.
type Loader interface {
	Load(ctx context.Context) (taxonomy.Stats, error)
}

// ReloadEvent describes one completed reload.
type ReloadEvent struct {
	Trigger    string         `json:"trigger"`
	OK         bool           `json:"ok"`
	Stats      taxonomy.Stats `json:"stats"`
	Error      string         `json:"error,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	At         time.Time      `json:"at"`
}

// ReloadNotifier is told about every completed reload. Implementations must
// not block.
type ReloadNotifier interface {
	TaxonomyReloaded(ev ReloadEvent)
}

// ReloadService loads the cache and publishes the outcome.
type ReloadService struct {
	loader    Loader
	log       *logrus.Logger
	notifiers []ReloadNotifier
}

// NewReloadService creates a ReloadService. Notifiers may be added later
// with AddNotifier, before the service is shared between goroutines.
func NewReloadService(loader Loader, log *logrus.Logger, notifiers ...ReloadNotifier) *ReloadService {
	return &ReloadService{loader: loader, log: log, notifiers: notifiers}
}

// AddNotifier registers n for subsequent reloads.
func (s *ReloadService) AddNotifier(n ReloadNotifier) {
	s.notifiers = append(s.notifiers, n)
}

// Reload rebuilds the taxonomy cache. A failed load still leaves the cache
// serving (empty, degraded); the error is returned for the caller to report.
func (s *ReloadService) Reload(ctx context.Context, trigger string) (taxonomy.Stats, error) {
	stats, err := s.loader.Load(ctx)

	ev := ReloadEvent{
		Trigger:    trigger,
		OK:         err == nil,
		Stats:      stats,
		DurationMS: stats.Duration.Milliseconds(),
		At:         time.Now().UTC(),
	}
	if err != nil {
		ev.Error = err.Error()
	}

	s.log.WithFields(logrus.Fields{
		"trigger":    trigger,
		"ok":         ev.OK,
		"generation": stats.Generation,
	}).Debug("taxonomy.reload")

	for _, n := range s.notifiers {
		n.TaxonomyReloaded(ev)
	}

	return stats, err
}
