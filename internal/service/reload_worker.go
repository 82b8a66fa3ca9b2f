package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultDebounce = 500 * time.Millisecond

// ReloadWorker turns bursts of asynchronous reload requests (database
// notifications, bus messages) into a single reload per quiet period.
type ReloadWorker struct {
	svc      *ReloadService
	log      *logrus.Logger
	debounce time.Duration
	pending  chan string
}

// NewReloadWorker creates a ReloadWorker. A non-positive debounce selects
// the default.
func NewReloadWorker(svc *ReloadService, log *logrus.Logger, debounce time.Duration) *ReloadWorker {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	return &ReloadWorker{
		svc:      svc,
		log:      log,
		debounce: debounce,
		pending:  make(chan string, 1),
	}
}

// Enqueue requests a reload. Non-blocking; a request arriving while another
// is pending is merged into it.
func (w *ReloadWorker) Enqueue(source string) {
	select {
	case w.pending <- source:
	default:
		w.log.WithField("source", source).Debug("reload already pending, merging request")
	}
}

// Run processes reload requests until the context is cancelled.
func (w *ReloadWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case source := <-w.pending:
			if !w.settle(ctx) {
				return
			}
			if _, err := w.svc.Reload(ctx, source); err != nil {
				w.log.WithError(err).WithField("source", source).Warn("triggered taxonomy reload failed")
			}
		}
	}
}

// settle waits out the debounce window, absorbing requests that arrive in
// the meantime. It reports false if ctx ended first.
func (w *ReloadWorker) settle(ctx context.Context) bool {
	timer := time.NewTimer(w.debounce)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-w.pending:
		case <-timer.C:
			return true
		}
	}
}
