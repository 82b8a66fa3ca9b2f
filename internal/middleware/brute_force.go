package middleware

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	bruteForceMaxAttempts = 5
	bruteForceWindow      = 15 * time.Minute
	bruteForceLockout     = 5 * time.Minute
	bruteForceCleanup     = 60 * time.Second
	bruteForceMaxRecords  = 10000
)

type failureRecord struct {
	attempts  int
	firstFail time.Time
	lockedAt  time.Time
}

// BruteForceGuard tracks authentication failures per client address and
// blocks clients that exceed the failure threshold within the tracking window.
type BruteForceGuard struct {
	mu      sync.Mutex
	records map[string]*failureRecord
	log     *logrus.Logger
	now     func() time.Time
}

// NewBruteForceGuard creates a new guard and starts a background cleanup goroutine
// that stops when ctx is cancelled.
func NewBruteForceGuard(ctx context.Context, log *logrus.Logger) *BruteForceGuard {
	g := newBruteForceGuard(log)
	go g.cleanupLoop(ctx)
	return g
}

func newBruteForceGuard(log *logrus.Logger) *BruteForceGuard {
	return &BruteForceGuard{
		records: make(map[string]*failureRecord),
		log:     log,
		now:     time.Now,
	}
}

// IsBlocked reports whether client is currently locked out.
func (g *BruteForceGuard) IsBlocked(client string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[client]
	if !ok {
		return false
	}

	return !rec.lockedAt.IsZero() && g.now().Sub(rec.lockedAt) < bruteForceLockout
}

// RecordFailure records a failed authentication attempt from client.
func (g *BruteForceGuard) RecordFailure(client string) {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[client]
	if !ok {
		g.records[client] = &failureRecord{attempts: 1, firstFail: now}
		return
	}

	// Reset if outside the tracking window.
	if now.Sub(rec.firstFail) > bruteForceWindow {
		rec.attempts = 1
		rec.firstFail = now
		rec.lockedAt = time.Time{}
		return
	}

	rec.attempts++
	if rec.attempts >= bruteForceMaxAttempts {
		rec.lockedAt = now
		g.log.WithField("client_ip", client).Warn("client locked out due to repeated auth failures")
	}
}

// Reset clears failure tracking for client after a successful authentication.
func (g *BruteForceGuard) Reset(client string) {
	g.mu.Lock()
	delete(g.records, client)
	g.mu.Unlock()
}

func (g *BruteForceGuard) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(bruteForceCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sweep()
		}
	}
}

// sweep removes expired lockouts and stale windows, then enforces the record cap.
func (g *BruteForceGuard) sweep() {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	for k, rec := range g.records {
		if !rec.lockedAt.IsZero() && now.Sub(rec.lockedAt) >= bruteForceLockout {
			delete(g.records, k)
		} else if now.Sub(rec.firstFail) >= bruteForceWindow {
			delete(g.records, k)
		}
	}
	if len(g.records) > bruteForceMaxRecords {
		g.evictOldest(len(g.records) - bruteForceMaxRecords)
	}
}

// evictOldest removes n entries with the oldest firstFail times.
// Caller must hold g.mu.
func (g *BruteForceGuard) evictOldest(n int) {
	type entry struct {
		key  string
		time time.Time
	}
	entries := make([]entry, 0, len(g.records))
	for k, rec := range g.records {
		entries = append(entries, entry{k, rec.firstFail})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].time.Before(entries[j].time)
	})
	for i := range n {
		delete(g.records, entries[i].key)
	}
}
