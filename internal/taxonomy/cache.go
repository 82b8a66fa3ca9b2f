package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// loadTimeout bounds one reload, independent of the triggering request.
const loadTimeout = 60 * time.Second

// Cache owns the current taxonomy snapshot. Readers call Snapshot once per
// operation; Load builds a new snapshot and publishes it with a single
// pointer swap, so no reader ever sees a partial build.
type Cache struct {
	source Source
	log    *logrus.Logger
	rec    Recorder

	current atomic.Pointer[Snapshot]
	gen     atomic.Uint64
	mu      sync.Mutex // serializes builds
	group   singleflight.Group
}

// NewCache creates an empty cache over source. rec may be nil.
func NewCache(source Source, log *logrus.Logger, rec Recorder) *Cache {
	c := &Cache{source: source, log: log, rec: rec}
	c.current.Store(emptySnapshot(0, StateEmpty, ""))

	return c
}

// Snapshot returns the currently published snapshot.
func (c *Cache) Snapshot() *Snapshot {
	return c.current.Load()
}

// Load rebuilds the snapshot from the backing store. Concurrent callers
// share a single in-flight build. On store failure the live snapshot is
// reset to an empty, degraded one and the error is returned to the caller
// of Load only; readers keep working against the empty snapshot.
func (c *Cache) Load(ctx context.Context) (Stats, error) {
	v, err, shared := c.group.Do("load", func() (any, error) {
		c.mu.Lock()
		defer c.mu.Unlock()

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		return c.load(loadCtx)
	})
	if shared {
		c.log.Debug("taxonomy reload coalesced with in-flight load")
	}

	stats, _ := v.(Stats)

	return stats, err
}

func (c *Cache) load(ctx context.Context) (Stats, error) {
	start := time.Now()
	gen := c.gen.Add(1)

	snap, err := c.build(ctx, gen)
	if err != nil {
		if !errors.Is(err, ErrBackingStore) {
			err = fmt.Errorf("%w: %w", ErrBackingStore, err)
		}

		snap = emptySnapshot(gen, StateDegraded, err.Error())
		c.current.Store(snap)

		stats := snap.Stats()
		stats.Duration = time.Since(start)
		c.log.WithError(err).WithField("generation", gen).
			Error("taxonomy load failed, serving empty cache")
		c.record(stats, false)

		return stats, err
	}

	c.current.Store(snap)

	stats := snap.Stats()
	stats.Duration = time.Since(start)
	c.log.WithFields(logrus.Fields{
		"aliases":    stats.Aliases,
		"canonicals": stats.Canonicals,
		"edges":      stats.Edges,
		"generation": gen,
		"duration":   stats.Duration.String(),
	}).Info("taxonomy cache loaded")
	c.record(stats, true)

	return stats, nil
}

func (c *Cache) build(ctx context.Context, gen uint64) (*Snapshot, error) {
	if ss, ok := c.source.(SnapshotSource); ok {
		t, err := ss.ReadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading taxonomy: %w", err)
		}
		return newSnapshot(gen, t.Aliases, t.Canonicals, t.Edges), nil
	}

	aliases, err := c.source.Aliases(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading aliases: %w", err)
	}

	canonicals, err := c.source.Canonicals(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading canonical terms: %w", err)
	}

	edges, err := c.source.Hierarchy(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading hierarchy: %w", err)
	}

	return newSnapshot(gen, aliases, canonicals, edges), nil
}

func (c *Cache) record(stats Stats, ok bool) {
	if c.rec != nil {
		c.rec.TaxonomyLoaded(stats, ok)
	}
}

// ResolveAlias looks up an already-normalized alias in the current snapshot.
func (c *Cache) ResolveAlias(alias string) (string, bool) {
	return c.Snapshot().ResolveAlias(alias)
}

// IsCanonical reports whether name is canonical in the current snapshot.
func (c *Cache) IsCanonical(name string) bool {
	return c.Snapshot().IsCanonical(name)
}

// ParentsOf returns the direct parents of name in the current snapshot.
func (c *Cache) ParentsOf(name string) []string {
	return c.Snapshot().ParentsOf(name)
}

// Size returns the alias and canonical counts of the current snapshot.
func (c *Cache) Size() (aliases, canonicals int) {
	return c.Snapshot().Size()
}

// Status returns the current snapshot's summary.
func (c *Cache) Status() Stats {
	return c.Snapshot().Stats()
}
