package api_test

import (
	"context"
	"errors"

	"github.com/jenezis/harmonizer/internal/harmonizer"
	"github.com/jenezis/harmonizer/internal/store"
	"github.com/jenezis/harmonizer/internal/taxonomy"
)

// mockHarmonizer implements api.HarmonizerService for testing.
type mockHarmonizer struct {
	batchFn   func(raws []string) []harmonizer.Result
	suggestFn func(ctx context.Context, raw string, topK int, allowRerank bool) (harmonizer.SuggestResult, error)
}

func (m *mockHarmonizer) HarmonizeBatch(raws []string) []harmonizer.Result {
	return m.batchFn(raws)
}

func (m *mockHarmonizer) Suggest(ctx context.Context, raw string, topK int, allowRerank bool) (harmonizer.SuggestResult, error) {
	return m.suggestFn(ctx, raw, topK, allowRerank)
}

// mockCache implements api.CacheStatus for testing.
type mockCache struct {
	stats taxonomy.Stats
}

func (m *mockCache) Status() taxonomy.Stats { return m.stats }

// mockReloader implements api.Reloader for testing.
type mockReloader struct {
	reloadFn func(ctx context.Context, trigger string) (taxonomy.Stats, error)
}

func (m *mockReloader) Reload(ctx context.Context, trigger string) (taxonomy.Stats, error) {
	return m.reloadFn(ctx, trigger)
}

// mockStore implements api.TaxonomyStore for testing.
type mockStore struct {
	counts  store.Counts
	err     error
	pingErr error
}

func (m *mockStore) Counts(context.Context) (store.Counts, error) { return m.counts, m.err }
func (m *mockStore) Ping(context.Context) error                 { return m.pingErr }
func (m *mockStore) Dialect() string                            { return store.DialectPostgres }

var errDown = errors.New("connection refused")

func loadedStats() taxonomy.Stats {
	return taxonomy.Stats{Aliases: 4, Canonicals: 3, Edges: 2, Generation: 1, State: taxonomy.StateLoaded}
}
