package api

import (
	"context"

	"github.com/jenezis/harmonizer/internal/harmonizer"
	"github.com/jenezis/harmonizer/internal/store"
	"github.com/jenezis/harmonizer/internal/taxonomy"
)

// HarmonizerService defines the matching operations used by HarmonizeHandler.
type HarmonizerService interface {
	HarmonizeBatch(raws []string) []harmonizer.Result
	Suggest(ctx context.Context, raw string, topK int, allowRerank bool) (harmonizer.SuggestResult, error)
}

// CacheStatus reports the state of the installed taxonomy snapshot.
type CacheStatus interface {
	Status() taxonomy.Stats
}

// Reloader rebuilds the taxonomy cache on demand.
type Reloader interface {
	Reload(ctx context.Context, trigger string) (taxonomy.Stats, error)
}

// TaxonomyStore is the part of the backing store the handlers query directly.
type TaxonomyStore interface {
	Counts(ctx context.Context) (store.Counts, error)
	Ping(ctx context.Context) error
	Dialect() string
}
