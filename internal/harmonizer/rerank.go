package harmonizer

import (
	"context"
	"errors"
)

// ErrRerankUnavailable is returned by a Reranker that is not configured.
var ErrRerankUnavailable = errors.New("re-ranking unavailable")

// Reranker orders candidate canonical names for an input string. It returns
// at most topK names; names outside candidates are ignored by the caller.
type Reranker interface {
	Rerank(ctx context.Context, input string, candidates []string, topK int) ([]string, error)
}

// NoReranker is the unavailable capability.
type NoReranker struct{}

// Rerank always reports ErrRerankUnavailable.
func (NoReranker) Rerank(context.Context, string, []string, int) ([]string, error) {
	return nil, ErrRerankUnavailable
}
