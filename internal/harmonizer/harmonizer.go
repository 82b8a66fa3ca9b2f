// Package harmonizer resolves raw skill strings to canonical taxonomy terms
// and ranks candidate terms for unrecognized input.
package harmonizer

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jenezis/harmonizer/internal/taxonomy"
)

// ErrInvalidArgument signals a caller error (empty input, top_k out of range).
var ErrInvalidArgument = errors.New("invalid argument")

// Defaults for Options fields left at their zero value.
const (
	DefaultTopK              = 3
	MaxTopK                  = 50
	DefaultMinScore          = 0.3
	DefaultRerankContextSize = 50
	DefaultRerankTimeout     = 10 * time.Second
)

// Suggestion methods.
const (
	MethodExactMatch = "exact_match"
	MethodSimilarity = "string_similarity"
	MethodLLM        = "llm"
)

// SnapshotProvider exposes the current taxonomy snapshot.
type SnapshotProvider interface {
	Snapshot() *taxonomy.Snapshot
}

// Recorder receives harmonization observations. Fire-and-forget.
type Recorder interface {
	Harmonized(known bool)
	Suggested(method string)
	RerankFailed()
}

// Options tunes a Service. Zero values select the defaults above.
type Options struct {
	Similarity        Similarity
	MinScore          float64
	RerankContextSize int
	RerankTimeout     time.Duration
	Reranker          Reranker
	Recorder          Recorder
}

// Result is the harmonization decision for one raw string.
type Result struct {
	Original  string `json:"original_skill"`
	Canonical string `json:"canonical_skill"`
	IsKnown   bool   `json:"is_known"`
}

// Suggestion is one ranked candidate canonical term.
type Suggestion struct {
	CanonicalName string   `json:"canonical_name"`
	Score         float64  `json:"similarity_score"`
	Parents       []string `json:"parents"`
}

// SuggestResult is the ranked answer for one raw string.
type SuggestResult struct {
	Original    string       `json:"original_skill"`
	Suggestions []Suggestion `json:"suggestions"`
	Method      string       `json:"method"`
}

// Service harmonizes against whatever snapshot the provider currently
// publishes. It holds no mutable state of its own.
type Service struct {
	cache             SnapshotProvider
	log               *logrus.Logger
	similarity        Similarity
	minScore          float64
	rerankContextSize int
	rerankTimeout     time.Duration
	reranker          Reranker
	rec               Recorder
}

// New creates a Service reading from cache.
func New(cache SnapshotProvider, log *logrus.Logger, opts Options) *Service {
	s := &Service{
		cache:             cache,
		log:               log,
		similarity:        opts.Similarity,
		minScore:          opts.MinScore,
		rerankContextSize: opts.RerankContextSize,
		rerankTimeout:     opts.RerankTimeout,
		reranker:          opts.Reranker,
		rec:               opts.Recorder,
	}

	if s.similarity == nil {
		s.similarity = GestaltRatio
	}
	if s.minScore <= 0 {
		s.minScore = DefaultMinScore
	}
	if s.rerankContextSize <= 0 {
		s.rerankContextSize = DefaultRerankContextSize
	}
	if s.rerankTimeout <= 0 {
		s.rerankTimeout = DefaultRerankTimeout
	}
	if s.reranker == nil {
		s.reranker = NoReranker{}
	}

	return s
}

// resolve maps a normalized string to its canonical term by alias, or by
// being canonical itself.
func resolve(snap *taxonomy.Snapshot, norm string) (string, bool) {
	if canonical, ok := snap.ResolveAlias(norm); ok {
		return canonical, true
	}

	if snap.IsCanonical(norm) {
		return norm, true
	}

	return "", false
}

// HarmonizeOne resolves raw by exact lookup only, echoing the normalized
// input back when it is unknown.
func (s *Service) HarmonizeOne(raw string) Result {
	return s.harmonize(s.cache.Snapshot(), raw)
}

// HarmonizeBatch harmonizes every string against one snapshot, preserving
// order and count.
func (s *Service) HarmonizeBatch(raws []string) []Result {
	snap := s.cache.Snapshot()

	results := make([]Result, len(raws))
	for i, raw := range raws {
		results[i] = s.harmonize(snap, raw)
	}

	return results
}

func (s *Service) harmonize(snap *taxonomy.Snapshot, raw string) Result {
	norm := taxonomy.Normalize(raw)

	res := Result{Original: raw, Canonical: norm}
	if canonical, ok := resolve(snap, norm); ok {
		res.Canonical = canonical
		res.IsKnown = true
	}

	if s.rec != nil {
		s.rec.Harmonized(res.IsKnown)
	}

	return res
}

// candidate is a canonical term with its full-precision best score.
type candidate struct {
	name  string
	score float64
}

// Suggest ranks canonical terms for raw. Re-ranking failures never surface;
// only invalid arguments are returned as errors.
func (s *Service) Suggest(ctx context.Context, raw string, topK int, allowRerank bool) (SuggestResult, error) {
	norm := taxonomy.Normalize(raw)
	if norm == "" {
		return SuggestResult{}, fmt.Errorf("%w: skill must not be empty", ErrInvalidArgument)
	}

	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		return SuggestResult{}, fmt.Errorf("%w: top_k must be at most %d", ErrInvalidArgument, MaxTopK)
	}

	snap := s.cache.Snapshot()
	res := SuggestResult{Original: raw, Suggestions: []Suggestion{}}

	if canonical, ok := resolve(snap, norm); ok {
		res.Method = MethodExactMatch
		res.Suggestions = append(res.Suggestions, Suggestion{
			CanonicalName: canonical,
			Score:         1,
			Parents:       snap.ParentsOf(canonical),
		})
		s.recordSuggested(res.Method)

		return res, nil
	}

	ranked := s.rank(snap, norm)

	picked := make([]candidate, 0, topK)
	for _, c := range ranked {
		if c.score <= s.minScore || len(picked) == topK {
			break
		}
		picked = append(picked, c)
	}

	res.Method = MethodSimilarity

	if allowRerank && len(picked) > 0 {
		if reranked, ok := s.rerank(ctx, snap, norm, ranked, topK); ok {
			picked = reranked
			res.Method = MethodLLM
		}
	}

	for _, c := range picked {
		res.Suggestions = append(res.Suggestions, Suggestion{
			CanonicalName: c.name,
			Score:         round3(c.score),
			Parents:       snap.ParentsOf(c.name),
		})
	}

	s.recordSuggested(res.Method)

	return res, nil
}

// rank scores norm against every canonical name and every alias, keeps the
// best score per canonical term, and sorts by score desc then name asc.
func (s *Service) rank(snap *taxonomy.Snapshot, norm string) []candidate {
	best := make(map[string]float64, len(snap.Canonicals()))

	for _, name := range snap.Canonicals() {
		best[name] = s.similarity(norm, name)
	}

	snap.EachAlias(func(alias, canonical string) {
		current, ok := best[canonical]
		if !ok {
			return
		}
		if score := s.similarity(norm, alias); score > current {
			best[canonical] = score
		}
	})

	ranked := make([]candidate, 0, len(best))
	for name, score := range best {
		ranked = append(ranked, candidate{name: name, score: score})
	}

	slices.SortFunc(ranked, func(a, b candidate) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})

	return ranked
}

// rerank asks the external capability to order the top context terms. Names
// that are not canonical or score at or below the suggestion threshold are
// ignored, and the answer is used only if at least one name is left.
func (s *Service) rerank(ctx context.Context, snap *taxonomy.Snapshot, norm string, ranked []candidate, topK int) ([]candidate, bool) {
	if len(ranked) == 0 {
		return nil, false
	}

	contextTerms := make([]string, 0, min(len(ranked), s.rerankContextSize))
	scores := make(map[string]float64, len(ranked))
	for i, c := range ranked {
		scores[c.name] = c.score
		if i < s.rerankContextSize {
			contextTerms = append(contextTerms, c.name)
		}
	}

	rctx, cancel := context.WithTimeout(ctx, s.rerankTimeout)
	defer cancel()

	names, err := s.reranker.Rerank(rctx, norm, contextTerms, topK)
	if err != nil {
		if !errors.Is(err, ErrRerankUnavailable) {
			s.log.WithError(err).WithField("skill", norm).Warn("re-ranking failed, using similarity ranking")
			if s.rec != nil {
				s.rec.RerankFailed()
			}
		}

		return nil, false
	}

	picked := make([]candidate, 0, topK)
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		name = taxonomy.Normalize(name)
		if seen[name] || !snap.IsCanonical(name) || scores[name] <= s.minScore {
			continue
		}
		seen[name] = true

		picked = append(picked, candidate{name: name, score: scores[name]})
		if len(picked) == topK {
			break
		}
	}

	if len(picked) == 0 {
		s.log.WithField("skill", norm).Debug("re-ranker returned no usable terms, using similarity ranking")
		return nil, false
	}

	return picked, true
}

func (s *Service) recordSuggested(method string) {
	if s.rec != nil {
		s.rec.Suggested(method)
	}
}

// round3 rounds a score to 3 decimals for presentation only.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
