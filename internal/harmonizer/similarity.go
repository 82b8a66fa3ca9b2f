package harmonizer

import (
	"fmt"

	"github.com/agnivade/levenshtein"
)

// Similarity scores two strings in [0,1]. Implementations must be symmetric
// and return 1.0 only when a == b.
type Similarity func(a, b string) float64

// Metric names accepted by MetricByName.
const (
	MetricRatcliff    = "ratcliff"
	MetricLevenshtein = "levenshtein"
)

// MetricByName returns the similarity function registered under name.
func MetricByName(name string) (Similarity, error) {
	switch name {
	case "", MetricRatcliff:
		return GestaltRatio, nil
	case MetricLevenshtein:
		return LevenshteinRatio, nil
	default:
		return nil, fmt.Errorf("unknown similarity metric %q", name)
	}
}

// LevenshteinRatio is 1 - d/max(|a|,|b|) with d the rune edit distance.
// Since d <= max(|a|,|b|) the ratio stays in [0,1], and it reaches 1 only at d == 0.
func LevenshteinRatio(a, b string) float64 {
	if a == b {
		return 1
	}

	longest := max(len([]rune(a)), len([]rune(b)))
	d := levenshtein.ComputeDistance(a, b)

	return 1 - float64(d)/float64(longest)
}

// GestaltRatio is the Ratcliff/Obershelp ratio 2*M/(|a|+|b|), where M is the
// number of runes in the matching blocks found by recursively taking the
// longest common substring and scoring the unmatched sides.
//
// Ties between equally long common substrings are broken toward the earliest
// position in a, then in b. The operand order is canonicalized first so that
// the score is symmetric.
func GestaltRatio(a, b string) float64 {
	if a == b {
		return 1
	}

	ra, rb := []rune(a), []rune(b)

	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}

	if a > b {
		ra, rb = rb, ra
	}

	return float64(2*matchingRunes(ra, rb)) / float64(total)
}

// matchingRunes counts runes covered by recursive longest-common-substring blocks.
func matchingRunes(a, b []rune) int {
	type span struct{ alo, ahi, blo, bhi int }

	matched := 0
	stack := []span{{0, len(a), 0, len(b)}}

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		i, j, k := longestMatch(a, b, s.alo, s.ahi, s.blo, s.bhi)
		if k == 0 {
			continue
		}

		matched += k

		if s.alo < i && s.blo < j {
			stack = append(stack, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			stack = append(stack, span{i + k, s.ahi, j + k, s.bhi})
		}
	}

	return matched
}

// longestMatch finds the longest common substring of a[alo:ahi] and b[blo:bhi]
// by dynamic programming over suffix lengths.
func longestMatch(a, b []rune, alo, ahi, blo, bhi int) (besti, bestj, bestk int) {
	besti, bestj = alo, blo

	prev := make([]int, bhi-blo+1)
	cur := make([]int, bhi-blo+1)

	for i := alo; i < ahi; i++ {
		for j := blo; j < bhi; j++ {
			col := j - blo + 1
			if a[i] != b[j] {
				cur[col] = 0
				continue
			}

			cur[col] = prev[col-1] + 1
			if cur[col] > bestk {
				bestk = cur[col]
				besti = i - bestk + 1
				bestj = j - bestk + 1
			}
		}
		prev, cur = cur, prev
	}

	return besti, bestj, bestk
}
