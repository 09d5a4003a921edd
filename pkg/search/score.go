// Package search implements the fuzzy scoring used to match free-text queries
// against cask fields, and the weighted ranker built on top of it.
//
// Scores are "lower is better": 0 is a perfect match, 1 the weakest match that
// is still admissible. A query that cannot be matched at all yields ok=false
// rather than a score.
package search

import "strings"

// Fixed scores for the cheap match classes.
const (
	ScoreExact     = 0.0
	ScorePrefix    = 0.01
	ScoreSubstring = 0.05

	// Bounds for subsequence matches. The lower bound keeps a scattered match
	// from ever beating a contiguous substring.
	minSubsequenceScore = 0.06
	maxSubsequenceScore = 1.0

	baseScore     = 0.1
	gapWeight     = 0.4
	lengthWeight  = 0.3
	runBonusScale = 0.2
)

// Score rates how well query matches candidate. Comparison is case-insensitive.
// The boolean is false when candidate does not contain every query character in order.
func Score(query, candidate string) (float64, bool) {
	if query == "" {
		return ScoreExact, true
	}
	if candidate == "" {
		return 0, false
	}

	q := strings.ToLower(query)
	c := strings.ToLower(candidate)

	switch {
	case q == c:
		return ScoreExact, true
	case strings.HasPrefix(c, q):
		return ScorePrefix, true
	case strings.Contains(c, q):
		return ScoreSubstring, true
	}

	return subsequenceScore([]rune(q), []rune(c))
}

// subsequenceScore matches q greedily (leftmost) inside c.
func subsequenceScore(q, c []rune) (float64, bool) {
	gap := 0
	run, longestRun := 0, 0
	last := -1
	pos := 0

	for _, r := range q {
		found := -1
		for ; pos < len(c); pos++ {
			if c[pos] == r {
				found = pos
				pos++
				break
			}
		}
		if found < 0 {
			return 0, false
		}

		if last >= 0 {
			skipped := found - last - 1
			gap += skipped
			if skipped == 0 {
				run++
			} else {
				run = 1
			}
		} else {
			run = 1
		}
		longestRun = max(longestRun, run)
		last = found
	}

	candidateLen := float64(len(c))
	queryLen := float64(len(q))
	lengthPenalty := (candidateLen - queryLen) / candidateLen

	score := baseScore +
		gapWeight*(float64(gap)/candidateLen) +
		lengthWeight*lengthPenalty -
		runBonusScale*(float64(longestRun)/queryLen)

	return clamp(score, minSubsequenceScore, maxSubsequenceScore), true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
