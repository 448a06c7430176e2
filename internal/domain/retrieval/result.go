// Package retrieval holds the ranked output of a similarity search.
package retrieval

import (
	"sort"

	"github.com/kailas-cloud/docqa/internal/domain/chunk"
)

// Match is a retrieved chunk with its similarity score. Higher is more similar.
type Match struct {
	Chunk chunk.Chunk
	Score float64
}

// Result is an ordered list of matches with non-increasing scores.
type Result struct {
	matches []Match
}

// NewResult orders matches by score, keeping the incoming order among equal
// scores, and truncates to k. k <= 0 yields an empty result.
func NewResult(matches []Match, k int) Result {
	if k <= 0 || len(matches) == 0 {
		return Result{}
	}
	sorted := make([]Match, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	return Result{matches: sorted}
}

// Matches returns a copy of the ranked matches.
func (r Result) Matches() []Match {
	if len(r.matches) == 0 {
		return nil
	}
	out := make([]Match, len(r.matches))
	copy(out, r.matches)
	return out
}

// Chunks returns the matched chunks in rank order.
func (r Result) Chunks() []chunk.Chunk {
	if len(r.matches) == 0 {
		return nil
	}
	out := make([]chunk.Chunk, len(r.matches))
	for i, m := range r.matches {
		out[i] = m.Chunk
	}
	return out
}

// Len returns the number of matches.
func (r Result) Len() int { return len(r.matches) }

// Empty reports whether nothing was retrieved.
func (r Result) Empty() bool { return len(r.matches) == 0 }
