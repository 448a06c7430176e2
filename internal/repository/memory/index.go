// Package memory is a process-local vector index with brute-force cosine search.
// It backs the memory driver and serves as the reference index in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kailas-cloud/docqa/internal/domain"
	domchunk "github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/domain/retrieval"
)

type entry struct {
	chunk  domchunk.Chunk
	vector domain.Vector
	seq    int
}

// Index keeps chunk vectors in memory. Safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	dims    int
	entries map[string]entry
	nextSeq int
}

// New creates an empty index for vectors of dims dimensions. dims <= 0 accepts any
// dimension fixed by the first write.
func New(dims int) *Index {
	return &Index{dims: dims, entries: make(map[string]entry)}
}

// EnsureIndex is a no-op; the index always exists.
func (x *Index) EnsureIndex(context.Context) error { return nil }

// Replace makes chunks the complete content of sourceID and returns the number
// of stale chunks removed.
func (x *Index) Replace(
	_ context.Context, sourceID string, chunks []domchunk.Chunk, vectors []domain.Vector,
) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("replace %s: %d chunks but %d vectors", sourceID, len(chunks), len(vectors))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for i, v := range vectors {
		if x.dims <= 0 {
			x.dims = len(v)
		}
		if len(v) != x.dims {
			return 0, fmt.Errorf("chunk %d: %w: got %d, want %d", i, domain.ErrVectorDimMismatch, len(v), x.dims)
		}
	}

	written := make(map[string]struct{}, len(chunks))
	for i, c := range chunks {
		id := c.ID()
		written[id] = struct{}{}
		seq := x.nextSeq
		if prev, ok := x.entries[id]; ok {
			seq = prev.seq
		} else {
			x.nextSeq++
		}
		vec := make(domain.Vector, len(vectors[i]))
		copy(vec, vectors[i])
		x.entries[id] = entry{chunk: c, vector: vec, seq: seq}
	}

	removed := 0
	for id, e := range x.entries {
		if e.chunk.SourceID() != sourceID {
			continue
		}
		if _, ok := written[id]; !ok {
			delete(x.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Search scores every chunk against vec and returns the k best. Equal scores
// keep insertion order.
func (x *Index) Search(_ context.Context, vec domain.Vector, k int) ([]retrieval.Match, error) {
	if k <= 0 {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.entries) == 0 {
		return nil, nil
	}
	if len(vec) != x.dims {
		return nil, fmt.Errorf("query: %w: got %d, want %d", domain.ErrVectorDimMismatch, len(vec), x.dims)
	}

	ordered := make([]entry, 0, len(x.entries))
	for _, e := range x.entries {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })

	matches := make([]retrieval.Match, len(ordered))
	for i, e := range ordered {
		matches[i] = retrieval.Match{Chunk: e.chunk, Score: domain.CosineSimilarity(vec, e.vector)}
	}
	return retrieval.NewResult(matches, k).Matches(), nil
}

// Count returns the number of stored chunks.
func (x *Index) Count(context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries), nil
}

// Reset removes every chunk and returns how many there were.
func (x *Index) Reset(context.Context) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	n := len(x.entries)
	x.entries = make(map[string]entry)
	x.nextSeq = 0
	return n, nil
}

// Ping always succeeds.
func (x *Index) Ping(context.Context) error { return nil }
