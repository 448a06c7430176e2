// Package chunk stores chunk vectors as hashes under an FT vector index
// in Redis 8+ or Valkey with valkey-search.
package chunk

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/docqa/internal/db"
	"github.com/kailas-cloud/docqa/internal/domain"
	domchunk "github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/domain/retrieval"
)

// writeBatch bounds the number of HSETs pipelined in one round-trip.
const writeBatch = 500

// store is the consumer interface for chunk persistence (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	DelMulti(ctx context.Context, keys []string) (int, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index string) (int, error)
}

// Config describes the collection layout.
type Config struct {
	Collection      string
	Dimensions      int
	HNSWM           int
	HNSWEFConstruct int
}

// Repo is a vector index over one collection.
type Repo struct {
	store store
	cfg   Config
}

// New creates a chunk repository.
func New(s store, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// EnsureIndex creates the FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, indexName(r.cfg.Collection))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(indexName(r.cfg.Collection)).
		Prefix(keyPrefix(r.cfg.Collection)).
		Tag(fieldSourceID).
		Numeric(fieldPosition).
		VectorHNSW(fieldVector, r.cfg.Dimensions, db.DistanceCosine, r.cfg.HNSWM, r.cfg.HNSWEFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}
	// another process may have created it since the check
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}

// Reset drops the index together with every stored chunk and recreates it with
// the configured dimensions. Returns the number of chunks deleted.
func (r *Repo) Reset(ctx context.Context) (int, error) {
	name := indexName(r.cfg.Collection)
	if err := r.store.DropIndex(ctx, name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return 0, fmt.Errorf("drop index %s: %w", name, err)
	}

	keys, err := r.store.Scan(ctx, keyPrefix(r.cfg.Collection)+"*")
	if err != nil {
		return 0, fmt.Errorf("scan chunks: %w", err)
	}
	removed := 0
	for start := 0; start < len(keys); start += writeBatch {
		end := min(start+writeBatch, len(keys))
		n, err := r.store.DelMulti(ctx, keys[start:end])
		if err != nil {
			return removed, fmt.Errorf("delete chunks %d-%d: %w", start, end, err)
		}
		removed += n
	}

	if err := r.EnsureIndex(ctx); err != nil {
		return removed, err
	}
	return removed, nil
}

// Replace makes chunks the complete content of sourceID: new chunks are
// written (overwriting same-position keys) and leftovers from earlier runs are deleted.
// Returns the number of stale chunks removed.
func (r *Repo) Replace(
	ctx context.Context, sourceID string, chunks []domchunk.Chunk, vectors []domain.Vector,
) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("replace %s: %d chunks but %d vectors", sourceID, len(chunks), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != r.cfg.Dimensions {
			return 0, fmt.Errorf("chunk %d: %w: got %d, want %d",
				i, domain.ErrVectorDimMismatch, len(v), r.cfg.Dimensions)
		}
	}
	if err := r.EnsureIndex(ctx); err != nil {
		return 0, err
	}

	existing, err := r.store.Scan(ctx, sourcePattern(r.cfg.Collection, sourceID))
	if err != nil {
		return 0, fmt.Errorf("scan source %s: %w", sourceID, err)
	}

	written := make(map[string]struct{}, len(chunks))
	for start := 0; start < len(chunks); start += writeBatch {
		end := min(start+writeBatch, len(chunks))
		items := make([]db.HashSetItem, 0, end-start)
		for i := start; i < end; i++ {
			key := chunkKey(r.cfg.Collection, chunks[i].ID())
			written[key] = struct{}{}
			items = append(items, db.HashSetItem{Key: key, Fields: buildHashFields(chunks[i], vectors[i])})
		}
		if err := r.store.HSetMulti(ctx, items); err != nil {
			return 0, fmt.Errorf("write chunks %d-%d: %w", start, end, err)
		}
	}

	var stale []string
	for _, key := range existing {
		if _, ok := written[key]; !ok {
			stale = append(stale, key)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	removed, err := r.store.DelMulti(ctx, stale)
	if err != nil {
		return 0, fmt.Errorf("delete stale chunks of %s: %w", sourceID, err)
	}
	return removed, nil
}

// Search returns up to k chunks nearest to vec. A missing index is an empty index.
func (r *Repo) Search(ctx context.Context, vec domain.Vector, k int) ([]retrieval.Match, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(vec) != r.cfg.Dimensions {
		return nil, fmt.Errorf("query: %w: got %d, want %d", domain.ErrVectorDimMismatch, len(vec), r.cfg.Dimensions)
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName(r.cfg.Collection),
		Vector:       vec,
		K:            k,
		ReturnFields: returnFields,
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("knn search: %w", err)
	}

	matches := make([]retrieval.Match, 0, len(res.Entries))
	for _, e := range res.Entries {
		matches = append(matches, retrieval.Match{Chunk: parseHashFields(e.Fields), Score: e.Score})
	}
	return matches, nil
}

// Count returns the number of stored chunks. A missing index holds none.
func (r *Repo) Count(ctx context.Context) (int, error) {
	name := indexName(r.cfg.Collection)
	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("check index: %w", err)
	}
	if !exists {
		return 0, nil
	}
	n, err := r.store.SearchCount(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func indexName(collection string) string {
	return domain.KeyPrefix + collection + ":idx"
}

func keyPrefix(collection string) string {
	return domain.KeyPrefix + collection + ":chunk:"
}

func chunkKey(collection, chunkID string) string {
	return keyPrefix(collection) + chunkID
}

func sourcePattern(collection, sourceID string) string {
	return keyPrefix(collection) + sourceID + ":*"
}
