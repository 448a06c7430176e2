// Package milvus stores chunk vectors in a Milvus collection.
package milvus

import (
	"context"
	"fmt"
	"sync"

	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	domchunk "github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/domain/retrieval"
)

// insertBatch bounds the rows sent in one insert request.
const insertBatch = 500

// Config describes the Milvus connection and collection layout.
type Config struct {
	Address         string
	DBName          string
	Password        string
	Collection      string
	Dimensions      int
	HNSWM           int
	HNSWEFConstruct int
}

// Repo is a vector index over one Milvus collection.
type Repo struct {
	client *milvusclient.Client
	cfg    Config
	logger *zap.Logger

	ensureMu sync.Mutex
	ensured  bool
}

// New connects to Milvus.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Repo, error) {
	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  cfg.Address,
		DBName:   cfg.DBName,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connect to milvus %s: %v", domain.ErrIndexUnavailable, cfg.Address, err)
	}
	return &Repo{client: c, cfg: cfg, logger: logger}, nil
}

// Close releases the connection.
func (r *Repo) Close(ctx context.Context) error {
	return r.client.Close(ctx)
}

// Ping checks that the server answers.
func (r *Repo) Ping(ctx context.Context) error {
	if _, err := r.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(r.cfg.Collection)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// EnsureIndex creates and loads the collection if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	r.ensureMu.Lock()
	defer r.ensureMu.Unlock()
	if r.ensured {
		return nil
	}

	exists, err := r.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(r.cfg.Collection))
	if err != nil {
		return fmt.Errorf("check collection %s: %w", r.cfg.Collection, err)
	}
	if !exists {
		idx := index.NewHNSWIndex(entity.COSINE, r.cfg.HNSWM, r.cfg.HNSWEFConstruct)
		opt := milvusclient.NewCreateCollectionOption(r.cfg.Collection, collectionSchema(r.cfg.Collection, r.cfg.Dimensions)).
			WithIndexOptions(milvusclient.NewCreateIndexOption(r.cfg.Collection, fieldVector, idx))
		if err := r.client.CreateCollection(ctx, opt); err != nil {
			return fmt.Errorf("create collection %s: %w", r.cfg.Collection, err)
		}
		r.logger.Info("milvus collection created",
			zap.String("collection", r.cfg.Collection), zap.Int("dimensions", r.cfg.Dimensions))
	}

	task, err := r.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(r.cfg.Collection))
	if err != nil {
		return fmt.Errorf("load collection %s: %w", r.cfg.Collection, err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("await load %s: %w", r.cfg.Collection, err)
	}
	r.ensured = true
	return nil
}

// Replace deletes every row of sourceID and inserts chunks in its place.
// Returns the number of earlier rows whose ids are not among the new chunks.
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

	existing, err := r.sourceRowIDs(ctx, sourceID)
	if err != nil {
		return 0, err
	}
	if _, err := r.client.Delete(ctx, milvusclient.NewDeleteOption(r.cfg.Collection).
		WithExpr(sourceExpr(sourceID))); err != nil {
		return 0, fmt.Errorf("delete source %s: %w", sourceID, err)
	}

	for start := 0; start < len(chunks); start += insertBatch {
		end := min(start+insertBatch, len(chunks))
		cols := buildColumns(chunks[start:end], vectors[start:end], r.cfg.Dimensions)
		if _, err := r.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(r.cfg.Collection, cols...)); err != nil {
			return 0, fmt.Errorf("insert chunks %d-%d: %w", start, end, err)
		}
	}

	flush, err := r.client.Flush(ctx, milvusclient.NewFlushOption(r.cfg.Collection))
	if err != nil {
		return 0, fmt.Errorf("flush %s: %w", r.cfg.Collection, err)
	}
	if err := flush.Await(ctx); err != nil {
		return 0, fmt.Errorf("await flush %s: %w", r.cfg.Collection, err)
	}

	return staleCount(existing, chunks), nil
}

func (r *Repo) sourceRowIDs(ctx context.Context, sourceID string) ([]string, error) {
	rs, err := r.client.Query(ctx, milvusclient.NewQueryOption(r.cfg.Collection).
		WithFilter(sourceExpr(sourceID)).
		WithOutputFields(fieldID).
		WithConsistencyLevel(entity.ClStrong))
	if err != nil {
		return nil, fmt.Errorf("query source %s: %w", sourceID, err)
	}
	return columnStrings(rs.GetColumn(fieldID))
}

// Reset drops the collection and recreates it with the configured dimensions.
// Returns the number of chunks it held.
func (r *Repo) Reset(ctx context.Context) (int, error) {
	n, err := r.Count(ctx)
	if err != nil {
		return 0, err
	}

	r.ensureMu.Lock()
	r.ensured = false
	r.ensureMu.Unlock()

	exists, err := r.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(r.cfg.Collection))
	if err != nil {
		return 0, fmt.Errorf("check collection %s: %w", r.cfg.Collection, err)
	}
	if exists {
		if err := r.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(r.cfg.Collection)); err != nil {
			return 0, fmt.Errorf("drop collection %s: %w", r.cfg.Collection, err)
		}
		r.logger.Info("milvus collection dropped",
			zap.String("collection", r.cfg.Collection), zap.Int("chunks", n))
	}
	if err := r.EnsureIndex(ctx); err != nil {
		return n, err
	}
	return n, nil
}

// Search returns up to k chunks nearest to vec. A missing collection is an empty index.
func (r *Repo) Search(ctx context.Context, vec domain.Vector, k int) ([]retrieval.Match, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(vec) != r.cfg.Dimensions {
		return nil, fmt.Errorf("query: %w: got %d, want %d", domain.ErrVectorDimMismatch, len(vec), r.cfg.Dimensions)
	}
	exists, err := r.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(r.cfg.Collection))
	if err != nil {
		return nil, fmt.Errorf("check collection %s: %w", r.cfg.Collection, err)
	}
	if !exists {
		return nil, nil
	}
	if err := r.EnsureIndex(ctx); err != nil {
		return nil, err
	}

	results, err := r.client.Search(ctx, milvusclient.NewSearchOption(
		r.cfg.Collection, k, []entity.Vector{entity.FloatVector(vec)},
	).WithANNSField(fieldVector).
		WithOutputFields(outputFields...).
		WithConsistencyLevel(entity.ClStrong))
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", r.cfg.Collection, err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return parseMatches(results[0].ResultCount, results[0].Fields, results[0].Scores)
}

// Count returns the number of stored chunks.
func (r *Repo) Count(ctx context.Context) (int, error) {
	exists, err := r.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(r.cfg.Collection))
	if err != nil {
		return 0, fmt.Errorf("check collection %s: %w", r.cfg.Collection, err)
	}
	if !exists {
		return 0, nil
	}
	if err := r.EnsureIndex(ctx); err != nil {
		return 0, err
	}

	rs, err := r.client.Query(ctx, milvusclient.NewQueryOption(r.cfg.Collection).
		WithOutputFields(countField).
		WithConsistencyLevel(entity.ClStrong))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.cfg.Collection, err)
	}
	col := rs.GetColumn(countField)
	if col == nil || col.Len() == 0 {
		return 0, nil
	}
	n, err := col.GetAsInt64(0)
	if err != nil {
		return 0, fmt.Errorf("read count: %w", err)
	}
	return int(n), nil
}
