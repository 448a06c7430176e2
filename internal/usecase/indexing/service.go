// Package indexing turns a document on disk into chunk vectors in the index.
package indexing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	domchunk "github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/domain/document"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

// Options control chunking and embedding batches.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

// Plan is a loaded and split document that has not been embedded yet.
type Plan struct {
	Document document.Document
	Chunks   []domchunk.Chunk
}

// Report summarizes one indexing run.
type Report struct {
	Source   string
	SourceID string
	Pages    int
	Chunks   int
	Removed  int
	Tokens   int
	Indexed  int
	Duration time.Duration
}

// Service indexes documents.
type Service struct {
	load   Loader
	emb    Embedder
	index  Index
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// New creates an indexing service. BatchSize <= 0 sends all chunks in one call.
func New(load Loader, emb Embedder, index Index, opts Options, logger *zap.Logger) *Service {
	return &Service{load: load, emb: emb, index: index, opts: opts, logger: logger, now: time.Now}
}

// Prepare loads and splits the document at path without touching the index.
func (s *Service) Prepare(path string) (Plan, error) {
	doc, err := s.load(path)
	if err != nil {
		return Plan{}, fmt.Errorf("load %s: %w", path, err)
	}
	chunks, err := domchunk.Build(doc.Text(), doc.SourceID(), doc.Source(), doc, s.opts.ChunkSize, s.opts.ChunkOverlap)
	if err != nil {
		return Plan{}, fmt.Errorf("split %s: %w", path, err)
	}
	return Plan{Document: doc, Chunks: chunks}, nil
}

// Commit embeds every chunk of the plan and replaces the source's content in
// the index. Nothing is written unless all embeddings succeed.
func (s *Service) Commit(ctx context.Context, plan Plan) (Report, error) {
	start := s.now()
	doc := plan.Document

	vectors, tokens, err := s.embedAll(ctx, plan.Chunks)
	if err != nil {
		return Report{}, fmt.Errorf("embed %s: %w", doc.Source(), err)
	}

	removed, err := s.index.Replace(ctx, doc.SourceID(), plan.Chunks, vectors)
	if err != nil {
		return Report{}, fmt.Errorf("index %s: %w", doc.Source(), err)
	}
	metrics.IndexedChunksTotal.Add(float64(len(plan.Chunks)))

	total, err := s.index.Count(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("count index: %w", err)
	}

	elapsed := s.now().Sub(start)
	metrics.StageDuration.WithLabelValues("index").Observe(elapsed.Seconds())

	rep := Report{
		Source:   doc.Source(),
		SourceID: doc.SourceID(),
		Pages:    doc.Pages(),
		Chunks:   len(plan.Chunks),
		Removed:  removed,
		Tokens:   tokens,
		Indexed:  total,
		Duration: elapsed,
	}
	s.logger.Info("document indexed",
		zap.String("source", rep.Source),
		zap.String("source_id", rep.SourceID),
		zap.Int("pages", rep.Pages),
		zap.Int("chunks", rep.Chunks),
		zap.Int("removed", rep.Removed),
		zap.Int("tokens", rep.Tokens),
		zap.Int("indexed", rep.Indexed),
		zap.Duration("duration", rep.Duration),
	)
	return rep, nil
}

// Index prepares and commits the document at path.
func (s *Service) Index(ctx context.Context, path string) (Report, error) {
	plan, err := s.Prepare(path)
	if err != nil {
		return Report{}, err
	}
	return s.Commit(ctx, plan)
}

func (s *Service) embedAll(ctx context.Context, chunks []domchunk.Chunk) ([]domain.Vector, int, error) {
	batch := s.opts.BatchSize
	if batch <= 0 {
		batch = len(chunks)
	}

	vectors := make([]domain.Vector, 0, len(chunks))
	tokens := 0
	for start := 0; start < len(chunks); start += batch {
		end := min(start+batch, len(chunks))
		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.Text()
		}

		res, err := s.emb.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, 0, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		if len(res.Embeddings) != len(texts) {
			return nil, 0, &domain.BatchMismatchError{Want: len(texts), Got: len(res.Embeddings)}
		}
		vectors = append(vectors, res.Embeddings...)
		tokens += res.TotalTokens

		s.logger.Debug("embedded batch", zap.Int("from", start), zap.Int("to", end), zap.Int("total", len(chunks)))
	}
	return vectors, tokens, nil
}
