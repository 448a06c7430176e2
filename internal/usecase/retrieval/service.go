// Package retrieval finds the chunks most similar to a question.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/docqa/internal/domain"
	domretrieval "github.com/kailas-cloud/docqa/internal/domain/retrieval"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

// NoContext is the context handed to the model when nothing was retrieved.
const NoContext = "No relevant documentation found for this query."

// contextSeparator divides chunk blocks in the formatted context.
const contextSeparator = "\n\n---\n\n"

// Service embeds questions and queries the index.
type Service struct {
	embedder Embedder
	index    Searcher
}

// New creates a retrieval service. embedder must apply the query instruction.
func New(embedder Embedder, index Searcher) *Service {
	return &Service{embedder: embedder, index: index}
}

// Retrieve returns at most k chunks ordered by non-increasing similarity.
// An empty index yields an empty result.
func (s *Service) Retrieve(ctx context.Context, query string, k int) (domretrieval.Result, error) {
	if strings.TrimSpace(query) == "" {
		return domretrieval.Result{}, fmt.Errorf("%w: question is empty", domain.ErrInvalidQuery)
	}
	if k <= 0 {
		return domretrieval.Result{}, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidQuery, k)
	}
	start := time.Now()

	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return domretrieval.Result{}, fmt.Errorf("embed query: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(emb.TotalTokens)

	matches, err := s.index.Search(ctx, emb.Embedding, k)
	if err != nil {
		if errors.Is(err, domain.ErrVectorDimMismatch) {
			return domretrieval.Result{}, fmt.Errorf("search index: %w", err)
		}
		return domretrieval.Result{}, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}

	res := domretrieval.NewResult(matches, k)
	metrics.RetrievedChunks.Observe(float64(res.Len()))
	metrics.StageDuration.WithLabelValues("retrieve").Observe(time.Since(start).Seconds())
	return res, nil
}

// FormatContext renders the result as the context block of a prompt.
func FormatContext(res domretrieval.Result) string {
	blocks := make([]string, 0, res.Len())
	for _, m := range res.Matches() {
		text := m.Chunk.Text()
		if text == "" {
			continue
		}
		if m.Chunk.Page() > 0 {
			blocks = append(blocks, fmt.Sprintf("[Relevance: %.2f | Page %d]\n%s", m.Score, m.Chunk.Page(), text))
		} else {
			blocks = append(blocks, fmt.Sprintf("[Relevance: %.2f]\n%s", m.Score, text))
		}
	}
	if len(blocks) == 0 {
		return NoContext
	}
	return strings.Join(blocks, contextSeparator)
}
