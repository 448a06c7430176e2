package retrieval

import (
	"context"

	"github.com/kailas-cloud/docqa/internal/domain"
	domretrieval "github.com/kailas-cloud/docqa/internal/domain/retrieval"
)

// Embedder vectorizes the query.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher is the read side of the vector index.
type Searcher interface {
	Search(ctx context.Context, vec domain.Vector, k int) ([]domretrieval.Match, error)
}
