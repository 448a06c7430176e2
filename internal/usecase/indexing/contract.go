package indexing

import (
	"context"

	"github.com/kailas-cloud/docqa/internal/domain"
	domchunk "github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/domain/document"
)

// Loader reads a source document from a path.
type Loader func(path string) (document.Document, error)

// Embedder vectorizes chunk texts in one call.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Index is the write side of the vector index.
type Index interface {
	Replace(ctx context.Context, sourceID string, chunks []domchunk.Chunk, vectors []domain.Vector) (int, error)
	Count(ctx context.Context) (int, error)
}
