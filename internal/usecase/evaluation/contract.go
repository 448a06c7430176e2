package evaluation

import (
	"context"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// Scorer rates an answer against its question and supporting contexts.
// Both values are in [0,1].
type Scorer interface {
	Score(ctx context.Context, question, answer string, contexts []string) (faithfulness, relevancy float64, err error)
}

// Generator is the judge model.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error)
}

// Embedder vectorizes questions for relevancy scoring.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
