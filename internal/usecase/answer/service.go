// Package answer builds the grounded prompt and asks the language model.
package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/docqa/internal/domain"
	domanswer "github.com/kailas-cloud/docqa/internal/domain/answer"
	domretrieval "github.com/kailas-cloud/docqa/internal/domain/retrieval"
	"github.com/kailas-cloud/docqa/internal/metrics"
	"github.com/kailas-cloud/docqa/internal/usecase/retrieval"
)

// Generator produces the answer text.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error)
}

// Service assembles answers.
type Service struct {
	gen          Generator
	systemPrompt string
	temperature  float32
}

// New creates an answer service.
func New(gen Generator, systemPrompt string, temperature float32) *Service {
	return &Service{gen: gen, systemPrompt: systemPrompt, temperature: temperature}
}

// BuildPrompt renders the user turn for a question and its retrieved context.
// The same inputs always give the same prompt.
func BuildPrompt(question string, res domretrieval.Result) string {
	var b strings.Builder
	b.WriteString("Documentation context:\n\n")
	b.WriteString(retrieval.FormatContext(res))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nAnswer the question using only the documentation context above.")
	return b.String()
}

// Assemble asks the model once. The answer's sources are exactly res.
// An empty res still reaches the model, which is told no documentation matched.
func (s *Service) Assemble(ctx context.Context, question string, res domretrieval.Result) (domanswer.Answer, error) {
	start := time.Now()
	out, err := s.gen.Generate(ctx, domain.GenerationRequest{
		System:      s.systemPrompt,
		Prompt:      BuildPrompt(question, res),
		Temperature: s.temperature,
	})
	if err != nil {
		return domanswer.Answer{}, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
	metrics.StageDuration.WithLabelValues("generate").Observe(time.Since(start).Seconds())

	return domanswer.New(question, strings.TrimSpace(out.Text), res, out.Model), nil
}
