// Package qa runs the question answering pipeline: retrieve, answer, evaluate.
package qa

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domanswer "github.com/kailas-cloud/docqa/internal/domain/answer"
	domeval "github.com/kailas-cloud/docqa/internal/domain/evaluation"
	domretrieval "github.com/kailas-cloud/docqa/internal/domain/retrieval"
)

// Retriever finds supporting chunks.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) (domretrieval.Result, error)
}

// Assembler produces the grounded answer.
type Assembler interface {
	Assemble(ctx context.Context, question string, res domretrieval.Result) (domanswer.Answer, error)
}

// Evaluator scores an answer without failing.
type Evaluator interface {
	Evaluate(ctx context.Context, ans domanswer.Answer) domeval.Score
	Threshold() float64
}

// Result is one answered question.
type Result struct {
	Answer    domanswer.Answer
	Score     domeval.Score
	Evaluated bool
	Flagged   bool
}

// Service answers questions.
type Service struct {
	retriever Retriever
	assembler Assembler
	evaluator Evaluator
	k         int
	logger    *zap.Logger
}

// New creates a QA service. evaluator may be nil, then no answer is evaluated.
func New(r Retriever, a Assembler, e Evaluator, k int, logger *zap.Logger) *Service {
	return &Service{retriever: r, assembler: a, evaluator: e, k: k, logger: logger}
}

// CanEvaluate reports whether an evaluator is configured.
func (s *Service) CanEvaluate() bool { return s.evaluator != nil }

// Ask retrieves, answers and, when evaluate is set, scores the answer.
// Evaluation problems never fail the call.
func (s *Service) Ask(ctx context.Context, question string, evaluate bool) (Result, error) {
	res, err := s.retriever.Retrieve(ctx, question, s.k)
	if err != nil {
		return Result{}, fmt.Errorf("retrieve: %w", err)
	}
	if res.Empty() {
		s.logger.Info("no chunks retrieved", zap.String("question", question))
	}

	ans, err := s.assembler.Assemble(ctx, question, res)
	if err != nil {
		return Result{}, fmt.Errorf("answer: %w", err)
	}

	out := Result{Answer: ans}
	if evaluate && s.evaluator != nil {
		out.Score = s.Evaluate(ctx, ans)
		out.Evaluated = true
		out.Flagged = out.Score.HallucinationRisk(s.evaluator.Threshold())
	}
	return out, nil
}

// Evaluate scores an existing answer. Without an evaluator the score is unavailable.
func (s *Service) Evaluate(ctx context.Context, ans domanswer.Answer) domeval.Score {
	if s.evaluator == nil {
		return domeval.Unavailable("evaluation is disabled")
	}
	return s.evaluator.Evaluate(ctx, ans)
}

// Threshold returns the faithfulness threshold, or the default without an evaluator.
func (s *Service) Threshold() float64 {
	if s.evaluator == nil {
		return domeval.DefaultFaithfulnessThreshold
	}
	return s.evaluator.Threshold()
}
