// Package evaluation scores answers for faithfulness and relevancy.
package evaluation

import (
	"context"
	"time"

	"go.uber.org/zap"

	domanswer "github.com/kailas-cloud/docqa/internal/domain/answer"
	domeval "github.com/kailas-cloud/docqa/internal/domain/evaluation"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

// Service runs a scorer and never fails the caller.
type Service struct {
	scorer    Scorer
	threshold float64
	logger    *zap.Logger
}

// New creates an evaluation service. threshold <= 0 uses the default.
func New(scorer Scorer, threshold float64, logger *zap.Logger) *Service {
	if threshold <= 0 {
		threshold = domeval.DefaultFaithfulnessThreshold
	}
	return &Service{scorer: scorer, threshold: threshold, logger: logger}
}

// Threshold returns the faithfulness below which answers are flagged.
func (s *Service) Threshold() float64 { return s.threshold }

// Evaluate scores ans. Any scorer failure yields an unavailable score.
func (s *Service) Evaluate(ctx context.Context, ans domanswer.Answer) domeval.Score {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("evaluate").Observe(time.Since(start).Seconds())
	}()

	f, r, err := s.scorer.Score(ctx, ans.Question(), ans.Text(), ans.Contexts())
	if err != nil {
		s.logger.Warn("evaluation unavailable", zap.String("question", ans.Question()), zap.Error(err))
		metrics.EvaluationsTotal.WithLabelValues("unavailable").Inc()
		return domeval.Unavailable(err.Error())
	}

	score := domeval.NewScore(f, r)
	metrics.EvaluationScore.WithLabelValues("faithfulness").Observe(score.Faithfulness())
	metrics.EvaluationScore.WithLabelValues("relevancy").Observe(score.Relevancy())
	if score.HallucinationRisk(s.threshold) {
		metrics.EvaluationsTotal.WithLabelValues("hallucination_risk").Inc()
		s.logger.Warn("hallucination risk",
			zap.String("question", ans.Question()),
			zap.Float64("faithfulness", score.Faithfulness()),
			zap.Float64("threshold", s.threshold),
		)
	} else {
		metrics.EvaluationsTotal.WithLabelValues("ok").Inc()
	}
	return score
}
