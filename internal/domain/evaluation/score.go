// Package evaluation holds answer quality scores.
package evaluation

import "math"

// DefaultFaithfulnessThreshold is the faithfulness below which an answer is flagged.
const DefaultFaithfulnessThreshold = 0.4

// Band is a coarse display bucket for a score.
type Band string

// Display bands.
const (
	BandGood Band = "good"
	BandFair Band = "fair"
	BandPoor Band = "poor"
)

// Score is the outcome of evaluating one answer. Unavailable scores carry the reason.
type Score struct {
	faithfulness float64
	relevancy    float64
	available    bool
	reason       string
}

// NewScore creates an available score, clamping both values to [0,1].
func NewScore(faithfulness, relevancy float64) Score {
	return Score{
		faithfulness: Clamp(faithfulness),
		relevancy:    Clamp(relevancy),
		available:    true,
	}
}

// Unavailable creates a score for a failed evaluation.
func Unavailable(reason string) Score {
	return Score{reason: reason}
}

// Faithfulness returns how well the answer is supported by its sources.
func (s Score) Faithfulness() float64 { return s.faithfulness }

// Relevancy returns how well the answer addresses the question.
func (s Score) Relevancy() float64 { return s.relevancy }

// Available reports whether scoring succeeded.
func (s Score) Available() bool { return s.available }

// Reason returns why the score is unavailable.
func (s Score) Reason() string { return s.reason }

// HallucinationRisk reports a faithfulness strictly below threshold.
// Unavailable scores are never flagged.
func (s Score) HallucinationRisk(threshold float64) bool {
	return s.available && s.faithfulness < threshold
}

// BandOf buckets a score: good from 0.7, fair from 0.4, poor below.
func BandOf(v float64) Band {
	switch {
	case v >= 0.7:
		return BandGood
	case v >= 0.4:
		return BandFair
	default:
		return BandPoor
	}
}

// Clamp limits v to [0,1]. NaN maps to 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
