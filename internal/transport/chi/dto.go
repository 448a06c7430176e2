package chi

import (
	"time"

	domeval "github.com/kailas-cloud/docqa/internal/domain/evaluation"
	domretrieval "github.com/kailas-cloud/docqa/internal/domain/retrieval"
)

type askRequest struct {
	Question string `json:"question"`
	Evaluate bool   `json:"evaluate"`
}

type evaluateRequest struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Contexts []string `json:"contexts"`
}

type sourceDTO struct {
	Text     string  `json:"text"`
	Source   string  `json:"source"`
	Page     int     `json:"page,omitempty"`
	Position int     `json:"position"`
	Score    float64 `json:"score"`
}

type evaluationDTO struct {
	Available         bool     `json:"available"`
	Faithfulness      *float64 `json:"faithfulness,omitempty"`
	Relevancy         *float64 `json:"relevancy,omitempty"`
	FaithfulnessBand  string   `json:"faithfulness_band,omitempty"`
	RelevancyBand     string   `json:"relevancy_band,omitempty"`
	HallucinationRisk bool     `json:"hallucination_risk"`
	Threshold         float64  `json:"threshold"`
	Reason            string   `json:"reason,omitempty"`
}

type askResponse struct {
	Question   string         `json:"question"`
	Answer     string         `json:"answer"`
	Model      string         `json:"model,omitempty"`
	Sources    []sourceDTO    `json:"sources"`
	Evaluation *evaluationDTO `json:"evaluation,omitempty"`
}

type statsResponse struct {
	Collection string `json:"collection"`
	Chunks     int    `json:"chunks"`
}

type usageResponse struct {
	Period          string    `json:"period"`
	PeriodStartAt   time.Time `json:"period_start_at"`
	PeriodEndAt     time.Time `json:"period_end_at"`
	TokensLimit     int64     `json:"tokens_limit"`
	TokensUsed      int64     `json:"tokens_used"`
	TokensRemaining int64     `json:"tokens_remaining"`
	IsExhausted     bool      `json:"is_exhausted"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func sourcesToDTO(res domretrieval.Result) []sourceDTO {
	out := make([]sourceDTO, 0, res.Len())
	for _, m := range res.Matches() {
		out = append(out, sourceDTO{
			Text:     m.Chunk.Text(),
			Source:   m.Chunk.Source(),
			Page:     m.Chunk.Page(),
			Position: m.Chunk.Position(),
			Score:    m.Score,
		})
	}
	return out
}

func scoreToDTO(s domeval.Score, threshold float64) evaluationDTO {
	if !s.Available() {
		return evaluationDTO{Threshold: threshold, Reason: s.Reason()}
	}
	f, r := s.Faithfulness(), s.Relevancy()
	return evaluationDTO{
		Available:         true,
		Faithfulness:      &f,
		Relevancy:         &r,
		FaithfulnessBand:  string(domeval.BandOf(f)),
		RelevancyBand:     string(domeval.BandOf(r)),
		HallucinationRisk: s.HallucinationRisk(threshold),
		Threshold:         threshold,
	}
}
