package domain

import "context"

// Generator sends one prompt to a language model and returns its reply.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error)
}

// GenerationRequest is a single-turn prompt. JSON asks the model for a JSON object reply.
type GenerationRequest struct {
	System      string
	Prompt      string
	Temperature float32
	JSON        bool
}

// GenerationResult is the model reply and its token usage.
type GenerationResult struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}
