package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

// Generator is a chat completion client for an OpenAI-compatible API.
// Purpose labels its metrics (answer, judge).
type Generator struct {
	client    *openai.Client
	model     string
	provider  string
	purpose   string
	maxTokens int
	logger    *zap.Logger
}

// GeneratorConfig holds the chat endpoint and model settings.
type GeneratorConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Provider  string
	Purpose   string
	MaxTokens int
	Logger    *zap.Logger
}

// NewGenerator creates a chat completion client.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	purpose := cfg.Purpose
	if purpose == "" {
		purpose = "answer"
	}
	return &Generator{
		client:    newClient(cfg.APIKey, cfg.BaseURL),
		model:     cfg.Model,
		provider:  cfg.Provider,
		purpose:   purpose,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
}

// Model returns the configured model name.
func (g *Generator) Model() string { return g.model }

// Generate implements domain.Generator with a single chat completion call. No retries.
func (g *Generator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	chatReq := openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if g.maxTokens > 0 {
		chatReq.MaxTokens = g.maxTokens
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, chatReq)
	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(g.provider, g.model, g.purpose, "error").Inc()
		return domain.GenerationResult{}, parseAPIError("chat", err, domain.ErrGenerationFailed)
	}
	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(g.provider, g.model, g.purpose, "error").Inc()
		return domain.GenerationResult{}, fmt.Errorf("empty chat response: %w", domain.ErrGenerationFailed)
	}

	metrics.LLMRequestsTotal.WithLabelValues(g.provider, g.model, g.purpose, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(g.provider, g.model, g.purpose).Observe(duration.Seconds())
	metrics.LLMTokensTotal.WithLabelValues(g.provider, g.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.LLMTokensTotal.WithLabelValues(g.provider, g.model, "completion").Add(float64(resp.Usage.CompletionTokens))

	g.logger.Debug("Chat completion finished",
		zap.String("provider", g.provider),
		zap.String("model", g.model),
		zap.String("purpose", g.purpose),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	model := resp.Model
	if model == "" {
		model = g.model
	}
	return domain.GenerationResult{
		Text:             strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
