package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/studyflow-ai/studyflow/internal/domain"
	"github.com/studyflow-ai/studyflow/internal/metrics"
)

const (
	answerSystemPrompt = "You are a study assistant. Answer the student's question " +
		"using only the provided course material. Be concise and precise. If the " +
		"material does not fully cover the question, say which part is not covered."

	noContextSystemPrompt = "You are a study assistant. Answer the student's " +
		"question from your general knowledge. Be concise and precise, and mention " +
		"that the answer is not based on the uploaded course material."

	extractSystemPrompt = "You are a study assistant. Extract the knowledge " +
		"structure of the provided course material as JSON with the shape " +
		`{"chapters":[{"id","title","content","topics":[{"id","title","content",` +
		`"formulas":[{"id","content","description"}],"examples":[{"id","content",` +
		`"solution"}]}]}]}. Respond with JSON only, no prose.`
)

// Generator is a text generation provider using an OpenAI-compatible chat API.
type Generator struct {
	client   *openai.Client
	model    string
	provider string
	logger   *zap.Logger
}

// GeneratorConfig holds the generation provider settings.
type GeneratorConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string
	Logger   *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat generation provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// Name implements domain.Generator.
func (g *Generator) Name() string { return g.provider }

// Answer implements domain.Generator using the provided context passages.
func (g *Generator) Answer(ctx context.Context, question, contextText string) (domain.GenerationResult, error) {
	user := fmt.Sprintf("Course material:\n%s\n\nQuestion: %s", contextText, question)
	text, err := g.complete(ctx, "answer", answerSystemPrompt, user)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	return domain.GenerationResult{Answer: text}, nil
}

// AnswerWithoutContext implements domain.Generator from model knowledge alone.
func (g *Generator) AnswerWithoutContext(ctx context.Context, question string) (domain.GenerationResult, error) {
	text, err := g.complete(ctx, "answer_no_context", noContextSystemPrompt, question)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	return domain.GenerationResult{Answer: text}, nil
}

// ExtractKnowledge implements domain.Generator. The returned bytes are
// whatever the model produced; the caller normalizes them.
func (g *Generator) ExtractKnowledge(ctx context.Context, text string) (json.RawMessage, error) {
	out, err := g.complete(ctx, "extract", extractSystemPrompt, text)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(out), nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (g *Generator) complete(ctx context.Context, operation, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, operation, "error").Inc()
		return "", parseGenerationAPIError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, operation, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrGenerationProviderError)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, operation, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.provider, g.model, operation).Observe(duration.Seconds())

	g.logger.Debug("Generation request completed",
		zap.String("provider", g.provider),
		zap.String("model", g.model),
		zap.String("operation", operation),
		zap.Duration("duration", duration),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return resp.Choices[0].Message.Content, nil
}

// parseGenerationAPIError wraps provider failures with
// domain.ErrGenerationProviderError for correct 502 mapping.
func parseGenerationAPIError(err error) error {
	wrap := domain.ErrGenerationProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("generation API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("generation API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("generation API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	// Not an API-shaped error: transport-level failure (DNS, TLS, timeout).
	return fmt.Errorf("generation request failed: %v: %w", err, wrap)
}
