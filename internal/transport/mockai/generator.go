// Package mockai is an offline generation provider with canned output.
// It keeps the service usable in development and tests without API keys.
package mockai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/studyflow-ai/studyflow/internal/domain"
	"github.com/studyflow-ai/studyflow/internal/domain/knowledge"
)

// Generator returns deterministic canned answers.
type Generator struct{}

// New creates a mock generation provider.
func New() *Generator { return &Generator{} }

// Name implements domain.Generator.
func (g *Generator) Name() string { return "mock" }

// Answer implements domain.Generator with a canned contextual reply.
func (g *Generator) Answer(_ context.Context, question, contextText string) (domain.GenerationResult, error) {
	answer := fmt.Sprintf(
		"Based on the course material, here is what applies to %q: %s",
		question, firstLine(contextText),
	)
	return domain.GenerationResult{Answer: answer}, nil
}

// AnswerWithoutContext implements domain.Generator with a canned general reply.
func (g *Generator) AnswerWithoutContext(_ context.Context, question string) (domain.GenerationResult, error) {
	answer := fmt.Sprintf(
		"The uploaded material does not cover %q, so this answer comes from general knowledge.",
		question,
	)
	return domain.GenerationResult{Answer: answer}, nil
}

// ExtractKnowledge implements domain.Generator by returning the fixed
// fallback structure as provider JSON.
func (g *Generator) ExtractKnowledge(_ context.Context, _ string) (json.RawMessage, error) {
	data, err := json.Marshal(knowledge.Fallback())
	if err != nil {
		return nil, fmt.Errorf("encode mock extraction: %w", err)
	}
	return data, nil
}

// HealthCheck always passes; there is no upstream to fail.
func (g *Generator) HealthCheck(_ context.Context) error { return nil }

func firstLine(text string) string {
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			return text[:i]
		}
	}
	return text
}
