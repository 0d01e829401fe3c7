package domain

import (
	"context"
	"encoding/json"
)

// Generator is the text generation contract consumed by the retrieval and
// knowledge services. Implementations wrap provider APIs; all calls must
// honor context cancellation and deadlines.
type Generator interface {
	// Answer produces an answer grounded in the given context passages.
	Answer(ctx context.Context, question, contextText string) (GenerationResult, error)
	// AnswerWithoutContext produces an answer from the model's own knowledge,
	// used when no relevant passages were retrieved.
	AnswerWithoutContext(ctx context.Context, question string) (GenerationResult, error)
	// ExtractKnowledge asks the model to produce a structured outline of the
	// text. The raw bytes are provider JSON of unspecified shape; the caller
	// normalizes them.
	ExtractKnowledge(ctx context.Context, text string) (json.RawMessage, error)
	// Name returns the provider identifier (e.g. "deepseek", "minimax").
	Name() string
}

// GenerationResult is the provider output for a single answer call.
type GenerationResult struct {
	Answer  string
	Sources []Source
}

// Source is a passage the answer was grounded in.
type Source struct {
	ChunkID  string  `json:"chunk_id,omitempty"`
	Content  string  `json:"content"`
	Distance float64 `json:"distance,omitempty"`
}
