package retrieval

import (
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"github.com/studyflow-ai/studyflow/internal/domain"
)

// mockIndex implements Index for tests.
type mockIndex struct {
	addFn     func(ctx context.Context, documentID string, entries []domain.IndexEntry) error
	searchFn  func(ctx context.Context, documentID string, query []float32, topK int) ([]domain.SearchResult, error)
	clearFn   func(ctx context.Context, documentID string) error
	setMetaFn func(ctx context.Context, documentID string, meta domain.IndexMeta) error
	getMetaFn func(ctx context.Context, documentID string) (domain.IndexMeta, error)
}

func (m *mockIndex) Add(ctx context.Context, documentID string, entries []domain.IndexEntry) error {
	if m.addFn != nil {
		return m.addFn(ctx, documentID, entries)
	}
	return nil
}

func (m *mockIndex) Search(
	ctx context.Context, documentID string, query []float32, topK int,
) ([]domain.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, documentID, query, topK)
	}
	return nil, nil
}

func (m *mockIndex) Clear(ctx context.Context, documentID string) error {
	if m.clearFn != nil {
		return m.clearFn(ctx, documentID)
	}
	return nil
}

func (m *mockIndex) SetMeta(ctx context.Context, documentID string, meta domain.IndexMeta) error {
	if m.setMetaFn != nil {
		return m.setMetaFn(ctx, documentID, meta)
	}
	return nil
}

func (m *mockIndex) GetMeta(ctx context.Context, documentID string) (domain.IndexMeta, error) {
	if m.getMetaFn != nil {
		return m.getMetaFn(ctx, documentID)
	}
	return domain.IndexMeta{}, nil
}

// mockDocs implements DocumentStore for tests.
type mockDocs struct {
	putFn    func(ctx context.Context, doc domain.Document) error
	getFn    func(ctx context.Context, id string) (domain.Document, error)
	listFn   func(ctx context.Context) ([]domain.Document, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockDocs) Put(ctx context.Context, doc domain.Document) error {
	if m.putFn != nil {
		return m.putFn(ctx, doc)
	}
	return nil
}

func (m *mockDocs) Get(ctx context.Context, id string) (domain.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domain.Document{}, domain.ErrDocumentNotFound
}

func (m *mockDocs) List(ctx context.Context) ([]domain.Document, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockDocs) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockBatchEmbedder implements BatchEmbedder for tests.
type mockBatchEmbedder struct {
	batchFn func(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

func (m *mockBatchEmbedder) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if m.batchFn != nil {
		return m.batchFn(ctx, texts)
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{1, 0}
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
}

// mockEmbedder implements Embedder for tests.
type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	if m.result.Embedding == nil {
		return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
	}
	return m.result, nil
}

// mockGenerator implements domain.Generator for tests.
type mockGenerator struct {
	answerFn    func(ctx context.Context, question, contextText string) (domain.GenerationResult, error)
	noContextFn func(ctx context.Context, question string) (domain.GenerationResult, error)
}

func (m *mockGenerator) Answer(
	ctx context.Context, question, contextText string,
) (domain.GenerationResult, error) {
	if m.answerFn != nil {
		return m.answerFn(ctx, question, contextText)
	}
	return domain.GenerationResult{Answer: "contextual answer"}, nil
}

func (m *mockGenerator) AnswerWithoutContext(
	ctx context.Context, question string,
) (domain.GenerationResult, error) {
	if m.noContextFn != nil {
		return m.noContextFn(ctx, question)
	}
	return domain.GenerationResult{Answer: "general answer"}, nil
}

func (m *mockGenerator) ExtractKnowledge(_ context.Context, _ string) (json.RawMessage, error) {
	return nil, nil
}

func (m *mockGenerator) Name() string { return "mock" }

func zapNop() *zap.Logger { return zap.NewNop() }

func defaultOptions() Options {
	return Options{
		ChunkSize:          500,
		Overlap:            50,
		TopK:               3,
		RelevanceThreshold: 1.85,
	}
}

func newTestService(t *testing.T) (*Service, *mockIndex, *mockDocs, *mockGenerator) {
	t.Helper()
	idx := &mockIndex{}
	docs := &mockDocs{}
	gen := &mockGenerator{}
	svc := New(docs, idx, &mockBatchEmbedder{}, &mockEmbedder{}, gen, defaultOptions(), zap.NewNop())
	return svc, idx, docs, gen
}
