package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/studyflow-ai/studyflow/internal/domain"
	domknow "github.com/studyflow-ai/studyflow/internal/domain/knowledge"
	healthuc "github.com/studyflow-ai/studyflow/internal/usecase/health"
	knowledgeuc "github.com/studyflow-ai/studyflow/internal/usecase/knowledge"
	retrievaluc "github.com/studyflow-ai/studyflow/internal/usecase/retrieval"
)

// memDocs is an in-memory document store for transport tests.
type memDocs struct {
	docs map[string]domain.Document
}

func newMemDocs() *memDocs {
	return &memDocs{docs: map[string]domain.Document{}}
}

func (m *memDocs) Put(_ context.Context, doc domain.Document) error {
	m.docs[doc.ID] = doc
	return nil
}

func (m *memDocs) Get(_ context.Context, id string) (domain.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (m *memDocs) List(_ context.Context) ([]domain.Document, error) {
	out := make([]domain.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memDocs) Delete(_ context.Context, id string) error {
	if _, ok := m.docs[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(m.docs, id)
	return nil
}

// stubIndex is an Index with overridable behavior per test.
type stubIndex struct {
	searchFn func(ctx context.Context, documentID string, query []float32, topK int) ([]domain.SearchResult, error)
}

func (s *stubIndex) Add(_ context.Context, _ string, _ []domain.IndexEntry) error { return nil }

func (s *stubIndex) Search(
	ctx context.Context, documentID string, query []float32, topK int,
) ([]domain.SearchResult, error) {
	if s.searchFn != nil {
		return s.searchFn(ctx, documentID, query, topK)
	}
	return nil, nil
}

func (s *stubIndex) Clear(_ context.Context, _ string) error { return nil }

func (s *stubIndex) SetMeta(_ context.Context, _ string, _ domain.IndexMeta) error { return nil }

func (s *stubIndex) GetMeta(_ context.Context, _ string) (domain.IndexMeta, error) {
	return domain.IndexMeta{}, nil
}

// stubEmbedder answers every text with a fixed vector.
type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
}

func (stubEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{1, 0}
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
}

// stubGenerator is a canned domain.Generator.
type stubGenerator struct {
	extraction json.RawMessage
}

func (g *stubGenerator) Answer(_ context.Context, _, _ string) (domain.GenerationResult, error) {
	return domain.GenerationResult{Answer: "contextual answer"}, nil
}

func (g *stubGenerator) AnswerWithoutContext(_ context.Context, _ string) (domain.GenerationResult, error) {
	return domain.GenerationResult{Answer: "general answer"}, nil
}

func (g *stubGenerator) ExtractKnowledge(_ context.Context, _ string) (json.RawMessage, error) {
	if g.extraction != nil {
		return g.extraction, nil
	}
	return json.RawMessage(`{"chapters":[]}`), nil
}

func (g *stubGenerator) Name() string { return "stub" }

// memKnowStore is an in-memory knowledge structure store.
type memKnowStore struct {
	structures map[string]domknow.Structure
}

func newMemKnowStore() *memKnowStore {
	return &memKnowStore{structures: map[string]domknow.Structure{}}
}

func (m *memKnowStore) Put(_ context.Context, documentID string, s domknow.Structure) error {
	m.structures[documentID] = s
	return nil
}

func (m *memKnowStore) Get(_ context.Context, documentID string) (domknow.Structure, error) {
	s, ok := m.structures[documentID]
	if !ok {
		return domknow.Structure{}, domain.ErrNotFound
	}
	return s, nil
}

// mockPinger implements health.DBPinger.
type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// testEnv bundles the router and the backing fakes for one test.
type testEnv struct {
	router *chi.Mux
	docs   *memDocs
	index  *stubIndex
	know   *memKnowStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	docs := newMemDocs()
	index := &stubIndex{}
	know := newMemKnowStore()
	gen := &stubGenerator{}
	logger := zap.NewNop()

	retrieval := retrievaluc.New(docs, index, stubEmbedder{}, stubEmbedder{}, gen,
		retrievaluc.Options{ChunkSize: 500, Overlap: 50, TopK: 3, RelevanceThreshold: 1.85},
		logger,
	)
	knowledge := knowledgeuc.New(docs, know, gen, 8000, 0, logger)
	health := healthuc.New(&mockPinger{}, nil, nil)

	server := NewServer(retrieval, knowledge, health, logger)
	router := chi.NewRouter()
	server.Routes(router)

	return &testEnv{router: router, docs: docs, index: index, know: know}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return v
}
