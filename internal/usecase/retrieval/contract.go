package retrieval

import (
	"context"

	"github.com/studyflow-ai/studyflow/internal/domain"
)

// Index defines the vector partition contract for retrieval operations.
type Index interface {
	Add(ctx context.Context, documentID string, entries []domain.IndexEntry) error
	Search(ctx context.Context, documentID string, query []float32, topK int) ([]domain.SearchResult, error)
	Clear(ctx context.Context, documentID string) error
	SetMeta(ctx context.Context, documentID string, meta domain.IndexMeta) error
	GetMeta(ctx context.Context, documentID string) (domain.IndexMeta, error)
}

// DocumentStore persists uploaded documents.
type DocumentStore interface {
	Put(ctx context.Context, doc domain.Document) error
	Get(ctx context.Context, id string) (domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	Delete(ctx context.Context, id string) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// BatchEmbedder vectorizes many texts at once, used at index time.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
