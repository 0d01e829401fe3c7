package knowledge

import (
	"context"

	"github.com/studyflow-ai/studyflow/internal/domain"
	domknow "github.com/studyflow-ai/studyflow/internal/domain/knowledge"
)

// DocumentReader reads documents whose text gets extracted.
type DocumentReader interface {
	Get(ctx context.Context, id string) (domain.Document, error)
}

// Store persists normalized knowledge structures.
type Store interface {
	Put(ctx context.Context, documentID string, s domknow.Structure) error
	Get(ctx context.Context, documentID string) (domknow.Structure, error)
}
