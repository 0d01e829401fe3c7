// Package knowstore persists normalized knowledge structures per document.
package knowstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/studyflow-ai/studyflow/internal/db"
	"github.com/studyflow-ai/studyflow/internal/domain"
	"github.com/studyflow-ai/studyflow/internal/domain/knowledge"
)

// store is the consumer interface for knowledge persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo stores canonical knowledge structures as JSON values.
type Repo struct {
	store store
}

// New creates a knowledge repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Put stores the structure for a document, overwriting any previous one.
func (r *Repo) Put(ctx context.Context, documentID string, s knowledge.Structure) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal knowledge %s: %w", documentID, err)
	}
	if err := r.store.Set(ctx, key(documentID), data); err != nil {
		return fmt.Errorf("put knowledge %s: %w", documentID, err)
	}
	return nil
}

// Get returns the stored structure for a document.
// A document without extracted knowledge fails with ErrNotFound.
func (r *Repo) Get(ctx context.Context, documentID string) (knowledge.Structure, error) {
	data, err := r.store.Get(ctx, key(documentID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return knowledge.Structure{}, domain.ErrNotFound
		}
		return knowledge.Structure{}, fmt.Errorf("get knowledge %s: %w", documentID, err)
	}

	var s knowledge.Structure
	if err := json.Unmarshal(data, &s); err != nil {
		return knowledge.Structure{}, fmt.Errorf("decode knowledge %s: %w", documentID, err)
	}
	return s, nil
}

func key(documentID string) string {
	return domain.KeyPrefix + "knowledge:" + documentID
}
