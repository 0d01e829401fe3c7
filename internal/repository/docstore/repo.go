// Package docstore persists uploaded documents. It replaces the transport
// layer's former in-memory map so the retrieval core stays storage-agnostic
// and documents survive restarts.
package docstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/studyflow-ai/studyflow/internal/domain"
)

// store is the consumer interface for documents (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements the document repository over a hash store.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Put creates or overwrites a document.
func (r *Repo) Put(ctx context.Context, doc domain.Document) error {
	if err := r.store.HSet(ctx, docKey(doc.ID), buildHashFields(doc)); err != nil {
		return fmt.Errorf("put document %s: %w", doc.ID, err)
	}
	return nil
}

// Get returns a document by id.
func (r *Repo) Get(ctx context.Context, id string) (domain.Document, error) {
	fields, err := r.store.HGetAll(ctx, docKey(id))
	if err != nil {
		return domain.Document{}, fmt.Errorf("get document %s: %w", id, err)
	}
	if len(fields) == 0 {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	return parseHashFields(id, fields), nil
}

// List returns all documents sorted by upload time, newest first.
func (r *Repo) List(ctx context.Context) ([]domain.Document, error) {
	keys, err := r.store.Scan(ctx, docKey("*"))
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}

	docs := make([]domain.Document, 0, len(hashes))
	for i, fields := range hashes {
		if len(fields) == 0 {
			continue
		}
		docs = append(docs, parseHashFields(idFromKey(keys[i]), fields))
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UploadedAt.After(docs[j].UploadedAt)
	})
	return docs, nil
}

// Delete removes a document. Deleting an unknown id fails with
// ErrDocumentNotFound.
func (r *Repo) Delete(ctx context.Context, id string) error {
	exists, err := r.store.Exists(ctx, docKey(id))
	if err != nil {
		return fmt.Errorf("check document %s: %w", id, err)
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}
	if err := r.store.Del(ctx, docKey(id)); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

func buildHashFields(doc domain.Document) map[string]string {
	return map[string]string{
		"name":        doc.Name,
		"content":     doc.Content,
		"page_count":  strconv.Itoa(doc.PageCount),
		"status":      doc.Status,
		"uploaded_at": doc.UploadedAt.UTC().Format(time.RFC3339Nano),
	}
}

func parseHashFields(id string, m map[string]string) domain.Document {
	pageCount, _ := strconv.Atoi(m["page_count"])
	uploadedAt, _ := time.Parse(time.RFC3339Nano, m["uploaded_at"])
	return domain.Document{
		ID:         id,
		Name:       m["name"],
		Content:    m["content"],
		PageCount:  pageCount,
		Status:     m["status"],
		UploadedAt: uploadedAt,
	}
}

func docKey(id string) string {
	return domain.KeyPrefix + "doc:" + id
}

func idFromKey(key string) string {
	return strings.TrimPrefix(key, domain.KeyPrefix+"doc:")
}
