package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/studyflow-ai/studyflow/internal/domain"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn         func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	delFn          func(ctx context.Context, key string) error
	existsFn       func(ctx context.Context, key string) (bool, error)
	scanFn         func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func TestPut_WritesHash(t *testing.T) {
	repo, ms := newTestRepo(t)

	var gotKey string
	var gotFields map[string]string
	ms.hsetFn = func(_ context.Context, key string, fields map[string]string) error {
		gotKey = key
		gotFields = fields
		return nil
	}

	uploaded := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	doc := domain.Document{
		ID: "doc-1", Name: "calculus.pdf", Content: "limits and derivatives",
		PageCount: 12, Status: "indexed", UploadedAt: uploaded,
	}
	if err := repo.Put(context.Background(), doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "studyflow:doc:doc-1" {
		t.Errorf("unexpected key: %s", gotKey)
	}
	if gotFields["name"] != "calculus.pdf" || gotFields["page_count"] != "12" {
		t.Errorf("unexpected fields: %v", gotFields)
	}
}

func TestGet_RoundTrip(t *testing.T) {
	repo, ms := newTestRepo(t)

	uploaded := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	want := domain.Document{
		ID: "doc-1", Name: "calculus.pdf", Content: "limits",
		PageCount: 3, Status: "indexed", UploadedAt: uploaded,
	}

	var stored map[string]string
	ms.hsetFn = func(_ context.Context, _ string, fields map[string]string) error {
		stored = fields
		return nil
	}
	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		if key != "studyflow:doc:doc-1" {
			t.Errorf("unexpected key: %s", key)
		}
		return stored, nil
	}

	if err := repo.Put(context.Background(), want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := repo.Get(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{}, nil
	}

	_, err := repo.Get(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestList_SortedNewestFirst(t *testing.T) {
	repo, ms := newTestRepo(t)

	older := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		if pattern != "studyflow:doc:*" {
			t.Errorf("unexpected pattern: %s", pattern)
		}
		return []string{"studyflow:doc:old", "studyflow:doc:new"}, nil
	}
	ms.hgetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		return []map[string]string{
			{"name": "old.pdf", "uploaded_at": older.Format(time.RFC3339Nano)},
			{"name": "new.pdf", "uploaded_at": newer.Format(time.RFC3339Nano)},
		}, nil
	}

	docs, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != "new" || docs[1].ID != "old" {
		t.Fatalf("expected newest first, got %s, %s", docs[0].ID, docs[1].ID)
	}
}

func TestList_Empty(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.scanFn = func(_ context.Context, _ string) ([]string, error) { return nil, nil }

	docs, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if docs != nil {
		t.Fatalf("expected nil, got %v", docs)
	}
}

func TestDelete_Unknown(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return false, nil }

	err := repo.Delete(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestDelete_Existing(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }

	var deleted string
	ms.delFn = func(_ context.Context, key string) error {
		deleted = key
		return nil
	}

	if err := repo.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != "studyflow:doc:doc-1" {
		t.Errorf("unexpected key: %s", deleted)
	}
}
