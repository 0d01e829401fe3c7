// Package vectorindex stores per-document index partitions and answers
// nearest-neighbor queries over them. One partition per document id; chunks
// within a partition are keyed by their stable chunk id and overwrite on
// collision. All state lives in the store, so partitions survive restarts.
package vectorindex

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/studyflow-ai/studyflow/internal/db"
	"github.com/studyflow-ai/studyflow/internal/domain"
	"github.com/studyflow-ai/studyflow/internal/domain/vector"
)

// store is the consumer interface for index partitions (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Entry is one chunk to be written into a partition.
type Entry = domain.IndexEntry

// Meta describes what a partition currently holds.
type Meta = domain.IndexMeta

// Repo implements the vector index over a hash store.
type Repo struct {
	store store
}

// New creates a vector index repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Add appends entries to the document's partition in one pipelined write.
// An entry whose id already exists overwrites the stored chunk.
func (r *Repo) Add(ctx context.Context, documentID string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(entries))
	for i, e := range entries {
		items[i] = db.HashSetItem{
			Key: chunkKey(documentID, e.ID),
			Fields: map[string]string{
				"seq":    strconv.Itoa(i),
				"text":   e.Text,
				"vector": vectorToBytes(e.Vector),
			},
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("write partition %s: %w", documentID, err)
	}
	return nil
}

// Search returns the topK nearest chunks by cosine distance, ascending,
// ties broken by insertion order. An unknown document id yields an empty
// result set, not an error. A dimensionality mismatch between the query and
// any stored vector fails fast with ErrVectorDimMismatch.
func (r *Repo) Search(
	ctx context.Context, documentID string, query []float32, topK int,
) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}

	keys, err := r.store.Scan(ctx, chunkKey(documentID, "*"))
	if err != nil {
		return nil, fmt.Errorf("scan partition %s: %w", documentID, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("read partition %s: %w", documentID, err)
	}

	type hit struct {
		res domain.SearchResult
		seq int
	}
	hits := make([]hit, 0, len(hashes))

	for i, fields := range hashes {
		vec := bytesToVector(fields["vector"])
		dist, err := vector.CosineDistance(query, vec)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", keys[i], err)
		}
		seq, _ := strconv.Atoi(fields["seq"])
		hits = append(hits, hit{
			res: domain.SearchResult{
				ChunkID:  chunkIDFromKey(keys[i], documentID),
				Content:  fields["text"],
				Distance: dist,
			},
			seq: seq,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].res.Distance != hits[j].res.Distance {
			return hits[i].res.Distance < hits[j].res.Distance
		}
		return hits[i].seq < hits[j].seq
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}

	results := make([]domain.SearchResult, len(hits))
	for i, h := range hits {
		results[i] = h.res
	}
	return results, nil
}

// Clear drops every chunk in the document's partition, including its meta.
// Clearing an absent partition is a no-op.
func (r *Repo) Clear(ctx context.Context, documentID string) error {
	keys, err := r.store.Scan(ctx, partitionPrefix(documentID)+"*")
	if err != nil {
		return fmt.Errorf("scan partition %s: %w", documentID, err)
	}
	if err := r.store.DelMulti(ctx, keys); err != nil {
		return fmt.Errorf("clear partition %s: %w", documentID, err)
	}
	return nil
}

// SetMeta records what was indexed into the partition.
func (r *Repo) SetMeta(ctx context.Context, documentID string, meta Meta) error {
	fields := map[string]string{
		"text_hash":  meta.TextHash,
		"chunks":     strconv.Itoa(meta.Chunks),
		"dimensions": strconv.Itoa(meta.Dimensions),
	}
	if err := r.store.HSet(ctx, metaKey(documentID), fields); err != nil {
		return fmt.Errorf("write partition meta %s: %w", documentID, err)
	}
	return nil
}

// GetMeta returns the partition's meta, or a zero Meta when the partition
// has never been indexed.
func (r *Repo) GetMeta(ctx context.Context, documentID string) (Meta, error) {
	fields, err := r.store.HGetAll(ctx, metaKey(documentID))
	if err != nil {
		return Meta{}, fmt.Errorf("read partition meta %s: %w", documentID, err)
	}
	if len(fields) == 0 {
		return Meta{}, nil
	}
	chunks, _ := strconv.Atoi(fields["chunks"])
	dims, _ := strconv.Atoi(fields["dimensions"])
	return Meta{
		TextHash:   fields["text_hash"],
		Chunks:     chunks,
		Dimensions: dims,
	}, nil
}

func partitionPrefix(documentID string) string {
	return fmt.Sprintf("%spart:%s:", domain.KeyPrefix, documentID)
}

func chunkKey(documentID, chunkID string) string {
	return partitionPrefix(documentID) + "chunk:" + chunkID
}

func metaKey(documentID string) string {
	return partitionPrefix(documentID) + "meta"
}

func chunkIDFromKey(key, documentID string) string {
	prefix := partitionPrefix(documentID) + "chunk:"
	if len(key) > len(prefix) {
		return key[len(prefix):]
	}
	return key
}
