package domain

// SearchResult is a single nearest-neighbor hit from a document partition.
// Distance is non-negative; 0 means identical, larger means less similar.
// For cosine distance the range is [0, 2].
type SearchResult struct {
	ChunkID  string  `json:"chunk_id"`
	Content  string  `json:"content"`
	Distance float64 `json:"distance"`
}
