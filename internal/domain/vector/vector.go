// Package vector holds the similarity math shared by the index and tests.
package vector

import (
	"fmt"
	"math"

	"github.com/studyflow-ai/studyflow/internal/domain"
)

// CosineDistance returns 1 - cosine similarity of a and b, in [0, 2].
// 0 means identical direction, larger means less similar. Vectors of
// differing length fail fast with ErrVectorDimMismatch.
func CosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf(
			"got %d and %d dimensions: %w", len(a), len(b), domain.ErrVectorDimMismatch,
		)
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		// A zero vector has no direction; treat it as orthogonal.
		return 1, nil
	}

	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)), nil
}
