package vector

import (
	"errors"
	"math"
	"testing"

	"github.com/studyflow-ai/studyflow/internal/domain"
)

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical direction", []float32{1, 0}, []float32{1, 0}, 0},
		{"identical scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 1},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineDistance(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineDistance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineDistance_DimensionMismatch(t *testing.T) {
	_, err := CosineDistance([]float32{1, 0}, []float32{1, 0, 0})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestCosineDistance_Symmetric(t *testing.T) {
	a := []float32{0.3, -0.7, 1.2}
	b := []float32{-0.1, 0.4, 0.9}

	ab, err := CosineDistance(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ba, err := CosineDistance(b, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(ab-ba) > 1e-12 {
		t.Errorf("distance not symmetric: %v vs %v", ab, ba)
	}
}
