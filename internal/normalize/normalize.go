package normalize

import (
	"fmt"
	"math"

	"github.com/doujins-org/recokit/internalerr"
)

// L2NormalizeInPlace normalizes vec to unit L2 norm.
// If vec is empty or all zeros, it is left unchanged.
func L2NormalizeInPlace(vec []float32) {
	if len(vec) == 0 {
		return
	}
	var sumSq float64
	for _, v := range vec {
		f := float64(v)
		sumSq += f * f
	}
	if sumSq <= 0 {
		return
	}
	invNorm := float32(1.0 / math.Sqrt(sumSq))
	for i := range vec {
		vec[i] *= invNorm
	}
}

// Cosine returns the cosine similarity of a and b, accumulated in float64.
// Vectors of different length are rejected with internalerr.ErrInvalidInput.
// A zero-magnitude vector yields 0.
func Cosine[T float32 | float64](a, b []T) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector length mismatch %d != %d: %w", len(a), len(b), internalerr.ErrInvalidInput)
	}
	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
