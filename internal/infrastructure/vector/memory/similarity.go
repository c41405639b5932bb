package memory

import (
	"fmt"
	"math"

	"github.com/antonved/knowledge-engine/internal/core/domain"
)

// Cosine returns dot(a,b)/(‖a‖·‖b‖) in [-1, 1]. A zero-norm operand yields 0
// instead of dividing by zero. Unequal lengths indicate a provider
// configuration bug and are a hard error, never coerced.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.WrapError(domain.ErrDimensionMismatch, "cosine similarity",
			fmt.Errorf("vector lengths %d and %d", len(a), len(b)))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
