// Package hash provides a deterministic, provider-free embedder. Each token
// is hashed into a fixed bucket, so texts sharing vocabulary land near each
// other. It stands in for the real provider in tests and offline setups,
// selected by configuration rather than call-site branching.
package hash

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

type Embedder struct {
	dimension int
}

func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = 1536
	}
	return &Embedder{dimension: dimension}
}

func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

// vector builds a unit-normalized bag-of-hashed-tokens vector. Same text,
// same vector.
func (e *Embedder) vector(text string) []float32 {
	vec := make([]float32, e.dimension)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%uint32(e.dimension)]++
	}

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(math.Sqrt(sumSquares))
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
