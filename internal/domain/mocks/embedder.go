package mocks

import (
	"context"
	"hash/fnv"
	"math"
)

// Embedder is a mock implementation of ports.Embedder producing
// deterministic unit-norm vectors derived from the text, so equal texts
// embed identically and different texts (almost always) differ.
type Embedder struct {
	Dim int
	Err error
}

// EmbedBatch implements ports.Embedder.
func (m *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	dim := m.Dim
	if dim <= 0 {
		dim = 8
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = deterministicVector(text, dim)
	}
	return out, nil
}

func deterministicVector(text string, dim int) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	v := make([]float32, dim)
	var norm float64
	for i := range v {
		seed = seed*6364136223846793005 + 1442695040888963407
		component := float64(int64(seed>>32))/float64(1<<31) - 0.5
		v[i] = float32(component)
		norm += component * component
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range v {
			v[i] *= inv
		}
	}
	return v
}
