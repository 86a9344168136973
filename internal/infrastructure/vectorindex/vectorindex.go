// Package vectorindex provides the in-process embedded vector index used by
// the fact store: plain Go cosine-similarity ranking over embeddings read
// from the same SQLite database and transaction as the relational rows (see
// DESIGN.md for why this replaces a remote vector service). Grounded on
// liliang-cn-sqvect's similarity.go (cosine formula) and
// bbiangul-go-reason's store.go (little-endian float32 BLOB encoding).
package vectorindex

import (
	"encoding/binary"
	"math"
	"sort"
)

// Candidate is one embedding eligible for a similarity search, tagged with
// an opaque identifier the caller uses to map results back to rows.
type Candidate struct {
	ID        string
	Embedding []float32
}

// Scored is a Candidate plus its cosine similarity against a query vector.
type Scored struct {
	ID         string
	Similarity float64
}

// EncodeEmbedding packs a float32 vector into little-endian bytes for
// storage in a BLOB column.
func EncodeEmbedding(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeEmbedding unpacks a BLOB column back into a float32 vector.
func DecodeEmbedding(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

// CosineSimilarity returns the cosine similarity of two equal-length
// vectors, or 0 if their lengths differ or either is the zero vector.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// TopK ranks candidates against query by descending cosine similarity and
// returns at most k results. Ties break by candidate ID ascending, for
// deterministic output.
func TopK(query []float32, candidates []Candidate, k int) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, Scored{ID: c.ID, Similarity: CosineSimilarity(query, c.Embedding)})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].ID < scored[j].ID
	})
	if k >= 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
