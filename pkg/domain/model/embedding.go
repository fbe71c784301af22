package model

import "math"

// DefaultEmbeddingDimension is the vector size requested from the provider
// unless configured otherwise.
const DefaultEmbeddingDimension = 768

// Embedding is a fixed-length vector representation of memory content
type Embedding []float32

// NewEmbedding converts a provider vector to an Embedding
func NewEmbedding(v []float64) Embedding {
	if len(v) == 0 {
		return nil
	}
	e := make(Embedding, len(v))
	for i, f := range v {
		e[i] = float32(f)
	}
	return e
}

// Similarity returns the cosine similarity of e and other. Vectors of
// different length or zero norm have similarity 0.
func (e Embedding) Similarity(other Embedding) float64 {
	if len(e) == 0 || len(e) != len(other) {
		return 0
	}

	var dot, normA, normB float64
	for i := range e {
		a, b := float64(e[i]), float64(other[i])
		dot += a * b
		normA += a * a
		normB += b * b
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

func (e Embedding) Clone() Embedding {
	if e == nil {
		return nil
	}
	copied := make(Embedding, len(e))
	copy(copied, e)
	return copied
}
