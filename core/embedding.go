package core

import "math"

// EmbeddingDim is the canonical embedding width. Vectors from any oracle are
// padded with zeros or truncated to this length before storage so similarity
// queries never compare vectors of different dimensionality.
const EmbeddingDim = 1536

// CanonicalEmbedding pads or truncates v to EmbeddingDim.
func CanonicalEmbedding(v []float64) []float64 {
	out := make([]float64, EmbeddingDim)
	copy(out, v)
	return out
}

// CosineSimilarity computes the cosine similarity between two vectors. It
// returns 0 for zero-magnitude or mismatched inputs, which ranks unembedded
// records last in similarity queries.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
