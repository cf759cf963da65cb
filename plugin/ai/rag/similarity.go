package rag

import "math"

// CosineSimilarity returns the normalized dot product of two vectors.
// Mismatched lengths or a zero vector yield exactly 0: a length mismatch
// signals an embedding-model swap and must not crash a search.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
