// Package selection implements intelligent context selection: it decides
// which retrieved data categories are relevant to a query and narrows each
// category with rule-based and embedding-based filters.
package selection

import "math"

// CosineSimilarity returns the cosine similarity of two vectors in [-1, 1].
// A zero-norm vector yields 0.0 rather than dividing by zero. Vectors of
// unequal length are compared over their common prefix.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
