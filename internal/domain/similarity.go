package domain

import "math"

// CosineSimilarity computes dot(a,b) / (norm(a)*norm(b)) in [-1, 1].
// Returns ok=false when the vectors differ in length, are empty, or
// either has zero norm; callers must treat that as "no match" rather
// than comparing a NaN.
func CosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, false
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}
	return sim, true
}
