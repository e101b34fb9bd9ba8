// Package embed produces fixed-size vector embeddings for retrieval. Two
// implementations: a local ONNX transformer (MiniLM-class, 384-dim) and a
// deterministic token-hashing embedder used when no model is configured.
package embed

import "math"

// Embedder turns text into a fixed-size vector. Construct once, reuse for
// the process lifetime; the retrieval layer receives it as an injected
// handle.
type Embedder interface {
	Embed(text string) ([]float32, error)
	// Dim is the embedding dimensionality, used as the index vector size.
	Dim() int
	Close() error
}

// l2Normalize scales v to unit length in place. Zero vectors are left
// unchanged.
func l2Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}

// Dot returns the dot product of two equal-length vectors. With normalized
// vectors this is the cosine similarity.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
