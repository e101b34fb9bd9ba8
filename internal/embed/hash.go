package embed

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// DefaultDim matches the MiniLM output size so the index schema stays the
// same whichever embedder is active.
const DefaultDim = 384

// HashingEmbedder is a deterministic feature-hashing embedder: each token
// hashes to one vector slot with a hash-derived sign, and the result is
// L2-normalized. No model files, no external calls — the same text always
// produces the same vector, which keeps retrieval cache keys reproducible.
// Retrieval quality is lexical rather than semantic; the ONNX embedder is
// preferred when a model is available.
type HashingEmbedder struct {
	dim int
}

// NewHashingEmbedder creates a HashingEmbedder. dim <= 0 selects DefaultDim.
func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = DefaultDim
	}
	return &HashingEmbedder{dim: dim}
}

func (e *HashingEmbedder) Dim() int { return e.dim }

func (e *HashingEmbedder) Embed(text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	for _, tok := range hashTokens(text) {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dim))
		sign := float32(1)
		if sum&(1<<63) != 0 {
			sign = -1
		}
		vec[idx] += sign
	}
	l2Normalize(vec)
	return vec, nil
}

func (e *HashingEmbedder) Close() error { return nil }

// hashTokens lowercases and splits on anything that is not a letter or
// digit.
func hashTokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
