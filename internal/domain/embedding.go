package domain

import "context"

// Embedder vectorizes text batches.
//
// The contract is availability over correctness: implementations always return
// one vector per input text, in input order. Blank inputs and provider
// failures yield zero vectors of the configured dimension instead of errors;
// degradation is surfaced through metrics, not through the call path.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) [][]float32
	EmbedOne(ctx context.Context, text string) []float32
}

// ZeroVector returns an explicit all-zero vector of the given dimension.
func ZeroVector(dim int) []float32 {
	return make([]float32, dim)
}

// IsZeroVector reports whether every component is zero. A zero vector is
// indistinguishable from a degraded provider response, so callers treat it as
// a soft failure (e.g. the embedding cache never stores one).
func IsZeroVector(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}
