// Package embedding wraps the external embedding-generation capability
// behind a small interface so retrieval and indexing stay testable.
package embedding

import (
	"context"
	"errors"
)

// ErrEmbedding wraps failures of the external embedding collaborator.
var ErrEmbedding = errors.New("embedding: request failed")

// Embedder transforms raw text into dense vectors used for similarity
// comparison. Vector dimensionality is fixed per deployment.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// StaticEmbedder returns the same vector for every input. Test helper.
type StaticEmbedder struct{ Vector []float64 }

// Embed returns identical vectors for each input text.
func (e *StaticEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	_ = ctx
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vectors[i] = append([]float64(nil), e.Vector...)
	}
	return vectors, nil
}

// FailingEmbedder always fails. Exercises degradation paths in tests
// and stands in when no embedding backend is configured.
type FailingEmbedder struct{}

// Embed returns ErrEmbedding unconditionally.
func (FailingEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	_ = ctx
	_ = texts
	return nil, ErrEmbedding
}
