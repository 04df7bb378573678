// Package embeddings turns snippet text into vectors for the semantic
// snippet search.
package embeddings

import "context"

// Embedder produces vectors for snippet text.
type Embedder interface {
	// Embed vectorizes one or more texts, preserving order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the width of the produced vectors.
	Dimensions() int

	// Name identifies the backing embedding model.
	Name() string
}
