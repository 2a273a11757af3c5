// Package search defines the embedding and result types shared by the
// search and updater services.
package search

import "context"

// Dimension is the embedding dimensionality every Embedder must produce.
const Dimension = 768

// Embedder converts text into unit-norm embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
