// Package embeddings generates vector embeddings for bill text chunks
// and chat queries.
package embeddings

import "context"

// Embedder turns texts into embedding vectors.
type Embedder interface {
	// Embed generates one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector size the model produces.
	Dimensions() int

	// Name returns the model identifier.
	Name() string
}
