// Package embedding maps text to fixed-dimension float vectors. The neural
// encoder used in production sits behind Embedder; HashEmbedder is a
// deterministic stand-in that needs no model files.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	// Embed returns a vector of length Dimensions.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
