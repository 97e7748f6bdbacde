package embedding

import (
	"context"

	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/pkg/utils"
)

// DefaultDimensions matches the MiniLM-class encoders the store is sized for.
const DefaultDimensions = 384

// HashEmbedder embeds text by feature hashing its unigrams and bigrams into a
// signed bag-of-words vector, normalized to unit length. Texts sharing words
// land close together, and the same text always yields the same vector.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns an embedder producing vectors of the given dimension.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns the hashed embedding of text. Text with no tokens embeds to
// the zero vector.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	tokens := Tokens(text)
	for i, tok := range tokens {
		idx, sign := bucket(tok, e.dimensions)
		emb[idx] += sign
		if i > 0 {
			idx, sign = bucket(tokens[i-1]+" "+tok, e.dimensions)
			emb[idx] += 0.5 * sign
		}
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for HashEmbedder.
func (e *HashEmbedder) Close() error {
	return nil
}

var _ Embedder = (*HashEmbedder)(nil)
