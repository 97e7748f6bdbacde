// Package indexer turns raw text into stored chunks: it splits, embeds and
// hands the result to the vector store.
package indexer

import (
	"strings"

	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/models"
)

// Chunker splits text into overlapping word-based chunks.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in words).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Split cuts text into windows of chunkSizeHint words, each overlapping the
// previous one by the configured overlap. A non-positive hint uses the
// chunker's size. Only Content is set; callers fill in metadata.
func (c *Chunker) Split(text string, chunkSizeHint int) []models.DocumentChunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	size := c.chunkSize
	if chunkSizeHint > 0 {
		size = chunkSizeHint
	}
	step := size - c.chunkOverlap
	if step <= 0 {
		step = 1
	}
	var chunks []models.DocumentChunk
	for i := 0; i < len(words); i += step {
		end := min(i+size, len(words))
		chunks = append(chunks, models.DocumentChunk{Content: strings.Join(words[i:end], " ")})
		if end >= len(words) {
			break
		}
	}
	return chunks
}
