// Package models defines the data carried between the record store, the ANN
// index and the relevance evaluator.
package models

// Metadata describes where a chunk came from.
type Metadata struct {
	Source   string  `json:"source"`
	ProofID  *string `json:"proof_id,omitempty"`
	Provider *string `json:"provider,omitempty"`
}

// DocumentChunk is a unit of retrievable text. It is immutable once stored.
type DocumentChunk struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// NewChunk returns a chunk for content originating from source.
func NewChunk(content, source string) DocumentChunk {
	return DocumentChunk{Content: content, Metadata: Metadata{Source: source}}
}

// WithProvider returns a copy of c with the provider set.
func (c DocumentChunk) WithProvider(provider string) DocumentChunk {
	c.Metadata.Provider = &provider
	return c
}

// WithProofID returns a copy of c with the proof id set.
func (c DocumentChunk) WithProofID(proofID string) DocumentChunk {
	c.Metadata.ProofID = &proofID
	return c
}

// RecordID identifies a chunk and its embedding. Identifiers are dense,
// assigned in insertion order, and never reused.
type RecordID = uint64
