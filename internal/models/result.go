package models

// SearchHit is a single resolved search result.
type SearchHit struct {
	ID       RecordID      `json:"id"`
	Distance float32       `json:"distance"`
	Chunk    DocumentChunk `json:"chunk"`
}

// RelevanceResult is the outcome of one relevance evaluation. Its field order
// is the order of the public commitment.
type RelevanceResult struct {
	DocumentHash DocumentHash `json:"document_hash"`
	IsRelevant   bool         `json:"is_relevant"`
	// Similarity is the fixed-point similarity widened for display.
	Similarity float32 `json:"similarity"`
	// Saturated reports that fixed-point arithmetic saturated somewhere in the
	// computation. It is not part of the commitment.
	Saturated bool `json:"saturated,omitempty"`
}
