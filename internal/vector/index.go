// Package vector provides the approximate nearest neighbour index used by the
// vector store.
package vector

import "github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/models"

// Index is an append-only proximity graph over fixed-dimension vectors.
//
// Implementations are not safe for concurrent mutation: Insert must not run
// concurrently with any other method. Searches may run concurrently with each
// other.
type Index interface {
	// Insert adds vector under id.
	Insert(vector []float32, id models.RecordID) error
	// Search returns up to k hits by ascending distance using the configured ef.
	Search(query []float32, k int) ([]Hit, error)
	// SearchEf is Search with an explicit candidate list size.
	SearchEf(query []float32, k, ef int) ([]Hit, error)
	// Size returns the number of indexed points.
	Size() int
	// Dimensions returns the fixed vector length.
	Dimensions() int
}

// Hit is a single search result.
type Hit struct {
	ID       models.RecordID
	Distance float32 // squared Euclidean distance in index space
}
