// Package storage provides the durable record store: an ordered, crash-safe
// log mapping a record identifier to a serialized chunk and to its serialized
// embedding vector.
//
// Both namespaces are keyed by the 8-byte big-endian identifier, so ascending
// key order is insertion order.
package storage

import (
	"context"
	"fmt"

	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/models"
)

// RecordStore defines chunk and vector persistence.
//
// Put buffers a record; Flush is the durability boundary. Records put but not
// yet flushed are visible to Get and GetVector on the same handle.
type RecordStore interface {
	// Put stores the vector then the chunk for id.
	Put(ctx context.Context, id models.RecordID, chunk models.DocumentChunk, vector []float32) error
	// Get returns the chunk for id or models.ErrNotFound.
	Get(ctx context.Context, id models.RecordID) (models.DocumentChunk, error)
	// GetVector returns the vector for id or models.ErrNotFound.
	GetVector(ctx context.Context, id models.RecordID) ([]float32, error)
	// IterateVectors calls fn for every persisted vector in ascending id order.
	// Each call starts from the first record. Returning an error from fn stops
	// the iteration and is returned unchanged.
	IterateVectors(ctx context.Context, fn func(id models.RecordID, vector []float32) error) error
	// Flush forces buffered writes to stable storage.
	Flush(ctx context.Context) error
	// NextID returns one past the largest identifier present in either
	// namespace, or 0 for an empty store.
	NextID(ctx context.Context) (models.RecordID, error)
	// Count returns the number of stored vectors.
	Count(ctx context.Context) (uint64, error)
	// Path returns the backing file path.
	Path() string
	// Close flushes and releases the store.
	Close() error
}

// Backend names a RecordStore implementation.
type Backend string

const (
	// BackendBolt stores records in a bbolt file with one bucket per namespace.
	BackendBolt Backend = "bolt"
	// BackendSQLite stores records in a SQLite database with one table per namespace.
	BackendSQLite Backend = "sqlite"
)

// Open opens or creates a record store of the given backend at path.
// Supported backends: "bolt" (default), "sqlite".
func Open(backend string, path string) (RecordStore, error) {
	switch Backend(backend) {
	case BackendBolt, "":
		return OpenBolt(path)
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("%w: unknown storage backend: %s (supported: bolt, sqlite)", models.ErrStorageUnavailable, backend)
	}
}
