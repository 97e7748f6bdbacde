package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/models"
)

var (
	chunksBucket  = []byte("chunks")
	vectorsBucket = []byte("vectors")
)

// BoltStore implements RecordStore on a bbolt file. Puts are buffered in
// memory and committed in a single write transaction by Flush, so each batch
// costs one fsync.
type BoltStore struct {
	db      *bolt.DB
	path    string
	mu      sync.RWMutex
	pending []pendingRecord
	byID    map[models.RecordID]int
	closed  bool
}

type pendingRecord struct {
	id     models.RecordID
	chunk  []byte
	vector []byte
}

// OpenBolt opens or creates a bbolt record store at path. Parent directories
// are created if needed.
func OpenBolt(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: create store directory: %w", models.ErrStorageUnavailable, err)
		}
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", models.ErrStorageUnavailable, path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{vectorsBucket, chunksBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: initialize buckets: %w", models.ErrStorageUnavailable, err)
	}
	return &BoltStore{
		db:   db,
		path: path,
		byID: make(map[models.RecordID]int),
	}, nil
}

// Put buffers the vector and chunk for id until the next Flush.
func (s *BoltStore) Put(ctx context.Context, id models.RecordID, chunk models.DocumentChunk, vector []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chunkData, err := encodeChunk(chunk)
	if err != nil {
		return err
	}
	rec := pendingRecord{id: id, chunk: chunkData, vector: encodeVector(vector)}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.ErrClosed
	}
	if i, ok := s.byID[id]; ok {
		s.pending[i] = rec
		return nil
	}
	s.byID[id] = len(s.pending)
	s.pending = append(s.pending, rec)
	return nil
}

// Get returns the chunk for id.
func (s *BoltStore) Get(ctx context.Context, id models.RecordID) (models.DocumentChunk, error) {
	data, err := s.lookup(ctx, chunksBucket, id, func(r pendingRecord) []byte { return r.chunk })
	if err != nil {
		return models.DocumentChunk{}, err
	}
	return decodeChunk(data)
}

// GetVector returns the vector for id.
func (s *BoltStore) GetVector(ctx context.Context, id models.RecordID) ([]float32, error) {
	data, err := s.lookup(ctx, vectorsBucket, id, func(r pendingRecord) []byte { return r.vector })
	if err != nil {
		return nil, err
	}
	return decodeVector(data)
}

func (s *BoltStore) lookup(ctx context.Context, bucket []byte, id models.RecordID, field func(pendingRecord) []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, models.ErrClosed
	}
	if i, ok := s.byID[id]; ok {
		return field(s.pending[i]), nil
	}
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get(EncodeID(id))
		if v == nil {
			return models.ErrNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("record %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read record %d: %w", models.ErrStorageFailure, id, err)
	}
	return out, nil
}

// IterateVectors flushes pending writes, then walks the vectors bucket in key order.
func (s *BoltStore) IterateVectors(ctx context.Context, fn func(id models.RecordID, vector []float32) error) error {
	if err := s.Flush(ctx); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return models.ErrClosed
	}
	var fnErr error
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(vectorsBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				fnErr = err
				return err
			}
			id, err := DecodeID(k)
			if err != nil {
				return err
			}
			vec, err := decodeVector(v)
			if err != nil {
				return err
			}
			if err := fn(id, vec); err != nil {
				fnErr = err
				return err
			}
		}
		return nil
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return fmt.Errorf("%w: iterate vectors: %w", models.ErrStorageFailure, err)
	}
	return nil
}

// Flush commits every pending record in one transaction, writing each vector
// before its chunk. Pending records are dropped whether or not the commit
// succeeds, so a failed batch is never silently replayed later.
func (s *BoltStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.ErrClosed
	}
	return s.flushLocked()
}

func (s *BoltStore) flushLocked() error {
	if len(s.pending) == 0 {
		return nil
	}
	pending := s.pending
	s.pending = nil
	s.byID = make(map[models.RecordID]int)
	err := s.db.Update(func(tx *bolt.Tx) error {
		vectors := tx.Bucket(vectorsBucket)
		chunks := tx.Bucket(chunksBucket)
		for _, rec := range pending {
			key := EncodeID(rec.id)
			if err := vectors.Put(key, rec.vector); err != nil {
				return err
			}
			if err := chunks.Put(key, rec.chunk); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: commit %d records: %w", models.ErrStorageFailure, len(pending), err)
	}
	return nil
}

// NextID returns one past the largest identifier in either bucket or the pending buffer.
func (s *BoltStore) NextID(ctx context.Context) (models.RecordID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, models.ErrClosed
	}
	var next models.RecordID
	for id := range s.byID {
		if id+1 > next {
			next = id + 1
		}
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{vectorsBucket, chunksBucket} {
			k, _ := tx.Bucket(name).Cursor().Last()
			if k == nil {
				continue
			}
			id, err := DecodeID(k)
			if err != nil {
				return err
			}
			if id+1 > next {
				next = id + 1
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: next id: %w", models.ErrStorageFailure, err)
	}
	return next, nil
}

// Count returns the number of persisted vectors plus pending ones.
func (s *BoltStore) Count(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, models.ErrClosed
	}
	var n uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(vectorsBucket)
		for _, rec := range s.pending {
			if b.Get(EncodeID(rec.id)) == nil {
				n++
			}
		}
		n += uint64(b.Stats().KeyN)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count: %w", models.ErrStorageFailure, err)
	}
	return n, nil
}

// Path returns the bbolt file path.
func (s *BoltStore) Path() string {
	return s.path
}

// Close flushes pending records and closes the file.
func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	flushErr := s.flushLocked()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", models.ErrStorageFailure, err)
	}
	return flushErr
}
