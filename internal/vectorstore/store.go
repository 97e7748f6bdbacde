// Package vectorstore keeps the durable record log and the in-memory ANN
// index consistent. The log is authoritative: the index is rebuilt from it on
// every open and is never persisted.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/metrics"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/models"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/relevance"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/storage"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/vector"
)

// Config selects the record store backend and the index parameters.
type Config struct {
	Backend string
	Path    string
	Index   vector.Config
}

// Store is the composite vector store. Writes take an exclusive lock over
// both the index and the log; searches share a read lock.
type Store struct {
	mu        sync.RWMutex
	records   storage.RecordStore
	index     vector.Index
	evaluator *relevance.Evaluator
	logger    *zap.Logger
	metrics   *metrics.Metrics
	closed    bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records ingestion and search metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithEvaluator sets the evaluator used by Evaluate.
func WithEvaluator(e *relevance.Evaluator) Option {
	return func(s *Store) {
		if e != nil {
			s.evaluator = e
		}
	}
}

// Open opens the record store described by cfg and rebuilds a fresh HNSW
// index from it.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	index, err := vector.NewHNSW(cfg.Index)
	if err != nil {
		return nil, err
	}
	records, err := storage.Open(cfg.Backend, cfg.Path)
	if err != nil {
		return nil, err
	}
	s, err := New(ctx, records, index, opts...)
	if err != nil {
		_ = records.Close()
		return nil, err
	}
	return s, nil
}

// New assembles a Store from an open record store and an empty index, then
// inserts every persisted vector into the index in ascending id order.
func New(ctx context.Context, records storage.RecordStore, index vector.Index, opts ...Option) (*Store, error) {
	if index.Size() != 0 {
		return nil, fmt.Errorf("%w: index must be empty before rebuild", models.ErrInvalidInput)
	}
	s := &Store{
		records: records,
		index:   index,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.evaluator == nil {
		s.evaluator = relevance.NewEvaluator(relevance.WithLogger(s.logger), relevance.WithMetrics(s.metrics))
	}
	if err := s.rebuild(ctx); err != nil {
		return nil, fmt.Errorf("%w: rebuild index from %s: %w", models.ErrStorageUnavailable, records.Path(), err)
	}
	return s, nil
}

func (s *Store) rebuild(ctx context.Context) error {
	start := time.Now()
	err := s.records.IterateVectors(ctx, func(id models.RecordID, v []float32) error {
		if err := s.index.Insert(v, id); err != nil {
			return fmt.Errorf("rebuild record %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	s.metrics.IndexRebuilt(elapsed)
	s.metrics.SetIndexSize(s.index.Size())
	s.logger.Info("vector store opened",
		zap.String("path", s.records.Path()),
		zap.Int("records", s.index.Size()),
		zap.Duration("rebuild", elapsed))
	return nil
}

// BatchError reports a partially applied AddChunks call. Inputs before
// FailedAt were persisted; Inserted lists every id that reached the index,
// which may include ids whose records were not persisted.
type BatchError struct {
	Inserted []models.RecordID
	FailedAt int
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch failed at input %d after %d index inserts: %v", e.FailedAt, len(e.Inserted), e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// AddChunks stores chunks with their embeddings and returns the assigned
// identifiers. Each pair is inserted into the index and then put to the log;
// the log is flushed once at the end of the batch.
//
// Every embedding is checked against the index dimension before anything is
// mutated. A storage failure part way returns a *BatchError.
func (s *Store) AddChunks(ctx context.Context, chunks []models.DocumentChunk, embeddings [][]float32) ([]models.RecordID, error) {
	if len(chunks) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d chunks, %d embeddings", models.ErrLengthMismatch, len(chunks), len(embeddings))
	}
	dims := s.index.Dimensions()
	for i, e := range embeddings {
		if len(e) != dims {
			return nil, fmt.Errorf("%w: embedding %d has %d dimensions, store expects %d",
				models.ErrDimensionMismatch, i, len(e), dims)
		}
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, models.ErrClosed
	}

	next, err := s.records.NextID(ctx)
	if err != nil {
		return nil, err
	}
	next = max(next, models.RecordID(s.index.Size()))

	ids := make([]models.RecordID, 0, len(chunks))
	fail := func(at int, err error) ([]models.RecordID, error) {
		s.metrics.BatchFailed()
		s.metrics.SetIndexSize(s.index.Size())
		s.logger.Error("batch ingestion failed",
			zap.Int("failed_at", at),
			zap.Int("inserted", len(ids)),
			zap.Error(err))
		return nil, &BatchError{Inserted: ids, FailedAt: at, Err: err}
	}

	for i, chunk := range chunks {
		id := next + models.RecordID(i)
		err := s.index.Insert(embeddings[i], id)
		if err == nil {
			ids = append(ids, id)
			err = s.records.Put(ctx, id, chunk, embeddings[i])
		}
		if err != nil {
			// Flush the records put before the failure.
			if flushErr := s.records.Flush(ctx); flushErr != nil {
				return fail(0, errors.Join(err, flushErr))
			}
			return fail(i, err)
		}
	}
	if err := s.records.Flush(ctx); err != nil {
		return fail(0, err)
	}

	s.metrics.ChunksIngested(len(ids))
	s.metrics.SetIndexSize(s.index.Size())
	s.logger.Debug("batch stored",
		zap.Int("count", len(ids)),
		zap.Uint64("first_id", ids[0]))
	return ids, nil
}

// Search returns up to k chunks nearest to query.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]models.DocumentChunk, error) {
	hits, err := s.SearchHits(ctx, query, k)
	if err != nil {
		return nil, err
	}
	chunks := make([]models.DocumentChunk, len(hits))
	for i, h := range hits {
		chunks[i] = h.Chunk
	}
	return chunks, nil
}

// SearchHits returns up to k hits nearest to query, ordered by ascending
// distance. Index entries whose chunk is missing from the log are skipped.
func (s *Store) SearchHits(ctx context.Context, query []float32, k int) ([]models.SearchHit, error) {
	start := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, models.ErrClosed
	}
	hits, err := s.index.Search(query, k)
	if err != nil {
		return nil, err
	}
	out := make([]models.SearchHit, 0, len(hits))
	for _, h := range hits {
		chunk, err := s.records.Get(ctx, h.ID)
		if errors.Is(err, models.ErrNotFound) {
			s.metrics.OrphanSkipped()
			s.logger.Debug("skipping index entry without chunk", zap.Uint64("id", h.ID))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, models.SearchHit{ID: h.ID, Distance: h.Distance, Chunk: chunk})
	}
	s.metrics.SearchServed(time.Since(start))
	return out, nil
}

// GetChunk returns the chunk stored under id.
func (s *Store) GetChunk(ctx context.Context, id models.RecordID) (models.DocumentChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return models.DocumentChunk{}, models.ErrClosed
	}
	return s.records.Get(ctx, id)
}

// GetVector returns the persisted embedding stored under id.
func (s *Store) GetVector(ctx context.Context, id models.RecordID) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, models.ErrClosed
	}
	return s.records.GetVector(ctx, id)
}

// Evaluate finds the chunk nearest to query and decides its relevance
// against threshold using the chunk's persisted vector. The document hash is
// the SHA-256 of the chunk content. It returns models.ErrNotFound when no
// candidate resolves.
func (s *Store) Evaluate(ctx context.Context, query []float32, threshold float32) (models.SearchHit, models.RelevanceResult, error) {
	hits, err := s.SearchHits(ctx, query, 1)
	if err != nil {
		return models.SearchHit{}, models.RelevanceResult{}, err
	}
	if len(hits) == 0 {
		return models.SearchHit{}, models.RelevanceResult{}, fmt.Errorf("no candidate: %w", models.ErrNotFound)
	}
	top := hits[0]
	candidate, err := s.GetVector(ctx, top.ID)
	if err != nil {
		return top, models.RelevanceResult{}, err
	}
	result, err := s.evaluator.Evaluate(query, candidate, threshold, models.HashContent(top.Chunk.Content))
	if err != nil {
		return top, models.RelevanceResult{}, err
	}
	return top, result, nil
}

// Size returns the number of points in the index.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Size()
}

// Dimensions returns the fixed embedding dimension.
func (s *Store) Dimensions() int {
	return s.index.Dimensions()
}

// Stats describes the store for status reporting.
type Stats struct {
	IndexSize  int    `json:"index_size"`
	Records    uint64 `json:"records"`
	Dimensions int    `json:"dimensions"`
	Path       string `json:"path"`
	DiskBytes  int64  `json:"disk_bytes"`
}

// Stats returns counts from the index and the log.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Stats{}, models.ErrClosed
	}
	n, err := s.records.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	disk, err := storage.Footprint(s.records.Path())
	if err != nil {
		s.logger.Warn("disk usage unavailable", zap.Error(err))
	}
	return Stats{
		IndexSize:  s.index.Size(),
		Records:    n,
		Dimensions: s.index.Dimensions(),
		Path:       s.records.Path(),
		DiskBytes:  disk,
	}, nil
}

// Close flushes and closes the record store. The index is discarded.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.records.Close()
}
