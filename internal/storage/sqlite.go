package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/models"
)

// SQLiteStore implements RecordStore on SQLite. Puts join a lazily begun
// transaction that Flush commits.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	mu     sync.Mutex
	tx     *sql.Tx
	closed bool
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OpenSQLite opens or creates a SQLite record store at path and initializes
// the schema. Parent directories are created if they do not exist.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: create database directory: %w", models.ErrStorageUnavailable, err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", models.ErrStorageUnavailable, err)
	}
	// One connection keeps reads inside the pending transaction.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA synchronous=FULL"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: %s: %w", models.ErrStorageUnavailable, pragma, err)
		}
	}
	if err := initRecordSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: initialize schema: %w", models.ErrStorageUnavailable, err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

func initRecordSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS vectors (
		id BLOB PRIMARY KEY,
		data BLOB NOT NULL
	) WITHOUT ROWID;

	CREATE TABLE IF NOT EXISTS chunks (
		id BLOB PRIMARY KEY,
		data BLOB NOT NULL
	) WITHOUT ROWID;
	`
	_, err := db.Exec(schema)
	return err
}

func (s *SQLiteStore) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Put writes the vector then the chunk for id inside the pending transaction.
func (s *SQLiteStore) Put(ctx context.Context, id models.RecordID, chunk models.DocumentChunk, vector []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chunkData, err := encodeChunk(chunk)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.ErrClosed
	}
	if s.tx == nil {
		// Begin without ctx: the transaction outlives the caller's request.
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("%w: begin: %w", models.ErrStorageFailure, err)
		}
		s.tx = tx
	}
	key := EncodeID(id)
	if _, err := s.tx.ExecContext(ctx, "INSERT OR REPLACE INTO vectors (id, data) VALUES (?, ?)", key, encodeVector(vector)); err != nil {
		return fmt.Errorf("%w: put vector %d: %w", models.ErrStorageFailure, id, err)
	}
	if _, err := s.tx.ExecContext(ctx, "INSERT OR REPLACE INTO chunks (id, data) VALUES (?, ?)", key, chunkData); err != nil {
		return fmt.Errorf("%w: put chunk %d: %w", models.ErrStorageFailure, id, err)
	}
	return nil
}

// Get returns the chunk for id.
func (s *SQLiteStore) Get(ctx context.Context, id models.RecordID) (models.DocumentChunk, error) {
	data, err := s.lookup(ctx, "SELECT data FROM chunks WHERE id = ?", id)
	if err != nil {
		return models.DocumentChunk{}, err
	}
	return decodeChunk(data)
}

// GetVector returns the vector for id.
func (s *SQLiteStore) GetVector(ctx context.Context, id models.RecordID) ([]float32, error) {
	data, err := s.lookup(ctx, "SELECT data FROM vectors WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return decodeVector(data)
}

func (s *SQLiteStore) lookup(ctx context.Context, query string, id models.RecordID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, models.ErrClosed
	}
	var data []byte
	err := s.q().QueryRowContext(ctx, query, EncodeID(id)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read record %d: %w", models.ErrStorageFailure, id, err)
	}
	return data, nil
}

// IterateVectors commits pending writes, then scans vectors in key order.
func (s *SQLiteStore) IterateVectors(ctx context.Context, fn func(id models.RecordID, vector []float32) error) error {
	if err := s.Flush(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, "SELECT id, data FROM vectors ORDER BY id")
	if err != nil {
		return fmt.Errorf("%w: iterate vectors: %w", models.ErrStorageFailure, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, data []byte
		if err := rows.Scan(&key, &data); err != nil {
			return fmt.Errorf("%w: scan vector: %w", models.ErrStorageFailure, err)
		}
		id, err := DecodeID(key)
		if err != nil {
			return err
		}
		vec, err := decodeVector(data)
		if err != nil {
			return err
		}
		if err := fn(id, vec); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: iterate vectors: %w", models.ErrStorageFailure, err)
	}
	return nil
}

// Flush commits the pending transaction, if any.
func (s *SQLiteStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.ErrClosed
	}
	return s.commitLocked()
}

func (s *SQLiteStore) commitLocked() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", models.ErrStorageFailure, err)
	}
	return nil
}

// NextID returns one past the largest identifier in either table.
func (s *SQLiteStore) NextID(ctx context.Context) (models.RecordID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, models.ErrClosed
	}
	var next models.RecordID
	for _, query := range []string{
		"SELECT id FROM vectors ORDER BY id DESC LIMIT 1",
		"SELECT id FROM chunks ORDER BY id DESC LIMIT 1",
	} {
		var key []byte
		err := s.q().QueryRowContext(ctx, query).Scan(&key)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("%w: next id: %w", models.ErrStorageFailure, err)
		}
		id, err := DecodeID(key)
		if err != nil {
			return 0, err
		}
		if id+1 > next {
			next = id + 1
		}
	}
	return next, nil
}

// Count returns the number of vectors, including uncommitted ones.
func (s *SQLiteStore) Count(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, models.ErrClosed
	}
	var n uint64
	if err := s.q().QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %w", models.ErrStorageFailure, err)
	}
	return n, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close commits pending writes and closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	commitErr := s.commitLocked()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", models.ErrStorageFailure, err)
	}
	return commitErr
}
