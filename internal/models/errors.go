package models

import "errors"

// Errors shared by the record store, the index and the composite vector store.
var (
	// ErrStorageUnavailable indicates the backing store could not be opened.
	// It is fatal for the store handle; no retry is attempted.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrStorageFailure indicates a single read or write failed after the
	// store was opened. Callers may retry.
	ErrStorageFailure = errors.New("storage failure")

	// ErrDimensionMismatch indicates a vector length disagrees with the
	// configured dimension. It is raised before any mutation.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrNotFound indicates an identifier is absent.
	ErrNotFound = errors.New("not found")

	// ErrArithmeticOverflow marks a saturating fixed-point computation.
	// It is logged, never returned as a failure.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrLengthMismatch indicates chunk and embedding batches differ in length.
	ErrLengthMismatch = errors.New("chunks and embeddings length mismatch")

	// ErrInvalidInput indicates malformed input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrClosed indicates use of a closed store.
	ErrClosed = errors.New("store closed")
)
