package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DocumentHash is the 32-byte identifier binding a relevance result to a document.
type DocumentHash [32]byte

// HashContent returns the SHA-256 of content.
func HashContent(content string) DocumentHash {
	return sha256.Sum256([]byte(content))
}

// ParseDocumentHash decodes a 64-character hex string.
func ParseDocumentHash(s string) (DocumentHash, error) {
	var h DocumentHash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("%w: document hash: %w", ErrInvalidInput, err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("%w: document hash must be %d bytes, got %d", ErrInvalidInput, len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// String returns the hex encoding.
func (h DocumentHash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalText implements encoding.TextMarshaler.
func (h DocumentHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *DocumentHash) UnmarshalText(text []byte) error {
	parsed, err := ParseDocumentHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
