package models

import (
	"encoding/binary"
	"fmt"
	"math"
)

// JournalSize is the length of an encoded commitment: a 32-byte document
// hash, one boolean byte and a little-endian float32 similarity.
const JournalSize = 32 + 1 + 4

// Journal encodes the public commitment of r in field order.
func (r RelevanceResult) Journal() []byte {
	out := make([]byte, JournalSize)
	copy(out, r.DocumentHash[:])
	if r.IsRelevant {
		out[32] = 1
	}
	binary.LittleEndian.PutUint32(out[33:], math.Float32bits(r.Similarity))
	return out
}

// DecodeJournal parses a commitment produced by Journal.
func DecodeJournal(b []byte) (RelevanceResult, error) {
	var r RelevanceResult
	if len(b) != JournalSize {
		return r, fmt.Errorf("%w: journal has %d bytes, want %d", ErrInvalidInput, len(b), JournalSize)
	}
	copy(r.DocumentHash[:], b[:32])
	switch b[32] {
	case 0:
	case 1:
		r.IsRelevant = true
	default:
		return r, fmt.Errorf("%w: journal relevance byte %d", ErrInvalidInput, b[32])
	}
	r.Similarity = math.Float32frombits(binary.LittleEndian.Uint32(b[33:]))
	return r, nil
}
