package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/models"
)

// IDSize is the width of an encoded identifier.
const IDSize = 8

// EncodeID returns the 8-byte big-endian key for id.
func EncodeID(id models.RecordID) []byte {
	key := make([]byte, IDSize)
	binary.BigEndian.PutUint64(key, id)
	return key
}

// DecodeID parses an 8-byte big-endian key.
func DecodeID(key []byte) (models.RecordID, error) {
	if len(key) != IDSize {
		return 0, fmt.Errorf("%w: key has %d bytes, want %d", models.ErrStorageFailure, len(key), IDSize)
	}
	return binary.BigEndian.Uint64(key), nil
}

func encodeChunk(c models.DocumentChunk) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("%w: encode chunk: %w", models.ErrStorageFailure, err)
	}
	return data, nil
}

func decodeChunk(data []byte) (models.DocumentChunk, error) {
	var c models.DocumentChunk
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("%w: decode chunk: %w", models.ErrStorageFailure, err)
	}
	return c, nil
}

// encodeVector lays out each element as a little-endian IEEE-754 float32.
func encodeVector(v []float32) []byte {
	const size = 4
	out := make([]byte, len(v)*size)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*size:], math.Float32bits(f))
	}
	return out
}

func decodeVector(b []byte) ([]float32, error) {
	const size = 4
	if len(b)%size != 0 {
		return nil, fmt.Errorf("%w: vector has %d bytes, not a multiple of %d", models.ErrStorageFailure, len(b), size)
	}
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size:]))
	}
	return out, nil
}
