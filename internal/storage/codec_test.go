package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/models"
)

func TestEncodeID_BigEndian(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 2}, EncodeID(0x0102))
	assert.Negative(t, bytes.Compare(EncodeID(255), EncodeID(256)))

	id, err := DecodeID(EncodeID(1<<40 + 7))
	require.NoError(t, err)
	assert.Equal(t, models.RecordID(1<<40+7), id)

	_, err = DecodeID([]byte{1, 2, 3})
	assert.ErrorIs(t, err, models.ErrStorageFailure)
}

func TestVectorLayout(t *testing.T) {
	b := encodeVector([]float32{1.0, -2.5})
	// 1.0 = 0x3F800000, -2.5 = 0xC0200000, little-endian.
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3F, 0x00, 0x00, 0x20, 0xC0}, b)

	v, err := decodeVector(b)
	require.NoError(t, err)
	assert.Equal(t, []float32{1.0, -2.5}, v)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.ErrorIs(t, err, models.ErrStorageFailure)
}

func TestChunkEncoding_OmitsUnsetOptionals(t *testing.T) {
	b, err := encodeChunk(models.NewChunk("hello", "a.md"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"hello","metadata":{"source":"a.md"}}`, string(b))

	c, err := decodeChunk(b)
	require.NoError(t, err)
	assert.Nil(t, c.Metadata.Provider)
	assert.Nil(t, c.Metadata.ProofID)

	_, err = decodeChunk([]byte("{"))
	assert.ErrorIs(t, err, models.ErrStorageFailure)
}
