package relevance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/fixedpoint"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/models"
)

func TestEvaluate_IdenticalVectorsAreRelevant(t *testing.T) {
	e := NewEvaluator()
	hash := models.HashContent("doc")
	r, err := e.Evaluate([]float32{1, 0, 0}, []float32{1, 0, 0}, 0.7, hash)
	require.NoError(t, err)
	assert.True(t, r.IsRelevant)
	assert.InDelta(t, 1.0, r.Similarity, 1e-6)
	assert.Equal(t, hash, r.DocumentHash)
	assert.False(t, r.Saturated)
}

func TestEvaluate_OrthogonalVectorsAreNotRelevant(t *testing.T) {
	e := NewEvaluator()
	r, err := e.Evaluate([]float32{1, 0, 0}, []float32{0, 1, 0}, 0.7, models.DocumentHash{})
	require.NoError(t, err)
	assert.False(t, r.IsRelevant)
	assert.InDelta(t, 0.0, r.Similarity, 1e-6)
}

func TestEvaluate_RepeatedRunsAreByteIdentical(t *testing.T) {
	e := NewEvaluator()
	q := []float32{0.31, -0.2, 0.77, 0.05}
	c := []float32{0.3, -0.1, 0.8, 0.0}
	first, err := e.Evaluate(q, c, 0.7, models.HashContent("x"))
	require.NoError(t, err)
	for range 10 {
		again, err := e.Evaluate(q, c, 0.7, models.HashContent("x"))
		require.NoError(t, err)
		assert.Equal(t, first.Journal(), again.Journal())
	}
}

func TestDecide_ComparesInFixedPoint(t *testing.T) {
	// cos([1,1],[1,0]) = 1/sqrt(2); a threshold equal to the fixed-point
	// result must be accepted and one raw unit above it rejected.
	d, err := Decide([]float32{1, 1}, []float32{1, 0}, 0)
	require.NoError(t, err)
	sim := d.Similarity

	at := sim.Float32()
	d, err = Decide([]float32{1, 1}, []float32{1, 0}, at)
	require.NoError(t, err)
	if t32, _ := fixedpoint.FromFloat(float64(at)); t32 <= sim {
		assert.True(t, d.IsRelevant)
	} else {
		assert.False(t, d.IsRelevant)
	}

	above := math.Nextafter32(at, 2)
	d, err = Decide([]float32{1, 1}, []float32{1, 0}, above)
	require.NoError(t, err)
	assert.False(t, d.IsRelevant)
}

func TestDecide_ZeroVectorNeverRelevant(t *testing.T) {
	d, err := Decide([]float32{0, 0}, []float32{1, 0}, 0.1)
	require.NoError(t, err)
	assert.Equal(t, fixedpoint.Zero, d.Similarity)
	assert.False(t, d.IsRelevant)

	// A non-positive threshold still accepts zero similarity.
	d, err = Decide([]float32{0, 0}, []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.True(t, d.IsRelevant)
}

func TestDecide_DimensionMismatch(t *testing.T) {
	_, err := Decide([]float32{1, 0}, []float32{1, 0, 0}, 0.5)
	assert.ErrorIs(t, err, models.ErrDimensionMismatch)
}

func TestEvaluate_LogsSaturation(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	e := NewEvaluator(WithLogger(zap.New(core)))

	huge := float32(3e9) // beyond the 32 integer bits
	r, err := e.Evaluate([]float32{huge, 1}, []float32{huge, 1}, 0.7, models.DocumentHash{})
	require.NoError(t, err)
	assert.True(t, r.Saturated)

	entries := logs.FilterMessage("fixed-point arithmetic saturated").All()
	require.Len(t, entries, 1)
	assert.Equal(t, models.ErrArithmeticOverflow.Error(), entries[0].ContextMap()["error"])
}

func TestNewEvaluator_NilLoggerKeepsNop(t *testing.T) {
	e := NewEvaluator(WithLogger(nil))
	require.NotNil(t, e.logger)
}
