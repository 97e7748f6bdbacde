package circuit

import (
	"context"
	"math"
	"math/big"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/fixedpoint"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/models"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/relevance"
)

func prove(t *testing.T, in Inputs) *Receipt {
	t.Helper()
	r, err := NewGuestProver().Prove(context.Background(), in)
	require.NoError(t, err)
	return r
}

func hostResult(t *testing.T, in Inputs) models.RelevanceResult {
	t.Helper()
	r, err := relevance.NewEvaluator().Evaluate(in.Query, in.Candidate, in.Threshold, in.DocumentHash)
	require.NoError(t, err)
	return r
}

func TestGuestProver_Literals(t *testing.T) {
	hash := models.HashContent("policy.pdf")
	tests := []struct {
		name      string
		candidate []float32
		relevant  bool
		sim       float32
	}{
		{"identical", []float32{1, 0, 0}, true, 1},
		{"orthogonal", []float32{0, 1, 0}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Inputs{Query: []float32{1, 0, 0}, Candidate: tt.candidate, Threshold: 0.7, DocumentHash: hash}
			receipt := prove(t, in)
			got, err := receipt.Result()
			require.NoError(t, err)
			assert.Equal(t, tt.relevant, got.IsRelevant)
			assert.InDelta(t, tt.sim, got.Similarity, 1e-6)
			assert.Equal(t, hash, got.DocumentHash)

			require.NoError(t, VerifyJournal(receipt, hostResult(t, in)))
		})
	}
}

func TestGuestProver_AgreesWithHost(t *testing.T) {
	rng := rand.New(rand.NewPCG(2024, 10))
	scales := []float64{1e-6, 1e-3, 1, 100, 1e4, 5e4}
	for i := range 400 {
		dim := 1 + rng.IntN(64)
		scale := scales[i%len(scales)]
		q := make([]float32, dim)
		c := make([]float32, dim)
		for j := range q {
			q[j] = float32((rng.Float64()*2 - 1) * scale)
			c[j] = float32((rng.Float64()*2 - 1) * scale)
			if rng.IntN(4) == 0 {
				c[j] = q[j]
			}
		}
		in := Inputs{
			Query:        q,
			Candidate:    c,
			Threshold:    float32(rng.Float64()*2 - 1),
			DocumentHash: models.HashContent(string(rune(i))),
		}
		receipt := prove(t, in)
		if err := VerifyJournal(receipt, hostResult(t, in)); err != nil {
			t.Fatalf("case %d (dim %d, scale %g): %v", i, dim, scale, err)
		}
	}
}

func TestGuestProver_AgreesOnEdgeInputs(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	sub := math.Float32frombits(1) // smallest subnormal
	tests := map[string]Inputs{
		"zero query":        {Query: []float32{0, 0}, Candidate: []float32{1, 2}, Threshold: 0.5},
		"zero threshold":    {Query: []float32{0, 0}, Candidate: []float32{1, 2}, Threshold: 0},
		"negative":          {Query: []float32{-1, -2}, Candidate: []float32{1, 2}, Threshold: -0.99},
		"saturating":        {Query: []float32{3e9, 1}, Candidate: []float32{3e9, 1}, Threshold: 0.7},
		"overflowing dot":   {Query: []float32{60000, 60000}, Candidate: []float32{60000, -60000}, Threshold: 0},
		"nan and inf":       {Query: []float32{nan, inf}, Candidate: []float32{1, 1}, Threshold: 0.1},
		"subnormal":         {Query: []float32{sub, 1}, Candidate: []float32{sub, 1}, Threshold: 1},
		"empty":             {Query: []float32{}, Candidate: []float32{}, Threshold: 0},
		"tiny components":   {Query: []float32{1e-10, 2e-10}, Candidate: []float32{2e-10, 1e-10}, Threshold: 0.5},
		"threshold above 1": {Query: []float32{1, 0}, Candidate: []float32{1, 0}, Threshold: 1.5},
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			receipt := prove(t, in)
			assert.NoError(t, VerifyJournal(receipt, hostResult(t, in)))
		})
	}
}

func TestDecodeFloat32_MatchesFromFloat(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	for range 20000 {
		b := rng.Uint32()
		f := math.Float32frombits(b)
		want, wantSat := fixedpoint.FromFloat(float64(f))
		got, gotSat := decodeFloat32(b)
		require.Equal(t, want.Raw(), got.Int64(), "bits %#08x (%g)", b, f)
		require.Equal(t, wantSat, gotSat, "bits %#08x (%g)", b, f)
	}
}

func TestEncodeFloat32_MatchesScalarFloat32(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	for range 20000 {
		raw := rng.Int64N(2<<32+1) - 1<<32
		want := math.Float32bits(fixedpoint.FromRaw(raw).Float32())
		got := encodeFloat32(big.NewInt(raw))
		require.Equal(t, want, got, "raw %d", raw)
	}
	assert.Equal(t, math.Float32bits(1), encodeFloat32(new(big.Int).Set(rawOne)))
	assert.Equal(t, math.Float32bits(-1), encodeFloat32(new(big.Int).Neg(rawOne)))
}

func TestGuestProver_Errors(t *testing.T) {
	p := NewGuestProver()
	_, err := p.Prove(context.Background(), Inputs{Query: []float32{1}, Candidate: []float32{1, 2}})
	assert.ErrorIs(t, err, models.ErrDimensionMismatch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Prove(ctx, Inputs{Query: []float32{1}, Candidate: []float32{1}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerifyJournal_Mismatch(t *testing.T) {
	in := Inputs{Query: []float32{1, 0}, Candidate: []float32{1, 0}, Threshold: 0.7}
	receipt := prove(t, in)
	expected := hostResult(t, in)
	expected.IsRelevant = false
	assert.ErrorIs(t, VerifyJournal(receipt, expected), ErrJournalMismatch)
	assert.ErrorIs(t, VerifyJournal(nil, expected), models.ErrInvalidInput)
}

func TestReceipt_UniqueIDs(t *testing.T) {
	in := Inputs{Query: []float32{1}, Candidate: []float32{1}}
	a, b := prove(t, in), prove(t, in)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Journal, b.Journal)
	assert.Len(t, a.JournalHex(), 2*models.JournalSize)
}
