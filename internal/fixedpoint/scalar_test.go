package fixedpoint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromFloat(t *testing.T) {
	tests := []struct {
		name    string
		in      float64
		want    Scalar
		wantSat bool
	}{
		{"zero", 0, Zero, false},
		{"one", 1, One, false},
		{"half", 0.5, One / 2, false},
		{"negative half", -0.5, -One / 2, false},
		{"tie rounds away from zero", math.Ldexp(1, -33), 1, false},
		{"negative tie rounds away from zero", -math.Ldexp(1, -33), -1, false},
		{"below half ulp rounds to zero", math.Ldexp(1, -34), 0, false},
		{"upper bound saturates", math.Ldexp(1, 31), Max, true},
		{"lower bound is exact", -math.Ldexp(1, 31), Min, false},
		{"large positive saturates", 1e20, Max, true},
		{"large negative saturates", -1e20, Min, true},
		{"positive infinity", math.Inf(1), Max, true},
		{"negative infinity", math.Inf(-1), Min, true},
		{"nan", math.NaN(), Zero, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, sat := FromFloat(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantSat, sat)
		})
	}
}

func TestFromInt(t *testing.T) {
	s, sat := FromInt(3)
	assert.False(t, sat)
	assert.Equal(t, 3*One, s)

	s, sat = FromInt(math.MaxInt32 + 1)
	assert.True(t, sat)
	assert.Equal(t, Max, s)

	s, sat = FromInt(math.MinInt32 - 1)
	assert.True(t, sat)
	assert.Equal(t, Min, s)
}

func TestScalar_Float(t *testing.T) {
	assert.Equal(t, 1.0, One.Float())
	assert.Equal(t, -0.25, (-One / 4).Float())
	assert.Equal(t, float32(0.5), (One / 2).Float32())
	assert.Equal(t, "1.5", (One + One/2).String())
}

func TestScalar_AddSub(t *testing.T) {
	s, sat := One.Add(One)
	assert.False(t, sat)
	assert.Equal(t, 2*One, s)

	s, sat = Max.Add(1)
	assert.True(t, sat)
	assert.Equal(t, Max, s)

	s, sat = Min.Add(-1)
	assert.True(t, sat)
	assert.Equal(t, Min, s)

	s, sat = Min.Sub(1)
	assert.True(t, sat)
	assert.Equal(t, Min, s)

	s, sat = Max.Sub(-1)
	assert.True(t, sat)
	assert.Equal(t, Max, s)

	s, sat = One.Sub(2 * One)
	assert.False(t, sat)
	assert.Equal(t, -One, s)
}

func TestScalar_Neg(t *testing.T) {
	s, sat := One.Neg()
	assert.False(t, sat)
	assert.Equal(t, -One, s)

	s, sat = Min.Neg()
	assert.True(t, sat)
	assert.Equal(t, Max, s)
}

func TestScalar_Mul(t *testing.T) {
	oneAndHalf := One + One/2
	two := 2 * One

	s, sat := oneAndHalf.Mul(two)
	assert.False(t, sat)
	assert.Equal(t, 3*One, s)

	s, sat = (-oneAndHalf).Mul(two)
	assert.False(t, sat)
	assert.Equal(t, -3*One, s)

	s, sat = (-oneAndHalf).Mul(-two)
	assert.False(t, sat)
	assert.Equal(t, 3*One, s)

	// 2^-16 * 2^-17 = 2^-33, exactly half of the smallest step.
	s, _ = Scalar(1 << 16).Mul(1 << 15)
	assert.Equal(t, Scalar(1), s)
	s, _ = Scalar(-(1 << 16)).Mul(1 << 15)
	assert.Equal(t, Scalar(-1), s)

	// 2^-64 is far below half a step.
	s, _ = Scalar(1).Mul(1)
	assert.Equal(t, Zero, s)

	big, _ := FromInt(100000)
	s, sat = big.Mul(big)
	assert.True(t, sat)
	assert.Equal(t, Max, s)

	s, sat = big.Mul(-big)
	assert.True(t, sat)
	assert.Equal(t, Min, s)
}

func TestScalar_Div(t *testing.T) {
	three, _ := FromInt(3)

	s, sat := One.Div(three)
	assert.False(t, sat)
	assert.Equal(t, Scalar(1431655765), s)

	s, sat = (-One).Div(three)
	assert.False(t, sat)
	assert.Equal(t, Scalar(-1431655765), s)

	// 2/3 = 0.666...; the remainder rounds the last bit up.
	s, _ = (2 * One).Div(three)
	assert.Equal(t, Scalar(2863311531), s)

	s, sat = One.Div(One)
	assert.False(t, sat)
	assert.Equal(t, One, s)

	s, sat = Max.Div(One / 4)
	assert.True(t, sat)
	assert.Equal(t, Max, s)
}

func TestScalar_DivByZero(t *testing.T) {
	s, sat := One.Div(Zero)
	assert.True(t, sat)
	assert.Equal(t, Max, s)

	s, sat = (-One).Div(Zero)
	assert.True(t, sat)
	assert.Equal(t, Min, s)

	s, sat = Zero.Div(Zero)
	assert.True(t, sat)
	assert.Equal(t, Zero, s)
}

func TestScalar_Sqrt(t *testing.T) {
	four, _ := FromInt(4)
	assert.Equal(t, 2*One, four.Sqrt())
	assert.Equal(t, One/2, (One / 4).Sqrt())
	assert.Equal(t, One, One.Sqrt())
	assert.Equal(t, Zero, Zero.Sqrt())
	assert.Equal(t, Zero, (-One).Sqrt())

	two, _ := FromInt(2)
	assert.InDelta(t, math.Sqrt2, two.Sqrt().Float(), 1e-9)
	// Floor: the result squared never exceeds the input.
	root := two.Sqrt()
	sq, _ := root.Mul(root)
	assert.LessOrEqual(t, int64(sq), int64(two))

	// Largest input stays in range.
	assert.InDelta(t, math.Sqrt(Max.Float()), Max.Sqrt().Float(), 1e-6)
}

func TestScalar_Clamp(t *testing.T) {
	assert.Equal(t, One, (2 * One).Clamp(-One, One))
	assert.Equal(t, -One, (-2 * One).Clamp(-One, One))
	assert.Equal(t, One/2, (One / 2).Clamp(-One, One))
}

func TestIsqrt128(t *testing.T) {
	tests := []struct {
		n    uint128
		want uint64
	}{
		{uint128{}, 0},
		{uint128{lo: 1}, 1},
		{uint128{lo: 15}, 3},
		{uint128{lo: 16}, 4},
		{uint128{hi: 1}, 1 << 32},
		{uint128{hi: math.MaxUint64, lo: math.MaxUint64}, math.MaxUint64},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isqrt128(tt.n), "isqrt128(%v)", tt.n)
	}
}
