// Package fixedpoint implements signed 32.32 fixed-point arithmetic with
// saturating overflow and round-to-nearest (ties away from zero) rounding.
//
// Every operation is defined on integers only, so the same inputs produce the
// same bits on any host and inside a constrained proving environment. Floating
// point appears only in FromFloat and Float, at the input/output boundary.
//
// Operations that can overflow return the saturated value plus a flag reporting
// that saturation happened. Saturation is not an error.
package fixedpoint

import (
	"math"
	"math/bits"
	"strconv"
)

// FracBits is the number of fractional bits in a Scalar.
const FracBits = 32

// Scalar is a signed fixed-point number with 32 integer and 32 fractional bits,
// stored as its raw two's complement value.
type Scalar int64

const (
	// Zero is 0.0.
	Zero Scalar = 0
	// One is 1.0.
	One Scalar = 1 << FracBits
	// Max is the largest representable value (just under 2^31).
	Max Scalar = math.MaxInt64
	// Min is the smallest representable value (-2^31).
	Min Scalar = math.MinInt64
)

const (
	twoTo63 = float64(1 << 63)
	half    = uint64(1) << (FracBits - 1)
)

// FromFloat converts f, rounding to nearest with ties away from zero.
// Values outside the representable range saturate; NaN converts to zero.
// The second result reports whether the value saturated.
func FromFloat(f float64) (Scalar, bool) {
	if math.IsNaN(f) {
		return Zero, true
	}
	// Scaling by a power of two is exact, and math.Round rounds half away from zero.
	scaled := math.Round(f * float64(One))
	switch {
	case scaled >= twoTo63:
		return Max, true
	case scaled < -twoTo63:
		return Min, true
	}
	return Scalar(int64(scaled)), false
}

// FromRaw returns the Scalar whose raw representation is raw.
func FromRaw(raw int64) Scalar {
	return Scalar(raw)
}

// FromInt converts an integer, saturating outside the integer range.
func FromInt(n int64) (Scalar, bool) {
	if n > math.MaxInt32 {
		return Max, true
	}
	if n < math.MinInt32 {
		return Min, true
	}
	return Scalar(n << FracBits), false
}

// Raw returns the underlying scaled integer.
func (s Scalar) Raw() int64 {
	return int64(s)
}

// Float widens s to float64. Used for display only.
func (s Scalar) Float() float64 {
	return float64(s) / float64(One)
}

// Float32 widens s to float32 with a single round-to-nearest-even step.
// Used for display and the public commitment.
func (s Scalar) Float32() float32 {
	// Scaling by a power of two is exact in float32 for every raw value.
	return float32(int64(s)) * (1.0 / float32(One))
}

// String formats s as a decimal.
func (s Scalar) String() string {
	return strconv.FormatFloat(s.Float(), 'f', -1, 64)
}

// Neg returns -s, saturating -Min to Max.
func (s Scalar) Neg() (Scalar, bool) {
	if s == Min {
		return Max, true
	}
	return -s, false
}

// Add returns s+b, saturating on overflow.
func (s Scalar) Add(b Scalar) (Scalar, bool) {
	sum := s + b
	if b > 0 && sum < s {
		return Max, true
	}
	if b < 0 && sum > s {
		return Min, true
	}
	return sum, false
}

// Sub returns s-b, saturating on overflow.
func (s Scalar) Sub(b Scalar) (Scalar, bool) {
	diff := s - b
	if b < 0 && diff < s {
		return Max, true
	}
	if b > 0 && diff > s {
		return Min, true
	}
	return diff, false
}

// Mul returns s*b rounded to nearest, ties away from zero, saturating on overflow.
func (s Scalar) Mul(b Scalar) (Scalar, bool) {
	neg := (s < 0) != (b < 0)
	hi, lo := bits.Mul64(magnitude(s), magnitude(b))
	lo, carry := bits.Add64(lo, half, 0)
	hi += carry
	if hi>>FracBits != 0 {
		return saturate(neg), true
	}
	return fromMagnitude(hi<<FracBits|lo>>FracBits, neg)
}

// Div returns s/b rounded to nearest, ties away from zero, saturating on
// overflow. Division by zero saturates toward the sign of s (zero for 0/0).
func (s Scalar) Div(b Scalar) (Scalar, bool) {
	if b == 0 {
		switch {
		case s > 0:
			return Max, true
		case s < 0:
			return Min, true
		}
		return Zero, true
	}
	neg := (s < 0) != (b < 0)
	num, den := magnitude(s), magnitude(b)
	hi, lo := num>>(64-FracBits), num<<FracBits
	if hi >= den {
		return saturate(neg), true
	}
	q, r := bits.Div64(hi, lo, den)
	if r >= den-r {
		q++
		if q == 0 {
			return saturate(neg), true
		}
	}
	return fromMagnitude(q, neg)
}

// Sqrt returns the floor of the square root of s, computed with the
// digit-by-digit integer method on the 128-bit value s<<32.
// Negative inputs return zero.
func (s Scalar) Sqrt() Scalar {
	if s <= 0 {
		return Zero
	}
	u := uint64(s)
	root := isqrt128(uint128{hi: u >> (64 - FracBits), lo: u << FracBits})
	return Scalar(root)
}

// Clamp restricts s to [lo, hi].
func (s Scalar) Clamp(lo, hi Scalar) Scalar {
	if s < lo {
		return lo
	}
	if s > hi {
		return hi
	}
	return s
}

// Abs returns |s|, saturating |Min| to Max.
func (s Scalar) Abs() (Scalar, bool) {
	if s < 0 {
		return s.Neg()
	}
	return s, false
}

func magnitude(s Scalar) uint64 {
	if s < 0 {
		return uint64(-(s + 1)) + 1
	}
	return uint64(s)
}

func fromMagnitude(m uint64, neg bool) (Scalar, bool) {
	if neg {
		if m > 1<<63 {
			return Min, true
		}
		if m == 1<<63 {
			return Min, false
		}
		return Scalar(-int64(m)), false
	}
	if m > math.MaxInt64 {
		return Max, true
	}
	return Scalar(m), false
}

func saturate(neg bool) Scalar {
	if neg {
		return Min
	}
	return Max
}
