package circuit

import (
	"math"
	"math/big"
)

// The guest arithmetic works on arbitrary-precision integers and clamps to the
// signed 64-bit raw range after every operation, the way a field-based
// circuit range-checks its intermediates. Floats enter only as raw IEEE-754
// bit patterns and leave only as bit patterns.

const fracBits = 32

var (
	rawMax  = big.NewInt(math.MaxInt64)
	rawMin  = big.NewInt(math.MinInt64)
	rawOne  = new(big.Int).Lsh(big.NewInt(1), fracBits)
	rawHalf = new(big.Int).Lsh(big.NewInt(1), fracBits-1)
)

// clamp restricts x to the raw range in place and reports saturation.
func clamp(x *big.Int) (*big.Int, bool) {
	if x.Cmp(rawMax) > 0 {
		return x.Set(rawMax), true
	}
	if x.Cmp(rawMin) < 0 {
		return x.Set(rawMin), true
	}
	return x, false
}

// decodeFloat32 converts the IEEE-754 single bit pattern b to a raw 32.32
// value, rounding half away from zero.
func decodeFloat32(b uint32) (*big.Int, bool) {
	neg := b>>31 == 1
	exp := int((b >> 23) & 0xFF)
	frac := int64(b & 0x7FFFFF)

	switch exp {
	case 0xFF:
		if frac != 0 { // NaN
			return new(big.Int), true
		}
		if neg {
			return new(big.Int).Set(rawMin), true
		}
		return new(big.Int).Set(rawMax), true
	case 0: // subnormal: frac * 2^-149
		exp = 1
	default:
		frac |= 1 << 23
	}
	// value = frac * 2^(exp-150); scaled by 2^32 gives frac * 2^(exp-118).
	mag := big.NewInt(frac)
	shift := exp - 118
	if shift >= 0 {
		mag.Lsh(mag, uint(shift))
	} else {
		half := new(big.Int).Lsh(big.NewInt(1), uint(-shift-1))
		mag.Add(mag, half)
		mag.Rsh(mag, uint(-shift))
	}
	if neg {
		mag.Neg(mag)
	}
	return clamp(mag)
}

// mulRaw multiplies two raw values, rounding half away from zero.
func mulRaw(a, b *big.Int) (*big.Int, bool) {
	p := new(big.Int).Mul(a, b)
	neg := p.Sign() < 0
	p.Abs(p)
	p.Add(p, rawHalf)
	p.Rsh(p, fracBits)
	if neg {
		p.Neg(p)
	}
	return clamp(p)
}

// divRaw divides two raw values, rounding half away from zero. Division by
// zero saturates toward the sign of the numerator.
func divRaw(a, b *big.Int) (*big.Int, bool) {
	if b.Sign() == 0 {
		switch a.Sign() {
		case 1:
			return new(big.Int).Set(rawMax), true
		case -1:
			return new(big.Int).Set(rawMin), true
		}
		return new(big.Int), true
	}
	neg := (a.Sign() < 0) != (b.Sign() < 0)
	num := new(big.Int).Abs(a)
	num.Lsh(num, fracBits)
	den := new(big.Int).Abs(b)
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Lsh(r, 1).Cmp(den) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	if neg {
		q.Neg(q)
	}
	return clamp(q)
}

// sqrtRaw returns floor(sqrt(a * 2^32)) for positive a, else zero.
func sqrtRaw(a *big.Int) *big.Int {
	if a.Sign() <= 0 {
		return new(big.Int)
	}
	n := new(big.Int).Lsh(a, fracBits)
	return n.Sqrt(n)
}

func dotRaw(a, b []*big.Int) (*big.Int, bool) {
	acc := new(big.Int)
	if len(a) != len(b) || len(a) == 0 {
		return acc, false
	}
	var saturated bool
	for i := range a {
		p, sat := mulRaw(a[i], b[i])
		saturated = saturated || sat
		acc.Add(acc, p)
		_, sat = clamp(acc)
		saturated = saturated || sat
	}
	return acc, saturated
}

func cosineRaw(a, b []*big.Int) (*big.Int, bool) {
	dot, satDot := dotRaw(a, b)
	aa, satA := dotRaw(a, a)
	bb, satB := dotRaw(b, b)
	saturated := satDot || satA || satB
	magA, magB := sqrtRaw(aa), sqrtRaw(bb)
	if magA.Sign() == 0 || magB.Sign() == 0 {
		return new(big.Int), saturated
	}
	denom, sat := mulRaw(magA, magB)
	saturated = saturated || sat
	if denom.Sign() == 0 {
		return new(big.Int), saturated
	}
	cos, sat := divRaw(dot, denom)
	saturated = saturated || sat
	negOne := new(big.Int).Neg(rawOne)
	switch {
	case cos.Cmp(rawOne) > 0:
		cos.Set(rawOne)
	case cos.Cmp(negOne) < 0:
		cos.Set(negOne)
	}
	return cos, saturated
}

// encodeFloat32 returns the IEEE-754 single bit pattern nearest to raw*2^-32,
// rounding to nearest with ties to even. The input must lie in [-2^32, 2^32].
func encodeFloat32(raw *big.Int) uint32 {
	if raw.Sign() == 0 {
		return 0
	}
	var sign uint32
	mag := new(big.Int).Abs(raw)
	if raw.Sign() < 0 {
		sign = 1 << 31
	}
	length := mag.BitLen()
	if length > 24 {
		drop := uint(length - 24)
		rem := new(big.Int).And(mag, new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), drop), big.NewInt(1)))
		mag.Rsh(mag, drop)
		halfway := new(big.Int).Lsh(big.NewInt(1), drop-1)
		if c := rem.Cmp(halfway); c > 0 || (c == 0 && mag.Bit(0) == 1) {
			mag.Add(mag, big.NewInt(1))
			if mag.BitLen() > 24 {
				mag.Rsh(mag, 1)
				length++
			}
		}
	} else {
		mag.Lsh(mag, uint(24-length))
	}
	exp := uint32(length - 1 - fracBits + 127)
	return sign | exp<<23 | uint32(mag.Uint64())&0x7FFFFF
}
