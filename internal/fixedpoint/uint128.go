package fixedpoint

import "math/bits"

// uint128 is the minimum 128-bit support needed by Sqrt.
type uint128 struct {
	hi, lo uint64
}

func (a uint128) add(b uint128) uint128 {
	lo, carry := bits.Add64(a.lo, b.lo, 0)
	hi, _ := bits.Add64(a.hi, b.hi, carry)
	return uint128{hi: hi, lo: lo}
}

func (a uint128) sub(b uint128) uint128 {
	lo, borrow := bits.Sub64(a.lo, b.lo, 0)
	hi, _ := bits.Sub64(a.hi, b.hi, borrow)
	return uint128{hi: hi, lo: lo}
}

func (a uint128) cmp(b uint128) int {
	switch {
	case a.hi < b.hi:
		return -1
	case a.hi > b.hi:
		return 1
	case a.lo < b.lo:
		return -1
	case a.lo > b.lo:
		return 1
	}
	return 0
}

// shr shifts right by n, 0 < n < 64.
func (a uint128) shr(n uint) uint128 {
	return uint128{hi: a.hi >> n, lo: a.lo>>n | a.hi<<(64-n)}
}

func (a uint128) isZero() bool {
	return a.hi == 0 && a.lo == 0
}

// isqrt128 returns floor(sqrt(n)).
func isqrt128(n uint128) uint64 {
	var res uint128
	bit := uint128{hi: 1 << 62}
	for bit.cmp(n) > 0 {
		bit = bit.shr(2)
	}
	for !bit.isZero() {
		trial := res.add(bit)
		if n.cmp(trial) >= 0 {
			n = n.sub(trial)
			res = res.shr(1).add(bit)
		} else {
			res = res.shr(1)
		}
		bit = bit.shr(2)
	}
	return res.lo
}
